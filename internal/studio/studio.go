/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package studio compiles declarative tool specifications into
// registry-loadable tool definitions and handlers. Each generator shares
// three stages: validate the spec, render the handler, and hand both the
// ToolDefinition and the Handler to the registry's Register.
package studio

import (
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// Generator compiles one declarative spec kind into a registry-loadable
// tool. Validate runs cheaply and rejects specs that would produce a name
// collision, an invalid identifier, or a handler whose inputs cannot be
// derived; Render performs the (potentially expensive) handler
// construction.
type Generator interface {
	Validate(spec map[string]any) error
	Render(spec map[string]any) (registry.ToolDefinition, registry.Handler, error)
}

// Persist validates spec with gen, renders it, and registers the result
// with reg in memory. It writes no tool configuration document; tools
// loaded from documents are rendered through Generators.Factory instead.
func Persist(reg *registry.Registry, gen Generator, spec map[string]any) error {
	if err := gen.Validate(spec); err != nil {
		return err
	}
	def, handler, err := gen.Render(spec)
	if err != nil {
		return err
	}
	return reg.Register(def, handler)
}
