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

package registry

import "context"

// Executor is the per-kind execution function a Studio generator supplies.
// GenericHandler wraps exactly one of these so the registry holds a single
// Handler implementation regardless of source kind (spec.md §9: "the
// generator writes only a data record").
type Executor func(ctx context.Context, arguments map[string]any) (*Result, error)

// GenericHandler is the one Handler implementation shared by every
// generated tool kind; Studio generators produce a GenericHandler instead
// of a bespoke Go type per tool.
type GenericHandler struct {
	Kind SourceKind
	Run  Executor
}

// NewGenericHandler wraps run as a Handler tagged with kind.
func NewGenericHandler(kind SourceKind, run Executor) *GenericHandler {
	return &GenericHandler{Kind: kind, Run: run}
}

// Execute dispatches to the wrapped Executor.
func (h *GenericHandler) Execute(ctx context.Context, arguments map[string]any) (*Result, error) {
	return h.Run(ctx, arguments)
}
