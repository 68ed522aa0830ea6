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

package studio

import (
	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// paramKindSchema maps a declared signature parameter kind to its
// JSON-Schema type, mirroring the mapping the original Python-studio
// generator derived from a function's type annotations.
var paramKindSchema = map[string]string{
	"str":   "string",
	"int":   "integer",
	"float": "number",
	"bool":  "boolean",
	"list":  "array",
	"dict":  "object",
}

// PythonStudioGenerator renders no handler for studio_python specs.
// Validate derives an input schema from the declared parameter kinds only
// to reject a spec with no usable parameter, and then rejects every other
// studio_python spec as well; Render always fails. No output schema is
// derived and no user-submitted script body is ever run.
type PythonStudioGenerator struct{}

// NewPythonStudioGenerator returns the restricted studio_python generator.
func NewPythonStudioGenerator() *PythonStudioGenerator { return &PythonStudioGenerator{} }

func (g *PythonStudioGenerator) Validate(spec map[string]any) error {
	if _, err := requireString(spec, "name"); err != nil {
		return err
	}
	params, ok := spec["parameters"].([]any)
	if !ok {
		return apierr.New(apierr.InvalidArgument, "studio_python spec requires declared parameters")
	}
	schema := deriveInputSchema(params)
	if len(schema["properties"].(map[string]any)) == 0 {
		return apierr.New(apierr.InvalidArgument, "studio_python spec declares no usable parameters")
	}
	return apierr.New(apierr.InvalidArgument,
		"studio_python handler bodies are not supported; compose a rest, sqlquery, script, report_export, analytic_query, or document_store spec instead")
}

func (g *PythonStudioGenerator) Render(spec map[string]any) (registry.ToolDefinition, registry.Handler, error) {
	return registry.ToolDefinition{}, nil, apierr.New(apierr.InvalidArgument, "studio_python specs cannot be rendered into a handler")
}

// deriveInputSchema builds the JSON-Schema properties/required object
// from a studio_python spec's declared parameter list, so Validate can
// reject specs that declare no usable parameters before the generator's
// unconditional render rejection.
func deriveInputSchema(parameters []any) map[string]any {
	properties := map[string]any{}
	var required []string
	for _, raw := range parameters {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name := stringField(p, "name")
		if name == "" {
			continue
		}
		kind := paramKindSchema[stringField(p, "kind")]
		if kind == "" {
			kind = "string"
		}
		properties[name] = map[string]any{"type": kind}
		if _, hasDefault := p["default"]; !hasDefault {
			required = append(required, name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
