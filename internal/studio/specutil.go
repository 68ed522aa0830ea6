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

func stringField(spec map[string]any, key string) string {
	v, _ := spec[key].(string)
	return v
}

func requireString(spec map[string]any, key string) (string, error) {
	v := stringField(spec, key)
	if v == "" {
		return "", apierr.Newf(apierr.InvalidArgument, "%q is required", key)
	}
	return v, nil
}

func intField(spec map[string]any, key string, def int) int {
	switch v := spec[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func boolField(spec map[string]any, key string) bool {
	v, _ := spec[key].(bool)
	return v
}

func mapField(spec map[string]any, key string) map[string]any {
	v, _ := spec[key].(map[string]any)
	return v
}

func stringMapField(spec map[string]any, key string) map[string]string {
	out := make(map[string]string)
	for k, v := range mapField(spec, key) {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func baseDefinition(spec map[string]any, source registry.SourceKind) (registry.ToolDefinition, error) {
	name, err := requireString(spec, "name")
	if err != nil {
		return registry.ToolDefinition{}, err
	}
	if !registry.ValidName(name) {
		return registry.ToolDefinition{}, apierr.Newf(apierr.InvalidArgument, "invalid tool name %q", name)
	}
	return registry.ToolDefinition{
		Name:        name,
		Description: stringField(spec, "description"),
		Version:     stringField(spec, "version"),
		Enabled:     spec["enabled"] == nil || boolField(spec, "enabled"),
		InputSchema: mapField(spec, "input_schema"),
		Metadata: registry.Metadata{
			Author:         stringField(spec, "author"),
			Category:       stringField(spec, "category"),
			Source:         source,
			TimeoutSeconds: intField(spec, "timeout_seconds", 0),
		},
	}, nil
}
