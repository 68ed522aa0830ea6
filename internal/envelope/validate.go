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

package envelope

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
)

// ValidateArguments validates arguments against a tool's published JSON
// Schema input_schema (spec.md §4.2 step 5). A nil/empty schema accepts
// anything, matching the teacher's "no schema means unvalidated" behavior
// in internal/schema.
func ValidateArguments(schema map[string]any, arguments map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "marshaling input schema", err)
	}
	argBytes, err := json.Marshal(arguments)
	if err != nil {
		return apierr.Wrap(apierr.InvalidArgument, "marshaling arguments", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	docLoader := gojsonschema.NewBytesLoader(argBytes)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return apierr.Wrap(apierr.InvalidArgument, "evaluating input schema", err)
	}
	if result.Valid() {
		return nil
	}

	paths := make([]string, 0, len(result.Errors()))
	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		paths = append(paths, desc.Field())
		messages = append(messages, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}

	return apierr.New(apierr.InvalidArgument, strings.Join(messages, "; ")).WithPaths(paths...)
}
