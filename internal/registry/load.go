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

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is the on-disk tool configuration document format (spec.md §6):
// one JSON file per tool, the "source" metadata field discriminating how
// StudioGenerators produced it.
type Document struct {
	Name           string         `json:"name"`
	Implementation string         `json:"implementation,omitempty"`
	Description    string         `json:"description,omitempty"`
	Version        string         `json:"version,omitempty"`
	Enabled        bool           `json:"enabled"`
	Metadata       json.RawMessage `json:"metadata"`
	InputSchema    map[string]any `json:"inputSchema,omitempty"`
	OutputSchema   map[string]any `json:"outputSchema,omitempty"`
}

// HandlerFactory instantiates a runtime Handler for a parsed Document. The
// registry itself is generator-agnostic; internal/studio supplies the
// factory used by production binaries (spec.md §9: "the registry
// instantiates the appropriate runtime dispatcher by kind").
type HandlerFactory func(doc Document) (ToolDefinition, Handler, error)

// Load scans configDir for tool configuration documents (*.json), validates
// and instantiates each via factory, and admits them atomically. A tool
// that fails instantiation is skipped and reported, not fatal to the scan
// (spec.md §4.1 ReloadAll invariant, reused by Load).
func (r *Registry) Load(configDir string, factory HandlerFactory) []error {
	r.configDir = configDir
	docs, readErrs := readDocuments(configDir)

	var errs []error
	errs = append(errs, readErrs...)

	for _, doc := range docs {
		def, handler, err := factory(doc)
		if err != nil {
			errs = append(errs, fmt.Errorf("tool %q: %w", doc.Name, err))
			continue
		}
		if err := r.Register(def, handler); err != nil {
			errs = append(errs, fmt.Errorf("tool %q: %w", doc.Name, err))
			continue
		}
	}
	return errs
}

// ReloadAll unregisters every tool, rescans configDir, and re-admits.
// Per spec.md §9 ("compute a new registry in isolation, then swap it under
// the writer lock") the new set is built in a throwaway Registry and swapped
// in one lock acquisition, so in-flight calls against the old set are
// unaffected and a single bad tool cannot leave the registry half-built.
func (r *Registry) ReloadAll() []error {
	staging := New(r.log)
	errs := staging.Load(r.configDir, r.factory)

	r.mu.Lock()
	r.entries = staging.entries
	r.mu.Unlock()

	return errs
}

// SetFactory stores the HandlerFactory used by subsequent ReloadAll calls.
func (r *Registry) SetFactory(factory HandlerFactory) { r.factory = factory }

func readDocuments(dir string) ([]Document, []error) {
	var docs []Document
	var errs []error

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("reading config dir %q: %w", dir, err)}
	}

	for _, fi := range entries {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, fi.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %q: %w", path, err))
			continue
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			errs = append(errs, fmt.Errorf("parsing %q: %w", path, err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errs
}
