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
	"encoding/json"
	"net/http"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/engine"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/semantic"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// Generators bundles one instance of every Studio generator kind, keyed by
// the registry.SourceKind its tool configuration documents declare. This is
// the single place production binaries assemble the full generator set
// (spec.md §4.6).
type Generators struct {
	REST          *RESTGenerator
	SQLQuery      *SQLQueryGenerator
	Script        *ScriptGenerator
	ReportExport  *ReportExportGenerator
	DAXQuery      *DAXQueryGenerator
	DocumentStore *DocumentStoreGenerator
	StudioPython  *PythonStudioGenerator
	AnalyticQuery *AnalyticQueryGenerator
}

// NewGenerators builds the default generator set. httpClient backs the
// REST, report-export, and DAX-query generators' outbound calls; exec
// backs the SQL-query and analytic-query generators; semanticLayer backs
// the analytic-query generator's dataset/dimension/measure resolution.
func NewGenerators(httpClient *http.Client, exec engine.Executor, semanticLayer *semantic.Layer) *Generators {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Generators{
		REST:          NewRESTGenerator(),
		SQLQuery:      NewSQLQueryGenerator(exec),
		Script:        NewScriptGenerator(),
		ReportExport:  NewReportExportGenerator(httpClient),
		DAXQuery:      NewDAXQueryGenerator(httpClient),
		DocumentStore: NewDocumentStoreGenerator(),
		StudioPython:  NewPythonStudioGenerator(),
		AnalyticQuery: NewAnalyticQueryGenerator(semanticLayer, exec),
	}
}

// byKind resolves the Generator for a SourceKind, or nil if unknown.
func (g *Generators) byKind(kind registry.SourceKind) Generator {
	switch kind {
	case registry.SourceREST:
		return g.REST
	case registry.SourceSQLQuery:
		return g.SQLQuery
	case registry.SourceAnalyticQuery:
		return g.AnalyticQuery
	case registry.SourceScript:
		return g.Script
	case registry.SourceReportExport:
		return g.ReportExport
	case registry.SourceDocumentStore:
		return g.DocumentStore
	case registry.SourceStudioPython:
		return g.StudioPython
	case registry.SourceDAXQuery:
		return g.DAXQuery
	default:
		return nil
	}
}

// Factory returns a registry.HandlerFactory that dispatches a parsed
// Document to the matching Studio generator by its Metadata.source field
// (spec.md §9: a single generic factory switching on the source kind
// discriminator, instead of per-source registry code paths).
func (g *Generators) Factory() registry.HandlerFactory {
	return func(doc registry.Document) (registry.ToolDefinition, registry.Handler, error) {
		spec, kind, err := decodeDocument(doc)
		if err != nil {
			return registry.ToolDefinition{}, nil, err
		}
		gen := g.byKind(kind)
		if gen == nil {
			return registry.ToolDefinition{}, nil, apierr.Newf(apierr.InvalidArgument, "unknown tool source kind %q", kind)
		}
		if err := gen.Validate(spec); err != nil {
			return registry.ToolDefinition{}, nil, err
		}
		return gen.Render(spec)
	}
}

// decodeDocument flattens a Document's fixed fields and its raw Metadata
// object into the single map[string]any spec Generator.Validate/Render
// expect, and extracts the SourceKind discriminator from metadata.source.
func decodeDocument(doc registry.Document) (map[string]any, registry.SourceKind, error) {
	spec := map[string]any{
		"name":        doc.Name,
		"description": doc.Description,
		"version":     doc.Version,
		"enabled":     doc.Enabled,
	}
	if doc.InputSchema != nil {
		spec["input_schema"] = doc.InputSchema
	}
	if doc.OutputSchema != nil {
		spec["outputSchema"] = doc.OutputSchema
	}

	var meta map[string]any
	if len(doc.Metadata) > 0 {
		if err := json.Unmarshal(doc.Metadata, &meta); err != nil {
			return nil, "", apierr.Wrap(apierr.InvalidArgument, "parsing tool metadata", err)
		}
	}
	for k, v := range meta {
		spec[k] = v
	}

	kind, _ := meta["source"].(string)
	if kind == "" {
		kind = doc.Implementation
	}
	return spec, registry.SourceKind(kind), nil
}
