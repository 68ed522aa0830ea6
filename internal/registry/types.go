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

// Package registry holds the ToolRegistry: the lifecycle of tool
// definitions (load, validate, enable/disable, hot-reload, unload) and the
// routing of a call name to its handler.
package registry

import (
	"context"
	"regexp"
	"time"
)

// SourceKind discriminates how a tool's handler was produced, per spec.md
// §3. The Studio factory switches on this when it builds a tool's handler,
// and every generated tool shares the one GenericHandler type instead of
// the source emitting one Go file per tool (spec.md §9).
type SourceKind string

const (
	SourceNative        SourceKind = "native"
	SourceREST          SourceKind = "rest"
	SourceSQLQuery      SourceKind = "sqlquery"
	SourceScript        SourceKind = "script"
	SourceReportExport  SourceKind = "report_export"
	SourceAnalyticQuery SourceKind = "analytic_query"
	SourceDocumentStore SourceKind = "document_store"
	SourceStudioPython  SourceKind = "studio_python"
	SourceDAXQuery      SourceKind = "dax_query"
)

// nameRE enforces spec.md §3: "lowercase identifier, 3-64 chars,
// [a-z][a-z0-9_]*".
var nameRE = regexp.MustCompile(`^[a-z][a-z0-9_]{2,63}$`)

// ValidName reports whether name satisfies the ToolDefinition naming rule.
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

// Metadata carries the category/tags/rate-limit/cache-TTL/source-kind
// fields of a ToolDefinition, plus generator-specific fields each Studio
// generator populates.
type Metadata struct {
	Author          string         `json:"author,omitempty"`
	Category        string         `json:"category,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	RateLimit       *RateLimit     `json:"rateLimit,omitempty"`
	CacheTTLSeconds int            `json:"cacheTTL,omitempty"`
	Source          SourceKind     `json:"source"`
	TimeoutSeconds  int            `json:"timeout_seconds,omitempty"`
	Extra           map[string]any `json:"-"`
}

// RateLimit is the requested per-principal rate limit a tool's metadata may
// carry as a hint to AccessPolicy.
type RateLimit struct {
	RequestsPerMinute int `json:"requestsPerMinute,omitempty"`
	RequestsPerHour   int `json:"requestsPerHour,omitempty"`
}

// ToolDefinition is the declarative description persisted per tool
// (spec.md §3). Immutable from the caller's view after load; mutated only
// by an admin reload.
type ToolDefinition struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Version      string         `json:"version,omitempty"`
	Enabled      bool           `json:"enabled"`
	InputSchema  map[string]any `json:"inputSchema,omitempty"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
	Metadata     Metadata       `json:"metadata"`
}

const (
	defaultTimeout = 30 * time.Second
	maxTimeout     = 300 * time.Second
)

// Timeout resolves the handler deadline per spec.md §4.2 step 6: the
// metadata hint, default 30s, hard ceiling 300s.
func (d ToolDefinition) Timeout() time.Duration {
	if d.Metadata.TimeoutSeconds <= 0 {
		return defaultTimeout
	}
	t := time.Duration(d.Metadata.TimeoutSeconds) * time.Second
	if t > maxTimeout {
		return maxTimeout
	}
	return t
}

// Summary is the list-friendly projection of a ToolDefinition returned by
// List, which applies no access filtering.
type Summary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
	Enabled     bool     `json:"enabled"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Result is the structured outcome of a handler's Execute call.
type Result struct {
	Content any  `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

// Handler is the runtime pairing of a ToolDefinition with an executable
// that accepts arguments and returns a structured result (spec.md §9:
// "The MCP dispatcher is polymorphic over one capability set").
type Handler interface {
	Execute(ctx context.Context, arguments map[string]any) (*Result, error)
}

// Metrics are the per-tool counters mutated only via the envelope
// (spec.md §3). average_duration is derived, never stored, to keep the
// invariant exact by construction.
type Metrics struct {
	ExecutionCount   uint64
	TotalDuration    time.Duration
	LastExecutionAt  time.Time
	ErrorCountByKind map[string]uint64
}

// AverageDuration returns TotalDuration/ExecutionCount, or 0 when no
// executions have been recorded.
func (m Metrics) AverageDuration() time.Duration {
	if m.ExecutionCount == 0 {
		return 0
	}
	return m.TotalDuration / time.Duration(m.ExecutionCount)
}

// NamedMetrics pairs a tool name with its Metrics snapshot, the shape
// returned by Registry.Metrics() (no argument).
type NamedMetrics struct {
	Name    string
	Metrics Metrics
}
