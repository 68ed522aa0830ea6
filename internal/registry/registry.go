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
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
)

// entry is the registry's internal pairing of a definition and its live
// handler, plus the metrics mutated exclusively by the envelope.
type entry struct {
	def     ToolDefinition
	handler Handler

	mu      sync.Mutex
	metrics Metrics
}

// Registry is the canonical source of "what tools exist and how to call
// them" (spec.md §4.1). The map is guarded by a reader-writer lock per
// spec.md §5: Get/List acquire the reader lock, mutating operations
// acquire the writer lock. Get returns a stable handler reference that may
// outlive the lock for the duration of one call; Unregister does not
// invalidate an in-flight execution.
type Registry struct {
	log logr.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	configDir string
	factory   HandlerFactory
}

// New creates an empty Registry.
func New(log logr.Logger) *Registry {
	return &Registry{
		log:     log.WithName("registry"),
		entries: make(map[string]*entry),
	}
}

// Register admits a tool atomically. Duplicates fail with Conflict.
func (r *Registry) Register(def ToolDefinition, handler Handler) error {
	if !ValidName(def.Name) {
		return apierr.Newf(apierr.InvalidArgument, "invalid tool name %q", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; exists {
		return apierr.Newf(apierr.Conflict, "tool %q already registered", def.Name)
	}
	r.entries[def.Name] = &entry{
		def:     def,
		handler: handler,
		metrics: Metrics{ErrorCountByKind: make(map[string]uint64)},
	}
	r.log.Info("tool registered", "tool", def.Name, "source", def.Metadata.Source)
	return nil
}

// Unregister removes a tool. The handler itself is only garbage collected
// once the last in-flight caller holding the stable reference returns
// (spec.md §5) — Go's reference semantics give us this for free since Get
// hands back a *copy* of the entry pointer's handler, not the map slot.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; !exists {
		return apierr.Newf(apierr.ToolNotFound, "tool %q not found", name)
	}
	delete(r.entries, name)
	r.log.Info("tool unregistered", "tool", name)
	return nil
}

// Enable marks a tool enabled.
func (r *Registry) Enable(name string) error { return r.setEnabled(name, true) }

// Disable marks a tool disabled. It remains visible to List but Get
// rejects it for execution with ToolDisabled.
func (r *Registry) Disable(name string) error { return r.setEnabled(name, false) }

func (r *Registry) setEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return apierr.Newf(apierr.ToolNotFound, "tool %q not found", name)
	}
	e.def.Enabled = enabled
	return nil
}

// ResolvedHandler is the stable (definition, handler) pair Get returns.
type ResolvedHandler struct {
	Definition ToolDefinition
	Handler    Handler
}

// Get resolves a tool by name for execution. A disabled tool yields
// ToolDisabled; a missing tool yields ToolNotFound (spec.md §4.1
// invariant).
func (r *Registry) Get(name string) (*ResolvedHandler, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apierr.Newf(apierr.ToolNotFound, "tool %q not found", name)
	}
	e.mu.Lock()
	def := e.def
	e.mu.Unlock()
	if !def.Enabled {
		return nil, apierr.Newf(apierr.ToolDisabled, "tool %q is disabled", name)
	}
	return &ResolvedHandler{Definition: def, Handler: e.handler}, nil
}

// List returns a summary of every registered tool, including disabled
// ones (spec.md §4.1 invariant: "a disabled tool is visible to List").
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, Summary{
			Name:        e.def.Name,
			Description: e.def.Description,
			Version:     e.def.Version,
			Enabled:     e.def.Enabled,
			Category:    e.def.Metadata.Category,
			Tags:        e.def.Metadata.Tags,
		})
	}
	return out
}

// RecordExecution updates ToolMetrics for one call; metric counters never
// decrease (spec.md §4.1 invariant).
func (r *Registry) RecordExecution(name string, d time.Duration, errKind string) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics.ExecutionCount++
	e.metrics.TotalDuration += d
	e.metrics.LastExecutionAt = time.Now()
	if errKind != "" {
		e.metrics.ErrorCountByKind[errKind]++
	}
}

// MetricsFor returns the metrics snapshot for a single tool.
func (r *Registry) MetricsFor(name string) (Metrics, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return Metrics{}, apierr.Newf(apierr.ToolNotFound, "tool %q not found", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneMetrics(e.metrics), nil
}

// Metrics returns the metrics snapshot for every tool. Aggregate reads may
// observe a stale snapshot within one update (spec.md §5).
func (r *Registry) Metrics() []NamedMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NamedMetrics, 0, len(r.entries))
	for name, e := range r.entries {
		e.mu.Lock()
		m := cloneMetrics(e.metrics)
		e.mu.Unlock()
		out = append(out, NamedMetrics{Name: name, Metrics: m})
	}
	return out
}

func cloneMetrics(m Metrics) Metrics {
	clone := m
	clone.ErrorCountByKind = make(map[string]uint64, len(m.ErrorCountByKind))
	for k, v := range m.ErrorCountByKind {
		clone.ErrorCountByKind[k] = v
	}
	return clone
}

// Definition returns a copy of a tool's definition regardless of its
// enabled state, for admin/config endpoints that need to read it without
// triggering ToolDisabled.
func (r *Registry) Definition(name string) (ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return ToolDefinition{}, fmt.Errorf("tool %q not found", name)
	}
	return e.def, nil
}
