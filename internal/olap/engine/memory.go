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

package engine

import (
	"context"
	"sync"
)

// MemExecutor is an in-memory stand-in for Executor, used in tests and in
// local development without a warehouse connection. Callers register
// canned results keyed by exact query string.
type MemExecutor struct {
	mu      sync.RWMutex
	results map[string]*ResultSet
	closed  bool
}

// NewMemExecutor returns an empty MemExecutor.
func NewMemExecutor() *MemExecutor {
	return &MemExecutor{results: make(map[string]*ResultSet)}
}

// Stub registers the ResultSet to return for an exact query string match.
func (m *MemExecutor) Stub(query string, rs *ResultSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[query] = rs
}

// Execute returns the stubbed ResultSet for query, or an empty ResultSet
// if none was registered.
func (m *MemExecutor) Execute(_ context.Context, query string) (*ResultSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rs, ok := m.results[query]; ok {
		return rs, nil
	}
	return &ResultSet{}, nil
}

// Ping always succeeds for MemExecutor.
func (m *MemExecutor) Ping(_ context.Context) error {
	return nil
}

// Close marks the executor closed; idempotent.
func (m *MemExecutor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MemExecutor) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
