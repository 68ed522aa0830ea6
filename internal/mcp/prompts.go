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

package mcp

import (
	"bytes"
	"sort"
	"sync"
	"text/template"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
)

// Prompt is a named, parameterized text template surfaced over
// prompts/list, prompts/get, and prompts/render.
type Prompt struct {
	Name        string
	Description string
	Arguments   []string
	Template    string
}

// PromptStore holds the server's registered prompts, guarded by a
// reader-writer lock in the same shape as the tool registry.
type PromptStore struct {
	mu      sync.RWMutex
	prompts map[string]Prompt
}

// NewPromptStore creates an empty PromptStore.
func NewPromptStore() *PromptStore {
	return &PromptStore{prompts: make(map[string]Prompt)}
}

// Register admits a prompt, replacing any existing one of the same name.
func (s *PromptStore) Register(p Prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[p.Name] = p
}

// Get resolves a prompt by name.
func (s *PromptStore) Get(name string) (Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[name]
	if !ok {
		return Prompt{}, apierr.Newf(apierr.ToolNotFound, "prompt %q not found", name)
	}
	return p, nil
}

// List returns every registered prompt's descriptor, sorted by name.
func (s *PromptStore) List() []PromptDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PromptDescriptor, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, PromptDescriptor{Name: p.Name, Description: p.Description, Arguments: p.Arguments})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Render fills in a prompt's Go text/template with arguments.
func (s *PromptStore) Render(name string, arguments map[string]any) (string, error) {
	p, err := s.Get(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(p.Template)
	if err != nil {
		return "", apierr.Wrap(apierr.Internal, "parsing prompt template", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, arguments); err != nil {
		return "", apierr.Wrap(apierr.InvalidArgument, "rendering prompt", err)
	}
	return buf.String(), nil
}
