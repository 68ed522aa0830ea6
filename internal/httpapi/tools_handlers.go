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

package httpapi

import (
	"net/http"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/access"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// executeRequest is the JSON body of POST /api/tools/execute (spec.md §6),
// carrying the same (tool, arguments) pair as an MCP tools/call.
type executeRequest struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Tool == "" {
		writeError(w, apierr.New(apierr.InvalidArgument, "\"tool\" is required"))
		return
	}

	principal := principalFromContext(r.Context())
	result, err := s.caller.Call(r.Context(), principal, req.Tool, req.Arguments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type toolsListResponse struct {
	Tools []registry.Summary `json:"tools"`
}

// handleListTools returns the tool list filtered to the caller's access,
// per spec.md §6 ("list filtered to principal's access").
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	principal := principalFromContext(r.Context())
	all := s.registry.List()
	visible := make([]registry.Summary, 0, len(all))
	for _, summary := range all {
		if access.Authorize(principal, summary.Name) {
			visible = append(visible, summary)
		}
	}
	writeJSON(w, http.StatusOK, toolsListResponse{Tools: visible})
}

type schemaResponse struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	InputSchema  map[string]any `json:"inputSchema,omitempty"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
}

func (s *Server) handleToolSchema(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	principal := principalFromContext(r.Context())
	if !access.Authorize(principal, name) {
		writeError(w, apierr.Newf(apierr.AccessDenied, "principal not authorized for tool %q", name))
		return
	}

	def, err := s.registry.Definition(name)
	if err != nil {
		writeError(w, apierr.Newf(apierr.ToolNotFound, "tool %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{
		Name:         def.Name,
		Description:  def.Description,
		InputSchema:  def.InputSchema,
		OutputSchema: def.OutputSchema,
	})
}
