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
	"encoding/json"
	"io"
	"net/http"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth"
)

// PrincipalResolver resolves the caller's Principal from inbound request
// headers, satisfied by *auth.Manager.ResolveRequest.
type PrincipalResolver interface {
	ResolveRequest(h http.Header) (*auth.Principal, error)
}

// HTTPHandler exposes Dispatcher as the single JSON-RPC 2.0 POST endpoint
// of spec.md §6 ("MCP over HTTP POST at a single endpoint"). Authentication
// follows the same `Authorization: Bearer` / `X-API-Key` contract as the
// REST surface; an unresolved principal is not itself an error here since
// some methods (initialize, tools/list before filtering) are intentionally
// open, but tools/call enforces authorization inside the envelope.
type HTTPHandler struct {
	dispatcher *Dispatcher
	resolver   PrincipalResolver
}

// NewHTTPHandler creates an HTTPHandler.
func NewHTTPHandler(dispatcher *Dispatcher, resolver PrincipalResolver) *HTTPHandler {
	return &HTTPHandler{dispatcher: dispatcher, resolver: resolver}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeResponse(w, failure(nil, apierr.JSONRPCParseError, "reading request body: "+err.Error(), nil))
		return
	}
	defer func() { _ = r.Body.Close() }()

	req, errResp := DecodeRequest(body)
	if errResp != nil {
		writeResponse(w, *errResp)
		return
	}

	principal, _ := h.resolver.ResolveRequest(r.Header)
	resp := h.dispatcher.Dispatch(r.Context(), principal, req)
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
