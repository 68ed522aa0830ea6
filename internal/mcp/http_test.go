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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth"
)

type stubResolver struct {
	principal *auth.Principal
	err       error
}

func (s stubResolver) ResolveRequest(_ http.Header) (*auth.Principal, error) {
	return s.principal, s.err
}

func TestHTTPHandlerDispatchesInitialize(t *testing.T) {
	d, _ := newTestDispatcher(t)
	h := NewHTTPHandler(d, stubResolver{})

	body, _ := json.Marshal(Request{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "initialize"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
}

func TestHTTPHandlerRejectsNonPost(t *testing.T) {
	d, _ := newTestDispatcher(t)
	h := NewHTTPHandler(d, stubResolver{})

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPHandlerFramesMalformedJSON(t *testing.T) {
	d, _ := newTestDispatcher(t)
	h := NewHTTPHandler(d, stubResolver{})

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, apierr.JSONRPCParseError, resp.Error.Code)
}

func TestHTTPHandlerPassesResolvedPrincipalToCaller(t *testing.T) {
	d, _ := newTestDispatcher(t)
	principal := &auth.Principal{PrincipalID: "user-1"}
	h := NewHTTPHandler(d, stubResolver{principal: principal})

	params, _ := json.Marshal(ToolsCallParams{Name: "echo_tool", Arguments: map[string]any{}})
	body, _ := json.Marshal(Request{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "tools/call", Params: params})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
}
