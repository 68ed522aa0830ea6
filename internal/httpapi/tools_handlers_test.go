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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

type recordingHandler struct{ result *registry.Result }

func (h *recordingHandler) Execute(ctx context.Context, arguments map[string]any) (*registry.Result, error) {
	return h.result, nil
}

func authedRequest(method, path string, body []byte, key string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-API-Key", key)
	return req
}

func TestHandleExecuteRunsThroughCaller(t *testing.T) {
	mgr := auth.New(logr.Discard(), []byte("secret"))
	_, key, err := mgr.CreateApiKey(auth.Principal{
		PrincipalID:    "svc",
		ToolAccessMode: auth.AccessAllowAll,
		AllowedTools:   map[string]bool{"*": true},
	}, "admin")
	require.NoError(t, err)
	_ = key

	fullKey, _, err := mgr.CreateApiKey(auth.Principal{
		PrincipalID:    "svc2",
		ToolAccessMode: auth.AccessAllowAll,
		AllowedTools:   map[string]bool{"*": true},
	}, "admin")
	require.NoError(t, err)

	reg := registry.New(logr.Discard())
	caller := &stubCaller{result: &registry.Result{Content: map[string]any{"ok": true}}}
	srv := New(logr.Discard(), mgr, caller, reg, nil, "", nil)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	body, _ := json.Marshal(executeRequest{Tool: "ping", Arguments: map[string]any{"a": 1}})
	req := authedRequest(http.MethodPost, "/api/tools/execute", body, fullKey)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleExecuteRequiresToolName(t *testing.T) {
	mgr := auth.New(logr.Discard(), []byte("secret"))
	fullKey, _, err := mgr.CreateApiKey(auth.Principal{PrincipalID: "svc", ToolAccessMode: auth.AccessAllowAll, AllowedTools: map[string]bool{"*": true}}, "admin")
	require.NoError(t, err)

	reg := registry.New(logr.Discard())
	srv := New(logr.Discard(), mgr, &stubCaller{}, reg, nil, "", nil)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	body, _ := json.Marshal(executeRequest{})
	req := authedRequest(http.MethodPost, "/api/tools/execute", body, fullKey)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListToolsFiltersByAccess(t *testing.T) {
	mgr := auth.New(logr.Discard(), []byte("secret"))
	fullKey, _, err := mgr.CreateApiKey(auth.Principal{
		PrincipalID:    "svc",
		ToolAccessMode: auth.AccessAllowListed,
		AllowedTools:   map[string]bool{"visible_tool": true},
	}, "admin")
	require.NoError(t, err)

	reg := registry.New(logr.Discard())
	require.NoError(t, reg.Register(registry.ToolDefinition{Name: "visible_tool", Enabled: true}, &recordingHandler{}))
	require.NoError(t, reg.Register(registry.ToolDefinition{Name: "hidden_tool", Enabled: true}, &recordingHandler{}))

	srv := New(logr.Discard(), mgr, &stubCaller{}, reg, nil, "", nil)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := authedRequest(http.MethodGet, "/api/tools/list", nil, fullKey)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp toolsListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tools, 1)
	require.Equal(t, "visible_tool", resp.Tools[0].Name)
}

func TestHandleToolSchemaReturnsDefinition(t *testing.T) {
	mgr := auth.New(logr.Discard(), []byte("secret"))
	fullKey, _, err := mgr.CreateApiKey(auth.Principal{PrincipalID: "svc", ToolAccessMode: auth.AccessAllowAll, AllowedTools: map[string]bool{"*": true}}, "admin")
	require.NoError(t, err)

	reg := registry.New(logr.Discard())
	require.NoError(t, reg.Register(registry.ToolDefinition{
		Name:        "search_docs",
		Description: "search",
		InputSchema: map[string]any{"type": "object"},
	}, &recordingHandler{}))

	srv := New(logr.Discard(), mgr, &stubCaller{}, reg, nil, "", nil)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := authedRequest(http.MethodGet, "/api/tools/search_docs/schema", nil, fullKey)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp schemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "search_docs", resp.Name)
}

func TestHandleToolSchemaRejectsUnauthorizedTool(t *testing.T) {
	mgr := auth.New(logr.Discard(), []byte("secret"))
	fullKey, _, err := mgr.CreateApiKey(auth.Principal{
		PrincipalID:    "svc",
		ToolAccessMode: auth.AccessAllowListed,
		AllowedTools:   map[string]bool{"other_tool": true},
	}, "admin")
	require.NoError(t, err)

	reg := registry.New(logr.Discard())
	require.NoError(t, reg.Register(registry.ToolDefinition{Name: "search_docs", Enabled: true}, &recordingHandler{}))

	srv := New(logr.Discard(), mgr, &stubCaller{}, reg, nil, "", nil)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := authedRequest(http.MethodGet, "/api/tools/search_docs/schema", nil, fullKey)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}
