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

// Package httpapi implements the REST surface that complements the MCP
// JSON-RPC endpoint (spec.md §6): token issuance and validation, tool
// execution/listing/schema lookup, and the admin surface for tools,
// API keys, and users.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// Caller executes one tool invocation through the envelope pipeline.
// Satisfied by *envelope.Envelope; narrowed so handlers are testable
// against a stub.
type Caller interface {
	Call(ctx context.Context, principal *auth.Principal, tool string, arguments map[string]any) (*registry.Result, error)
}

// Server wires AuthManager, AccessPolicy, the ToolRegistry, and the
// envelope pipeline behind the REST surface of spec.md §6.
type Server struct {
	log       logr.Logger
	authMgr   *auth.Manager
	caller    Caller
	registry  *registry.Registry
	metrics   *Metrics
	configDir string
	factory   registry.HandlerFactory
}

// New creates a Server. caller is typically *envelope.Envelope. configDir
// and factory back the admin tool-config endpoints (spec.md §6); factory
// may be nil if the admin config-mutation endpoints are not wired.
func New(log logr.Logger, authMgr *auth.Manager, caller Caller, reg *registry.Registry, metrics *Metrics, configDir string, factory registry.HandlerFactory) *Server {
	return &Server{
		log:       log.WithName("httpapi"),
		authMgr:   authMgr,
		caller:    caller,
		registry:  reg,
		metrics:   metrics,
		configDir: configDir,
		factory:   factory,
	}
}

// Handler returns the full REST surface, wrapped with request metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	if s.metrics == nil {
		return mux
	}
	return s.metrics.Middleware(mux)
}

// RegisterRoutes mounts every REST endpoint of spec.md §6 on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/token", s.handleToken)
	mux.HandleFunc("POST /api/auth/validate", s.handleValidate)

	mux.HandleFunc("POST /api/tools/execute", s.requireAuth(s.handleExecute))
	mux.HandleFunc("GET /api/tools/list", s.requireAuth(s.handleListTools))
	mux.HandleFunc("GET /api/tools/{name}/schema", s.requireAuth(s.handleToolSchema))

	mux.HandleFunc("POST /api/admin/tools/{name}/enable", s.requireAdmin(s.handleToolEnable))
	mux.HandleFunc("POST /api/admin/tools/{name}/disable", s.requireAdmin(s.handleToolDisable))
	mux.HandleFunc("DELETE /api/admin/tools/{name}/delete", s.requireAdmin(s.handleToolDelete))
	mux.HandleFunc("GET /api/admin/tools/{name}/config", s.requireAdmin(s.handleToolConfigGet))
	mux.HandleFunc("POST /api/admin/tools/{name}/config", s.requireAdmin(s.handleToolConfigSet))
	mux.HandleFunc("POST /api/admin/tools/reload", s.requireAdmin(s.handleToolsReload))

	mux.HandleFunc("POST /api/admin/apikeys", s.requireAdmin(s.handleAPIKeyCreate))
	mux.HandleFunc("GET /api/admin/apikeys/{partial}", s.requireAdmin(s.handleAPIKeyGet))
	mux.HandleFunc("DELETE /api/admin/apikeys/{partial}", s.requireAdmin(s.handleAPIKeyDelete))

	mux.HandleFunc("POST /api/admin/users", s.requireAdmin(s.handleUserCreate))
}
