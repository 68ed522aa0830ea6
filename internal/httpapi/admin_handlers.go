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
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// --- Tool admin: enable/disable/delete ---

func (s *Server) handleToolEnable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.registry.Enable(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "enabled": true})
}

func (s *Server) handleToolDisable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.registry.Disable(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "enabled": false})
}

func (s *Server) handleToolDelete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.registry.Unregister(name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Tool admin: config document get/set, reload ---

func (s *Server) handleToolConfigGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	def, err := s.registry.Definition(name)
	if err != nil {
		writeError(w, apierr.Newf(apierr.ToolNotFound, "tool %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// handleToolConfigSet persists a tool configuration document (spec.md §6's
// "one file per tool" format) and, when a HandlerFactory is configured,
// instantiates and (re-)registers the tool immediately.
func (s *Server) handleToolConfigSet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var doc registry.Document
	if err := decodeJSON(r, &doc); err != nil {
		writeError(w, err)
		return
	}
	doc.Name = name

	if s.configDir != "" {
		raw, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			writeError(w, apierr.Wrap(apierr.Internal, "marshaling tool config", err))
			return
		}
		path := filepath.Join(s.configDir, name+".json")
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			writeError(w, apierr.Wrap(apierr.Internal, "writing tool config", err))
			return
		}
	}

	if s.factory == nil {
		writeJSON(w, http.StatusAccepted, map[string]any{"name": name, "status": "saved, reload required"})
		return
	}

	def, handler, err := s.factory(doc)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = s.registry.Unregister(name)
	if err := s.registry.Register(def, handler); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "status": "applied"})
}

type reloadResponse struct {
	Errors []string `json:"errors,omitempty"`
}

// handleToolsReload triggers Registry.ReloadAll, whose failed tools are
// reported but not fatal (spec.md §4.1 ReloadAll invariant).
func (s *Server) handleToolsReload(w http.ResponseWriter, r *http.Request) {
	errs := s.registry.ReloadAll()
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	writeJSON(w, http.StatusOK, reloadResponse{Errors: msgs})
}

// --- API-key CRUD ---

type createAPIKeyRequest struct {
	PrincipalID     string             `json:"principal_id"`
	Roles           []string           `json:"roles,omitempty"`
	AllowedTools    []string           `json:"allowed_tools,omitempty"`
	AllowedPatterns []string           `json:"allowed_patterns,omitempty"`
	RateLimit       *auth.RateLimit    `json:"rate_limit,omitempty"`
}

type createAPIKeyResponse struct {
	Key     string       `json:"key"`
	Partial string       `json:"partial"`
	KeyID   string       `json:"key_id"`
}

func (s *Server) handleAPIKeyCreate(w http.ResponseWriter, r *http.Request) {
	var req createAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PrincipalID == "" {
		writeError(w, apierr.New(apierr.InvalidArgument, "\"principal_id\" is required"))
		return
	}

	roles := make(map[string]bool, len(req.Roles))
	for _, role := range req.Roles {
		roles[role] = true
	}
	allowedTools := make(map[string]bool, len(req.AllowedTools))
	for _, tool := range req.AllowedTools {
		allowedTools[tool] = true
	}
	patterns := make([]*regexp.Regexp, 0, len(req.AllowedPatterns))
	for _, p := range req.AllowedPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			writeError(w, apierr.Wrap(apierr.InvalidArgument, "compiling allowed_patterns entry", err))
			return
		}
		patterns = append(patterns, re)
	}

	principal := auth.Principal{
		PrincipalID:     req.PrincipalID,
		Kind:            auth.KindAPIKey,
		Roles:           roles,
		AllowedTools:    allowedTools,
		AllowedPatterns: patterns,
		ToolAccessMode:  auth.DeriveAccessMode(allowedTools, patterns),
		RateLimit:       req.RateLimit,
	}

	createdBy := ""
	if caller := principalFromContext(r.Context()); caller != nil {
		createdBy = caller.PrincipalID
	}

	fullKey, key, err := s.authMgr.CreateApiKey(principal, createdBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createAPIKeyResponse{Key: fullKey, Partial: key.Partial, KeyID: key.ID})
}

func (s *Server) handleAPIKeyGet(w http.ResponseWriter, r *http.Request) {
	partial := r.PathValue("partial")
	key, err := s.authMgr.FindApiKeyByPartial(partial)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

func (s *Server) handleAPIKeyDelete(w http.ResponseWriter, r *http.Request) {
	partial := r.PathValue("partial")
	key, err := s.authMgr.FindApiKeyByPartial(partial)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.authMgr.DeleteApiKey(key.Hash); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- User CRUD ---

type createUserRequest struct {
	Identifier      string          `json:"identifier"`
	Password        string          `json:"password"`
	Roles           []string        `json:"roles,omitempty"`
	AllowedTools    []string        `json:"allowed_tools,omitempty"`
	AllowedPatterns []string        `json:"allowed_patterns,omitempty"`
	RateLimit       *auth.RateLimit `json:"rate_limit,omitempty"`
}

func (s *Server) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeError(w, apierr.New(apierr.InvalidArgument, "\"identifier\" and \"password\" are required"))
		return
	}

	roles := make(map[string]bool, len(req.Roles))
	for _, role := range req.Roles {
		roles[role] = true
	}
	allowedTools := make(map[string]bool, len(req.AllowedTools))
	for _, tool := range req.AllowedTools {
		allowedTools[tool] = true
	}
	patterns := make([]*regexp.Regexp, 0, len(req.AllowedPatterns))
	for _, p := range req.AllowedPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			writeError(w, apierr.Wrap(apierr.InvalidArgument, "compiling allowed_patterns entry", err))
			return
		}
		patterns = append(patterns, re)
	}

	principal := auth.Principal{
		PrincipalID:     req.Identifier,
		Kind:            auth.KindUser,
		Roles:           roles,
		AllowedTools:    allowedTools,
		AllowedPatterns: patterns,
		ToolAccessMode:  auth.DeriveAccessMode(allowedTools, patterns),
		RateLimit:       req.RateLimit,
	}
	s.authMgr.PutUser(req.Identifier, req.Password, principal)
	writeJSON(w, http.StatusCreated, map[string]any{"identifier": req.Identifier, "created_at": time.Now()})
}
