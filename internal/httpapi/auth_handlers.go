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

	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth"
)

// tokenRequest is the JSON body of POST /api/auth/token, accepting any of
// the equivalent identifier fields (spec.md §6).
type tokenRequest struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	UID      string `json:"uid,omitempty"`
	UserName string `json:"user_name,omitempty"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	creds := auth.Credentials{
		UserID:   req.UserID,
		Username: firstNonEmpty(req.Username, req.UserName),
		UID:      req.UID,
		Password: req.Password,
	}
	sess, err := s.authMgr.AuthenticateBasic(creds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: sess.Token, TokenType: "Bearer"})
}

type validateResponse struct {
	Authenticated bool     `json:"authenticated"`
	PrincipalID   string   `json:"principal_id"`
	Roles         []string `json:"roles"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	principal, err := s.authMgr.ResolveRequest(r.Header)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Authenticated: true,
		PrincipalID:   principal.PrincipalID,
		Roles:         rolesOf(principal),
	})
}

func rolesOf(p *auth.Principal) []string {
	roles := make([]string, 0, len(p.Roles))
	for role, granted := range p.Roles {
		if granted {
			roles = append(roles, role)
		}
	}
	return roles
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
