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
	"context"
	"net/http"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth"
)

type principalCtxKey struct{}

func withPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// principalFromContext returns the principal resolved by requireAuth, if
// any middleware ran first.
func principalFromContext(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*auth.Principal)
	return p
}

// requireAuth resolves the caller's principal from X-API-Key or a bearer
// token (spec.md §4.3) before invoking next, rejecting with 401 otherwise.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.authMgr.ResolveRequest(r.Header)
		if err != nil {
			writeError(w, err)
			return
		}
		r = r.WithContext(withPrincipal(r.Context(), principal))
		next(w, r)
	}
}

// requireAdmin layers the "admin" role requirement of spec.md §6 on top of
// requireAuth.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		principal := principalFromContext(r.Context())
		if !principal.IsAdmin() {
			writeError(w, apierr.New(apierr.AccessDenied, "admin role required"))
			return
		}
		next(w, r)
	})
}
