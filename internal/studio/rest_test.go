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

package studio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRESTGeneratorValidateRejectsBadEndpoint(t *testing.T) {
	g := NewRESTGenerator()
	err := g.Validate(map[string]any{"name": "fetch_thing", "endpoint": "://bad"})
	require.Error(t, err)
}

func TestRESTGeneratorValidateRejectsBadFormat(t *testing.T) {
	g := NewRESTGenerator()
	err := g.Validate(map[string]any{"name": "fetch_thing", "endpoint": "http://example.com", "response_format": "yaml"})
	require.Error(t, err)
}

func TestRESTGeneratorRenderCallsEndpointAndDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/widgets", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	g := NewRESTGenerator()
	spec := map[string]any{
		"name":     "fetch_widgets",
		"endpoint": srv.URL + "/widgets",
		"method":   "GET",
	}
	require.NoError(t, g.Validate(spec))
	def, handler, err := g.Render(spec)
	require.NoError(t, err)
	require.Equal(t, "fetch_widgets", def.Name)

	result, err := handler.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"ok": true}, result.Content)
}

func TestRESTGeneratorRenderPropagatesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewRESTGenerator()
	spec := map[string]any{"name": "fetch_widgets", "endpoint": srv.URL}
	_, handler, err := g.Render(spec)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), nil)
	require.Error(t, err)
}

func TestRESTOutboundLimiterUnsetWhenNoRateConfigured(t *testing.T) {
	require.Nil(t, restOutboundLimiter(map[string]any{"name": "fetch_widgets"}))
}

func TestRESTOutboundLimiterConfiguredFromSpec(t *testing.T) {
	limiter := restOutboundLimiter(map[string]any{"rate_limit_per_second": 5.0, "rate_limit_burst": 2})
	require.NotNil(t, limiter)
	require.Equal(t, 2, limiter.Burst())
}

func TestRESTGeneratorRenderHonorsRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	g := NewRESTGenerator()
	spec := map[string]any{
		"name":                  "fetch_widgets",
		"endpoint":              srv.URL,
		"rate_limit_per_second": 1000.0,
		"rate_limit_burst":      5,
	}
	require.NoError(t, g.Validate(spec))
	_, handler, err := g.Render(spec)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
