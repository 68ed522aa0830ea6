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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/engine"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/semantic"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
	"github.com/ajsinha/sajhamcpserver-sub001/pkg/logging"
)

func testGenerators(t *testing.T) *Generators {
	t.Helper()
	log, _, err := logging.NewLogger()
	require.NoError(t, err)
	return NewGenerators(nil, engine.NewMemExecutor(), semantic.New(log))
}

func TestFactoryDispatchesToRESTGenerator(t *testing.T) {
	srv := httptest.NewServer(nil)
	defer srv.Close()

	gens := testGenerators(t)
	factory := gens.Factory()

	meta, err := json.Marshal(map[string]any{"source": "rest", "endpoint": srv.URL})
	require.NoError(t, err)

	def, handler, err := factory(registry.Document{Name: "ping_service", Enabled: true, Metadata: meta})
	require.NoError(t, err)
	require.Equal(t, "ping_service", def.Name)
	require.NotNil(t, handler)
}

func TestFactoryRejectsUnknownSourceKind(t *testing.T) {
	gens := testGenerators(t)
	factory := gens.Factory()

	meta, _ := json.Marshal(map[string]any{"source": "carrier_pigeon"})
	_, _, err := factory(registry.Document{Name: "mystery", Metadata: meta})
	require.Error(t, err)
}

func TestFactoryPropagatesValidationError(t *testing.T) {
	gens := testGenerators(t)
	factory := gens.Factory()

	meta, _ := json.Marshal(map[string]any{"source": "rest", "endpoint": "://not-a-url"})
	_, _, err := factory(registry.Document{Name: "bad", Metadata: meta})
	require.Error(t, err)
}

func TestFactoryDispatchesToAnalyticQueryGenerator(t *testing.T) {
	gens := testGenerators(t)
	factory := gens.Factory()

	meta, err := json.Marshal(map[string]any{"source": "analytic_query", "dataset": "orders", "operation": "pivot"})
	require.NoError(t, err)

	def, handler, err := factory(registry.Document{Name: "orders_pivot", Enabled: true, Metadata: meta})
	require.NoError(t, err)
	require.Equal(t, "orders_pivot", def.Name)
	require.NotNil(t, handler)
}

func TestFactoryDispatchesToDAXQueryGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"columns": []string{"region"},
				"rows":    [][]any{{"east"}},
			})
		}
	}))
	defer srv.Close()

	log, _, err := logging.NewLogger()
	require.NoError(t, err)
	gens := NewGenerators(srv.Client(), engine.NewMemExecutor(), semantic.New(log))
	factory := gens.Factory()

	meta, err := json.Marshal(map[string]any{
		"source": "dax_query", "dax_query": "EVALUATE Sales",
		"dataset_id": "d", "api_base_url": srv.URL, "token_url": srv.URL + "/token",
		"client_id": "c", "client_secret": "s",
	})
	require.NoError(t, err)

	def, handler, err := factory(registry.Document{Name: "sales_eval", Enabled: true, Metadata: meta})
	require.NoError(t, err)
	require.Equal(t, "sales_eval", def.Name)
	require.NotNil(t, handler)
}
