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
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// DAXQueryGenerator compiles a DAX query spec into a handler that posts a
// single query against the dataset and returns its tabular result.
type DAXQueryGenerator struct {
	Client *http.Client
}

// NewDAXQueryGenerator returns a DAX query generator. A nil Client
// defaults to http.DefaultClient.
func NewDAXQueryGenerator(client *http.Client) *DAXQueryGenerator {
	if client == nil {
		client = http.DefaultClient
	}
	return &DAXQueryGenerator{Client: client}
}

func (g *DAXQueryGenerator) Validate(spec map[string]any) error {
	if _, err := requireString(spec, "name"); err != nil {
		return err
	}
	query, err := requireString(spec, "dax_query")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "EVALUATE") {
		return apierr.New(apierr.InvalidArgument, "dax_query must begin with EVALUATE")
	}
	for _, field := range []string{"dataset_id", "api_base_url", "token_url", "client_id", "client_secret"} {
		if _, err := requireString(spec, field); err != nil {
			return err
		}
	}
	return nil
}

func (g *DAXQueryGenerator) Render(spec map[string]any) (registry.ToolDefinition, registry.Handler, error) {
	def, err := baseDefinition(spec, registry.SourceDAXQuery)
	if err != nil {
		return registry.ToolDefinition{}, nil, err
	}

	dataset := stringField(spec, "dataset_id")
	apiBase := strings.TrimRight(stringField(spec, "api_base_url"), "/")
	query := stringField(spec, "dax_query")
	maxRows := intField(spec, "max_rows", 1000)

	tokens := newTokenCache(
		stringField(spec, "token_url"),
		stringField(spec, "client_id"),
		stringField(spec, "client_secret"),
		nil,
	)

	handler := registry.NewGenericHandler(registry.SourceDAXQuery, func(ctx context.Context, arguments map[string]any) (*registry.Result, error) {
		start := time.Now()
		tok, err := tokens.Token(ctx)
		if err != nil {
			return nil, apierr.Wrap(apierr.UpstreamFailure, "obtain dax query token", err)
		}

		payload, _ := json.Marshal(map[string]any{"query": query, "parameters": arguments})
		url := fmt.Sprintf("%s/datasets/%s/executeQueries", apiBase, dataset)
		resp, err := doAuthorizedRequest(ctx, g.Client, http.MethodPost, url, tok.AccessToken, payload)
		if err != nil {
			return nil, apierr.Wrap(apierr.UpstreamFailure, "execute dax query", err)
		}
		defer resp.Body.Close()

		var out struct {
			Columns []string `json:"columns"`
			Rows    [][]any  `json:"rows"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, apierr.Wrap(apierr.UpstreamFailure, "decode dax query response", err)
		}
		rows := out.Rows
		if len(rows) > maxRows {
			rows = rows[:maxRows]
		}

		return &registry.Result{Content: map[string]any{
			"row_count":         len(rows),
			"columns":           out.Columns,
			"data":              rows,
			"query_time_seconds": time.Since(start).Seconds(),
		}}, nil
	})

	return def, handler, nil
}
