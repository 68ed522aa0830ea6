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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/engine"
)

func TestSQLQueryGeneratorRejectsForbiddenKeywords(t *testing.T) {
	g := NewSQLQueryGenerator(engine.NewMemExecutor())
	err := g.Validate(map[string]any{"name": "purge", "sql_template": "DELETE FROM orders"})
	require.Error(t, err)
}

func TestSQLQueryGeneratorRejectsUnknownDBKind(t *testing.T) {
	g := NewSQLQueryGenerator(engine.NewMemExecutor())
	err := g.Validate(map[string]any{"name": "q", "sql_template": "SELECT 1", "db_kind": "oracle"})
	require.Error(t, err)
}

func TestSQLQueryGeneratorSubstitutesParametersAndExecutes(t *testing.T) {
	exec := engine.NewMemExecutor()
	exec.Stub("SELECT * FROM orders WHERE region = 'east' AND qty > 5",
		&engine.ResultSet{Columns: []string{"id"}, Rows: [][]any{{1}, {2}}})

	g := NewSQLQueryGenerator(exec)
	spec := map[string]any{
		"name":         "orders_by_region",
		"sql_template": "SELECT * FROM orders WHERE region = {{region}} AND qty > {{min_qty}}",
		"parameters": []any{
			map[string]any{"name": "region", "type": "string", "required": true},
			map[string]any{"name": "min_qty", "type": "integer", "required": true},
		},
	}
	require.NoError(t, g.Validate(spec))
	_, handler, err := g.Render(spec)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), map[string]any{"region": "east", "min_qty": 5})
	require.NoError(t, err)
	content := result.Content.(map[string]any)
	require.Equal(t, 2, content["row_count"])
}

func TestSQLQueryGeneratorMissingRequiredParameter(t *testing.T) {
	exec := engine.NewMemExecutor()
	g := NewSQLQueryGenerator(exec)
	spec := map[string]any{
		"name":         "orders_by_region",
		"sql_template": "SELECT * FROM orders WHERE region = {{region}}",
		"parameters":   []any{map[string]any{"name": "region", "type": "string", "required": true}},
	}
	_, handler, err := g.Render(spec)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
}
