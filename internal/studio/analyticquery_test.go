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
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/engine"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/query"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/semantic"
)

const testSemanticConfig = `
datasets:
  orders:
    display_name: Orders
    description: Orders fact table
    source_table: orders
    dimensions: [region, order_date]
    measures: [revenue]
measures:
  revenue:
    expression: "SUM(amount)"
dimensions:
  region:
    column: region
  order_date:
    column: order_date
`

func testSemanticLayer(t *testing.T) *semantic.Layer {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "semantic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSemanticConfig), 0o644))

	layer := semantic.New(logr.Discard())
	require.NoError(t, layer.LoadFile(path))
	return layer
}

func TestAnalyticQueryGeneratorValidateRejectsUnknownOperation(t *testing.T) {
	gen := NewAnalyticQueryGenerator(testSemanticLayer(t), engine.NewMemExecutor())
	err := gen.Validate(map[string]any{"name": "orders_report", "dataset": "orders", "operation": "teleport"})
	require.Error(t, err)
}

func TestAnalyticQueryGeneratorValidateRequiresDataset(t *testing.T) {
	gen := NewAnalyticQueryGenerator(testSemanticLayer(t), engine.NewMemExecutor())
	err := gen.Validate(map[string]any{"name": "orders_report", "operation": "pivot"})
	require.Error(t, err)
}

func TestAnalyticQueryGeneratorPivotExecutes(t *testing.T) {
	gen := NewAnalyticQueryGenerator(testSemanticLayer(t), engine.NewMemExecutor())

	spec := map[string]any{"name": "orders_pivot", "dataset": "orders", "operation": "pivot"}
	require.NoError(t, gen.Validate(spec))
	def, handler, err := gen.Render(spec)
	require.NoError(t, err)
	require.Equal(t, "orders_pivot", def.Name)

	result, err := handler.Execute(context.Background(), map[string]any{"rows": []any{"region"}, "values": []any{"revenue"}})
	require.NoError(t, err)
	require.Equal(t, "pivot", result.Content.(map[string]any)["operation"])
}

func TestAnalyticQueryGeneratorTimeseriesRequiresTimeDimension(t *testing.T) {
	gen := NewAnalyticQueryGenerator(testSemanticLayer(t), engine.NewMemExecutor())

	spec := map[string]any{"name": "orders_trend", "dataset": "orders", "operation": "timeseries"}
	require.NoError(t, gen.Validate(spec))
	_, handler, err := gen.Render(spec)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestAnalyticQueryGeneratorRejectsUnknownOperationAtBuildTime(t *testing.T) {
	gen := NewAnalyticQueryGenerator(testSemanticLayer(t), engine.NewMemExecutor())
	_, _, err := gen.buildSQL(nil, "not_real", "orders", nil)
	require.Error(t, err)
}

func TestAnalyticQueryGeneratorPivotAppendsTotalsRow(t *testing.T) {
	exec := engine.NewMemExecutor()
	gen := NewAnalyticQueryGenerator(testSemanticLayer(t), exec)

	spec := map[string]any{"name": "orders_pivot_totals", "dataset": "orders", "operation": "pivot"}
	require.NoError(t, gen.Validate(spec))
	_, handler, err := gen.Render(spec)
	require.NoError(t, err)

	args := map[string]any{"rows": []any{"region"}, "values": []any{"revenue"}, "include_totals": true}
	sqlText, _, err := gen.buildSQL(query.NewBuilder(gen.Semantic), "pivot", "orders", args)
	require.NoError(t, err)
	exec.Stub(sqlText, &engine.ResultSet{
		Columns: []string{"region", "revenue"},
		Rows: [][]any{
			{"east", float64(100)},
			{"west", float64(200)},
		},
	})

	result, err := handler.Execute(context.Background(), args)
	require.NoError(t, err)
	rows := result.Content.(map[string]any)["rows"].([][]any)
	require.Len(t, rows, 3)
	require.Equal(t, "TOTAL", rows[2][0])
	require.Equal(t, float64(300), rows[2][1])
}
