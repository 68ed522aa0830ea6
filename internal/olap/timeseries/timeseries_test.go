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

package timeseries

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/query"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/semantic"
)

const testConfig = `
datasets:
  sales:
    source_table: fact_sales
measures:
  revenue:
    expression: "SUM(amount)"
dimensions:
  order_date:
    column: order_date
  channel:
    column: channel_code
`

func newTestBuilder(t *testing.T) *query.Builder {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "semantic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	layer := semantic.New(logr.Discard())
	require.NoError(t, layer.LoadFile(path))
	return query.NewBuilder(layer)
}

func TestBuildRequiresTimeDimension(t *testing.T) {
	b := newTestBuilder(t)
	_, err := Build(b, Spec{Dataset: "sales"})
	require.Error(t, err)
}

func TestBuildDefaultsToDailyGrain(t *testing.T) {
	b := newTestBuilder(t)
	sql, err := Build(b, Spec{Dataset: "sales", TimeDimension: "order_date", Measures: []string{"revenue"}})
	require.NoError(t, err)
	require.Contains(t, sql, "DATE_TRUNC('day', order_date)")
	require.Contains(t, sql, "ORDER BY bucket")
}

func TestBuildGapFillGeneratesSpine(t *testing.T) {
	b := newTestBuilder(t)
	sql, err := Build(b, Spec{Dataset: "sales", TimeDimension: "order_date", Grain: GrainMonth, GapFill: true})
	require.NoError(t, err)
	require.Contains(t, sql, "generate_series")
	require.Contains(t, sql, "LEFT JOIN aggregated")
}

func TestBuildGapFillSkippedWithAdditionalDimensions(t *testing.T) {
	b := newTestBuilder(t)
	sql, err := Build(b, Spec{Dataset: "sales", TimeDimension: "order_date", GapFill: true, GroupBy: []string{"channel"}})
	require.NoError(t, err)
	require.Contains(t, sql, "SELECT * FROM aggregated ORDER BY bucket")
}

func TestBuildYearOverYearComparisonAddsPctChange(t *testing.T) {
	b := newTestBuilder(t)
	sql, err := Build(b, Spec{
		Dataset:       "sales",
		TimeDimension: "order_date",
		Grain:         GrainMonth,
		Measures:      []string{"revenue"},
		Comparison:    ComparisonYoY,
	})
	require.NoError(t, err)
	require.Contains(t, sql, "previous_period AS (\nSELECT bucket + INTERVAL 1 YEAR AS bucket")
	require.Contains(t, sql, "previous_revenue")
	require.Contains(t, sql, "revenue_pct_change")
	require.Contains(t, sql, "NULLIF(p.revenue, 0)")
}
