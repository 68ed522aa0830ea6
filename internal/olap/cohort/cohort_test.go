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

package cohort

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
  orders:
    source_table: fact_orders
measures:
  order_count:
    expression: "COUNT(*)"
dimensions:
  customer_id:
    column: customer_id
  order_date:
    column: order_date
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

func TestBuildRequiresEntityAndCohortDimension(t *testing.T) {
	b := newTestBuilder(t)
	_, err := Build(b, Spec{Dataset: "orders"})
	require.Error(t, err)
}

func TestBuildCohortQuery(t *testing.T) {
	b := newTestBuilder(t)
	sql, err := Build(b, Spec{
		Dataset:         "orders",
		EntityDimension: "customer_id",
		CohortDimension: "order_date",
		Measures:        []string{"order_count"},
	})
	require.NoError(t, err)
	require.Contains(t, sql, "cohort_period")
	require.Contains(t, sql, "periods_since_cohort")
}

func TestBuildRetentionProducesPivotedMatrix(t *testing.T) {
	b := newTestBuilder(t)
	sql, err := BuildRetention(b, RetentionSpec{
		Spec:       Spec{Dataset: "orders", EntityDimension: "customer_id", CohortDimension: "order_date"},
		MaxPeriods: 6,
	})
	require.NoError(t, err)
	require.Contains(t, sql, "BETWEEN 0 AND 6")
	require.Contains(t, sql, "MAX(cohort_size) AS cohort_size")
	require.Contains(t, sql, "period_0_pct")
	require.Contains(t, sql, "period_6_pct")
	require.Contains(t, sql, "GROUP BY cohort_period\nORDER BY cohort_period")
}
