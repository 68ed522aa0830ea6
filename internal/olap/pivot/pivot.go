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

// Package pivot builds pivot-table SQL: rows, an optional pivoted column
// dimension, and one or more aggregated value measures, using plain CTEs
// and GROUP BY rather than engine-specific PIVOT syntax. A column
// dimension yields long-format rows (one per row-dimensions/column-value
// combination); values are not spread into one SQL column per value.
package pivot

import (
	"fmt"
	"strings"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/engine"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/query"
)

// Spec describes one pivot query.
type Spec struct {
	Dataset          string
	Rows             []string
	Columns          []string
	Values           []string // measure names
	Filters          []query.FilterSpec
	Sort             []query.SortSpec
	Limit            int
	IncludeSubtotals bool
	IncludeTotals    bool
}

// Build renders the pivot SQL for spec using b to resolve dataset/
// dimension/measure names. With a column dimension it emits a CTE chain:
// base, the distinct values of the pivot column, then the rows-by-column
// aggregation; without one it reduces to a plain GROUP BY over rows.
func Build(b *query.Builder, spec Spec) (string, error) {
	if _, ok := b.Semantic().Dataset(spec.Dataset); !ok {
		return "", apierr.Newf(apierr.InvalidArgument, "dataset %q not found", spec.Dataset)
	}
	base, err := b.BuildBaseQuery(spec.Dataset, spec.Filters)
	if err != nil {
		return "", err
	}

	rowExprs := aliasedExprs(b.ResolveDimensionExprs(spec.Rows), spec.Rows)
	valueExprs := b.ResolveMeasureExprs(spec.Values)

	var sql strings.Builder
	fmt.Fprintf(&sql, "WITH base AS (\n%s\n)", base)

	if len(spec.Columns) == 0 {
		fmt.Fprint(&sql, "\n")
		selectList := append(append([]string{}, rowExprs...), valueExprs...)
		fmt.Fprintf(&sql, "SELECT %s\nFROM base", strings.Join(selectList, ", "))
		if len(rowExprs) > 0 {
			if spec.IncludeSubtotals {
				fmt.Fprintf(&sql, "\nGROUP BY ROLLUP (%s)", strings.Join(spec.Rows, ", "))
			} else {
				fmt.Fprintf(&sql, "\nGROUP BY %s", strings.Join(spec.Rows, ", "))
			}
		}
	} else {
		// Pivoted: enumerate the distinct values of the column
		// dimension, aggregate by (rows x column), and project the
		// aggregated CTE as the final long-format result: one row per
		// row-dimensions/column-value combination.
		colDim := spec.Columns[0]
		colExpr := b.Semantic().ResolveDimension(colDim, "", "")
		fmt.Fprintf(&sql, ",\npivot_values AS (\nSELECT DISTINCT %s AS %s\nFROM base\nWHERE %s IS NOT NULL\nORDER BY %s\n)",
			colExpr, colDim, colExpr, colDim)

		aggSelect := append(append([]string{}, rowExprs...), fmt.Sprintf("%s AS %s", colExpr, colDim))
		aggSelect = append(aggSelect, valueExprs...)
		groupBy := append(append([]string{}, spec.Rows...), colDim)
		fmt.Fprintf(&sql, ",\naggregated AS (\nSELECT %s\nFROM base\nGROUP BY %s\n)",
			strings.Join(aggSelect, ", "), strings.Join(groupBy, ", "))

		finalSelect := append(append([]string{}, spec.Rows...), colDim)
		finalSelect = append(finalSelect, spec.Values...)
		fmt.Fprintf(&sql, "\nSELECT %s\nFROM aggregated", strings.Join(finalSelect, ", "))
	}

	if len(spec.Sort) > 0 {
		orderBy := make([]string, len(spec.Sort))
		for i, s := range spec.Sort {
			orderBy[i] = s.ToSQL()
		}
		fmt.Fprintf(&sql, "\nORDER BY %s", strings.Join(orderBy, ", "))
	}
	if spec.Limit > 0 {
		fmt.Fprintf(&sql, "\nLIMIT %d", spec.Limit)
	}

	return sql.String(), nil
}

// aliasedExprs pairs resolved dimension expressions with their dimension
// names, e.g. "region_code" and "region" become "region_code AS region",
// so later GROUP BY/ORDER BY clauses can refer to the dimension name
// regardless of the underlying column it resolves to.
func aliasedExprs(exprs, names []string) []string {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = fmt.Sprintf("%s AS %s", e, names[i])
	}
	return out
}

// AppendTotals appends a grand-totals row to rs when spec.IncludeTotals is
// set. This mirrors the executor-side step the pivot engine this package
// is grounded on performs after fetching results, since the aggregate is
// computed across already-materialized rows rather than by the query
// itself: every dimension position in the totals row carries the literal
// string "TOTAL", and every measure column carries the aggregate of that
// column's values across all result rows, using the same aggregation
// function (SUM/AVG/COUNT/MIN/MAX) the measure itself resolves to.
func AppendTotals(b *query.Builder, spec Spec, rs *engine.ResultSet) *engine.ResultSet {
	if !spec.IncludeTotals || len(rs.Rows) == 0 {
		return rs
	}

	dimCols := len(spec.Rows)
	if len(spec.Columns) > 0 {
		dimCols++
	}

	totals := make([]any, len(rs.Columns))
	for i := 0; i < dimCols && i < len(totals); i++ {
		totals[i] = "TOTAL"
	}
	for i, measure := range spec.Values {
		col := dimCols + i
		if col >= len(totals) {
			break
		}
		agg := aggregationOf(b.Semantic().ResolveMeasure(measure, ""))
		totals[col] = aggregateColumn(rs.Rows, col, agg)
	}

	rs.Rows = append(rs.Rows, totals)
	return rs
}

// aggregationOf extracts the leading aggregation function name from a
// resolved measure expression such as "SUM(net_amount)", defaulting to
// SUM when the expression isn't a recognized aggregate call.
func aggregationOf(expr string) string {
	upper := strings.ToUpper(expr)
	for _, agg := range []string{"SUM", "AVG", "COUNT", "MIN", "MAX"} {
		if strings.HasPrefix(upper, agg+"(") {
			return agg
		}
	}
	return "SUM"
}

func aggregateColumn(rows [][]any, col int, agg string) any {
	var sum, min, max float64
	var count int
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v, ok := toFloat64(row[col])
		if !ok {
			continue
		}
		if count == 0 || v < min {
			min = v
		}
		if count == 0 || v > max {
			max = v
		}
		sum += v
		count++
	}
	if count == 0 {
		return nil
	}
	switch agg {
	case "AVG":
		return sum / float64(count)
	case "COUNT":
		return float64(count)
	case "MIN":
		return min
	case "MAX":
		return max
	default:
		return sum
	}
}

func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
