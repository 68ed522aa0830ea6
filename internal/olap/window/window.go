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

// Package window builds SQL window-function queries: running and moving
// aggregates, rankings, lag/lead comparisons, and percent-of/difference
// calculations over a partitioned, ordered base query.
package window

import (
	"fmt"
	"strings"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/query"
)

// Calculation is one window function to project, e.g. {Kind: "rank",
// Measure: "revenue"}. Frame configures the preceding-rows window for
// moving_average/moving_sum (default 3, matching the window_size
// default). Offset and Default configure lag/lead. Buckets configures
// ntile (default 4).
type Calculation struct {
	Kind    string
	Measure string
	Alias   string
	Frame   int
	Offset  int
	Default any
	Buckets int
}

// Spec describes one window-function query.
type Spec struct {
	Dataset      string
	PartitionBy  []string
	OrderBy      []query.SortSpec
	Calculations []Calculation
	Filters      []query.FilterSpec
	Limit        int
}

// Build renders the window SQL for spec: one CTE wraps the dataset's
// filtered base query without aggregating it, and the outer SELECT adds
// every configured window expression to the base columns.
func Build(b *query.Builder, spec Spec) (string, error) {
	base, err := b.BuildBaseQuery(spec.Dataset, spec.Filters)
	if err != nil {
		return "", err
	}

	partition, orderBy := windowClauseParts(b, spec)

	selectList := append([]string{}, "*")
	for _, c := range spec.Calculations {
		expr, err := renderCalculation(b, c, partition, orderBy)
		if err != nil {
			return "", err
		}
		alias := c.Alias
		if alias == "" {
			alias = c.Kind
			if c.Measure != "" {
				alias = c.Kind + "_" + c.Measure
			}
		}
		selectList = append(selectList, fmt.Sprintf("%s AS %s", expr, alias))
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, "WITH base AS (\n%s\n)\n", base)
	fmt.Fprintf(&sql, "SELECT %s\nFROM base", strings.Join(selectList, ", "))
	if spec.Limit > 0 {
		fmt.Fprintf(&sql, "\nLIMIT %d", spec.Limit)
	}
	return sql.String(), nil
}

func windowClauseParts(b *query.Builder, spec Spec) (partition, orderBy string) {
	if len(spec.PartitionBy) > 0 {
		partition = "PARTITION BY " + strings.Join(b.ResolveDimensionExprs(spec.PartitionBy), ", ")
	}
	if len(spec.OrderBy) > 0 {
		parts := make([]string, len(spec.OrderBy))
		for i, s := range spec.OrderBy {
			parts[i] = s.ToSQL()
		}
		orderBy = "ORDER BY " + strings.Join(parts, ", ")
	}
	return partition, orderBy
}

// over joins the non-empty clause parts into a parenthesized OVER(...)
// clause, e.g. over(partition, orderBy) or over(partition) alone for
// calculations that window over a partition only.
func over(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return "(" + strings.Join(nonEmpty, " ") + ")"
}

func renderCalculation(b *query.Builder, c Calculation, partition, orderBy string) (string, error) {
	m := c.Measure
	if m != "" {
		m = b.Semantic().ResolveMeasure(c.Measure, "")
	}
	frame := frameOrDefault(c.Frame) - 1 // PRECEDING is exclusive of the current row
	if frame < 0 {
		frame = 0
	}
	offset := c.Offset
	if offset <= 0 {
		offset = 1
	}
	buckets := c.Buckets
	if buckets <= 0 {
		buckets = 4
	}
	def := "NULL"
	if c.Default != nil {
		def = formatDefault(c.Default)
	}

	switch c.Kind {
	case "running_total":
		return fmt.Sprintf("SUM(%s) OVER %s", m, over(partition, orderBy, "ROWS UNBOUNDED PRECEDING")), nil
	case "running_average":
		return fmt.Sprintf("AVG(%s) OVER %s", m, over(partition, orderBy, "ROWS UNBOUNDED PRECEDING")), nil
	case "running_count":
		return fmt.Sprintf("COUNT(%s) OVER %s", m, over(partition, orderBy, "ROWS UNBOUNDED PRECEDING")), nil
	case "running_min":
		return fmt.Sprintf("MIN(%s) OVER %s", m, over(partition, orderBy, "ROWS UNBOUNDED PRECEDING")), nil
	case "running_max":
		return fmt.Sprintf("MAX(%s) OVER %s", m, over(partition, orderBy, "ROWS UNBOUNDED PRECEDING")), nil
	case "moving_average":
		return fmt.Sprintf("AVG(%s) OVER %s", m, over(partition, orderBy, fmt.Sprintf("ROWS BETWEEN %d PRECEDING AND CURRENT ROW", frame))), nil
	case "moving_sum":
		return fmt.Sprintf("SUM(%s) OVER %s", m, over(partition, orderBy, fmt.Sprintf("ROWS BETWEEN %d PRECEDING AND CURRENT ROW", frame))), nil
	case "rank":
		return fmt.Sprintf("RANK() OVER %s", over(partition, orderBy)), nil
	case "dense_rank":
		return fmt.Sprintf("DENSE_RANK() OVER %s", over(partition, orderBy)), nil
	case "row_number":
		return fmt.Sprintf("ROW_NUMBER() OVER %s", over(partition, orderBy)), nil
	case "percent_rank":
		return fmt.Sprintf("ROUND(PERCENT_RANK() OVER %s * 100, 2)", over(partition, orderBy)), nil
	case "ntile":
		return fmt.Sprintf("NTILE(%d) OVER %s", buckets, over(partition, orderBy)), nil
	case "cume_dist":
		return fmt.Sprintf("ROUND(CUME_DIST() OVER %s * 100, 2)", over(partition, orderBy)), nil
	case "lag":
		return fmt.Sprintf("LAG(%s, %d, %s) OVER %s", m, offset, def, over(partition, orderBy)), nil
	case "lead":
		return fmt.Sprintf("LEAD(%s, %d, %s) OVER %s", m, offset, def, over(partition, orderBy)), nil
	case "first_value":
		return fmt.Sprintf("FIRST_VALUE(%s) OVER %s", m, over(partition, orderBy)), nil
	case "last_value":
		return fmt.Sprintf("LAST_VALUE(%s) OVER %s", m, over(partition, orderBy, "ROWS BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING")), nil
	case "percent_of_total":
		return fmt.Sprintf("ROUND(100.0 * %s / NULLIF(SUM(%s) OVER (), 0), 2)", m, m), nil
	case "percent_of_partition":
		return fmt.Sprintf("ROUND(100.0 * %s / NULLIF(SUM(%s) OVER %s, 0), 2)", m, m, over(partition)), nil
	case "difference_from_previous":
		return fmt.Sprintf("%s - LAG(%s, 1, 0) OVER %s", m, m, over(partition, orderBy)), nil
	case "percent_change":
		lag := fmt.Sprintf("LAG(%s, 1) OVER %s", m, over(partition, orderBy))
		return fmt.Sprintf("ROUND(100.0 * (%s - %s) / NULLIF(%s, 0), 2)", m, lag, lag), nil
	case "difference_from_first":
		return fmt.Sprintf("%s - FIRST_VALUE(%s) OVER %s", m, m, over(partition, orderBy)), nil
	case "difference_from_average":
		return fmt.Sprintf("%s - AVG(%s) OVER %s", m, m, over(partition)), nil
	default:
		return "", apierr.Newf(apierr.InvalidArgument, "unknown window calculation kind %q", c.Kind)
	}
}

func frameOrDefault(frame int) int {
	if frame <= 0 {
		return 3
	}
	return frame
}

func formatDefault(v any) string {
	if s, ok := v.(string); ok {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return fmt.Sprintf("%v", v)
}
