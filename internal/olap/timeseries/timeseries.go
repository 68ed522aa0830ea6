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

// Package timeseries builds time-bucketed analytic queries with optional
// gap-fill (a generated calendar spine left-joined back to the
// aggregates) and period-over-period comparison.
package timeseries

import (
	"fmt"
	"strings"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/query"
)

// Grain is a date_trunc bucket size.
type Grain string

const (
	GrainHour    Grain = "hour"
	GrainDay     Grain = "day"
	GrainWeek    Grain = "week"
	GrainMonth   Grain = "month"
	GrainQuarter Grain = "quarter"
	GrainYear    Grain = "year"
)

// comparisonIntervals gives the shift interval applied to the bucket
// column to line a row up with its prior-period counterpart.
var comparisonIntervals = map[Comparison]string{
	ComparisonYoY: "INTERVAL 1 YEAR",
	ComparisonMoM: "INTERVAL 1 MONTH",
	ComparisonWoW: "INTERVAL 1 WEEK",
	ComparisonQoQ: "INTERVAL 3 MONTH",
	ComparisonDoD: "INTERVAL 1 DAY",
}

// Comparison selects a period-over-period comparison mode.
type Comparison string

const (
	ComparisonNone Comparison = ""
	ComparisonYoY  Comparison = "yoy"
	ComparisonMoM  Comparison = "mom"
	ComparisonWoW  Comparison = "wow"
	ComparisonQoQ  Comparison = "qoq"
	ComparisonDoD  Comparison = "dod"
)

// Spec describes one time-series query.
type Spec struct {
	Dataset       string
	TimeDimension string
	Grain         Grain
	Measures      []string
	GroupBy       []string
	Filters       []query.FilterSpec
	GapFill       bool
	FillValue     any
	Comparison    Comparison
}

// Build renders the time-series SQL for spec.
func Build(b *query.Builder, spec Spec) (string, error) {
	if spec.TimeDimension == "" {
		return "", apierr.New(apierr.InvalidArgument, "time_dimension is required")
	}
	grain := spec.Grain
	if grain == "" {
		grain = GrainDay
	}

	base, err := b.BuildBaseQuery(spec.Dataset, spec.Filters)
	if err != nil {
		return "", err
	}

	timeExpr := b.Semantic().ResolveDimension(spec.TimeDimension, "", "")
	bucketExpr := fmt.Sprintf("DATE_TRUNC('%s', %s)", grain, timeExpr)

	groupCols := append([]string{"bucket"}, spec.GroupBy...)
	selectList := append([]string{bucketExpr + " AS bucket"}, b.ResolveDimensionExprs(spec.GroupBy)...)
	selectList = append(selectList, b.ResolveMeasureExprs(spec.Measures)...)

	var sql strings.Builder
	fmt.Fprintf(&sql, "WITH base AS (\n%s\n),\n", base)
	fmt.Fprintf(&sql, "aggregated AS (\nSELECT %s\nFROM base\nGROUP BY %s\n)\n", strings.Join(selectList, ", "), strings.Join(groupCols, ", "))

	var body strings.Builder
	if !spec.GapFill || len(spec.GroupBy) > 0 {
		fmt.Fprint(&body, "SELECT * FROM aggregated ORDER BY bucket")
	} else {
		fillValue := spec.FillValue
		if fillValue == nil {
			fillValue = 0
		}
		selectCols := []string{"spine.bucket"}
		for _, m := range spec.Measures {
			selectCols = append(selectCols, fmt.Sprintf("COALESCE(aggregated.%s, %v) AS %s", m, fillValue, m))
		}
		fmt.Fprintf(&body, "SELECT %s\n", strings.Join(selectCols, ", "))
		fmt.Fprintf(&body, "FROM (SELECT DATE_TRUNC('%s', generate_series) AS bucket FROM generate_series(\n", grain)
		fmt.Fprintf(&body, "  (SELECT MIN(bucket) FROM aggregated), (SELECT MAX(bucket) FROM aggregated), INTERVAL 1 %s)) AS spine\n", grain)
		fmt.Fprint(&body, "LEFT JOIN aggregated ON aggregated.bucket = spine.bucket\nORDER BY spine.bucket")
	}
	sql.WriteString(body.String())

	if spec.Comparison == ComparisonNone {
		return sql.String(), nil
	}
	return wrapWithComparison(sql.String(), spec), nil
}

// wrapWithComparison joins the time-series result to itself shifted back
// by one unit of the comparison kind, adding a previous_<measure> column
// and a NULL-safe <measure>_pct_change column (NULL when the prior value
// is zero or absent) for every measure.
func wrapWithComparison(sql string, spec Spec) string {
	interval, ok := comparisonIntervals[spec.Comparison]
	if !ok {
		return sql
	}

	comparisonCols := make([]string, 0, len(spec.Measures)*2)
	for _, m := range spec.Measures {
		comparisonCols = append(comparisonCols,
			fmt.Sprintf("p.%s AS previous_%s", m, m),
			fmt.Sprintf("ROUND(100.0 * (c.%s - p.%s) / NULLIF(p.%s, 0), 2) AS %s_pct_change", m, m, m, m))
	}
	currentCols := make([]string, len(spec.Measures))
	for i, m := range spec.Measures {
		currentCols[i] = fmt.Sprintf("c.%s", m)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "WITH current_period AS (\n%s\n),\n", sql)
	fmt.Fprintf(&out, "previous_period AS (\nSELECT bucket + %s AS bucket, %s\nFROM current_period\n)\n", interval, strings.Join(spec.Measures, ", "))
	fmt.Fprintf(&out, "SELECT c.bucket, %s, %s\n", strings.Join(currentCols, ", "), strings.Join(comparisonCols, ", "))
	fmt.Fprint(&out, "FROM current_period c\nLEFT JOIN previous_period p ON c.bucket = p.bucket\nORDER BY c.bucket")
	return out.String()
}
