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

// Package stats builds descriptive-statistics, histogram, correlation,
// and outlier-detection queries.
package stats

import (
	"fmt"
	"strings"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/query"
)

// Spec describes a summary-statistics or correlation query over one or
// more measures.
type Spec struct {
	Dataset  string
	Measures []string
	GroupBy  []string
	Filters  []query.FilterSpec
}

// BuildSummary renders a query computing count/mean/stddev/min/max/median
// for each measure, optionally grouped.
func BuildSummary(b *query.Builder, spec Spec) (string, error) {
	if len(spec.Measures) == 0 {
		return "", apierr.New(apierr.InvalidArgument, "at least one measure is required")
	}
	base, err := b.BuildBaseQuery(spec.Dataset, spec.Filters)
	if err != nil {
		return "", err
	}

	selectList := b.ResolveDimensionExprs(spec.GroupBy)
	for _, m := range spec.Measures {
		col := b.Semantic().ResolveMeasure(m, "")
		selectList = append(selectList,
			fmt.Sprintf("COUNT(%s) AS %s_count", col, m),
			fmt.Sprintf("AVG(%s) AS %s_mean", col, m),
			fmt.Sprintf("STDDEV(%s) AS %s_stddev", col, m),
			fmt.Sprintf("MIN(%s) AS %s_min", col, m),
			fmt.Sprintf("MAX(%s) AS %s_max", col, m),
			fmt.Sprintf("MEDIAN(%s) AS %s_median", col, m),
		)
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, "WITH base AS (\n%s\n)\n", base)
	fmt.Fprintf(&sql, "SELECT %s\nFROM base", strings.Join(selectList, ", "))
	if len(spec.GroupBy) > 0 {
		fmt.Fprintf(&sql, "\nGROUP BY %s", strings.Join(spec.GroupBy, ", "))
	}
	return sql.String(), nil
}

// BuildCorrelationMatrix renders a pairwise CORR() query across spec's
// measures.
func BuildCorrelationMatrix(b *query.Builder, spec Spec) (string, error) {
	if len(spec.Measures) < 2 {
		return "", apierr.New(apierr.InvalidArgument, "correlation requires at least two measures")
	}
	base, err := b.BuildBaseQuery(spec.Dataset, spec.Filters)
	if err != nil {
		return "", err
	}

	var pairs []string
	for i := 0; i < len(spec.Measures); i++ {
		for j := i + 1; j < len(spec.Measures); j++ {
			a := b.Semantic().ResolveMeasure(spec.Measures[i], "")
			c := b.Semantic().ResolveMeasure(spec.Measures[j], "")
			pairs = append(pairs, fmt.Sprintf("CORR(%s, %s) AS %s_%s_corr", a, c, spec.Measures[i], spec.Measures[j]))
		}
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, "WITH base AS (\n%s\n)\n", base)
	fmt.Fprintf(&sql, "SELECT %s\nFROM base", strings.Join(pairs, ", "))
	return sql.String(), nil
}

// HistogramSpec describes a single-measure histogram query.
type HistogramSpec struct {
	Dataset string
	Measure string
	Buckets int
	Filters []query.FilterSpec
}

// BuildHistogram renders a fixed-bucket-width histogram query using
// WIDTH_BUCKET over the measure's observed min/max range.
func BuildHistogram(b *query.Builder, spec HistogramSpec) (string, error) {
	if spec.Measure == "" {
		return "", apierr.New(apierr.InvalidArgument, "measure is required")
	}
	buckets := spec.Buckets
	if buckets <= 0 {
		buckets = 10
	}
	base, err := b.BuildBaseQuery(spec.Dataset, spec.Filters)
	if err != nil {
		return "", err
	}
	col := b.Semantic().ResolveMeasure(spec.Measure, "")

	var sql strings.Builder
	fmt.Fprintf(&sql, "WITH base AS (\n%s\n),\n", base)
	fmt.Fprintf(&sql, "bounds AS (\nSELECT MIN(%s) AS lo, MAX(%s) AS hi FROM base\n)\n", col, col)
	fmt.Fprint(&sql, "SELECT WIDTH_BUCKET(")
	fmt.Fprintf(&sql, "%s, bounds.lo, bounds.hi, %d) AS bucket, COUNT(*) AS frequency\n", col, buckets)
	fmt.Fprint(&sql, "FROM base, bounds\nGROUP BY bucket\nORDER BY bucket")

	return sql.String(), nil
}

// BuildOutlierDetection renders an IQR-based outlier flag query: rows
// whose measure falls outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR].
func BuildOutlierDetection(b *query.Builder, spec Spec) (string, error) {
	if len(spec.Measures) != 1 {
		return "", apierr.New(apierr.InvalidArgument, "outlier detection requires exactly one measure")
	}
	base, err := b.BuildBaseQuery(spec.Dataset, spec.Filters)
	if err != nil {
		return "", err
	}
	col := b.Semantic().ResolveMeasure(spec.Measures[0], "")

	var sql strings.Builder
	fmt.Fprintf(&sql, "WITH base AS (\n%s\n),\n", base)
	fmt.Fprintf(&sql, "quartiles AS (\nSELECT\n")
	fmt.Fprintf(&sql, "  QUANTILE_CONT(%s, 0.25) AS q1,\n", col)
	fmt.Fprintf(&sql, "  QUANTILE_CONT(%s, 0.75) AS q3\n", col)
	fmt.Fprint(&sql, "FROM base\n)\n")
	fmt.Fprint(&sql, "SELECT base.*, (q3 - q1) AS iqr,\n")
	fmt.Fprintf(&sql, "  (%s < q1 - 1.5 * (q3 - q1) OR %s > q3 + 1.5 * (q3 - q1)) AS is_outlier\n", col, col)
	fmt.Fprint(&sql, "FROM base, quartiles")

	return sql.String(), nil
}
