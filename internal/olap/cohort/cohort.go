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

// Package cohort builds cohort and retention analysis queries: bucketing
// entities by their first-seen period, then measuring activity in
// subsequent periods relative to that cohort.
package cohort

import (
	"fmt"
	"strings"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/query"
)

// Spec describes one cohort-analysis query.
type Spec struct {
	Dataset          string
	EntityDimension  string // e.g. customer_id
	CohortDimension  string // the time dimension that defines the cohort, e.g. signup_date
	ActivityDimension string // the time dimension of subsequent activity
	Grain            string // day, week, month
	Measures         []string
	Filters          []query.FilterSpec
}

// Build renders the cohort SQL for spec: a cohort table bucketing each
// entity by its first-activity period, joined back to per-period activity
// to compute periods-since-cohort.
func Build(b *query.Builder, spec Spec) (string, error) {
	if spec.EntityDimension == "" || spec.CohortDimension == "" {
		return "", apierr.New(apierr.InvalidArgument, "entity_dimension and cohort_dimension are required")
	}
	grain := spec.Grain
	if grain == "" {
		grain = "month"
	}

	base, err := b.BuildBaseQuery(spec.Dataset, spec.Filters)
	if err != nil {
		return "", err
	}

	entityExpr := b.Semantic().ResolveDimension(spec.EntityDimension, "", "")
	cohortExpr := b.Semantic().ResolveDimension(spec.CohortDimension, "", "")
	activityExpr := cohortExpr
	if spec.ActivityDimension != "" {
		activityExpr = b.Semantic().ResolveDimension(spec.ActivityDimension, "", "")
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, "WITH base AS (\n%s\n),\n", base)
	fmt.Fprintf(&sql, "cohorts AS (\nSELECT %s AS entity_id, MIN(DATE_TRUNC('%s', %s)) AS cohort_period\nFROM base\nGROUP BY %s\n),\n",
		entityExpr, grain, cohortExpr, entityExpr)
	fmt.Fprintf(&sql, "activity AS (\nSELECT %s AS entity_id, DATE_TRUNC('%s', %s) AS activity_period, %s\nFROM base\nGROUP BY %s, DATE_TRUNC('%s', %s)\n)\n",
		entityExpr, grain, activityExpr, strings.Join(b.ResolveMeasureExprs(spec.Measures), ", "), entityExpr, grain, activityExpr)
	fmt.Fprint(&sql, "SELECT cohorts.cohort_period, ")
	fmt.Fprintf(&sql, "DATEDIFF('%s', cohorts.cohort_period, activity.activity_period) AS periods_since_cohort, ", grain)
	fmt.Fprint(&sql, "COUNT(DISTINCT cohorts.entity_id) AS cohort_size\n")
	fmt.Fprint(&sql, "FROM cohorts\nJOIN activity ON activity.entity_id = cohorts.entity_id\n")
	fmt.Fprint(&sql, "GROUP BY cohorts.cohort_period, periods_since_cohort\nORDER BY cohorts.cohort_period, periods_since_cohort")

	return sql.String(), nil
}

// RetentionSpec narrows Spec to a retention-rate query: cohort size versus
// cohort size still active N periods later.
type RetentionSpec struct {
	Spec
	MaxPeriods int
}

// buildRetentionLong renders the per-cohort, per-period-offset retention
// detail: the entity's first activity is its cohort, the measure is the
// distinct-entity count, and each row carries the true cohort size
// alongside the retention percentage for that offset.
func buildRetentionLong(b *query.Builder, spec RetentionSpec) (string, int, error) {
	if spec.EntityDimension == "" || spec.CohortDimension == "" {
		return "", 0, apierr.New(apierr.InvalidArgument, "entity_dimension and cohort_dimension are required")
	}
	grain := spec.Grain
	if grain == "" {
		grain = "month"
	}
	maxPeriods := spec.MaxPeriods
	if maxPeriods <= 0 {
		maxPeriods = 12
	}

	base, err := b.BuildBaseQuery(spec.Dataset, spec.Filters)
	if err != nil {
		return "", 0, err
	}

	entityExpr := b.Semantic().ResolveDimension(spec.EntityDimension, "", "")
	cohortExpr := b.Semantic().ResolveDimension(spec.CohortDimension, "", "")
	activityExpr := cohortExpr
	if spec.ActivityDimension != "" {
		activityExpr = b.Semantic().ResolveDimension(spec.ActivityDimension, "", "")
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, "WITH base AS (\n%s\n),\n", base)
	fmt.Fprintf(&sql, "entity_cohorts AS (\nSELECT %s AS entity_id, MIN(DATE_TRUNC('%s', %s)) AS cohort_period\nFROM base\nGROUP BY %s\n),\n",
		entityExpr, grain, cohortExpr, entityExpr)
	fmt.Fprintf(&sql, "entity_activity AS (\nSELECT DISTINCT %s AS entity_id, DATE_TRUNC('%s', %s) AS activity_period\nFROM base\n),\n",
		entityExpr, grain, activityExpr)
	fmt.Fprint(&sql, "cohort_sizes AS (\nSELECT cohort_period, COUNT(DISTINCT entity_id) AS cohort_size\nFROM entity_cohorts\nGROUP BY cohort_period\n),\n")
	fmt.Fprintf(&sql, "cohort_activity AS (\nSELECT ec.cohort_period, DATEDIFF('%s', ec.cohort_period, ea.activity_period) AS periods_since_cohort, ea.entity_id\n",
		grain)
	fmt.Fprint(&sql, "FROM entity_cohorts ec\nJOIN entity_activity ea ON ea.entity_id = ec.entity_id\n")
	fmt.Fprintf(&sql, "WHERE DATEDIFF('%s', ec.cohort_period, ea.activity_period) BETWEEN 0 AND %d\n),\n", grain, maxPeriods)
	fmt.Fprint(&sql, "retention_counts AS (\nSELECT cohort_period, periods_since_cohort, COUNT(DISTINCT entity_id) AS retained_count\nFROM cohort_activity\nGROUP BY cohort_period, periods_since_cohort\n)\n")
	fmt.Fprint(&sql, "SELECT rc.cohort_period, cs.cohort_size, rc.periods_since_cohort, rc.retained_count,\n")
	fmt.Fprint(&sql, "  ROUND(100.0 * rc.retained_count / NULLIF(cs.cohort_size, 0), 2) AS retention_pct\n")
	fmt.Fprint(&sql, "FROM retention_counts rc\nJOIN cohort_sizes cs ON cs.cohort_period = rc.cohort_period\n")
	fmt.Fprint(&sql, "ORDER BY rc.cohort_period, rc.periods_since_cohort")

	return sql.String(), maxPeriods, nil
}

// BuildRetention renders the retention matrix the executor returns to
// callers: cohorts as rows and period offsets as columns
// (period_0_pct .. period_N_pct), the traditional cohort-triangle shape,
// pivoted from the per-offset detail via conditional aggregation.
func BuildRetention(b *query.Builder, spec RetentionSpec) (string, error) {
	longSQL, maxPeriods, err := buildRetentionLong(b, spec)
	if err != nil {
		return "", err
	}

	pivotCols := make([]string, 0, maxPeriods+1)
	for i := 0; i <= maxPeriods; i++ {
		pivotCols = append(pivotCols, fmt.Sprintf("MAX(CASE WHEN periods_since_cohort = %d THEN retention_pct END) AS period_%d_pct", i, i))
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, "WITH retention_detail AS (\n%s\n)\n", longSQL)
	fmt.Fprintf(&sql, "SELECT cohort_period, MAX(cohort_size) AS cohort_size, %s\n", strings.Join(pivotCols, ", "))
	fmt.Fprint(&sql, "FROM retention_detail\nGROUP BY cohort_period\nORDER BY cohort_period")

	return sql.String(), nil
}
