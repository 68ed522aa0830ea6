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
	"time"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/cohort"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/engine"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/pivot"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/query"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/rollup"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/semantic"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/stats"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/timeseries"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/window"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// analyticOperations names every operation an analytic_query tool
// document may declare, each mapped to one of the internal/olap builder
// sub-packages.
var analyticOperations = map[string]bool{
	"pivot":             true,
	"rollup":            true,
	"window":            true,
	"timeseries":        true,
	"cohort":            true,
	"cohort_retention":  true,
	"stats_summary":     true,
	"stats_correlation": true,
	"stats_histogram":   true,
	"stats_outliers":    true,
}

// AnalyticQueryGenerator compiles an analytic_query tool document into a
// handler that resolves its dataset/dimension/measure names against a
// semantic.Layer, builds the operation's SQL via the matching
// internal/olap builder package, and executes it against a configured
// Executor.
type AnalyticQueryGenerator struct {
	Semantic *semantic.Layer
	Exec     engine.Executor
}

// NewAnalyticQueryGenerator returns an analytic-query generator resolving
// dataset/dimension/measure names against layer and executing the
// resulting SQL via exec.
func NewAnalyticQueryGenerator(layer *semantic.Layer, exec engine.Executor) *AnalyticQueryGenerator {
	return &AnalyticQueryGenerator{Semantic: layer, Exec: exec}
}

func (g *AnalyticQueryGenerator) Validate(spec map[string]any) error {
	if _, err := requireString(spec, "name"); err != nil {
		return err
	}
	if _, err := requireString(spec, "dataset"); err != nil {
		return err
	}
	op, err := requireString(spec, "operation")
	if err != nil {
		return err
	}
	if !analyticOperations[op] {
		return apierr.Newf(apierr.InvalidArgument, "unknown analytic operation %q", op)
	}
	return nil
}

func (g *AnalyticQueryGenerator) Render(spec map[string]any) (registry.ToolDefinition, registry.Handler, error) {
	def, err := baseDefinition(spec, registry.SourceAnalyticQuery)
	if err != nil {
		return registry.ToolDefinition{}, nil, err
	}

	dataset := stringField(spec, "dataset")
	operation := stringField(spec, "operation")
	maxRows := intField(spec, "max_rows", 1000)
	builder := query.NewBuilder(g.Semantic)

	handler := registry.NewGenericHandler(registry.SourceAnalyticQuery, func(ctx context.Context, arguments map[string]any) (*registry.Result, error) {
		sqlText, postProcess, err := g.buildSQL(builder, operation, dataset, arguments)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		rs, err := g.Exec.Execute(ctx, sqlText)
		if err != nil {
			return nil, err
		}
		if postProcess != nil {
			rs = postProcess(rs)
		}
		rows := rs.Rows
		rowCount := len(rows)
		if rowCount > maxRows {
			rows = rows[:maxRows]
		}
		return &registry.Result{Content: map[string]any{
			"columns":    rs.Columns,
			"rows":       rows,
			"row_count":  rowCount,
			"elapsed_ms": time.Since(start).Milliseconds(),
			"operation":  operation,
		}}, nil
	})

	return def, handler, nil
}

// buildSQL dispatches to the olap builder package matching operation,
// translating the call-time arguments into each builder's Spec shape.
// The returned post-process hook, when non-nil, is applied to the
// ResultSet after execution, for operations (such as pivot totals) whose
// result requires a Go-level step on top of the single SQL round trip.
func (g *AnalyticQueryGenerator) buildSQL(b *query.Builder, operation, dataset string, args map[string]any) (string, func(*engine.ResultSet) *engine.ResultSet, error) {
	filters := parseFilters(args["filters"])
	sorts := parseSorts(args["sort"])
	limit := intField(args, "limit", 0)

	switch operation {
	case "pivot":
		pivotSpec := pivot.Spec{
			Dataset:          dataset,
			Rows:             stringListField(args, "rows"),
			Columns:          stringListField(args, "columns"),
			Values:           stringListField(args, "values"),
			Filters:          filters,
			Sort:             sorts,
			Limit:            limit,
			IncludeSubtotals: boolField(args, "include_subtotals"),
			IncludeTotals:    boolField(args, "include_totals"),
		}
		sqlText, err := pivot.Build(b, pivotSpec)
		if err != nil {
			return "", nil, err
		}
		return sqlText, func(rs *engine.ResultSet) *engine.ResultSet {
			return pivot.AppendTotals(b, pivotSpec, rs)
		}, nil
	case "rollup":
		sqlText, err := rollup.Build(b, rollup.Spec{
			Dataset:  dataset,
			Levels:   stringListField(args, "levels"),
			Measures: stringListField(args, "measures"),
			Filters:  filters,
			Grouping: rollup.GroupingKind(stringFieldDefault(args, "grouping", string(rollup.GroupingRollup))),
			Sort:     sorts,
			Limit:    limit,
		})
		return sqlText, nil, err
	case "window":
		sqlText, err := window.Build(b, window.Spec{
			Dataset:      dataset,
			PartitionBy:  stringListField(args, "partition_by"),
			OrderBy:      sorts,
			Calculations: parseWindowCalculations(args["calculations"]),
			Filters:      filters,
			Limit:        limit,
		})
		return sqlText, nil, err
	case "timeseries":
		sqlText, err := timeseries.Build(b, timeseries.Spec{
			Dataset:       dataset,
			TimeDimension: stringField(args, "time_dimension"),
			Grain:         timeseries.Grain(stringFieldDefault(args, "grain", string(timeseries.GrainDay))),
			Measures:      stringListField(args, "measures"),
			GroupBy:       stringListField(args, "group_by"),
			Filters:       filters,
			GapFill:       boolField(args, "gap_fill"),
			FillValue:     args["fill_value"],
			Comparison:    timeseries.Comparison(stringField(args, "comparison")),
		})
		return sqlText, nil, err
	case "cohort":
		sqlText, err := cohort.Build(b, cohortSpec(dataset, args, filters))
		return sqlText, nil, err
	case "cohort_retention":
		sqlText, err := cohort.BuildRetention(b, cohort.RetentionSpec{
			Spec:       cohortSpec(dataset, args, filters),
			MaxPeriods: intField(args, "max_periods", 12),
		})
		return sqlText, nil, err
	case "stats_summary":
		sqlText, err := stats.BuildSummary(b, statsSpec(dataset, args, filters))
		return sqlText, nil, err
	case "stats_correlation":
		sqlText, err := stats.BuildCorrelationMatrix(b, statsSpec(dataset, args, filters))
		return sqlText, nil, err
	case "stats_histogram":
		sqlText, err := stats.BuildHistogram(b, stats.HistogramSpec{
			Dataset: dataset,
			Measure: stringField(args, "measure"),
			Buckets: intField(args, "buckets", 10),
			Filters: filters,
		})
		return sqlText, nil, err
	case "stats_outliers":
		sqlText, err := stats.BuildOutlierDetection(b, statsSpec(dataset, args, filters))
		return sqlText, nil, err
	default:
		return "", nil, apierr.Newf(apierr.InvalidArgument, "unknown analytic operation %q", operation)
	}
}

func cohortSpec(dataset string, args map[string]any, filters []query.FilterSpec) cohort.Spec {
	return cohort.Spec{
		Dataset:           dataset,
		EntityDimension:   stringField(args, "entity_dimension"),
		CohortDimension:   stringField(args, "cohort_dimension"),
		ActivityDimension: stringField(args, "activity_dimension"),
		Grain:             stringFieldDefault(args, "grain", "month"),
		Measures:          stringListField(args, "measures"),
		Filters:           filters,
	}
}

func statsSpec(dataset string, args map[string]any, filters []query.FilterSpec) stats.Spec {
	return stats.Spec{
		Dataset:  dataset,
		Measures: stringListField(args, "measures"),
		GroupBy:  stringListField(args, "group_by"),
		Filters:  filters,
	}
}

func stringFieldDefault(args map[string]any, key, def string) string {
	if v := stringField(args, key); v != "" {
		return v
	}
	return def
}

func stringListField(args map[string]any, key string) []string {
	raw, _ := args[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseFilters(raw any) []query.FilterSpec {
	list, _ := raw.([]any)
	out := make([]query.FilterSpec, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, query.FilterSpec{
			Dimension: stringField(m, "dimension"),
			Operator:  stringField(m, "operator"),
			Value:     m["value"],
		})
	}
	return out
}

func parseSorts(raw any) []query.SortSpec {
	list, _ := raw.([]any)
	out := make([]query.SortSpec, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, query.SortSpec{
			Column:    stringField(m, "column"),
			Direction: stringField(m, "direction"),
			Nulls:     stringField(m, "nulls"),
		})
	}
	return out
}

func parseWindowCalculations(raw any) []window.Calculation {
	list, _ := raw.([]any)
	out := make([]window.Calculation, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, window.Calculation{
			Kind:    stringField(m, "kind"),
			Measure: stringField(m, "measure"),
			Alias:   stringField(m, "alias"),
			Frame:   intField(m, "frame", 0),
		})
	}
	return out
}
