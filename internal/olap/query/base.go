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

package query

import (
	"fmt"
	"strings"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/semantic"
)

// FilterSpec is the caller-facing filter description, naming a dimension
// rather than an already-resolved column expression.
type FilterSpec struct {
	Dimension string
	Operator  string
	Value     any
}

// Builder builds SQL against one semantic Layer, resolving dimension and
// measure names as it goes.
type Builder struct {
	semantic *semantic.Layer
}

// NewBuilder creates a Builder bound to layer.
func NewBuilder(layer *semantic.Layer) *Builder {
	return &Builder{semantic: layer}
}

// BuildBaseQuery builds the base "SELECT * FROM source_table [JOIN ...]
// [WHERE ...]" query every higher-level builder (pivot, rollup, window,
// timeseries, cohort, stats) starts from.
func (b *Builder) BuildBaseQuery(datasetName string, filters []FilterSpec) (string, error) {
	dataset, ok := b.semantic.Dataset(datasetName)
	if !ok {
		return "", apierr.Newf(apierr.InvalidArgument, "dataset %q not found", datasetName)
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, "SELECT * FROM %s", dataset.SourceTable)

	for _, join := range dataset.Joins {
		alias := ""
		if join.Alias != "" {
			alias = " AS " + join.Alias
		}
		fmt.Fprintf(&sql, "\n%s JOIN %s%s ON %s", join.JoinType, join.Table, alias, join.OnClause)
	}

	if clauses := b.buildFilterClauses(filters); len(clauses) > 0 {
		fmt.Fprintf(&sql, "\nWHERE %s", strings.Join(clauses, " AND "))
	}

	return sql.String(), nil
}

func (b *Builder) buildFilterClauses(filters []FilterSpec) []string {
	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		colExpr := b.semantic.ResolveDimension(f.Dimension, "", "")
		clauses = append(clauses, Filter{Dimension: f.Dimension, Operator: f.Operator, Value: f.Value}.ToSQL(colExpr))
	}
	return clauses
}

// ResolveDimensionExprs resolves a list of dimension names to SQL column
// expressions, for use as a GROUP BY / SELECT list.
func (b *Builder) ResolveDimensionExprs(dims []string) []string {
	out := make([]string, len(dims))
	for i, d := range dims {
		out[i] = b.semantic.ResolveDimension(d, "", "")
	}
	return out
}

// ResolveMeasureExprs resolves a list of measure names to SQL aggregate
// expressions, aliased back to the measure name.
func (b *Builder) ResolveMeasureExprs(measures []string) []string {
	out := make([]string, len(measures))
	for i, m := range measures {
		out[i] = fmt.Sprintf("%s AS %s", b.semantic.ResolveMeasure(m, ""), m)
	}
	return out
}

// Semantic exposes the bound semantic layer for builders that need direct
// dataset/dimension/measure lookups beyond expression resolution.
func (b *Builder) Semantic() *semantic.Layer { return b.semantic }
