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

// Package rollup builds hierarchical subtotal queries using SQL's
// GROUP BY ROLLUP / CUBE.
package rollup

import (
	"fmt"
	"strings"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/query"
)

// GroupingKind selects ROLLUP (ordered subtotals) or CUBE (all
// combinations).
type GroupingKind string

const (
	GroupingRollup GroupingKind = "ROLLUP"
	GroupingCube   GroupingKind = "CUBE"
)

// Spec describes one rollup/cube query.
type Spec struct {
	Dataset  string
	Levels   []string // dimensions, in drill order for ROLLUP
	Measures []string
	Filters  []query.FilterSpec
	Grouping GroupingKind
	Sort     []query.SortSpec
	Limit    int
}

// Build renders the rollup/cube SQL for spec.
func Build(b *query.Builder, spec Spec) (string, error) {
	base, err := b.BuildBaseQuery(spec.Dataset, spec.Filters)
	if err != nil {
		return "", err
	}

	grouping := spec.Grouping
	if grouping == "" {
		grouping = GroupingRollup
	}

	selectList := append(append([]string{}, spec.Levels...), b.ResolveMeasureExprs(spec.Measures)...)
	selectList = append(selectList, "GROUPING_ID("+strings.Join(spec.Levels, ", ")+") AS grouping_id")

	var sql strings.Builder
	fmt.Fprintf(&sql, "WITH base AS (\n%s\n)\n", base)
	fmt.Fprintf(&sql, "SELECT %s\nFROM base", strings.Join(selectList, ", "))
	if len(spec.Levels) > 0 {
		fmt.Fprintf(&sql, "\nGROUP BY %s (%s)", grouping, strings.Join(spec.Levels, ", "))
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
