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

// Package query implements the shared SQL-building primitives used by
// every OLAP query kind: filters, sort specs, and the base
// table+join+where template every builder starts from (spec.md §9 OLAP
// section).
package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter is one WHERE-clause condition against a resolved dimension
// expression.
type Filter struct {
	Dimension string
	Operator  string
	Value     any
}

// operatorTemplates mirrors the original query builder's OPERATORS table.
var operatorTemplates = map[string]string{
	"=":           "%s = %s",
	"!=":          "%s != %s",
	">":           "%s > %s",
	"<":           "%s < %s",
	">=":          "%s >= %s",
	"<=":          "%s <= %s",
	"IN":          "%s IN (%s)",
	"NOT IN":      "%s NOT IN (%s)",
	"LIKE":        "%s LIKE %s",
	"NOT LIKE":    "%s NOT LIKE %s",
	"BETWEEN":     "%s BETWEEN %s",
	"IS NULL":     "%s IS NULL",
	"IS NOT NULL": "%s IS NOT NULL",
	"CONTAINS":    "%s LIKE '%%' || %s || '%%'",
}

// ToSQL renders the filter as a WHERE-clause component against
// columnExpr, the already-resolved dimension SQL expression.
func (f Filter) ToSQL(columnExpr string) string {
	op := strings.ToUpper(f.Operator)
	template, ok := operatorTemplates[op]
	if !ok {
		template = operatorTemplates["="]
		op = "="
	}

	switch op {
	case "IS NULL", "IS NOT NULL":
		return fmt.Sprintf(template, columnExpr)
	case "IN", "NOT IN":
		return fmt.Sprintf(template, columnExpr, formatList(f.Value))
	case "BETWEEN":
		if lo, hi, ok := betweenBounds(f.Value); ok {
			return fmt.Sprintf("%s BETWEEN %s AND %s", columnExpr, formatValue(lo), formatValue(hi))
		}
		return fmt.Sprintf("%s = %s", columnExpr, formatValue(f.Value))
	default:
		return fmt.Sprintf(template, columnExpr, formatValue(f.Value))
	}
}

func betweenBounds(v any) (lo, hi any, ok bool) {
	if list, isList := v.([]any); isList && len(list) == 2 {
		return list[0], list[1], true
	}
	return nil, nil, false
}

func formatList(v any) string {
	list, ok := v.([]any)
	if !ok {
		return formatValue(v)
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = formatValue(item)
	}
	return strings.Join(parts, ", ")
}

// formatValue renders a Go value as a SQL literal, escaping single quotes
// in strings (the original _format_value rule).
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(val), "'", "''") + "'"
	}
}

// SortSpec is one ORDER BY component.
type SortSpec struct {
	Column    string
	Direction string // ASC or DESC
	Nulls     string // FIRST, LAST, or empty
}

// ToSQL renders the sort spec as an ORDER BY component. An empty
// Direction is left out, so the database's ascending default applies.
func (s SortSpec) ToSQL() string {
	sql := s.Column
	if s.Direction != "" {
		sql += " " + s.Direction
	}
	if s.Nulls != "" {
		sql += " NULLS " + s.Nulls
	}
	return sql
}
