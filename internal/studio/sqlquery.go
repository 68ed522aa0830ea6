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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/engine"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// forbiddenSQL are the statement keywords a parameterized template may
// never contain, checked against the uppercased template (spec.md §4.6:
// "the generator must reject any template whose uppercase form contains
// DROP , DELETE , or TRUNCATE ").
var forbiddenSQL = []string{"DROP ", "DELETE ", "TRUNCATE "}

// ParamDescriptor describes one named SQL template parameter.
type ParamDescriptor struct {
	Name     string
	Type     string // string, integer, number, boolean, date, datetime
	Required bool
	Default  any
}

// SQLQueryGenerator compiles a parameterized SQL template into a handler
// that substitutes caller arguments type-aware, then executes the
// resulting statement against a configured Executor.
type SQLQueryGenerator struct {
	Exec engine.Executor
}

// NewSQLQueryGenerator returns a SQL query generator backed by exec.
func NewSQLQueryGenerator(exec engine.Executor) *SQLQueryGenerator {
	return &SQLQueryGenerator{Exec: exec}
}

func (g *SQLQueryGenerator) Validate(spec map[string]any) error {
	if _, err := requireString(spec, "name"); err != nil {
		return err
	}
	template, err := requireString(spec, "sql_template")
	if err != nil {
		return err
	}
	upper := strings.ToUpper(template)
	for _, kw := range forbiddenSQL {
		if strings.Contains(upper, kw) {
			return apierr.Newf(apierr.InvalidArgument, "sql_template contains forbidden keyword %q", strings.TrimSpace(kw))
		}
	}
	inQuote := false
	for i, r := range template {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == ';' && !inQuote && strings.TrimSpace(template[i+1:]) != "":
			return apierr.New(apierr.InvalidArgument, "sql_template must contain a single statement")
		}
	}
	switch stringField(spec, "db_kind") {
	case "", "columnar", "sqlite", "postgres", "mysql":
	default:
		return apierr.Newf(apierr.InvalidArgument, "unsupported db_kind %q", spec["db_kind"])
	}
	return nil
}

func (g *SQLQueryGenerator) Render(spec map[string]any) (registry.ToolDefinition, registry.Handler, error) {
	def, err := baseDefinition(spec, registry.SourceSQLQuery)
	if err != nil {
		return registry.ToolDefinition{}, nil, err
	}

	template := stringField(spec, "sql_template")
	dbKind := stringField(spec, "db_kind")
	if dbKind == "" {
		dbKind = "columnar"
	}
	maxRows := intField(spec, "max_rows", 1000)
	params := parseParamDescriptors(spec["parameters"])

	handler := registry.NewGenericHandler(registry.SourceSQLQuery, func(ctx context.Context, arguments map[string]any) (*registry.Result, error) {
		rendered, err := renderSQLTemplate(template, params, arguments)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		rs, err := g.Exec.Execute(ctx, rendered)
		if err != nil {
			return nil, err
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
			"db_kind":    dbKind,
		}}, nil
	})

	return def, handler, nil
}

func parseParamDescriptors(raw any) []ParamDescriptor {
	list, _ := raw.([]any)
	out := make([]ParamDescriptor, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, ParamDescriptor{
			Name:     stringField(m, "name"),
			Type:     stringField(m, "type"),
			Required: boolField(m, "required"),
			Default:  m["default"],
		})
	}
	return out
}

// renderSQLTemplate substitutes each {{name}} placeholder in template with
// its type-aware rendering: strings are single-quote-escaped, numbers and
// booleans render literal, missing required parameters are rejected.
func renderSQLTemplate(template string, params []ParamDescriptor, arguments map[string]any) (string, error) {
	rendered := template
	for _, p := range params {
		value, present := arguments[p.Name]
		if !present {
			if p.Required && p.Default == nil {
				return "", apierr.Newf(apierr.InvalidArgument, "missing required parameter %q", p.Name)
			}
			value = p.Default
		}
		rendered = strings.ReplaceAll(rendered, "{{"+p.Name+"}}", formatSQLParam(p.Type, value))
	}
	return rendered, nil
}

func formatSQLParam(kind string, value any) string {
	if value == nil {
		return "NULL"
	}
	switch kind {
	case "integer":
		switch v := value.(type) {
		case float64:
			return strconv.FormatInt(int64(v), 10)
		case int:
			return strconv.Itoa(v)
		default:
			return fmt.Sprintf("%v", v)
		}
	case "number":
		return fmt.Sprintf("%v", value)
	case "boolean":
		if b, ok := value.(bool); ok && b {
			return "TRUE"
		}
		return "FALSE"
	default: // string, date, datetime
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", value), "'", "''") + "'"
	}
}
