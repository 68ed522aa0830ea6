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

// Package engine executes rendered OLAP SQL against a backing warehouse,
// abstracting the database/sql surface so callers can test against an
// in-memory stand-in without a live connection.
package engine

import (
	"context"
	"database/sql"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"

	// Register the Snowflake driver for database/sql.
	_ "github.com/snowflakedb/gosnowflake"

	// Register the pgx driver for database/sql, for warehouses backed by
	// Postgres-compatible columnar extensions rather than Snowflake.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Row abstracts *sql.Row for testability.
type Row interface {
	Scan(dest ...any) error
}

// DB abstracts the subset of database/sql operations the executor needs.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) Row
	PingContext(ctx context.Context) error
	Close() error
}

// ResultSet is a materialized query result: column names plus rows, each
// row a slice of driver-returned values in column order.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Executor runs a rendered SQL string and returns a materialized
// ResultSet.
type Executor interface {
	Execute(ctx context.Context, query string) (*ResultSet, error)
	Ping(ctx context.Context) error
	Close() error
}

// sqlDBAdapter wraps *sql.DB to satisfy DB, since *sql.DB.QueryRowContext
// returns *sql.Row rather than our Row interface.
type sqlDBAdapter struct {
	db *sql.DB
}

func (a *sqlDBAdapter) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return a.db.QueryContext(ctx, query, args...)
}

func (a *sqlDBAdapter) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	return a.db.QueryRowContext(ctx, query, args...)
}

func (a *sqlDBAdapter) PingContext(ctx context.Context) error { return a.db.PingContext(ctx) }
func (a *sqlDBAdapter) Close() error                          { return a.db.Close() }

// sqlExecutor executes queries against a database/sql-compatible
// warehouse driver (Snowflake by default).
type sqlExecutor struct {
	db DB
}

// NewSnowflakeExecutor opens a Snowflake connection using dsn and returns
// an Executor backed by it. The gosnowflake driver is registered via the
// blank import above.
func NewSnowflakeExecutor(dsn string) (Executor, error) {
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "open snowflake connection", err)
	}
	return &sqlExecutor{db: &sqlDBAdapter{db: db}}, nil
}

// NewPostgresExecutor opens a Postgres connection using dsn (via the pgx
// stdlib driver) and returns an Executor backed by it, for datasets hosted
// on a Postgres-compatible warehouse instead of Snowflake.
func NewPostgresExecutor(dsn string) (Executor, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "open postgres connection", err)
	}
	return &sqlExecutor{db: &sqlDBAdapter{db: db}}, nil
}

// newSQLExecutor wraps a pre-constructed DB (for testing against a
// sqlmock-style stand-in).
func newSQLExecutor(db DB) *sqlExecutor {
	return &sqlExecutor{db: db}
}

func (e *sqlExecutor) Execute(ctx context.Context, query string) (*ResultSet, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "execute olap query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "read olap result columns", err)
	}

	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apierr.Wrap(apierr.UpstreamFailure, "scan olap result row", err)
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "iterate olap result rows", err)
	}
	return rs, nil
}

func (e *sqlExecutor) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return apierr.Wrap(apierr.UpstreamFailure, "ping olap warehouse", err)
	}
	return nil
}

func (e *sqlExecutor) Close() error {
	return e.db.Close()
}
