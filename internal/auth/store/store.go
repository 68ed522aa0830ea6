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

// Package store persists the ApiKey audit trail (spec.md §4.3: a key "may
// be enabled/disabled/deleted without removing audit trail") in Postgres.
// It is an optional side-store: auth.Manager's in-memory tables remain the
// source of truth for authentication, and a Store, when configured, only
// records the history of lifecycle events against each key.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// KeyEvent is one row of the ApiKey lifecycle history: created, disabled,
// enabled, or deleted.
type KeyEvent struct {
	KeyID       string
	PrincipalID string
	Action      string
	ActorID     string
	At          time.Time
}

// Store wraps a Postgres connection pool dedicated to the api_key_audit
// table.
type Store struct {
	pool     *pgxpool.Pool
	ownsPool bool
}

// New creates a Store that owns its connection pool. The pool is built
// from cfg and verified with a ping.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ConnString == "" {
		return nil, fmt.Errorf("auth/store: connection string is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("auth/store: parsing connection string: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("auth/store: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("auth/store: ping failed: %w", err)
	}
	return &Store{pool: pool, ownsPool: true}, nil
}

// NewFromPool wraps an existing pool the caller retains ownership of;
// Close becomes a no-op.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, ownsPool: false}
}

// schema is applied once by EnsureSchema; callers that manage migrations
// elsewhere can skip calling it.
const schema = `CREATE TABLE IF NOT EXISTS api_key_audit (
	id BIGSERIAL PRIMARY KEY,
	key_id TEXT NOT NULL,
	principal_id TEXT NOT NULL,
	action TEXT NOT NULL,
	actor_id TEXT NOT NULL,
	at TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the audit table if it does not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("auth/store: ensure schema: %w", err)
	}
	return nil
}

// RecordKeyEvent appends one lifecycle event. Events are insert-only: the
// audit trail is never updated or deleted, even when the key itself is
// soft-deleted.
func (s *Store) RecordKeyEvent(ctx context.Context, ev KeyEvent) error {
	const query = `INSERT INTO api_key_audit (key_id, principal_id, action, actor_id, at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, query, ev.KeyID, ev.PrincipalID, ev.Action, ev.ActorID, ev.At); err != nil {
		return fmt.Errorf("auth/store: record key event: %w", err)
	}
	return nil
}

// History returns every recorded event for keyID, oldest first.
func (s *Store) History(ctx context.Context, keyID string) ([]KeyEvent, error) {
	const query = `SELECT key_id, principal_id, action, actor_id, at
		FROM api_key_audit WHERE key_id=$1 ORDER BY at ASC`
	rows, err := s.pool.Query(ctx, query, keyID)
	if err != nil {
		return nil, fmt.Errorf("auth/store: query history: %w", err)
	}
	defer rows.Close()

	var out []KeyEvent
	for rows.Next() {
		var ev KeyEvent
		if err := rows.Scan(&ev.KeyID, &ev.PrincipalID, &ev.Action, &ev.ActorID, &ev.At); err != nil {
			return nil, fmt.Errorf("auth/store: scan history row: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close releases the underlying pool, if this Store owns it.
func (s *Store) Close() {
	if s.ownsPool {
		s.pool.Close()
	}
}
