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

// Package ratelimit implements the fixed-window per-principal request
// counters backing AccessPolicy.CheckQuota (spec.md §4.4). The default
// backend is in-process; a Redis-backed backend is available for
// multi-replica deployments where quota must be shared.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Backend is the pluggable counter store. Each enforced window is
// incremented by its own Incr call; a request rejected by the per-minute
// window returns before the per-hour counter is incremented.
type Backend interface {
	// Incr increments the counter for key within window, creating it with
	// the given ttl if absent, and returns the counter value after the
	// increment.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter enforces per-minute and per-hour quotas for a principal.
type Limiter struct {
	backend Backend
}

// New creates a Limiter backed by backend.
func New(backend Backend) *Limiter {
	return &Limiter{backend: backend}
}

// NewInProcess creates a Limiter backed by an in-memory fixed-window
// counter map, suitable for a single-replica deployment or tests.
func NewInProcess() *Limiter {
	return New(newMemoryBackend())
}

// Allow consumes one unit of quota for principalID against both windows,
// returning false if either is exhausted. A zero limit in either window
// means that window is not enforced.
func (l *Limiter) Allow(principalID string, perMinute, perHour int) (bool, error) {
	ctx := context.Background()
	now := time.Now()

	if perMinute > 0 {
		key := bucketKey(principalID, "m", now, time.Minute)
		n, err := l.backend.Incr(ctx, key, time.Minute)
		if err != nil {
			return false, err
		}
		if n > int64(perMinute) {
			return false, nil
		}
	}

	if perHour > 0 {
		key := bucketKey(principalID, "h", now, time.Hour)
		n, err := l.backend.Incr(ctx, key, time.Hour)
		if err != nil {
			return false, err
		}
		if n > int64(perHour) {
			return false, nil
		}
	}

	return true, nil
}

// bucketKey names the fixed window a timestamp falls into, so that all
// calls within the same window share a counter.
func bucketKey(principalID, suffix string, now time.Time, window time.Duration) string {
	bucket := now.Truncate(window).Unix()
	return principalID + ":" + suffix + ":" + itoa(bucket)
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// memoryBackend is the default in-process Backend: a mutex-guarded map of
// counters with lazy expiry on access.
type memoryBackend struct {
	mu      sync.Mutex
	entries map[string]*memEntry
}

type memEntry struct {
	count    int64
	expireAt time.Time
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{entries: make(map[string]*memEntry)}
}

func (b *memoryBackend) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	e, ok := b.entries[key]
	if !ok || now.After(e.expireAt) {
		e = &memEntry{expireAt: now.Add(window)}
		b.entries[key] = e
	}
	e.count++
	b.sweep(now)
	return e.count, nil
}

// sweep drops expired entries so the map does not grow unbounded across
// principals that have stopped sending traffic. Called with mu held.
func (b *memoryBackend) sweep(now time.Time) {
	if len(b.entries)%256 != 0 {
		return
	}
	for k, e := range b.entries {
		if now.After(e.expireAt) {
			delete(b.entries, k)
		}
	}
}
