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

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisBackend shares quota counters across replicas via Redis INCR +
// EXPIRE, mirroring the session provider's use of go-redis for shared
// state across server instances.
type redisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an existing *redis.Client as a Backend.
func NewRedisBackend(client *redis.Client) Backend {
	return &redisBackend{client: client}
}

// NewRedis is a convenience constructor combining NewRedisBackend with
// Limiter construction.
func NewRedis(client *redis.Client) *Limiter {
	return New(NewRedisBackend(client))
}

func (b *redisBackend) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := b.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit: incrementing %q: %w", key, err)
	}
	if n == 1 {
		if err := b.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("ratelimit: setting expiry on %q: %w", key, err)
		}
	}
	return n, nil
}
