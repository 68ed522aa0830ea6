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

package auth

import "time"

// Session is the short-lived credential binding a bearer token to a
// Principal (spec.md §3). Lifecycle: created on successful basic-credential
// verification, refreshed on use, destroyed on explicit logout or timeout.
// Per spec.md §9 open question, sessions are in-memory-only; they do not
// survive process restart.
type Session struct {
	Token       string
	PrincipalID string
	CreatedAt   time.Time
	LastUsedAt  time.Time
}

// idle reports whether the session has been unused for longer than timeout
// (spec.md §4.3: "Session timeout is configurable, default 24h of
// inactivity").
func (s *Session) idle(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastUsedAt) > timeout
}
