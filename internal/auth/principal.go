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

// Package auth implements the AuthManager: credential verification, session
// and API-key lifecycle, and principal resolution from an inbound request
// (spec.md §4.3).
package auth

import (
	"regexp"
	"time"
)

// PrincipalKind discriminates how a Principal was resolved.
type PrincipalKind string

const (
	KindUser   PrincipalKind = "user"
	KindAPIKey PrincipalKind = "api_key"
)

// AccessMode summarizes how a Principal's tool access was granted, derived
// from its AllowedTools/AllowedPatterns. access.Authorize allows every tool
// for a Principal whose mode is AccessAllowAll.
type AccessMode string

const (
	AccessAllowAll     AccessMode = "allow_all"
	AccessAllowListed  AccessMode = "allow_listed"
	AccessAllowRegex   AccessMode = "allow_regex"
	AccessMixed        AccessMode = "mixed"
)

// RateLimit is the requests-per-minute/per-hour quota carried by a
// Principal, per spec.md §3.
type RateLimit struct {
	RequestsPerMinute int
	RequestsPerHour   int
}

// Principal is the resolved identity of a caller (spec.md §3).
type Principal struct {
	PrincipalID     string
	Kind            PrincipalKind
	Roles           map[string]bool
	ToolAccessMode  AccessMode
	AllowedTools    map[string]bool
	AllowedPatterns []*regexp.Regexp
	RateLimit       *RateLimit
	ExpiresAt       *time.Time
}

// IsAdmin reports whether the principal carries the distinguished "admin"
// role (spec.md §3).
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Roles["admin"]
}

// Expired reports whether the principal's credential has passed its
// expiry, if one is set.
func (p *Principal) Expired(now time.Time) bool {
	return p != nil && p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// DeriveAccessMode computes the AccessMode summary from allowed tools and
// patterns, used when constructing a Principal from storage.
func DeriveAccessMode(allowedTools map[string]bool, patterns []*regexp.Regexp) AccessMode {
	hasWildcard := allowedTools["*"]
	hasList := len(allowedTools) > 0 && !hasWildcard
	hasPatterns := len(patterns) > 0

	switch {
	case hasWildcard:
		return AccessAllowAll
	case hasList && hasPatterns:
		return AccessMixed
	case hasList:
		return AccessAllowListed
	case hasPatterns:
		return AccessAllowRegex
	default:
		return AccessAllowListed
	}
}
