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

// Package access implements AccessPolicy: given a principal and a tool
// name, decide allow/deny via allow-lists + regex, and enforce per-key
// rate quotas (spec.md §4.4).
package access

import (
	"regexp"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/access/ratelimit"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth"
)

// wildcard is the literal that grants access to every tool when present in
// allowed_tools, per spec.md §4.4 step 1.
const wildcard = "*"

// Policy decides tool access and enforces quota for a resolved Principal.
type Policy struct {
	limiter   *ratelimit.Limiter
	denyRules *DenyRuleSet
}

// New creates a Policy backed by limiter for quota enforcement.
func New(limiter *ratelimit.Limiter) *Policy {
	return &Policy{limiter: limiter}
}

// WithDenyRules attaches a compiled CEL deny-rule layer, evaluated through
// CheckDenyRules (Authorize itself does not consult it), and returns the
// same Policy for chaining at construction time.
func (pol *Policy) WithDenyRules(rules *DenyRuleSet) *Policy {
	pol.denyRules = rules
	return pol
}

// CheckDenyRules evaluates the policy's CEL deny rules for tool against the
// call's arguments, returning the denying rule's name and message when a
// rule matches. A nil Policy or an unconfigured deny-rule layer always
// passes.
func (pol *Policy) CheckDenyRules(tool string, arguments map[string]any) (denied bool, rule string, message string, err error) {
	if pol == nil {
		return false, "", "", nil
	}
	return pol.denyRules.Evaluate(tool, arguments)
}

// Authorize implements the four-step decision of spec.md §4.4:
//  1. allow_all or literal "*" in allowed_tools -> allow
//  2. tool name literally in allowed_tools -> allow
//  3. any compiled pattern fully matches -> allow
//  4. otherwise -> deny
func Authorize(p *auth.Principal, tool string) bool {
	if p == nil {
		return false
	}
	if p.ToolAccessMode == auth.AccessAllowAll {
		return true
	}
	if p.AllowedTools[wildcard] {
		return true
	}
	if p.AllowedTools[tool] {
		return true
	}
	for _, pattern := range p.AllowedPatterns {
		if matchesFully(pattern, tool) {
			return true
		}
	}
	return false
}

// matchesFully requires the compiled pattern to match the entire tool name,
// per spec.md §4.4 ("fully matches").
func matchesFully(re *regexp.Regexp, tool string) bool {
	loc := re.FindStringIndex(tool)
	return loc != nil && loc[0] == 0 && loc[1] == len(tool)
}

// CheckQuota enforces the principal's per-minute/per-hour rate limit, if
// any, consuming one unit of quota on success.
func (pol *Policy) CheckQuota(principalID string, limit *auth.RateLimit) (bool, error) {
	if limit == nil || (limit.RequestsPerMinute == 0 && limit.RequestsPerHour == 0) {
		return true, nil
	}
	return pol.limiter.Allow(principalID, limit.RequestsPerMinute, limit.RequestsPerHour)
}
