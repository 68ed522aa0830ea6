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

// Package envelope implements the single call pipeline every tool
// invocation passes through: resolve, checkEnabled, authorize, quota,
// validate, execute, record (spec.md §4.2). It is the one place those
// seven steps happen in that order, for every tool regardless of source
// kind.
package envelope

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/access"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// Auditor receives one record per completed call (spec.md §4.2 step 7).
// internal/audit provides the Kafka-backed implementation; tests may use
// an in-memory stub.
type Auditor interface {
	Record(ctx context.Context, rec Record)
}

// Record is the audit fact emitted after every call, successful or not.
type Record struct {
	Tool        string
	PrincipalID string
	Duration    time.Duration
	ErrorKind   string
	At          time.Time
}

// Envelope wires the registry, access policy, and auditor together into
// the seven-stage call pipeline.
type Envelope struct {
	log      logr.Logger
	registry *registry.Registry
	policy   *access.Policy
	auditor  Auditor
	tracer   trace.Tracer
}

// New creates an Envelope. auditor may be nil, in which case the record
// stage is a no-op beyond the registry's own metrics.
func New(log logr.Logger, reg *registry.Registry, policy *access.Policy, auditor Auditor) *Envelope {
	return &Envelope{
		log:      log.WithName("envelope"),
		registry: reg,
		policy:   policy,
		auditor:  auditor,
		tracer:   otel.Tracer("sajha/envelope"),
	}
}

// Call runs the full pipeline for one tools/call invocation (spec.md
// §4.2). The returned error, if any, is always classifiable via
// apierr.KindOf.
func (e *Envelope) Call(ctx context.Context, principal *auth.Principal, tool string, arguments map[string]any) (*registry.Result, error) {
	ctx, span := e.tracer.Start(ctx, "tool.execute", trace.WithAttributes(attribute.String("tool.name", tool)))
	defer span.End()

	start := time.Now()
	result, kind := e.run(ctx, principal, tool, arguments)

	duration := time.Since(start)
	e.registry.RecordExecution(tool, duration, string(kind))
	if e.auditor != nil {
		principalID := ""
		if principal != nil {
			principalID = principal.PrincipalID
		}
		e.auditor.Record(ctx, Record{
			Tool:        tool,
			PrincipalID: principalID,
			Duration:    duration,
			ErrorKind:   string(kind),
			At:          start,
		})
	}

	if kind != "" {
		span.SetStatus(codes.Error, string(kind))
	}

	return result.result, result.err
}

// stageResult threads both the outcome and the classified error kind
// through run() so Call can always record a kind, even "" on success.
type stageResult struct {
	result *registry.Result
	err    error
}

func (e *Envelope) run(ctx context.Context, principal *auth.Principal, tool string, arguments map[string]any) (stageResult, apierr.Kind) {
	// 1. resolve + 2. checkEnabled: Registry.Get folds both together,
	// returning ToolNotFound or ToolDisabled as appropriate.
	resolved, err := e.registry.Get(tool)
	if err != nil {
		return stageResult{err: err}, apierr.KindOf(err)
	}

	// 3. authorize
	if !access.Authorize(principal, tool) {
		err := apierr.Newf(apierr.AccessDenied, "principal not authorized for tool %q", tool)
		return stageResult{err: err}, apierr.AccessDenied
	}

	// 3b. CEL deny rules, evaluated once arguments are on hand
	if denied, rule, message, derr := e.policy.CheckDenyRules(tool, arguments); derr != nil || denied {
		if derr != nil {
			err := apierr.Wrap(apierr.Internal, "evaluating deny rules", derr)
			return stageResult{err: err}, apierr.Internal
		}
		err := apierr.Newf(apierr.AccessDenied, "denied by rule %q: %s", rule, message)
		return stageResult{err: err}, apierr.AccessDenied
	}

	// 4. quota
	limit := effectiveRateLimit(principal, resolved.Definition)
	if limit != nil {
		principalID := ""
		if principal != nil {
			principalID = principal.PrincipalID
		}
		ok, qerr := e.policy.CheckQuota(principalID, limit)
		if qerr != nil {
			err := apierr.Wrap(apierr.Internal, "checking quota", qerr)
			return stageResult{err: err}, apierr.Internal
		}
		if !ok {
			err := apierr.Newf(apierr.QuotaExceeded, "rate limit exceeded for tool %q", tool)
			return stageResult{err: err}, apierr.QuotaExceeded
		}
	}

	// 5. validate
	if err := ValidateArguments(resolved.Definition.InputSchema, arguments); err != nil {
		return stageResult{err: err}, apierr.KindOf(err)
	}

	// 6. execute, bounded by the tool's resolved deadline
	callCtx, cancel := context.WithTimeout(ctx, resolved.Definition.Timeout())
	defer cancel()

	result, err := resolved.Handler.Execute(callCtx, arguments)
	if err != nil {
		if callCtx.Err() != nil {
			err = apierr.Wrap(apierr.Timeout, "tool execution deadline exceeded", err)
		} else if apierr.KindOf(err) == apierr.Internal && !isClassified(err) {
			err = apierr.Wrap(apierr.UpstreamFailure, "tool execution failed", err)
		}
		return stageResult{err: err}, apierr.KindOf(err)
	}

	return stageResult{result: result}, ""
}

// isClassified reports whether err already carries one of apierr's kinds,
// so run() does not relabel a handler's deliberate classification as a
// generic UpstreamFailure.
func isClassified(err error) bool {
	_, ok := apierr.As(err)
	return ok
}

// effectiveRateLimit prefers the principal's own quota; falling back to
// the tool's metadata hint lets a tool request a default ceiling for
// principals that do not carry one of their own.
func effectiveRateLimit(principal *auth.Principal, def registry.ToolDefinition) *auth.RateLimit {
	if principal != nil && principal.RateLimit != nil {
		return principal.RateLimit
	}
	if def.Metadata.RateLimit != nil {
		return &auth.RateLimit{
			RequestsPerMinute: def.Metadata.RateLimit.RequestsPerMinute,
			RequestsPerHour:   def.Metadata.RateLimit.RequestsPerHour,
		}
	}
	return nil
}
