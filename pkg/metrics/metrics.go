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

// Package metrics holds the Prometheus collectors exported by the SAJHA
// server: tool-call counts and latency, quota rejections, and OLAP query
// volume.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServerMetrics holds every Prometheus collector the server registers.
type ServerMetrics struct {
	// ToolCallsTotal counts tool calls by tool name and error_kind ("" on
	// success).
	ToolCallsTotal *prometheus.CounterVec
	// ToolCallDuration tracks envelope call latency by tool name.
	ToolCallDuration *prometheus.HistogramVec
	// QuotaRejectionsTotal counts calls denied by QuotaExceeded, by
	// principal_id.
	QuotaRejectionsTotal *prometheus.CounterVec
	// AccessDeniedTotal counts calls denied by AccessDenied, by principal_id.
	AccessDeniedTotal *prometheus.CounterVec
	// OLAPQueriesTotal counts analytic queries by dataset and query_kind
	// (pivot, rollup, window, timeseries, cohort, stats).
	OLAPQueriesTotal *prometheus.CounterVec
	// OLAPQueryDuration tracks analytic query latency by dataset.
	OLAPQueryDuration *prometheus.HistogramVec
}

// New creates and registers every SAJHA collector against the default
// registry.
func New() *ServerMetrics {
	return &ServerMetrics{
		ToolCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sajha_tool_calls_total",
			Help: "Total number of tool calls, labeled by tool and error kind",
		}, []string{"tool", "error_kind"}),

		ToolCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sajha_tool_call_duration_seconds",
			Help:    "Duration of tool calls through the envelope pipeline",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),

		QuotaRejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sajha_quota_rejections_total",
			Help: "Total number of calls rejected for exceeding rate quota",
		}, []string{"principal_id"}),

		AccessDeniedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sajha_access_denied_total",
			Help: "Total number of calls rejected by access policy",
		}, []string{"principal_id"}),

		OLAPQueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sajha_olap_queries_total",
			Help: "Total number of analytic queries, labeled by dataset and kind",
		}, []string{"dataset", "query_kind"}),

		OLAPQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sajha_olap_query_duration_seconds",
			Help:    "Duration of analytic query execution",
			Buckets: prometheus.DefBuckets,
		}, []string{"dataset"}),
	}
}

// NewWithRegistry creates SAJHA collectors against a custom registry, for
// tests that need isolation from the global default registry.
func NewWithRegistry(reg *prometheus.Registry) *ServerMetrics {
	factory := promauto.With(reg)
	return &ServerMetrics{
		ToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sajha_tool_calls_total",
			Help: "Total number of tool calls, labeled by tool and error kind",
		}, []string{"tool", "error_kind"}),

		ToolCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sajha_tool_call_duration_seconds",
			Help:    "Duration of tool calls through the envelope pipeline",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),

		QuotaRejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sajha_quota_rejections_total",
			Help: "Total number of calls rejected for exceeding rate quota",
		}, []string{"principal_id"}),

		AccessDeniedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sajha_access_denied_total",
			Help: "Total number of calls rejected by access policy",
		}, []string{"principal_id"}),

		OLAPQueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sajha_olap_queries_total",
			Help: "Total number of analytic queries, labeled by dataset and kind",
		}, []string{"dataset", "query_kind"}),

		OLAPQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sajha_olap_query_duration_seconds",
			Help:    "Duration of analytic query execution",
			Buckets: prometheus.DefBuckets,
		}, []string{"dataset"}),
	}
}

// ObserveToolCall records one tool call's outcome and latency.
func (m *ServerMetrics) ObserveToolCall(tool, errorKind string, seconds float64) {
	m.ToolCallsTotal.WithLabelValues(tool, errorKind).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(seconds)
}
