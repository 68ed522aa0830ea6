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

// Package tracing installs the process-wide OpenTelemetry TracerProvider
// that internal/envelope's spans (and any other package calling
// otel.Tracer) are recorded against.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config controls the installed TracerProvider's resource attributes and
// sampling rate. There is no exporter here: spans are sampled, timed, and
// attributed in-process (available to anything reading span context
// through the Go API) without shipping to an external collector, which is
// outside this core's scope.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// SampleRate is the fraction of traces recorded, in [0, 1]. Zero
	// defaults to 1 (always sample).
	SampleRate float64
}

// Install builds and registers a TracerProvider as the process-wide
// global, so every otel.Tracer(...) call elsewhere in the server picks it
// up. Returns a shutdown func draining the provider's span processors.
func Install(cfg Config) func(context.Context) error {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "sajha-mcp-server"
	}
	sampler := sdktrace.AlwaysSample()
	switch {
	case cfg.SampleRate <= 0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate < 1:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
