// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

import (
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a [Tracer].
type Option func(*Tracer)

// WithNoop drops all spans. This is the default.
func WithNoop() Option {
	return func(t *Tracer) {
		t.provider = NoopProvider
		t.providerCount++
	}
}

// WithStdout writes finished spans to w (os.Stdout when nil) as indented JSON.
func WithStdout(w io.Writer) Option {
	return func(t *Tracer) {
		t.provider = StdoutProvider
		t.stdoutWriter = w
		t.providerCount++
	}
}

// OTLPOption configures the gRPC exporter of [WithOTLP].
type OTLPOption func(*Tracer)

// OTLPInsecure disables TLS on the gRPC connection.
func OTLPInsecure() OTLPOption {
	return func(t *Tracer) { t.otlpInsecure = true }
}

// WithOTLP exports spans to an OTLP/gRPC collector at endpoint ("host:port",
// e.g. "localhost:4317"). An http:// scheme implies [OTLPInsecure]; an empty
// endpoint uses the exporter defaults.
func WithOTLP(endpoint string, opts ...OTLPOption) Option {
	return func(t *Tracer) {
		t.provider = OTLPProvider
		t.otlpEndpoint = endpoint
		t.providerCount++
		for _, opt := range opts {
			opt(t)
		}
	}
}

// WithOTLPHTTP exports spans to an OTLP/HTTP collector. An http:// endpoint
// disables TLS and a path selects the URL path ("http://localhost:4318/v1/traces").
func WithOTLPHTTP(endpoint string) Option {
	return func(t *Tracer) {
		t.provider = OTLPHTTPProvider
		t.otlpEndpoint = endpoint
		t.providerCount++
	}
}

// WithProvider selects a built-in provider by name, as read from configuration.
func WithProvider(provider Provider, endpoint string) Option {
	return func(t *Tracer) {
		t.provider = provider
		t.otlpEndpoint = endpoint
		t.providerCount++
	}
}

// WithTracerProvider uses a caller-owned provider. Shutdown does not stop it
// and WithSampleRate is ignored.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(t *Tracer) {
		t.tracerProvider = provider
		t.customTracerProvider = true
	}
}

// WithGlobalTracerProvider registers the provider and propagator globally.
func WithGlobalTracerProvider() Option {
	return func(t *Tracer) { t.registerGlobal = true }
}

func WithServiceName(name string) Option {
	return func(t *Tracer) { t.serviceName = name }
}

func WithServiceVersion(version string) Option {
	return func(t *Tracer) { t.serviceVersion = version }
}

// WithSampleRate samples the given fraction of root traces. Sampled parents
// are always followed.
func WithSampleRate(rate float64) Option {
	return func(t *Tracer) { t.sampleRate = rate }
}

// WithPropagator replaces the default W3C trace context and baggage propagator.
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(t *Tracer) { t.propagator = propagator }
}

// WithoutParams stops recording path parameter values on spans.
func WithoutParams() Option {
	return func(t *Tracer) { t.recordParams = false }
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracer) { t.eventHandler = DefaultEventHandler(logger) }
}

func WithEventHandler(handler EventHandler) Option {
	return func(t *Tracer) { t.eventHandler = handler }
}
