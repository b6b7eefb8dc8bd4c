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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/pathmap/dispatch"
)

const (
	tracerName = "rivaas.dev/pathmap"

	// ResolveSpanName names a span whose request has not matched a route.
	ResolveSpanName = "route.resolve"

	attrPrefixParam = "route.param."
)

// EventType is the severity of an internal event.
type EventType int

const (
	EventError EventType = iota
	EventWarning
	EventInfo
	EventDebug
)

// Event is an internal operational event.
type Event struct {
	Type    EventType
	Message string
	Args    []any
}

// EventHandler receives internal events.
type EventHandler func(Event)

// DefaultEventHandler logs events to logger. A nil logger discards them.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {}
	}

	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

// Provider names a built-in exporter.
type Provider string

const (
	NoopProvider     Provider = "noop"
	StdoutProvider   Provider = "stdout"
	OTLPProvider     Provider = "otlp" // OTLP over gRPC
	OTLPHTTPProvider Provider = "otlp-http"
)

// ParseProvider maps a configuration value to a [Provider]. The empty string
// and "none" select [NoopProvider].
func ParseProvider(s string) (Provider, error) {
	switch s {
	case "", "none", string(NoopProvider):
		return NoopProvider, nil
	case string(StdoutProvider):
		return StdoutProvider, nil
	case string(OTLPProvider):
		return OTLPProvider, nil
	case string(OTLPHTTPProvider):
		return OTLPHTTPProvider, nil
	default:
		return "", fmt.Errorf("unsupported tracing provider: %q", s)
	}
}

// Tracer starts and annotates request spans. A nil *Tracer is valid and
// traces nothing.
type Tracer struct {
	tracer         trace.Tracer
	tracerProvider trace.TracerProvider
	sdkProvider    *sdktrace.TracerProvider
	propagator     propagation.TextMapPropagator
	eventHandler   EventHandler

	provider       Provider
	providerCount  int
	otlpEndpoint   string
	otlpInsecure   bool
	stdoutWriter   io.Writer
	serviceName    string
	serviceVersion string
	sampleRate     float64
	recordParams   bool

	customTracerProvider bool
	registerGlobal       bool
	shuttingDown         atomic.Bool
}

// New creates a Tracer. Without a provider option spans are dropped.
func New(opts ...Option) (*Tracer, error) {
	t := &Tracer{
		provider:       NoopProvider,
		serviceName:    "pathmap",
		serviceVersion: "dev",
		sampleRate:     1.0,
		recordParams:   true,
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("invalid tracing configuration: %w", err)
	}
	if err := t.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return t, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Tracer {
	t, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize tracing: %v", err))
	}

	return t
}

func (t *Tracer) validate() error {
	if t.providerCount > 1 {
		return errors.New("conflicting provider options: only one provider option can be used")
	}
	if t.serviceName == "" {
		return errors.New("service name cannot be empty")
	}
	if t.sampleRate < 0 || t.sampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0.0 and 1.0, got %v", t.sampleRate)
	}
	if t.propagator == nil {
		return errors.New("propagator cannot be nil")
	}

	switch t.provider {
	case NoopProvider, StdoutProvider, OTLPProvider, OTLPHTTPProvider:
		return nil
	default:
		return fmt.Errorf("unsupported tracing provider: %s", t.provider)
	}
}

// Provider returns the exporter in use, or "" for a custom tracer provider.
func (t *Tracer) Provider() Provider {
	if t == nil || t.customTracerProvider {
		return ""
	}
	return t.provider
}

func (t *Tracer) ServiceName() string { return t.serviceName }

// Propagator returns the propagator used by [Tracer.Start] and [Tracer.Inject].
func (t *Tracer) Propagator() propagation.TextMapPropagator { return t.propagator }

// Start extracts the caller's trace context from header and starts a server
// span for the request. The span is named [ResolveSpanName] until
// [Tracer.RecordMatch] renames it.
func (t *Tracer) Start(ctx context.Context, header http.Header, method, path string) (context.Context, trace.Span) {
	if t == nil || t.shuttingDown.Load() {
		return ctx, trace.SpanFromContext(ctx)
	}
	if ctx.Err() != nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx = t.propagator.Extract(ctx, propagation.HeaderCarrier(header))

	return t.tracer.Start(ctx, ResolveSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
			attribute.String("service.name", t.serviceName),
			attribute.String("service.version", t.serviceVersion),
		),
	)
}

// RecordMatch names span "METHOD template" and records the route and its
// parameter values.
func (t *Tracer) RecordMatch(span trace.Span, method, template string, params map[string]string) {
	if t == nil || span == nil || !span.IsRecording() {
		return
	}

	span.SetName(method + " " + template)
	attrs := make([]attribute.KeyValue, 0, 1+len(params))
	attrs = append(attrs, attribute.String("http.route", template))
	if t.recordParams {
		for name, value := range params {
			attrs = append(attrs, attribute.String(attrPrefixParam+name, value))
		}
	}
	span.SetAttributes(attrs...)
}

// RecordError marks span as failed with the resolution error and its code.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if t == nil || span == nil || !span.IsRecording() || err == nil {
		return
	}

	span.SetAttributes(attribute.String("route.outcome", dispatch.CodeOf(err)))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Finish records the response status and ends span. 5xx responses mark the
// span as failed; 4xx keep any status set by [Tracer.RecordError].
func (t *Tracer) Finish(span trace.Span, statusCode int) {
	if t == nil || span == nil || !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	if statusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
	}
	span.End()
}

// Inject writes the trace context of ctx into header.
func (t *Tracer) Inject(ctx context.Context, header http.Header) {
	if t == nil {
		return
	}
	t.propagator.Inject(ctx, propagation.HeaderCarrier(header))
}

// ForceFlush exports buffered spans of a built-in provider.
func (t *Tracer) ForceFlush(ctx context.Context) error {
	if t == nil || t.sdkProvider == nil {
		return nil
	}
	return t.sdkProvider.ForceFlush(ctx)
}

// Shutdown flushes and stops a built-in provider. Only the first call has
// an effect.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || !t.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	if t.sdkProvider == nil {
		return nil
	}
	if err := t.sdkProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	return nil
}

// TraceID returns the trace ID of the span in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// SpanID returns the span ID of the span in ctx, or "".
func SpanID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.SpanID().String()
}

func (t *Tracer) emit(et EventType, msg string, args ...any) {
	if t.eventHandler != nil {
		t.eventHandler(Event{Type: et, Message: msg, Args: args})
	}
}
