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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "rivaas.dev/pathmap"

// DefaultDurationBuckets are the lookup duration boundaries in seconds.
// Lookups are in-process, so the range starts at one microsecond.
var DefaultDurationBuckets = []float64{1e-6, 5e-6, 1e-5, 2.5e-5, 5e-5, 1e-4, 2.5e-4, 5e-4, 1e-3, 5e-3}

// EventType is the severity of an internal event.
type EventType int

const (
	EventError EventType = iota
	EventWarning
	EventInfo
	EventDebug
)

// Event is an internal operational event, e.g. a failed flush.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
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
	PrometheusProvider Provider = "prometheus"
	OTLPProvider       Provider = "otlp"
	StdoutProvider     Provider = "stdout"
)

// Recorder records lookup and deployment metrics. All methods are safe for
// concurrent use. A nil *Recorder records nothing.
type Recorder struct {
	meterProvider      metric.MeterProvider
	prometheusRegistry *promclient.Registry
	prometheusHandler  http.Handler
	eventHandler       EventHandler

	lookups        metric.Int64Counter
	lookupDuration metric.Float64Histogram
	routes         metric.Int64Gauge
	reloads        metric.Int64Counter

	provider        Provider
	providerCount   int
	otlpEndpoint    string
	stdoutWriter    io.Writer
	exportInterval  time.Duration
	durationBuckets []float64
	serviceName     string
	serviceVersion  string
	serviceAttrs    []attribute.KeyValue

	customMeterProvider bool
	registerGlobal      bool
	shuttingDown        atomic.Bool
}

// New creates a Recorder.
func New(opts ...Option) (*Recorder, error) {
	r := &Recorder{
		provider:        PrometheusProvider,
		exportInterval:  30 * time.Second,
		durationBuckets: DefaultDurationBuckets,
		serviceName:     "pathmap",
		serviceVersion:  "dev",
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := r.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return r, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize metrics: %v", err))
	}

	return r
}

func (r *Recorder) validate() error {
	if r.providerCount > 1 {
		return errors.New("conflicting provider options: only one of WithPrometheus, WithOTLP, or WithStdout can be used")
	}
	if r.serviceName == "" {
		return errors.New("service name cannot be empty")
	}
	if len(r.durationBuckets) == 0 {
		return errors.New("duration buckets cannot be empty")
	}
	if r.exportInterval <= 0 {
		return fmt.Errorf("export interval must be positive, got %s", r.exportInterval)
	}

	switch r.provider {
	case PrometheusProvider, StdoutProvider:
	case OTLPProvider:
		if r.otlpEndpoint == "" {
			r.emit(EventWarning, "OTLP endpoint not specified, will use default", "default", "http://localhost:4318")
			r.otlpEndpoint = "http://localhost:4318"
		}
	default:
		return fmt.Errorf("unsupported metrics provider: %s", r.provider)
	}

	return nil
}

func (r *Recorder) initializeInstruments() error {
	meter := r.meterProvider.Meter(meterName)
	r.serviceAttrs = []attribute.KeyValue{
		attribute.String("service.name", r.serviceName),
		attribute.String("service.version", r.serviceVersion),
	}

	var err error
	if r.lookups, err = meter.Int64Counter("pathmap_lookups_total",
		metric.WithDescription("Route lookups by outcome")); err != nil {
		return fmt.Errorf("failed to create lookups counter: %w", err)
	}
	if r.lookupDuration, err = meter.Float64Histogram("pathmap_lookup_duration_seconds",
		metric.WithDescription("Time spent resolving a request to a route"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...)); err != nil {
		return fmt.Errorf("failed to create lookup duration histogram: %w", err)
	}
	if r.routes, err = meter.Int64Gauge("pathmap_deployment_routes",
		metric.WithDescription("Routes in the active deployment")); err != nil {
		return fmt.Errorf("failed to create routes gauge: %w", err)
	}
	if r.reloads, err = meter.Int64Counter("pathmap_deployment_reloads_total",
		metric.WithDescription("Deployment loads by result")); err != nil {
		return fmt.Errorf("failed to create reloads counter: %w", err)
	}

	return nil
}

// Handler returns the Prometheus scrape handler.
func (r *Recorder) Handler() (http.Handler, error) {
	if r.prometheusHandler == nil {
		return nil, fmt.Errorf("handler only available with Prometheus provider, current provider: %s", r.Provider())
	}

	return r.prometheusHandler, nil
}

// Provider returns the exporter in use, or "" for a custom meter provider.
func (r *Recorder) Provider() Provider {
	if r.customMeterProvider {
		return ""
	}
	return r.provider
}

// ServiceName returns the service name attached to every measurement.
func (r *Recorder) ServiceName() string { return r.serviceName }

// ForceFlush exports pending data for push providers.
func (r *Recorder) ForceFlush(ctx context.Context) error {
	if r.shuttingDown.Load() {
		return nil
	}
	if mp, ok := r.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.ForceFlush(ctx); err != nil {
			return fmt.Errorf("metrics force flush: %w", err)
		}
	}

	return nil
}

// Shutdown flushes and stops the meter provider. Providers passed with
// [WithMeterProvider] are left to their owner. Only the first call has an
// effect.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r == nil || !r.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	if r.customMeterProvider {
		r.emit(EventDebug, "Skipping shutdown of custom meter provider")
		return nil
	}

	mp, ok := r.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}
	if err := mp.ForceFlush(ctx); err != nil {
		r.emit(EventWarning, "metrics flush warning", "error", err)
	}
	if err := mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}

	return nil
}

func (r *Recorder) emit(t EventType, msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: t, Message: msg, Args: args})
	}
}
