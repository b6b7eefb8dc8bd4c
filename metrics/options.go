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
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Option configures a [Recorder].
type Option func(*Recorder)

// WithPrometheus exports through a private Prometheus registry served by
// [Recorder.Handler]. This is the default.
func WithPrometheus() Option {
	return func(r *Recorder) {
		r.provider = PrometheusProvider
		r.providerCount++
	}
}

// WithOTLP pushes metrics to an OTLP/HTTP collector. An endpoint with an
// http:// scheme disables TLS.
func WithOTLP(endpoint string) Option {
	return func(r *Recorder) {
		r.provider = OTLPProvider
		r.otlpEndpoint = endpoint
		r.providerCount++
	}
}

// WithStdout writes metrics to w (os.Stdout when nil) on every export.
func WithStdout(w io.Writer) Option {
	return func(r *Recorder) {
		r.provider = StdoutProvider
		r.stdoutWriter = w
		r.providerCount++
	}
}

// WithMeterProvider uses a caller-owned provider. Shutdown does not stop it.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(r *Recorder) {
		r.meterProvider = provider
		r.customMeterProvider = true
	}
}

// WithGlobalMeterProvider also registers the provider with otel.SetMeterProvider.
func WithGlobalMeterProvider() Option {
	return func(r *Recorder) { r.registerGlobal = true }
}

func WithServiceName(name string) Option {
	return func(r *Recorder) { r.serviceName = name }
}

func WithServiceVersion(version string) Option {
	return func(r *Recorder) { r.serviceVersion = version }
}

// WithExportInterval sets the push interval for OTLP and stdout.
func WithExportInterval(interval time.Duration) Option {
	return func(r *Recorder) { r.exportInterval = interval }
}

// WithDurationBuckets overrides [DefaultDurationBuckets].
func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) { r.durationBuckets = buckets }
}

// WithLogger routes internal events to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.eventHandler = DefaultEventHandler(logger) }
}

func WithEventHandler(handler EventHandler) Option {
	return func(r *Recorder) { r.eventHandler = handler }
}
