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

package router

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"rivaas.dev/pathmap/dispatch"
	rerrors "rivaas.dev/pathmap/errors"
	"rivaas.dev/pathmap/metrics"
	"rivaas.dev/pathmap/tracing"
)

// ErrServerTimeoutInvalid indicates that a server timeout value is not positive.
var ErrServerTimeoutInvalid = errors.New("server timeout must be positive")

// noopLogger is used when no logger is configured.
var noopLogger = slog.New(slog.DiscardHandler)

// Option configures a [Router] or a [FastRouter].
type Option func(*settings)

// settings are shared by both adapters.
type settings struct {
	logger         *slog.Logger
	formatter      rerrors.Formatter
	metrics        *metrics.Recorder
	tracer         *tracing.Tracer
	diagnostics    dispatch.DiagnosticHandler
	notFound       http.Handler
	mounts         map[string]http.Handler
	enableH2C      bool
	serverTimeouts *serverTimeouts
	requestID      *requestIDConfig
	recovery       bool
	stackTrace     bool
}

type serverTimeouts struct {
	readHeader time.Duration
	read       time.Duration
	write      time.Duration
	idle       time.Duration
}

func defaultServerTimeouts() *serverTimeouts {
	return &serverTimeouts{
		readHeader: 5 * time.Second,
		read:       15 * time.Second,
		write:      30 * time.Second,
		idle:       60 * time.Second,
	}
}

func newSettings(opts []Option) (*settings, error) {
	s := &settings{
		logger:     noopLogger,
		formatter:  rerrors.NewRFC9457(""),
		recovery:   true,
		stackTrace: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if t := s.serverTimeouts; t != nil {
		if t.readHeader <= 0 || t.read <= 0 || t.write <= 0 || t.idle <= 0 {
			return nil, ErrServerTimeoutInvalid
		}
	}

	return s, nil
}

func (s *settings) timeouts() *serverTimeouts {
	if s.serverTimeouts == nil {
		return defaultServerTimeouts()
	}
	return s.serverTimeouts
}

func (s *settings) dispatchOptions() []dispatch.Option {
	opts := []dispatch.Option{dispatch.WithLogger(s.logger)}
	if s.diagnostics != nil {
		opts = append(opts, dispatch.WithDiagnostics(s.diagnostics))
	}
	return opts
}

// WithLogger sets the logger for resolution and lifecycle messages.
// Per-request messages are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFormatter sets the formatter for error responses. The default is
// RFC 9457 problem details.
func WithFormatter(f rerrors.Formatter) Option {
	return func(s *settings) {
		if f != nil {
			s.formatter = f
		}
	}
}

// WithMetrics records lookups and reloads on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *settings) { s.metrics = rec }
}

// WithTracer starts a span per request on t.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *settings) { s.tracer = t }
}

// WithDiagnostics receives route table diagnostics on every load.
func WithDiagnostics(handler dispatch.DiagnosticHandler) Option {
	return func(s *settings) { s.diagnostics = handler }
}

// WithNotFoundHandler replaces the formatted 404 response of [Router].
func WithNotFoundHandler(h http.Handler) Option {
	return func(s *settings) { s.notFound = h }
}

// WithMount serves h for requests whose path equals path, ahead of the route
// table. It is meant for infrastructure endpoints such as /metrics.
func WithMount(path string, h http.Handler) Option {
	return func(s *settings) {
		if s.mounts == nil {
			s.mounts = make(map[string]http.Handler)
		}
		s.mounts[path] = h
	}
}

// WithH2C enables HTTP/2 cleartext on [Router.Serve].
// Only use it in development or behind a trusted load balancer.
func WithH2C(enable bool) Option {
	return func(s *settings) { s.enableH2C = enable }
}

// WithServerTimeouts configures the server started by Serve. The defaults
// are 5s, 15s, 30s and 60s.
func WithServerTimeouts(readHeader, read, write, idle time.Duration) Option {
	return func(s *settings) {
		s.serverTimeouts = &serverTimeouts{
			readHeader: readHeader,
			read:       read,
			write:      write,
			idle:       idle,
		}
	}
}

// WithRequestID tags every request with an ID, taken from the request
// header when present. Read it back with [RequestID] or [FastRequestID].
func WithRequestID(opts ...RequestIDOption) Option {
	return func(s *settings) { s.requestID = newRequestIDConfig(opts) }
}

// WithoutRecovery lets handler panics propagate to the server.
func WithoutRecovery() Option {
	return func(s *settings) { s.recovery = false }
}

// WithoutStackTrace leaves the stack out of recovered panic logs.
func WithoutStackTrace() Option {
	return func(s *settings) { s.stackTrace = false }
}
