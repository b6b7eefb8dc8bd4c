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

package dispatch

import (
	"io"
	"log/slog"
)

// Option configures a [Deployment] or [Dispatcher].
type Option func(*options)

type options struct {
	logger      *slog.Logger
	diagnostics DiagnosticHandler
}

func defaultOptions() *options {
	return &options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger for build-time messages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDiagnostics sets a handler for build-time diagnostic events, including
// those raised by the underlying request mappers.
func WithDiagnostics(handler DiagnosticHandler) Option {
	return func(o *options) {
		o.diagnostics = handler
	}
}
