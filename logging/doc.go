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

// Package logging wraps log/slog for the pathmap binaries and adapters.
//
// A [Logger] is built from functional options and hands out a plain
// [slog.Logger] through [Logger.Logger], which is what the mapper, dispatch
// and router packages accept:
//
//	logger := logging.MustNew(
//	    logging.WithConsoleHandler(),
//	    logging.WithServiceName("pathmap"),
//	    logging.WithDebugLevel(),
//	)
//	d, err := dispatch.NewDeployment(resources, dispatch.WithLogger(logger.Logger()))
//
// Keys such as "password" or "token" are redacted in every handler.
// The level can be changed at runtime with [Logger.SetLevel].
package logging
