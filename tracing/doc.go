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

// Package tracing traces route resolution with OpenTelemetry.
//
// A [Tracer] starts one server span per request, named after the matched
// route template once resolution succeeds, and carries the W3C trace
// context across service boundaries:
//
//	tr := tracing.MustNew(tracing.WithStdout(os.Stderr), tracing.WithSampleRate(0.1))
//	defer tr.Shutdown(context.Background())
//
//	ctx, span := tr.Start(req.Context(), req.Header, req.Method, req.URL.Path)
//	tr.RecordMatch(span, req.Method, "/users/{id}", map[string]string{"id": "42"})
//	tr.Finish(span, http.StatusOK)
//
// Path parameter values are recorded as route.param.<name> attributes unless
// [WithoutParams] is given.
package tracing
