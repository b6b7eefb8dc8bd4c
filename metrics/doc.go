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

// Package metrics records route resolution metrics with OpenTelemetry.
//
// A [Recorder] owns a meter provider backed by Prometheus (default), OTLP
// over HTTP or stdout, or uses one supplied with [WithMeterProvider]:
//
//	rec := metrics.MustNew(metrics.WithServiceName("orders"))
//	h, _ := rec.Handler() // mount on /metrics
//	defer rec.Shutdown(context.Background())
//
// Instruments:
//
//	pathmap_lookups_total              counter    http.method, outcome, route.template
//	pathmap_lookup_duration_seconds    histogram  http.method, outcome
//	pathmap_deployment_routes          gauge      number of routes in the active table
//	pathmap_deployment_reloads_total   counter    result
package metrics
