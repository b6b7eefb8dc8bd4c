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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"rivaas.dev/pathmap/dispatch"
)

// OutcomeMatched is the outcome attribute of a resolved lookup.
const OutcomeMatched = "matched"

// RecordLookup records one resolution. template is the matched route
// template and is ignored on failure so misses do not blow up cardinality;
// outcome is [OutcomeMatched] or the dispatch error code.
func (r *Recorder) RecordLookup(ctx context.Context, method, template string, err error, elapsed time.Duration) {
	if r == nil || r.shuttingDown.Load() {
		return
	}

	outcome := OutcomeMatched
	if err != nil {
		outcome = dispatch.CodeOf(err)
		template = ""
	}

	attrs := append(r.serviceAttrs[:len(r.serviceAttrs):len(r.serviceAttrs)],
		attribute.String("http.method", method),
		attribute.String("outcome", outcome),
	)
	r.lookupDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))

	attrs = append(attrs, attribute.String("route.template", template))
	r.lookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReload records a deployment load. routes is the size of the new
// table and only updates the gauge when err is nil.
func (r *Recorder) RecordReload(ctx context.Context, routes int, err error) {
	if r == nil || r.shuttingDown.Load() {
		return
	}

	result := "success"
	if err != nil {
		result = "failure"
	} else {
		r.routes.Record(ctx, int64(routes), metric.WithAttributes(r.serviceAttrs...))
	}

	attrs := append(r.serviceAttrs[:len(r.serviceAttrs):len(r.serviceAttrs)], attribute.String("result", result))
	r.reloads.Add(ctx, 1, metric.WithAttributes(attrs...))
}
