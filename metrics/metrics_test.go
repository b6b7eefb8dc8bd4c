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
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"rivaas.dev/pathmap/dispatch"
)

func newManualRecorder(t *testing.T, opts ...Option) (*Recorder, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	rec, err := New(append([]Option{WithMeterProvider(mp)}, opts...)...)
	require.NoError(t, err)

	return rec, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}
	t.Fatalf("metric %s not collected", name)

	return nil
}

func attr(set attribute.Set, key string) string {
	v, _ := set.Value(attribute.Key(key))
	return v.AsString()
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     []Option
		wantErr  string
		provider Provider
	}{
		{name: "default prometheus", provider: PrometheusProvider},
		{name: "stdout", opts: []Option{WithStdout(io.Discard)}, provider: StdoutProvider},
		{name: "otlp", opts: []Option{WithOTLP("http://localhost:4318")}, provider: OTLPProvider},
		{name: "otlp without endpoint", opts: []Option{WithOTLP("")}, provider: OTLPProvider},
		{
			name:    "conflicting providers",
			opts:    []Option{WithPrometheus(), WithStdout(io.Discard)},
			wantErr: "conflicting provider options",
		},
		{name: "empty service name", opts: []Option{WithServiceName("")}, wantErr: "service name cannot be empty"},
		{name: "empty buckets", opts: []Option{WithDurationBuckets()}, wantErr: "duration buckets cannot be empty"},
		{name: "zero interval", opts: []Option{WithExportInterval(0)}, wantErr: "export interval must be positive"},
		{name: "bad otlp endpoint", opts: []Option{WithOTLP("://nope")}, wantErr: "invalid OTLP endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec, err := New(tt.opts...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()
				_ = rec.Shutdown(ctx)
			})
			assert.Equal(t, tt.provider, rec.Provider())
		})
	}
}

func TestMustNew_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustNew(WithServiceName("")) })
}

func TestRecordLookup(t *testing.T) {
	t.Parallel()

	rec, reader := newManualRecorder(t, WithServiceName("orders"))
	ctx := context.Background()

	rec.RecordLookup(ctx, http.MethodGet, "/users/{id}", nil, 10*time.Microsecond)
	rec.RecordLookup(ctx, http.MethodGet, "/users/{id}", nil, 20*time.Microsecond)
	rec.RecordLookup(ctx, http.MethodGet, "/nowhere", dispatch.ErrNotFound, time.Microsecond)

	sum, ok := collect(t, reader, "pathmap_lookups_total").(metricdata.Sum[int64])
	require.True(t, ok)

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		assert.Equal(t, "orders", attr(dp.Attributes, "service.name"))
		counts[attr(dp.Attributes, "outcome")+" "+attr(dp.Attributes, "route.template")] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		"matched /users/{id}": 2,
		"not_found ":          1,
	}, counts)

	hist, ok := collect(t, reader, "pathmap_lookup_duration_seconds").(metricdata.Histogram[float64])
	require.True(t, ok)
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	assert.Equal(t, uint64(3), total)
}

func TestRecordReload(t *testing.T) {
	t.Parallel()

	rec, reader := newManualRecorder(t)
	ctx := context.Background()

	rec.RecordReload(ctx, 7, nil)
	rec.RecordReload(ctx, 99, errors.New("bad table"))

	gauge, ok := collect(t, reader, "pathmap_deployment_routes").(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(7), gauge.DataPoints[0].Value)

	sum, ok := collect(t, reader, "pathmap_deployment_reloads_total").(metricdata.Sum[int64])
	require.True(t, ok)
	results := map[string]int64{}
	for _, dp := range sum.DataPoints {
		results[attr(dp.Attributes, "result")] = dp.Value
	}
	assert.Equal(t, map[string]int64{"success": 1, "failure": 1}, results)
}

func TestNilRecorder(t *testing.T) {
	t.Parallel()

	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.RecordLookup(context.Background(), http.MethodGet, "/", nil, time.Millisecond)
		rec.RecordReload(context.Background(), 1, nil)
	})
}

func TestPrometheusHandler(t *testing.T) {
	t.Parallel()

	rec := MustNew(WithServiceName("orders"))
	t.Cleanup(func() { _ = rec.Shutdown(context.Background()) })

	rec.RecordLookup(context.Background(), http.MethodGet, "/users", nil, time.Microsecond)
	rec.RecordReload(context.Background(), 3, nil)

	h, err := rec.Handler()
	require.NoError(t, err)

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rw.Code)

	body := rw.Body.String()
	assert.Contains(t, body, "pathmap_lookups_total")
	assert.Contains(t, body, "pathmap_lookup_duration_seconds_bucket")
	assert.Contains(t, body, "pathmap_deployment_routes")
	assert.Contains(t, body, `route_template="/users"`)
}

func TestHandler_NonPrometheus(t *testing.T) {
	t.Parallel()

	rec, _ := newManualRecorder(t)
	_, err := rec.Handler()
	require.Error(t, err)
	assert.Equal(t, Provider(""), rec.Provider())
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	var events []Event
	rec, reader := newManualRecorder(t, WithEventHandler(func(e Event) { events = append(events, e) }))

	require.NoError(t, rec.Shutdown(context.Background()))
	require.NoError(t, rec.Shutdown(context.Background()))
	require.NoError(t, rec.ForceFlush(context.Background()))

	// Recording after shutdown is a no-op and the custom provider still works.
	rec.RecordReload(context.Background(), 1, nil)
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			assert.NotEqual(t, "pathmap_deployment_reloads_total", m.Name)
		}
	}
	assert.NotEmpty(t, events)
}

func TestDefaultEventHandler(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		DefaultEventHandler(nil)(Event{Type: EventError, Message: "ignored"})
	})
}
