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
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"rivaas.dev/pathmap/dispatch"
)

func newRecordingTracer(t *testing.T, opts ...Option) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tr, err := New(append([]Option{WithTracerProvider(tp)}, opts...)...)
	require.NoError(t, err)

	return tr, sr
}

func attrMap(kvs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     []Option
		wantErr  string
		provider Provider
	}{
		{name: "default noop", provider: NoopProvider},
		{name: "stdout", opts: []Option{WithStdout(&bytes.Buffer{})}, provider: StdoutProvider},
		{name: "otlp grpc", opts: []Option{WithOTLP("localhost:4317", OTLPInsecure())}, provider: OTLPProvider},
		{name: "otlp http", opts: []Option{WithOTLPHTTP("http://localhost:4318/v1/traces")}, provider: OTLPHTTPProvider},
		{name: "otlp grpc by name", opts: []Option{WithProvider(OTLPProvider, "http://localhost:4317")}, provider: OTLPProvider},
		{name: "otlp conflict", opts: []Option{WithOTLP(""), WithOTLPHTTP("")}, wantErr: "conflicting provider options"},
		{name: "by name", opts: []Option{WithProvider(StdoutProvider, "")}, provider: StdoutProvider},
		{name: "conflict", opts: []Option{WithNoop(), WithStdout(nil)}, wantErr: "conflicting provider options"},
		{name: "empty service", opts: []Option{WithServiceName("")}, wantErr: "service name cannot be empty"},
		{name: "sample rate high", opts: []Option{WithSampleRate(1.5)}, wantErr: "sample rate must be between"},
		{name: "sample rate negative", opts: []Option{WithSampleRate(-0.1)}, wantErr: "sample rate must be between"},
		{name: "nil propagator", opts: []Option{WithPropagator(nil)}, wantErr: "propagator cannot be nil"},
		{name: "unknown provider", opts: []Option{WithProvider("jaeger", "")}, wantErr: "unsupported tracing provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr, err := New(tt.opts...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, tr.Provider())
			assert.NoError(t, tr.Shutdown(context.Background()))
		})
	}
}

func TestParseProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{in: "", want: NoopProvider},
		{in: "none", want: NoopProvider},
		{in: "noop", want: NoopProvider},
		{in: "stdout", want: StdoutProvider},
		{in: "otlp", want: OTLPProvider},
		{in: "otlp-http", want: OTLPHTTPProvider},
		{in: "zipkin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTracer_MatchedRequest(t *testing.T) {
	t.Parallel()

	tr, sr := newRecordingTracer(t, WithServiceName("orders"))

	ctx, span := tr.Start(context.Background(), http.Header{}, http.MethodGet, "/users/42")
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))

	tr.RecordMatch(span, http.MethodGet, "/users/{id}", map[string]string{"id": "42"})
	tr.Finish(span, http.StatusOK)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "GET /users/{id}", got.Name())
	assert.Equal(t, codes.Unset, got.Status().Code)

	attrs := attrMap(got.Attributes())
	assert.Equal(t, "/users/{id}", attrs["http.route"])
	assert.Equal(t, "42", attrs["route.param.id"])
	assert.Equal(t, "/users/42", attrs["url.path"])
	assert.Equal(t, "orders", attrs["service.name"])
	assert.Equal(t, "200", attrs["http.response.status_code"])
}

func TestTracer_WithoutParams(t *testing.T) {
	t.Parallel()

	tr, sr := newRecordingTracer(t, WithoutParams())

	_, span := tr.Start(context.Background(), http.Header{}, http.MethodGet, "/users/42")
	tr.RecordMatch(span, http.MethodGet, "/users/{id}", map[string]string{"id": "42"})
	tr.Finish(span, http.StatusOK)

	require.Len(t, sr.Ended(), 1)
	_, ok := attrMap(sr.Ended()[0].Attributes())["route.param.id"]
	assert.False(t, ok)
}

func TestTracer_RecordError(t *testing.T) {
	t.Parallel()

	tr, sr := newRecordingTracer(t)

	_, span := tr.Start(context.Background(), http.Header{}, http.MethodPut, "/users/42")
	tr.RecordError(span, &dispatch.MethodNotAllowedError{Allow: []string{http.MethodGet}})
	tr.Finish(span, http.StatusMethodNotAllowed)

	require.Len(t, sr.Ended(), 1)
	got := sr.Ended()[0]
	assert.Equal(t, ResolveSpanName, got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "method_not_allowed", attrMap(got.Attributes())["route.outcome"])
	require.NotEmpty(t, got.Events())
	assert.Equal(t, "exception", got.Events()[0].Name)
}

func TestTracer_ServerError(t *testing.T) {
	t.Parallel()

	tr, sr := newRecordingTracer(t)

	_, span := tr.Start(context.Background(), http.Header{}, http.MethodGet, "/")
	tr.Finish(span, http.StatusBadGateway)

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, codes.Error, sr.Ended()[0].Status().Code)
}

func TestTracer_Propagation(t *testing.T) {
	t.Parallel()

	tr, sr := newRecordingTracer(t)

	parentCtx, parent := tr.Start(context.Background(), http.Header{}, http.MethodGet, "/upstream")
	header := http.Header{}
	tr.Inject(parentCtx, header)
	require.NotEmpty(t, header.Get("traceparent"))

	ctx, child := tr.Start(context.Background(), header, http.MethodGet, "/downstream")
	assert.Equal(t, TraceID(parentCtx), TraceID(ctx))
	tr.Finish(child, http.StatusOK)
	tr.Finish(parent, http.StatusOK)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestTracer_CancelledContext(t *testing.T) {
	t.Parallel()

	tr, sr := newRecordingTracer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, span := tr.Start(ctx, http.Header{}, http.MethodGet, "/")
	assert.False(t, span.IsRecording())
	tr.Finish(span, http.StatusOK)
	assert.Empty(t, sr.Ended())
}

func TestTracer_Nil(t *testing.T) {
	t.Parallel()

	var tr *Tracer
	assert.NotPanics(t, func() {
		ctx, span := tr.Start(context.Background(), http.Header{}, http.MethodGet, "/")
		tr.RecordMatch(span, http.MethodGet, "/", nil)
		tr.RecordError(span, dispatch.ErrNotFound)
		tr.Finish(span, http.StatusNotFound)
		tr.Inject(ctx, http.Header{})
		_ = tr.Shutdown(ctx)
	})
	assert.Empty(t, TraceID(context.Background()))
	assert.Empty(t, SpanID(context.Background()))
}

func TestTracer_StdoutExport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr := MustNew(WithStdout(&buf), WithServiceName("orders"))

	_, span := tr.Start(context.Background(), http.Header{}, http.MethodGet, "/users/1")
	tr.RecordMatch(span, http.MethodGet, "/users/{id}", map[string]string{"id": "1"})
	tr.Finish(span, http.StatusOK)
	require.NoError(t, tr.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "GET /users/{id}")
	assert.Contains(t, buf.String(), "route.param.id")
}

func TestTracer_ZeroSampleRate(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr := MustNew(WithStdout(&buf), WithSampleRate(0))

	_, span := tr.Start(context.Background(), http.Header{}, http.MethodGet, "/")
	assert.False(t, span.IsRecording())
	tr.Finish(span, http.StatusOK)
	require.NoError(t, tr.Shutdown(context.Background()))
	assert.Empty(t, buf.String())
}

func TestOTLPOptions(t *testing.T) {
	t.Parallel()

	assert.Empty(t, otlpOptions(""))
	assert.Len(t, otlpOptions("http://collector:4318"), 2)
	assert.Len(t, otlpOptions("https://collector:4318/v1/traces"), 2)
	assert.Len(t, otlpOptions("collector:4318"), 1)
}

func TestGRPCOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		insecure bool
		want     int
	}{
		{name: "defaults", want: 0},
		{name: "insecure only", insecure: true, want: 1},
		{name: "host port", endpoint: "collector:4317", want: 1},
		{name: "http scheme is plaintext", endpoint: "http://collector:4317", want: 2},
		{name: "https scheme", endpoint: "https://collector:4317/", want: 1},
		{name: "explicit insecure", endpoint: "collector:4317", insecure: true, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Len(t, grpcOptions(tt.endpoint, tt.insecure), tt.want)
		})
	}
}

func TestMustNew_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustNew(WithSampleRate(2)) })
}
