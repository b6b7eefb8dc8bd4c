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
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace/noop"
)

func (t *Tracer) initializeProvider() error {
	switch {
	case t.customTracerProvider:
		t.emit(EventDebug, "Using custom user-provided tracer provider")
	case t.provider == NoopProvider:
		t.tracerProvider = noop.NewTracerProvider()
	default:
		exporter, err := t.newExporter()
		if err != nil {
			return err
		}
		t.sdkProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(createResource(t.serviceName, t.serviceVersion)),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(t.sampleRate))),
		)
		t.tracerProvider = t.sdkProvider
		t.emit(EventInfo, "Tracing initialized", "provider", string(t.provider), "service", t.serviceName)
	}

	if t.registerGlobal {
		t.emit(EventDebug, "Setting global OpenTelemetry tracer provider", "provider", string(t.provider))
		otel.SetTracerProvider(t.tracerProvider)
		otel.SetTextMapPropagator(t.propagator)
	}

	t.tracer = t.tracerProvider.Tracer(tracerName)

	return nil
}

func (t *Tracer) newExporter() (sdktrace.SpanExporter, error) {
	switch t.provider {
	case StdoutProvider:
		w := t.stdoutWriter
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exporter, nil
	case OTLPProvider:
		exporter, err := otlptracegrpc.New(context.Background(), grpcOptions(t.otlpEndpoint, t.otlpInsecure)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
		}
		return exporter, nil
	case OTLPHTTPProvider:
		exporter, err := otlptracehttp.New(context.Background(), otlpOptions(t.otlpEndpoint)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
		}
		return exporter, nil
	default:
		return nil, fmt.Errorf("unsupported tracing provider: %s", t.provider)
	}
}

// grpcOptions turns an endpoint into gRPC exporter options. The gRPC exporter
// takes a bare host:port, so a scheme is stripped; http:// means plaintext.
func grpcOptions(endpoint string, insecure bool) []otlptracegrpc.Option {
	if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint, insecure = trimmed, true
	} else if trimmed, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = trimmed
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	var opts []otlptracegrpc.Option
	if endpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))
	}
	if insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	return opts
}

// otlpOptions splits an endpoint URL into the host and TLS options the
// exporter expects.
func otlpOptions(endpoint string) []otlptracehttp.Option {
	if endpoint == "" {
		return nil
	}

	insecure := false
	if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint = trimmed
		insecure = true
	} else if trimmed, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = trimmed
	}

	var opts []otlptracehttp.Option
	if host, path, found := strings.Cut(endpoint, "/"); found {
		endpoint = host
		opts = append(opts, otlptracehttp.WithURLPath("/"+path))
	}
	opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	return opts
}

func createResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}
