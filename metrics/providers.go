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
	"fmt"
	"net/url"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func (r *Recorder) initializeProvider() error {
	if r.customMeterProvider {
		r.emit(EventDebug, "Using custom meter provider")
	} else {
		var err error
		switch r.provider {
		case PrometheusProvider:
			err = r.initPrometheusProvider()
		case OTLPProvider:
			err = r.initOTLPProvider()
		case StdoutProvider:
			err = r.initStdoutProvider()
		}
		if err != nil {
			return err
		}
	}

	if r.registerGlobal {
		otel.SetMeterProvider(r.meterProvider)
	}

	return r.initializeInstruments()
}

func (r *Recorder) initPrometheusProvider() error {
	r.prometheusRegistry = promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(r.prometheusRegistry))
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	r.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	r.prometheusHandler = promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})

	return nil
}

func (r *Recorder) initOTLPProvider() error {
	var opts []otlpmetrichttp.Option
	if r.otlpEndpoint != "" {
		u, err := url.Parse(r.otlpEndpoint)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid OTLP endpoint %q", r.otlpEndpoint)
		}
		opts = append(opts, otlpmetrichttp.WithEndpoint(u.Host))
		if u.Scheme == "http" {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if u.Path != "" && u.Path != "/" {
			opts = append(opts, otlpmetrichttp.WithURLPath(u.Path))
		}
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))
	r.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return nil
}

func (r *Recorder) initStdoutProvider() error {
	w := r.stdoutWriter
	if w == nil {
		w = os.Stdout
	}
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))
	r.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return nil
}
