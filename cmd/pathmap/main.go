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

// Command pathmap loads a route table and lists, resolves or serves it.
//
// Usage:
//
//	pathmap -config routes.yaml [-config override.toml] [-env PATHMAP] [-consul key]
//	        [-routes] [-dump] [-resolve "GET /users/42"] [-write-config out.yaml]
//	        [-serve] [-addr :8080] [-log-level debug] [-log-format console] [-trace stdout]
//
// Handler references in the table are "echo" (the match as JSON),
// "static:<text>" and "status:<code>". With -serve the table is watched and
// hot reloaded when a Consul source changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rivaas.dev/pathmap/config"
	"rivaas.dev/pathmap/dispatch"
	"rivaas.dev/pathmap/logging"
	"rivaas.dev/pathmap/metrics"
	"rivaas.dev/pathmap/router"
	"rivaas.dev/pathmap/tracing"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "pathmap:", err)
		os.Exit(1)
	}
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	configs     stringList
	envPrefix   string
	consulKey   string
	routes      bool
	dump        bool
	resolve     string
	writeConfig string
	serve       bool
	addr        string
	logLevel    string
	logFormat   string
	trace       string
	noColor     bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("pathmap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Var(&o.configs, "config", "route table file (yaml, json or toml); repeat to layer overrides")
	fs.StringVar(&o.envPrefix, "env", "", "also read PREFIX_* environment variables")
	fs.StringVar(&o.consulKey, "consul", "", "also read this Consul KV key (needs CONSUL_HTTP_ADDR)")
	fs.BoolVar(&o.routes, "routes", false, "print the route table")
	fs.BoolVar(&o.dump, "dump", false, "print the compiled matcher tree to stderr")
	fs.StringVar(&o.resolve, "resolve", "", `resolve "METHOD /path" and print the match`)
	fs.StringVar(&o.writeConfig, "write-config", "", "write the merged configuration to this file")
	fs.BoolVar(&o.serve, "serve", false, "serve the route table")
	fs.StringVar(&o.addr, "addr", "", "listen address, overrides server.addr")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error; overrides logging.level")
	fs.StringVar(&o.logFormat, "log-format", "", "json, text or console; overrides logging.format")
	fs.StringVar(&o.trace, "trace", "", "noop, stdout, otlp (gRPC) or otlp-http; overrides tracing.provider and enables tracing")
	fs.BoolVar(&o.noColor, "no-color", false, "disable colors")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if len(o.configs) == 0 && o.envPrefix == "" && o.consulKey == "" {
		return nil, errors.New("no route table source, use -config, -env or -consul")
	}

	return o, nil
}

func (o *options) sources() []config.Option {
	opts := make([]config.Option, 0, len(o.configs)+3)
	for _, path := range o.configs {
		opts = append(opts, config.WithFile(path))
	}
	if o.envPrefix != "" {
		opts = append(opts, config.WithEnv(o.envPrefix))
	}
	if o.consulKey != "" {
		opts = append(opts, config.WithConsul(o.consulKey))
	}
	if o.writeConfig != "" {
		opts = append(opts, config.WithFileDumper(o.writeConfig))
	}
	return opts
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	rt, cfg, err := config.LoadRouteTable(ctx, o.sources()...)
	if err != nil {
		return fmt.Errorf("load route table: %w", err)
	}

	logger, err := newLogger(rt, o, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Shutdown(context.Background()) }()

	if o.writeConfig != "" {
		if err = cfg.Dump(ctx); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		logger.Info("configuration written", "path", o.writeConfig)
	}

	resources, err := config.BuildResources(rt, httpHandler)
	if err != nil {
		return err
	}
	dep, err := dispatch.NewDeployment(resources,
		dispatch.WithLogger(logger.Logger()),
		dispatch.WithDiagnostics(diagnosticLogger(logger)),
	)
	if err != nil {
		return err
	}

	if o.routes {
		renderRoutes(colorWriter(stdout, o.noColor), dep.Routes(), 120)
	}
	if o.dump {
		dep.Dump(stderr, 0)
	}
	if o.resolve != "" {
		if err = resolve(stdout, dep, o.resolve); err != nil {
			return err
		}
	}
	if !o.serve {
		return nil
	}

	return serve(ctx, rt, cfg, o, logger, stdout)
}

func newLogger(rt *config.RouteTable, o *options, w io.Writer) (*logging.Logger, error) {
	levelName, formatName := rt.Logging.Level, rt.Logging.Format
	if o.logLevel != "" {
		levelName = o.logLevel
	}
	if o.logFormat != "" {
		formatName = o.logFormat
	}

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	handler, err := logging.ParseHandlerType(formatName)
	if err != nil {
		return nil, err
	}

	return logging.New(
		logging.WithHandlerType(handler),
		logging.WithLevel(level),
		logging.WithOutput(w),
		logging.WithServiceName(rt.Service),
		logging.WithServiceVersion(version),
	)
}

func diagnosticLogger(logger *logging.Logger) dispatch.DiagnosticHandler {
	return dispatch.DiagnosticHandlerFunc(func(e dispatch.DiagnosticEvent) {
		args := make([]any, 0, 2+2*len(e.Fields))
		args = append(args, "kind", string(e.Kind))
		for k, v := range e.Fields {
			args = append(args, k, v)
		}
		logger.Warn(e.Message, args...)
	})
}

// resolve prints the match for a "METHOD /path" query as JSON. Misses are
// printed as {"status", "code", "error"} and are not an error of the command.
func resolve(w io.Writer, dep *dispatch.Deployment[http.Handler], query string) error {
	method, path, ok := strings.Cut(strings.TrimSpace(query), " ")
	if !ok {
		method, path = http.MethodGet, method
	}
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("resolve: path %q must start with /", path)
	}

	var out any
	res, err := dep.Resolve(method, path, "", "")
	if err != nil {
		out = map[string]any{
			"status": dispatch.StatusOf(err),
			"code":   dispatch.CodeOf(err),
			"error":  err.Error(),
		}
	} else {
		out = newMatch(strings.ToUpper(method), path, res)
	}

	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(body))
	return err
}

// server is what serve needs from either engine.
type server interface {
	Serve(addr string) error
	Shutdown(ctx context.Context) error
}

func serve(ctx context.Context, rt *config.RouteTable, cfg *config.Config, o *options, logger *logging.Logger, stdout io.Writer) error {
	rec, err := newRecorder(rt, logger)
	if err != nil {
		return err
	}
	tr, err := newTracer(rt, o, logger)
	if err != nil {
		return err
	}

	opts := []router.Option{
		router.WithLogger(logger.Logger()),
		router.WithMetrics(rec),
		router.WithTracer(tr),
		router.WithDiagnostics(diagnosticLogger(logger)),
		router.WithRequestID(),
		router.WithH2C(rt.Server.H2C),
		router.WithServerTimeouts(rt.Server.Timeouts.ReadHeader, rt.Server.Timeouts.Read,
			rt.Server.Timeouts.Write, rt.Server.Timeouts.Idle),
	}
	if rec != nil {
		if h, herr := rec.Handler(); herr == nil {
			opts = append(opts, router.WithMount(rt.Metrics.Path, h))
		}
	}

	srv, reload, err := newServer(rt, opts)
	if err != nil {
		return err
	}

	addr := rt.Server.Addr
	if o.addr != "" {
		addr = o.addr
	}
	printBanner(colorWriter(stdout, o.noColor), bannerInfo{
		service: rt.Service,
		version: version,
		addr:    addr,
		engine:  rt.Server.Engine,
		metrics: describe(rec != nil, rt.Metrics.Provider, rt.Metrics.Path),
		tracing: describe(tr != nil, string(tr.Provider()), ""),
	})

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		err := cfg.Watch(watchCtx, func(err error) {
			if err == nil {
				err = reload()
			}
			if err != nil {
				logger.Error("route table reload failed", "error", err)
				return
			}
			logger.Info("route table reloaded")
		})
		if err != nil {
			logger.Error("configuration watch stopped", "error", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(addr) }()

	select {
	case err = <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", rt.Server.Timeouts.Shutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.Server.Timeouts.Shutdown)
	defer cancel()

	err = errors.Join(
		srv.Shutdown(shutdownCtx),
		rec.Shutdown(shutdownCtx),
		tr.Shutdown(shutdownCtx),
	)
	return errors.Join(err, <-serveErr)
}

// newServer builds the router for the configured engine. reload rebuilds the
// resources from rt, which the config binding updates in place.
func newServer(rt *config.RouteTable, opts []router.Option) (server, func() error, error) {
	if rt.Server.Engine == "fasthttp" {
		resources, err := config.BuildResources(rt, fastHandler)
		if err != nil {
			return nil, nil, err
		}
		fr, err := router.NewFast(resources, opts...)
		if err != nil {
			return nil, nil, err
		}
		return fr, func() error {
			resources, err := config.BuildResources(rt, fastHandler)
			if err != nil {
				return err
			}
			return fr.Reload(resources)
		}, nil
	}

	resources, err := config.BuildResources(rt, httpHandler)
	if err != nil {
		return nil, nil, err
	}
	r, err := router.New(resources, opts...)
	if err != nil {
		return nil, nil, err
	}
	return r, func() error {
		resources, err := config.BuildResources(rt, httpHandler)
		if err != nil {
			return err
		}
		return r.Reload(resources)
	}, nil
}

func newRecorder(rt *config.RouteTable, logger *logging.Logger) (*metrics.Recorder, error) {
	if !rt.Metrics.Enabled {
		return nil, nil
	}

	opts := []metrics.Option{
		metrics.WithServiceName(rt.Service),
		metrics.WithServiceVersion(version),
		metrics.WithLogger(logger.Logger()),
	}
	switch metrics.Provider(rt.Metrics.Provider) {
	case metrics.OTLPProvider:
		opts = append(opts, metrics.WithOTLP(rt.Metrics.Endpoint))
	case metrics.StdoutProvider:
		opts = append(opts, metrics.WithStdout(nil), metrics.WithExportInterval(10*time.Second))
	default:
		opts = append(opts, metrics.WithPrometheus())
	}

	return metrics.New(opts...)
}

func newTracer(rt *config.RouteTable, o *options, logger *logging.Logger) (*tracing.Tracer, error) {
	providerName := rt.Tracing.Provider
	enabled := rt.Tracing.Enabled
	if o.trace != "" {
		providerName, enabled = o.trace, true
	}
	if !enabled {
		return nil, nil
	}

	provider, err := tracing.ParseProvider(providerName)
	if err != nil {
		return nil, err
	}

	return tracing.New(
		tracing.WithProvider(provider, rt.Tracing.Endpoint),
		tracing.WithServiceName(rt.Service),
		tracing.WithServiceVersion(version),
		tracing.WithSampleRate(rt.Tracing.SampleRate),
		tracing.WithLogger(logger.Logger()),
	)
}

func describe(enabled bool, provider, path string) string {
	if !enabled {
		return ""
	}
	if path != "" {
		return provider + " " + path
	}
	return provider
}

var (
	_ server = (*router.Router)(nil)
	_ server = (*router.FastRouter)(nil)
)
