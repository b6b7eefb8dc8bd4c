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

package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"rivaas.dev/pathmap/dispatch"
	rerrors "rivaas.dev/pathmap/errors"
)

// FastResult is a request resolved by [FastRouter].
type FastResult = dispatch.Result[fasthttp.RequestHandler]

// ResultUserValue is the fasthttp user value key holding the *FastResult.
// Path parameters are stored under their own names.
const ResultUserValue = "pathmap.result"

// FastRouter serves a deployment of fasthttp handlers.
// It is safe for concurrent use.
type FastRouter struct {
	*settings

	dispatcher *dispatch.Dispatcher[fasthttp.RequestHandler]

	serverMu sync.Mutex
	server   *fasthttp.Server
	closed   bool
}

// NewFast builds a fasthttp router serving resources. [WithH2C] and
// [WithNotFoundHandler] do not apply.
func NewFast(resources []dispatch.Resource[fasthttp.RequestHandler], opts ...Option) (*FastRouter, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}

	f := &FastRouter{
		settings:   s,
		dispatcher: dispatch.NewDispatcher[fasthttp.RequestHandler](s.dispatchOptions()...),
	}
	if err = f.Reload(resources); err != nil {
		return nil, err
	}

	return f, nil
}

// Reload swaps in a deployment built from resources.
func (f *FastRouter) Reload(resources []dispatch.Resource[fasthttp.RequestHandler]) error {
	err := f.dispatcher.Load(resources)
	routes := 0
	if err == nil {
		routes = len(f.dispatcher.Current().Routes())
	}
	f.metrics.RecordReload(context.Background(), routes, err)
	if err != nil {
		f.logger.Error("route table rejected", "error", err)
		return err
	}

	f.logger.Info("route table loaded", "resources", len(resources), "routes", routes)

	return nil
}

// Routes lists the registered methods.
func (f *FastRouter) Routes() []dispatch.Route {
	return f.dispatcher.Current().Routes()
}

// FastResultFromContext returns the result stored by [FastRouter.Handler].
func FastResultFromContext(ctx *fasthttp.RequestCtx) (*FastResult, bool) {
	res, ok := ctx.UserValue(ResultUserValue).(*FastResult)
	return res, ok
}

// Handler is the fasthttp.RequestHandler of the router.
func (f *FastRouter) Handler(ctx *fasthttp.RequestCtx) {
	method := string(ctx.Method())
	path := string(ctx.URI().PathOriginal())
	if path == "" {
		path = "/"
	}

	if h, ok := f.mounts[string(ctx.Path())]; ok {
		f.serveMount(ctx, h)
		return
	}

	f.fastRequestID(ctx)
	spanCtx, span := f.tracer.Start(context.Background(), f.traceHeader(ctx), method, path)
	start := time.Now()
	res, err := f.dispatcher.Resolve(method, path,
		string(ctx.Request.Header.ContentType()), string(ctx.Request.Header.Peek(fasthttp.HeaderAccept)))
	elapsed := time.Since(start)

	if err != nil {
		f.metrics.RecordLookup(spanCtx, method, "", err, elapsed)
		f.tracer.RecordError(span, err)
		f.logger.Debug("route not resolved", "method", method, "path", path, "error", err)
		f.writeError(ctx, path, err)
		f.tracer.Finish(span, ctx.Response.StatusCode())

		return
	}

	template := res.Template()
	f.metrics.RecordLookup(spanCtx, method, template, nil, elapsed)
	f.tracer.RecordMatch(span, method, template, res.Params())
	f.logger.Debug("route resolved", "method", method, "path", path, "template", template)

	if res.IsOptions() {
		ctx.Response.Header.Set(fasthttp.HeaderAllow, strings.Join(res.Allow, ", "))
		ctx.SetStatusCode(fasthttp.StatusNoContent)
		f.tracer.Finish(span, fasthttp.StatusNoContent)

		return
	}

	for name, value := range res.Params() {
		ctx.SetUserValue(name, value)
	}
	ctx.SetUserValue(ResultUserValue, res)
	f.invoke(ctx, path, res.Handler)
	f.tracer.Finish(span, ctx.Response.StatusCode())
}

// traceHeader copies the propagation headers of ctx.
func (f *FastRouter) traceHeader(ctx *fasthttp.RequestCtx) http.Header {
	if f.tracer == nil {
		return nil
	}

	h := http.Header{}
	for _, key := range f.tracer.Propagator().Fields() {
		if v := ctx.Request.Header.Peek(key); len(v) > 0 {
			h.Set(key, string(v))
		}
	}
	return h
}

func (f *FastRouter) writeError(ctx *fasthttp.RequestCtx, path string, err error) {
	status := dispatch.StatusOf(err)
	resp := f.formatter.Format(path, rerrors.WithCode(err, status, dispatch.CodeOf(err)))

	data, encErr := rerrors.Encode(resp.Body)
	if encErr != nil {
		f.logger.Warn("failed to encode error response", "error", encErr)
		ctx.Error(http.StatusText(http.StatusInternalServerError), fasthttp.StatusInternalServerError)
		return
	}

	for k, values := range resp.Headers {
		for _, v := range values {
			ctx.Response.Header.Add(k, v)
		}
	}
	ctx.Response.Header.Set("X-Content-Type-Options", "nosniff")
	ctx.SetContentType(resp.ContentType)
	ctx.SetStatusCode(resp.Status)
	ctx.SetBody(data)
}

// serveMount serves a net/http handler from fasthttp. Only the status,
// headers and body are carried over.
func (f *FastRouter) serveMount(ctx *fasthttp.RequestCtx, h http.Handler) {
	req, err := http.NewRequestWithContext(context.Background(), string(ctx.Method()), string(ctx.RequestURI()), nil)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusBadRequest)
		return
	}
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		req.Header.Add(string(k), string(v))
	})

	rw := &bufferedWriter{header: http.Header{}}
	h.ServeHTTP(rw, req)

	for k, values := range rw.header {
		for _, v := range values {
			ctx.Response.Header.Add(k, v)
		}
	}
	ctx.SetStatusCode(rw.StatusCode())
	ctx.SetBody(rw.body)
}

// bufferedWriter is a minimal http.ResponseWriter for mounted handlers.
type bufferedWriter struct {
	header http.Header
	status int
	body   []byte
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.body = append(w.body, b...)
	return len(b), nil
}

func (w *bufferedWriter) StatusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Serve listens on addr until [FastRouter.Shutdown].
func (f *FastRouter) Serve(addr string) error {
	timeouts := f.timeouts()
	srv := &fasthttp.Server{
		Handler:      f.Handler,
		Name:         "pathmap",
		ReadTimeout:  timeouts.read,
		WriteTimeout: timeouts.write,
		IdleTimeout:  timeouts.idle,
	}

	f.serverMu.Lock()
	if f.closed {
		f.serverMu.Unlock()
		return nil
	}
	f.server = srv
	f.serverMu.Unlock()

	f.logger.Info("server listening", "addr", addr, "engine", "fasthttp")
	if err := srv.ListenAndServe(addr); err != nil && !errors.Is(err, fasthttp.ErrConnectionClosed) {
		return fmt.Errorf("fasthttp serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server started by Serve.
func (f *FastRouter) Shutdown(ctx context.Context) error {
	f.serverMu.Lock()
	srv := f.server
	f.server = nil
	f.closed = true
	f.serverMu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.ShutdownWithContext(ctx)
}
