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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"rivaas.dev/pathmap/dispatch"
	rerrors "rivaas.dev/pathmap/errors"
)

// ErrResponseWriterNotHijacker indicates that ResponseWriter does not implement http.Hijacker.
var ErrResponseWriterNotHijacker = errors.New("responseWriter does not implement http.Hijacker")

// Result is a request resolved by [Router].
type Result = dispatch.Result[http.Handler]

// Router is an http.Handler backed by a hot-swappable deployment.
// It is safe for concurrent use.
type Router struct {
	*settings

	dispatcher *dispatch.Dispatcher[http.Handler]

	serverMu sync.Mutex
	server   *http.Server
	closed   bool // set by Shutdown; later Serve calls return at once
}

// New builds a router serving resources.
func New(resources []dispatch.Resource[http.Handler], opts ...Option) (*Router, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}

	r := &Router{
		settings:   s,
		dispatcher: dispatch.NewDispatcher[http.Handler](s.dispatchOptions()...),
	}
	if err = r.Reload(resources); err != nil {
		return nil, err
	}

	return r, nil
}

// MustNew is like [New] but panics on error.
func MustNew(resources []dispatch.Resource[http.Handler], opts ...Option) *Router {
	r, err := New(resources, opts...)
	if err != nil {
		panic(fmt.Sprintf("router: %v", err))
	}
	return r
}

// Reload builds a deployment from resources and swaps it in. In-flight
// requests finish on the previous deployment. On error nothing changes.
func (r *Router) Reload(resources []dispatch.Resource[http.Handler]) error {
	err := r.dispatcher.Load(resources)
	routes := 0
	if err == nil {
		routes = len(r.dispatcher.Current().Routes())
	}
	r.metrics.RecordReload(context.Background(), routes, err)
	if err != nil {
		r.logger.Error("route table rejected", "error", err)
		return err
	}

	r.logger.Info("route table loaded", "resources", len(resources), "routes", routes)

	return nil
}

// Routes lists the registered methods.
func (r *Router) Routes() []dispatch.Route {
	return r.dispatcher.Current().Routes()
}

// Dump writes the route tree to w.
func (r *Router) Dump(w io.Writer) {
	r.dispatcher.Current().Dump(w, 0)
}

// Resolve resolves a request without serving it.
func (r *Router) Resolve(req *http.Request) (*Result, error) {
	return r.dispatcher.Resolve(req.Method, req.URL.EscapedPath(),
		req.Header.Get("Content-Type"), req.Header.Get("Accept"))
}

// ServeHTTP resolves req and calls the matched method's handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if h, ok := r.mounts[req.URL.Path]; ok {
		h.ServeHTTP(w, req)
		return
	}

	req = r.withRequestID(w, req)
	ctx, span := r.tracer.Start(req.Context(), req.Header, req.Method, req.URL.Path)
	start := time.Now()
	res, err := r.Resolve(req)
	elapsed := time.Since(start)

	if err != nil {
		r.metrics.RecordLookup(ctx, req.Method, "", err, elapsed)
		r.tracer.RecordError(span, err)
		r.logger.Debug("route not resolved", "method", req.Method, "path", req.URL.Path, "error", err)

		rw := &responseWriter{ResponseWriter: w}
		if r.notFound != nil && errors.Is(err, dispatch.ErrNotFound) {
			r.notFound.ServeHTTP(rw, req.WithContext(ctx))
		} else {
			r.writeError(rw, req, err)
		}
		r.tracer.Finish(span, rw.StatusCode())

		return
	}

	template := res.Template()
	r.metrics.RecordLookup(ctx, req.Method, template, nil, elapsed)
	r.tracer.RecordMatch(span, req.Method, template, res.Params())
	r.logger.Debug("route resolved", "method", req.Method, "path", req.URL.Path, "template", template)

	if res.IsOptions() {
		w.Header().Set("Allow", strings.Join(res.Allow, ", "))
		w.WriteHeader(http.StatusNoContent)
		r.tracer.Finish(span, http.StatusNoContent)

		return
	}

	rw := &responseWriter{ResponseWriter: w}
	r.invoke(rw, req.WithContext(context.WithValue(ctx, resultKey{}, res)), res.Handler)
	r.tracer.Finish(span, rw.StatusCode())
}

func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := dispatch.StatusOf(err)
	resp := r.formatter.Format(req.URL.Path, rerrors.WithCode(err, status, dispatch.CodeOf(err)))
	if werr := rerrors.Write(w, resp); werr != nil {
		r.logger.Warn("failed to write error response", "error", werr)
	}
}

// responseWriter captures the status code and size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

// WriteHeader captures the status code and drops duplicate calls.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// StatusCode returns the status written, 200 when nothing was written.
func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

func (rw *responseWriter) Size() int64 { return rw.size }

// Hijack implements http.Hijacker.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, ErrResponseWriterNotHijacker
}

// Flush implements http.Flusher.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
