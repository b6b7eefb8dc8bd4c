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
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Handler returns r, wrapped for h2c when [WithH2C] is set.
func (r *Router) Handler() http.Handler {
	if r.enableH2C {
		return h2c.NewHandler(r, &http2.Server{})
	}
	return r
}

func (r *Router) newServer(addr string, h http.Handler) *http.Server {
	timeouts := r.timeouts()
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: timeouts.readHeader,
		ReadTimeout:       timeouts.read,
		WriteTimeout:      timeouts.write,
		IdleTimeout:       timeouts.idle,
	}

	r.serverMu.Lock()
	defer r.serverMu.Unlock()
	if r.closed {
		return nil
	}
	r.server = srv

	return srv
}

// Serve listens on addr until [Router.Shutdown]. It returns nil after a
// graceful shutdown.
func (r *Router) Serve(addr string) error {
	if r.enableH2C {
		r.logger.Warn("H2C enabled; use only in dev or behind a trusted LB")
	}
	srv := r.newServer(addr, r.Handler())
	if srv == nil {
		return nil
	}
	r.logger.Info("server listening", "addr", addr, "h2c", r.enableH2C)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeTLS is like [Router.Serve] over TLS. HTTP/2 is negotiated by the
// standard library, h2c is not used.
func (r *Router) ServeTLS(addr, certFile, keyFile string) error {
	srv := r.newServer(addr, r)
	if srv == nil {
		return nil
	}
	r.logger.Info("server listening", "addr", addr, "tls", true)

	if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server started by Serve or ServeTLS.
func (r *Router) Shutdown(ctx context.Context) error {
	r.serverMu.Lock()
	srv := r.server
	r.server = nil
	r.closed = true
	r.serverMu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}
