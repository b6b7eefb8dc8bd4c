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
	"crypto/rand"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/valyala/fasthttp"
)

// RequestIDHeader is the default request ID header.
const RequestIDHeader = "X-Request-ID"

// RequestIDUserValue is the fasthttp user value holding the request ID.
const RequestIDUserValue = "pathmap.request_id"

type requestIDKey struct{}

// RequestIDOption configures [WithRequestID].
type RequestIDOption func(*requestIDConfig)

type requestIDConfig struct {
	header        string
	generate      func() string
	allowClientID bool
}

// WithRequestIDHeader reads and writes the request ID in name instead of
// X-Request-ID.
func WithRequestIDHeader(name string) RequestIDOption {
	return func(c *requestIDConfig) { c.header = name }
}

// WithULID generates lexicographically sortable ULIDs instead of UUIDv7.
func WithULID() RequestIDOption {
	return func(c *requestIDConfig) { c.generate = generateULID }
}

// WithRequestIDGenerator generates IDs with fn.
func WithRequestIDGenerator(fn func() string) RequestIDOption {
	return func(c *requestIDConfig) { c.generate = fn }
}

// WithoutClientID always generates a new ID, ignoring the request header.
func WithoutClientID() RequestIDOption {
	return func(c *requestIDConfig) { c.allowClientID = false }
}

func newRequestIDConfig(opts []RequestIDOption) *requestIDConfig {
	c := &requestIDConfig{
		header:        RequestIDHeader,
		generate:      generateUUIDv7,
		allowClientID: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *requestIDConfig) id(client string) string {
	if c.allowClientID && client != "" {
		return client
	}
	return c.generate()
}

func generateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

var (
	ulidEntropy     = ulid.Monotonic(rand.Reader, 0)
	ulidEntropyLock sync.Mutex
)

func generateULID() string {
	ulidEntropyLock.Lock()
	defer ulidEntropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// withRequestID tags req and w with a request ID when enabled.
func (s *settings) withRequestID(w http.ResponseWriter, req *http.Request) *http.Request {
	if s.requestID == nil {
		return req
	}
	id := s.requestID.id(req.Header.Get(s.requestID.header))
	w.Header().Set(s.requestID.header, id)
	return req.WithContext(context.WithValue(req.Context(), requestIDKey{}, id))
}

func (s *settings) fastRequestID(ctx *fasthttp.RequestCtx) {
	if s.requestID == nil {
		return
	}
	id := s.requestID.id(string(ctx.Request.Header.Peek(s.requestID.header)))
	ctx.Response.Header.Set(s.requestID.header, id)
	ctx.SetUserValue(RequestIDUserValue, id)
}

// RequestID returns the request ID stored by [WithRequestID], or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FastRequestID returns the request ID stored by [WithRequestID], or "".
func FastRequestID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue(RequestIDUserValue).(string)
	return id
}

// PanicError is reported for a handler that panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// invoke runs h and turns a panic into a 500 response when recovery is on.
func (r *Router) invoke(rw *responseWriter, req *http.Request, h http.Handler) {
	if r.recovery {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			r.logPanic(req.Method, req.URL.Path, v)
			if !rw.written {
				r.writeError(rw, req, &PanicError{Value: v})
			}
		}()
	}
	h.ServeHTTP(rw, req)
}

func (f *FastRouter) invoke(ctx *fasthttp.RequestCtx, path string, h fasthttp.RequestHandler) {
	if f.recovery {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			f.logPanic(string(ctx.Method()), path, v)
			ctx.Response.Reset()
			f.writeError(ctx, path, &PanicError{Value: v})
		}()
	}
	h(ctx)
}

func (s *settings) logPanic(method, path string, v any) {
	args := []any{"method", method, "path", path, "panic", v}
	if s.stackTrace {
		args = append(args, "stack", string(debug.Stack()))
	}
	s.logger.Error("handler panic recovered", args...)
}
