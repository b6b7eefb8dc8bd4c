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
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/pathmap/dispatch"
	rerrors "rivaas.dev/pathmap/errors"
)

// echoParams writes "<name>:<params>" so tests can see which method ran.
func echoParams(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		res, ok := ResultFromContext(req.Context())
		if !ok {
			http.Error(w, "no result", http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-Route", name)
		w.Header().Set("X-Template", res.Template())
		_, _ = w.Write([]byte(name + ":" + Param(req, "id") + Remaining(req)))
	})
}

func testResources() []dispatch.Resource[http.Handler] {
	return []dispatch.Resource[http.Handler]{
		{
			Path: "/users",
			Name: "Users",
			Methods: []dispatch.Method[http.Handler]{
				{HTTPMethod: http.MethodGet, Name: "list", Handler: echoParams("list")},
				{HTTPMethod: http.MethodPost, Name: "create", Consumes: []string{"application/json"}, Handler: echoParams("create")},
				{HTTPMethod: http.MethodGet, Path: "/{id}", Name: "get", Produces: []string{"application/json"}, Handler: echoParams("get")},
				{HTTPMethod: http.MethodDelete, Path: "/{id}", Name: "delete", Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				})},
				{Path: "/{id}/files", Name: "files", Handler: echoParams("files")},
			},
		},
	}
}

func newTestRouter(t *testing.T, opts ...Option) *Router {
	t.Helper()

	r, err := New(testResources(), opts...)
	require.NoError(t, err)
	return r
}

func TestRouter_ServeHTTP(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	tests := []struct {
		name         string
		method       string
		path         string
		header       http.Header
		wantStatus   int
		wantBody     string
		wantTemplate string
	}{
		{name: "list", method: http.MethodGet, path: "/users", wantStatus: http.StatusOK, wantBody: "list:", wantTemplate: "/users"},
		{name: "param", method: http.MethodGet, path: "/users/42", wantStatus: http.StatusOK, wantBody: "get:42", wantTemplate: "/users/{id}"},
		{name: "escaped param", method: http.MethodGet, path: "/users/a%2Fb", wantStatus: http.StatusOK, wantBody: "get:a/b", wantTemplate: "/users/{id}"},
		{name: "head uses get", method: http.MethodHead, path: "/users/42", wantStatus: http.StatusOK, wantTemplate: "/users/{id}"},
		{name: "handler status", method: http.MethodDelete, path: "/users/42", wantStatus: http.StatusNoContent},
		{name: "locator", method: http.MethodPatch, path: "/users/42/files/a/b", wantStatus: http.StatusOK, wantBody: "files:42/a/b", wantTemplate: "/users/{id}/files"},
		{
			name:       "consumes",
			method:     http.MethodPost,
			path:       "/users",
			header:     http.Header{"Content-Type": {"application/json"}},
			wantStatus: http.StatusOK,
			wantBody:   "create:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.header {
				req.Header[k] = v
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			if tt.wantTemplate != "" {
				assert.Equal(t, tt.wantTemplate, rec.Header().Get("X-Template"))
			}
		})
	}
}

func TestRouter_Errors(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		header     http.Header
		wantStatus int
		wantCode   string
		wantAllow  string
	}{
		{name: "not found", method: http.MethodGet, path: "/nowhere", wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "method not allowed", method: http.MethodPut, path: "/users/42", wantStatus: http.StatusMethodNotAllowed, wantCode: "method_not_allowed", wantAllow: "DELETE, GET, HEAD, OPTIONS"},
		{
			name:       "unsupported media type",
			method:     http.MethodPost,
			path:       "/users",
			header:     http.Header{"Content-Type": {"text/plain"}},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   "unsupported_media_type",
		},
		{
			name:       "not acceptable",
			method:     http.MethodGet,
			path:       "/users/42",
			header:     http.Header{"Accept": {"image/png"}},
			wantStatus: http.StatusNotAcceptable,
			wantCode:   "not_acceptable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.header {
				req.Header[k] = v
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
			if tt.wantAllow != "" {
				assert.Equal(t, tt.wantAllow, rec.Header().Get("Allow"))
			}

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
			assert.Equal(t, tt.wantCode, body["type"])
			assert.EqualValues(t, tt.wantStatus, body["status"])
			assert.Equal(t, tt.path, body["instance"])
		})
	}
}

func TestRouter_Options(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/users/42", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "DELETE, GET, HEAD, OPTIONS", rec.Header().Get("Allow"))
	assert.Empty(t, rec.Body.String())
}

func TestRouter_NotFoundHandler(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, WithNotFoundHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	// 405 still goes through the formatter.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/users", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_SimpleFormatter(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, WithFormatter(rerrors.NewSimple()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestRouter_Mount(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, WithMount("/metrics", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())
}

func TestRouter_Reload(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	assert.Len(t, r.Routes(), 5)

	err := r.Reload([]dispatch.Resource[http.Handler]{{
		Path:    "/v2",
		Methods: []dispatch.Method[http.Handler]{{HTTPMethod: http.MethodGet, Handler: echoParams("v2")}},
	}})
	require.NoError(t, err)
	assert.Len(t, r.Routes(), 1)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2", nil))
	assert.Equal(t, "v2:", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A rejected table leaves the current one in place.
	err = r.Reload([]dispatch.Resource[http.Handler]{{Path: "/{broken"}})
	require.Error(t, err)
	assert.Len(t, r.Routes(), 1)
}

func TestRouter_ConcurrentReload(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			for range 50 {
				require.NoError(t, r.Reload(testResources()))
			}
		})
		wg.Go(func() {
			for range 50 {
				rec := httptest.NewRecorder()
				r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/7", nil))
				assert.Equal(t, http.StatusOK, rec.Code)
			}
		})
	}
	wg.Wait()
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(testResources(), WithServerTimeouts(0, time.Second, time.Second, time.Second))
	require.ErrorIs(t, err, ErrServerTimeoutInvalid)

	_, err = New([]dispatch.Resource[http.Handler]{{Path: "/{x"}})
	require.Error(t, err)

	assert.Panics(t, func() { MustNew([]dispatch.Resource[http.Handler]{{Path: "/{x"}}) })
}

func TestRouter_Logging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := newTestRouter(t, WithLogger(logger))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	out := buf.String()
	assert.Contains(t, out, "route table loaded")
	assert.Contains(t, out, "template=/users/{id}")
	assert.Contains(t, out, "route not resolved")
}

func TestRouter_DumpAndResolve(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	var buf bytes.Buffer
	r.Dump(&buf)
	assert.Contains(t, buf.String(), "/users")

	res, err := r.Resolve(httptest.NewRequest(http.MethodGet, "/users/9", nil))
	require.NoError(t, err)
	v, _ := res.Param("id")
	assert.Equal(t, "9", v)
}

func TestContextHelpers_NoResult(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := ResultFromContext(req.Context())
	assert.False(t, ok)
	assert.Empty(t, Param(req, "id"))
	assert.Empty(t, Remaining(req))
}

func TestRouter_Handler_H2C(t *testing.T) {
	t.Parallel()

	plain := newTestRouter(t)
	assert.Same(t, plain, plain.Handler())

	h2 := newTestRouter(t, WithH2C(true))
	assert.NotSame(t, h2, h2.Handler())
	assert.NoError(t, h2.Shutdown(context.Background()))
}

func TestResponseWriter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec}
	assert.Equal(t, http.StatusOK, rw.StatusCode())

	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusTeapot)
	n, err := rw.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, http.StatusAccepted, rw.StatusCode())
	assert.Equal(t, int64(3), rw.Size())
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Same(t, rec, rw.Unwrap())

	rw.Flush()
	assert.True(t, rec.Flushed)
	_, _, err = rw.Hijack()
	assert.ErrorIs(t, err, ErrResponseWriterNotHijacker)
}
