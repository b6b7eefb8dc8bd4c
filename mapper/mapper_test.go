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

package mapper

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/pathmap/uritemplate"
)

// newMapper registers each template with its own text as the value.
func newMapper(t testing.TB, templates ...string) *Mapper[string] {
	t.Helper()

	paths := make([]RequestPath[string], 0, len(templates))
	for _, tmpl := range templates {
		paths = append(paths, RequestPath[string]{
			Template: uritemplate.MustNew(tmpl, false),
			Value:    tmpl,
		})
	}
	return New(paths)
}

func TestMapper_Map(t *testing.T) {
	t.Parallel()

	m := newMapper(t,
		"/a/b/c",
		"/items/{id}",
		"/items/{id:[0-9]+}",
		"/items/{id}/edit",
		"/items/{id}/{action}",
		"/items/special",
		"/search/{term}.{ext:[a-z]+}",
		"/files/{name}",
		"/users/{id}/x",
	)

	tests := []struct {
		name          string
		path          string
		wantValue     string
		wantParams    []string
		wantRemaining string
	}{
		{name: "literal only", path: "/a/b/c", wantValue: "/a/b/c", wantParams: []string{}},
		{name: "literal trailing slash", path: "/a/b/c/", wantValue: "/a/b/c", wantParams: []string{}, wantRemaining: "/"},
		{name: "single param", path: "/items/42", wantValue: "/items/{id}", wantParams: []string{"42"}},
		{name: "implicit trailing slash", path: "/items/42/", wantValue: "/items/{id}", wantParams: []string{"42"}, wantRemaining: "/"},
		{name: "more literal text first", path: "/items/42/edit", wantValue: "/items/{id}/edit", wantParams: []string{"42"}},
		{name: "params reset between candidates", path: "/items/42/view", wantValue: "/items/{id}/{action}", wantParams: []string{"42", "view"}},
		{name: "literal stem", path: "/items/special", wantValue: "/items/special", wantParams: []string{}},
		{name: "coalesced regex", path: "/search/report.pdf", wantValue: "/search/{term}.{ext:[a-z]+}", wantParams: []string{"report", "pdf"}},
		{name: "encoded slash decoded once", path: "/files/a%2Fb", wantValue: "/files/{name}", wantParams: []string{"a/b"}},
		{name: "double encoding decoded once", path: "/files/a%252F", wantValue: "/files/{name}", wantParams: []string{"a%2F"}},
		{name: "plus is not a space", path: "/files/a+b", wantValue: "/files/{name}", wantParams: []string{"a+b"}},
		{name: "braces in path are ordinary", path: "/files/{x}", wantValue: "/files/{name}", wantParams: []string{"{x}"}},
		{name: "empty segment before slash", path: "/users//x", wantValue: "/users/{id}/x", wantParams: []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := m.Map(tt.path)
			require.NoError(t, err)
			require.NotNil(t, got, "path %s", tt.path)
			assert.Equal(t, tt.wantValue, got.Value)
			assert.Equal(t, tt.wantParams, got.Params())
			assert.Equal(t, len(tt.wantParams), got.ParamCount)
			assert.Equal(t, tt.wantRemaining, got.Remaining)
			assert.Len(t, got.PathParamValues, m.MaxParams())
			for _, v := range got.PathParamValues[got.ParamCount:] {
				assert.Empty(t, v, "unused slots stay empty")
			}
		})
	}
}

func TestMapper_Map_NoMatch(t *testing.T) {
	t.Parallel()

	m := newMapper(t, "/items/{id}", "/items/special", "/x/{id:[0-9]+}")

	tests := []struct {
		name string
		path string
	}{
		{name: "no stem", path: "/nothing"},
		{name: "extra segment", path: "/items/42/x"},
		{name: "empty default segment at end", path: "/items/"},
		{name: "regex rejects", path: "/x/abc"},
		{name: "regex anchored at end", path: "/x/12a"},
		// the longest stem is selected and shorter stems are not retried
		{name: "no fallback to shorter stem", path: "/items/specialx"},
		{name: "empty path", path: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := m.Map(tt.path)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestMapper_Map_InvalidEscape(t *testing.T) {
	t.Parallel()

	m := newMapper(t, "/files/{name}", "/re/{v:.+}")

	got, err := m.Map("/files/%zz")
	require.ErrorIs(t, err, ErrInvalidEscape)
	assert.Nil(t, got)

	_, err = m.Map("/re/%4")
	require.ErrorIs(t, err, ErrInvalidEscape)
}

func TestMapper_Map_PrefixTemplate(t *testing.T) {
	t.Parallel()

	m := New([]RequestPath[string]{
		{Template: uritemplate.MustNew("/users/{id}", true), Value: "user", PrefixTemplate: true},
		{Template: uritemplate.MustNew("/v{n:[0-9]+}", true), Value: "version", PrefixTemplate: true},
	})

	tests := []struct {
		name          string
		path          string
		wantValue     string
		wantParams    []string
		wantRemaining string
	}{
		{name: "full", path: "/users/1", wantValue: "user", wantParams: []string{"1"}},
		{name: "sub resource", path: "/users/1/posts/2", wantValue: "user", wantParams: []string{"1"}, wantRemaining: "/posts/2"},
		{name: "regex prefix", path: "/v2/items", wantValue: "version", wantParams: []string{"2"}, wantRemaining: "/items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := m.Map(tt.path)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantValue, got.Value)
			assert.Equal(t, tt.wantParams, got.Params())
			assert.Equal(t, tt.wantRemaining, got.Remaining)
		})
	}

	// a prefix must end on a segment boundary
	got, err := m.Map("/v2x")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// A root prefix template reports the whole original path as remaining,
// not the path without its leading '/'.
func TestMapper_Map_RootPrefixRemaining(t *testing.T) {
	t.Parallel()

	m := New([]RequestPath[string]{
		{Template: uritemplate.MustNew("/", true), Value: "root", PrefixTemplate: true},
	})

	got, err := m.Map("/users/1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "root", got.Value)
	assert.Equal(t, "/users/1", got.Remaining)

	got, err = m.Map("/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Remaining)
}

// The implicit trailing slash only applies when the remaining character is '/'.
func TestMapper_Map_RootNotPrefix(t *testing.T) {
	t.Parallel()

	m := newMapper(t, "/", "/{id}")

	got, err := m.Map("/4")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/{id}", got.Value)
	assert.Equal(t, []string{"4"}, got.Params())

	got, err = m.Map("/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/", got.Value)
}

func TestMapper_Map_Ordering(t *testing.T) {
	t.Parallel()

	// registration order must not matter
	m := newMapper(t, "/o/{b:.+}", "/o/{a}", "/o/{id}/info")

	got, err := m.Map("/o/1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/o/{a}", got.Value, "fewer regex groups first")

	got, err = m.Map("/o/1/info")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/o/{id}/info", got.Value, "more literal characters first")

	got, err = m.Map("/o/1/2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/o/{b:.+}", got.Value)
	assert.Equal(t, []string{"1/2"}, got.Params())
}

func TestRequestMatch_Param(t *testing.T) {
	t.Parallel()

	m := newMapper(t, "/search/{term}.{ext:[a-z]+}")
	got, err := m.Map("/search/a.b")
	require.NoError(t, err)
	require.NotNil(t, got)

	v, ok := got.Param("ext")
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = got.Param("missing")
	assert.False(t, ok)
}

func TestMapper_Introspection(t *testing.T) {
	t.Parallel()

	m := newMapper(t, "/b/{x}/{y}", "/a", "/{id}")
	assert.Equal(t, 2, m.MaxParams())

	templates := m.Templates()
	require.Len(t, templates, 3)
	assert.Equal(t, "/b/{x}/{y}", templates[0].Value)

	var buf bytes.Buffer
	m.Dump(&buf, 0)
	out := buf.String()
	assert.Contains(t, out, "RequestMapper (templates=3 max_params=2)")
	assert.Contains(t, out, `stem "/"`)
	assert.Contains(t, out, `stem "/b/"`)
	assert.Contains(t, out, "/{id}")
}

type dumpValue string

func (d dumpValue) Dump(w io.Writer, level int) {
	_, _ = fmt.Fprintf(w, "%svalue %s\n", strings.Repeat("  ", level), string(d))
}

func TestMapper_DumpValues(t *testing.T) {
	t.Parallel()

	m := New([]RequestPath[dumpValue]{
		{Template: uritemplate.MustNew("/x", false), Value: "handler-x"},
	})

	var buf bytes.Buffer
	m.Dump(&buf, 0)
	assert.Contains(t, buf.String(), "value handler-x")
}

func TestMapper_Diagnostics(t *testing.T) {
	t.Parallel()

	var events []DiagnosticEvent
	handler := DiagnosticHandlerFunc(func(e DiagnosticEvent) {
		events = append(events, e)
	})

	paths := []RequestPath[string]{
		{Template: uritemplate.MustNew("/d/{a}", false), Value: "first"},
		{Template: uritemplate.MustNew("/d/{a}", false), Value: "second"},
		{Template: uritemplate.MustNew("/p/{a}/{b}/{c}/{d}/{e}/{f}/{g}/{h}/{i}", false), Value: "many"},
	}
	m := New(paths, WithDiagnostics(handler))

	kinds := make([]DiagnosticKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.ElementsMatch(t, []DiagnosticKind{DiagDuplicateTemplate, DiagHighParamCount}, kinds)

	got, err := m.Map("/d/1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Value, "stable order keeps registration order")
}

func TestMapper_Empty(t *testing.T) {
	t.Parallel()

	m := New[string](nil)
	got, err := m.Map("/x")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, m.MaxParams())
}

func TestMapper_ConcurrentMap(t *testing.T) {
	t.Parallel()

	m := newMapper(t, "/items/{id}", "/search/{term}.{ext:[a-z]+}")

	var wg sync.WaitGroup
	for g := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				id := fmt.Sprintf("%d-%d", g, i)
				got, err := m.Map("/items/" + id)
				if assert.NoError(t, err) && assert.NotNil(t, got) {
					assert.Equal(t, id, got.PathParamValues[0])
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkMapper_Map(b *testing.B) {
	templates := []string{
		"/api/users",
		"/api/users/{id}",
		"/api/users/{id}/posts",
		"/api/users/{id}/posts/{pid}",
		"/api/search/{term}.{ext:[a-z]+}",
		"/static/{file}",
	}
	m := newMapper(b, templates...)

	paths := []string{
		"/api/users",
		"/api/users/42/posts/7",
		"/api/search/report.pdf",
		"/missing",
	}

	b.ReportAllocs()
	for b.Loop() {
		for _, p := range paths {
			_, _ = m.Map(p)
		}
	}
}
