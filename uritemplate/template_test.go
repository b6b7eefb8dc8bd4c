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

package uritemplate

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Components(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		template   string
		prefix     bool
		wantTypes  []ComponentType
		wantStem   string
		wantLit    int
		wantGroups int
		wantRegex  int
		wantNames  []string
	}{
		{
			name:      "literal only",
			template:  "/items",
			wantTypes: []ComponentType{Literal},
			wantStem:  "/items",
			wantLit:   6,
			wantNames: []string{},
		},
		{
			name:       "trailing default segment",
			template:   "/items/{id}",
			wantTypes:  []ComponentType{Literal, DefaultRegex},
			wantStem:   "/items/",
			wantLit:    7,
			wantGroups: 1,
			wantNames:  []string{"id"},
		},
		{
			name:       "default segments separated by slash",
			template:   "/a/{x}/b/{y}",
			wantTypes:  []ComponentType{Literal, DefaultRegex, Literal, DefaultRegex},
			wantStem:   "/a/",
			wantLit:    6,
			wantGroups: 2,
			wantNames:  []string{"x", "y"},
		},
		{
			name:       "placeholder followed by literal becomes regex",
			template:   "/search/{term}.{ext:[a-z]+}",
			wantTypes:  []ComponentType{Literal, CustomRegex},
			wantStem:   "/search/",
			wantLit:    9,
			wantGroups: 2,
			wantRegex:  1,
			wantNames:  []string{"term", "ext"},
		},
		{
			name:       "regex coalesces the tail",
			template:   "/x/{id:[0-9]+}/y/{name}",
			wantTypes:  []ComponentType{Literal, CustomRegex},
			wantStem:   "/x/",
			wantLit:    6,
			wantGroups: 2,
			wantRegex:  1,
			wantNames:  []string{"id", "name"},
		},
		{
			name:       "missing leading slash is added",
			template:   "{id}",
			wantTypes:  []ComponentType{Literal, DefaultRegex},
			wantStem:   "/",
			wantLit:    1,
			wantGroups: 1,
			wantNames:  []string{"id"},
		},
		{
			name:       "nested braces in regex",
			template:   "/code/{c:[A-Z]{3}}",
			wantTypes:  []ComponentType{Literal, CustomRegex},
			wantStem:   "/code/",
			wantLit:    6,
			wantGroups: 1,
			wantRegex:  1,
			wantNames:  []string{"c"},
		},
		{
			name:       "names and regex are trimmed",
			template:   "/t/{ id : [0-9]+ }",
			wantTypes:  []ComponentType{Literal, CustomRegex},
			wantStem:   "/t/",
			wantLit:    3,
			wantGroups: 1,
			wantRegex:  1,
			wantNames:  []string{"id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpl, err := New(tt.template, tt.prefix)
			require.NoError(t, err)

			types := make([]ComponentType, 0, len(tmpl.Components()))
			for _, c := range tmpl.Components() {
				types = append(types, c.Type)
			}
			assert.Equal(t, tt.wantTypes, types)
			assert.Equal(t, tt.wantStem, tmpl.Stem())
			assert.Equal(t, tt.wantLit, tmpl.LiteralCharacterCount())
			assert.Equal(t, tt.wantGroups, tmpl.CapturingGroups())
			assert.Equal(t, tt.wantRegex, tmpl.ComplexExpressions())
			assert.Equal(t, tt.wantNames, tmpl.ParamNames())
			assert.Equal(t, len(tt.wantNames), tmpl.CountPathParamNames())
			assert.Equal(t, Literal, tmpl.Components()[0].Type, "first component is the stem")
		})
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		wantErr  error
	}{
		{name: "unclosed name", template: "/a/{id", wantErr: ErrUnclosedBrace},
		{name: "unclosed regex", template: "/a/{id:[0-9]+", wantErr: ErrUnclosedBrace},
		{name: "unbalanced nested brace", template: "/a/{id:[0-9]{2}", wantErr: ErrUnclosedBrace},
		{name: "invalid regex", template: "/a/{id:[0-9}", wantErr: ErrInvalidRegex},
		{name: "backreference", template: "/a/{x:(a)\\1}", wantErr: ErrInvalidRegex},
		{name: "empty name", template: "/a/{}", wantErr: ErrEmptyParamName},
		{name: "empty name with regex", template: "/a/{:[0-9]+}", wantErr: ErrEmptyParamName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpl, err := New(tt.template, false)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, tmpl)
			assert.Contains(t, err.Error(), tt.template)
		})
	}
}

func TestMustNew_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustNew("/a/{b", false) })
	assert.NotPanics(t, func() { MustNew("/a/{b}", false) })
}

func TestCoalescedPattern(t *testing.T) {
	t.Parallel()

	tmpl := MustNew("/search/{term}.{ext:[a-z]+}", false)
	last := tmpl.Components()[len(tmpl.Components())-1]
	require.Equal(t, CustomRegex, last.Type)
	assert.Equal(t, `([^/]+?)\.([a-z]+)$`, last.Pattern.String())
	assert.Equal(t, []string{"term", "ext"}, last.Names)

	prefix := MustNew("/search/{term}.{ext:[a-z]+}", true)
	last = prefix.Components()[len(prefix.Components())-1]
	assert.Equal(t, `([^/]+?)\.([a-z]+)`, last.Pattern.String())
	assert.True(t, prefix.PrefixMatch())
}

func TestComponent_MatchAt(t *testing.T) {
	t.Parallel()

	tmpl := MustNew("/search/{term}.{ext:[a-z]+}", false)
	c := tmpl.Components()[1]

	path := "/search/report.pdf"
	end, spans, ok := c.MatchAt(path, len("/search/"))
	require.True(t, ok)
	assert.Equal(t, len(path), end)
	require.Len(t, spans, 4)
	assert.Equal(t, "report", path[spans[0]:spans[1]])
	assert.Equal(t, "pdf", path[spans[2]:spans[3]])

	_, _, ok = c.MatchAt("/search/report.PDF", len("/search/"))
	assert.False(t, ok)

	// the match must start at pos, not later in the path
	_, _, ok = c.MatchAt("/search//x.pdf", len("/search/"))
	assert.False(t, ok)

	_, _, ok = c.MatchAt(path, len(path)+1)
	assert.False(t, ok)
}

func TestComponent_MatchAt_Prefix(t *testing.T) {
	t.Parallel()

	tmpl := MustNew("/v{n:[0-9]+}", true)
	c := tmpl.Components()[1]

	end, spans, ok := c.MatchAt("/v12/users", 2)
	require.True(t, ok)
	assert.Equal(t, 4, end)
	assert.Equal(t, []int{2, 4}, spans)
}

func TestComponent_MatchAt_OptionalGroup(t *testing.T) {
	t.Parallel()

	tmpl := MustNew("/f/{a:x?}{b:y}", false)
	c := tmpl.Components()[1]

	end, spans, ok := c.MatchAt("/f/y", 3)
	require.True(t, ok)
	assert.Equal(t, 4, end)
	assert.Equal(t, []int{3, 3, 3, 4}, spans)
}

func TestComponent_MatchAt_UserGroups(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		path     string
		pos      int
		want     []string
	}{
		{
			name:     "user group named like a generated one",
			template: "/x/{a:(?P<p1>[a-z]+)}-{b}",
			path:     "/x/abc-42",
			pos:      3,
			want:     []string{"abc", "42"},
		},
		{
			name:     "user group named p0",
			template: "/x/{a:[0-9]+}/{b:(?P<p0>[a-z])+}",
			path:     "/x/7/zz",
			pos:      3,
			want:     []string{"7", "zz"},
		},
		{
			name:     "unnamed user groups before a default segment",
			template: "/f/{a:(x)(y)?}.{b}/{c:(?:v)[0-9]}",
			path:     "/f/xy.txt/v1",
			pos:      3,
			want:     []string{"xy", "txt", "v1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpl := MustNew(tt.template, false)
			c := tmpl.Components()[len(tmpl.Components())-1]
			require.Equal(t, CustomRegex, c.Type)

			end, spans, ok := c.MatchAt(tt.path, tt.pos)
			require.True(t, ok)
			assert.Equal(t, len(tt.path), end)
			require.Len(t, spans, 2*len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want, tt.path[spans[2*i]:spans[2*i+1]], c.Names[i])
			}
		})
	}
}

func TestNew_UnbalancedUserRegex(t *testing.T) {
	t.Parallel()

	_, err := New("/x/{a:a)(b}", false)
	assert.ErrorIs(t, err, ErrInvalidRegex)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "stem ordering", a: "/a/{x}", b: "/b/{x}", want: -1},
		{name: "more literal characters first", a: "/items/{id}/detail", b: "/items/{id}", want: -1},
		{name: "fewer groups first", a: "/items/{a}", b: "/items/{a}{b}", want: -1},
		{name: "fewer regex first", a: "/items/{a}", b: "/items/{b:.+}", want: -1},
		{name: "template text breaks ties", a: "/items/{a}", b: "/items/{b}", want: -1},
		{name: "equal", a: "/items/{a}", b: "/items/{a}", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, b := MustNew(tt.a, false), MustNew(tt.b, false)
			assert.Equal(t, tt.want, Compare(a, b))
			assert.Equal(t, -tt.want, Compare(b, a), "antisymmetric")
		})
	}
}

func TestCompare_Sort(t *testing.T) {
	t.Parallel()

	templates := []*Template{
		MustNew("/items/{id}", false),
		MustNew("/items/{id:[0-9]+}", false),
		MustNew("/items/{id}/detail", false),
		MustNew("/items/special", false),
	}
	slices.SortStableFunc(templates, Compare)

	got := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		got = append(got, tmpl.String())
	}
	assert.Equal(t, []string{
		"/items/{id}/detail",
		"/items/{id}",
		"/items/{id:[0-9]+}",
		"/items/special",
	}, got)
}

func TestParamIndex(t *testing.T) {
	t.Parallel()

	class := MustNew("/orgs/{org}/repos/{repo}", true)
	method := MustNew("/issues/{id}/{org}", false)

	assert.Equal(t, map[string]int{"org": 3, "repo": 1, "id": 2}, ParamIndex(class, method))
	assert.Equal(t, map[string]int{"id": 0, "org": 1}, ParamIndex(nil, method))
	assert.Empty(t, ParamIndex(nil, nil))
}

func TestDump(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	MustNew("/items/{id}", false).Dump(&buf, 1)
	out := buf.String()
	assert.Contains(t, out, "  /items/{id}")
	assert.Contains(t, out, `LITERAL("/items/")`)
	assert.Contains(t, out, "DEFAULT_REGEX(id)")
}

func TestComponentType_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "LITERAL", Literal.String())
	assert.Equal(t, "DEFAULT_REGEX", DefaultRegex.String())
	assert.Equal(t, "CUSTOM_REGEX", CustomRegex.String())
	assert.Equal(t, "ComponentType(9)", ComponentType(9).String())
}
