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

package dispatch

import (
	"rivaas.dev/pathmap/mapper"
	"rivaas.dev/pathmap/uritemplate"
)

// Resource is a resource class: a path template and the methods below it.
type Resource[H any] struct {
	// Path is the class path template, e.g. "/users/{id}". Empty means "/".
	Path    string
	Name    string
	Methods []Method[H]
}

// Method is a resource method or, when HTTPMethod is empty, a sub-resource locator.
type Method[H any] struct {
	HTTPMethod string
	// Path is relative to the class path. Empty means "/".
	Path     string
	Name     string
	Produces []string
	Consumes []string
	Handler  H
}

// IsLocator reports whether m is a sub-resource locator.
func (m *Method[H]) IsLocator() bool { return m.HTTPMethod == "" }

// Result is a resolved request.
type Result[H any] struct {
	Resource *Resource[H]
	Method   *Method[H]
	Handler  H

	// Values holds the class path values followed by the method path values.
	Values []string
	// Remaining is the part of the path not consumed by the method template.
	// It is only non-empty for locators and implicit trailing slashes.
	Remaining string
	// MatchedTemplates holds the class template and the method template.
	MatchedTemplates []string
	// Allow is set instead of Method for an OPTIONS request that no
	// method handles; it lists the HTTP methods the path supports.
	Allow []string

	index map[string]int
}

// IsOptions reports whether r is an automatic OPTIONS answer.
func (r *Result[H]) IsOptions() bool { return r.Method == nil && r.Allow != nil }

// Param returns the named path parameter. A method parameter shadows a class
// parameter with the same name.
func (r *Result[H]) Param(name string) (string, bool) {
	i, ok := r.index[name]
	if !ok || i >= len(r.Values) {
		return "", false
	}
	return r.Values[i], true
}

// Template returns the matched class and method templates joined, e.g.
// "/users/{id}/orders".
func (r *Result[H]) Template() string {
	switch len(r.MatchedTemplates) {
	case 0:
		return ""
	case 1:
		return r.MatchedTemplates[0]
	default:
		return joinTemplates(r.MatchedTemplates[0], r.MatchedTemplates[1])
	}
}

// Params returns the path parameters by name.
func (r *Result[H]) Params() map[string]string {
	params := make(map[string]string, len(r.index))
	for name, i := range r.index {
		if i < len(r.Values) {
			params[name] = r.Values[i]
		}
	}
	return params
}

// Route describes one registered method, for listings.
type Route struct {
	Resource   string
	Name       string
	HTTPMethod string // "" for locators
	Template   string // class and method templates joined
	Produces   []string
	Consumes   []string
}

// methodEntry is a compiled Method.
type methodEntry[H any] struct {
	resource   *Resource[H]
	method     *Method[H]
	class      *uritemplate.Template
	template   *uritemplate.Template
	paramIndex map[string]int
}

// methodGroup holds the methods sharing an HTTP method and template.
type methodGroup[H any] struct {
	template *uritemplate.Template
	locator  bool
	entries  []*methodEntry[H]
}

// classEntry holds every method below one class template. Resources with the
// same class path share an entry.
type classEntry[H any] struct {
	template  *uritemplate.Template
	resources []*Resource[H]
	byMethod  map[string]*mapper.Mapper[*methodGroup[H]]
}
