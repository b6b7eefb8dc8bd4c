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
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"

	"rivaas.dev/pathmap/mapper"
	"rivaas.dev/pathmap/uritemplate"
)

// Deployment is an immutable, compiled set of resources.
type Deployment[H any] struct {
	classes     *mapper.Mapper[*classEntry[H]]
	resources   []Resource[H]
	routes      []Route
	logger      *slog.Logger
	diagnostics DiagnosticHandler
}

// classBuild accumulates the method groups of one class template.
type classBuild[H any] struct {
	entry       *classEntry[H]
	groups      map[string]map[string]*methodGroup[H] // http method -> template -> group
	methodOrder []string
	groupOrder  map[string][]string
}

func (b *classBuild[H]) group(httpMethod string, tmpl *uritemplate.Template, locator bool) *methodGroup[H] {
	byTemplate, ok := b.groups[httpMethod]
	if !ok {
		byTemplate = make(map[string]*methodGroup[H])
		b.groups[httpMethod] = byTemplate
		b.methodOrder = append(b.methodOrder, httpMethod)
	}
	g, ok := byTemplate[tmpl.String()]
	if !ok {
		g = &methodGroup[H]{template: tmpl, locator: locator}
		byTemplate[tmpl.String()] = g
		b.groupOrder[httpMethod] = append(b.groupOrder[httpMethod], tmpl.String())
	}
	return g
}

// NewDeployment compiles resources.
//
// Errors:
//   - [ErrInvalidResource] wrapping the template error for a malformed class or method path
func NewDeployment[H any](resources []Resource[H], opts ...Option) (*Deployment[H], error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(cfg)
	}

	d := &Deployment[H]{
		resources:   slices.Clone(resources),
		logger:      cfg.logger,
		diagnostics: cfg.diagnostics,
	}

	builds := make(map[string]*classBuild[H])
	classOrder := make([]string, 0, len(d.resources))

	for ri := range d.resources {
		res := &d.resources[ri]
		classTmpl, err := uritemplate.New(orRoot(res.Path), true)
		if err != nil {
			return nil, fmt.Errorf("%w: resource %q: %w", ErrInvalidResource, res.Name, err)
		}

		b, ok := builds[classTmpl.String()]
		if !ok {
			b = &classBuild[H]{
				entry: &classEntry[H]{
					template: classTmpl,
					byMethod: make(map[string]*mapper.Mapper[*methodGroup[H]]),
				},
				groups:     make(map[string]map[string]*methodGroup[H]),
				groupOrder: make(map[string][]string),
			}
			builds[classTmpl.String()] = b
			classOrder = append(classOrder, classTmpl.String())
		}
		b.entry.resources = append(b.entry.resources, res)

		for mi := range res.Methods {
			m := &res.Methods[mi]
			httpMethod := strings.ToUpper(m.HTTPMethod)
			tmpl, err := uritemplate.New(orRoot(m.Path), m.IsLocator())
			if err != nil {
				return nil, fmt.Errorf("%w: resource %q method %q: %w", ErrInvalidResource, res.Name, m.Name, err)
			}

			g := b.group(httpMethod, tmpl, m.IsLocator())
			g.entries = append(g.entries, &methodEntry[H]{
				resource:   res,
				method:     m,
				class:      classTmpl,
				template:   tmpl,
				paramIndex: uritemplate.ParamIndex(classTmpl, tmpl),
			})
			if len(g.entries) > 1 && len(m.Produces) == 0 && len(m.Consumes) == 0 {
				d.emit(DiagAmbiguousMethods, "methods share a template without media types; the first registered wins", map[string]any{
					"http_method": httpMethod,
					"template":    joinTemplates(classTmpl.String(), tmpl.String()),
					"method":      m.Name,
				})
			}

			d.routes = append(d.routes, Route{
				Resource:   res.Name,
				Name:       m.Name,
				HTTPMethod: httpMethod,
				Template:   joinTemplates(classTmpl.String(), tmpl.String()),
				Produces:   m.Produces,
				Consumes:   m.Consumes,
			})
		}
	}

	mapperOpts := []mapper.Option{
		mapper.WithLogger(d.logger),
		mapper.WithDiagnostics(mapper.DiagnosticHandlerFunc(func(e mapper.DiagnosticEvent) {
			d.emit(DiagnosticKind(e.Kind), e.Message, e.Fields)
		})),
	}

	classPaths := make([]mapper.RequestPath[*classEntry[H]], 0, len(classOrder))
	for _, key := range classOrder {
		b := builds[key]
		d.mergeLocators(b)
		for _, httpMethod := range b.methodOrder {
			byTemplate := b.groups[httpMethod]
			paths := make([]mapper.RequestPath[*methodGroup[H]], 0, len(byTemplate))
			for _, t := range b.groupOrder[httpMethod] {
				g := byTemplate[t]
				paths = append(paths, mapper.RequestPath[*methodGroup[H]]{
					Template:       g.template,
					Value:          g,
					PrefixTemplate: g.locator,
				})
			}
			b.entry.byMethod[httpMethod] = mapper.New(paths, mapperOpts...)
		}
		classPaths = append(classPaths, mapper.RequestPath[*classEntry[H]]{
			Template:       b.entry.template,
			Value:          b.entry,
			PrefixTemplate: true,
		})
	}
	d.classes = mapper.New(classPaths, mapperOpts...)

	d.logger.Debug("deployment built",
		"resources", len(d.resources),
		"classes", len(classPaths),
		"routes", len(d.routes),
	)

	return d, nil
}

// mergeLocators adds the class's locators to every HTTP method table that
// has no resource method with the same template.
func (d *Deployment[H]) mergeLocators(b *classBuild[H]) {
	locators, ok := b.groups[""]
	if !ok {
		return
	}
	for _, httpMethod := range b.methodOrder {
		if httpMethod == "" {
			continue
		}
		for _, t := range b.groupOrder[""] {
			if _, exists := b.groups[httpMethod][t]; exists {
				d.emit(DiagLocatorShadowed, "resource method takes precedence over sub-resource locator", map[string]any{
					"http_method": httpMethod,
					"template":    joinTemplates(b.entry.template.String(), t),
				})
				continue
			}
			b.groups[httpMethod][t] = locators[t]
			b.groupOrder[httpMethod] = append(b.groupOrder[httpMethod], t)
		}
	}
}

// Resolve maps a request to a method. path is the raw, still escaped, request
// path; parameter values in the result are decoded.
//
// Errors:
//   - [ErrNotFound] when no template matches
//   - [*MethodNotAllowedError] when the path matches for other HTTP methods only
//   - [ErrBadPath] for malformed percent-encoding in a parameter
//   - [ErrUnsupportedMediaType], [ErrNotAcceptable] when media types rule out every candidate
func (d *Deployment[H]) Resolve(httpMethod, path, contentType, accept string) (*Result[H], error) {
	if path == "" {
		path = "/"
	}
	httpMethod = strings.ToUpper(httpMethod)

	cm, err := d.classes.Map(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPath, err)
	}
	if cm == nil {
		return nil, ErrNotFound
	}
	class := cm.Value
	remaining := cm.Remaining
	if remaining == "" {
		remaining = "/"
	}

	mm, err := class.lookup(httpMethod, remaining)
	if err != nil {
		return nil, err
	}
	if mm == nil {
		allow, err := class.allowed(remaining)
		if err != nil {
			return nil, err
		}
		if len(allow) == 0 {
			return nil, ErrNotFound
		}
		if httpMethod == http.MethodOptions {
			return &Result[H]{
				Allow:            allow,
				MatchedTemplates: []string{class.template.String()},
			}, nil
		}
		return nil, &MethodNotAllowedError{Method: httpMethod, Allow: allow}
	}

	entry, err := selectEntry(mm.Value.entries, contentType, accept)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, cm.ParamCount+mm.ParamCount)
	values = append(values, cm.Params()...)
	values = append(values, mm.Params()...)

	return &Result[H]{
		Resource:         entry.resource,
		Method:           entry.method,
		Handler:          entry.method.Handler,
		Values:           values,
		Remaining:        mm.Remaining,
		MatchedTemplates: []string{class.template.String(), mm.Template.String()},
		index:            entry.paramIndex,
	}, nil
}

// lookup maps path in the table for httpMethod. HEAD falls back to GET and a
// missing table falls back to the locators.
func (c *classEntry[H]) lookup(httpMethod, path string) (*mapper.RequestMatch[*methodGroup[H]], error) {
	table, ok := c.byMethod[httpMethod]
	if !ok && httpMethod == http.MethodHead {
		table, ok = c.byMethod[http.MethodGet]
	}
	if !ok {
		table, ok = c.byMethod[""]
	}
	if !ok {
		return nil, nil
	}
	m, err := table.Map(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPath, err)
	}
	return m, nil
}

// allowed lists the HTTP methods whose tables match path.
func (c *classEntry[H]) allowed(path string) ([]string, error) {
	var allow []string
	for httpMethod, table := range c.byMethod {
		if httpMethod == "" {
			continue
		}
		m, err := table.Map(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadPath, err)
		}
		if m != nil {
			allow = append(allow, httpMethod)
		}
	}
	if len(allow) == 0 {
		return nil, nil
	}
	if slices.Contains(allow, http.MethodGet) && !slices.Contains(allow, http.MethodHead) {
		allow = append(allow, http.MethodHead)
	}
	if !slices.Contains(allow, http.MethodOptions) {
		allow = append(allow, http.MethodOptions)
	}
	slices.Sort(allow)
	return allow, nil
}

// selectEntry picks the candidate that consumes contentType and best matches accept.
func selectEntry[H any](entries []*methodEntry[H], contentType, accept string) (*methodEntry[H], error) {
	specs := parseAccept(accept)

	var best *methodEntry[H]
	bestQuality, bestSpecificity := 0.0, -1
	consumable := false
	for _, e := range entries {
		if !consumes(e.method.Consumes, contentType) {
			continue
		}
		consumable = true
		q, s := produces(e.method.Produces, specs)
		if q <= 0 {
			continue
		}
		if best == nil || q > bestQuality || (q == bestQuality && s > bestSpecificity) {
			best, bestQuality, bestSpecificity = e, q, s
		}
	}

	switch {
	case !consumable:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, contentType)
	case best == nil:
		return nil, fmt.Errorf("%w: %s", ErrNotAcceptable, accept)
	}
	return best, nil
}

// Routes lists the registered methods in registration order.
func (d *Deployment[H]) Routes() []Route {
	return slices.Clone(d.routes)
}

// Resources returns the resources the deployment was built from.
func (d *Deployment[H]) Resources() []Resource[H] {
	return slices.Clone(d.resources)
}

// Dump writes the class mapper and the per-method tables to w.
func (d *Deployment[H]) Dump(w io.Writer, level int) {
	d.classes.Dump(w, level)
}

// Dump writes the class's method tables; it makes class entries show up in
// mapper dumps.
func (c *classEntry[H]) Dump(w io.Writer, level int) {
	indent := strings.Repeat("  ", level)
	for _, httpMethod := range slices.Sorted(maps.Keys(c.byMethod)) {
		label := httpMethod
		if label == "" {
			label = "LOCATORS"
		}
		_, _ = fmt.Fprintf(w, "%s%s\n", indent, label)
		c.byMethod[httpMethod].Dump(w, level+1)
	}
}

// Dump writes the method names of the group.
func (g *methodGroup[H]) Dump(w io.Writer, level int) {
	indent := strings.Repeat("  ", level)
	for _, e := range g.entries {
		_, _ = fmt.Fprintf(w, "%s-> %s.%s produces=%v consumes=%v\n",
			indent, e.resource.Name, e.method.Name, e.method.Produces, e.method.Consumes)
	}
}

func (d *Deployment[H]) emit(kind DiagnosticKind, message string, fields map[string]any) {
	if d.diagnostics != nil {
		d.diagnostics.OnDiagnostic(DiagnosticEvent{Kind: kind, Message: message, Fields: fields})
	}
}

func orRoot(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

// joinTemplates joins a class and a method template for display.
func joinTemplates(class, method string) string {
	switch {
	case method == "/":
		return class
	case class == "/":
		return method
	default:
		return strings.TrimSuffix(class, "/") + method
	}
}
