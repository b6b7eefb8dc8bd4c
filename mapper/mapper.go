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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"rivaas.dev/pathmap/pathmatcher"
	"rivaas.dev/pathmap/uritemplate"
)

// ErrInvalidEscape is returned by [Mapper.Map] when a parameter value
// contains malformed percent-encoding.
var ErrInvalidEscape = errors.New("mapper: invalid escape in path parameter")

// highParamCount is the parameter count above which a diagnostic is emitted.
const highParamCount = 8

// Dumpable is implemented by types that can print a description of
// themselves for debugging.
type Dumpable interface {
	Dump(w io.Writer, level int)
}

// RequestPath pairs a template with the value returned when it matches.
type RequestPath[T any] struct {
	Template *uritemplate.Template
	Value    T
	// PrefixTemplate allows the template to match a leading part of the path.
	PrefixTemplate bool
}

// RequestMatch is a successful [Mapper.Map] result.
type RequestMatch[T any] struct {
	Template *uritemplate.Template
	Value    T
	// PathParamValues holds decoded values in template declaration order.
	// Its length is the mapper's MaxParams; only the first ParamCount
	// entries are set.
	PathParamValues []string
	ParamCount      int
	// Remaining is the unmatched tail of the path, "" on a full match.
	Remaining string
}

// Params returns the set parameter values.
func (m *RequestMatch[T]) Params() []string {
	return m.PathParamValues[:m.ParamCount]
}

// Param returns the value of the named parameter.
func (m *RequestMatch[T]) Param(name string) (string, bool) {
	for i, n := range m.Template.ParamNames() {
		if n == name && i < m.ParamCount {
			return m.PathParamValues[i], true
		}
	}
	return "", false
}

// Mapper maps request paths to registered values.
type Mapper[T any] struct {
	requestPaths *pathmatcher.Matcher[[]RequestPath[T]]
	templates    []RequestPath[T]
	maxParams    int

	logger      *slog.Logger
	diagnostics DiagnosticHandler
}

// New builds a mapper over paths. Templates sharing a stem are ordered with
// [uritemplate.Compare]; equal templates keep their registration order.
func New[T any](paths []RequestPath[T], opts ...Option) *Mapper[T] {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(cfg)
	}

	m := &Mapper[T]{
		templates:   slices.Clone(paths),
		logger:      cfg.logger,
		diagnostics: cfg.diagnostics,
	}

	byStem := make(map[string][]RequestPath[T])
	stems := make([]string, 0)
	for _, p := range paths {
		stem := p.Template.Stem()
		if _, ok := byStem[stem]; !ok {
			stems = append(stems, stem)
		}
		byStem[stem] = append(byStem[stem], p)

		n := p.Template.CountPathParamNames()
		m.maxParams = max(m.maxParams, n)
		if n > highParamCount {
			m.emit(DiagHighParamCount, "template has many path parameters", map[string]any{
				"template":    p.Template.String(),
				"param_count": n,
			})
		}
	}

	b := pathmatcher.NewBuilder[[]RequestPath[T]]()
	for _, stem := range stems {
		group := byStem[stem]
		slices.SortStableFunc(group, func(a, b RequestPath[T]) int {
			return uritemplate.Compare(a.Template, b.Template)
		})
		for i := 1; i < len(group); i++ {
			if group[i].Template.String() == group[i-1].Template.String() {
				m.emit(DiagDuplicateTemplate, "template registered more than once; first registration wins", map[string]any{
					"template": group[i].Template.String(),
				})
			}
		}
		// stems always start with '/', so the error case cannot occur
		_ = b.AddPrefixPath(stem, group)
	}
	m.requestPaths = b.Build()

	m.logger.Debug("request mapper built",
		"templates", len(paths),
		"stems", len(stems),
		"max_params", m.maxParams,
	)

	return m
}

// Map resolves path. It returns nil, nil when no template matches, and an
// error wrapping [ErrInvalidEscape] when a matched parameter cannot be decoded.
func (m *Mapper[T]) Map(path string) (*RequestMatch[T], error) {
	pm := m.requestPaths.Match(path)
	if !pm.OK {
		return nil, nil
	}

	pathLength := len(path)
	params := make([]string, m.maxParams)
	for i := range pm.Value {
		candidate := &pm.Value[i]
		components := candidate.Template.Components()
		stem := components[0].LiteralText
		if !strings.HasPrefix(path, stem) {
			continue
		}

		matchPos := len(stem)
		paramCount := 0
		matched := true
		var err error

	walk:
		for j := 1; j < len(components); j++ {
			segment := &components[j]
			switch segment.Type {
			case uritemplate.CustomRegex:
				end, spans, ok := segment.MatchAt(path, matchPos)
				if !ok {
					matched = false
					break walk
				}
				for k := range segment.Names {
					start, stop := spans[2*k], spans[2*k+1]
					value := ""
					if start >= 0 {
						value = path[start:stop]
					}
					if params[paramCount], err = decode(value); err != nil {
						return nil, err
					}
					paramCount++
				}
				matchPos = end

			case uritemplate.Literal:
				if !strings.HasPrefix(path[matchPos:], segment.LiteralText) {
					matched = false
					break walk
				}
				matchPos += len(segment.LiteralText)

			case uritemplate.DefaultRegex:
				if matchPos == pathLength {
					matched = false
					break walk
				}
				start := matchPos
				for matchPos < pathLength && path[matchPos] != '/' {
					matchPos++
				}
				if params[paramCount], err = decode(path[start:matchPos]); err != nil {
					return nil, err
				}
				paramCount++
			}
		}

		if matched {
			fullMatch := matchPos == pathLength
			doPrefixMatch := false
			if !fullMatch {
				// matchPos == 1 is a root level match of "/"
				doPrefixMatch = (candidate.PrefixTemplate && (matchPos == 1 || path[matchPos] == '/')) ||
					(matchPos == pathLength-1 && path[matchPos] == '/')
			}
			if fullMatch || doPrefixMatch {
				var remaining string
				switch {
				case fullMatch:
					remaining = ""
				case matchPos == 1:
					remaining = path
				default:
					remaining = path[matchPos:]
				}
				return &RequestMatch[T]{
					Template:        candidate.Template,
					Value:           candidate.Value,
					PathParamValues: params,
					ParamCount:      paramCount,
					Remaining:       remaining,
				}, nil
			}
		}
		clear(params[:paramCount])
	}

	return nil, nil
}

// decode percent-decodes s, returning s unchanged when it has no escapes.
func decode(s string) (string, error) {
	if strings.IndexByte(s, '%') < 0 {
		return s, nil
	}
	v, err := url.PathUnescape(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidEscape, s, err)
	}
	return v, nil
}

// Templates returns the registered paths in registration order.
func (m *Mapper[T]) Templates() []RequestPath[T] {
	return slices.Clone(m.templates)
}

// MaxParams returns the largest parameter count of any registered template.
func (m *Mapper[T]) MaxParams() int { return m.maxParams }

// Dump writes the stem groups and their ordered templates to w.
func (m *Mapper[T]) Dump(w io.Writer, level int) {
	indent := strings.Repeat("  ", level)
	_, _ = fmt.Fprintf(w, "%sRequestMapper (templates=%d max_params=%d)\n", indent, len(m.templates), m.maxParams)

	if def, ok := m.requestPaths.Default(); ok {
		dumpGroup(w, level+1, "/", def)
	}
	for _, stem := range m.requestPaths.Prefixes() {
		group := m.requestPaths.Match(stem)
		dumpGroup(w, level+1, stem, group.Value)
	}
}

func dumpGroup[T any](w io.Writer, level int, stem string, group []RequestPath[T]) {
	indent := strings.Repeat("  ", level)
	_, _ = fmt.Fprintf(w, "%sstem %q\n", indent, stem)
	for _, p := range group {
		p.Template.Dump(w, level+1)
		if d, ok := any(p.Value).(Dumpable); ok {
			d.Dump(w, level+2)
		}
	}
}

func (m *Mapper[T]) emit(kind DiagnosticKind, message string, fields map[string]any) {
	if m.diagnostics != nil {
		m.diagnostics.OnDiagnostic(DiagnosticEvent{Kind: kind, Message: message, Fields: fields})
	}
}
