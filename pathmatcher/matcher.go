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

// Package pathmatcher selects a handler by the longest registered path prefix.
//
// Prefixes are stored in a [substringmap.Map]; a lookup probes the registered
// prefix lengths from longest to shortest, so the cost depends on the number
// of distinct lengths, not the number of prefixes. The prefix "/" sets the
// default handler, returned when no other prefix matches.
package pathmatcher

import (
	"errors"
	"slices"

	"rivaas.dev/pathmap/substringmap"
)

// ErrEmptyPath is returned when registering an empty prefix.
var ErrEmptyPath = errors.New("pathmatcher: empty path")

// Match is the result of [Matcher.Match].
type Match[T any] struct {
	// Matched is the registered prefix, or "" for the default handler.
	Matched string
	// Remaining is the part of the path after Matched; "" on an exact match.
	Remaining string
	Value     T
	// OK is false when neither a prefix nor a default handler matched.
	OK bool
}

// Builder collects prefixes for a [Matcher].
type Builder[T any] struct {
	paths      *substringmap.Builder[T]
	lengths    []int
	def        T
	hasDefault bool
}

// NewBuilder returns an empty builder.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{paths: substringmap.NewBuilder[T]()}
}

// AddPrefixPath registers handler for paths starting with path. Registering
// "/" sets the default handler. A repeated path replaces the earlier handler.
func (b *Builder[T]) AddPrefixPath(path string, handler T) error {
	if path == "" {
		return ErrEmptyPath
	}
	if path == "/" {
		b.def = handler
		b.hasDefault = true
		return nil
	}
	b.paths.Put(path, handler)
	if !slices.Contains(b.lengths, len(path)) {
		b.lengths = append(b.lengths, len(path))
	}
	return nil
}

// Build returns an immutable matcher.
func (b *Builder[T]) Build() *Matcher[T] {
	lengths := slices.Clone(b.lengths)
	slices.SortFunc(lengths, func(a, b int) int { return b - a })
	return &Matcher[T]{
		paths:      b.paths.Build(),
		lengths:    lengths,
		def:        b.def,
		hasDefault: b.hasDefault,
	}
}

// Matcher is an immutable longest-prefix matcher. It is safe for concurrent use.
type Matcher[T any] struct {
	paths      *substringmap.Map[T]
	lengths    []int // distinct prefix lengths, descending
	def        T
	hasDefault bool
}

// Match returns the handler registered for the longest prefix of path.
func (m *Matcher[T]) Match(path string) Match[T] {
	for _, n := range m.lengths {
		if n > len(path) {
			continue
		}
		v := m.paths.GetPrefix(path, n)
		if v == nil {
			continue
		}
		if n == len(path) {
			return Match[T]{Matched: path, Value: *v, OK: true}
		}
		return Match[T]{Matched: path[:n], Remaining: path[n:], Value: *v, OK: true}
	}
	if m.hasDefault {
		return Match[T]{Remaining: path, Value: m.def, OK: true}
	}
	return Match[T]{}
}

// Default returns the default handler and whether one was registered.
func (m *Matcher[T]) Default() (T, bool) {
	return m.def, m.hasDefault
}

// Prefixes returns the registered prefixes, excluding the default.
func (m *Matcher[T]) Prefixes() []string {
	keys := m.paths.Keys()
	slices.Sort(keys)
	return keys
}

// Lengths returns the distinct registered prefix lengths, longest first.
func (m *Matcher[T]) Lengths() []int {
	return slices.Clone(m.lengths)
}
