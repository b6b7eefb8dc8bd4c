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

// Package mapper resolves request paths against a set of compiled
// [uritemplate.Template] values.
//
// Templates are grouped by their literal stem. A lookup first selects the
// group for the longest stem that prefixes the path, then tries the group's
// templates in [uritemplate.Compare] order; the first template whose
// components consume the path wins. There is no backtracking: once a stem
// is selected, shorter stems are not consulted.
//
// A template also matches when exactly one trailing '/' remains, and a
// prefix template may leave any '/'-separated remainder, which is reported in
// [RequestMatch.Remaining] for sub-resource dispatch.
//
// # Path parameters
//
// Extracted values are percent-decoded once. A "%2F" inside a segment is not
// a separator while matching, and decodes to "/" in the value.
//
// # Concurrency
//
// A [Mapper] is immutable once created and safe for concurrent use. To change
// the registered templates, build a new Mapper and swap it in.
package mapper
