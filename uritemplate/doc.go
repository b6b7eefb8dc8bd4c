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

// Package uritemplate compiles JAX-RS style path templates.
//
// A template is a path such as "/users/{id}/files/{name:.+}". Literal text is
// matched byte for byte, "{name}" captures a single path segment and
// "{name:regex}" captures whatever the regular expression matches, possibly
// across segment boundaries.
//
// # Compilation
//
// New scans the template once and produces an ordered list of components:
//
//   - Literal: text that must appear verbatim
//   - DefaultRegex: a "{name}" placeholder that ends the template or is followed
//     by '/'; it matches up to the next '/'
//   - CustomRegex: a "{name:regex}" placeholder, or a "{name}" placeholder
//     embedded in a segment (such as "{base}.{ext}")
//
// Once a CustomRegex component appears, it and every following component are
// merged into one compiled regular expression, because a user pattern may
// consume characters that would otherwise belong to later segments.
//
// # Ordering
//
// Compare orders templates sharing a stem so the most specific template is
// tried first: more literal characters first, then fewer capturing groups,
// then fewer regular expression groups, then the template text.
//
// Templates are immutable once compiled and safe for concurrent use.
package uritemplate
