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

// Package substringmap provides an immutable string-keyed hash map that can
// be probed with a leading substring of a key without allocating.
//
// Path matching needs "is path[:n] a registered key?" for several lengths n
// on every request. A plain Go map would need path[:n] as a key, which is
// fine for strings but forces a copy when probing from a []byte buffer and
// hides the probe cost. [Map.GetPrefix] hashes and compares only the first n
// bytes of the probe.
//
// Maps are built with a [Builder] and never change afterwards:
//
//	b := substringmap.NewBuilder[int]()
//	b.Put("/api/", 1)
//	b.Put("/api/users/", 2)
//	m := b.Build()
//
//	v := m.GetPrefix("/api/users/42", len("/api/users/")) // 2
//
// A Map is safe for concurrent use. To change the contents, build a new Map.
package substringmap
