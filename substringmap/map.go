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

package substringmap

// initialCapacity is the number of slots in a new builder. Must be a power of two.
const initialCapacity = 16

// entry is one occupied table slot.
type entry[V any] struct {
	key   string
	value *V
}

// hash computes 31*h+c over the first n bytes of s.
func hash(s string, n int) uint32 {
	var h uint32
	for i := 0; i < n; i++ {
		h = 31*h + uint32(s[i])
	}
	return h
}

// Builder collects keys and values for a [Map]. The zero value is not
// usable; create builders with [NewBuilder]. A Builder is not safe for
// concurrent use.
type Builder[V any] struct {
	table []entry[V]
	size  int
}

// NewBuilder returns an empty builder.
func NewBuilder[V any]() *Builder[V] {
	return &Builder[V]{table: make([]entry[V], initialCapacity)}
}

// Put stores value under key, replacing any previous value for key.
func (b *Builder[V]) Put(key string, value V) {
	v := value
	if b.insert(b.table, key, &v) {
		b.size++
	}
	// keep the table at most half full
	if b.size*2 > len(b.table) {
		b.resize()
	}
}

// Len returns the number of keys added so far.
func (b *Builder[V]) Len() int { return b.size }

// insert places key into table; it reports whether a new slot was used.
func (b *Builder[V]) insert(table []entry[V], key string, value *V) bool {
	mask := uint32(len(table) - 1)
	i := hash(key, len(key)) & mask
	for {
		e := &table[i]
		if e.value == nil {
			e.key = key
			e.value = value
			return true
		}
		if e.key == key {
			e.value = value
			return false
		}
		i = (i + 1) & mask
	}
}

func (b *Builder[V]) resize() {
	next := make([]entry[V], len(b.table)*2)
	for _, e := range b.table {
		if e.value != nil {
			b.insert(next, e.key, e.value)
		}
	}
	b.table = next
}

// Build returns an immutable map holding a snapshot of the builder contents.
// The builder can still be used afterwards without affecting the map.
func (b *Builder[V]) Build() *Map[V] {
	table := make([]entry[V], len(b.table))
	copy(table, b.table)
	return &Map[V]{table: table, size: b.size}
}

// Map is an immutable hash map from strings to values.
type Map[V any] struct {
	table []entry[V]
	size  int
}

// Get returns the value stored under key, or nil.
func (m *Map[V]) Get(key string) *V {
	return m.GetPrefix(key, len(key))
}

// GetPrefix returns the value stored under key[:length], or nil. It neither
// allocates nor slices key. A length larger than key, or negative, never matches.
func (m *Map[V]) GetPrefix(key string, length int) *V {
	if m == nil || length < 0 || length > len(key) || m.size == 0 {
		return nil
	}
	mask := uint32(len(m.table) - 1)
	i := hash(key, length) & mask
	for {
		e := &m.table[i]
		if e.value == nil {
			return nil
		}
		if len(e.key) == length && e.key == key[:length] {
			return e.value
		}
		i = (i + 1) & mask
	}
}

// Len returns the number of keys in the map.
func (m *Map[V]) Len() int {
	if m == nil {
		return 0
	}
	return m.size
}

// Keys returns the keys in table order.
func (m *Map[V]) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, m.size)
	for _, e := range m.table {
		if e.value != nil {
			keys = append(keys, e.key)
		}
	}
	return keys
}
