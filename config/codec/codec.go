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

// Package codec registers the encoders and decoders used by the route table
// loader. Codecs register themselves in init and are looked up by [Type].
package codec

import (
	"fmt"
	"sync"
)

// Type names a registered codec, e.g. "yaml".
type Type string

// Encoder converts a value into its encoded form.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// Decoder decodes data into the value pointed to by v.
type Decoder interface {
	Decode(data []byte, v any) error
}

var registry = struct {
	mu       sync.RWMutex
	encoders map[Type]Encoder
	decoders map[Type]Decoder
}{
	encoders: make(map[Type]Encoder),
	decoders: make(map[Type]Decoder),
}

// RegisterEncoder registers an encoder under name, replacing any previous one.
func RegisterEncoder(name Type, encoder Encoder) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.encoders[name] = encoder
}

// RegisterDecoder registers a decoder under name, replacing any previous one.
func RegisterDecoder(name Type, decoder Decoder) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.decoders[name] = decoder
}

// GetEncoder returns the encoder registered under name.
func GetEncoder(name Type) (Encoder, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	encoder, ok := registry.encoders[name]
	if !ok {
		return nil, fmt.Errorf("encoder not found for type: %s", name)
	}

	return encoder, nil
}

// GetDecoder returns the decoder registered under name.
func GetDecoder(name Type) (Decoder, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	decoder, ok := registry.decoders[name]
	if !ok {
		return nil, fmt.Errorf("decoder not found for type: %s", name)
	}

	return decoder, nil
}
