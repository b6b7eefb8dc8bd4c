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

// Package source provides the places a route table can be loaded from:
// files or raw content, environment variables and Consul KV.
package source

import (
	"context"
	"fmt"
	"os"

	"rivaas.dev/pathmap/config/codec"
)

// File loads a route table document from a path or from raw bytes.
type File struct {
	path    string
	data    []byte
	decoder codec.Decoder
}

// NewFile returns a File reading path on every Load.
func NewFile(path string, decoder codec.Decoder) *File {
	return &File{path: path, decoder: decoder}
}

// NewFileContent returns a File decoding data.
func NewFileContent(data []byte, decoder codec.Decoder) *File {
	return &File{data: data, decoder: decoder}
}

// Load reads and decodes the document. The file is re-read each time so a
// reload picks up edits.
func (f *File) Load(context.Context) (map[string]any, error) {
	data := f.data
	if f.path != "" {
		var err error
		if data, err = os.ReadFile(f.path); err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	}

	var conf map[string]any
	if err := f.decoder.Decode(data, &conf); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}

	return conf, nil
}

// String names the source in errors and logs.
func (f *File) String() string {
	if f.path == "" {
		return "content"
	}
	return "file:" + f.path
}
