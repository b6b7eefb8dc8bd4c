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

// Package dumper writes the effective route table configuration out again.
package dumper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rivaas.dev/pathmap/config/codec"
)

// DefaultFilePermissions is used by [NewFile].
const DefaultFilePermissions = 0o644

// File writes configuration values to a file through an encoder.
type File struct {
	path        string
	encoder     codec.Encoder
	permissions os.FileMode
}

// NewFile returns a File dumper using [DefaultFilePermissions].
func NewFile(path string, encoder codec.Encoder) *File {
	return NewFileWithPermissions(path, encoder, DefaultFilePermissions)
}

// NewFileWithPermissions returns a File dumper creating the file with permissions.
func NewFileWithPermissions(path string, encoder codec.Encoder, permissions os.FileMode) *File {
	return &File{path: path, encoder: encoder, permissions: permissions}
}

// Dump encodes values and replaces the file. The data is written to a
// temporary file in the same directory first and then renamed.
func (f *File) Dump(_ context.Context, values map[string]any) error {
	data, err := f.encoder.Encode(values)
	if err != nil {
		return fmt.Errorf("failed to encode values: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), f.permissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
