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

package config

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"rivaas.dev/pathmap/config/codec"
)

// ErrUnknownFormat is returned for a route table path whose extension names
// no registered codec.
var ErrUnknownFormat = errors.New("unknown route table format")

// extensionFormats maps route table extensions to codecs. Consul keys follow
// the same rule, so "pathmap/routes.yaml" is read as YAML.
var extensionFormats = map[string]codec.Type{
	".yaml": codec.TypeYAML,
	".yml":  codec.TypeYAML,
	".json": codec.TypeJSON,
	".toml": codec.TypeTOML,
}

func detectFormat(path string) (codec.Type, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if format, ok := extensionFormats[ext]; ok {
		return format, nil
	}

	known := slices.Sorted(maps.Keys(extensionFormats))
	return "", fmt.Errorf("%w: %q has extension %q, want one of %s or name the codec with WithFileAs/WithConsulAs",
		ErrUnknownFormat, path, ext, strings.Join(known, ", "))
}
