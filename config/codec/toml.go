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

package codec

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// TypeTOML is the TOML codec.
const TypeTOML Type = "toml"

func init() {
	RegisterEncoder(TypeTOML, TOMLCodec{})
	RegisterDecoder(TypeTOML, TOMLCodec{})
}

// TOMLCodec reads route tables written as TOML, where resources are an
// array of tables ([[resources]]) and methods a nested one
// ([[resources.methods]]).
type TOMLCodec struct{}

func (TOMLCodec) Encode(v any) ([]byte, error) {
	return toml.Marshal(v)
}

// Decode reports syntax errors with their line number.
func (TOMLCodec) Decode(data []byte, v any) error {
	err := toml.Unmarshal(data, v)
	var pe toml.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("toml: line %d: %s", pe.Position.Line, pe.Message)
	}
	return err
}
