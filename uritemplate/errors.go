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

package uritemplate

import "errors"

var (
	// ErrUnclosedBrace indicates that a template has a '{' without its matching '}'.
	ErrUnclosedBrace = errors.New("unclosed { in path template")

	// ErrInvalidRegex indicates that a template regular expression does not compile.
	ErrInvalidRegex = errors.New("invalid regular expression in path template")

	// ErrEmptyParamName indicates a placeholder without a parameter name, such as "{}" or "{:\d+}".
	ErrEmptyParamName = errors.New("empty parameter name in path template")
)
