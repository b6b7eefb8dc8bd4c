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

// ParamIndex maps every parameter name captured by class and method to its
// position in the concatenation of the class values and the method values.
// When a name appears more than once the last position wins, so a method
// parameter shadows a class parameter of the same name. Either template may
// be nil.
func ParamIndex(class, method *Template) map[string]int {
	index := make(map[string]int)
	next := 0
	for _, t := range []*Template{class, method} {
		if t == nil {
			continue
		}
		for _, name := range t.ParamNames() {
			index[name] = next
			next++
		}
	}
	return index
}
