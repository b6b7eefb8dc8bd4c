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

// Package errors formats routing and handler errors as HTTP responses.
//
// Two formatters are provided:
//   - RFC9457: RFC 9457 Problem Details (application/problem+json)
//   - Simple: Simple JSON error responses (application/json)
//
// Errors can implement optional interfaces to control the response:
//
//   - ErrorType: Declare HTTP status code
//   - ErrorCode: Provide a machine-readable code
//   - ErrorDetails: Provide structured details
//   - ErrorHeaders: Add response headers, such as Allow on a 405
//
// The package does not depend on a particular server: a formatter turns an
// error and the request path into a [Response], and [Encode] renders the body
// with json-iterator.
//
//	formatter := errors.NewRFC9457("https://pathmap.dev/problems")
//	resp := formatter.Format(req.URL.Path, err)
//	errors.Write(w, resp)
package errors
