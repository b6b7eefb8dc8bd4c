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

package dispatch

import (
	"errors"
	"net/http"
	"strings"
)

// Sentinel errors returned by [Deployment.Resolve] and [NewDeployment].
var (
	// ErrNotFound is returned when no resource template matches the path.
	ErrNotFound = errors.New("dispatch: no resource matches the request path")

	// ErrMethodNotAllowed is matched by [*MethodNotAllowedError].
	ErrMethodNotAllowed = errors.New("dispatch: method not allowed")

	// ErrBadPath is returned when a path parameter has malformed percent-encoding.
	ErrBadPath = errors.New("dispatch: malformed request path")

	// ErrUnsupportedMediaType is returned when no candidate method consumes the request Content-Type.
	ErrUnsupportedMediaType = errors.New("dispatch: unsupported media type")

	// ErrNotAcceptable is returned when no candidate method produces a type the request accepts.
	ErrNotAcceptable = errors.New("dispatch: not acceptable")

	// ErrInvalidResource is returned by NewDeployment for a malformed resource.
	ErrInvalidResource = errors.New("dispatch: invalid resource")

	// ErrNoDeployment is returned by a Dispatcher that has nothing loaded.
	ErrNoDeployment = errors.New("dispatch: no deployment loaded")
)

// MethodNotAllowedError reports a path that matches only for other HTTP methods.
type MethodNotAllowedError struct {
	Method string
	Allow  []string
}

func (e *MethodNotAllowedError) Error() string {
	return "dispatch: method " + e.Method + " not allowed, allowed: " + strings.Join(e.Allow, ", ")
}

// Unwrap returns ErrMethodNotAllowed.
func (e *MethodNotAllowedError) Unwrap() error { return ErrMethodNotAllowed }

// HTTPStatus returns 405.
func (e *MethodNotAllowedError) HTTPStatus() int { return http.StatusMethodNotAllowed }

// Code returns a machine-readable error code.
func (e *MethodNotAllowedError) Code() string { return "method_not_allowed" }

// Headers returns the Allow header for the response.
func (e *MethodNotAllowedError) Headers() http.Header {
	return http.Header{"Allow": []string{strings.Join(e.Allow, ", ")}}
}

// StatusOf returns the HTTP status for an error returned by Resolve.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrBadPath):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrNotAcceptable):
		return http.StatusNotAcceptable
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns a machine-readable code for an error returned by Resolve.
func CodeOf(err error) string {
	switch StatusOf(err) {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusBadRequest:
		return "bad_path"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusNotAcceptable:
		return "not_acceptable"
	default:
		return "internal"
	}
}
