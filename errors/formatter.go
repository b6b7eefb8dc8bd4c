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

package errors

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

// json is configured to behave like encoding/json.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Formatter defines how errors are formatted in HTTP responses.
type Formatter interface {
	// Format converts an error into HTTP response components. instance is
	// the request path the error occurred for.
	Format(instance string, err error) Response
}

// Response represents a formatted error response.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is the response body, encoded with [Encode].
	Body any

	// Headers contains additional headers to set (optional).
	Headers http.Header
}

// ErrorType allows errors to declare their own HTTP status code.
//
// Example:
//
//	type ValidationError struct {
//		Message string
//	}
//
//	func (e ValidationError) Error() string {
//		return e.Message
//	}
//
//	func (e ValidationError) HTTPStatus() int {
//		return http.StatusBadRequest
//	}
type ErrorType interface {
	error
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrorDetails allows errors to provide additional structured information.
type ErrorDetails interface {
	error
	// Details returns structured information about the error.
	Details() any
}

// ErrorCode allows errors to provide a machine-readable code.
type ErrorCode interface {
	error
	// Code returns a machine-readable error code.
	Code() string
}

// ErrorHeaders allows errors to add headers to the response.
type ErrorHeaders interface {
	error
	// Headers returns the headers to add.
	Headers() http.Header
}

// NewRFC9457 creates a new RFC9457 formatter.
// The baseURL parameter is prepended to problem type slugs to create full URIs.
func NewRFC9457(baseURL string) *RFC9457 {
	return &RFC9457{
		BaseURL: baseURL,
	}
}

// NewSimple creates a new Simple formatter.
func NewSimple() *Simple {
	return &Simple{}
}

// WithStatus wraps an error with an explicit HTTP status code.
// If err is nil, the status text for the given status code is used as the error message.
//
//	return errors.WithStatus(err, http.StatusNotFound)
func WithStatus(err error, status int) error {
	return &statusError{err: err, status: status}
}

// WithCode wraps an error with an explicit HTTP status code and a
// machine-readable code.
func WithCode(err error, status int, code string) error {
	return &codedError{statusError: statusError{err: err, status: status}, code: code}
}

// statusError wraps an error with an explicit status code.
type statusError struct {
	err    error
	status int
}

func (e *statusError) Error() string {
	if e.err == nil {
		return http.StatusText(e.status)
	}
	return e.err.Error()
}

func (e *statusError) Unwrap() error {
	return e.err
}

func (e *statusError) HTTPStatus() int {
	return e.status
}

type codedError struct {
	statusError
	code string
}

func (e *codedError) Code() string {
	return e.code
}

// Encode renders a response body.
func Encode(body any) ([]byte, error) {
	return json.Marshal(body)
}

// Write writes resp to w.
func Write(w http.ResponseWriter, resp Response) error {
	data, err := Encode(resp.Body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	h := w.Header()
	for k, v := range resp.Headers {
		for _, val := range v {
			h.Add(k, val)
		}
	}
	h.Set("Content-Type", resp.ContentType)
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(resp.Status)
	_, err = w.Write(data)
	return err
}

// collectHeaders returns the headers declared by err, or nil.
func collectHeaders(err error) http.Header {
	var withHeaders ErrorHeaders
	if errors.As(err, &withHeaders) {
		return withHeaders.Headers()
	}
	return nil
}
