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

package router

import (
	"context"
	"net/http"
)

type resultKey struct{}

// ResultFromContext returns the result stored by [Router.ServeHTTP].
func ResultFromContext(ctx context.Context) (*Result, bool) {
	res, ok := ctx.Value(resultKey{}).(*Result)
	return res, ok
}

// Param returns the decoded path parameter name of req, or "".
func Param(req *http.Request, name string) string {
	res, ok := ResultFromContext(req.Context())
	if !ok {
		return ""
	}
	v, _ := res.Param(name)
	return v
}

// Remaining returns the path left over by a sub-resource locator, or "".
func Remaining(req *http.Request) string {
	if res, ok := ResultFromContext(req.Context()); ok {
		return res.Remaining
	}
	return ""
}
