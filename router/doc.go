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

// Package router serves a [dispatch.Deployment] over net/http or fasthttp.
//
// Resources are the unit of registration. Each method's handler runs with the
// resolved [dispatch.Result] in its request context:
//
//	r := router.MustNew([]dispatch.Resource[http.Handler]{{
//		Path: "/users",
//		Methods: []dispatch.Method[http.Handler]{
//			{HTTPMethod: http.MethodGet, Path: "/{id}", Handler: http.HandlerFunc(getUser)},
//		},
//	}})
//
//	func getUser(w http.ResponseWriter, req *http.Request) {
//		id := router.Param(req, "id")
//		...
//	}
//
// Misses are written through an [errors.Formatter] (RFC 9457 problem details
// by default): 404 for unknown paths, 405 with an Allow header for known paths
// with the wrong method, 400 for malformed escapes and 415/406 when media
// types rule out every candidate. OPTIONS requests without a handler answer
// 204 with Allow.
//
// [Router.Reload] replaces the route table atomically while serving.
// [FastRouter] offers the same behavior for fasthttp.
package router
