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

// Package dispatch resolves HTTP requests against resource classes and their
// methods in two levels, the way JAX-RS does.
//
// A [Resource] has a class path, compiled as a prefix template, and a set of
// [Method] values with paths relative to it. Resolution maps the request path
// against all class templates first; the remaining path is then mapped against
// the selected class's templates for the request's HTTP method.
//
// A Method without an HTTP method is a sub-resource locator. Locators are
// prefix templates that match for every HTTP method, unless a resource method
// with the same template exists for that HTTP method.
//
// When several methods share an HTTP method and template, the request's
// Content-Type and Accept headers select between them.
//
// # Hot reload
//
// A [Deployment] is immutable. [Dispatcher] holds the current deployment in an
// atomic pointer so a rebuilt deployment can replace it while requests are
// being served:
//
//	d := dispatch.NewDispatcher[http.Handler]()
//	if err := d.Load(resources); err != nil {
//	    return err
//	}
//	res, err := d.Resolve(req.Method, req.URL.EscapedPath(), req.Header.Get("Content-Type"), req.Header.Get("Accept"))
package dispatch
