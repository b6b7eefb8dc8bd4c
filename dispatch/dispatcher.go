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
	"sync/atomic"
)

// Dispatcher holds the current [Deployment] and replaces it atomically.
// It is safe for concurrent use.
type Dispatcher[H any] struct {
	current atomic.Pointer[Deployment[H]]
	opts    []Option
}

// NewDispatcher returns a dispatcher with nothing loaded. opts apply to every
// deployment built by Load.
func NewDispatcher[H any](opts ...Option) *Dispatcher[H] {
	return &Dispatcher[H]{opts: opts}
}

// Load builds a deployment from resources and makes it current. On error the
// current deployment is kept.
func (d *Dispatcher[H]) Load(resources []Resource[H]) error {
	dep, err := NewDeployment(resources, d.opts...)
	if err != nil {
		return err
	}
	d.current.Store(dep)
	return nil
}

// Swap makes dep current and returns the previous deployment, if any.
func (d *Dispatcher[H]) Swap(dep *Deployment[H]) *Deployment[H] {
	return d.current.Swap(dep)
}

// Current returns the current deployment, or nil.
func (d *Dispatcher[H]) Current() *Deployment[H] {
	return d.current.Load()
}

// Resolve resolves against the current deployment.
func (d *Dispatcher[H]) Resolve(httpMethod, path, contentType, accept string) (*Result[H], error) {
	dep := d.current.Load()
	if dep == nil {
		return nil, ErrNoDeployment
	}
	return dep.Resolve(httpMethod, path, contentType, accept)
}
