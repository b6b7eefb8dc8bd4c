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

// Package config loads route tables from several sources and binds them.
//
// Sources are merged in order, later ones overriding earlier ones. Keys are
// lowercased before merging so a YAML file and an environment variable
// address the same entry:
//
//	rt, cfg, err := config.LoadRouteTable(ctx,
//	    config.WithFile("routes.yaml"),
//	    config.WithEnv("PATHMAP_"),
//	    config.WithConsul("pathmap/routes.json"),
//	)
//
// The merged map is checked against a JSON schema, bound into a struct with
// mapstructure (tag "config"), completed from `default` tags and finally
// validated with go-playground/validator.
//
// Consul sources are skipped when CONSUL_HTTP_ADDR is unset.
package config
