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

package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/hashicorp/consul/api"

	"rivaas.dev/pathmap/config/codec"
)

// ConsulKV is the subset of the Consul KV client used by [Consul].
type ConsulKV interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
}

// DefaultWatchWait is the blocking query wait used by [Consul.Watch].
const DefaultWatchWait = 5 * time.Minute

// Consul loads a route table stored under one Consul key.
//
// The client is configured from CONSUL_HTTP_ADDR and CONSUL_HTTP_TOKEN.
type Consul struct {
	kv      ConsulKV
	key     string
	decoder codec.Decoder
	wait    time.Duration
}

// NewConsul returns a Consul source for key. When kv is nil a client is
// built from the environment.
func NewConsul(key string, decoder codec.Decoder, kv ConsulKV) (*Consul, error) {
	if kv == nil {
		client, err := api.NewClient(api.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create consul client: %w", err)
		}
		kv = client.KV()
	}

	return &Consul{kv: kv, key: key, decoder: decoder, wait: DefaultWatchWait}, nil
}

// Load fetches and decodes the key. A missing key yields an empty map.
// Caster decoders produce a single entry named after the last key segment.
func (c *Consul) Load(ctx context.Context) (map[string]any, error) {
	pair, _, err := c.kv.Get(c.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get consul key: %w", err)
	}

	return c.decode(pair)
}

func (c *Consul) decode(pair *api.KVPair) (map[string]any, error) {
	if pair == nil {
		return map[string]any{}, nil
	}

	if caster, ok := c.decoder.(*codec.CasterCodec); ok {
		var val any
		if err := caster.Decode(pair.Value, &val); err != nil {
			return nil, fmt.Errorf("failed to decode consul value: %w", err)
		}
		return map[string]any{path.Base(pair.Key): val}, nil
	}

	var conf map[string]any
	if err := c.decoder.Decode(pair.Value, &conf); err != nil {
		return nil, fmt.Errorf("failed to decode consul value: %w", err)
	}

	return conf, nil
}

// Watch blocks on the key's modify index and calls changed whenever it
// moves. It returns nil when ctx is done and the first query error otherwise.
func (c *Consul) Watch(ctx context.Context, changed func()) error {
	var index uint64
	for {
		q := (&api.QueryOptions{WaitIndex: index, WaitTime: c.wait}).WithContext(ctx)
		_, meta, err := c.kv.Get(c.key, q)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to watch consul key: %w", err)
		}
		if meta == nil {
			return errors.New("consul returned no query metadata")
		}

		switch {
		case meta.LastIndex < index:
			// index went backwards, e.g. after a snapshot restore
			index = 0
			changed()
		case meta.LastIndex > index:
			if index != 0 {
				changed()
			}
			index = meta.LastIndex
		}
	}
}

func (c *Consul) String() string { return "consul:" + c.key }
