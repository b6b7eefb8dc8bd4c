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

package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/cast"

	"rivaas.dev/pathmap/config/codec"
	"rivaas.dev/pathmap/config/dumper"
	"rivaas.dev/pathmap/config/source"
)

// Option configures a [Config].
type Option func(c *Config) error

// Config merges configuration sources and keeps the last loaded values.
// It is safe for concurrent use.
type Config struct {
	mu         sync.RWMutex
	values     map[string]any
	sources    []Source
	dumpers    []Dumper
	binding    any
	tagName    string
	schema     *jsonschema.Schema
	validators []func(map[string]any) error
}

// WithSource adds a source.
func WithSource(src Source) Option {
	return func(c *Config) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		c.sources = append(c.sources, src)
		return nil
	}
}

// WithFile adds a file source. The format comes from the extension and the
// path is expanded with [os.ExpandEnv].
func WithFile(path string) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)
		format, err := detectFormat(path)
		if err != nil {
			return NewError("file-source", "detect-format", err)
		}
		return WithFileAs(path, format)(c)
	}
}

// WithFileAs adds a file source decoded with codecType.
func WithFileAs(path string, codecType codec.Type) Option {
	return func(c *Config) error {
		decoder, err := codec.GetDecoder(codecType)
		if err != nil {
			return NewError("file-source", "get-decoder", err)
		}
		c.sources = append(c.sources, source.NewFile(os.ExpandEnv(path), decoder))
		return nil
	}
}

// WithContent adds raw content decoded with codecType.
func WithContent(data []byte, codecType codec.Type) Option {
	return func(c *Config) error {
		decoder, err := codec.GetDecoder(codecType)
		if err != nil {
			return NewError("content-source", "get-decoder", err)
		}
		c.sources = append(c.sources, source.NewFileContent(data, decoder))
		return nil
	}
}

// WithEnv adds the environment variables starting with prefix.
func WithEnv(prefix string) Option {
	return func(c *Config) error {
		c.sources = append(c.sources, source.NewOSEnvVar(prefix))
		return nil
	}
}

// WithConsul adds a Consul KV source; the format comes from the key's
// extension. The option does nothing when CONSUL_HTTP_ADDR is unset.
func WithConsul(key string) Option {
	return func(c *Config) error {
		key = os.ExpandEnv(key)
		format, err := detectFormat(key)
		if err != nil {
			return NewError("consul-source", "detect-format", err)
		}
		return WithConsulAs(key, format)(c)
	}
}

// WithConsulAs adds a Consul KV source decoded with codecType.
func WithConsulAs(key string, codecType codec.Type) Option {
	return func(c *Config) error {
		if os.Getenv("CONSUL_HTTP_ADDR") == "" {
			return nil
		}

		decoder, err := codec.GetDecoder(codecType)
		if err != nil {
			return NewError("consul-source", "get-decoder", err)
		}
		src, err := source.NewConsul(os.ExpandEnv(key), decoder, nil)
		if err != nil {
			return NewError("consul-source", "create-client", err)
		}
		c.sources = append(c.sources, src)
		return nil
	}
}

// WithFileDumper writes the merged values to path on [Config.Dump].
func WithFileDumper(path string) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)
		format, err := detectFormat(path)
		if err != nil {
			return NewError("file-dumper", "detect-format", err)
		}
		encoder, err := codec.GetEncoder(format)
		if err != nil {
			return NewError("file-dumper", "get-encoder", err)
		}
		c.dumpers = append(c.dumpers, dumper.NewFile(path, encoder))
		return nil
	}
}

// WithDumper adds a dumper.
func WithDumper(d Dumper) Option {
	return func(c *Config) error {
		if d == nil {
			return errors.New("dumper cannot be nil")
		}
		c.dumpers = append(c.dumpers, d)
		return nil
	}
}

// WithBinding binds the merged values into v, which must be a pointer.
// If *v implements Validate() error it is called after binding.
func WithBinding(v any) Option {
	return func(c *Config) error {
		if v == nil {
			return errors.New("binding target cannot be nil")
		}
		if reflect.TypeOf(v).Kind() != reflect.Pointer {
			return errors.New("binding target must be a pointer")
		}
		c.binding = v
		return nil
	}
}

// WithTag sets the struct tag used for binding (default "config").
func WithTag(tagName string) Option {
	return func(c *Config) error {
		if tagName == "" {
			return errors.New("tag name cannot be empty")
		}
		c.tagName = tagName
		return nil
	}
}

// WithJSONSchema validates the merged values against schema.
func WithJSONSchema(schema []byte) Option {
	return func(c *Config) error {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
		if err != nil {
			return NewError("json-schema", "parse", err)
		}

		const url = "mem://pathmap/config.schema.json"
		compiler := jsonschema.NewCompiler()
		if err = compiler.AddResource(url, doc); err != nil {
			return NewError("json-schema", "compile", err)
		}
		if c.schema, err = compiler.Compile(url); err != nil {
			return NewError("json-schema", "compile", err)
		}
		return nil
	}
}

// WithValidator adds a check on the merged values.
func WithValidator(fn func(map[string]any) error) Option {
	return func(c *Config) error {
		if fn == nil {
			return errors.New("validator cannot be nil")
		}
		c.validators = append(c.validators, fn)
		return nil
	}
}

// Validator is implemented by binding targets that check themselves.
type Validator interface {
	Validate() error
}

// New applies options. All option errors are joined. The returned Config
// is usable even when err is non-nil.
func New(options ...Option) (*Config, error) {
	c := &Config{values: map[string]any{}, tagName: "config"}

	var errs error
	for _, opt := range options {
		if opt == nil {
			continue
		}
		errs = errors.Join(errs, opt(c))
	}

	return c, errs
}

// MustNew is like [New] but panics on error.
func MustNew(options ...Option) *Config {
	c, err := New(options...)
	if err != nil {
		panic(fmt.Sprintf("config: failed to create config: %v", err))
	}

	return c
}

// Load reads every source, merges, validates and binds. On error the
// previous values and binding are left untouched.
func (c *Config) Load(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}

	values := make(map[string]any)
	for i, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return err
		}

		conf, err := src.Load(ctx)
		if err != nil {
			return NewError(fmt.Sprintf("source[%d]", i), "load", err)
		}
		if err = mergo.Map(&values, normalize(conf), mergo.WithOverride); err != nil {
			return NewError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}

	if c.schema != nil {
		if err := c.schema.Validate(values); err != nil {
			return NewError("json-schema", "validate", err)
		}
	}

	for i, fn := range c.validators {
		if err := runValidator(fn, values); err != nil {
			return NewError(fmt.Sprintf("custom-validator[%d]", i), "validate", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.binding != nil {
		target := reflect.New(reflect.TypeOf(c.binding).Elem()).Interface()
		if err := c.decode(values, target); err != nil {
			return NewError("binding", "bind", err)
		}
		if v, ok := target.(Validator); ok {
			if err := v.Validate(); err != nil {
				return NewError("binding", "validate", err)
			}
		}
		reflect.ValueOf(c.binding).Elem().Set(reflect.ValueOf(target).Elem())
	}
	c.values = values

	return nil
}

// MustLoad is like [Config.Load] but panics on error.
func (c *Config) MustLoad(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		panic(err)
	}
}

func runValidator(fn func(map[string]any) error, values map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()

	return fn(values)
}

func (c *Config) decode(values map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          c.tagName,
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err = dec.Decode(values); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err = applyDefaults(target); err != nil {
		return fmt.Errorf("failed to apply defaults: %w", err)
	}

	return nil
}

// normalize lowercases keys and turns typed slices produced by some
// decoders (TOML arrays of tables) into []any so that schema validation
// and merging see one shape.
func normalize(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = normalizeValue(v)
	}

	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalize(t)
	case []map[string]any:
		s := make([]any, len(t))
		for i, m := range t {
			s[i] = normalize(m)
		}
		return s
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = normalizeValue(e)
		}
		return s
	default:
		return v
	}
}

// Dump writes the current values to every dumper.
func (c *Config) Dump(ctx context.Context) error {
	values := c.Values()
	for _, d := range c.dumpers {
		if err := d.Dump(ctx, values); err != nil {
			return err
		}
	}

	return nil
}

// Watch reloads the configuration whenever a watching source reports a
// change and passes the result of each reload to onReload. It blocks until
// ctx is done and returns the first watcher error.
func (c *Config) Watch(ctx context.Context, onReload func(error)) error {
	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		first   error
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, src := range c.sources {
		w, ok := src.(Watcher)
		if !ok {
			continue
		}
		wg.Go(func() {
			err := w.Watch(ctx, func() { onReload(c.Load(ctx)) })
			if err != nil {
				errOnce.Do(func() { first = err; cancel() })
			}
		})
	}
	wg.Wait()

	return first
}

// Values returns a shallow copy of the loaded values.
func (c *Config) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}

	return out
}

// Get returns the value at a dotted, case-insensitive key, or nil.
func (c *Config) Get(key string) any {
	if c == nil || key == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	key = strings.ToLower(key)
	if v, ok := c.values[key]; ok {
		return v
	}

	var cur any = c.values
	for seg := range strings.SplitSeq(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[seg]; !ok {
			return nil
		}
	}

	return cur
}

// String returns the value at key as a string, or "".
func (c *Config) String(key string) string { return cast.ToString(c.Get(key)) }

// Int returns the value at key as an int, or 0.
func (c *Config) Int(key string) int { return cast.ToInt(c.Get(key)) }

// Bool returns the value at key as a bool, or false.
func (c *Config) Bool(key string) bool { return cast.ToBool(c.Get(key)) }

// Duration returns the value at key as a duration, or 0.
func (c *Config) Duration(key string) time.Duration { return cast.ToDuration(c.Get(key)) }

// StringSlice returns the value at key as a string slice.
func (c *Config) StringSlice(key string) []string { return cast.ToStringSlice(c.Get(key)) }

// StringOr returns the value at key or def when it is missing.
func (c *Config) StringOr(key, def string) string {
	if v := c.Get(key); v != nil {
		return cast.ToString(v)
	}
	return def
}

// DurationOr returns the value at key or def when it is missing or invalid.
func (c *Config) DurationOr(key string, def time.Duration) time.Duration {
	if v := c.Get(key); v != nil {
		if d, err := cast.ToDurationE(v); err == nil {
			return d
		}
	}
	return def
}
