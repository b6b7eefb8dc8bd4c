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
	"context"
	_ "embed"
	"errors"
	"fmt"
	"mime"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"rivaas.dev/pathmap/dispatch"
	"rivaas.dev/pathmap/uritemplate"
)

// DefaultRouteTableSchema is the JSON schema applied by [LoadRouteTable].
//
//go:embed routetable.schema.json
var DefaultRouteTableSchema []byte

// RouteTable is the on-disk form of a deployment and its server settings.
type RouteTable struct {
	Service   string           `config:"service" validate:"required"`
	Server    ServerConfig     `config:"server"`
	Logging   LoggingConfig    `config:"logging"`
	Metrics   MetricsConfig    `config:"metrics"`
	Tracing   TracingConfig    `config:"tracing"`
	Resources []ResourceConfig `config:"resources" validate:"dive"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr     string         `config:"addr" default:":8080"`
	Engine   string         `config:"engine" default:"nethttp" validate:"oneof=nethttp fasthttp"`
	H2C      bool           `config:"h2c"`
	Timeouts TimeoutsConfig `config:"timeouts"`
}

// TimeoutsConfig holds the server timeouts.
type TimeoutsConfig struct {
	ReadHeader time.Duration `config:"readheader" default:"5s"`
	Read       time.Duration `config:"read" default:"15s"`
	Write      time.Duration `config:"write" default:"15s"`
	Idle       time.Duration `config:"idle" default:"60s"`
	Shutdown   time.Duration `config:"shutdown" default:"30s"`
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	Level  string `config:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `config:"format" default:"json" validate:"oneof=json text console"`
}

// MetricsConfig enables the lookup metrics.
type MetricsConfig struct {
	Enabled  bool   `config:"enabled"`
	Provider string `config:"provider" default:"prometheus" validate:"oneof=prometheus otlp stdout"`
	Endpoint string `config:"endpoint"`
	Path     string `config:"path" default:"/metrics" validate:"startswith=/"`
}

// TracingConfig enables route resolution spans.
type TracingConfig struct {
	Enabled    bool    `config:"enabled"`
	Provider   string  `config:"provider" default:"stdout" validate:"oneof=noop stdout otlp otlp-http"`
	Endpoint   string  `config:"endpoint"`
	SampleRate float64 `config:"samplerate" default:"1" validate:"gte=0,lte=1"`
}

// ResourceConfig is one resource class.
type ResourceConfig struct {
	Path    string         `config:"path" validate:"template"`
	Name    string         `config:"name" validate:"required"`
	Methods []MethodConfig `config:"methods" validate:"required,dive"`
}

// MethodConfig is one resource method, or a locator when Method is empty.
type MethodConfig struct {
	Method   string   `config:"method" validate:"omitempty,httpmethod"`
	Path     string   `config:"path" validate:"template"`
	Name     string   `config:"name" validate:"required"`
	Produces []string `config:"produces" validate:"dive,mediatype"`
	Consumes []string `config:"consumes" validate:"dive,mediatype"`
	Handler  string   `config:"handler" validate:"required"`
}

var routeValidator = sync.OnceValues(func() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name, _, _ := strings.Cut(f.Tag.Get("config"), ","); name != "" && name != "-" {
			return name
		}
		return f.Name
	})

	checks := map[string]validator.Func{
		"template": func(fl validator.FieldLevel) bool {
			_, err := uritemplate.New(fl.Field().String(), false)
			return err == nil
		},
		"httpmethod": func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s != "" && strings.IndexFunc(s, func(r rune) bool { return r < 'A' || r > 'Z' }) < 0
		},
		"mediatype": func(fl validator.FieldLevel) bool {
			mt, _, err := mime.ParseMediaType(fl.Field().String())
			return err == nil && strings.Contains(mt, "/")
		},
	}
	for tag, fn := range checks {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("register %q: %w", tag, err)
		}
	}

	return v, nil
})

// Validate checks the struct tags and reports every failing field.
func (rt *RouteTable) Validate() error {
	v, err := routeValidator()
	if err != nil {
		return err
	}

	err = v.Struct(rt)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		errs = append(errs, NewFieldError("route-table", field, "validate", fieldMessage(fe)))
	}

	return errors.Join(errs...)
}

func fieldMessage(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return errors.New("is required")
	case "oneof":
		return fmt.Errorf("must be one of [%s]", fe.Param())
	case "template":
		_, err := uritemplate.New(fmt.Sprint(fe.Value()), false)
		return fmt.Errorf("invalid template: %w", err)
	case "httpmethod":
		return fmt.Errorf("%q is not an upper-case HTTP method", fe.Value())
	case "mediatype":
		return fmt.Errorf("%q is not a media type", fe.Value())
	default:
		return fmt.Errorf("failed %q check", fe.Tag())
	}
}

// LoadRouteTable loads and validates a route table. The schema and binding
// are added to opts, so opts only name the sources.
func LoadRouteTable(ctx context.Context, opts ...Option) (*RouteTable, *Config, error) {
	rt := &RouteTable{}
	all := append([]Option{WithJSONSchema(DefaultRouteTableSchema), WithBinding(rt)}, opts...)

	cfg, err := New(all...)
	if err != nil {
		return nil, nil, err
	}
	if err = cfg.Load(ctx); err != nil {
		return nil, nil, err
	}

	return rt, cfg, nil
}

// HandlerResolver turns a handler reference from a route table into a handler.
type HandlerResolver[H any] func(ref string, m MethodConfig) (H, error)

// BuildResources converts the table into dispatch resources.
func BuildResources[H any](rt *RouteTable, resolve HandlerResolver[H]) ([]dispatch.Resource[H], error) {
	resources := make([]dispatch.Resource[H], 0, len(rt.Resources))
	for i, rc := range rt.Resources {
		res := dispatch.Resource[H]{Path: rc.Path, Name: rc.Name}
		for j, mc := range rc.Methods {
			h, err := resolve(mc.Handler, mc)
			if err != nil {
				field := fmt.Sprintf("resources.%d.methods.%d.handler", i, j)
				return nil, NewFieldError("route-table", field, "resolve", err)
			}
			res.Methods = append(res.Methods, dispatch.Method[H]{
				HTTPMethod: mc.Method,
				Path:       mc.Path,
				Name:       mc.Name,
				Produces:   mc.Produces,
				Consumes:   mc.Consumes,
				Handler:    h,
			})
		}
		resources = append(resources, res)
	}

	return resources, nil
}
