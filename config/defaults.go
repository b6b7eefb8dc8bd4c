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
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"rivaas.dev/pathmap/config/codec"
)

var durationType = reflect.TypeFor[time.Duration]()

// applyDefaults fills zero-valued fields from their `default` tag. Nested
// structs and slices of structs are walked. An explicit zero in the source
// cannot be told apart from a missing value and is replaced too.
func applyDefaults(target any) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return errors.New("target must be a pointer to a struct")
	}

	return setDefaults(val.Elem())
}

func setDefaults(val reflect.Value) error {
	typ := val.Type()
	for i := range val.NumField() {
		field, sf := val.Field(i), typ.Field(i)
		if !field.CanSet() {
			continue
		}

		switch {
		case field.Kind() == reflect.Struct:
			if err := setDefaults(field); err != nil {
				return err
			}
			continue
		case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.Struct:
			for j := range field.Len() {
				if err := setDefaults(field.Index(j)); err != nil {
					return err
				}
			}
			continue
		}

		def, ok := sf.Tag.Lookup("default")
		if !ok || !field.IsZero() {
			continue
		}
		if err := setDefaultValue(field, def); err != nil {
			return fmt.Errorf("failed to set default for field %s: %w", sf.Name, err)
		}
	}

	return nil
}

func setDefaultValue(field reflect.Value, def string) error {
	var castType codec.CastType
	switch k := field.Kind(); {
	case field.Type() == durationType:
		castType = codec.CastTypeDuration
	case k == reflect.String:
		castType = codec.CastTypeString
	case k == reflect.Bool:
		castType = codec.CastTypeBool
	case k >= reflect.Int && k <= reflect.Int64:
		castType = codec.CastTypeInt64
	case k >= reflect.Uint && k <= reflect.Uint64:
		castType = codec.CastTypeUint
	case k == reflect.Float32 || k == reflect.Float64:
		castType = codec.CastTypeFloat64
	case k == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(strings.FieldsFunc(def, func(r rune) bool { return r == ',' })))
		return nil
	default:
		return fmt.Errorf("unsupported type for default tag: %s", field.Kind())
	}

	v, err := codec.Cast(castType, def)
	if err != nil {
		return err
	}
	field.Set(reflect.ValueOf(v).Convert(field.Type()))

	return nil
}
