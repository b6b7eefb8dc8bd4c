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

package codec

import (
	"fmt"

	"github.com/spf13/cast"
)

// CastType names the target type of a [CasterCodec].
type CastType string

// revive:disable:exported
const (
	CastTypeBool     CastType = "bool"
	CastTypeDuration CastType = "duration"
	CastTypeFloat64  CastType = "float64"
	CastTypeInt      CastType = "int"
	CastTypeInt64    CastType = "int64"
	CastTypeUint     CastType = "uint"
	CastTypeString   CastType = "string"
	CastTypeTime     CastType = "time"

	TypeCasterBool     Type = "caster-bool"
	TypeCasterDuration Type = "caster-duration"
	TypeCasterFloat64  Type = "caster-float64"
	TypeCasterInt      Type = "caster-int"
	TypeCasterInt64    Type = "caster-int64"
	TypeCasterUint     Type = "caster-uint"
	TypeCasterString   Type = "caster-string"
	TypeCasterTime     Type = "caster-time"
)

var casters = map[CastType]func(any) (any, error){
	CastTypeBool:     func(v any) (any, error) { return cast.ToBoolE(v) },
	CastTypeDuration: func(v any) (any, error) { return cast.ToDurationE(v) },
	CastTypeFloat64:  func(v any) (any, error) { return cast.ToFloat64E(v) },
	CastTypeInt:      func(v any) (any, error) { return cast.ToIntE(v) },
	CastTypeInt64:    func(v any) (any, error) { return cast.ToInt64E(v) },
	CastTypeUint:     func(v any) (any, error) { return cast.ToUintE(v) },
	CastTypeString:   func(v any) (any, error) { return cast.ToStringE(v) },
	CastTypeTime:     func(v any) (any, error) { return cast.ToTimeE(v) },
}

func init() {
	RegisterDecoder(TypeCasterBool, NewCaster(CastTypeBool))
	RegisterDecoder(TypeCasterDuration, NewCaster(CastTypeDuration))
	RegisterDecoder(TypeCasterFloat64, NewCaster(CastTypeFloat64))
	RegisterDecoder(TypeCasterInt, NewCaster(CastTypeInt))
	RegisterDecoder(TypeCasterInt64, NewCaster(CastTypeInt64))
	RegisterDecoder(TypeCasterUint, NewCaster(CastTypeUint))
	RegisterDecoder(TypeCasterString, NewCaster(CastTypeString))
	RegisterDecoder(TypeCasterTime, NewCaster(CastTypeTime))
}

// CasterCodec decodes a single scalar, such as a Consul key holding only
// the server address or a log level, into a typed value.
type CasterCodec struct {
	castType CastType
}

// NewCaster returns a CasterCodec for castType.
func NewCaster(castType CastType) *CasterCodec {
	return &CasterCodec{castType: castType}
}

// Decode expects v to be a *any.
func (c *CasterCodec) Decode(data []byte, v any) error {
	m, ok := v.(*any)
	if !ok {
		return fmt.Errorf("CasterCodec.Decode: expected *any, got %T", v)
	}

	fn, ok := casters[c.castType]
	if !ok {
		return fmt.Errorf("unknown cast type %q", c.castType)
	}

	val, err := fn(string(data))
	if err != nil {
		return err
	}
	*m = val

	return nil
}

// Cast converts v with the caster registered for castType. The route table
// binder uses it to apply `default` struct tags.
func Cast(castType CastType, v any) (any, error) {
	fn, ok := casters[castType]
	if !ok {
		return nil, fmt.Errorf("unknown cast type %q", castType)
	}

	return fn(v)
}
