// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package attrval

import (
	"encoding/json"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/pkg/errors"
)

// envelope is the JSON wire form of a Value: a kind tag plus the field for
// that kind. Only one of the payload fields is set.
type envelope struct {
	Kind string `json:"kind"`

	Str   *string                    `json:"s,omitempty"`
	Int   *int64                     `json:"i,omitempty"`
	Float *float32                   `json:"f,omitempty"`
	Bool  *bool                      `json:"b,omitempty"`
	Type  string                     `json:"type,omitempty"`
	Shape *shapes.Shape              `json:"shape,omitempty"`
	DType string                     `json:"dtype,omitempty"`
	Dims  []int                      `json:"dims,omitempty"`
	Data  []byte                     `json:"data,omitempty"`
	Elems []json.RawMessage          `json:"elems,omitempty"`
	Name  string                     `json:"name,omitempty"`
	Attrs map[string]json.RawMessage `json:"attrs,omitempty"`
}

// MarshalValue encodes a Value as JSON. Raw values cannot be serialized and
// return an error; callers are expected to skip them.
func MarshalValue(v Value) ([]byte, error) {
	env, err := toEnvelope(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func toEnvelope(v Value) (*envelope, error) {
	if v == nil {
		return nil, errors.New("cannot marshal nil attribute value")
	}
	env := &envelope{Kind: v.Kind().String()}
	switch v := v.(type) {
	case Str:
		s := string(v)
		env.Str = &s
	case Int:
		i := int64(v)
		env.Int = &i
	case Float:
		f := float32(v)
		env.Float = &f
	case Bool:
		b := bool(v)
		env.Bool = &b
	case Type:
		env.Type = v.DType().String()
	case Shape:
		shape := v.Shape
		env.Shape = &shape
	case Tensor:
		env.DType = v.DType.String()
		env.Dims = v.Dims
		env.Data = v.Data
	case List:
		env.Elems = make([]json.RawMessage, len(v))
		for ii, elem := range v {
			data, err := MarshalValue(elem)
			if err != nil {
				return nil, errors.WithMessagef(err, "marshaling list element %d", ii)
			}
			env.Elems[ii] = data
		}
	case Func:
		env.Name = v.Name
		env.Attrs = make(map[string]json.RawMessage, len(v.Attrs))
		for key, elem := range v.Attrs {
			data, err := MarshalValue(elem)
			if err != nil {
				return nil, errors.WithMessagef(err, "marshaling nested attribute %q", key)
			}
			env.Attrs[key] = data
		}
	case Raw:
		return nil, errors.Errorf("raw attribute values are process-local and cannot be serialized (got %s)", v)
	default:
		return nil, errors.Errorf("unsupported attribute value type %T", v)
	}
	return env, nil
}

// UnmarshalValue decodes a Value encoded by MarshalValue.
func UnmarshalValue(data []byte) (Value, error) {
	env := &envelope{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, errors.Wrapf(err, "cannot unmarshal attribute value %q", data)
	}
	return fromEnvelope(env)
}

func fromEnvelope(env *envelope) (Value, error) {
	switch KindFromString(env.Kind) {
	case KindStr:
		if env.Str == nil {
			return nil, errors.New(`"str" attribute value without "s" field`)
		}
		return Str(*env.Str), nil
	case KindInt:
		if env.Int == nil {
			return nil, errors.New(`"int" attribute value without "i" field`)
		}
		return Int(*env.Int), nil
	case KindFloat:
		if env.Float == nil {
			return nil, errors.New(`"float" attribute value without "f" field`)
		}
		return Float(*env.Float), nil
	case KindBool:
		if env.Bool == nil {
			return nil, errors.New(`"bool" attribute value without "b" field`)
		}
		return Bool(*env.Bool), nil
	case KindType:
		dtype, err := dtypes.DTypeString(env.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid dtype %q in type attribute", env.Type)
		}
		return TypeOf(dtype), nil
	case KindShape:
		if env.Shape == nil {
			// A null shape field is a shape of unknown rank.
			return ShapeOf(shapes.MakeUnknownRank()), nil
		}
		return ShapeOf(*env.Shape), nil
	case KindTensor:
		dtype, err := dtypes.DTypeString(env.DType)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid dtype %q in tensor attribute", env.DType)
		}
		t := Tensor{DType: dtype, Dims: env.Dims, Data: env.Data}
		if err := t.Check(); err != nil {
			return nil, err
		}
		return t, nil
	case KindList:
		list := make(List, len(env.Elems))
		for ii, raw := range env.Elems {
			elem, err := UnmarshalValue(raw)
			if err != nil {
				return nil, errors.WithMessagef(err, "unmarshaling list element %d", ii)
			}
			list[ii] = elem
		}
		return list, list.Check()
	case KindFunc:
		fn := Func{Name: env.Name, Attrs: make(map[string]Value, len(env.Attrs))}
		for key, raw := range env.Attrs {
			elem, err := UnmarshalValue(raw)
			if err != nil {
				return nil, errors.WithMessagef(err, "unmarshaling nested attribute %q", key)
			}
			fn.Attrs[key] = elem
		}
		return fn, nil
	}
	return nil, errors.Errorf("unknown attribute value kind %q", env.Kind)
}
