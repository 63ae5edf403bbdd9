// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package attrval

import (
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/pkg/errors"
)

// Converter translates between a framework importer's native attribute
// representation and Values. Importers provide one; the graph package only
// consumes this interface.
type Converter interface {
	// FromNative converts a framework-native value to a Value.
	FromNative(v any) (Value, error)

	// ToNative converts a Value back to the framework-native representation.
	ToNative(v Value) (any, error)
}

// Dispatcher is the default Converter. It dispatches on the Go type of the
// native value and handles Go builtins, dtypes.DType, shapes.Shape, Tensor,
// homogeneous scalar slices, func attribute records and already-converted
// Values.
//
// Frameworks with extra native types can Register conversion functions, which
// take precedence over the builtin dispatch.
type Dispatcher struct {
	custom map[reflect.Type]func(any) (Value, error)
}

// NewDispatcher returns a Dispatcher with only the builtin conversions.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds (or replaces) a conversion function for the given native type.
func (d *Dispatcher) Register(t reflect.Type, fn func(any) (Value, error)) {
	if d.custom == nil {
		d.custom = make(map[reflect.Type]func(any) (Value, error))
	}
	d.custom[t] = fn
}

// FromNative implements Converter.
func (d *Dispatcher) FromNative(v any) (Value, error) {
	if v == nil {
		return nil, errors.New("cannot convert nil attribute value")
	}
	if d.custom != nil {
		if fn, found := d.custom[reflect.TypeOf(v)]; found {
			return fn(v)
		}
	}
	switch v := v.(type) {
	case List:
		return v, v.Check()
	case Value:
		return v, nil
	case string:
		return Str(v), nil
	case []byte:
		return Str(v), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(v), nil
	case int8:
		return Int(v), nil
	case int16:
		return Int(v), nil
	case int32:
		return Int(v), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(v), nil
	case uint16:
		return Int(v), nil
	case uint32:
		return Int(v), nil
	case uint:
		return Int(v), nil
	case uint64:
		return Int(v), nil
	case float32:
		return Float(v), nil
	case float64:
		return Float(v), nil
	case dtypes.DType:
		return Type(v), nil
	case shapes.Shape:
		return ShapeOf(v), nil
	case []string:
		return listFromSlice(v, func(e string) Value { return Str(e) })
	case []bool:
		return listFromSlice(v, func(e bool) Value { return Bool(e) })
	case []int:
		return listFromSlice(v, func(e int) Value { return Int(e) })
	case []int32:
		return listFromSlice(v, func(e int32) Value { return Int(e) })
	case []int64:
		return listFromSlice(v, func(e int64) Value { return Int(e) })
	case []float32:
		return listFromSlice(v, func(e float32) Value { return Float(e) })
	case []float64:
		return listFromSlice(v, func(e float64) Value { return Float(e) })
	case []any:
		list := make(List, len(v))
		for ii, elem := range v {
			converted, err := d.FromNative(elem)
			if err != nil {
				return nil, errors.WithMessagef(err, "converting list attribute element %d", ii)
			}
			list[ii] = converted
		}
		return list, list.Check()
	case map[string]any:
		return d.funcFromNative(v)
	}
	return nil, errors.Errorf("unsupported native attribute type %T", v)
}

// funcFromNative builds a Func from the {"name": ..., "attrs": {...}} record
// shape that ToNative emits for Func values.
func (d *Dispatcher) funcFromNative(record map[string]any) (Value, error) {
	fn := Func{}
	for key, elem := range record {
		switch key {
		case "name":
			name, ok := elem.(string)
			if !ok {
				return nil, errors.Errorf("func attribute name must be a string, got %T", elem)
			}
			fn.Name = name
		case "attrs":
			nested, ok := elem.(map[string]any)
			if !ok {
				return nil, errors.Errorf("func attribute attrs must be a map[string]any, got %T", elem)
			}
			fn.Attrs = make(map[string]Value, len(nested))
			for attrKey, attrVal := range nested {
				converted, err := d.FromNative(attrVal)
				if err != nil {
					return nil, errors.WithMessagef(err, "converting nested attribute %q", attrKey)
				}
				fn.Attrs[attrKey] = converted
			}
		default:
			return nil, errors.Errorf("func attribute record has unexpected key %q, want \"name\" and \"attrs\"", key)
		}
	}
	return fn, nil
}

func listFromSlice[T any](elems []T, fn func(T) Value) (Value, error) {
	list := make(List, len(elems))
	for ii, elem := range elems {
		list[ii] = fn(elem)
	}
	return list, nil
}

// ToNative implements Converter.
func (d *Dispatcher) ToNative(v Value) (any, error) {
	switch v := v.(type) {
	case Str:
		return string(v), nil
	case Int:
		return int64(v), nil
	case Float:
		return float32(v), nil
	case Bool:
		return bool(v), nil
	case Type:
		return v.DType(), nil
	case Shape:
		return v.Shape, nil
	case Tensor:
		return v, nil
	case List:
		out := make([]any, len(v))
		for ii, elem := range v {
			native, err := d.ToNative(elem)
			if err != nil {
				return nil, err
			}
			out[ii] = native
		}
		return out, nil
	case Func:
		attrs := make(map[string]any, len(v.Attrs))
		for key, elem := range v.Attrs {
			native, err := d.ToNative(elem)
			if err != nil {
				return nil, errors.WithMessagef(err, "converting nested attribute %q", key)
			}
			attrs[key] = native
		}
		return map[string]any{"name": v.Name, "attrs": attrs}, nil
	case Raw:
		return v.Val, nil
	case nil:
		return nil, errors.New("cannot convert nil attribute value")
	}
	return nil, errors.Errorf("unsupported attribute value type %T", v)
}

var defaultDispatcher = NewDispatcher()

// Default returns the shared default Dispatcher used by the package-level
// FromNative and ToNative. Registering custom conversions on it affects every
// caller; prefer a dedicated NewDispatcher for framework importers.
func Default() *Dispatcher { return defaultDispatcher }

// FromNative converts with the default Dispatcher.
func FromNative(v any) (Value, error) { return defaultDispatcher.FromNative(v) }

// ToNative converts with the default Dispatcher.
func ToNative(v Value) (any, error) { return defaultDispatcher.ToNative(v) }

// Statically ensure Dispatcher is a Converter.
var _ Converter = (*Dispatcher)(nil)
