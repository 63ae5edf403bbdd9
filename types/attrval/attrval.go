// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package attrval defines the closed set of attribute values an operation node
// can carry, and the Converter used to translate a framework's native attribute
// representation into that set.
//
// Value is a sealed sum type: the only implementations are the variants defined
// here (Str, Int, Float, Bool, Type, Shape, Tensor, List, Func and Raw). Code
// consuming attributes can switch on Value.Kind() -- or directly on the concrete
// type -- and be sure there is nothing else.
//
// Raw is the escape hatch: reserved internal attribute keys are stored as Raw
// and never go through conversion. Raw values are process-local, they are not
// serialized.
package attrval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/types/shapes"
)

// Kind discriminates the variants of Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindStr
	KindInt
	KindFloat
	KindBool
	KindType
	KindShape
	KindTensor
	KindList
	KindFunc
	KindRaw
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindStr:     "str",
	KindInt:     "int",
	KindFloat:   "float",
	KindBool:    "bool",
	KindType:    "type",
	KindShape:   "shape",
	KindTensor:  "tensor",
	KindList:    "list",
	KindFunc:    "func",
	KindRaw:     "raw",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// KindFromString returns the Kind with the given name, or KindInvalid.
func KindFromString(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return Kind(k)
		}
	}
	return KindInvalid
}

// Value is one attribute value of an operation node.
//
// It is a sealed interface: only the variants in this package implement it.
type Value interface {
	Kind() Kind
	String() string

	// isValue seals the interface.
	isValue()
}

// IsScalarKind returns whether k is one of the scalar variants (Str, Int,
// Float, Bool), the only kinds allowed inside a List.
func IsScalarKind(k Kind) bool {
	switch k {
	case KindStr, KindInt, KindFloat, KindBool:
		return true
	}
	return false
}

// Str is a string (or bytes) attribute.
type Str string

// Kind implements Value.
func (Str) Kind() Kind { return KindStr }

// String implements fmt.Stringer.
func (v Str) String() string { return strconv.Quote(string(v)) }

func (Str) isValue() {}

// Int is a 64-bit integer attribute.
type Int int64

// Kind implements Value.
func (Int) Kind() Kind { return KindInt }

// String implements fmt.Stringer.
func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

func (Int) isValue() {}

// Float is a 32-bit float attribute.
type Float float32

// Kind implements Value.
func (Float) Kind() Kind { return KindFloat }

// String implements fmt.Stringer.
func (v Float) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }

func (Float) isValue() {}

// Bool is a boolean attribute.
type Bool bool

// Kind implements Value.
func (Bool) Kind() Kind { return KindBool }

// String implements fmt.Stringer.
func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

func (Bool) isValue() {}

// Type is an element-type tag attribute (e.g. the "T" attribute of many
// TensorFlow ops).
type Type dtypes.DType

// TypeOf returns the Type attribute for the given dtype.
func TypeOf(dtype dtypes.DType) Type { return Type(dtype) }

// DType returns the element type the attribute tags.
func (v Type) DType() dtypes.DType { return dtypes.DType(v) }

// Kind implements Value.
func (Type) Kind() Kind { return KindType }

// String implements fmt.Stringer.
func (v Type) String() string { return v.DType().String() }

func (Type) isValue() {}

// Shape is a tensor-shape attribute.
type Shape struct {
	Shape shapes.Shape
}

// ShapeOf returns the Shape attribute for the given shape.
func ShapeOf(s shapes.Shape) Shape { return Shape{Shape: s} }

// Kind implements Value.
func (Shape) Kind() Kind { return KindShape }

// String implements fmt.Stringer.
func (v Shape) String() string { return v.Shape.String() }

func (Shape) isValue() {}

// List is a homogeneous list of scalar attribute values.
type List []Value

// Kind implements Value.
func (List) Kind() Kind { return KindList }

// String implements fmt.Stringer.
func (v List) String() string {
	parts := make([]string, len(v))
	for ii, elem := range v {
		parts[ii] = elem.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (List) isValue() {}

// Check returns an error if the list is not a homogeneous list of scalar values.
func (v List) Check() error {
	var elemKind Kind
	for ii, elem := range v {
		if elem == nil {
			return fmt.Errorf("list attribute has nil element at index %d", ii)
		}
		k := elem.Kind()
		if !IsScalarKind(k) {
			return fmt.Errorf("list attribute has non-scalar element of kind %s at index %d", k, ii)
		}
		if ii == 0 {
			elemKind = k
		} else if k != elemKind {
			return fmt.Errorf("list attribute mixes kinds %s and %s", elemKind, k)
		}
	}
	return nil
}

// Func is a nested attribute record: a name plus its own attribute map. It
// mirrors the "function-valued" attribute category of training frameworks.
type Func struct {
	Name  string
	Attrs map[string]Value
}

// Kind implements Value.
func (Func) Kind() Kind { return KindFunc }

// String implements fmt.Stringer.
func (v Func) String() string {
	keys := make([]string, 0, len(v.Attrs))
	for key := range v.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for ii, key := range keys {
		parts[ii] = key + ": " + v.Attrs[key].String()
	}
	return v.Name + "{" + strings.Join(parts, ", ") + "}"
}

func (Func) isValue() {}

// Raw is an opaque attribute value that bypassed conversion. It holds whatever
// the caller stored, typically under a reserved internal attribute key.
type Raw struct {
	Val any
}

// RawOf wraps any value as a Raw attribute.
func RawOf(v any) Raw { return Raw{Val: v} }

// Kind implements Value.
func (Raw) Kind() Kind { return KindRaw }

// String implements fmt.Stringer.
func (v Raw) String() string { return fmt.Sprintf("raw(%v)", v.Val) }

func (Raw) isValue() {}
