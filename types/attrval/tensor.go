// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package attrval

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Tensor is a constant-tensor attribute: an immutable value embedded in the
// graph, e.g. the shape argument of a Reshape or the value of a Const node.
//
// Data is the flat tensor content in row-major order, little-endian. Treat a
// Tensor as immutable once built.
type Tensor struct {
	DType dtypes.DType
	Dims  []int
	Data  []byte
}

// Kind implements Value.
func (Tensor) Kind() Kind { return KindTensor }

// String implements fmt.Stringer. It prints dtype and dims, not the data.
func (v Tensor) String() string {
	parts := make([]string, len(v.Dims))
	for ii, dim := range v.Dims {
		parts[ii] = fmt.Sprintf("%d", dim)
	}
	return fmt.Sprintf("tensor<%s[%s]>", v.DType, strings.Join(parts, ", "))
}

func (Tensor) isValue() {}

// NumElements returns the product of Dims. The number of elements of a scalar
// (empty Dims) is 1.
func (v Tensor) NumElements() int {
	num := 1
	for _, dim := range v.Dims {
		num *= dim
	}
	return num
}

// ByteSize returns the size of the raw tensor data in bytes.
func (v Tensor) ByteSize() int { return len(v.Data) }

// Check validates that dimensions are non-negative and that Data holds exactly
// NumElements values of DType.
func (v Tensor) Check() error {
	if v.DType == dtypes.InvalidDType {
		return errors.New("tensor attribute has invalid dtype")
	}
	for axis, dim := range v.Dims {
		if dim < 0 {
			return errors.Errorf("tensor attribute has negative dimension %d for axis %d, constant tensors must be fully defined", dim, axis)
		}
	}
	want := v.NumElements() * int(v.DType.Memory())
	if len(v.Data) != want {
		return errors.Errorf("tensor attribute %s wants %d bytes of data, got %d", v, want, len(v.Data))
	}
	return nil
}

// Equal compares dtype, dims and raw data.
func (v Tensor) Equal(v2 Tensor) bool {
	if v.DType != v2.DType || len(v.Dims) != len(v2.Dims) {
		return false
	}
	for axis, dim := range v.Dims {
		if dim != v2.Dims[axis] {
			return false
		}
	}
	return bytes.Equal(v.Data, v2.Data)
}

// TensorFromFloat32s builds a Float32 constant tensor with the given dims.
func TensorFromFloat32s(dims []int, values ...float32) (Tensor, error) {
	t := Tensor{DType: dtypes.Float32, Dims: dims, Data: make([]byte, 4*len(values))}
	for ii, value := range values {
		binary.LittleEndian.PutUint32(t.Data[4*ii:], math.Float32bits(value))
	}
	return t, t.Check()
}

// TensorFromFloat16s builds a Float16 constant tensor with the given dims, with
// values converted from float32.
func TensorFromFloat16s(dims []int, values ...float32) (Tensor, error) {
	t := Tensor{DType: dtypes.Float16, Dims: dims, Data: make([]byte, 2*len(values))}
	for ii, value := range values {
		binary.LittleEndian.PutUint16(t.Data[2*ii:], float16.Fromfloat32(value).Bits())
	}
	return t, t.Check()
}

// TensorFromInt64s builds an Int64 constant tensor with the given dims.
func TensorFromInt64s(dims []int, values ...int64) (Tensor, error) {
	t := Tensor{DType: dtypes.Int64, Dims: dims, Data: make([]byte, 8*len(values))}
	for ii, value := range values {
		binary.LittleEndian.PutUint64(t.Data[8*ii:], uint64(value))
	}
	return t, t.Check()
}

// TensorFromInt32s builds an Int32 constant tensor with the given dims.
func TensorFromInt32s(dims []int, values ...int32) (Tensor, error) {
	t := Tensor{DType: dtypes.Int32, Dims: dims, Data: make([]byte, 4*len(values))}
	for ii, value := range values {
		binary.LittleEndian.PutUint32(t.Data[4*ii:], uint32(value))
	}
	return t, t.Check()
}

// Float32s decodes the tensor data as float32 values. It supports Float16,
// Float32 and Float64 tensors.
func (v Tensor) Float32s() ([]float32, error) {
	if err := v.Check(); err != nil {
		return nil, err
	}
	num := v.NumElements()
	out := make([]float32, num)
	switch v.DType {
	case dtypes.Float16:
		for ii := 0; ii < num; ii++ {
			out[ii] = float16.Frombits(binary.LittleEndian.Uint16(v.Data[2*ii:])).Float32()
		}
	case dtypes.Float32:
		for ii := 0; ii < num; ii++ {
			out[ii] = math.Float32frombits(binary.LittleEndian.Uint32(v.Data[4*ii:]))
		}
	case dtypes.Float64:
		for ii := 0; ii < num; ii++ {
			out[ii] = float32(math.Float64frombits(binary.LittleEndian.Uint64(v.Data[8*ii:])))
		}
	default:
		return nil, errors.Errorf("cannot decode %s tensor attribute as float32s", v.DType)
	}
	return out, nil
}

// Int64s decodes the tensor data as int64 values. It supports Int8, Int16,
// Int32 and Int64 tensors.
func (v Tensor) Int64s() ([]int64, error) {
	if err := v.Check(); err != nil {
		return nil, err
	}
	num := v.NumElements()
	out := make([]int64, num)
	switch v.DType {
	case dtypes.Int8:
		for ii := 0; ii < num; ii++ {
			out[ii] = int64(int8(v.Data[ii]))
		}
	case dtypes.Int16:
		for ii := 0; ii < num; ii++ {
			out[ii] = int64(int16(binary.LittleEndian.Uint16(v.Data[2*ii:])))
		}
	case dtypes.Int32:
		for ii := 0; ii < num; ii++ {
			out[ii] = int64(int32(binary.LittleEndian.Uint32(v.Data[4*ii:])))
		}
	case dtypes.Int64:
		for ii := 0; ii < num; ii++ {
			out[ii] = int64(binary.LittleEndian.Uint64(v.Data[8*ii:]))
		}
	default:
		return nil, errors.Errorf("cannot decode %s tensor attribute as int64s", v.DType)
	}
	return out, nil
}
