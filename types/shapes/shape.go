// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines the Shape type, the dimension vector attached to the
// tensors of a computation graph.
//
// Unlike a concrete runtime shape, a graph-time Shape may be partially known:
// individual dimensions can be unknown (DimUnknown) and the rank itself can be
// unknown, which is the zero value:
//
//	shapes.Make(32, 32, 3)        // fully known
//	shapes.Make(DimUnknown, 128)  // batch dimension unknown
//	shapes.MakeUnknownRank()      // nothing known, same as shapes.Shape{}
//
// Shape is a value type: it is cheap to pass around and compare. Use Clone when
// the underlying dimensions slice must not be shared.
package shapes

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// DimUnknown is the value used for dimensions of unknown size.
const DimUnknown = -1

// Shape represents the dimensions of a tensor in a computation graph.
//
// The zero value has unknown rank. Prefer the constructors Make, Scalar and
// MakeUnknownRank over literal construction, so the rank-known flag stays
// consistent with Dimensions.
type Shape struct {
	// Dimensions of the shape. Entries are either non-negative or DimUnknown.
	// It is nil (and must be ignored) when the rank is unknown.
	Dimensions []int

	hasRank bool
}

// Make returns a Shape with the given dimensions and known rank. Dimensions
// must be non-negative or DimUnknown.
//
// It panics on invalid dimensions: this is meant for hard-coded shapes. Use
// Check to validate data-driven dimension lists.
func Make(dimensions ...int) Shape {
	s := Shape{Dimensions: dimensions, hasRank: true}
	if err := s.Check(); err != nil {
		exceptions.Panicf("shapes.Make(%v): %v", dimensions, err)
	}
	return s
}

// Scalar returns the rank-0 shape.
func Scalar() Shape {
	return Shape{Dimensions: []int{}, hasRank: true}
}

// MakeUnknownRank returns a Shape whose rank (and hence dimensions) is unknown.
// Same as the zero value of Shape.
func MakeUnknownRank() Shape {
	return Shape{}
}

// HasRank returns whether the rank of the shape is known.
func (s Shape) HasRank() bool { return s.hasRank }

// Rank of the shape, or -1 if the rank is unknown.
func (s Shape) Rank() int {
	if !s.hasRank {
		return -1
	}
	return len(s.Dimensions)
}

// IsScalar returns whether the shape has known rank 0.
func (s Shape) IsScalar() bool { return s.hasRank && len(s.Dimensions) == 0 }

// Dim returns the dimension of the given axis. A negative axis counts from the
// end, like xslices.At. It panics if the rank is unknown or axis is out of range.
func (s Shape) Dim(axis int) int {
	if !s.hasRank {
		exceptions.Panicf("Shape.Dim(%d): shape has unknown rank", axis)
	}
	adjusted := axis
	if adjusted < 0 {
		adjusted = len(s.Dimensions) + adjusted
	}
	if adjusted < 0 || adjusted >= len(s.Dimensions) {
		exceptions.Panicf("Shape.Dim(%d): axis out of range for rank %d", axis, len(s.Dimensions))
	}
	return s.Dimensions[adjusted]
}

// IsFullyDefined returns whether the rank and every dimension are known.
func (s Shape) IsFullyDefined() bool {
	if !s.hasRank {
		return false
	}
	for _, dim := range s.Dimensions {
		if dim == DimUnknown {
			return false
		}
	}
	return true
}

// Size returns the number of elements, or -1 if the shape is not fully defined.
// The size of a scalar is 1.
func (s Shape) Size() int {
	if !s.IsFullyDefined() {
		return -1
	}
	size := 1
	for _, dim := range s.Dimensions {
		size *= dim
	}
	return size
}

// Check returns an error if any dimension is invalid (negative and not
// DimUnknown). A shape of unknown rank is always valid.
func (s Shape) Check() error {
	if !s.hasRank {
		return nil
	}
	for axis, dim := range s.Dimensions {
		if dim < 0 && dim != DimUnknown {
			return errors.Errorf("shape %v has invalid dimension %d for axis %d, dimensions must be non-negative or DimUnknown", s.Dimensions, dim, axis)
		}
	}
	return nil
}

// Equal compares two shapes: ranks (including unknown), and each dimension must
// match exactly, unknown dimensions included.
func (s Shape) Equal(s2 Shape) bool {
	if s.hasRank != s2.hasRank {
		return false
	}
	if !s.hasRank {
		return true
	}
	if len(s.Dimensions) != len(s2.Dimensions) {
		return false
	}
	for axis, dim := range s.Dimensions {
		if dim != s2.Dimensions[axis] {
			return false
		}
	}
	return true
}

// Compatible returns whether the two shapes could describe the same tensor:
// unknown ranks and unknown dimensions match anything.
func (s Shape) Compatible(s2 Shape) bool {
	if !s.hasRank || !s2.hasRank {
		return true
	}
	if len(s.Dimensions) != len(s2.Dimensions) {
		return false
	}
	for axis, dim := range s.Dimensions {
		dim2 := s2.Dimensions[axis]
		if dim != dim2 && dim != DimUnknown && dim2 != DimUnknown {
			return false
		}
	}
	return true
}

// Clone makes a deep copy (including dimensions) of the given shape.
func (s Shape) Clone() Shape {
	if !s.hasRank {
		return Shape{}
	}
	s2 := Shape{Dimensions: make([]int, len(s.Dimensions)), hasRank: true}
	copy(s2.Dimensions, s.Dimensions)
	return s2
}

// String renders the shape as "[dim, dim, ...]" with "?" for unknown dimensions,
// and "[...]" for shapes of unknown rank.
func (s Shape) String() string {
	if !s.hasRank {
		return "[...]"
	}
	parts := make([]string, len(s.Dimensions))
	for axis, dim := range s.Dimensions {
		if dim == DimUnknown {
			parts[axis] = "?"
		} else {
			parts[axis] = strconv.Itoa(dim)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalJSON encodes the shape as a plain JSON list of dimensions, or null if
// the rank is unknown.
func (s Shape) MarshalJSON() ([]byte, error) {
	if !s.hasRank {
		return []byte("null"), nil
	}
	if s.Dimensions == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Dimensions)
}

// UnmarshalJSON decodes a shape encoded by MarshalJSON: null means unknown rank.
func (s *Shape) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Shape{}
		return nil
	}
	var dims []int
	if err := json.Unmarshal(data, &dims); err != nil {
		return errors.Wrapf(err, "cannot unmarshal %q to a shape", data)
	}
	if dims == nil {
		dims = []int{}
	}
	s2 := Shape{Dimensions: dims, hasRank: true}
	if err := s2.Check(); err != nil {
		return err
	}
	*s = s2
	return nil
}
