// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/google/uuid"
)

// NullTensorPrefix marks the producing-op name of null tensors.
//
// A null tensor stands for a value supplied from outside the graph, e.g. an
// unbound placeholder slot. It has no producing node; IsNull is a pure prefix
// test on the producing-op name, so null-ness survives renaming copies as long
// as the rename appends to the base name.
const NullTensorPrefix = "graphir_null"

// DefaultNullDType is the element type used for null tensors created by the
// input-slot helpers that take no explicit dtype (Node.AddNullInputTensor and
// Node.ReplaceWithNullInputTensor).
const DefaultNullDType = dtypes.Float32

// Tensor is a handle to one output value of a node: an edge of the graph.
//
// Its name follows the "<op_name>:<index>" convention of most training
// frameworks and the producing node is resolved on demand by looking up the op
// name in the owning graph, so a Tensor can be created before its producer.
//
// Tensors are identified by name plus owning graph: see Equal.
type Tensor struct {
	name   string
	opName string
	index  int
	dtype  dtypes.DType
	shape  shapes.Shape
	graph  *Graph
}

// ParseTensorName splits a tensor name into the producing-op name and output
// index. A name with no ":<index>" suffix refers to output 0.
func ParseTensorName(name string) (opName string, index int, err error) {
	switch parts := strings.Split(name, ":"); len(parts) {
	case 1:
		return parts[0], 0, nil
	case 2:
		index, err = strconv.Atoi(parts[1])
		if err != nil || index < 0 {
			return "", 0, errValidationf("invalid output index in tensor name %q", name)
		}
		return parts[0], index, nil
	default:
		return "", 0, errValidationf("invalid tensor name %q", name)
	}
}

// NewTensor creates a tensor named name ("<op_name>:<index>") owned by g.
//
// The producing node does not have to be registered in g yet, only its name is
// recorded. It fails if the name does not parse, the dtype is invalid or the
// shape has negative dimensions.
func NewTensor(g *Graph, name string, dtype dtypes.DType, shape shapes.Shape) (*Tensor, error) {
	if g == nil {
		return nil, errValidationf("tensor %q requires an owning graph", name)
	}
	opName, index, err := ParseTensorName(name)
	if err != nil {
		return nil, err
	}
	if opName == "" {
		return nil, errValidationf("tensor %q has an empty producing-op name", name)
	}
	if dtype == dtypes.InvalidDType {
		return nil, errValidationf("tensor %q has an invalid dtype", name)
	}
	if err := shape.Check(); err != nil {
		return nil, errValidationf("tensor %q: %v", name, err)
	}
	return &Tensor{
		name:   name,
		opName: opName,
		index:  index,
		dtype:  dtype,
		shape:  shape,
		graph:  g,
	}, nil
}

// NewNullTensor creates a fresh null tensor owned by g, with a randomized
// unique producing-op name "<NullTensorPrefix>_<12 hex digits>".
func NewNullTensor(g *Graph, dtype dtypes.DType, shape shapes.Shape) (*Tensor, error) {
	id := uuid.New()
	opName := fmt.Sprintf("%s_%x", NullTensorPrefix, id[:6])
	return NewTensor(g, opName+":0", dtype, shape)
}

// nullInputTensor builds the default null tensor used when rewriting input
// slots: DefaultNullDType and unknown rank.
func nullInputTensor(g *Graph) *Tensor {
	t, err := NewNullTensor(g, DefaultNullDType, shapes.MakeUnknownRank())
	if err != nil {
		exceptions.Panicf("graph: building default null tensor: %v", err)
	}
	return t
}

// Name returns the tensor name, "<op_name>:<index>".
func (t *Tensor) Name() string { return t.name }

// OpName returns the name of the producing node.
func (t *Tensor) OpName() string { return t.opName }

// OutputIndex returns which output of the producing node this tensor is.
func (t *Tensor) OutputIndex() int { return t.index }

// DType returns the element type of the tensor.
func (t *Tensor) DType() dtypes.DType { return t.dtype }

// Shape returns the tensor shape. It may have unknown rank or dimensions.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// Graph returns the graph owning this tensor.
func (t *Tensor) Graph() *Graph { return t.graph }

// IsNull reports whether this is a null tensor, by testing the producing-op
// name for NullTensorPrefix.
func (t *Tensor) IsNull() bool {
	return strings.HasPrefix(t.opName, NullTensorPrefix)
}

// Op resolves the producing node in the owning graph.
//
// It returns (nil, nil) for null tensors, which by definition have no
// producer. A non-null tensor whose op name is not registered indicates an
// inconsistent graph and fails with ErrLookup.
func (t *Tensor) Op() (*Node, error) {
	if t.IsNull() {
		return nil, nil
	}
	node := t.graph.nodes[t.opName]
	if node == nil {
		return nil, errLookupf("tensor %q: producing op %q not in graph", t.name, t.opName)
	}
	return node, nil
}

// MoveInto reassigns the owning graph of this tensor, and nothing else: it
// does not re-register any node, and nodes referencing this tensor keep doing
// so. Callers are responsible for the rest of the bookkeeping; Node.MoveInto
// is the composed, safe version.
func (t *Tensor) MoveInto(g *Graph) {
	if g == nil {
		exceptions.Panicf("graph: Tensor(%q).MoveInto(nil)", t.name)
	}
	t.graph = g
}

// Equal reports whether both tensors have the same name and are owned by the
// same graph.
func (t *Tensor) Equal(other *Tensor) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.name == other.name && t.graph == other.graph
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	return fmt.Sprintf("%s (%s%s)", t.name, t.dtype, t.shape)
}
