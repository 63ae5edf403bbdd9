// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/graph/graphtest"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTensorName(t *testing.T) {
	tests := []struct {
		name      string
		wantOp    string
		wantIndex int
	}{
		{"matmul:0", "matmul", 0},
		{"layer/dense/bias:12", "layer/dense/bias", 12},
		{"const", "const", 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			opName, index, err := graph.ParseTensorName(test.name)
			require.NoError(t, err)
			assert.Equal(t, test.wantOp, opName)
			assert.Equal(t, test.wantIndex, index)
		})
	}

	for _, bad := range []string{"a:b:c", "op:x", "op:-1"} {
		t.Run(bad, func(t *testing.T) {
			_, _, err := graph.ParseTensorName(bad)
			require.ErrorIs(t, err, graph.ErrValidation)
		})
	}
}

func TestNewTensor(t *testing.T) {
	g, err := graph.New([]string{"out"}, graph.TensorFlow)
	require.NoError(t, err)

	tensor, err := graph.NewTensor(g, "matmul:1", dtypes.Float32, shapes.Make(2, 3))
	require.NoError(t, err)
	assert.Equal(t, "matmul:1", tensor.Name())
	assert.Equal(t, "matmul", tensor.OpName())
	assert.Equal(t, 1, tensor.OutputIndex())
	assert.Equal(t, dtypes.Float32, tensor.DType())
	assert.True(t, tensor.Shape().Equal(shapes.Make(2, 3)))
	assert.Same(t, g, tensor.Graph())
	assert.False(t, tensor.IsNull())

	_, err = graph.NewTensor(nil, "matmul:0", dtypes.Float32, shapes.Scalar())
	require.ErrorIs(t, err, graph.ErrValidation)
	_, err = graph.NewTensor(g, ":0", dtypes.Float32, shapes.Scalar())
	require.ErrorIs(t, err, graph.ErrValidation)
	_, err = graph.NewTensor(g, "matmul:0", dtypes.InvalidDType, shapes.Scalar())
	require.ErrorIs(t, err, graph.ErrValidation)
}

func TestNullTensor(t *testing.T) {
	g, err := graph.New([]string{"out"}, graph.ONNX)
	require.NoError(t, err)

	null, err := graph.NewNullTensor(g, dtypes.Float32, shapes.MakeUnknownRank())
	require.NoError(t, err)
	assert.True(t, null.IsNull())
	assert.Regexp(t, "^"+graph.NullTensorPrefix+"_[0-9a-f]{12}$", null.OpName())
	assert.Equal(t, 0, null.OutputIndex())

	op, err := null.Op()
	require.NoError(t, err)
	assert.Nil(t, op)

	// Every null tensor gets its own randomized name.
	null2, err := graph.NewNullTensor(g, dtypes.Float32, shapes.MakeUnknownRank())
	require.NoError(t, err)
	assert.False(t, null.Equal(null2))
}

func TestTensorOp(t *testing.T) {
	g := graphtest.Build(t, graph.TensorFlow, []string{"add"},
		graphtest.Op{Name: "x", Type: "Const"},
		graphtest.Op{Name: "y", Type: "Const"},
		graphtest.Op{Name: "add", Type: "Add", Inputs: []string{"x:0", "y:0"}},
	)
	add, err := g.Op("add")
	require.NoError(t, err)

	producer, err := add.InputTensors()[0].Op()
	require.NoError(t, err)
	assert.Equal(t, "x", producer.Name())

	dangling := graphtest.Tensor(t, g, "ghost:0")
	_, err = dangling.Op()
	require.ErrorIs(t, err, graph.ErrLookup)
}

func TestTensorEqualAndMoveInto(t *testing.T) {
	g1, err := graph.New([]string{"out"}, graph.ONNX)
	require.NoError(t, err)
	g2, err := graph.New([]string{"out"}, graph.ONNX)
	require.NoError(t, err)

	a := graphtest.Tensor(t, g1, "x:0")
	b := graphtest.Tensor(t, g1, "x:0")
	c := graphtest.Tensor(t, g2, "x:0")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c), "same name, different owning graph")

	a.MoveInto(g2)
	assert.Same(t, g2, a.Graph())
	assert.True(t, a.Equal(c))

	require.Panics(t, func() { a.MoveInto(nil) })
}
