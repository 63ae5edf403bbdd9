// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"testing"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/graph/graphtest"
	"github.com/gomlx/graphir/types/attrval"
	"github.com/gomlx/graphir/types/xslices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeValidation(t *testing.T) {
	g, err := graph.New([]string{"out"}, graph.TensorFlow)
	require.NoError(t, err)
	out := graphtest.Tensor(t, g, "out:0")

	t.Run("empty name", func(t *testing.T) {
		_, err := graph.NewNode(g, graph.NodeParams{Type: "Add", Outputs: []*graph.Tensor{out}})
		require.ErrorIs(t, err, graph.ErrValidation)
	})

	t.Run("empty type", func(t *testing.T) {
		_, err := graph.NewNode(g, graph.NodeParams{Name: "out", Outputs: []*graph.Tensor{out}})
		require.ErrorIs(t, err, graph.ErrValidation)
	})

	t.Run("arity mismatch", func(t *testing.T) {
		_, err := graph.NewNode(g, graph.NodeParams{
			Name:      "out",
			Type:      "Add",
			Inputs:    []*graph.Tensor{graphtest.Tensor(t, g, "a:0"), graphtest.Tensor(t, g, "b:0")},
			Outputs:   []*graph.Tensor{out},
			NumInputs: 3,
		})
		require.ErrorIs(t, err, graph.ErrValidation)
		assert.False(t, g.HasOp("out"), "failed construction must not register")
	})

	t.Run("nil output tensor", func(t *testing.T) {
		_, err := graph.NewNode(g, graph.NodeParams{Name: "out", Type: "Add", Outputs: []*graph.Tensor{nil}})
		require.ErrorIs(t, err, graph.ErrValidation)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := graph.NewNode(g, graph.NodeParams{
			Name:    "out",
			Type:    "Add",
			Backend: "caffe",
			Outputs: []*graph.Tensor{out},
		})
		require.ErrorIs(t, err, graph.ErrValidation)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := graph.NewNode(g, graph.NodeParams{Name: "out", Type: "Add", Outputs: []*graph.Tensor{out}})
		require.NoError(t, err)
		_, err = graph.NewNode(g, graph.NodeParams{Name: "out", Type: "Mul", Outputs: []*graph.Tensor{out}})
		require.ErrorIs(t, err, graph.ErrPrecondition)
		require.Equal(t, 1, g.NumOps())
	})
}

func TestNodeAttrs(t *testing.T) {
	g, err := graph.New([]string{"c"}, graph.TensorFlow)
	require.NoError(t, err)
	n, err := graph.NewNode(g, graph.NodeParams{
		Name:    "c",
		Type:    "Const",
		Outputs: []*graph.Tensor{graphtest.Tensor(t, g, "c:0")},
		Attrs: map[string]any{
			"alpha":          3,
			"label":          "hello",
			"_graphir_cache": map[string]int{"hits": 7},
		},
	})
	require.NoError(t, err)

	alpha, ok := n.Attr("alpha")
	require.True(t, ok)
	assert.Equal(t, attrval.Int(3), alpha)

	label, ok := n.Attr("label")
	require.True(t, ok)
	assert.Equal(t, attrval.Str("hello"), label)

	// Reserved keys are stored as-is, no conversion.
	cache, ok := n.Attr("_graphir_cache")
	require.True(t, ok)
	raw, ok := cache.(attrval.Raw)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"hits": 7}, raw.Val)

	_, ok = n.Attr("absent")
	assert.False(t, ok)
}

func TestInputAndOutputNodes(t *testing.T) {
	// mul consumes x twice: InputNodes must de-duplicate.
	g := graphtest.Build(t, graph.TensorFlow, []string{"out"},
		graphtest.Op{Name: "x", Type: "Const"},
		graphtest.Op{Name: "y", Type: "Const"},
		graphtest.Op{Name: "mul", Type: "Mul", Inputs: []string{"x:0", "x:0"}},
		graphtest.Op{Name: "out", Type: "Add", Inputs: []string{"mul:0", "y:0"}},
	)
	mul, err := g.Op("mul")
	require.NoError(t, err)
	out, err := g.Op("out")
	require.NoError(t, err)

	names := func(nodes []*graph.Node) []string {
		return xslices.Map(nodes, func(n *graph.Node) string { return n.Name() })
	}
	assert.Equal(t, []string{"x"}, names(mul.InputNodes()))
	assert.Equal(t, []string{"mul", "y"}, names(out.InputNodes()))

	x, err := g.Op("x")
	require.NoError(t, err)
	assert.Equal(t, []string{"mul"}, names(x.OutputNodes()))
	assert.Empty(t, out.OutputNodes())

	// Null inputs contribute no producer.
	ph := graphtest.AddOp(t, g, graphtest.Op{Name: "ph", Type: graph.PlaceholderOp, Inputs: []string{""}})
	assert.Empty(t, ph.InputNodes())

	// A dangling producer reference is an IR bug and panics.
	ghost := graphtest.AddOp(t, g, graphtest.Op{Name: "g1", Type: "Neg", Inputs: []string{"ghost:0"}})
	require.Panics(t, func() { ghost.InputNodes() })
}

func TestAddNullInputTensor(t *testing.T) {
	g := graphtest.Build(t, graph.TensorFlow, []string{"ph"},
		graphtest.Op{Name: "x", Type: "Const"},
		graphtest.Op{Name: "ph", Type: graph.PlaceholderOp, Inputs: []string{"x:0"}},
	)
	ph, err := g.Op("ph")
	require.NoError(t, err)

	appended, err := ph.AddNullInputTensor(-1)
	require.NoError(t, err)
	assert.True(t, appended.IsNull())
	require.Equal(t, 2, ph.NumInputs())
	assert.True(t, ph.InputTensors()[1].Equal(appended))

	prepended, err := ph.AddNullInputTensor(0)
	require.NoError(t, err)
	require.Equal(t, 3, ph.NumInputs())
	assert.True(t, ph.InputTensors()[0].Equal(prepended))

	_, err = ph.AddNullInputTensor(7)
	require.ErrorIs(t, err, graph.ErrPrecondition)

	x, err := g.Op("x")
	require.NoError(t, err)
	_, err = x.AddNullInputTensor(-1)
	require.ErrorIs(t, err, graph.ErrPrecondition, "only placeholders take extra null inputs")
}

func TestReplaceWithNullInputTensor(t *testing.T) {
	g := graphtest.Build(t, graph.TensorFlow, []string{"add"},
		graphtest.Op{Name: "x", Type: "Const"},
		graphtest.Op{Name: "y", Type: "Const"},
		graphtest.Op{Name: "add", Type: "Add", Inputs: []string{"x:0", "y:0"}},
	)
	add, err := g.Op("add")
	require.NoError(t, err)

	null, err := add.ReplaceWithNullInputTensor(1)
	require.NoError(t, err)
	assert.True(t, null.IsNull())
	require.Equal(t, 2, add.NumInputs())
	assert.True(t, add.InputTensors()[1].Equal(null))
	assert.Equal(t, "x:0", add.InputTensors()[0].Name(), "slot 0 untouched")

	_, err = add.ReplaceWithNullInputTensor(2)
	require.ErrorIs(t, err, graph.ErrPrecondition)
	_, err = add.ReplaceWithNullInputTensor(-1)
	require.ErrorIs(t, err, graph.ErrPrecondition)
}

func TestNodeMoveInto(t *testing.T) {
	g1 := graphtest.Build(t, graph.TensorFlow, []string{"neg"},
		graphtest.Op{Name: "x", Type: "Const"},
		graphtest.Op{Name: "neg", Type: "Neg", Inputs: []string{"x:0"}},
	)
	g2, err := graph.New([]string{"neg"}, graph.TensorFlow)
	require.NoError(t, err)

	neg, err := g1.Op("neg")
	require.NoError(t, err)
	neg.MoveInto(g2)

	assert.Same(t, g2, neg.Graph())
	assert.True(t, g2.HasOp("neg"))
	for _, tensor := range neg.InputTensors() {
		assert.Same(t, g2, tensor.Graph())
	}
	for _, tensor := range neg.OutputTensors() {
		assert.Same(t, g2, tensor.Graph())
	}
	// The source keeps a stale entry; AddOp and UnsafeMergeInto clean up.
	assert.True(t, g1.HasOp("neg"))

	require.Panics(t, func() { neg.MoveInto(nil) })
}

func TestOutputTensor(t *testing.T) {
	g := graphtest.Build(t, graph.TensorFlow, []string{"split"},
		graphtest.Op{Name: "split", Type: "Split", Outputs: 2},
	)
	split, err := g.Op("split")
	require.NoError(t, err)

	second, err := split.OutputTensor(1)
	require.NoError(t, err)
	assert.Equal(t, "split:1", second.Name())

	_, err = split.OutputTensor(2)
	require.ErrorIs(t, err, graph.ErrPrecondition)
}
