// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"reflect"
	"testing"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/graph/graphtest"
	"github.com/gomlx/graphir/types/attrval"
	"github.com/gomlx/graphir/types/xslices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opNames(nodes []*graph.Node) []string {
	return xslices.Map(nodes, func(n *graph.Node) string { return n.Name() })
}

func tensorNames(tensors []*graph.Tensor) []string {
	return xslices.Map(tensors, func(t *graph.Tensor) string { return t.Name() })
}

func TestNew(t *testing.T) {
	_, err := graph.New(nil, graph.TensorFlow)
	require.ErrorIs(t, err, graph.ErrValidation)

	_, err = graph.New([]string{"out", ""}, graph.TensorFlow)
	require.ErrorIs(t, err, graph.ErrValidation)

	_, err = graph.New([]string{"out"}, "caffe")
	require.ErrorIs(t, err, graph.ErrValidation)

	g, err := graph.New([]string{"out"}, graph.ONNX)
	require.NoError(t, err)
	assert.Equal(t, graph.ONNX, g.Backend())
	assert.Equal(t, []string{"out"}, g.OutputNodeNames())
	assert.Equal(t, 0, g.NumOps())
	assert.Contains(t, graph.AllBackends(), g.Backend())
}

func TestOpLookup(t *testing.T) {
	g := graphtest.Build(t, graph.TensorFlow, []string{"b"},
		graphtest.Op{Name: "a", Type: "Const"},
		graphtest.Op{Name: "b", Type: "Neg", Inputs: []string{"a:0"}},
	)
	require.Equal(t, 2, g.NumOps())
	assert.True(t, g.HasOp("a"))
	assert.False(t, g.HasOp("zzz"))
	assert.Equal(t, []string{"a", "b"}, g.OpNames())

	b, err := g.Op("b")
	require.NoError(t, err)
	assert.Equal(t, "Neg", b.Type())

	_, err = g.Op("zzz")
	require.ErrorIs(t, err, graph.ErrLookup)
}

func TestOpsByType(t *testing.T) {
	g := graphtest.Build(t, graph.TensorFlow, []string{"add2"},
		graphtest.Op{Name: "x", Type: "Const"},
		graphtest.Op{Name: "add1", Type: "Add", Inputs: []string{"x:0", "x:0"}},
		graphtest.Op{Name: "add2", Type: "Add", Inputs: []string{"add1:0", "x:0"}},
	)
	assert.Equal(t, []string{"add1", "add2"}, opNames(g.OpsByType("Add")))
	assert.Empty(t, g.OpsByType("MatMul"))

	// The index does not go stale: nodes registered later show up.
	graphtest.AddOp(t, g, graphtest.Op{Name: "add3", Type: "Add", Inputs: []string{"add2:0", "x:0"}})
	assert.Equal(t, []string{"add1", "add2", "add3"}, opNames(g.OpsByType("Add")))
}

func TestGraphInputsAndOutputs(t *testing.T) {
	// x and y have no inputs, ph has a null input: all three are graph
	// inputs. add is fed entirely from inside.
	g := graphtest.Build(t, graph.TensorFlow, []string{"add"},
		graphtest.Op{Name: "x", Type: "Const"},
		graphtest.Op{Name: "y", Type: "Const"},
		graphtest.Op{Name: "ph", Type: graph.PlaceholderOp, Inputs: []string{""}},
		graphtest.Op{Name: "add", Type: "Add", Inputs: []string{"x:0", "y:0"}},
		graphtest.Op{Name: "mul", Type: "Mul", Inputs: []string{"add:0", "ph:0"}},
	)
	require.NoError(t, g.SetOutputNodes("mul"))

	assert.Equal(t, []string{"x", "y", "ph"}, opNames(g.InputOps()))

	// ph's null input is an input tensor of the graph; tensors produced by
	// other input ops are not.
	inputs := tensorNames(g.InputTensors())
	require.Len(t, inputs, 1)
	ph, err := g.Op("ph")
	require.NoError(t, err)
	assert.Equal(t, ph.InputTensors()[0].Name(), inputs[0])

	outOps, err := g.OutputOps()
	require.NoError(t, err)
	assert.Equal(t, []string{"mul"}, opNames(outOps))

	outTensors, err := g.OutputTensors()
	require.NoError(t, err)
	assert.Equal(t, []string{"mul:0"}, tensorNames(outTensors))
}

func TestOutputOpsMissing(t *testing.T) {
	g, err := graph.New([]string{"out"}, graph.TensorFlow)
	require.NoError(t, err)
	_, err = g.OutputOps()
	require.ErrorIs(t, err, graph.ErrLookup)
	_, err = g.OutputTensors()
	require.ErrorIs(t, err, graph.ErrLookup)
}

func TestSetOutputNodes(t *testing.T) {
	g := graphtest.Build(t, graph.TensorFlow, []string{"b"},
		graphtest.Op{Name: "a", Type: "Const"},
		graphtest.Op{Name: "b", Type: "Neg", Inputs: []string{"a:0"}},
	)
	require.NoError(t, g.SortTopologically())
	require.NotEmpty(t, g.TopoOrder())

	require.ErrorIs(t, g.SetOutputNodes("zzz"), graph.ErrLookup)
	require.ErrorIs(t, g.SetOutputNodes(), graph.ErrValidation)

	require.NoError(t, g.SetOutputNodes("a"))
	assert.Equal(t, []string{"a"}, g.OutputNodeNames())
	assert.Empty(t, g.TopoOrder(), "changing outputs drops the cached order")
}

func TestAddOp(t *testing.T) {
	t.Run("duplicate name leaves the graph unchanged", func(t *testing.T) {
		g := graphtest.Build(t, graph.TensorFlow, []string{"a"},
			graphtest.Op{Name: "a", Type: "Const"},
		)
		other, err := graph.New([]string{"a"}, graph.TensorFlow)
		require.NoError(t, err)
		dup, err := graph.NewNode(other, graph.NodeParams{
			Name:    "a",
			Type:    "Const",
			Outputs: []*graph.Tensor{graphtest.Tensor(t, other, "a:0")},
		})
		require.NoError(t, err)

		err = g.AddOp(dup, true)
		require.ErrorIs(t, err, graph.ErrPrecondition)
		require.Equal(t, 1, g.NumOps())
		a, err := g.Op("a")
		require.NoError(t, err)
		assert.NotSame(t, dup, a)
	})

	t.Run("moves the node and re-sorts", func(t *testing.T) {
		g := graphtest.Build(t, graph.TensorFlow, []string{"neg"},
			graphtest.Op{Name: "x", Type: "Const"},
		)
		other, err := graph.New([]string{"neg"}, graph.TensorFlow)
		require.NoError(t, err)
		neg := graphtest.AddOp(t, other, graphtest.Op{Name: "neg", Type: "Neg", Inputs: []string{"x:0"}})

		require.NoError(t, g.AddOp(neg, true))
		assert.Same(t, g, neg.Graph())
		assert.Equal(t, []string{"x", "neg"}, g.TopoOrder())
	})

	t.Run("rolls back when the sort fails", func(t *testing.T) {
		g := graphtest.Build(t, graph.TensorFlow, []string{"a"},
			graphtest.Op{Name: "a", Type: "Add", Inputs: []string{"b:0"}},
		)
		other, err := graph.New([]string{"b"}, graph.TensorFlow)
		require.NoError(t, err)
		b := graphtest.AddOp(t, other, graphtest.Op{Name: "b", Type: "Add", Inputs: []string{"a:0"}})

		err = g.AddOp(b, true)
		require.ErrorIs(t, err, graph.ErrCycle)
		assert.False(t, g.HasOp("b"))
		assert.Same(t, other, b.Graph())
		assert.True(t, other.HasOp("b"))
	})
}

func TestUnsafeMergeInto(t *testing.T) {
	dst := graphtest.Build(t, graph.TensorFlow, []string{"y"},
		graphtest.Op{Name: "x", Type: "Const"},
		graphtest.Op{Name: "y", Type: "Neg", Inputs: []string{"x:0"}},
	)
	src := graphtest.Build(t, graph.TensorFlow, []string{"b"},
		graphtest.Op{Name: "a", Type: "Const"},
		graphtest.Op{Name: "b", Type: "Neg", Inputs: []string{"a:0"}},
	)

	// Build dst's type index first: the merge must extend it.
	require.Equal(t, []string{"y"}, opNames(dst.OpsByType("Neg")))

	src.UnsafeMergeInto(dst)
	assert.Equal(t, 0, src.NumOps())
	require.Equal(t, 4, dst.NumOps())
	assert.Equal(t, []string{"y", "b"}, opNames(dst.OpsByType("Neg")))

	b, err := dst.Op("b")
	require.NoError(t, err)
	assert.Same(t, dst, b.Graph())

	// The caller's repair sequence.
	require.NoError(t, dst.SetOutputNodes("y", "b"))
	require.NoError(t, dst.SortTopologically())
	assert.Len(t, dst.TopoOrder(), 4)

	require.Panics(t, func() { dst.UnsafeMergeInto(dst) })
}

func TestGraphConverter(t *testing.T) {
	g, err := graph.New([]string{"c"}, graph.TensorFlow)
	require.NoError(t, err)

	type watts int
	d := attrval.NewDispatcher()
	d.Register(reflect.TypeOf(watts(0)), func(v any) (attrval.Value, error) {
		return attrval.Int(v.(watts)), nil
	})
	g.SetConverter(d)

	n, err := graph.NewNode(g, graph.NodeParams{
		Name:    "c",
		Type:    "Const",
		Outputs: []*graph.Tensor{graphtest.Tensor(t, g, "c:0")},
		Attrs:   map[string]any{"power": watts(42)},
	})
	require.NoError(t, err)
	power, ok := n.Attr("power")
	require.True(t, ok)
	assert.Equal(t, attrval.Int(42), power)
}
