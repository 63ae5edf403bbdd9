// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"strings"
	"testing"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/graph/graphtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findNodeDef(t *testing.T, def *graph.GraphDef, name string) *graph.NodeDef {
	t.Helper()
	for _, nd := range def.Node {
		if nd.Name == name {
			return nd
		}
	}
	t.Fatalf("GraphDef has no node %q", name)
	return nil
}

func TestGraphDef(t *testing.T) {
	g := graphtest.Build(t, graph.TensorFlow, []string{"add"},
		graphtest.Op{Name: "in", Type: "Const", Attrs: map[string]any{
			"value":             3,
			graph.DeviceAttrKey: "/cpu:0",
			"_graphir_note":     "internal",
			"onnx__opset":       13,
		}},
		graphtest.Op{Name: "ph", Type: graph.PlaceholderOp, Inputs: []string{""}},
		graphtest.Op{Name: "add", Type: "Add", Inputs: []string{"in:0", "ph:0"}},
	)

	def, err := g.GraphDef()
	require.NoError(t, err)

	// Nodes come out in topological order.
	names := make([]string, len(def.Node))
	for i, nd := range def.Node {
		names[i] = nd.Name
	}
	assert.Equal(t, []string{"in", "ph", "add"}, names)

	in := findNodeDef(t, def, "in")
	assert.Equal(t, "Const", in.Op)
	assert.Equal(t, "/cpu:0", in.Device)
	assert.Equal(t, map[string]any{"value": int64(3)}, in.Attr,
		"reserved and backend-scoped keys must be dropped")

	// Null inputs are exported by name, like any other input.
	ph := findNodeDef(t, def, "ph")
	require.Len(t, ph.Input, 1)
	assert.True(t, strings.HasPrefix(ph.Input[0], graph.NullTensorPrefix))

	add := findNodeDef(t, def, "add")
	assert.Equal(t, []string{"in:0", "ph:0"}, add.Input)
	assert.Empty(t, add.Device)
}

func TestGraphDefWrongBackend(t *testing.T) {
	g := graphtest.Build(t, graph.ONNX, []string{"a"},
		graphtest.Op{Name: "a", Type: "Const"},
	)
	_, err := g.GraphDef()
	require.ErrorIs(t, err, graph.ErrPrecondition)
}

func TestGraphDefUnsortable(t *testing.T) {
	g := graphtest.Build(t, graph.TensorFlow, []string{"a"},
		graphtest.Op{Name: "a", Type: "Add", Inputs: []string{"b:0"}},
		graphtest.Op{Name: "b", Type: "Add", Inputs: []string{"a:0"}},
	)
	_, err := g.GraphDef()
	require.ErrorIs(t, err, graph.ErrCycle)
}
