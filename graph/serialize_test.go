// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/graph/graphtest"
	"github.com/gomlx/graphir/types/attrval"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := graphtest.Build(t, graph.TensorFlow, []string{"add"},
		graphtest.Op{Name: "x", Type: "Placeholder", Inputs: []string{""}},
		graphtest.Op{Name: "c", Type: "Const", Attrs: map[string]any{
			"value":          3,
			"label":          "weights",
			"trainable":      true,
			"rate":           float32(0.5),
			"dims":           []int{1, 2},
			"dtype":          dtypes.Float32,
			"_graphir_cache": 42,
		}},
		graphtest.Op{Name: "add", Type: "Add", Inputs: []string{"x:0", "c:0"}},
	)

	var buf bytes.Buffer
	require.NoError(t, graph.Encode(&buf, g))
	// Raw attributes are process-local and stay out of the encoding.
	assert.NotContains(t, buf.String(), "_graphir_cache")

	decoded, err := graph.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, graph.TensorFlow, decoded.Backend())
	assert.Equal(t, g.OutputNodeNames(), decoded.OutputNodeNames())
	assert.Equal(t, g.NumOps(), decoded.NumOps())
	assert.Equal(t, []string{"x", "c", "add"}, decoded.OpNames())
	assert.Equal(t, []string{"x", "c", "add"}, decoded.TopoOrder())

	x, err := decoded.Op("x")
	require.NoError(t, err)
	require.Len(t, x.InputTensors(), 1)
	assert.True(t, x.InputTensors()[0].IsNull())

	c, err := decoded.Op("c")
	require.NoError(t, err)
	attrs := c.Attrs()
	assert.NotContains(t, attrs, "_graphir_cache")
	assert.Equal(t, attrval.Int(3), attrs["value"])
	assert.Equal(t, attrval.Str("weights"), attrs["label"])
	assert.Equal(t, attrval.Bool(true), attrs["trainable"])
	assert.Equal(t, attrval.Float(0.5), attrs["rate"])
	assert.Equal(t, attrval.List{attrval.Int(1), attrval.Int(2)}, attrs["dims"])
	assert.Equal(t, attrval.TypeOf(dtypes.Float32), attrs["dtype"])

	add, err := decoded.Op("add")
	require.NoError(t, err)
	assert.Equal(t, "x:0", add.InputTensors()[0].Name())
	assert.Equal(t, dtypes.Float32, add.InputTensors()[0].DType())
	assert.False(t, add.InputTensors()[0].Shape().HasRank())
}

func TestEncodeDecodeBytes(t *testing.T) {
	g := graphtest.Build(t, graph.ONNX, []string{"relu"},
		graphtest.Op{Name: "x", Type: "Placeholder", Inputs: []string{""}},
		graphtest.Op{Name: "relu", Type: "Relu", Inputs: []string{"x:0"}},
	)

	data, err := graph.EncodeBytes(g)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, graph.Encode(&buf, g))
	assert.Equal(t, buf.Bytes(), data)

	decoded, err := graph.DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, g.OpNames(), decoded.OpNames())
	assert.Equal(t, g.OutputNodeNames(), decoded.OutputNodeNames())

	_, err = graph.DecodeBytes([]byte("{"))
	require.Error(t, err)
}

func TestEncodeDecodeUnsetSlotAndShape(t *testing.T) {
	g, err := graph.New([]string{"n"}, graph.ONNX)
	require.NoError(t, err)
	out, err := graph.NewTensor(g, "n:0", dtypes.Int64, shapes.Make(2, 2))
	require.NoError(t, err)
	_, err = graph.NewNode(g, graph.NodeParams{
		Name:    "n",
		Type:    "Noop",
		Inputs:  []*graph.Tensor{nil},
		Outputs: []*graph.Tensor{out},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, graph.Encode(&buf, g))
	decoded, err := graph.Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, graph.ONNX, decoded.Backend())
	n, err := decoded.Op("n")
	require.NoError(t, err)
	require.Len(t, n.InputTensors(), 1)
	assert.Nil(t, n.InputTensors()[0])

	got := n.OutputTensors()[0]
	assert.Equal(t, dtypes.Int64, got.DType())
	assert.True(t, got.Shape().Equal(shapes.Make(2, 2)))
}

func TestDecodeErrors(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		_, err := graph.Decode(strings.NewReader("{"))
		require.Error(t, err)
	})

	t.Run("no output nodes", func(t *testing.T) {
		_, err := graph.Decode(strings.NewReader(`{"backend": "tensorflow", "output_nodes": [], "ops": []}`))
		require.ErrorIs(t, err, graph.ErrValidation)
	})

	t.Run("bad dtype", func(t *testing.T) {
		_, err := graph.Decode(strings.NewReader(`{
			"backend": "tensorflow",
			"output_nodes": ["a"],
			"ops": [{
				"name": "a", "type": "Const", "inputs": [],
				"outputs": [{"name": "a:0", "dtype": "NotAType", "shape": null}]
			}]
		}`))
		require.ErrorIs(t, err, graph.ErrValidation)
	})

	t.Run("duplicate node", func(t *testing.T) {
		_, err := graph.Decode(strings.NewReader(`{
			"backend": "tensorflow",
			"output_nodes": ["a"],
			"ops": [
				{"name": "a", "type": "Const", "inputs": [], "outputs": [{"name": "a:0", "dtype": "Float32", "shape": null}]},
				{"name": "a", "type": "Const", "inputs": [], "outputs": [{"name": "a:0", "dtype": "Float32", "shape": null}]}
			]
		}`))
		require.ErrorIs(t, err, graph.ErrPrecondition)
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := graph.Decode(strings.NewReader(`{
			"backend": "tensorflow",
			"output_nodes": ["a"],
			"ops": [
				{"name": "a", "type": "Neg", "inputs": [{"name": "b:0", "dtype": "Float32", "shape": null}], "outputs": [{"name": "a:0", "dtype": "Float32", "shape": null}]},
				{"name": "b", "type": "Neg", "inputs": [{"name": "a:0", "dtype": "Float32", "shape": null}], "outputs": [{"name": "b:0", "dtype": "Float32", "shape": null}]}
			]
		}`))
		require.ErrorIs(t, err, graph.ErrCycle)
	})

	t.Run("unresolved output", func(t *testing.T) {
		_, err := graph.Decode(strings.NewReader(`{
			"backend": "tensorflow",
			"output_nodes": ["ghost"],
			"ops": [{"name": "a", "type": "Const", "inputs": [], "outputs": [{"name": "a:0", "dtype": "Float32", "shape": null}]}]
		}`))
		require.ErrorIs(t, err, graph.ErrLookup)
	})
}
