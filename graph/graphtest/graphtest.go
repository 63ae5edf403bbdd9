// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphtest holds test utilities for packages that depend on the
// graph package: a compact way of assembling test graphs.
package graphtest

import (
	"fmt"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/stretchr/testify/require"
)

// Op describes one node of a test graph built by Build.
type Op struct {
	// Name of the node. Required.
	Name string

	// Type of the operation, e.g. "Add". Required.
	Type string

	// Inputs reference the input tensors by name, "<op>:<index>". An empty
	// string makes the slot a fresh null tensor.
	Inputs []string

	// Outputs is the number of output tensors, named "<Name>:<i>". It
	// defaults to 1.
	Outputs int

	// Attrs of the node, converted like graph.NodeParams.Attrs.
	Attrs map[string]any
}

// Build assembles a graph from the given op descriptions, in order. All
// tensors are created as Float32 with unknown rank, which is all the
// structural tests care about. It fails the test on any error.
func Build(t *testing.T, backend graph.Backend, outputNodes []string, ops ...Op) *graph.Graph {
	t.Helper()
	g, err := graph.New(outputNodes, backend)
	require.NoError(t, err)
	for _, op := range ops {
		AddOp(t, g, op)
	}
	return g
}

// AddOp adds one op described by op to g, failing the test on any error.
func AddOp(t *testing.T, g *graph.Graph, op Op) *graph.Node {
	t.Helper()
	inputs := make([]*graph.Tensor, len(op.Inputs))
	for i, name := range op.Inputs {
		if name == "" {
			null, err := graph.NewNullTensor(g, graph.DefaultNullDType, shapes.MakeUnknownRank())
			require.NoError(t, err)
			inputs[i] = null
			continue
		}
		inputs[i] = Tensor(t, g, name)
	}
	numOutputs := op.Outputs
	if numOutputs == 0 {
		numOutputs = 1
	}
	outputs := make([]*graph.Tensor, numOutputs)
	for i := range outputs {
		outputs[i] = Tensor(t, g, fmt.Sprintf("%s:%d", op.Name, i))
	}
	n, err := graph.NewNode(g, graph.NodeParams{
		Name:    op.Name,
		Type:    op.Type,
		Inputs:  inputs,
		Outputs: outputs,
		Attrs:   op.Attrs,
	})
	require.NoError(t, err)
	return n
}

// Tensor creates a Float32, unknown-rank tensor named name in g, failing the
// test on any error.
func Tensor(t *testing.T, g *graph.Graph, name string) *graph.Tensor {
	t.Helper()
	tensor, err := graph.NewTensor(g, name, dtypes.Float32, shapes.MakeUnknownRank())
	require.NoError(t, err)
	return tensor
}
