// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"math/rand/v2"

	"github.com/gomlx/graphir/types/xslices"
)

// copyContext threads the destination graph and the rename function through
// one deep copy, so every node and tensor copied within the same call
// attaches to the same new graph, and tensors shared among nodes stay shared
// among their copies.
type copyContext struct {
	dst    *Graph
	rename func(string) string
	seen   map[*Tensor]*Tensor
}

func (c *copyContext) tensorName(name string) (string, error) {
	opName, index, err := ParseTensorName(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", c.rename(opName), index), nil
}

func (c *copyContext) copyTensor(t *Tensor) (*Tensor, error) {
	if t == nil {
		return nil, nil
	}
	if copied, found := c.seen[t]; found {
		return copied, nil
	}
	name, err := c.tensorName(t.name)
	if err != nil {
		return nil, err
	}
	copied, err := NewTensor(c.dst, name, t.dtype, t.shape.Clone())
	if err != nil {
		return nil, err
	}
	c.seen[t] = copied
	return copied, nil
}

func (c *copyContext) copyNode(n *Node) (*Node, error) {
	inputs := make([]*Tensor, len(n.inputs))
	for i, t := range n.inputs {
		copied, err := c.copyTensor(t)
		if err != nil {
			return nil, err
		}
		inputs[i] = copied
	}
	outputs := make([]*Tensor, len(n.outputs))
	for i, t := range n.outputs {
		copied, err := c.copyTensor(t)
		if err != nil {
			return nil, err
		}
		outputs[i] = copied
	}
	// Values are immutable, sharing them with the copy is fine.
	attrs := make(map[string]any, len(n.attrs))
	for key, value := range n.attrs {
		attrs[key] = value
	}
	return NewNode(c.dst, NodeParams{
		Name:    c.rename(n.name),
		Type:    n.opType,
		Backend: n.backend,
		Inputs:  inputs,
		Outputs: outputs,
		Attrs:   attrs,
	})
}

func (g *Graph) copyRenamed(rename func(string) string) (*Graph, error) {
	dst, err := New(xslices.Map(g.outputs, rename), g.backend)
	if err != nil {
		return nil, err
	}
	dst.converter = g.converter
	cc := &copyContext{dst: dst, rename: rename, seen: make(map[*Tensor]*Tensor)}
	for _, name := range g.insertion {
		if _, err := cc.copyNode(g.nodes[name]); err != nil {
			return nil, err
		}
	}
	if err := dst.SortTopologically(); err != nil {
		return nil, err
	}
	return dst, nil
}

// DeepCopy returns a structurally identical copy of the graph: same declared
// outputs, same node and tensor names, attached to a fresh Graph instance,
// already topologically sorted.
func (g *Graph) DeepCopy() (*Graph, error) {
	return g.copyRenamed(func(name string) string { return name })
}

// CopyWithSuffix deep-copies the graph appending "_<suffix>" to every node
// name, to the op part of every tensor name ("op_<suffix>:<index>") and to
// the declared output node names, keeping all cross-references consistent.
// An empty suffix picks a random 8-character alphanumeric one.
//
// Use it to instantiate multiple non-colliding copies of the same template
// graph.
func (g *Graph) CopyWithSuffix(suffix string) (*Graph, error) {
	if suffix == "" {
		suffix = randomSuffix(8)
	}
	return g.copyRenamed(func(name string) string { return name + "_" + suffix })
}

const suffixCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomSuffix(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = suffixCharset[rand.IntN(len(suffixCharset))]
	}
	return string(b)
}
