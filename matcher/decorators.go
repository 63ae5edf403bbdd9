// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/types/attrval"
)

// MetaNode presents a subject node that matched a pattern node of a
// different op type through a registered Morphism. Every graph.Op accessor
// delegates to the wrapped op; Morphism tells the downstream rewriter how
// the node reads under the pattern's type.
//
// MetaNode is a pure view: it never touches the wrapped node or its graph.
type MetaNode struct {
	op       graph.Op
	morphism Morphism
}

var _ graph.Op = (*MetaNode)(nil)

// NewMetaNode wraps op with the given morphism.
func NewMetaNode(op graph.Op, m Morphism) *MetaNode {
	if op == nil || m == nil {
		exceptions.Panicf("matcher: NewMetaNode requires an op and a morphism")
	}
	return &MetaNode{op: op, morphism: m}
}

// Unwrap returns the wrapped op.
func (n *MetaNode) Unwrap() graph.Op { return n.op }

// Morphism returns the transform under which the wrapped op matched.
func (n *MetaNode) Morphism() Morphism { return n.morphism }

// AdjustedAttrs returns the wrapped op's attributes transformed by the
// morphism: how they read under the pattern's op type.
func (n *MetaNode) AdjustedAttrs() map[string]attrval.Value {
	return n.morphism.AdjustAttrs(n.op.Attrs())
}

// Name implements graph.Op.
func (n *MetaNode) Name() string { return n.op.Name() }

// Type implements graph.Op.
func (n *MetaNode) Type() string { return n.op.Type() }

// Backend implements graph.Op.
func (n *MetaNode) Backend() graph.Backend { return n.op.Backend() }

// Graph implements graph.Op.
func (n *MetaNode) Graph() *graph.Graph { return n.op.Graph() }

// InputTensors implements graph.Op.
func (n *MetaNode) InputTensors() []*graph.Tensor { return n.op.InputTensors() }

// OutputTensors implements graph.Op.
func (n *MetaNode) OutputTensors() []*graph.Tensor { return n.op.OutputTensors() }

// InputNodes implements graph.Op.
func (n *MetaNode) InputNodes() []*graph.Node { return n.op.InputNodes() }

// Attrs implements graph.Op, returning the wrapped op's attributes
// unchanged. See AdjustedAttrs for the morphism's view.
func (n *MetaNode) Attrs() map[string]attrval.Value { return n.op.Attrs() }

// PermutedNode presents a subject node with its input slots reordered by one
// of the permutations registered for its op type: slot i reads from the
// wrapped op's slot perm[i]. Outputs, attributes and identity are untouched.
//
// Like MetaNode it is a pure view, built by Registry.Query so the matcher
// can try every legal commutative ordering without mutating the subject.
type PermutedNode struct {
	op     graph.Op
	perm   []int
	inputs []*graph.Tensor
}

var _ graph.Op = (*PermutedNode)(nil)

// NewPermutedNode returns a view of op with input slot i reading from
// op.InputTensors()[perm[i]]. It panics unless perm has exactly one entry
// per input slot; Registry.Query only builds arity-matching views.
func NewPermutedNode(op graph.Op, perm []int) *PermutedNode {
	ins := op.InputTensors()
	if len(perm) != len(ins) {
		exceptions.Panicf("matcher: permutation %v does not cover the %d input slots of %q",
			perm, len(ins), op.Name())
	}
	permuted := make([]*graph.Tensor, len(perm))
	for i, j := range perm {
		permuted[i] = ins[j]
	}
	return &PermutedNode{op: op, perm: slices.Clone(perm), inputs: permuted}
}

// Unwrap returns the wrapped op.
func (n *PermutedNode) Unwrap() graph.Op { return n.op }

// Permutation returns the applied input-slot permutation.
func (n *PermutedNode) Permutation() []int { return slices.Clone(n.perm) }

// Name implements graph.Op.
func (n *PermutedNode) Name() string { return n.op.Name() }

// Type implements graph.Op.
func (n *PermutedNode) Type() string { return n.op.Type() }

// Backend implements graph.Op.
func (n *PermutedNode) Backend() graph.Backend { return n.op.Backend() }

// Graph implements graph.Op.
func (n *PermutedNode) Graph() *graph.Graph { return n.op.Graph() }

// InputTensors implements graph.Op: the wrapped op's input tensors in
// permuted order.
func (n *PermutedNode) InputTensors() []*graph.Tensor { return n.inputs }

// OutputTensors implements graph.Op.
func (n *PermutedNode) OutputTensors() []*graph.Tensor { return n.op.OutputTensors() }

// InputNodes implements graph.Op: the producers of the permuted input
// tensors, de-duplicated in permuted first-seen order.
func (n *PermutedNode) InputNodes() []*graph.Node { return producersOf(n.inputs) }

// Attrs implements graph.Op.
func (n *PermutedNode) Attrs() map[string]attrval.Value { return n.op.Attrs() }

// producersOf resolves the producers of the given input tensors,
// de-duplicated in first-seen order, skipping null and unset slots. Like
// Node.InputNodes it panics on a dangling producer reference, which means
// the graph is inconsistent.
func producersOf(inputs []*graph.Tensor) []*graph.Node {
	var producers []*graph.Node
	seen := make(map[string]bool, len(inputs))
	for _, t := range inputs {
		if t == nil || t.IsNull() || seen[t.OpName()] {
			continue
		}
		seen[t.OpName()] = true
		producer, err := t.Op()
		if err != nil {
			exceptions.Panicf("matcher: %+v", err)
		}
		producers = append(producers, producer)
	}
	return producers
}
