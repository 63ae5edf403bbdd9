// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"

	"github.com/gomlx/graphir/types"
	"github.com/gomlx/graphir/types/xslices"
)

// View is a read-only restriction of a Graph to a subset of its nodes, with
// its own notion of inputs and outputs relative to that subset.
//
// A View does not copy nodes, it references the parent graph's live ones:
// mutations of the parent are visible through the view, and the parent must
// outlive it.
type View struct {
	graph   *Graph
	names   []string
	members map[string]*Node
	outputs []string
}

// NewView builds a view of g restricted to the named member nodes, with the
// given view-level output nodes.
//
// Duplicate member names are collapsed. Every member must be registered in g
// (ErrLookup otherwise) and every output must be a member.
func NewView(g *Graph, members []string, outputNodes []string) (*View, error) {
	if g == nil {
		return nil, errValidationf("a view requires a parent graph")
	}
	if len(members) == 0 {
		return nil, errValidationf("a view requires at least one member node")
	}
	if len(outputNodes) == 0 {
		return nil, errValidationf("a view requires at least one output node")
	}
	v := &View{
		graph:   g,
		members: make(map[string]*Node, len(members)),
	}
	for _, name := range members {
		if _, found := v.members[name]; found {
			continue
		}
		n, err := g.Op(name)
		if err != nil {
			return nil, err
		}
		v.members[name] = n
		v.names = append(v.names, name)
	}
	for _, name := range outputNodes {
		if _, found := v.members[name]; !found {
			return nil, errValidationf("view output node %q is not a member of the view", name)
		}
	}
	v.outputs = xslices.Copy(outputNodes)
	return v, nil
}

// Graph returns the parent graph.
func (v *View) Graph() *Graph { return v.graph }

// Backend returns the parent graph's backend.
func (v *View) Backend() Backend { return v.graph.backend }

// OpNames returns the member node names in declaration order.
func (v *View) OpNames() []string { return xslices.Copy(v.names) }

// OutputNodeNames returns the view-level output node names.
func (v *View) OutputNodeNames() []string { return xslices.Copy(v.outputs) }

// NumOps returns the number of member nodes.
func (v *View) NumOps() int { return len(v.members) }

// HasOp reports whether name is a member of the view.
func (v *View) HasOp(name string) bool {
	_, found := v.members[name]
	return found
}

// Op returns the member node registered under name, or ErrLookup.
func (v *View) Op(name string) (*Node, error) {
	n := v.members[name]
	if n == nil {
		return nil, errLookupf("node %q not found in the view", name)
	}
	return n, nil
}

// InputOps returns the members none of whose inputs is produced by another
// member: their values cross the view's boundary. Null and unset slots count
// as produced outside. Members are returned in declaration order.
func (v *View) InputOps() []*Node {
	var ops []*Node
	for _, name := range v.names {
		n := v.members[name]
		boundary := true
		for _, t := range n.inputs {
			if t == nil || t.IsNull() {
				continue
			}
			if _, found := v.members[t.opName]; found {
				boundary = false
				break
			}
		}
		if boundary {
			ops = append(ops, n)
		}
	}
	return ops
}

// InputTensors returns the input tensors of the view's InputOps,
// de-duplicated by name.
func (v *View) InputTensors() []*Tensor {
	seen := types.MakeSet[string]()
	var tensors []*Tensor
	for _, op := range v.InputOps() {
		for _, t := range op.inputs {
			if t == nil || seen.Has(t.name) {
				continue
			}
			seen.Insert(t.name)
			tensors = append(tensors, t)
		}
	}
	return tensors
}

// OutputOps resolves the view-level output nodes.
func (v *View) OutputOps() []*Node {
	return xslices.Map(v.outputs, func(name string) *Node { return v.members[name] })
}

// OutputTensors returns the output tensors of the view-level output nodes,
// de-duplicated by name.
func (v *View) OutputTensors() []*Tensor {
	seen := types.MakeSet[string]()
	var tensors []*Tensor
	for _, op := range v.OutputOps() {
		for _, t := range op.outputs {
			if seen.Has(t.name) {
				continue
			}
			seen.Insert(t.name)
			tensors = append(tensors, t)
		}
	}
	return tensors
}

// String implements fmt.Stringer.
func (v *View) String() string {
	return fmt.Sprintf("View{%d of %d ops, outputs=%v}", len(v.members), len(v.graph.nodes), v.outputs)
}
