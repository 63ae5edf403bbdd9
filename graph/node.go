// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/graphir/types/attrval"
)

// PlaceholderOp is the op type of free graph inputs. It is the only op type
// whose input-slot list may grow null tensors after construction, see
// Node.AddNullInputTensor.
const PlaceholderOp = "Placeholder"

// ReservedAttrPrefix marks attribute keys that are stored as-is (wrapped in
// attrval.Raw, no conversion) and skipped by every export.
const ReservedAttrPrefix = "_graphir"

// Op is the read-only capability of a graph node. It is implemented by
// *Node and by the synthetic decorators the matcher builds, which present a
// transformed view of a node without touching the graph.
type Op interface {
	// Name of the node, unique within its graph.
	Name() string

	// Type tags the computation kind, e.g. "Add" or "MatMul".
	Type() string

	// Backend tags the framework the graph was trained with.
	Backend() Backend

	// Graph owning the node.
	Graph() *Graph

	// InputTensors returns the ordered input slots. Entries may be null
	// tensors or, transitionally, nil.
	InputTensors() []*Tensor

	// OutputTensors returns the ordered outputs of the node.
	OutputTensors() []*Tensor

	// InputNodes returns the producers of the non-null inputs, de-duplicated
	// in order of first occurrence.
	InputNodes() []*Node

	// Attrs returns the attribute map of the node. Callers must not mutate it.
	Attrs() map[string]attrval.Value
}

// Node is one operation of a Graph.
//
// Constructing a Node is not pure: NewNode registers it into the owning
// graph's node map as a side effect. Nodes are identified by name plus owning
// graph, see Equal.
type Node struct {
	graph   *Graph
	name    string
	opType  string
	backend Backend
	inputs  []*Tensor
	outputs []*Tensor
	attrs   map[string]attrval.Value
}

var _ Op = (*Node)(nil)

// NodeParams collects the arguments of NewNode.
type NodeParams struct {
	// Name of the node, unique within the graph. Required.
	Name string

	// Type of the operation, e.g. "Add". Required.
	Type string

	// Backend defaults to the graph's backend when empty.
	Backend Backend

	// Inputs are the ordered input slots. Entries may be null tensors or nil
	// for slots to be filled in later.
	Inputs []*Tensor

	// Outputs are the ordered outputs produced by the node.
	Outputs []*Tensor

	// NumInputs and NumOutputs default to the lengths of Inputs and Outputs.
	// When set to a non-zero value they must agree with those lengths.
	NumInputs  int
	NumOutputs int

	// Attrs holds extra information about the op. Values are converted to
	// attrval.Value through the graph's converter, except for keys starting
	// with ReservedAttrPrefix, which are stored unconverted.
	Attrs map[string]any
}

// NewNode creates a node and registers it into g, keyed by its name.
//
// It fails with ErrValidation on malformed parameters and with
// ErrPrecondition if g already has a node with the same name; in both cases
// g is left unchanged.
func NewNode(g *Graph, params NodeParams) (*Node, error) {
	if g == nil {
		return nil, errValidationf("node %q requires an owning graph", params.Name)
	}
	if params.Name == "" {
		return nil, errValidationf("node requires a non-empty name")
	}
	if params.Type == "" {
		return nil, errValidationf("node %q requires a non-empty op type", params.Name)
	}
	if params.NumInputs != 0 && params.NumInputs != len(params.Inputs) {
		return nil, errValidationf("node %q declares %d inputs but was given %d input tensors",
			params.Name, params.NumInputs, len(params.Inputs))
	}
	if params.NumOutputs != 0 && params.NumOutputs != len(params.Outputs) {
		return nil, errValidationf("node %q declares %d outputs but was given %d output tensors",
			params.Name, params.NumOutputs, len(params.Outputs))
	}
	for i, t := range params.Outputs {
		if t == nil {
			return nil, errValidationf("node %q: output tensor #%d is nil", params.Name, i)
		}
	}
	backend := params.Backend
	if backend == "" {
		backend = g.backend
	} else if !slices.Contains(AllBackends(), backend) {
		return nil, errValidationf("node %q: unknown backend %q, want one of %v",
			params.Name, backend, AllBackends())
	}

	attrs := make(map[string]attrval.Value, len(params.Attrs))
	conv := g.Converter()
	for key, value := range params.Attrs {
		if strings.HasPrefix(key, ReservedAttrPrefix) {
			if v, ok := value.(attrval.Value); ok {
				attrs[key] = v
			} else {
				attrs[key] = attrval.RawOf(value)
			}
			continue
		}
		v, err := conv.FromNative(value)
		if err != nil {
			return nil, errValidationf("node %q: attribute %q: %v", params.Name, key, err)
		}
		attrs[key] = v
	}

	n := &Node{
		graph:   g,
		name:    params.Name,
		opType:  params.Type,
		backend: backend,
		inputs:  slices.Clone(params.Inputs),
		outputs: slices.Clone(params.Outputs),
		attrs:   attrs,
	}
	if err := g.registerOp(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Name returns the node name, unique within its graph.
func (n *Node) Name() string { return n.name }

// Type returns the operation type tag, e.g. "Add".
func (n *Node) Type() string { return n.opType }

// Backend returns the backend tag of the node.
func (n *Node) Backend() Backend { return n.backend }

// Graph returns the graph owning this node.
func (n *Node) Graph() *Graph { return n.graph }

// InputTensors returns the ordered input slots of the node. Entries may be
// null tensors or, transitionally, nil. Callers must not mutate the slice.
func (n *Node) InputTensors() []*Tensor { return n.inputs }

// OutputTensors returns the ordered outputs of the node. Callers must not
// mutate the slice.
func (n *Node) OutputTensors() []*Tensor { return n.outputs }

// NumInputs returns the number of input slots.
func (n *Node) NumInputs() int { return len(n.inputs) }

// NumOutputs returns the number of outputs.
func (n *Node) NumOutputs() int { return len(n.outputs) }

// Attrs returns the attribute map of the node. Callers must not mutate it.
func (n *Node) Attrs() map[string]attrval.Value { return n.attrs }

// Attr returns the attribute stored under key, if any.
func (n *Node) Attr(key string) (attrval.Value, bool) {
	v, ok := n.attrs[key]
	return v, ok
}

// OutputTensor returns the idx-th output of the node.
func (n *Node) OutputTensor(idx int) (*Tensor, error) {
	if idx < 0 || idx >= len(n.outputs) {
		return nil, errPreconditionf("node %q: output index %d out of range, node has %d outputs",
			n.name, idx, len(n.outputs))
	}
	return n.outputs[idx], nil
}

// InputNodes returns the nodes producing this node's inputs, de-duplicated in
// order of first occurrence. Null tensors and unset slots are skipped.
//
// It panics if a non-null input references an op name absent from the graph:
// that means the IR is inconsistent.
func (n *Node) InputNodes() []*Node {
	var producers []*Node
	seen := make(map[string]bool, len(n.inputs))
	for _, t := range n.inputs {
		if t == nil || t.IsNull() || seen[t.opName] {
			continue
		}
		seen[t.opName] = true
		producer := n.graph.nodes[t.opName]
		if producer == nil {
			exceptions.Panicf("graph: node %q: input tensor %q references op %q which is not in the graph",
				n.name, t.name, t.opName)
		}
		producers = append(producers, producer)
	}
	return producers
}

// OutputNodes returns the nodes consuming any output of this node, in order
// of first occurrence, scanning the whole graph in registration order. The
// scan is O(graph size) on every call.
func (n *Node) OutputNodes() []*Node {
	var consumers []*Node
	for _, name := range n.graph.insertion {
		op := n.graph.nodes[name]
		for _, t := range op.inputs {
			if t != nil && t.opName == n.name {
				consumers = append(consumers, op)
				break
			}
		}
	}
	return consumers
}

// AddNullInputTensor inserts a fresh null tensor at input slot idx and
// returns it. An idx of -1 appends.
//
// Only nodes of type PlaceholderOp accept new null inputs; other types fail
// with ErrPrecondition, as does an out-of-bounds idx.
func (n *Node) AddNullInputTensor(idx int) (*Tensor, error) {
	if n.opType != PlaceholderOp {
		return nil, errPreconditionf("can only add null input tensors to %q nodes, %q is a %q",
			PlaceholderOp, n.name, n.opType)
	}
	if idx == -1 {
		idx = len(n.inputs)
	}
	if idx < 0 || idx > len(n.inputs) {
		return nil, errPreconditionf("node %q: cannot insert null tensor at %d, node has %d input slots",
			n.name, idx, len(n.inputs))
	}
	null := nullInputTensor(n.graph)
	n.inputs = slices.Insert(n.inputs, idx, null)
	return null, nil
}

// ReplaceWithNullInputTensor overwrites the input slot at idx with a fresh
// null tensor and returns it. It fails with ErrPrecondition if idx is out of
// range.
func (n *Node) ReplaceWithNullInputTensor(idx int) (*Tensor, error) {
	if idx < 0 || idx >= len(n.inputs) {
		return nil, errPreconditionf("node %q: input index %d out of range, node has %d input slots",
			n.name, idx, len(n.inputs))
	}
	null := nullInputTensor(n.graph)
	n.inputs[idx] = null
	return null, nil
}

// MoveInto transfers this node to dst: it moves every input and output tensor
// into dst and re-registers the node there, replacing any node dst already
// has under the same name.
//
// The source graph is not updated and keeps a stale reference to the node;
// use Graph.AddOp or Graph.UnsafeMergeInto, which maintain the source-side
// bookkeeping.
func (n *Node) MoveInto(dst *Graph) {
	if dst == nil {
		exceptions.Panicf("graph: Node(%q).MoveInto(nil)", n.name)
	}
	n.graph = dst
	for _, t := range n.inputs {
		if t != nil {
			t.MoveInto(dst)
		}
	}
	for _, t := range n.outputs {
		t.MoveInto(dst)
	}
	dst.reregisterOp(n)
}

// Equal reports whether both nodes have the same name and are owned by the
// same graph.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.name == other.name && n.graph == other.graph
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return fmt.Sprintf("%s (%s)", n.name, n.opType)
}
