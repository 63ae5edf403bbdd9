// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph defines an intermediate representation for computation graphs
// imported from ML training frameworks, to be inspected, pattern-matched and
// rewritten offline.
//
// The three central types:
//
//   - Tensor: an edge of the graph, one output value of a node, named
//     "<op_name>:<index>". A null tensor (see NewNullTensor) stands for a
//     value fed from outside the graph.
//   - Node: an operation, with ordered input and output tensors and a free
//     form attribute map (see github.com/gomlx/graphir/types/attrval).
//   - Graph: owns nodes and tensors, keyed by name. It caches a topological
//     order over the nodes reachable from its declared output nodes, and
//     derives graph-level inputs and outputs.
//
// Cross-references inside the IR are by name: a Tensor records the name of
// its producing node and resolves it through the owning graph on demand, so
// graphs can be built incrementally in any order and re-ordered afterwards
// with Graph.SortTopologically.
//
// Data-driven failures (bad names, duplicate registrations, cycles) are
// returned as errors wrapping the package sentinels (ErrValidation,
// ErrPrecondition, ErrLookup, ErrCycle). Conditions that can only arise from
// a corrupted IR or API misuse panic instead, via
// github.com/gomlx/exceptions.
package graph

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/graphir/types"
	"github.com/gomlx/graphir/types/attrval"
	"github.com/gomlx/graphir/types/xslices"
)

// Backend tags the training framework a graph was produced by.
type Backend string

const (
	// TensorFlow graphs can be exported back to a GraphDef, see
	// Graph.GraphDef.
	TensorFlow Backend = "tensorflow"

	// ONNX graphs can be represented but not exported yet.
	ONNX Backend = "onnx"
)

// AllBackends lists the backends a graph can be tagged with.
func AllBackends() []Backend {
	return []Backend{TensorFlow, ONNX}
}

// Graph owns a set of nodes and, transitively, their tensors.
//
// A Graph is created empty with New, declaring its output nodes up front;
// nodes are then registered by NewNode, Graph.AddOp or Graph.UnsafeMergeInto.
// The nodes reachable from the declared outputs must form a DAG: any cycle is
// reported by SortTopologically and panics in the derived accessors that
// need an order.
//
// Graph is not safe for concurrent mutation; matching and exporting do not
// mutate it.
type Graph struct {
	backend   Backend
	outputs   []string
	nodes     map[string]*Node
	insertion []string

	// topoOrder is empty until computed by SortTopologically.
	topoOrder []string

	// typeIndex is built lazily by OpsByType and dropped on mutation.
	typeIndex map[string][]*Node

	converter attrval.Converter
}

// New creates an empty graph with the given declared output node names,
// which is required to be non-empty. The named nodes do not need to exist
// yet. The backend must be one of AllBackends.
func New(outputNodes []string, backend Backend) (*Graph, error) {
	if len(outputNodes) == 0 {
		return nil, errValidationf("a graph requires at least one declared output node")
	}
	for i, name := range outputNodes {
		if name == "" {
			return nil, errValidationf("declared output node #%d has an empty name", i)
		}
	}
	if !slices.Contains(AllBackends(), backend) {
		return nil, errValidationf("unknown backend %q, want one of %v", backend, AllBackends())
	}
	return &Graph{
		backend: backend,
		outputs: xslices.Copy(outputNodes),
		nodes:   make(map[string]*Node),
	}, nil
}

// Backend returns the backend tag of the graph.
func (g *Graph) Backend() Backend { return g.backend }

// OutputNodeNames returns a copy of the declared output node names.
func (g *Graph) OutputNodeNames() []string { return xslices.Copy(g.outputs) }

// SetOutputNodes replaces the declared output nodes. Every name must resolve
// to a registered node. The cached topological order is dropped.
//
// This is the repair step after UnsafeMergeInto.
func (g *Graph) SetOutputNodes(names ...string) error {
	if len(names) == 0 {
		return errValidationf("a graph requires at least one declared output node")
	}
	for _, name := range names {
		if _, found := g.nodes[name]; !found {
			return errLookupf("cannot declare %q as output node, no such node", name)
		}
	}
	g.outputs = xslices.Copy(names)
	g.topoOrder = nil
	return nil
}

// NumOps returns the number of registered nodes.
func (g *Graph) NumOps() int { return len(g.nodes) }

// HasOp reports whether a node named name is registered.
func (g *Graph) HasOp(name string) bool {
	_, found := g.nodes[name]
	return found
}

// Op returns the node registered under name, or ErrLookup.
func (g *Graph) Op(name string) (*Node, error) {
	n := g.nodes[name]
	if n == nil {
		return nil, errLookupf("node %q not found in the graph", name)
	}
	return n, nil
}

// OpNames returns the registered node names in registration order.
func (g *Graph) OpNames() []string { return xslices.Copy(g.insertion) }

// TopoOrder returns the cached topological order of node names computed by
// the last SortTopologically, or an empty slice if none was computed since
// the last mutation.
func (g *Graph) TopoOrder() []string { return xslices.Copy(g.topoOrder) }

// Ops returns the nodes reachable from the declared outputs, producers
// before consumers, sorting first if no order is cached.
//
// It panics if the graph cannot be ordered, because of a cycle or an
// unresolved output name; use SortTopologically to check for that as an
// error.
func (g *Graph) Ops() []*Node {
	if len(g.topoOrder) == 0 {
		if err := g.SortTopologically(); err != nil {
			exceptions.Panicf("graph: ordering nodes: %+v", err)
		}
	}
	return xslices.Map(g.topoOrder, func(name string) *Node { return g.nodes[name] })
}

// OpsByType returns the registered nodes with the given op type, in
// registration order.
//
// The index behind it is built on first use and rebuilt after mutations;
// UnsafeMergeInto extends it in place instead.
func (g *Graph) OpsByType(opType string) []*Node {
	if g.typeIndex == nil {
		g.typeIndex = make(map[string][]*Node)
		for _, name := range g.insertion {
			n := g.nodes[name]
			g.typeIndex[n.opType] = append(g.typeIndex[n.opType], n)
		}
	}
	return g.typeIndex[opType]
}

// InputOps returns the nodes fed from outside the graph: those with no
// inputs at all, or with at least one null (or still unset) input slot.
// Nodes are returned in registration order.
func (g *Graph) InputOps() []*Node {
	var ops []*Node
	for _, name := range g.insertion {
		n := g.nodes[name]
		if len(n.inputs) == 0 {
			ops = append(ops, n)
			continue
		}
		for _, t := range n.inputs {
			if t == nil || t.IsNull() {
				ops = append(ops, n)
				break
			}
		}
	}
	return ops
}

// InputTensors returns the input tensors of the graph's InputOps, excluding
// those produced by another input op, de-duplicated by name.
func (g *Graph) InputTensors() []*Tensor {
	inputOps := g.InputOps()
	names := types.MakeSet[string](len(inputOps))
	for _, op := range inputOps {
		names.Insert(op.name)
	}
	seen := types.MakeSet[string]()
	var tensors []*Tensor
	for _, op := range inputOps {
		for _, t := range op.inputs {
			if t == nil || names.Has(t.opName) || seen.Has(t.name) {
				continue
			}
			seen.Insert(t.name)
			tensors = append(tensors, t)
		}
	}
	return tensors
}

// OutputOps resolves the declared output node names, failing with ErrLookup
// on the first one not registered.
func (g *Graph) OutputOps() ([]*Node, error) {
	ops := make([]*Node, 0, len(g.outputs))
	for _, name := range g.outputs {
		n := g.nodes[name]
		if n == nil {
			return nil, errLookupf("declared output node %q not found in the graph", name)
		}
		ops = append(ops, n)
	}
	return ops, nil
}

// OutputTensors returns the output tensors of the declared output nodes,
// de-duplicated by name.
func (g *Graph) OutputTensors() ([]*Tensor, error) {
	ops, err := g.OutputOps()
	if err != nil {
		return nil, err
	}
	seen := types.MakeSet[string]()
	var tensors []*Tensor
	for _, op := range ops {
		for _, t := range op.outputs {
			if seen.Has(t.name) {
				continue
			}
			seen.Insert(t.name)
			tensors = append(tensors, t)
		}
	}
	return tensors, nil
}

// AddOp installs a node built against another graph into g, moving its
// tensors along (see Node.MoveInto). With resort set it re-runs
// SortTopologically immediately; pass false during bulk construction and
// sort once at the end.
//
// A duplicate name fails with ErrPrecondition. If the re-sort fails the
// installation is rolled back and g is left as it was.
func (g *Graph) AddOp(n *Node, resort bool) error {
	if n == nil {
		return errValidationf("AddOp requires a non-nil node")
	}
	if _, found := g.nodes[n.name]; found {
		return errPreconditionf("graph already has a node named %q", n.name)
	}
	src := n.graph
	n.MoveInto(g)
	if !resort {
		return nil
	}
	if err := g.SortTopologically(); err != nil {
		g.unregisterOp(n.name)
		if src != nil && src != g {
			n.MoveInto(src)
		}
		return err
	}
	return nil
}

// UnsafeMergeInto moves every node of g into dst and leaves g empty.
//
// As the name says, this is not safe: dst's declared output nodes and cached
// topological order are left untouched and therefore likely wrong. The
// caller must fix the outputs (SetOutputNodes), re-sort (SortTopologically)
// and usually Prune afterwards. Name collisions silently replace dst's
// nodes.
//
// If dst's type index was already built it is extended with the moved nodes
// rather than dropped.
func (g *Graph) UnsafeMergeInto(dst *Graph) {
	if dst == nil {
		exceptions.Panicf("graph: UnsafeMergeInto(nil)")
	}
	if dst == g {
		exceptions.Panicf("graph: UnsafeMergeInto with itself")
	}
	idx := dst.typeIndex
	for _, name := range g.insertion {
		n := g.nodes[name]
		n.MoveInto(dst)
		if idx != nil {
			idx[n.opType] = append(idx[n.opType], n)
		}
	}
	dst.typeIndex = idx
	g.nodes = make(map[string]*Node)
	g.insertion = nil
	g.invalidateCaches()
}

// Converter returns the attribute converter of the graph, defaulting to
// attrval.Default().
func (g *Graph) Converter() attrval.Converter {
	if g.converter == nil {
		return attrval.Default()
	}
	return g.converter
}

// SetConverter sets the attribute converter used by NewNode and GraphDef.
func (g *Graph) SetConverter(c attrval.Converter) { g.converter = c }

// String implements fmt.Stringer.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph{backend=%q, %d ops, outputs=%v}", g.backend, len(g.nodes), g.outputs)
}

// registerOp adds a freshly built node, failing with ErrPrecondition on a
// duplicate name. Called by NewNode.
func (g *Graph) registerOp(n *Node) error {
	if _, found := g.nodes[n.name]; found {
		return errPreconditionf("graph already has a node named %q", n.name)
	}
	g.nodes[n.name] = n
	g.insertion = append(g.insertion, n.name)
	g.invalidateCaches()
	return nil
}

// reregisterOp installs a node moved from another graph, replacing any
// previous node with the same name. Called by Node.MoveInto.
func (g *Graph) reregisterOp(n *Node) {
	if _, found := g.nodes[n.name]; !found {
		g.insertion = append(g.insertion, n.name)
	}
	g.nodes[n.name] = n
	g.invalidateCaches()
}

func (g *Graph) unregisterOp(name string) {
	if _, found := g.nodes[name]; !found {
		return
	}
	delete(g.nodes, name)
	g.insertion = slices.DeleteFunc(g.insertion, func(s string) bool { return s == name })
	g.invalidateCaches()
}

func (g *Graph) invalidateCaches() {
	g.topoOrder = nil
	g.typeIndex = nil
}
