// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"slices"

	"github.com/gomlx/graphir/types"
	"github.com/gomlx/graphir/types/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Node colors of the depth-first sort.
const (
	white = iota // not visited
	gray         // on the current traversal path
	black        // finished
)

// SortTopologically computes and caches the topological order of the nodes
// reachable from the declared output nodes: every producer before all of its
// consumers. Nodes not reachable from an output are not part of the order
// (see Prune).
//
// The traversal follows the declared output list and input-slot order, so
// repeated sorts of an unchanged graph return the same order. It fails with
// ErrCycle if the reachable nodes do not form a DAG and with ErrLookup if an
// output name or a referenced producer is not registered.
func (g *Graph) SortTopologically() error {
	state := make(map[string]int, len(g.nodes))
	order := make([]string, 0, len(g.nodes))
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case black:
			return nil
		case gray:
			return errors.Wrapf(ErrCycle, "node %q is part of a cycle", name)
		}
		n := g.nodes[name]
		if n == nil {
			return errLookupf("node %q referenced but not registered", name)
		}
		state[name] = gray
		for _, t := range n.inputs {
			if t == nil || t.IsNull() {
				continue
			}
			if err := visit(t.opName); err != nil {
				return err
			}
		}
		state[name] = black
		order = append(order, name)
		return nil
	}
	for _, name := range g.outputs {
		if err := visit(name); err != nil {
			return err
		}
	}
	g.topoOrder = order
	return nil
}

// BFSQueue returns the seed nodes plus everything reachable from them
// through input edges, in breadth-first order, de-duplicated. Null and unset
// input slots contribute nothing. Without explicit seeds it starts from the
// declared output nodes, failing with ErrLookup if one is not registered.
//
// Like Node.InputNodes, it panics if it runs into a dangling producer
// reference.
func (g *Graph) BFSQueue(seeds ...*Node) ([]*Node, error) {
	if len(seeds) == 0 {
		var err error
		seeds, err = g.OutputOps()
		if err != nil {
			return nil, err
		}
	}
	visited := types.MakeSet[string](len(seeds))
	queue := make([]*Node, 0, len(seeds))
	for _, n := range seeds {
		if visited.Has(n.name) {
			continue
		}
		visited.Insert(n.name)
		queue = append(queue, n)
	}
	var order []*Node
	for len(queue) > 0 {
		var n *Node
		n, queue = xslices.PopFront(queue)
		order = append(order, n)
		for _, producer := range n.InputNodes() {
			if visited.Has(producer.name) {
				continue
			}
			visited.Insert(producer.name)
			queue = append(queue, producer)
		}
	}
	return order, nil
}

// Prune drops every node not reachable from the declared output nodes and
// re-sorts the graph. It is the usual cleanup after UnsafeMergeInto or a
// rewrite.
func (g *Graph) Prune() error {
	reachable, err := g.BFSQueue()
	if err != nil {
		return err
	}
	keep := types.MakeSet[string](len(g.nodes))
	for _, n := range reachable {
		keep.Insert(n.name)
	}
	all := types.MakeSet[string](len(g.nodes))
	all.Insert(g.insertion...)
	dead := all.Sub(keep)
	if len(dead) > 0 {
		for name := range dead {
			delete(g.nodes, name)
		}
		g.insertion = slices.DeleteFunc(g.insertion, func(name string) bool { return dead.Has(name) })
		g.invalidateCaches()
		klog.V(1).Infof("graph: pruned %d unreachable nodes, %d remain", len(dead), len(g.nodes))
	}
	return g.SortTopologically()
}
