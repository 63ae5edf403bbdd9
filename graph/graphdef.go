// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"regexp"
	"strings"

	"github.com/gomlx/graphir/types/attrval"
	"github.com/pkg/errors"
)

// DeviceAttrKey is the node attribute exported as NodeDef.Device.
const DeviceAttrKey = "tensorflow__device"

// backendAttrKey matches backend-scoped attribute keys, of the form
// "<backend>__<key>". They are private to their backend and not converted
// into GraphDef attributes.
var backendAttrKey = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*__[a-zA-Z_][a-zA-Z0-9_]*`)

// NodeDef is one node record of an exported GraphDef.
type NodeDef struct {
	Name   string         `json:"name"`
	Op     string         `json:"op"`
	Input  []string       `json:"input"`
	Device string         `json:"device,omitempty"`
	Attr   map[string]any `json:"attr,omitempty"`
}

// GraphDef is the export form of a TensorFlow-backed graph: its nodes in
// topological order, with attributes converted back to framework-native
// values.
type GraphDef struct {
	Node []*NodeDef `json:"node"`
}

// GraphDef exports the graph as a GraphDef.
//
// It fails with ErrPrecondition unless the graph's backend is TensorFlow.
// Nodes are emitted in the cached topological order, sorting first when
// needed. Inputs are listed by tensor name, including null tensors; unset
// slots are skipped. The device string is read from DeviceAttrKey when
// present. Attributes are converted through the graph's converter, except
// keys starting with ReservedAttrPrefix and backend-scoped keys
// ("<backend>__<key>"), which are omitted.
func (g *Graph) GraphDef() (*GraphDef, error) {
	if g.backend != TensorFlow {
		return nil, errPreconditionf("GraphDef export requires backend %q, graph has backend %q",
			TensorFlow, g.backend)
	}
	if len(g.topoOrder) == 0 {
		if err := g.SortTopologically(); err != nil {
			return nil, err
		}
	}
	conv := g.Converter()
	def := &GraphDef{Node: make([]*NodeDef, 0, len(g.topoOrder))}
	for _, name := range g.topoOrder {
		n := g.nodes[name]
		nd := &NodeDef{
			Name:  n.name,
			Op:    n.opType,
			Input: make([]string, 0, len(n.inputs)),
		}
		for _, t := range n.inputs {
			if t == nil {
				continue
			}
			nd.Input = append(nd.Input, t.name)
		}
		if v, ok := n.attrs[DeviceAttrKey]; ok {
			if s, ok := v.(attrval.Str); ok {
				nd.Device = string(s)
			}
		}
		for key, value := range n.attrs {
			if strings.HasPrefix(key, ReservedAttrPrefix) || backendAttrKey.MatchString(key) {
				continue
			}
			native, err := conv.ToNative(value)
			if err != nil {
				return nil, errors.WithMessagef(err, "exporting attribute %q of node %q", key, name)
			}
			if nd.Attr == nil {
				nd.Attr = make(map[string]any)
			}
			nd.Attr[key] = native
		}
		def.Node = append(def.Node, nd)
	}
	return def, nil
}
