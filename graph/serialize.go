// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/types/attrval"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// JSON forms used by Encode and Decode.
type (
	serialTensor struct {
		Name  string       `json:"name"`
		DType string       `json:"dtype"`
		Shape shapes.Shape `json:"shape"`
	}

	serialNode struct {
		Name    string                     `json:"name"`
		Type    string                     `json:"type"`
		Backend string                     `json:"backend,omitempty"`
		Inputs  []*serialTensor            `json:"inputs"`
		Outputs []*serialTensor            `json:"outputs"`
		Attrs   map[string]json.RawMessage `json:"attrs,omitempty"`
	}

	serialGraph struct {
		Backend     string        `json:"backend"`
		OutputNodes []string      `json:"output_nodes"`
		Ops         []*serialNode `json:"ops"`
	}
)

// Encode writes the graph as indented JSON.
//
// Nodes are written in registration order, so a graph under construction can
// be saved before it sorts. Unset input slots are written as JSON nulls.
// Attributes with attrval.Raw values are process-local and skipped.
func Encode(w io.Writer, g *Graph) error {
	sg := &serialGraph{
		Backend:     string(g.backend),
		OutputNodes: g.OutputNodeNames(),
		Ops:         make([]*serialNode, 0, len(g.insertion)),
	}
	for _, name := range g.insertion {
		n := g.nodes[name]
		sn := &serialNode{
			Name:    n.name,
			Type:    n.opType,
			Backend: string(n.backend),
			Inputs:  make([]*serialTensor, len(n.inputs)),
			Outputs: make([]*serialTensor, len(n.outputs)),
		}
		for i, t := range n.inputs {
			sn.Inputs[i] = encodeTensor(t)
		}
		for i, t := range n.outputs {
			sn.Outputs[i] = encodeTensor(t)
		}
		for key, value := range n.attrs {
			if value.Kind() == attrval.KindRaw {
				klog.V(1).Infof("graph: not encoding process-local attribute %q of node %q", key, name)
				continue
			}
			data, err := attrval.MarshalValue(value)
			if err != nil {
				return errors.WithMessagef(err, "encoding attribute %q of node %q", key, name)
			}
			if sn.Attrs == nil {
				sn.Attrs = make(map[string]json.RawMessage)
			}
			sn.Attrs[key] = data
		}
		sg.Ops = append(sg.Ops, sn)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrapf(enc.Encode(sg), "encoding graph")
}

// EncodeBytes is Encode into a fresh byte slice.
func EncodeBytes(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeTensor(t *Tensor) *serialTensor {
	if t == nil {
		return nil
	}
	return &serialTensor{
		Name:  t.name,
		DType: t.dtype.String(),
		Shape: t.shape,
	}
}

// Decode reads a graph written by Encode and re-sorts it.
func Decode(r io.Reader) (*Graph, error) {
	sg := &serialGraph{}
	if err := json.NewDecoder(r).Decode(sg); err != nil {
		return nil, errors.Wrapf(err, "decoding graph")
	}
	g, err := New(sg.OutputNodes, Backend(sg.Backend))
	if err != nil {
		return nil, err
	}
	for _, sn := range sg.Ops {
		inputs, err := decodeTensors(g, sn.Inputs)
		if err != nil {
			return nil, errors.WithMessagef(err, "decoding inputs of node %q", sn.Name)
		}
		outputs, err := decodeTensors(g, sn.Outputs)
		if err != nil {
			return nil, errors.WithMessagef(err, "decoding outputs of node %q", sn.Name)
		}
		attrs := make(map[string]any, len(sn.Attrs))
		for key, data := range sn.Attrs {
			value, err := attrval.UnmarshalValue(data)
			if err != nil {
				return nil, errors.WithMessagef(err, "decoding attribute %q of node %q", key, sn.Name)
			}
			attrs[key] = value
		}
		_, err = NewNode(g, NodeParams{
			Name:    sn.Name,
			Type:    sn.Type,
			Backend: Backend(sn.Backend),
			Inputs:  inputs,
			Outputs: outputs,
			Attrs:   attrs,
		})
		if err != nil {
			return nil, err
		}
	}
	if err := g.SortTopologically(); err != nil {
		return nil, err
	}
	return g, nil
}

// DecodeBytes is Decode from an in-memory graph encoding.
func DecodeBytes(data []byte) (*Graph, error) {
	return Decode(bytes.NewReader(data))
}

func decodeTensors(g *Graph, sts []*serialTensor) ([]*Tensor, error) {
	if len(sts) == 0 {
		return nil, nil
	}
	tensors := make([]*Tensor, len(sts))
	for i, st := range sts {
		if st == nil {
			continue
		}
		dtype, err := dtypes.DTypeString(st.DType)
		if err != nil {
			return nil, errValidationf("tensor %q: %v", st.Name, err)
		}
		tensors[i], err = NewTensor(g, st.Name, dtype, st.Shape)
		if err != nil {
			return nil, err
		}
	}
	return tensors, nil
}
