// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphviz renders graphir graphs to the Graphviz DOT format: one box
// per operation, one ellipse per tensor, edges input-tensor→op→output-tensor.
//
// The output is deterministic, operations are emitted in topological order and
// tensors in first-use order, so renders of an unchanged graph diff clean.
// Convert with the usual Graphviz toolchain, e.g.
//
//	dot -Tsvg graph.dot -o graph.svg
package graphviz

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
)

// Fill colors of the rendered nodes.
const (
	opFill           = "lightyellow"
	inputOpFill      = "lightgreen"
	tensorFill       = "white"
	outputTensorFill = "lightblue"
)

// Write renders g as a DOT digraph.
//
// It sorts the graph first, so it fails with ErrCycle on a cyclic graph and
// ErrLookup on an unresolved output node. Operations not reachable from the
// declared outputs are not rendered.
func Write(w io.Writer, g *graph.Graph) error {
	if g == nil {
		return errors.Wrap(graph.ErrValidation, "graphviz: cannot render a nil graph")
	}
	if err := g.SortTopologically(); err != nil {
		return errors.WithMessage(err, "graphviz: ordering graph")
	}
	inputOps := types.MakeSet[string]()
	for _, op := range g.InputOps() {
		inputOps.Insert(op.Name())
	}
	outputs, err := g.OutputTensors()
	if err != nil {
		return errors.WithMessage(err, "graphviz: resolving output tensors")
	}
	outputTensors := types.MakeSet[string](len(outputs))
	for _, t := range outputs {
		outputTensors.Insert(t.Name())
	}

	var b strings.Builder
	b.WriteString("digraph graphir {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n\n")

	ops := g.Ops()
	for _, op := range ops {
		fill := opFill
		if inputOps.Has(op.Name()) {
			fill = inputOpFill
		}
		fmt.Fprintf(&b, "  %s [shape=box, style=\"rounded,filled\", fillcolor=%s, label=%s];\n",
			quote(op.Name()), fill, quote(op.Name()+"\n"+op.Type()))
	}
	b.WriteString("\n")

	seen := types.MakeSet[string]()
	declare := func(t *graph.Tensor) {
		if t == nil || seen.Has(t.Name()) {
			return
		}
		seen.Insert(t.Name())
		style := "filled"
		title := t.Name()
		if t.IsNull() {
			style = "filled,dashed"
			title = "(external)"
		}
		fill := tensorFill
		if outputTensors.Has(t.Name()) {
			fill = outputTensorFill
		}
		label := title + "\n" + t.DType().String() + " " + t.Shape().String()
		fmt.Fprintf(&b, "  %s [shape=ellipse, style=\"%s\", fillcolor=%s, label=%s];\n",
			quote(t.Name()), style, fill, quote(label))
	}
	for _, op := range ops {
		for _, t := range op.InputTensors() {
			declare(t)
		}
		for _, t := range op.OutputTensors() {
			declare(t)
		}
	}
	b.WriteString("\n")

	for _, op := range ops {
		for _, t := range op.InputTensors() {
			if t == nil {
				continue
			}
			fmt.Fprintf(&b, "  %s -> %s;\n", quote(t.Name()), quote(op.Name()))
		}
		for _, t := range op.OutputTensors() {
			fmt.Fprintf(&b, "  %s -> %s;\n", quote(op.Name()), quote(t.Name()))
		}
	}
	b.WriteString("}\n")

	_, err = io.WriteString(w, b.String())
	return errors.Wrap(err, "graphviz: writing DOT output")
}

// Save renders g to the DOT file at path, see Write.
func Save(path string, g *graph.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "graphviz: creating %q", path)
	}
	if err := Write(f, g); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "graphviz: closing %q", path)
}

// quote renders s as a quoted DOT string.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
