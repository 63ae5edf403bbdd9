// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/types"
	"github.com/gomlx/graphir/types/xslices"
	"github.com/janpfeifer/must"
)

// listOps prints the reachable operations in topological order.
func listOps(g *graph.Graph) {
	fmt.Println(titleStyle.Render("Operations"))
	table := newPlainTable(lipgloss.Left)
	table.Headers("Name", "Type", "Inputs", "Outputs")
	for _, op := range g.Ops() {
		table.Row(op.Name(), op.Type(),
			strings.Join(tensorLabels(op.InputTensors()), ", "),
			strings.Join(tensorLabels(op.OutputTensors()), ", "))
	}
	fmt.Println(table.Render())
}

// listOpTypes prints how many registered operations carry each op type,
// counting unreachable ones too.
func listOpTypes(g *graph.Graph) {
	counts := make(map[string]int)
	for _, name := range g.OpNames() {
		counts[must.M1(g.Op(name)).Type()]++
	}

	fmt.Println(titleStyle.Render("Op Types"))
	table := newPlainTable(lipgloss.Left, lipgloss.Right)
	table.Headers("Op Type", "Count")
	for _, opType := range xslices.SortedKeys(counts) {
		table.Row(opType, humanize.Comma(int64(counts[opType])))
	}
	fmt.Println(table.Render())
}

// listTensors prints the tensors touched by reachable operations: external
// feeds first use, then producer outputs, in topological order.
func listTensors(g *graph.Graph) {
	ops := g.Ops()
	consumers := make(map[string]int)
	for _, op := range ops {
		for _, t := range op.InputTensors() {
			if t != nil {
				consumers[t.Name()]++
			}
		}
	}

	fmt.Println(titleStyle.Render("Tensors"))
	table := newPlainTable(lipgloss.Left, lipgloss.Left, lipgloss.Left, lipgloss.Left, lipgloss.Right)
	table.Headers("Name", "DType", "Shape", "Producer", "Consumers")
	seen := types.MakeSet[string]()
	row := func(t *graph.Tensor, producer string) {
		if seen.Has(t.Name()) {
			return
		}
		seen.Insert(t.Name())
		table.Row(t.Name(), t.DType().String(), t.Shape().String(), producer,
			humanize.Comma(int64(consumers[t.Name()])))
	}
	for _, op := range ops {
		for _, t := range op.InputTensors() {
			if t != nil && t.IsNull() {
				row(t, "(external)")
			}
		}
		for _, t := range op.OutputTensors() {
			row(t, op.Name())
		}
	}
	fmt.Println(table.Render())
}

// tensorLabels renders tensor slots for table cells: unset slots as "(unset)"
// and null tensors as "(external)".
func tensorLabels(tensors []*graph.Tensor) []string {
	labels := make([]string, len(tensors))
	for i, t := range tensors {
		switch {
		case t == nil:
			labels[i] = "(unset)"
		case t.IsNull():
			labels[i] = "(external)"
		default:
			labels[i] = t.Name()
		}
	}
	return labels
}
