// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/types"
	"github.com/gomlx/graphir/types/attrval"
	"github.com/gomlx/graphir/types/xslices"
)

// summary prints the one-look report: backend, sizes, graph boundary.
func summary(path string, g *graph.Graph) {
	reachable := g.Ops()
	tensors := types.MakeSet[string]()
	var externals int
	var constBytes uint64
	for _, op := range reachable {
		for _, t := range op.InputTensors() {
			if t == nil {
				continue
			}
			if t.IsNull() && !tensors.Has(t.Name()) {
				externals++
			}
			tensors.Insert(t.Name())
		}
		for _, t := range op.OutputTensors() {
			tensors.Insert(t.Name())
		}
		for _, value := range op.Attrs() {
			if tensor, ok := value.(attrval.Tensor); ok {
				constBytes += uint64(tensor.ByteSize())
			}
		}
	}
	inputs := xslices.Map(g.InputOps(), func(n *graph.Node) string { return n.Name() })

	fmt.Println(titleStyle.Render("Summary"))
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Row("graph", path)
	table.Row("backend", string(g.Backend()))
	table.Row("# ops", humanize.Comma(int64(g.NumOps())))
	table.Row("# reachable ops", humanize.Comma(int64(len(reachable))))
	table.Row("# tensors", humanize.Comma(int64(len(tensors))))
	table.Row("# external feeds", humanize.Comma(int64(externals)))
	table.Row("constant data", humanize.Bytes(constBytes))
	table.Row("inputs", strings.Join(inputs, ", "))
	table.Row("outputs", strings.Join(g.OutputNodeNames(), ", "))
	fmt.Println(table.Render())
}
