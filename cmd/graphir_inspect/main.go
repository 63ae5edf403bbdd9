// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// graphir_inspect reports on a graph JSON file: summary, op and tensor
// listings, pattern matching and GraphDef/DOT exports.
//
// Usage:
//
//	graphir_inspect [flags] <graph.json>
//
// By default it prints the summary table. Combine flags freely, e.g.
//
//	graphir_inspect -ops -optypes model.json
//	graphir_inspect -match pattern.json -assoc "Add:0,1:1,0" model.json
//	graphir_inspect -summary=false -dot model.dot model.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/ui/graphviz"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagSummary = flag.Bool("summary", true, "Print a summary of the graph: backend, op and tensor "+
		"counts, graph inputs and declared outputs.")
	flagOps     = flag.Bool("ops", false, "List the operations reachable from the declared outputs, in topological order.")
	flagOpTypes = flag.Bool("optypes", false, "List the op types in the graph and how many operations carry each.")
	flagTensors = flag.Bool("tensors", false, "List the tensors touched by reachable operations, with dtype and shape.")

	flagGraphDef = flag.Bool("graphdef", false, "Export the graph as GraphDef JSON to stdout. "+
		"Only TensorFlow-backed graphs can be exported.")
	flagDot = flag.String("dot", "", "Write a Graphviz DOT rendering of the graph to the given file.")

	flagMatch = flag.String("match", "", "Match the pattern graph in the given JSON file against the "+
		"graph and report the op pairings of each match.")
	flagMaxMatches = flag.Int("max_matches", 0, "Stop -match after this many matches. 0 enumerates all of them.")
	flagAssoc      = flag.String("assoc", "", "Associative op types for -match, entries separated by ';': "+
		"\"<op type>:<perm>[:<perm>...]\", a perm being comma-separated input positions. "+
		"E.g. \"Add:0,1:1,0\" lets an Add match with its inputs in either order.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		klog.Errorf("Missing graph JSON file to inspect. See 'graphir_inspect -help'.")
		os.Exit(1)
	}
	if len(args) > 1 {
		klog.Errorf("Too many arguments. See 'graphir_inspect -help'.")
		os.Exit(1)
	}
	if err := report(args[0]); err != nil {
		klog.Errorf("%+v", err)
		os.Exit(1)
	}
}

func report(path string) error {
	g, err := loadGraph(path)
	if err != nil {
		return err
	}

	if *flagSummary {
		summary(path, g)
	}
	if *flagOps {
		listOps(g)
	}
	if *flagOpTypes {
		listOpTypes(g)
	}
	if *flagTensors {
		listTensors(g)
	}
	if *flagGraphDef {
		if err := exportGraphDef(g); err != nil {
			return err
		}
	}
	if *flagDot != "" {
		if err := graphviz.Save(*flagDot, g); err != nil {
			return err
		}
		fmt.Printf("Wrote DOT rendering to %s\n", *flagDot)
	}
	if *flagMatch != "" {
		if err := matchReport(g, *flagMatch); err != nil {
			return err
		}
	}
	return nil
}

// loadGraph decodes and topologically sorts the graph at path, so the
// reports can rely on a valid order.
func loadGraph(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening graph file %q", path)
	}
	defer func() { _ = f.Close() }()
	g, err := graph.Decode(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "decoding graph from %q", path)
	}
	if err := g.SortTopologically(); err != nil {
		return nil, errors.WithMessagef(err, "ordering graph from %q", path)
	}
	return g, nil
}

func exportGraphDef(g *graph.Graph) error {
	def, err := g.GraphDef()
	if err != nil {
		return errors.WithMessage(err, "exporting GraphDef")
	}
	fmt.Println(string(must.M1(json.MarshalIndent(def, "", "  "))))
	return nil
}
