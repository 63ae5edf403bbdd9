// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package matcher finds occurrences of a pattern graph inside a subject
// graph: a backtracking breadth-first subgraph-isomorphism search whose node
// equivalence relation is pluggable through a Registry.
//
// A pattern is an ordinary graph.Graph. Its Placeholder nodes with no inputs
// are free variables that match any subject op; everything else matches by
// op type, widened by the Registry's rules: registered input permutations
// (commutative operators try every legal ordering) and registered morphisms
// (one op type standing in for another). A successful search yields a Match
// exposing the full node and tensor bijection, which is what a rewrite needs
// to splice a replacement into the subject.
//
//	reg := matcher.NewRegistry()
//	_ = reg.RegisterAssociative("Add", []int{0, 1}, []int{1, 0})
//	m, err := matcher.NewMatcher(pattern, reg)
//	if err != nil { ... }
//	matches, err := m.MatchAll(subject)
//
// Matching never mutates the pattern or the subject graph, and finding no
// match is an empty result, not an error. The search is synchronous and
// single-threaded; its worst case is exponential in the number of
// permutation-registered ops of the pattern, so callers wanting bounded work
// should prefer Match with a small n over MatchAll.
package matcher

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/types"
	"github.com/gomlx/graphir/types/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Matcher holds a pattern graph prepared for matching: its output-node seeds
// and its breadth-first walk, computed once and reused across subjects.
type Matcher struct {
	pattern  *graph.Graph
	registry *Registry

	// outputs are the pattern's declared output ops, first-seen de-duplicated:
	// the walk seeds, and the order of the per-output candidate pools.
	outputs []*graph.Node

	walk []patternStep
}

// patternStep is one stop of the pattern's breadth-first walk: the pattern
// node matched at this step and the input slots at which the walk first
// reached a producer. The subject-side walk expands at exactly these slots,
// which keeps the two queues aligned position by position.
type patternStep struct {
	op     *graph.Node
	expand []int
}

// NewMatcher prepares a matcher for the given pattern graph. A nil registry
// behaves like an empty one: only exact-type and free-placeholder matches.
//
// It fails if the pattern's declared output nodes are not registered or if a
// pattern input tensor references a producer missing from the pattern.
func NewMatcher(pattern *graph.Graph, registry *Registry) (*Matcher, error) {
	if pattern == nil {
		return nil, errors.Wrap(graph.ErrValidation, "NewMatcher requires a pattern graph")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	outputOps, err := pattern.OutputOps()
	if err != nil {
		return nil, errors.WithMessage(err, "resolving the pattern's output nodes")
	}
	m := &Matcher{pattern: pattern, registry: registry}
	visited := types.MakeSet[string](pattern.NumOps())
	for _, op := range outputOps {
		if visited.Has(op.Name()) {
			continue
		}
		visited.Insert(op.Name())
		m.outputs = append(m.outputs, op)
	}
	queue := xslices.Copy(m.outputs)
	for len(queue) > 0 {
		var op *graph.Node
		op, queue = xslices.PopFront(queue)
		step := patternStep{op: op}
		for slot, t := range op.InputTensors() {
			if t == nil || t.IsNull() {
				continue
			}
			producer, err := t.Op()
			if err != nil {
				return nil, errors.WithMessagef(err, "pattern node %q, input slot %d", op.Name(), slot)
			}
			if visited.Has(producer.Name()) {
				continue
			}
			visited.Insert(producer.Name())
			queue = append(queue, producer)
			step.expand = append(step.expand, slot)
		}
		m.walk = append(m.walk, step)
	}
	return m, nil
}

// Pattern returns the pattern graph the matcher searches for.
func (m *Matcher) Pattern() *graph.Graph { return m.pattern }

// Registry returns the equivalence rules the matcher consults.
func (m *Matcher) Registry() *Registry { return m.registry }

// MatchAll returns every match of the pattern in subject, exhaustively. An
// empty result means the pattern does not occur; it is never an error.
func (m *Matcher) MatchAll(subject *graph.Graph) ([]*Match, error) {
	return m.enumerate(subject, -1)
}

// Match returns up to n matches, stopping the search as soon as they are
// found rather than enumerating everything. n <= 0 returns no matches.
func (m *Matcher) Match(subject *graph.Graph, n int) ([]*Match, error) {
	if n <= 0 {
		return nil, nil
	}
	return m.enumerate(subject, n)
}

// enumerate drives the search: one independent run per candidate binding of
// the pattern's output nodes, each binding drawn from the subject's ops of
// the same type (the cartesian product when the pattern has several
// outputs). limit < 0 means exhaustive.
func (m *Matcher) enumerate(subject *graph.Graph, limit int) ([]*Match, error) {
	if subject == nil {
		return nil, errors.Wrap(graph.ErrValidation, "matching requires a subject graph")
	}
	pools := make([][]*graph.Node, len(m.outputs))
	for i, op := range m.outputs {
		pool := subject.OpsByType(op.Type())
		if len(pool) == 0 {
			klog.V(2).Infof("matcher: subject has no %q ops, pattern output %q cannot bind", op.Type(), op.Name())
			return nil, nil
		}
		pools[i] = pool
	}

	var matches []*Match
	indices := make([]int, len(pools))
	for {
		seeds := make([]graph.Op, len(pools))
		for i, idx := range indices {
			seeds[i] = pools[i][idx]
		}
		var done bool
		matches, done = m.search(subject, seeds, matches, limit)
		if done {
			return matches, nil
		}

		// Advance the candidate tuple, last output varying fastest.
		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(pools[pos]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			return matches, nil
		}
	}
}

// branch is one in-flight line of the search: the bindings so far, the
// subject-side queue and the position in the pattern walk. The two queues
// stay aligned because every step expands both at the same input slots.
type branch struct {
	match *Match
	queue []graph.Op
	step  int
}

// search runs all branches of one output-node binding to completion,
// appending completed matches. It reports done when limit is reached, which
// aborts the remaining branches and seeds.
func (m *Matcher) search(subject *graph.Graph, seeds []graph.Op, matches []*Match, limit int) ([]*Match, bool) {
	branches := []*branch{{match: newMatch(m.pattern, subject), queue: seeds}}
	for len(branches) > 0 {
		next := make([]*branch, 0, len(branches))
		for _, b := range branches {
			subjectOp := b.queue[0]
			step := m.walk[b.step]
			equivalent, candidates := m.registry.Query(subjectOp, step.op)
			if !equivalent {
				continue
			}
			klog.V(2).Infof("matcher: step %d: %q ~ %q, %d candidates", b.step, step.op.Name(), subjectOp.Name(), len(candidates))
			for _, candidate := range candidates {
				resolved := candidate
				if n, identity := candidate.(*graph.Node); identity && n == step.op {
					// The registry flags a plain same-type match by handing
					// back the pattern node; the subject op is what gets
					// recorded and expanded.
					resolved = subjectOp
				}
				nb := b.advance(step, resolved)
				if nb == nil {
					continue
				}
				if nb.step == len(m.walk) {
					matches = append(matches, nb.match)
					if limit >= 0 && len(matches) >= limit {
						return matches, true
					}
					continue
				}
				next = append(next, nb)
			}
		}
		branches = next
	}
	return matches, false
}

// advance clones the branch with resolved matched against step's pattern
// node: it records the op and input-tensor correspondences and pushes the
// subject producers at the slots the pattern walk expands. It returns nil
// when a binding conflict, a null subject slot at an expanding position or
// an arity shortfall kills the branch.
func (b *branch) advance(step patternStep, resolved graph.Op) *branch {
	match := b.match.clone()
	if !match.bindOps(step.op, resolved) {
		return nil
	}
	subjectIns := resolved.InputTensors()
	if !match.bindTensors(step.op.InputTensors(), subjectIns) {
		return nil
	}
	queue := xslices.Copy(b.queue[1:])
	for _, slot := range step.expand {
		if slot >= len(subjectIns) {
			return nil
		}
		t := subjectIns[slot]
		if t == nil || t.IsNull() {
			return nil
		}
		producer, err := t.Op()
		if err != nil {
			exceptions.Panicf("matcher: subject graph is inconsistent: %+v", err)
		}
		queue = append(queue, producer)
	}
	return &branch{match: match, queue: queue, step: b.step + 1}
}
