// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"strings"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/types/xslices"
)

// Match records one correspondence between the nodes and tensors of a
// pattern graph and a subgraph of the subject graph.
//
// The four maps form a bijection: every matched pattern op maps to the
// subject op it matched and back, and the input tensors of each matched op
// pair map to each other slot by slot. A Match is grown append-only while
// the search runs (the Matcher clones it at every branch point) and is
// complete (every pattern op matched) by the time callers see it.
type Match struct {
	// Pattern and Subject are the graphs the match relates.
	Pattern *graph.Graph
	Subject *graph.Graph

	// PatternToSubjectOps maps pattern op name to the matched subject op: a
	// *graph.Node for plain same-type matches, a *PermutedNode or *MetaNode
	// when the subject matched under a permutation or a morphism.
	PatternToSubjectOps map[string]graph.Op

	// SubjectToPatternOps maps subject op name back to the pattern node.
	SubjectToPatternOps map[string]*graph.Node

	// PatternToSubjectTensors and SubjectToPatternTensors relate the input
	// tensors of matched op pairs by name, pairing slots in matched order. A
	// pattern's null input tensors map to whatever the subject feeds the
	// corresponding slot, which is how a rewrite finds the values crossing
	// the matched region's boundary.
	PatternToSubjectTensors map[string]*graph.Tensor
	SubjectToPatternTensors map[string]*graph.Tensor
}

func newMatch(pattern, subject *graph.Graph) *Match {
	return &Match{
		Pattern:                 pattern,
		Subject:                 subject,
		PatternToSubjectOps:     make(map[string]graph.Op),
		SubjectToPatternOps:     make(map[string]*graph.Node),
		PatternToSubjectTensors: make(map[string]*graph.Tensor),
		SubjectToPatternTensors: make(map[string]*graph.Tensor),
	}
}

// clone returns an independent copy that one search branch can extend
// without affecting its siblings.
func (m *Match) clone() *Match {
	c := &Match{
		Pattern:                 m.Pattern,
		Subject:                 m.Subject,
		PatternToSubjectOps:     make(map[string]graph.Op, len(m.PatternToSubjectOps)),
		SubjectToPatternOps:     make(map[string]*graph.Node, len(m.SubjectToPatternOps)),
		PatternToSubjectTensors: make(map[string]*graph.Tensor, len(m.PatternToSubjectTensors)),
		SubjectToPatternTensors: make(map[string]*graph.Tensor, len(m.SubjectToPatternTensors)),
	}
	for k, v := range m.PatternToSubjectOps {
		c.PatternToSubjectOps[k] = v
	}
	for k, v := range m.SubjectToPatternOps {
		c.SubjectToPatternOps[k] = v
	}
	for k, v := range m.PatternToSubjectTensors {
		c.PatternToSubjectTensors[k] = v
	}
	for k, v := range m.SubjectToPatternTensors {
		c.SubjectToPatternTensors[k] = v
	}
	return c
}

// bindOps records that patternOp matched subjectOp. It reports false when
// the pair would break the bijection, that is, when either op already
// matched a different counterpart; the caller kills the branch.
func (m *Match) bindOps(patternOp *graph.Node, subjectOp graph.Op) bool {
	if existing, found := m.SubjectToPatternOps[subjectOp.Name()]; found && existing != patternOp {
		return false
	}
	if existing, found := m.PatternToSubjectOps[patternOp.Name()]; found && existing.Name() != subjectOp.Name() {
		return false
	}
	m.PatternToSubjectOps[patternOp.Name()] = subjectOp
	m.SubjectToPatternOps[subjectOp.Name()] = patternOp
	return true
}

// bindTensors records the slot-by-slot correspondence of the input tensors
// of a matched op pair, with the same bijection check as bindOps. Pairs
// beyond the shorter list and unset slots are skipped.
func (m *Match) bindTensors(patternIns, subjectIns []*graph.Tensor) bool {
	n := min(len(patternIns), len(subjectIns))
	for i := 0; i < n; i++ {
		pt, st := patternIns[i], subjectIns[i]
		if pt == nil || st == nil {
			continue
		}
		if existing, found := m.PatternToSubjectTensors[pt.Name()]; found && existing.Name() != st.Name() {
			return false
		}
		if existing, found := m.SubjectToPatternTensors[st.Name()]; found && existing.Name() != pt.Name() {
			return false
		}
		m.PatternToSubjectTensors[pt.Name()] = st
		m.SubjectToPatternTensors[st.Name()] = pt
	}
	return true
}

// NumMatchedOps returns the number of pattern ops matched.
func (m *Match) NumMatchedOps() int { return len(m.PatternToSubjectOps) }

// SubjectOpNames returns the names of the matched subject ops, sorted.
func (m *Match) SubjectOpNames() []string {
	return xslices.SortedKeys(m.SubjectToPatternOps)
}

// String implements fmt.Stringer: the op bijection as "pattern->subject"
// pairs, sorted by pattern op name.
func (m *Match) String() string {
	names := xslices.SortedKeys(m.PatternToSubjectOps)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "->" + m.PatternToSubjectOps[name].Name()
	}
	return "Match{" + strings.Join(parts, ", ") + "}"
}
