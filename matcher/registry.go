// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"github.com/gomlx/graphir/graph"
	"github.com/pkg/errors"
)

// Registry holds the operator equivalence rules the Matcher consults beyond
// exact op-type equality: which op types accept reordered inputs
// (commutative and associative operators) and which op types can stand in
// for another through a Morphism.
//
// A Registry is populated during setup and read-only while matching; it is
// not safe for concurrent registration. Every rule set is explicit, there is
// no process-wide registry, so different matchers can run with different
// equivalence relations.
type Registry struct {
	associations map[string][][]int
	morphisms    map[string]map[string]Morphism
}

// NewRegistry returns an empty Registry: only exact-type and placeholder
// matches until rules are registered.
func NewRegistry() *Registry {
	return &Registry{
		associations: make(map[string][][]int),
		morphisms:    make(map[string]map[string]Morphism),
	}
}

// RegisterAssociative declares the legal input reorderings of opType, each a
// full permutation of the input-slot indices 0..len(perm)-1. During matching
// every registered permutation of the subject's arity becomes one candidate
// binding, so ((0,1), (1,0)) makes a two-input op commutative.
//
// Registering the same op type twice fails with graph.ErrPrecondition;
// malformed permutations fail with graph.ErrValidation.
func (r *Registry) RegisterAssociative(opType string, perms ...[]int) error {
	if opType == "" {
		return errors.Wrap(graph.ErrValidation, "RegisterAssociative requires an op type")
	}
	if len(perms) == 0 {
		return errors.Wrapf(graph.ErrValidation, "RegisterAssociative(%q) requires at least one permutation", opType)
	}
	if _, found := r.associations[opType]; found {
		return errors.Wrapf(graph.ErrPrecondition, "op type %q already has registered permutations", opType)
	}
	registered := make([][]int, len(perms))
	for i, perm := range perms {
		if err := checkPermutation(perm); err != nil {
			return errors.WithMessagef(err, "RegisterAssociative(%q), permutation #%d", opType, i)
		}
		registered[i] = append([]int(nil), perm...)
	}
	r.associations[opType] = registered
	return nil
}

func checkPermutation(perm []int) error {
	if len(perm) == 0 {
		return errors.Wrap(graph.ErrValidation, "empty permutation")
	}
	seen := make([]bool, len(perm))
	for _, idx := range perm {
		if idx < 0 || idx >= len(perm) || seen[idx] {
			return errors.Wrapf(graph.ErrValidation, "%v is not a permutation of the slots 0..%d", perm, len(perm)-1)
		}
		seen[idx] = true
	}
	return nil
}

// RegisterCompatible declares that a subject node of type subjectType can
// stand in for a pattern node of type patternType, read through the morphism
// m. The relation is one-directional.
//
// A nil morphism or a second registration for the same (subjectType,
// patternType) pair fails with graph.ErrPrecondition.
func (r *Registry) RegisterCompatible(subjectType, patternType string, m Morphism) error {
	if subjectType == "" || patternType == "" {
		return errors.Wrap(graph.ErrValidation, "RegisterCompatible requires both op types")
	}
	if m == nil {
		return errors.Wrapf(graph.ErrPrecondition, "RegisterCompatible(%q, %q) requires a morphism", subjectType, patternType)
	}
	table := r.morphisms[subjectType]
	if table == nil {
		table = make(map[string]Morphism)
		r.morphisms[subjectType] = table
	}
	if _, found := table[patternType]; found {
		return errors.Wrapf(graph.ErrPrecondition, "multiple morphisms from %q to %q", subjectType, patternType)
	}
	table[patternType] = m
	return nil
}

// Query decides whether subjectOp can be matched with patternOp and, if so,
// returns the candidate views of the subject to continue the walk with:
//
//  1. Same op type, no permutations registered: a single candidate, the
//     pattern node itself (the identity marker, which the Matcher resolves
//     back to the subject op for its bookkeeping).
//  2. Same op type with registered permutations: one PermutedNode per
//     registered permutation of the subject's arity. Permutations of other
//     arities are skipped, so the candidate list can be empty.
//  3. A morphism registered for (subject type, pattern type): a single
//     MetaNode wrapping the subject with that morphism.
//  4. patternOp is a Placeholder with no input tensors: a free pattern input
//     matches any subject op, returned unchanged.
//
// Otherwise the ops are not equivalent: (false, nil). Query never mutates
// either graph; candidates are pure views.
func (r *Registry) Query(subjectOp graph.Op, patternOp *graph.Node) (bool, []graph.Op) {
	subjectType := subjectOp.Type()
	if subjectType == patternOp.Type() {
		perms, associative := r.associations[subjectType]
		if !associative {
			return true, []graph.Op{patternOp}
		}
		arity := len(subjectOp.InputTensors())
		candidates := make([]graph.Op, 0, len(perms))
		for _, perm := range perms {
			if len(perm) != arity {
				continue
			}
			candidates = append(candidates, NewPermutedNode(subjectOp, perm))
		}
		return true, candidates
	}
	if m, found := r.morphisms[subjectType][patternOp.Type()]; found {
		return true, []graph.Op{NewMetaNode(subjectOp, m)}
	}
	if patternOp.Type() == graph.PlaceholderOp && len(patternOp.InputTensors()) == 0 {
		return true, []graph.Op{subjectOp}
	}
	return false, nil
}
