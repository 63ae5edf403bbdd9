// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import "github.com/pkg/errors"

// Sentinel errors returned (wrapped) by the graph IR. Check with errors.Is.
//
// Programming errors that indicate a corrupted IR (as opposed to bad inputs)
// panic instead, following the pattern of github.com/gomlx/exceptions.
var (
	// ErrValidation indicates malformed input to a constructor: empty names,
	// invalid dtypes, arity mismatches and the like.
	ErrValidation = errors.New("validation error")

	// ErrPrecondition indicates an operation invoked in a state that violates
	// its documented precondition: duplicate node names, wrong backend for an
	// export, out-of-bounds input slots.
	ErrPrecondition = errors.New("precondition violated")

	// ErrLookup indicates a name that should resolve in a graph's node map but
	// does not.
	ErrLookup = errors.New("lookup failed")

	// ErrCycle indicates the graph is not a DAG and cannot be ordered.
	ErrCycle = errors.New("graph has a cycle")
)

func errValidationf(format string, args ...any) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

func errPreconditionf(format string, args ...any) error {
	return errors.Wrapf(ErrPrecondition, format, args...)
}

func errLookupf(format string, args ...any) error {
	return errors.Wrapf(ErrLookup, format, args...)
}
