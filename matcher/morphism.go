// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"fmt"

	"github.com/gomlx/graphir/types/attrval"
)

// Morphism describes how a node of one op type stands in for a node of
// another op type: the transform a rewrite must apply to read the subject
// node under the pattern's type. The matcher only carries it along in the
// MetaNode of a match; interpreting it is up to the rewriting caller.
//
// Register morphisms with Registry.RegisterCompatible.
type Morphism interface {
	fmt.Stringer

	// AdjustAttrs returns the node attributes as they read after the
	// transform. Implementations must not mutate attrs.
	AdjustAttrs(attrs map[string]attrval.Value) map[string]attrval.Value
}

// AttrOverlay is a basic Morphism: it drops and overrides a fixed set of
// attributes and leaves the rest alone. The zero value is the identity
// transform.
type AttrOverlay struct {
	// Name of the transform, for logs and debugging.
	Name string

	// Set entries are added to (or replace) the node's attributes.
	Set map[string]attrval.Value

	// Drop lists attribute keys removed from the node's attributes. Drops
	// are applied before Set.
	Drop []string
}

var _ Morphism = (*AttrOverlay)(nil)

// String implements fmt.Stringer.
func (o *AttrOverlay) String() string {
	if o.Name == "" {
		return "attr-overlay"
	}
	return o.Name
}

// AdjustAttrs implements Morphism.
func (o *AttrOverlay) AdjustAttrs(attrs map[string]attrval.Value) map[string]attrval.Value {
	adjusted := make(map[string]attrval.Value, len(attrs)+len(o.Set))
	for key, value := range attrs {
		adjusted[key] = value
	}
	for _, key := range o.Drop {
		delete(adjusted, key)
	}
	for key, value := range o.Set {
		adjusted[key] = value
	}
	return adjusted
}
