// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hypothesis

import (
	"fmt"

	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/dtree"
)

// Payload is the state of a hypothesis transition: either Open or
// Resolved. The interface is sealed.
type Payload interface {
	sealed()
}

// Open is a transition whose target is still being classified. Node is the
// tree node the next sift starts from.
type Open struct {
	Node dtree.NodeID
}

func (Open) sealed() {}

// String implements fmt.Stringer.
func (o Open) String() string { return fmt.Sprintf("open@%d", o.Node) }

// Resolved is a classified transition.
type Resolved[TP any] struct {
	Target   automaton.StateID
	Property TP
}

func (Resolved[TP]) sealed() {}

// String implements fmt.Stringer.
func (r Resolved[TP]) String() string { return fmt.Sprintf("->%d/%v", r.Target, r.Property) }

// Transition is the read view of one hypothesis transition.
type Transition[TP any] struct {
	Source  automaton.StateID
	Input   int
	Payload Payload
}

// Ref returns the tree-side reference to this transition.
func (t Transition[TP]) Ref() dtree.TransitionRef {
	return dtree.TransitionRef{Source: t.Source, Input: t.Input}
}

// IsOpen reports whether the transition is awaiting classification.
func (t Transition[TP]) IsOpen() bool {
	_, open := t.Payload.(Open)
	return open
}

// Resolved returns the resolved payload. The second result is false for an
// open transition.
func (t Transition[TP]) Resolved() (Resolved[TP], bool) {
	r, ok := t.Payload.(Resolved[TP])
	return r, ok
}

// Target returns the target state. Panics if the transition is open.
func (t Transition[TP]) Target() automaton.StateID {
	return t.mustResolved().Target
}

// Property returns the transition property. Panics if the transition is
// open.
func (t Transition[TP]) Property() TP {
	return t.mustResolved().Property
}

func (t Transition[TP]) mustResolved() Resolved[TP] {
	switch p := t.Payload.(type) {
	case Resolved[TP]:
		return p
	case Open:
		panic(fmt.Sprintf("hypothesis: invariant violated: transition (%d,%d) read while open at node %d", t.Source, t.Input, p.Node))
	default:
		panic(fmt.Sprintf("hypothesis: invariant violated: transition (%d,%d) has payload %T", t.Source, t.Input, p))
	}
}
