// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package learner

import (
	"context"
	"fmt"

	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
)

// VerifyInvariants re-checks the tree/hypothesis correspondence by sifting.
//
// Description:
//
//	Checks, in order: the tree's structural invariants; that no transition
//	is open; that bound leaves and hypothesis states are in bijection; that
//	every access sequence sifts back to its own state; and that every
//	transition word sifts to the transition's target.
//
//	Costs one sift per state and per transition. Meant for tests and the
//	CLI's --verify flag.
//
// Outputs:
//
//	error - Wraps ErrInvariant (or ErrNotQuiescent) describing the first
//	        violation, or an oracle error.
func (e *Engine[I, D, SP, TP]) VerifyInvariants(ctx context.Context) error {
	if err := e.tree.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	if !e.hyp.IsStable() {
		return ErrNotQuiescent
	}
	if got, want := e.tree.BoundLeaves(), e.hyp.Size(); got != want {
		return fmt.Errorf("%w: %d bound leaves for %d states", ErrInvariant, got, want)
	}

	ctx = oracle.WithPurpose(ctx, oracle.PurposeSift)
	for _, s := range e.hyp.States() {
		st := e.hyp.State(s)
		if bound, ok := e.tree.State(st.Leaf); !ok || bound != s {
			return fmt.Errorf("%w: state %d not bound to its leaf %d", ErrInvariant, s, st.Leaf)
		}
		leaf, err := e.tree.Sift(ctx, e.tree.Root(), st.AccessSequence)
		if err != nil {
			return err
		}
		if leaf != st.Leaf {
			return fmt.Errorf("%w: access sequence %s of state %d sifts to leaf %d, not %d",
				ErrInvariant, st.AccessSequence, s, leaf, st.Leaf)
		}
	}

	for _, s := range e.hyp.States() {
		for _, ref := range e.transitionsOf(s) {
			target := e.hyp.Transition(ref.Source, ref.Input).Target()
			leaf, err := e.tree.Sift(ctx, e.tree.Root(), e.contextOf(ref))
			if err != nil {
				return err
			}
			if got, ok := e.tree.State(leaf); !ok || got != target {
				return fmt.Errorf("%w: transition %s resolves to %d but sifts to leaf %d",
					ErrInvariant, e.contextOf(ref), target, leaf)
			}
		}
	}
	return nil
}
