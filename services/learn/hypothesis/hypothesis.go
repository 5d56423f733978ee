// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hypothesis holds the hypothesis automaton built by
// discrimination-tree learners.
//
// States are only ever added. Each state records the access sequence that
// reaches it, the tree leaf it is bound to, and the transition whose
// classification created it. Transitions are Open while their target is
// being sifted and Resolved afterwards; a split may reopen a transition whose
// classification moved, and the learner resolves it again before returning.
//
// The automaton read interface (Successor, transition and state properties)
// panics on Open transitions: a learner hands out a hypothesis only when no
// transition is open.
package hypothesis

import (
	"fmt"
	"slices"

	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/dtree"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// State is one hypothesis state.
type State[I comparable, SP any] struct {
	ID             automaton.StateID
	AccessSequence word.Word[I]
	Property       SP
	Leaf           dtree.NodeID

	// TreeIncoming is the transition whose classification created the state,
	// nil for the initial state.
	TreeIncoming *dtree.TransitionRef
}

// Hypothesis is a deterministic automaton under construction.
//
// SP is the state property (acceptance for DFAs, output for Moore
// machines); TP is the transition property (output for Mealy machines).
type Hypothesis[I comparable, SP any, TP any] struct {
	alphabet *word.Alphabet[I]
	states   []*State[I, SP]
	trans    [][]Payload
}

// New creates an empty hypothesis over a copy of alphabet.
func New[I comparable, SP any, TP any](alphabet *word.Alphabet[I]) *Hypothesis[I, SP, TP] {
	return &Hypothesis[I, SP, TP]{alphabet: alphabet.Clone()}
}

// Alphabet returns the input alphabet.
func (h *Hypothesis[I, SP, TP]) Alphabet() *word.Alphabet[I] { return h.alphabet }

// Size returns the number of states.
func (h *Hypothesis[I, SP, TP]) Size() int { return len(h.states) }

// InitialState returns the first created state, or NoState when empty.
func (h *Hypothesis[I, SP, TP]) InitialState() automaton.StateID {
	if len(h.states) == 0 {
		return automaton.NoState
	}
	return 0
}

// States returns all state ids in creation order.
func (h *Hypothesis[I, SP, TP]) States() []automaton.StateID {
	out := make([]automaton.StateID, len(h.states))
	for i := range out {
		out[i] = automaton.StateID(i)
	}
	return out
}

// State returns the state with id s.
func (h *Hypothesis[I, SP, TP]) State(s automaton.StateID) *State[I, SP] {
	return h.states[s]
}

// CreateState adds a state whose transitions are all Open at openAt.
//
// Inputs:
//
//	as - Access sequence of the new state.
//	leaf - Tree leaf the state is bound to.
//	treeIncoming - Transition that led to the state, nil for the initial state.
//	prop - State property.
//	openAt - Node from which the new transitions will be sifted.
//
// Outputs:
//
//	automaton.StateID - The id of the new state.
func (h *Hypothesis[I, SP, TP]) CreateState(
	as word.Word[I],
	leaf dtree.NodeID,
	treeIncoming *dtree.TransitionRef,
	prop SP,
	openAt dtree.NodeID,
) automaton.StateID {
	id := automaton.StateID(len(h.states))
	h.states = append(h.states, &State[I, SP]{
		ID:             id,
		AccessSequence: as,
		Property:       prop,
		Leaf:           leaf,
		TreeIncoming:   treeIncoming,
	})
	row := make([]Payload, h.alphabet.Size())
	for i := range row {
		row[i] = Open{Node: openAt}
	}
	h.trans = append(h.trans, row)
	return id
}

// SetLeaf rebinds state s to leaf. Used after the state's leaf is split.
func (h *Hypothesis[I, SP, TP]) SetLeaf(s automaton.StateID, leaf dtree.NodeID) {
	h.states[s].Leaf = leaf
}

// Transition returns the transition of s on input index i.
func (h *Hypothesis[I, SP, TP]) Transition(s automaton.StateID, i int) Transition[TP] {
	return Transition[TP]{Source: s, Input: i, Payload: h.trans[s][i]}
}

// SetOpen marks ref as awaiting classification starting at node.
func (h *Hypothesis[I, SP, TP]) SetOpen(ref dtree.TransitionRef, node dtree.NodeID) {
	h.trans[ref.Source][ref.Input] = Open{Node: node}
}

// SetResolved resolves ref to target with property prop.
func (h *Hypothesis[I, SP, TP]) SetResolved(ref dtree.TransitionRef, target automaton.StateID, prop TP) {
	if int(target) >= len(h.states) || target < 0 {
		panic(fmt.Sprintf("hypothesis: invariant violated: resolving (%d,%d) to unknown state %d", ref.Source, ref.Input, target))
	}
	h.trans[ref.Source][ref.Input] = Resolved[TP]{Target: target, Property: prop}
}

// OpenTransitions returns every open transition, ordered by source and input.
func (h *Hypothesis[I, SP, TP]) OpenTransitions() []dtree.TransitionRef {
	var out []dtree.TransitionRef
	for s, row := range h.trans {
		for i, p := range row {
			if _, open := p.(Open); open {
				out = append(out, dtree.TransitionRef{Source: automaton.StateID(s), Input: i})
			}
		}
	}
	return out
}

// IsStable reports whether no transition is open.
func (h *Hypothesis[I, SP, TP]) IsStable() bool {
	for _, row := range h.trans {
		for _, p := range row {
			if _, open := p.(Open); open {
				return false
			}
		}
	}
	return true
}

// AddAlphabetSymbol extends the alphabet and opens one transition per state
// at openAt. Returns the new input index and the opened transitions.
func (h *Hypothesis[I, SP, TP]) AddAlphabetSymbol(sym I, openAt dtree.NodeID) (int, []dtree.TransitionRef, error) {
	idx, err := h.alphabet.Add(sym)
	if err != nil {
		return 0, nil, err
	}
	refs := make([]dtree.TransitionRef, len(h.states))
	for s := range h.trans {
		h.trans[s] = append(h.trans[s], Open{Node: openAt})
		refs[s] = dtree.TransitionRef{Source: automaton.StateID(s), Input: idx}
	}
	return idx, refs, nil
}

// -----------------------------------------------------------------------------
// Automaton read interface
// -----------------------------------------------------------------------------

// Successor implements automaton.Automaton. Panics on an open transition.
func (h *Hypothesis[I, SP, TP]) Successor(s automaton.StateID, sym I) automaton.StateID {
	if s == automaton.NoState {
		return automaton.NoState
	}
	idx, ok := h.alphabet.Index(sym)
	if !ok {
		return automaton.NoState
	}
	return h.Transition(s, idx).Target()
}

// StateProperty returns the property of s.
func (h *Hypothesis[I, SP, TP]) StateProperty(s automaton.StateID) SP {
	return h.states[s].Property
}

// TransitionProperty returns the property of the transition of s on sym.
// Panics on an open transition.
func (h *Hypothesis[I, SP, TP]) TransitionProperty(s automaton.StateID, sym I) TP {
	idx, ok := h.alphabet.Index(sym)
	if !ok {
		panic(fmt.Sprintf("hypothesis: invariant violated: symbol %v not in alphabet", sym))
	}
	return h.Transition(s, idx).Property()
}

// Reach returns the state reached from the initial state by w.
func (h *Hypothesis[I, SP, TP]) Reach(w word.Word[I]) automaton.StateID {
	return automaton.Reach[I](h, h.InitialState(), w)
}

// TransformAccessSequence returns the access sequence of the state reached
// by w.
func (h *Hypothesis[I, SP, TP]) TransformAccessSequence(w word.Word[I]) word.Word[I] {
	return h.states[h.Reach(w)].AccessSequence
}

// IsAccessSequence reports whether w is the access sequence of the state it
// reaches, that is, whether every step of w follows the transition that
// created its target.
func (h *Hypothesis[I, SP, TP]) IsAccessSequence(w word.Word[I]) bool {
	cur := h.InitialState()
	for i := 0; i < w.Len(); i++ {
		idx, ok := h.alphabet.Index(w.At(i))
		if !ok {
			return false
		}
		next := h.Transition(cur, idx).Target()
		ti := h.states[next].TreeIncoming
		if ti == nil || ti.Source != cur || ti.Input != idx {
			return false
		}
		cur = next
	}
	return true
}

// Clone returns a deep copy.
func (h *Hypothesis[I, SP, TP]) Clone() *Hypothesis[I, SP, TP] {
	c := &Hypothesis[I, SP, TP]{
		alphabet: h.alphabet.Clone(),
		states:   make([]*State[I, SP], len(h.states)),
		trans:    make([][]Payload, len(h.trans)),
	}
	for i, s := range h.states {
		cp := *s
		if s.TreeIncoming != nil {
			ti := *s.TreeIncoming
			cp.TreeIncoming = &ti
		}
		c.states[i] = &cp
	}
	for i, row := range h.trans {
		c.trans[i] = slices.Clone(row)
	}
	return c
}

// AccessSequenceTransformer maps words to the canonical access sequence of
// the state they reach.
type AccessSequenceTransformer[I comparable] interface {
	TransformAccessSequence(w word.Word[I]) word.Word[I]
	IsAccessSequence(w word.Word[I]) bool
}

var _ AccessSequenceTransformer[string] = (*Hypothesis[string, bool, struct{}])(nil)
