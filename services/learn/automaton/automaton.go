// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package automaton defines the deterministic automaton read interfaces
// consumed by oracles and produced by learners, together with compact
// table-based reference implementations.
//
// # Output Conventions
//
// The three automaton kinds share one transition structure and differ in
// where outputs live:
//
//   - DFA: a boolean acceptance flag per state.
//   - Mealy: one output symbol per transition.
//   - Moore: one output symbol per state.
//
// Helpers in this package compute outputs the same way membership oracles
// answer queries, so hypotheses and target systems can be compared directly.
package automaton

import (
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// StateID identifies a state within one automaton.
type StateID int

// NoState marks an undefined successor.
const NoState StateID = -1

// Automaton is the transition structure shared by every automaton kind.
type Automaton[I comparable] interface {
	// Size returns the number of states.
	Size() int

	// InitialState returns the initial state.
	InitialState() StateID

	// Successor returns the state reached from s on sym, or NoState.
	Successor(s StateID, sym I) StateID
}

// DFA is a deterministic finite acceptor.
type DFA[I comparable] interface {
	Automaton[I]
	IsAccepting(s StateID) bool
}

// Mealy is a deterministic transducer with outputs on transitions.
type Mealy[I comparable, O any] interface {
	Automaton[I]
	TransitionOutput(s StateID, sym I) O
}

// Moore is a deterministic transducer with outputs on states.
type Moore[I comparable, O any] interface {
	Automaton[I]
	StateOutput(s StateID) O
}

// Reach returns the state reached from start after reading w.
// Returns NoState as soon as a successor is undefined.
func Reach[I comparable](a Automaton[I], start StateID, w word.Word[I]) StateID {
	s := start
	for i := 0; i < w.Len() && s != NoState; i++ {
		s = a.Successor(s, w.At(i))
	}
	return s
}

// Accepts reports whether d accepts w. Undefined runs are rejected.
func Accepts[I comparable](d DFA[I], w word.Word[I]) bool {
	s := Reach[I](d, d.InitialState(), w)
	return s != NoState && d.IsAccepting(s)
}

// MealyOutput returns the outputs produced while reading suffix after
// prefix. The second result is false when a transition is undefined.
func MealyOutput[I comparable, O comparable](m Mealy[I, O], prefix, suffix word.Word[I]) (word.Word[O], bool) {
	s := Reach[I](m, m.InitialState(), prefix)
	if s == NoState {
		return word.Word[O]{}, false
	}
	out := make([]O, 0, suffix.Len())
	for i := 0; i < suffix.Len(); i++ {
		sym := suffix.At(i)
		next := m.Successor(s, sym)
		if next == NoState {
			return word.Word[O]{}, false
		}
		out = append(out, m.TransitionOutput(s, sym))
		s = next
	}
	return word.Of(out...), true
}

// MooreOutput returns the output of the state reached by prefix followed by
// the outputs of every state visited while reading suffix, so the result
// has suffix.Len()+1 symbols.
func MooreOutput[I comparable, O comparable](m Moore[I, O], prefix, suffix word.Word[I]) (word.Word[O], bool) {
	s := Reach[I](m, m.InitialState(), prefix)
	if s == NoState {
		return word.Word[O]{}, false
	}
	out := make([]O, 0, suffix.Len()+1)
	out = append(out, m.StateOutput(s))
	for i := 0; i < suffix.Len(); i++ {
		s = m.Successor(s, suffix.At(i))
		if s == NoState {
			return word.Word[O]{}, false
		}
		out = append(out, m.StateOutput(s))
	}
	return word.Of(out...), true
}
