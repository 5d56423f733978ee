// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package automaton

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

var (
	// ErrUnknownState indicates a state id outside the automaton.
	ErrUnknownState = errors.New("unknown state")

	// ErrUnknownInput indicates an input symbol outside the alphabet.
	ErrUnknownInput = errors.New("unknown input symbol")

	// ErrNoInitialState indicates an automaton without states.
	ErrNoInitialState = errors.New("automaton has no initial state")
)

// =============================================================================
// Shared table
// =============================================================================

// table is the dense successor table behind every compact automaton.
type table[I comparable] struct {
	alphabet *word.Alphabet[I]
	succ     [][]StateID
	initial  StateID
}

func newTable[I comparable](alphabet *word.Alphabet[I]) table[I] {
	return table[I]{alphabet: alphabet, initial: NoState}
}

func (t *table[I]) addState() StateID {
	row := make([]StateID, t.alphabet.Size())
	for i := range row {
		row[i] = NoState
	}
	t.succ = append(t.succ, row)
	id := StateID(len(t.succ) - 1)
	if t.initial == NoState {
		t.initial = id
	}
	return id
}

func (t *table[I]) validState(s StateID) bool {
	return s >= 0 && int(s) < len(t.succ)
}

func (t *table[I]) setSuccessor(src StateID, sym I, dst StateID) (int, error) {
	if !t.validState(src) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownState, src)
	}
	if !t.validState(dst) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownState, dst)
	}
	idx, ok := t.alphabet.Index(sym)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnknownInput, sym)
	}
	for len(t.succ[src]) <= idx {
		t.succ[src] = append(t.succ[src], NoState)
	}
	t.succ[src][idx] = dst
	return idx, nil
}

func (t *table[I]) setInitial(s StateID) error {
	if !t.validState(s) {
		return fmt.Errorf("%w: %d", ErrUnknownState, s)
	}
	t.initial = s
	return nil
}

// Size returns the number of states.
func (t *table[I]) Size() int { return len(t.succ) }

// InitialState returns the initial state, or NoState for an empty automaton.
func (t *table[I]) InitialState() StateID { return t.initial }

// Alphabet returns the input alphabet.
func (t *table[I]) Alphabet() *word.Alphabet[I] { return t.alphabet }

// Successor returns the successor of s on sym, or NoState.
func (t *table[I]) Successor(s StateID, sym I) StateID {
	if !t.validState(s) {
		return NoState
	}
	idx, ok := t.alphabet.Index(sym)
	if !ok || idx >= len(t.succ[s]) {
		return NoState
	}
	return t.succ[s][idx]
}

// =============================================================================
// CompactDFA
// =============================================================================

// CompactDFA is a table-based DFA. The first added state is initial unless
// SetInitial says otherwise.
type CompactDFA[I comparable] struct {
	table[I]
	accepting []bool
}

// NewCompactDFA creates an empty DFA over alphabet.
func NewCompactDFA[I comparable](alphabet *word.Alphabet[I]) *CompactDFA[I] {
	return &CompactDFA[I]{table: newTable(alphabet)}
}

// AddState adds a state and returns its id.
func (d *CompactDFA[I]) AddState(accepting bool) StateID {
	d.accepting = append(d.accepting, accepting)
	return d.addState()
}

// SetInitial marks s as the initial state.
func (d *CompactDFA[I]) SetInitial(s StateID) error { return d.setInitial(s) }

// SetTransition sets the successor of src on sym.
func (d *CompactDFA[I]) SetTransition(src StateID, sym I, dst StateID) error {
	_, err := d.setSuccessor(src, sym, dst)
	return err
}

// IsAccepting reports whether s is accepting.
func (d *CompactDFA[I]) IsAccepting(s StateID) bool {
	return d.validState(s) && d.accepting[s]
}

// =============================================================================
// CompactMealy
// =============================================================================

// CompactMealy is a table-based Mealy machine.
type CompactMealy[I comparable, O any] struct {
	table[I]
	outputs [][]O
}

// NewCompactMealy creates an empty Mealy machine over alphabet.
func NewCompactMealy[I comparable, O any](alphabet *word.Alphabet[I]) *CompactMealy[I, O] {
	return &CompactMealy[I, O]{table: newTable(alphabet)}
}

// AddState adds a state and returns its id.
func (m *CompactMealy[I, O]) AddState() StateID {
	m.outputs = append(m.outputs, make([]O, m.alphabet.Size()))
	return m.addState()
}

// SetInitial marks s as the initial state.
func (m *CompactMealy[I, O]) SetInitial(s StateID) error { return m.setInitial(s) }

// SetTransition sets the successor and output of src on sym.
func (m *CompactMealy[I, O]) SetTransition(src StateID, sym I, dst StateID, out O) error {
	idx, err := m.setSuccessor(src, sym, dst)
	if err != nil {
		return err
	}
	for len(m.outputs[src]) <= idx {
		var zero O
		m.outputs[src] = append(m.outputs[src], zero)
	}
	m.outputs[src][idx] = out
	return nil
}

// TransitionOutput returns the output of the transition of s on sym.
func (m *CompactMealy[I, O]) TransitionOutput(s StateID, sym I) O {
	var zero O
	if !m.validState(s) {
		return zero
	}
	idx, ok := m.alphabet.Index(sym)
	if !ok || idx >= len(m.outputs[s]) {
		return zero
	}
	return m.outputs[s][idx]
}

// =============================================================================
// CompactMoore
// =============================================================================

// CompactMoore is a table-based Moore machine.
type CompactMoore[I comparable, O any] struct {
	table[I]
	outputs []O
}

// NewCompactMoore creates an empty Moore machine over alphabet.
func NewCompactMoore[I comparable, O any](alphabet *word.Alphabet[I]) *CompactMoore[I, O] {
	return &CompactMoore[I, O]{table: newTable(alphabet)}
}

// AddState adds a state with the given output and returns its id.
func (m *CompactMoore[I, O]) AddState(out O) StateID {
	m.outputs = append(m.outputs, out)
	return m.addState()
}

// SetInitial marks s as the initial state.
func (m *CompactMoore[I, O]) SetInitial(s StateID) error { return m.setInitial(s) }

// SetTransition sets the successor of src on sym.
func (m *CompactMoore[I, O]) SetTransition(src StateID, sym I, dst StateID) error {
	_, err := m.setSuccessor(src, sym, dst)
	return err
}

// StateOutput returns the output of s.
func (m *CompactMoore[I, O]) StateOutput(s StateID) O {
	var zero O
	if !m.validState(s) {
		return zero
	}
	return m.outputs[s]
}
