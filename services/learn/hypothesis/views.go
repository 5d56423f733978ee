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
	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
)

// DFAView exposes a hypothesis with boolean state properties as a DFA.
type DFAView[I comparable, TP any] struct {
	*Hypothesis[I, bool, TP]
}

// IsAccepting implements automaton.DFA.
func (v DFAView[I, TP]) IsAccepting(s automaton.StateID) bool {
	return s != automaton.NoState && v.StateProperty(s)
}

// Compact copies the hypothesis into a CompactDFA with the same state ids.
func (v DFAView[I, TP]) Compact() *automaton.CompactDFA[I] {
	d := automaton.NewCompactDFA(v.Alphabet().Clone())
	for _, s := range v.States() {
		d.AddState(v.IsAccepting(s))
	}
	for _, s := range v.States() {
		for i := 0; i < v.Alphabet().Size(); i++ {
			sym := v.Alphabet().Symbol(i)
			_ = d.SetTransition(s, sym, v.Successor(s, sym))
		}
	}
	return d
}

// MealyView exposes a hypothesis with transition outputs as a Mealy machine.
type MealyView[I comparable, SP any, O any] struct {
	*Hypothesis[I, SP, O]
}

// TransitionOutput implements automaton.Mealy.
func (v MealyView[I, SP, O]) TransitionOutput(s automaton.StateID, sym I) O {
	return v.TransitionProperty(s, sym)
}

// Compact copies the hypothesis into a CompactMealy with the same state ids.
func (v MealyView[I, SP, O]) Compact() *automaton.CompactMealy[I, O] {
	m := automaton.NewCompactMealy[I, O](v.Alphabet().Clone())
	for range v.States() {
		m.AddState()
	}
	for _, s := range v.States() {
		for i := 0; i < v.Alphabet().Size(); i++ {
			sym := v.Alphabet().Symbol(i)
			_ = m.SetTransition(s, sym, v.Successor(s, sym), v.TransitionOutput(s, sym))
		}
	}
	return m
}

// MooreView exposes a hypothesis with state outputs as a Moore machine.
type MooreView[I comparable, O any, TP any] struct {
	*Hypothesis[I, O, TP]
}

// StateOutput implements automaton.Moore.
func (v MooreView[I, O, TP]) StateOutput(s automaton.StateID) O {
	return v.StateProperty(s)
}

// Compact copies the hypothesis into a CompactMoore with the same state ids.
func (v MooreView[I, O, TP]) Compact() *automaton.CompactMoore[I, O] {
	m := automaton.NewCompactMoore[I, O](v.Alphabet().Clone())
	for _, s := range v.States() {
		m.AddState(v.StateOutput(s))
	}
	for _, s := range v.States() {
		for i := 0; i < v.Alphabet().Size(); i++ {
			sym := v.Alphabet().Symbol(i)
			_ = m.SetTransition(s, sym, v.Successor(s, sym))
		}
	}
	return m
}

var (
	_ automaton.DFA[string]          = DFAView[string, struct{}]{}
	_ automaton.Mealy[string, int]   = MealyView[string, struct{}, int]{}
	_ automaton.Moore[string, string] = MooreView[string, string, struct{}]{}
)
