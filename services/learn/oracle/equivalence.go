// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"context"

	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// DFASimulatorEQ is an exact equivalence oracle for a known target DFA.
// It returns a shortest separating word.
type DFASimulatorEQ[I comparable] struct {
	target automaton.DFA[I]
}

// NewDFASimulatorEQ creates an equivalence oracle for target.
func NewDFASimulatorEQ[I comparable](target automaton.DFA[I]) *DFASimulatorEQ[I] {
	return &DFASimulatorEQ[I]{target: target}
}

// FindCounterExample implements EquivalenceOracle.
func (o *DFASimulatorEQ[I]) FindCounterExample(ctx context.Context, hyp automaton.DFA[I], inputs []I) (*DefaultQuery[I, bool], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, found := automaton.SeparatingWordDFA(o.target, hyp, inputs)
	if !found {
		return nil, nil
	}
	return &DefaultQuery[I, bool]{Suffix: w, Output: automaton.Accepts(o.target, w)}, nil
}

// MealySimulatorEQ is an exact equivalence oracle for a known Mealy target.
type MealySimulatorEQ[I comparable, O comparable] struct {
	target automaton.Mealy[I, O]
}

// NewMealySimulatorEQ creates an equivalence oracle for target.
func NewMealySimulatorEQ[I comparable, O comparable](target automaton.Mealy[I, O]) *MealySimulatorEQ[I, O] {
	return &MealySimulatorEQ[I, O]{target: target}
}

// FindCounterExample implements EquivalenceOracle.
func (o *MealySimulatorEQ[I, O]) FindCounterExample(ctx context.Context, hyp automaton.Mealy[I, O], inputs []I) (*DefaultQuery[I, word.Word[O]], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, found := automaton.SeparatingWordMealy(o.target, hyp, inputs)
	if !found {
		return nil, nil
	}
	out, ok := automaton.MealyOutput(o.target, word.Epsilon[I](), w)
	if !ok {
		return nil, &QueryError{Suffix: w.String(), Err: ErrUndefinedRun}
	}
	return &DefaultQuery[I, word.Word[O]]{Suffix: w, Output: out}, nil
}

// MooreSimulatorEQ is an exact equivalence oracle for a known Moore target.
type MooreSimulatorEQ[I comparable, O comparable] struct {
	target automaton.Moore[I, O]
}

// NewMooreSimulatorEQ creates an equivalence oracle for target.
func NewMooreSimulatorEQ[I comparable, O comparable](target automaton.Moore[I, O]) *MooreSimulatorEQ[I, O] {
	return &MooreSimulatorEQ[I, O]{target: target}
}

// FindCounterExample implements EquivalenceOracle.
func (o *MooreSimulatorEQ[I, O]) FindCounterExample(ctx context.Context, hyp automaton.Moore[I, O], inputs []I) (*DefaultQuery[I, word.Word[O]], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, found := automaton.SeparatingWordMoore(o.target, hyp, inputs)
	if !found {
		return nil, nil
	}
	out, ok := automaton.MooreOutput(o.target, word.Epsilon[I](), w)
	if !ok {
		return nil, &QueryError{Suffix: w.String(), Err: ErrUndefinedRun}
	}
	return &DefaultQuery[I, word.Word[O]]{Suffix: w, Output: out}, nil
}
