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

// DFASimulator answers queries by running a known DFA. Undefined runs are
// rejected.
type DFASimulator[I comparable] struct {
	target automaton.DFA[I]
}

// NewDFASimulator creates a simulator oracle for target.
func NewDFASimulator[I comparable](target automaton.DFA[I]) *DFASimulator[I] {
	return &DFASimulator[I]{target: target}
}

// ProcessQueries implements MembershipOracle.
func (o *DFASimulator[I]) ProcessQueries(ctx context.Context, queries []*Query[I, bool]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, q := range queries {
		q.Answer(automaton.Accepts(o.target, q.Input()))
	}
	return nil
}

// MealySimulator answers queries by running a known Mealy machine.
type MealySimulator[I comparable, O comparable] struct {
	target automaton.Mealy[I, O]
}

// NewMealySimulator creates a simulator oracle for target.
func NewMealySimulator[I comparable, O comparable](target automaton.Mealy[I, O]) *MealySimulator[I, O] {
	return &MealySimulator[I, O]{target: target}
}

// ProcessQueries implements MembershipOracle.
func (o *MealySimulator[I, O]) ProcessQueries(ctx context.Context, queries []*Query[I, word.Word[O]]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, q := range queries {
		out, ok := automaton.MealyOutput(o.target, q.Prefix, q.Suffix)
		if !ok {
			return &QueryError{Prefix: q.Prefix.String(), Suffix: q.Suffix.String(), Err: ErrUndefinedRun}
		}
		q.Answer(out)
	}
	return nil
}

// MooreSimulator answers queries by running a known Moore machine.
type MooreSimulator[I comparable, O comparable] struct {
	target automaton.Moore[I, O]
}

// NewMooreSimulator creates a simulator oracle for target.
func NewMooreSimulator[I comparable, O comparable](target automaton.Moore[I, O]) *MooreSimulator[I, O] {
	return &MooreSimulator[I, O]{target: target}
}

// ProcessQueries implements MembershipOracle.
func (o *MooreSimulator[I, O]) ProcessQueries(ctx context.Context, queries []*Query[I, word.Word[O]]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, q := range queries {
		out, ok := automaton.MooreOutput(o.target, q.Prefix, q.Suffix)
		if !ok {
			return &QueryError{Prefix: q.Prefix.String(), Suffix: q.Suffix.String(), Err: ErrUndefinedRun}
		}
		q.Answer(out)
	}
	return nil
}
