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
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLearn/services/learn/acex"
	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// =============================================================================
// Words and configs
// =============================================================================

func letters(s string) word.Word[string] {
	if s == "" {
		return word.Epsilon[string]()
	}
	return word.Of(strings.Split(s, "")...)
}

func quietConfig(a acex.Analyzer) *Config {
	cfg := DefaultConfig()
	cfg.Analyzer = a
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func dfaCE(s string, out bool) *oracle.DefaultQuery[string, bool] {
	return &oracle.DefaultQuery[string, bool]{Suffix: letters(s), Output: out}
}

// =============================================================================
// Reference targets
// =============================================================================

// evenEven accepts words with an even number of a's and an even number of
// b's. Four states.
func evenEven(t *testing.T) *automaton.CompactDFA[string] {
	t.Helper()
	d := automaton.NewCompactDFA(word.MustAlphabet("a", "b"))
	s := []automaton.StateID{d.AddState(true), d.AddState(false), d.AddState(false), d.AddState(false)}
	edges := [][3]int{{0, 'a', 1}, {0, 'b', 2}, {1, 'a', 0}, {1, 'b', 3}, {2, 'a', 3}, {2, 'b', 0}, {3, 'a', 2}, {3, 'b', 1}}
	for _, e := range edges {
		require.NoError(t, d.SetTransition(s[e[0]], string(rune(e[1])), s[e[2]]))
	}
	return d
}

// thirdFromLast accepts words whose third symbol from the end is "a".
// Eight states: each remembers the last three symbols.
func thirdFromLast(t *testing.T) *automaton.CompactDFA[string] {
	t.Helper()
	d := automaton.NewCompactDFA(word.MustAlphabet("a", "b"))
	for s := 0; s < 8; s++ {
		d.AddState(s&4 != 0)
	}
	for s := 0; s < 8; s++ {
		require.NoError(t, d.SetTransition(automaton.StateID(s), "a", automaton.StateID((s<<1|1)&7)))
		require.NoError(t, d.SetTransition(automaton.StateID(s), "b", automaton.StateID((s<<1)&7)))
	}
	return d
}

// modThreeMealy cycles through three states on "a" and reports its state on
// "b" before resetting.
func modThreeMealy(t *testing.T) *automaton.CompactMealy[string, string] {
	t.Helper()
	m := automaton.NewCompactMealy[string, string](word.MustAlphabet("a", "b"))
	for i := 0; i < 3; i++ {
		m.AddState()
	}
	for i := 0; i < 3; i++ {
		out := "y"
		if i == 2 {
			out = "x"
		}
		s := automaton.StateID(i)
		require.NoError(t, m.SetTransition(s, "a", automaton.StateID((i+1)%3), out))
		require.NoError(t, m.SetTransition(s, "b", 0, string(rune('0'+i))))
	}
	return m
}

// lowHighMoore counts a's modulo four and outputs "low" for 0 and 1, "high"
// for 2 and 3; "b" resets.
func lowHighMoore(t *testing.T) *automaton.CompactMoore[string, string] {
	t.Helper()
	m := automaton.NewCompactMoore[string, string](word.MustAlphabet("a", "b"))
	for i := 0; i < 4; i++ {
		out := "low"
		if i >= 2 {
			out = "high"
		}
		m.AddState(out)
	}
	for i := 0; i < 4; i++ {
		s := automaton.StateID(i)
		require.NoError(t, m.SetTransition(s, "a", automaton.StateID((i+1)%4)))
		require.NoError(t, m.SetTransition(s, "b", 0))
	}
	return m
}

// =============================================================================
// Drivers
// =============================================================================

// learnDFA alternates exact equivalence queries and refinements until no
// counterexample remains, checking invariants after every step. Returns the
// number of counterexamples used.
func learnDFA(t *testing.T, l *DFALearner[string], target automaton.DFA[string]) int {
	t.Helper()
	ctx := context.Background()
	eq := oracle.NewDFASimulatorEQ[string](target)

	for rounds := 0; ; rounds++ {
		require.NoError(t, l.VerifyInvariants(ctx))
		ce, err := eq.FindCounterExample(ctx, l.Model(), l.Alphabet().Symbols())
		require.NoError(t, err)
		if ce == nil {
			return rounds
		}
		refined, err := l.RefineHypothesis(ctx, ce)
		require.NoError(t, err)
		require.True(t, refined, "counterexample %s was not used", ce)
		require.Less(t, rounds, 50, "learning does not converge")
	}
}

func learnMealy(t *testing.T, l *MealyLearner[string, string], target automaton.Mealy[string, string]) int {
	t.Helper()
	ctx := context.Background()
	eq := oracle.NewMealySimulatorEQ[string, string](target)

	for rounds := 0; ; rounds++ {
		require.NoError(t, l.VerifyInvariants(ctx))
		ce, err := eq.FindCounterExample(ctx, l.Model(), l.Alphabet().Symbols())
		require.NoError(t, err)
		if ce == nil {
			return rounds
		}
		refined, err := l.RefineHypothesis(ctx, ce)
		require.NoError(t, err)
		require.True(t, refined)
		require.Less(t, rounds, 50)
	}
}

func learnMoore(t *testing.T, l *MooreLearner[string, string], target automaton.Moore[string, string]) int {
	t.Helper()
	ctx := context.Background()
	eq := oracle.NewMooreSimulatorEQ[string, string](target)

	for rounds := 0; ; rounds++ {
		require.NoError(t, l.VerifyInvariants(ctx))
		ce, err := eq.FindCounterExample(ctx, l.Model(), l.Alphabet().Symbols())
		require.NoError(t, err)
		if ce == nil {
			return rounds
		}
		refined, err := l.RefineHypothesis(ctx, ce)
		require.NoError(t, err)
		require.True(t, refined)
		require.Less(t, rounds, 50)
	}
}
