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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLearn/services/learn/acex"
	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// =============================================================================
// Mealy
// =============================================================================

func TestMealyLearner_LearnsExactly(t *testing.T) {
	for _, a := range acex.Analyzers() {
		t.Run(a.String(), func(t *testing.T) {
			target := modThreeMealy(t)
			mo := oracle.NewMealySimulator[string, string](target)
			l, err := NewMealyLearner[string, string](target.Alphabet(), mo, quietConfig(a))
			require.NoError(t, err)
			require.NoError(t, l.StartLearning(context.Background()))

			learnMealy(t, l, target)

			assert.Equal(t, 3, l.Hypothesis().Size())
			_, differ := automaton.SeparatingWordMealy[string, string](target, l.Model(), []string{"a", "b"})
			assert.False(t, differ)
		})
	}
}

func TestMealyLearner_InitialHypothesisOutputs(t *testing.T) {
	target := modThreeMealy(t)
	l, err := NewMealyLearner[string, string](target.Alphabet(), oracle.NewMealySimulator[string, string](target), quietConfig(acex.LinearFwd))
	require.NoError(t, err)
	require.NoError(t, l.StartLearning(context.Background()))

	m := l.Model()
	require.Equal(t, 1, m.Size())
	assert.Equal(t, "y", m.TransitionOutput(0, "a"))
	assert.Equal(t, "0", m.TransitionOutput(0, "b"))
}

func TestMealyLearner_CounterexampleWithPrefix(t *testing.T) {
	target := modThreeMealy(t)
	l, err := NewMealyLearner[string, string](target.Alphabet(), oracle.NewMealySimulator[string, string](target), quietConfig(acex.BinarySearchLeft))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, l.StartLearning(ctx))

	ce := &oracle.DefaultQuery[string, word.Word[string]]{
		Prefix: letters("aa"),
		Suffix: letters("b"),
		Output: word.Of("2"),
	}
	refined, err := l.RefineHypothesis(ctx, ce)
	require.NoError(t, err)
	require.True(t, refined)

	out, ok := automaton.MealyOutput[string, string](l.Model(), letters("aa"), letters("b"))
	require.True(t, ok)
	assert.Equal(t, word.Of("2"), out)
	require.NoError(t, l.VerifyInvariants(ctx))
}

func TestMealyLearner_RejectsRawEncoding(t *testing.T) {
	cfg := quietConfig(acex.LinearFwd)
	cfg.Encoding = EncodingRaw
	_, err := NewMealyLearner[string, string](word.MustAlphabet("a"), oracle.NewMealySimulator[string, string](modThreeMealy(t)), cfg)
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestMealyLearner_GrowingAlphabet(t *testing.T) {
	target := modThreeMealy(t)
	l, err := NewMealyLearner[string, string](word.MustAlphabet("a"), oracle.NewMealySimulator[string, string](target), quietConfig(acex.PartitionFwd))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, l.StartLearning(ctx))

	learnMealy(t, l, target)
	require.NoError(t, l.AddAlphabetSymbol(ctx, "b"))
	learnMealy(t, l, target)

	assert.Equal(t, 3, l.Hypothesis().Size())
}

// =============================================================================
// Moore
// =============================================================================

func TestMooreLearner_LearnsExactly(t *testing.T) {
	for _, a := range acex.Analyzers() {
		t.Run(a.String(), func(t *testing.T) {
			target := lowHighMoore(t)
			mo := oracle.NewMooreSimulator[string, string](target)
			l, err := NewMooreLearner[string, string](target.Alphabet(), mo, quietConfig(a))
			require.NoError(t, err)
			require.NoError(t, l.StartLearning(context.Background()))

			learnMoore(t, l, target)

			assert.Equal(t, 4, l.Hypothesis().Size())
			_, differ := automaton.SeparatingWordMoore[string, string](target, l.Model(), []string{"a", "b"})
			assert.False(t, differ)
		})
	}
}

func TestMooreLearner_InitialOutput(t *testing.T) {
	target := lowHighMoore(t)
	l, err := NewMooreLearner[string, string](target.Alphabet(), oracle.NewMooreSimulator[string, string](target), nil)
	require.NoError(t, err)
	require.NoError(t, l.StartLearning(context.Background()))

	assert.Equal(t, "low", l.Model().StateOutput(l.Model().InitialState()))
}

func TestMooreLearner_SuspendResume(t *testing.T) {
	target := lowHighMoore(t)
	l, err := NewMooreLearner[string, string](target.Alphabet(), oracle.NewMooreSimulator[string, string](target), quietConfig(acex.LinearBwd))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, l.StartLearning(ctx))

	snap, err := l.Suspend()
	require.NoError(t, err)
	learnMoore(t, l, target)
	stats := l.Stats()

	l.Resume(snap, nil)
	assert.Equal(t, snap.States(), l.Hypothesis().Size())
	assert.Zero(t, l.Stats().Refinements)

	learnMoore(t, l, target)
	assert.Equal(t, stats, l.Stats(), "learning from the same point is deterministic")
}

func TestMooreLearner_OutputLengthChecked(t *testing.T) {
	mo := oracle.Func[string, word.Word[string]](func(context.Context, word.Word[string], word.Word[string]) (word.Word[string], error) {
		return word.Epsilon[string](), nil
	})
	l, err := NewMooreLearner[string, string](word.MustAlphabet("a"), mo, quietConfig(acex.LinearFwd))
	require.NoError(t, err)

	assert.ErrorIs(t, l.StartLearning(context.Background()), ErrOutputLength)
}
