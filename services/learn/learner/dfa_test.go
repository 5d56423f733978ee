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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLearn/services/learn/acex"
	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

func newDFALearner(t *testing.T, target *automaton.CompactDFA[string], cfg *Config) (*DFALearner[string], *oracle.CountingOracle[string, bool]) {
	t.Helper()
	mo := oracle.NewCountingOracle[string, bool](t.Name(), oracle.NewDFASimulator[string](target))
	l, err := NewDFALearner(target.Alphabet(), mo, cfg)
	require.NoError(t, err)
	return l, mo
}

// =============================================================================
// Even a's, even b's
// =============================================================================

func TestDFALearner_StartWithoutEpsilonRoot(t *testing.T) {
	cfg := quietConfig(acex.LinearFwd)
	cfg.EpsilonRoot = false
	l, _ := newDFALearner(t, evenEven(t), cfg)

	require.NoError(t, l.StartLearning(context.Background()))

	h := l.Model()
	assert.Equal(t, 1, h.Size())
	assert.True(t, h.IsAccepting(h.InitialState()))
	assert.Equal(t, h.InitialState(), h.Successor(h.InitialState(), "a"))
	assert.Equal(t, h.InitialState(), h.Successor(h.InitialState(), "b"))
	require.NoError(t, l.VerifyInvariants(context.Background()))
}

func TestDFALearner_NonCounterexampleIsRejected(t *testing.T) {
	cfg := quietConfig(acex.LinearFwd)
	cfg.EpsilonRoot = false
	l, mo := newDFALearner(t, evenEven(t), cfg)
	ctx := context.Background()
	require.NoError(t, l.StartLearning(ctx))

	before := mo.QueryCount()
	treeSize := l.Tree().Size()

	// The one-state hypothesis accepts everything and "aa" is accepted.
	refined, err := l.RefineHypothesis(ctx, dfaCE("aa", true))
	require.NoError(t, err)
	assert.False(t, refined)
	assert.Equal(t, 1, l.Hypothesis().Size())
	assert.Equal(t, treeSize, l.Tree().Size())
	assert.Equal(t, before, mo.QueryCount(), "rejection must not query")
	assert.Equal(t, Stats{Rejected: 1}, l.Stats())
}

func TestDFALearner_CounterexampleCausesOneSplit(t *testing.T) {
	cfg := quietConfig(acex.LinearFwd)
	cfg.EpsilonRoot = false
	l, _ := newDFALearner(t, evenEven(t), cfg)
	ctx := context.Background()
	require.NoError(t, l.StartLearning(ctx))

	refined, err := l.RefineHypothesis(ctx, dfaCE("a", false))
	require.NoError(t, err)
	require.True(t, refined)

	assert.Equal(t, 1, l.Stats().Splits)
	assert.Equal(t, 2, l.Hypothesis().Size())
	assert.False(t, automaton.Accepts[string](l.Model(), letters("a")))
	require.NoError(t, l.VerifyInvariants(ctx))
}

func TestDFALearner_ConvergesWithinThreeCounterexamples(t *testing.T) {
	for _, a := range acex.Analyzers() {
		t.Run(a.String(), func(t *testing.T) {
			cfg := quietConfig(a)
			cfg.EpsilonRoot = false
			target := evenEven(t)
			l, _ := newDFALearner(t, target, cfg)
			require.NoError(t, l.StartLearning(context.Background()))

			rounds := learnDFA(t, l, target)

			assert.LessOrEqual(t, rounds, 3)
			assert.Equal(t, 4, l.Hypothesis().Size())
			assert.True(t, automaton.Equivalent[string](target, l.Model(), []string{"a", "b"}))
		})
	}
}

func TestDFALearner_EpsilonRootStateProperty(t *testing.T) {
	l, mo := newDFALearner(t, evenEven(t), quietConfig(acex.BinarySearchLeft))
	require.NoError(t, l.StartLearning(context.Background()))

	// sift ε, then one sift each for "a", "b", "aa", "ab"; acceptance comes
	// from the root's ε discriminator, never from a separate query.
	assert.Equal(t, int64(5), mo.QueryCount())
	assert.Equal(t, 2, l.Hypothesis().Size())
	assert.True(t, l.Model().IsAccepting(0))
	assert.False(t, l.Model().IsAccepting(1))
}

// =============================================================================
// Analyzer and encoding matrix
// =============================================================================

func TestDFALearner_AllConfigurationsLearnExactly(t *testing.T) {
	encodings := []Encoding{EncodingBoolean, EncodingRaw}
	for _, a := range acex.Analyzers() {
		for _, enc := range encodings {
			for _, eps := range []bool{true, false} {
				name := fmt.Sprintf("%s/%s/eps=%t", a, enc, eps)
				t.Run(name, func(t *testing.T) {
					cfg := quietConfig(a)
					cfg.Encoding = enc
					cfg.EpsilonRoot = eps
					target := thirdFromLast(t)
					l, _ := newDFALearner(t, target, cfg)
					require.NoError(t, l.StartLearning(context.Background()))

					learnDFA(t, l, target)

					assert.Equal(t, 8, l.Hypothesis().Size())
					assert.True(t, automaton.Equivalent[string](target, l.Model(), []string{"a", "b"}))
					assert.Equal(t, l.Hypothesis().Size(), l.Tree().BoundLeaves())
				})
			}
		}
	}
}

func TestDFALearner_LinearAndBinaryConverge(t *testing.T) {
	target := thirdFromLast(t)
	ctx := context.Background()

	linear, _ := newDFALearner(t, target, quietConfig(acex.LinearFwd))
	binary, _ := newDFALearner(t, target, quietConfig(acex.BinarySearchLeft))
	require.NoError(t, linear.StartLearning(ctx))
	require.NoError(t, binary.StartLearning(ctx))

	learnDFA(t, linear, target)
	learnDFA(t, binary, target)

	assert.True(t, automaton.Equivalent[string](linear.Model(), binary.Model(), []string{"a", "b"}))
	assert.Equal(t, linear.Hypothesis().Size(), binary.Hypothesis().Size())
}

// =============================================================================
// Repeated evaluation
// =============================================================================

func TestDFALearner_RepeatedEvaluation(t *testing.T) {
	ce := dfaCE("abbb", false)
	for _, repeated := range []bool{false, true} {
		t.Run(fmt.Sprintf("repeated=%t", repeated), func(t *testing.T) {
			cfg := quietConfig(acex.LinearFwd)
			cfg.EpsilonRoot = false
			cfg.RepeatedEvaluation = repeated
			target := thirdFromLast(t)
			l, _ := newDFALearner(t, target, cfg)
			ctx := context.Background()
			require.NoError(t, l.StartLearning(ctx))

			// The initial hypothesis rejects everything; "abb" is accepted.
			refined, err := l.RefineHypothesis(ctx, dfaCE("abb", true))
			require.NoError(t, err)
			require.True(t, refined)

			if !repeated {
				assert.Equal(t, 1, l.Stats().Splits)
			} else {
				assert.GreaterOrEqual(t, l.Stats().Splits, 1)
				assert.True(t, automaton.Accepts[string](l.Model(), letters("abb")))
			}
			assert.Equal(t, 1, l.Stats().Refinements)
			require.NoError(t, l.VerifyInvariants(ctx))

			// A counterexample the hypothesis might or might not disagree
			// with is always safe to feed.
			_, err = l.RefineHypothesis(ctx, ce)
			require.NoError(t, err)
			require.NoError(t, l.VerifyInvariants(ctx))
		})
	}
}

func TestDFALearner_CounterexampleWithPrefix(t *testing.T) {
	cfg := quietConfig(acex.BinarySearchRight)
	cfg.EpsilonRoot = false
	target := thirdFromLast(t)
	l, _ := newDFALearner(t, target, cfg)
	ctx := context.Background()
	require.NoError(t, l.StartLearning(ctx))

	ce := &oracle.DefaultQuery[string, bool]{Prefix: letters("ab"), Suffix: letters("b"), Output: true}
	refined, err := l.RefineHypothesis(ctx, ce)
	require.NoError(t, err)
	assert.True(t, refined)
	assert.True(t, automaton.Accepts[string](l.Model(), letters("abb")))
}

// =============================================================================
// Growing alphabet
// =============================================================================

func TestDFALearner_AddAlphabetSymbol(t *testing.T) {
	target := evenEven(t)
	mo := oracle.NewDFASimulator[string](target)
	l, err := NewDFALearner(word.MustAlphabet("a"), mo, quietConfig(acex.BinarySearchLeft))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, l.StartLearning(ctx))

	learnDFA(t, l, target)
	assert.Equal(t, 2, l.Hypothesis().Size(), "parity of a's")

	require.NoError(t, l.AddAlphabetSymbol(ctx, "b"))
	require.NoError(t, l.AddAlphabetSymbol(ctx, "b"), "duplicate is a no-op")
	assert.Equal(t, 2, l.Alphabet().Size())
	require.NoError(t, l.VerifyInvariants(ctx))

	learnDFA(t, l, target)
	assert.Equal(t, 4, l.Hypothesis().Size())
	assert.True(t, automaton.Equivalent[string](target, l.Model(), []string{"a", "b"}))
}

func TestDFALearner_AddAlphabetSymbolBeforeStart(t *testing.T) {
	target := evenEven(t)
	l, err := NewDFALearner(word.MustAlphabet("a"), oracle.NewDFASimulator[string](target), quietConfig(acex.LinearFwd))
	require.NoError(t, err)

	require.NoError(t, l.AddAlphabetSymbol(context.Background(), "b"))
	require.NoError(t, l.StartLearning(context.Background()))
	learnDFA(t, l, target)
	assert.Equal(t, 4, l.Hypothesis().Size())
}

// =============================================================================
// Suspend and resume
// =============================================================================

func TestDFALearner_SuspendResume(t *testing.T) {
	target := thirdFromLast(t)
	l, _ := newDFALearner(t, target, quietConfig(acex.ExponentialFwd))
	ctx := context.Background()
	require.NoError(t, l.StartLearning(ctx))

	snap, err := l.Suspend()
	require.NoError(t, err)
	size := snap.States()

	learnDFA(t, l, target)
	require.Equal(t, 8, l.Hypothesis().Size())

	l.Resume(snap, nil)
	assert.Equal(t, size, l.Hypothesis().Size())
	require.NoError(t, l.VerifyInvariants(ctx))

	// The snapshot is still usable after a resume and the learner converges
	// again from it, here with a fresh oracle.
	fresh := oracle.NewCountingOracle[string, bool](t.Name()+"/fresh", oracle.NewDFASimulator[string](target))
	l.Resume(snap, fresh)
	learnDFA(t, l, target)
	assert.Equal(t, 8, l.Hypothesis().Size())
	assert.Positive(t, fresh.QueryCount())
}

// =============================================================================
// Errors
// =============================================================================

func TestDFALearner_Errors(t *testing.T) {
	ctx := context.Background()
	target := evenEven(t)

	t.Run("refine before start", func(t *testing.T) {
		l, _ := newDFALearner(t, target, quietConfig(acex.LinearFwd))
		_, err := l.RefineHypothesis(ctx, dfaCE("a", false))
		assert.ErrorIs(t, err, ErrNotStarted)
	})

	t.Run("start twice", func(t *testing.T) {
		l, _ := newDFALearner(t, target, quietConfig(acex.LinearFwd))
		require.NoError(t, l.StartLearning(ctx))
		assert.ErrorIs(t, l.StartLearning(ctx), ErrAlreadyStarted)
	})

	t.Run("nil counterexample", func(t *testing.T) {
		l, _ := newDFALearner(t, target, quietConfig(acex.LinearFwd))
		require.NoError(t, l.StartLearning(ctx))
		_, err := l.RefineHypothesis(ctx, nil)
		assert.ErrorIs(t, err, ErrNilCounterexample)
	})

	t.Run("foreign symbol", func(t *testing.T) {
		l, _ := newDFALearner(t, target, quietConfig(acex.LinearFwd))
		require.NoError(t, l.StartLearning(ctx))
		_, err := l.RefineHypothesis(ctx, dfaCE("ac", false))
		assert.ErrorIs(t, err, ErrForeignSymbol)
	})

	t.Run("invalid analyzer", func(t *testing.T) {
		cfg := quietConfig(acex.Analyzer(42))
		_, err := NewDFALearner(word.MustAlphabet("a"), oracle.NewDFASimulator[string](target), cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("oracle failure", func(t *testing.T) {
		down := errors.New("target unreachable")
		mo := oracle.Func[string, bool](func(context.Context, word.Word[string], word.Word[string]) (bool, error) {
			return false, down
		})
		l, err := NewDFALearner(word.MustAlphabet("a"), mo, quietConfig(acex.LinearFwd))
		require.NoError(t, err)
		assert.ErrorIs(t, l.StartLearning(ctx), down)
		assert.False(t, l.Started())
	})
}

func TestEncoding_Parse(t *testing.T) {
	tests := []struct {
		in      string
		want    Encoding
		wantErr bool
	}{
		{"boolean", EncodingBoolean, false},
		{"BOOL", EncodingBoolean, false},
		{" raw ", EncodingRaw, false},
		{"bits", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEncoding(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedEncoding)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var e Encoding
	require.NoError(t, e.UnmarshalText([]byte("raw")))
	text, err := e.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "raw", string(text))
}
