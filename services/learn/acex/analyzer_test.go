// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package acex

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixed builds a memo over a precomputed effect vector and counts how often
// each index is evaluated.
func fixed(effects []bool) (*Memo[bool], []int) {
	calls := make([]int, len(effects))
	m := NewMemo(len(effects)-1, func(_ context.Context, i int) (bool, error) {
		calls[i]++
		return effects[i], nil
	}, func(a, b bool) bool { return a == b })
	return m, calls
}

// step returns n+1 effects that are false up to and including boundary and
// true afterwards.
func step(n, boundary int) []bool {
	eff := make([]bool, n+1)
	for i := boundary + 1; i <= n; i++ {
		eff[i] = true
	}
	return eff
}

func TestAnalyze_BoundaryValidity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(40)
		effects := make([]bool, n+1)
		for i := range effects {
			effects[i] = rng.Intn(2) == 0
		}
		effects[n] = !effects[0]

		for _, a := range Analyzers() {
			m, calls := fixed(effects)
			i, err := Analyze[bool](ctx, a, m)
			require.NoError(t, err, "%s on %v", a, effects)
			require.GreaterOrEqual(t, i, 0)
			require.Less(t, i, n)
			assert.NotEqual(t, effects[i], effects[i+1], "%s returned %d on %v", a, i, effects)
			for idx, c := range calls {
				assert.LessOrEqual(t, c, 1, "%s evaluated %d twice", a, idx)
			}
		}
	}
}

func TestAnalyze_LinearFindsFirstAndLast(t *testing.T) {
	effects := []bool{false, true, false, true, true}
	ctx := context.Background()

	m, _ := fixed(effects)
	i, err := Analyze[bool](ctx, LinearFwd, m)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	m, _ = fixed(effects)
	i, err = Analyze[bool](ctx, LinearBwd, m)
	require.NoError(t, err)
	assert.Equal(t, 2, i)
}

func TestAnalyze_StepBoundaryAllAnalyzers(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		boundary int
	}{
		{"length one", 1, 0},
		{"early", 16, 1},
		{"middle", 16, 8},
		{"late", 32, 30},
		{"last", 9, 8},
	}
	for _, tt := range tests {
		for _, a := range Analyzers() {
			t.Run(tt.name+"/"+a.String(), func(t *testing.T) {
				m, _ := fixed(step(tt.n, tt.boundary))
				i, err := Analyze[bool](context.Background(), a, m)
				require.NoError(t, err)
				assert.Equal(t, tt.boundary, i)
			})
		}
	}
}

func TestAnalyze_BinaryUsesFewerEvaluationsThanLinear(t *testing.T) {
	effects := step(32, 30)
	ctx := context.Background()

	linear, _ := fixed(effects)
	linear.SetEffect(0, effects[0])
	linear.SetEffect(32, effects[32])
	_, err := Analyze[bool](ctx, LinearFwd, linear)
	require.NoError(t, err)

	binary, _ := fixed(effects)
	binary.SetEffect(0, effects[0])
	binary.SetEffect(32, effects[32])
	_, err = Analyze[bool](ctx, BinarySearchLeft, binary)
	require.NoError(t, err)

	assert.Equal(t, 31, linear.Evaluations())
	assert.Equal(t, 5, binary.Evaluations())
	assert.Less(t, binary.Evaluations(), linear.Evaluations())
}

func TestAnalyze_ExponentialBwdFavoursLateBoundary(t *testing.T) {
	effects := step(64, 62)
	ctx := context.Background()

	fwd, _ := fixed(effects)
	_, err := Analyze[bool](ctx, ExponentialFwd, fwd)
	require.NoError(t, err)

	bwd, _ := fixed(effects)
	_, err = Analyze[bool](ctx, ExponentialBwd, bwd)
	require.NoError(t, err)

	assert.Less(t, bwd.Evaluations(), fwd.Evaluations())
}

func TestAnalyze_InvalidCounterexample(t *testing.T) {
	m, _ := fixed([]bool{true, false, true})
	_, err := Analyze[bool](context.Background(), BinarySearchRight, m)
	assert.ErrorIs(t, err, ErrInvalidCounterexample)
}

func TestAnalyzeRange_Bounds(t *testing.T) {
	m, _ := fixed(step(4, 1))
	_, err := AnalyzeRange[bool](context.Background(), LinearFwd, m, 3, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = AnalyzeRange[bool](context.Background(), LinearFwd, m, 0, 5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	i, err := AnalyzeRange[bool](context.Background(), LinearBwd, m, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestAnalyze_EffectErrorPropagates(t *testing.T) {
	boom := errors.New("oracle down")
	m := NewMemo(8, func(_ context.Context, i int) (bool, error) {
		if i == 4 {
			return false, boom
		}
		return i > 4, nil
	}, func(a, b bool) bool { return a == b })

	_, err := Analyze[bool](context.Background(), BinarySearchLeft, m)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "effect 4")
}

func TestMemo(t *testing.T) {
	m, calls := fixed(step(4, 1))
	ctx := context.Background()

	m.SetEffect(0, false)
	v, err := m.Effect(ctx, 0)
	require.NoError(t, err)
	assert.False(t, v)
	assert.Zero(t, calls[0])

	for k := 0; k < 3; k++ {
		v, err = m.Effect(ctx, 3)
		require.NoError(t, err)
		assert.True(t, v)
	}
	assert.Equal(t, 1, calls[3])
	assert.Equal(t, 1, m.Evaluations())
	assert.True(t, m.Known(3))
	assert.False(t, m.Known(2))

	_, err = m.Effect(ctx, 5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	ok, err := Compatible[bool](ctx, m, 0, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseAnalyzer(t *testing.T) {
	tests := []struct {
		in   string
		want Analyzer
	}{
		{"LinearFwd", LinearFwd},
		{"linear_bwd", LinearBwd},
		{"BinarySearch", BinarySearchLeft},
		{"binary-search-right", BinarySearchRight},
		{"EXPONENTIALBWD", ExponentialBwd},
		{"Partition", PartitionFwd},
		{"PartitionBwd", PartitionBwd},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAnalyzer(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseAnalyzer("quantum")
	assert.ErrorIs(t, err, ErrUnknownAnalyzer)
}

func TestAnalyzer_TextRoundTripAndGroups(t *testing.T) {
	for _, a := range Analyzers() {
		text, err := a.MarshalText()
		require.NoError(t, err)
		var back Analyzer
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, a, back)
	}

	_, err := Analyzer(99).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Analyzer(99)", Analyzer(99).String())

	assert.Len(t, ForwardAnalyzers(), 4)
	assert.Len(t, BackwardAnalyzers(), 4)
	for _, a := range ForwardAnalyzers() {
		assert.True(t, a.Forward())
	}
}
