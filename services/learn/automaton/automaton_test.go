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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// evenAEvenB builds the four state DFA accepting words with an even number
// of a's and an even number of b's.
func evenAEvenB(t *testing.T) *CompactDFA[string] {
	t.Helper()
	d := NewCompactDFA(word.MustAlphabet("a", "b"))
	s := []StateID{d.AddState(true), d.AddState(false), d.AddState(false), d.AddState(false)}
	// s0 = (even, even), s1 = (odd, even), s2 = (even, odd), s3 = (odd, odd)
	require.NoError(t, d.SetTransition(s[0], "a", s[1]))
	require.NoError(t, d.SetTransition(s[0], "b", s[2]))
	require.NoError(t, d.SetTransition(s[1], "a", s[0]))
	require.NoError(t, d.SetTransition(s[1], "b", s[3]))
	require.NoError(t, d.SetTransition(s[2], "a", s[3]))
	require.NoError(t, d.SetTransition(s[2], "b", s[0]))
	require.NoError(t, d.SetTransition(s[3], "a", s[2]))
	require.NoError(t, d.SetTransition(s[3], "b", s[1]))
	return d
}

func TestCompactDFA_Accepts(t *testing.T) {
	d := evenAEvenB(t)

	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"a", false},
		{"aa", true},
		{"ab", false},
		{"abab", true},
		{"bb", true},
		{"aab", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Accepts[string](d, split(tt.input)))
		})
	}
}

func TestCompactDFA_Errors(t *testing.T) {
	d := NewCompactDFA(word.MustAlphabet("a"))
	s := d.AddState(false)

	assert.ErrorIs(t, d.SetTransition(s, "b", s), ErrUnknownInput)
	assert.ErrorIs(t, d.SetTransition(s, "a", 4), ErrUnknownState)
	assert.ErrorIs(t, d.SetInitial(3), ErrUnknownState)
	assert.Equal(t, NoState, d.Successor(s, "a"))
	assert.False(t, Accepts[string](d, word.Of("a")))
}

func TestCompactDFA_GrowingAlphabet(t *testing.T) {
	alpha := word.MustAlphabet("a")
	d := NewCompactDFA(alpha)
	s := d.AddState(true)

	_, err := alpha.Add("b")
	require.NoError(t, err)
	require.NoError(t, d.SetTransition(s, "b", s))

	assert.Equal(t, s, d.Successor(s, "b"))
	assert.Equal(t, NoState, d.Successor(s, "a"))
}

func TestMealyOutput(t *testing.T) {
	m := NewCompactMealy[string, int](word.MustAlphabet("x", "y"))
	s0, s1 := m.AddState(), m.AddState()
	require.NoError(t, m.SetTransition(s0, "x", s1, 1))
	require.NoError(t, m.SetTransition(s0, "y", s0, 0))
	require.NoError(t, m.SetTransition(s1, "x", s0, 2))
	require.NoError(t, m.SetTransition(s1, "y", s1, 3))

	out, ok := MealyOutput[string, int](m, word.Of("x"), word.Of("y", "x", "x"))
	require.True(t, ok)
	assert.True(t, out.Equal(word.Of(3, 2, 1)))

	out, ok = MealyOutput[string, int](m, word.Epsilon[string](), word.Epsilon[string]())
	require.True(t, ok)
	assert.Equal(t, 0, out.Len())
}

func TestMooreOutput(t *testing.T) {
	m := NewCompactMoore[string, string](word.MustAlphabet("x"))
	s0, s1 := m.AddState("lo"), m.AddState("hi")
	require.NoError(t, m.SetTransition(s0, "x", s1))
	require.NoError(t, m.SetTransition(s1, "x", s0))

	out, ok := MooreOutput[string, string](m, word.Of("x"), word.Of("x", "x"))
	require.True(t, ok)
	assert.Equal(t, "hi lo hi", out.String())
}

func TestSeparatingWordDFA(t *testing.T) {
	target := evenAEvenB(t)

	universal := NewCompactDFA(word.MustAlphabet("a", "b"))
	u := universal.AddState(true)
	require.NoError(t, universal.SetTransition(u, "a", u))
	require.NoError(t, universal.SetTransition(u, "b", u))

	w, found := SeparatingWordDFA[string](target, universal, []string{"a", "b"})
	require.True(t, found)
	assert.Equal(t, 1, w.Len())

	_, found = SeparatingWordDFA[string](target, evenAEvenB(t), []string{"a", "b"})
	assert.False(t, found)
	assert.True(t, Equivalent[string](target, evenAEvenB(t), []string{"a", "b"}))
}

func TestSeparatingWordMealyAndMoore(t *testing.T) {
	alpha := word.MustAlphabet("x")
	a := NewCompactMealy[string, int](alpha)
	a0 := a.AddState()
	require.NoError(t, a.SetTransition(a0, "x", a0, 1))

	b := NewCompactMealy[string, int](alpha)
	b0, b1 := b.AddState(), b.AddState()
	require.NoError(t, b.SetTransition(b0, "x", b1, 1))
	require.NoError(t, b.SetTransition(b1, "x", b0, 0))

	w, found := SeparatingWordMealy[string, int](a, b, []string{"x"})
	require.True(t, found)
	assert.Equal(t, "x x", w.String())

	ma := NewCompactMoore[string, int](alpha)
	ma0 := ma.AddState(0)
	require.NoError(t, ma.SetTransition(ma0, "x", ma0))
	mb := NewCompactMoore[string, int](alpha)
	mb0, mb1 := mb.AddState(0), mb.AddState(1)
	require.NoError(t, mb.SetTransition(mb0, "x", mb1))
	require.NoError(t, mb.SetTransition(mb1, "x", mb1))

	w, found = SeparatingWordMoore[string, int](ma, mb, []string{"x"})
	require.True(t, found)
	assert.Equal(t, "x", w.String())
}

func split(s string) word.Word[string] {
	syms := make([]string, 0, len(s))
	for _, r := range s {
		syms = append(syms, string(r))
	}
	return word.Of(syms...)
}
