// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package acex implements abstract counterexamples and the search strategies
// that locate a breakpoint in them.
//
// An abstract counterexample of length n exposes effects 0..n. The effects
// at both ends are incompatible, so somewhere between them two adjacent
// effects are incompatible too. Analyzers find such an index i with
// 0 <= i < n and !CheckEffects(Effect(i), Effect(i+1)) while evaluating as few
// effects as their strategy allows.
//
// Effects usually cost a membership query each, so Memo caches every value
// and analyzers never evaluate an index twice.
package acex

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidCounterexample indicates the endpoint effects are compatible,
	// so no breakpoint is guaranteed to exist.
	ErrInvalidCounterexample = errors.New("endpoint effects are compatible")

	// ErrIndexOutOfRange indicates an effect index outside [0, Len()].
	ErrIndexOutOfRange = errors.New("effect index out of range")

	// ErrUnknownAnalyzer indicates an unrecognized analyzer name.
	ErrUnknownAnalyzer = errors.New("unknown analyzer")
)

// Counterexample is an abstract counterexample with effects 0..Len().
type Counterexample[E any] interface {
	// Len returns n; valid effect indices are 0..n.
	Len() int

	// Effect returns the effect at index i.
	Effect(ctx context.Context, i int) (E, error)

	// CheckEffects reports whether two effects are compatible.
	CheckEffects(a, b E) bool
}

// Memo is a Counterexample that evaluates each effect at most once.
type Memo[E any] struct {
	n       int
	compute func(ctx context.Context, i int) (E, error)
	check   func(a, b E) bool

	values      []E
	known       []bool
	evaluations int
}

// NewMemo creates a memoizing counterexample of length n.
//
// Inputs:
//
//	n - Length; effects are indexed 0..n.
//	compute - Evaluates one effect. Called at most once per index.
//	check - Compatibility of two effects.
func NewMemo[E any](n int, compute func(ctx context.Context, i int) (E, error), check func(a, b E) bool) *Memo[E] {
	return &Memo[E]{
		n:       n,
		compute: compute,
		check:   check,
		values:  make([]E, n+1),
		known:   make([]bool, n+1),
	}
}

// Len implements Counterexample.
func (m *Memo[E]) Len() int { return m.n }

// CheckEffects implements Counterexample.
func (m *Memo[E]) CheckEffects(a, b E) bool { return m.check(a, b) }

// Effect implements Counterexample.
func (m *Memo[E]) Effect(ctx context.Context, i int) (E, error) {
	if i < 0 || i > m.n {
		var zero E
		return zero, fmt.Errorf("%w: %d not in [0,%d]", ErrIndexOutOfRange, i, m.n)
	}
	if m.known[i] {
		return m.values[i], nil
	}
	v, err := m.compute(ctx, i)
	if err != nil {
		var zero E
		return zero, fmt.Errorf("effect %d: %w", i, err)
	}
	m.evaluations++
	m.values[i] = v
	m.known[i] = true
	return v, nil
}

// SetEffect records an effect known without evaluation.
func (m *Memo[E]) SetEffect(i int, e E) {
	m.values[i] = e
	m.known[i] = true
}

// Known reports whether the effect at i is cached.
func (m *Memo[E]) Known(i int) bool { return m.known[i] }

// Evaluations returns how many times compute was called.
func (m *Memo[E]) Evaluations() int { return m.evaluations }

// Compatible reports whether the effects at i and j are compatible.
func Compatible[E any](ctx context.Context, ce Counterexample[E], i, j int) (bool, error) {
	a, err := ce.Effect(ctx, i)
	if err != nil {
		return false, err
	}
	b, err := ce.Effect(ctx, j)
	if err != nil {
		return false, err
	}
	return ce.CheckEffects(a, b), nil
}
