// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package oracle defines how learners talk to the system under learning.
//
// A MembershipOracle answers batches of (prefix, suffix) queries; it is the
// only channel through which a learner observes the target. An
// EquivalenceOracle searches for a counterexample to a hypothesis.
//
// The package also ships simulator oracles backed by known automata, a
// looplab/fsm backed DFA oracle, and a counting decorator that exports query
// statistics to Prometheus.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

var (
	// ErrUnanswered indicates an oracle returned without answering a query.
	ErrUnanswered = errors.New("query left unanswered")

	// ErrUndefinedRun indicates the target has no run for a query input.
	ErrUndefinedRun = errors.New("target has no run for input")
)

// =============================================================================
// Queries
// =============================================================================

// Query is a single membership query. The oracle answers it in place.
//
// The output semantics depend on the automaton kind:
//
//   - DFA: acceptance of prefix·suffix.
//   - Mealy: outputs produced while reading suffix after prefix.
//   - Moore: output after prefix followed by one output per suffix symbol.
type Query[I comparable, D any] struct {
	Prefix word.Word[I]
	Suffix word.Word[I]

	output   D
	answered bool
}

// NewQuery creates an unanswered query.
func NewQuery[I comparable, D any](prefix, suffix word.Word[I]) *Query[I, D] {
	return &Query[I, D]{Prefix: prefix, Suffix: suffix}
}

// Input returns prefix·suffix.
func (q *Query[I, D]) Input() word.Word[I] {
	return q.Prefix.Concat(q.Suffix)
}

// Answer records the oracle output.
func (q *Query[I, D]) Answer(out D) {
	q.output = out
	q.answered = true
}

// Output returns the recorded output.
func (q *Query[I, D]) Output() D {
	return q.output
}

// Answered reports whether Answer was called.
func (q *Query[I, D]) Answered() bool {
	return q.answered
}

// String implements fmt.Stringer.
func (q *Query[I, D]) String() string {
	if !q.answered {
		return fmt.Sprintf("Query[%s | %s]", q.Prefix, q.Suffix)
	}
	return fmt.Sprintf("Query[%s | %s / %v]", q.Prefix, q.Suffix, q.output)
}

// DefaultQuery is an answered query detached from any oracle call. It is
// the counterexample format exchanged with equivalence oracles.
type DefaultQuery[I comparable, D any] struct {
	Prefix word.Word[I]
	Suffix word.Word[I]
	Output D
}

// Input returns prefix·suffix.
func (q DefaultQuery[I, D]) Input() word.Word[I] {
	return q.Prefix.Concat(q.Suffix)
}

// String implements fmt.Stringer.
func (q DefaultQuery[I, D]) String() string {
	return fmt.Sprintf("Counterexample[%s | %s / %v]", q.Prefix, q.Suffix, q.Output)
}

// =============================================================================
// Oracle interfaces
// =============================================================================

// MembershipOracle answers membership queries.
//
// ProcessQueries must answer every query in the batch before returning
// without error. Answers must be deterministic: the same query always yields
// the same output.
type MembershipOracle[I comparable, D any] interface {
	ProcessQueries(ctx context.Context, queries []*Query[I, D]) error
}

// EquivalenceOracle searches for a counterexample to a hypothesis of type A.
// A nil query without error means none was found.
type EquivalenceOracle[A any, I comparable, D any] interface {
	FindCounterExample(ctx context.Context, hypothesis A, inputs []I) (*DefaultQuery[I, D], error)
}

// Func adapts a function answering one query at a time to MembershipOracle.
type Func[I comparable, D any] func(ctx context.Context, prefix, suffix word.Word[I]) (D, error)

// ProcessQueries implements MembershipOracle.
func (f Func[I, D]) ProcessQueries(ctx context.Context, queries []*Query[I, D]) error {
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := f(ctx, q.Prefix, q.Suffix)
		if err != nil {
			return &QueryError{Prefix: q.Prefix.String(), Suffix: q.Suffix.String(), Err: err}
		}
		q.Answer(out)
	}
	return nil
}

// AnswerQuery poses a single query and returns its output.
//
// Example:
//
//	accepted, err := oracle.AnswerQuery(ctx, mo, prefix, word.Epsilon[string]())
func AnswerQuery[I comparable, D any](ctx context.Context, mo MembershipOracle[I, D], prefix, suffix word.Word[I]) (D, error) {
	q := NewQuery[I, D](prefix, suffix)
	if err := mo.ProcessQueries(ctx, []*Query[I, D]{q}); err != nil {
		var zero D
		return zero, err
	}
	if !q.Answered() {
		var zero D
		return zero, fmt.Errorf("%w: %s", ErrUnanswered, q)
	}
	return q.Output(), nil
}

// AnswerBatch poses all queries and verifies each one was answered.
func AnswerBatch[I comparable, D any](ctx context.Context, mo MembershipOracle[I, D], queries []*Query[I, D]) error {
	if len(queries) == 0 {
		return nil
	}
	if err := mo.ProcessQueries(ctx, queries); err != nil {
		return err
	}
	for _, q := range queries {
		if !q.Answered() {
			return fmt.Errorf("%w: %s", ErrUnanswered, q)
		}
	}
	return nil
}

// QueryError wraps a failure to answer a specific query.
type QueryError struct {
	Prefix string
	Suffix string
	Err    error
}

// Error implements error.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s | %s: %v", e.Prefix, e.Suffix, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}
