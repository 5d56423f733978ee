// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package experiment drives a learner against an equivalence oracle until
// the oracle finds no counterexample.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/learner"
	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
	"github.com/AleutianAI/AleutianLearn/services/learn/telemetry"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

const tracerName = "dtlearn.experiment"

var (
	// ErrRoundLimit indicates MaxRounds equivalence queries found
	// counterexamples every time.
	ErrRoundLimit = errors.New("round limit reached")

	// ErrUnusedCounterexample indicates the learner rejected a
	// counterexample returned by the equivalence oracle.
	ErrUnusedCounterexample = errors.New("learner rejected counterexample")
)

// Learner is the part of a learner the harness drives.
type Learner[I comparable, D any] interface {
	StartLearning(ctx context.Context) error
	RefineHypothesis(ctx context.Context, ce *oracle.DefaultQuery[I, D]) (bool, error)
	Alphabet() *word.Alphabet[I]
	Kind() string
	Size() int
}

// Config controls an experiment.
type Config struct {
	// MaxRounds bounds the number of equivalence queries. 0 means no limit.
	MaxRounds int

	// Logger receives progress logs. nil selects slog.Default().
	Logger *slog.Logger

	// Metrics receives the equivalence query counter. nil selects
	// telemetry.DefaultMetrics().
	Metrics *telemetry.Metrics

	// OnRound, if set, is called after every equivalence query with the
	// round number (from 1) and the counterexample, nil on the last round.
	OnRound func(round int, ce fmt.Stringer)
}

// Result summarizes a run.
type Result struct {
	RunID           string
	Kind            string
	Rounds          int
	Counterexamples int
	States          int
	Converged       bool
	Duration        time.Duration
}

// Experiment couples a learner with an equivalence oracle.
type Experiment[A any, I comparable, D any] struct {
	learner Learner[I, D]
	model   func() A
	eq      oracle.EquivalenceOracle[A, I, D]
	cfg     Config
}

// New creates an experiment. model returns the learner's current
// hypothesis in the form eq expects.
func New[A any, I comparable, D any](l Learner[I, D], model func() A, eq oracle.EquivalenceOracle[A, I, D], cfg Config) *Experiment[A, I, D] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.DefaultMetrics()
	}
	return &Experiment[A, I, D]{learner: l, model: model, eq: eq, cfg: cfg}
}

// ForDFA builds an experiment for a DFA learner.
func ForDFA[I comparable](l *learner.DFALearner[I], eq oracle.EquivalenceOracle[automaton.DFA[I], I, bool], cfg Config) *Experiment[automaton.DFA[I], I, bool] {
	return New[automaton.DFA[I], I, bool](l, func() automaton.DFA[I] { return l.Model() }, eq, cfg)
}

// ForMealy builds an experiment for a Mealy learner.
func ForMealy[I comparable, O comparable](l *learner.MealyLearner[I, O], eq oracle.EquivalenceOracle[automaton.Mealy[I, O], I, word.Word[O]], cfg Config) *Experiment[automaton.Mealy[I, O], I, word.Word[O]] {
	return New[automaton.Mealy[I, O], I, word.Word[O]](l, func() automaton.Mealy[I, O] { return l.Model() }, eq, cfg)
}

// ForMoore builds an experiment for a Moore learner.
func ForMoore[I comparable, O comparable](l *learner.MooreLearner[I, O], eq oracle.EquivalenceOracle[automaton.Moore[I, O], I, word.Word[O]], cfg Config) *Experiment[automaton.Moore[I, O], I, word.Word[O]] {
	return New[automaton.Moore[I, O], I, word.Word[O]](l, func() automaton.Moore[I, O] { return l.Model() }, eq, cfg)
}

// Run learns until the equivalence oracle finds no counterexample.
//
// Description:
//
//	Starts the learner, then alternates FindCounterExample and
//	RefineHypothesis. Each run gets a fresh uuid, attached to the span and
//	every log line.
//
// Inputs:
//
//	ctx - Passed to both oracles.
//
// Outputs:
//
//	Result - Always filled, also on error.
//	error - Learner or oracle failure, ErrRoundLimit, or
//	        ErrUnusedCounterexample.
func (x *Experiment[A, I, D]) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString(), Kind: x.learner.Kind()}
	ctx, span := telemetry.StartSpan(ctx, tracerName, "experiment.Run",
		trace.WithAttributes(
			attribute.String("run_id", res.RunID),
			attribute.String("kind", res.Kind),
			attribute.Int("max_rounds", x.cfg.MaxRounds),
		),
	)
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, x.cfg.Logger).With(slog.String("run_id", res.RunID))
	start := time.Now()

	finish := func(err error) (Result, error) {
		res.States = x.learner.Size()
		res.Duration = time.Since(start)
		span.SetAttributes(
			attribute.Int("rounds", res.Rounds),
			attribute.Int("states", res.States),
			attribute.Bool("converged", res.Converged),
		)
		if err != nil {
			telemetry.RecordError(span, err)
			logger.Error("experiment failed", slog.String("error", err.Error()), slog.Int("rounds", res.Rounds))
			return res, err
		}
		telemetry.SetSpanOK(span)
		logger.Info("experiment finished",
			slog.Int("rounds", res.Rounds),
			slog.Int("states", res.States),
			slog.Duration("duration", res.Duration),
		)
		return res, nil
	}

	logger.Info("experiment started", slog.String("kind", res.Kind), slog.Int("alphabet_size", x.learner.Alphabet().Size()))
	if err := x.learner.StartLearning(ctx); err != nil {
		return finish(fmt.Errorf("start learning: %w", err))
	}

	kind := metric.WithAttributes(attribute.String("kind", res.Kind))
	for {
		if x.cfg.MaxRounds > 0 && res.Rounds >= x.cfg.MaxRounds {
			return finish(fmt.Errorf("%w: %d", ErrRoundLimit, x.cfg.MaxRounds))
		}
		res.Rounds++
		x.cfg.Metrics.EquivalenceQueriesTotal.Add(ctx, 1, kind)

		ce, err := x.eq.FindCounterExample(ctx, x.model(), x.learner.Alphabet().Symbols())
		if err != nil {
			return finish(fmt.Errorf("equivalence query %d: %w", res.Rounds, err))
		}
		if x.cfg.OnRound != nil {
			if ce == nil {
				x.cfg.OnRound(res.Rounds, nil)
			} else {
				x.cfg.OnRound(res.Rounds, ce)
			}
		}
		if ce == nil {
			res.Converged = true
			return finish(nil)
		}

		logger.Debug("counterexample found", slog.Int("round", res.Rounds), slog.String("counterexample", ce.String()))
		refined, err := x.learner.RefineHypothesis(ctx, ce)
		if err != nil {
			return finish(fmt.Errorf("refine with %s: %w", ce, err))
		}
		if !refined {
			return finish(fmt.Errorf("%w: %s", ErrUnusedCounterexample, ce))
		}
		res.Counterexamples++
	}
}
