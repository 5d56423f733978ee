// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/config"
	"github.com/AleutianAI/AleutianLearn/services/learn/experiment"
	"github.com/AleutianAI/AleutianLearn/services/learn/learner"
	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// Membership backends.
const (
	backendSimulator = "sim"
	backendFSM       = "fsm"
)

var (
	errUnknownBackend = errors.New("unknown backend")
	errVerification   = errors.New("verification failed")
)

// runOptions controls one learning run.
type runOptions struct {
	Backend string
	Verify  bool
	Logger  *slog.Logger
	OnRound func(round int, ce fmt.Stringer)
}

// runReport is the outcome of one learning run.
type runReport struct {
	Config  config.LearnerConfig
	Result  experiment.Result
	Queries int64
	Symbols int64
	Stats   learner.Stats
	Headers []string
	Rows    [][]string
}

// runTarget learns spec with the settings in lc. The target's kind decides
// the learner; lc.Kind is overwritten with it before validation.
func runTarget(ctx context.Context, spec *config.TargetSpec, lc config.LearnerConfig, opts runOptions) (runReport, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if lc.Kind != spec.Kind {
		opts.Logger.Debug("target kind overrides configured kind",
			slog.String("configured", lc.Kind), slog.String("target", spec.Kind))
		lc.Kind = spec.Kind
	}
	if err := lc.Validate(); err != nil {
		return runReport{Config: lc}, err
	}
	if opts.Backend == "" {
		opts.Backend = backendSimulator
	}
	if opts.Backend != backendSimulator && opts.Backend != backendFSM {
		return runReport{Config: lc}, fmt.Errorf("%w: %q", errUnknownBackend, opts.Backend)
	}
	if opts.Backend == backendFSM && spec.Kind != config.KindDFA {
		return runReport{Config: lc}, fmt.Errorf("%w: fsm backend supports dfa targets only", errUnknownBackend)
	}

	switch spec.Kind {
	case config.KindDFA:
		return runDFA(ctx, spec, lc, opts)
	case config.KindMealy:
		return runMealy(ctx, spec, lc, opts)
	default:
		return runMoore(ctx, spec, lc, opts)
	}
}

func experimentConfig(lc config.LearnerConfig, opts runOptions) experiment.Config {
	return experiment.Config{MaxRounds: lc.MaxRounds, Logger: opts.Logger, OnRound: opts.OnRound}
}

func oracleName(spec *config.TargetSpec, lc config.LearnerConfig) string {
	return spec.Name + "/" + lc.Analyzer.String()
}

func runDFA(ctx context.Context, spec *config.TargetSpec, lc config.LearnerConfig, opts runOptions) (runReport, error) {
	report := runReport{Config: lc}
	target, err := spec.DFA()
	if err != nil {
		return report, err
	}

	var base oracle.MembershipOracle[string, bool] = oracle.NewDFASimulator[string](target)
	if opts.Backend == backendFSM {
		if base, err = spec.FSMOracle(); err != nil {
			return report, err
		}
	}
	mo := oracle.NewCountingOracle[string, bool](oracleName(spec, lc), base)

	l, err := learner.NewDFALearner[string](spec.InputAlphabet(), mo, lc.LearnerOptions(opts.Logger, nil))
	if err != nil {
		return report, err
	}
	res, err := experiment.ForDFA[string](l, oracle.NewDFASimulatorEQ[string](target), experimentConfig(lc, opts)).Run(ctx)
	report.Result, report.Queries, report.Symbols, report.Stats = res, mo.QueryCount(), mo.SymbolCount(), l.Stats()
	if err != nil {
		return report, err
	}

	model := l.Model()
	if opts.Verify {
		if err := l.VerifyInvariants(ctx); err != nil {
			return report, fmt.Errorf("%w: %w", errVerification, err)
		}
		if w, differ := automaton.SeparatingWordDFA[string](target, model, spec.Alphabet); differ {
			return report, fmt.Errorf("%w: model and target differ on %s", errVerification, w)
		}
	}

	report.Headers = append([]string{"state", "accepting"}, spec.Alphabet...)
	for s := 0; s < model.Size(); s++ {
		id := automaton.StateID(s)
		row := []string{stateName(id), strconv.FormatBool(model.IsAccepting(id))}
		for _, sym := range spec.Alphabet {
			row = append(row, stateName(model.Successor(id, sym)))
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

func runMealy(ctx context.Context, spec *config.TargetSpec, lc config.LearnerConfig, opts runOptions) (runReport, error) {
	report := runReport{Config: lc}
	target, err := spec.Mealy()
	if err != nil {
		return report, err
	}
	mo := oracle.NewCountingOracle[string, word.Word[string]](oracleName(spec, lc), oracle.NewMealySimulator[string, string](target))

	l, err := learner.NewMealyLearner[string, string](spec.InputAlphabet(), mo, lc.LearnerOptions(opts.Logger, nil))
	if err != nil {
		return report, err
	}
	res, err := experiment.ForMealy[string, string](l, oracle.NewMealySimulatorEQ[string, string](target), experimentConfig(lc, opts)).Run(ctx)
	report.Result, report.Queries, report.Symbols, report.Stats = res, mo.QueryCount(), mo.SymbolCount(), l.Stats()
	if err != nil {
		return report, err
	}

	model := l.Model()
	if opts.Verify {
		if err := l.VerifyInvariants(ctx); err != nil {
			return report, fmt.Errorf("%w: %w", errVerification, err)
		}
		if w, differ := automaton.SeparatingWordMealy[string, string](target, model, spec.Alphabet); differ {
			return report, fmt.Errorf("%w: model and target differ on %s", errVerification, w)
		}
	}

	report.Headers = append([]string{"state"}, spec.Alphabet...)
	for s := 0; s < model.Size(); s++ {
		id := automaton.StateID(s)
		row := []string{stateName(id)}
		for _, sym := range spec.Alphabet {
			row = append(row, stateName(model.Successor(id, sym))+"/"+model.TransitionOutput(id, sym))
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

func runMoore(ctx context.Context, spec *config.TargetSpec, lc config.LearnerConfig, opts runOptions) (runReport, error) {
	report := runReport{Config: lc}
	target, err := spec.Moore()
	if err != nil {
		return report, err
	}
	mo := oracle.NewCountingOracle[string, word.Word[string]](oracleName(spec, lc), oracle.NewMooreSimulator[string, string](target))

	l, err := learner.NewMooreLearner[string, string](spec.InputAlphabet(), mo, lc.LearnerOptions(opts.Logger, nil))
	if err != nil {
		return report, err
	}
	res, err := experiment.ForMoore[string, string](l, oracle.NewMooreSimulatorEQ[string, string](target), experimentConfig(lc, opts)).Run(ctx)
	report.Result, report.Queries, report.Symbols, report.Stats = res, mo.QueryCount(), mo.SymbolCount(), l.Stats()
	if err != nil {
		return report, err
	}

	model := l.Model()
	if opts.Verify {
		if err := l.VerifyInvariants(ctx); err != nil {
			return report, fmt.Errorf("%w: %w", errVerification, err)
		}
		if w, differ := automaton.SeparatingWordMoore[string, string](target, model, spec.Alphabet); differ {
			return report, fmt.Errorf("%w: model and target differ on %s", errVerification, w)
		}
	}

	report.Headers = append([]string{"state", "output"}, spec.Alphabet...)
	for s := 0; s < model.Size(); s++ {
		id := automaton.StateID(s)
		row := []string{stateName(id), model.StateOutput(id)}
		for _, sym := range spec.Alphabet {
			row = append(row, stateName(model.Successor(id, sym)))
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

func stateName(s automaton.StateID) string {
	if s == automaton.NoState {
		return "-"
	}
	return "q" + strconv.Itoa(int(s))
}
