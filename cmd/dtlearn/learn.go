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
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianLearn/services/learn/acex"
	"github.com/AleutianAI/AleutianLearn/services/learn/config"
	"github.com/AleutianAI/AleutianLearn/services/learn/learner"
	"github.com/AleutianAI/AleutianLearn/services/learn/telemetry"
)

// learnFlags are the learn command's flags. Overrides are applied only when
// the flag was set explicitly.
type learnFlags struct {
	target      string
	backend     string
	analyzer    string
	encoding    string
	maxRounds   int
	verify      bool
	metricsAddr string
}

func newLearnCmd(a *app) *cobra.Command {
	f := &learnFlags{}
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Learn a model of one target",
		Example: `  dtlearn learn --target testdata/even_even.yaml
  dtlearn learn --target testdata/even_even.yaml --backend fsm --analyzer linear-fwd --verify`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLearn(cmd, a, f)
		},
	}
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "target description (YAML)")
	cmd.Flags().StringVar(&f.backend, "backend", backendSimulator, "membership backend: sim or fsm (dfa only)")
	cmd.Flags().StringVar(&f.analyzer, "analyzer", "", "counterexample analyzer (see 'dtlearn analyzers')")
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "effect encoding: boolean or raw")
	cmd.Flags().IntVar(&f.maxRounds, "max-rounds", 0, "equivalence query limit, 0 for none")
	cmd.Flags().BoolVar(&f.verify, "verify", false, "check learner invariants and model equivalence after learning")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while learning")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

// applyOverrides copies explicitly set flags onto cfg.
func applyOverrides(cmd *cobra.Command, cfg config.LearnerConfig, analyzer, encoding string, maxRounds int) (config.LearnerConfig, error) {
	if cmd.Flags().Changed("analyzer") {
		an, err := acex.ParseAnalyzer(analyzer)
		if err != nil {
			return cfg, err
		}
		cfg.Analyzer = an
	}
	if cmd.Flags().Changed("encoding") {
		enc, err := learner.ParseEncoding(encoding)
		if err != nil {
			return cfg, err
		}
		cfg.Encoding = enc
	}
	if cmd.Flags().Changed("max-rounds") {
		cfg.MaxRounds = maxRounds
	}
	return cfg, nil
}

func runLearn(cmd *cobra.Command, a *app, f *learnFlags) error {
	ctx := cmd.Context()
	spec, err := config.LoadTarget(f.target)
	if err != nil {
		return err
	}
	cfg, err := applyOverrides(cmd, a.cfg, f.analyzer, f.encoding, f.maxRounds)
	if err != nil {
		return err
	}

	if f.metricsAddr != "" {
		stop, err := serveMetrics(f.metricsAddr, a.logger.Slog())
		if err != nil {
			return err
		}
		defer stop()
	}

	logger := a.logger.With("target", spec.Name).Slog()
	report, err := runTarget(ctx, spec, cfg, runOptions{
		Backend: f.backend,
		Verify:  f.verify,
		Logger:  logger,
		OnRound: func(round int, ce fmt.Stringer) {
			if ce != nil {
				logger.Info("counterexample", slog.Int("round", round), slog.String("word", ce.String()))
			}
		},
	})
	if err != nil {
		return fmt.Errorf("learn %s: %w", spec.Name, err)
	}

	out := a.out
	out.Title(fmt.Sprintf("%s (%s)", spec.Name, spec.Kind))
	out.Success(fmt.Sprintf("learned %d states in %d rounds", report.Result.States, report.Result.Rounds))
	out.KeyValue("run_id", report.Result.RunID)
	out.KeyValue("analyzer", report.Config.Analyzer)
	out.KeyValue("encoding", report.Config.Encoding)
	out.KeyValue("counterexamples", report.Result.Counterexamples)
	out.KeyValue("splits", report.Stats.Splits)
	out.KeyValue("membership_queries", report.Queries)
	out.KeyValue("query_symbols", report.Symbols)
	out.KeyValue("duration", report.Result.Duration.Round(time.Microsecond))
	if f.verify {
		out.Success("invariants hold and the model matches the target")
	}
	out.Table(report.Headers, report.Rows)
	return nil
}

// serveMetrics starts a /metrics endpoint. It uses the otel Prometheus
// handler when that exporter is enabled and the client_golang default
// registry otherwise, which still carries the oracle counters.
func serveMetrics(addr string, logger *slog.Logger) (func(), error) {
	handler := telemetry.MetricsHandler()
	if handler == nil {
		handler = promhttp.Handler()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
