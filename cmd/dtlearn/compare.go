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
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianLearn/services/learn/acex"
	"github.com/AleutianAI/AleutianLearn/services/learn/config"
)

type compareFlags struct {
	target    string
	backend   string
	analyzers []string
	parallel  int
}

// querySummary holds descriptive statistics of membership query counts.
type querySummary struct {
	Mean, Median, Min, Max, StdDev float64
}

func newCompareCmd(a *app) *cobra.Command {
	f := &compareFlags{}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Learn one target with several analyzers and compare query counts",
		Example: `  dtlearn compare --target testdata/even_even.yaml
  dtlearn compare --target testdata/even_even.yaml --analyzers linear-fwd,binary-search-left`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompare(cmd, a, f)
		},
	}
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "target description (YAML)")
	cmd.Flags().StringVar(&f.backend, "backend", backendSimulator, "membership backend: sim or fsm (dfa only)")
	cmd.Flags().StringSliceVar(&f.analyzers, "analyzers", nil, "analyzers to compare (default: all)")
	cmd.Flags().IntVar(&f.parallel, "parallel", runtime.GOMAXPROCS(0), "maximum concurrent runs")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func parseAnalyzers(names []string) ([]acex.Analyzer, error) {
	if len(names) == 0 {
		return acex.Analyzers(), nil
	}
	out := make([]acex.Analyzer, 0, len(names))
	for _, n := range names {
		an, err := acex.ParseAnalyzer(n)
		if err != nil {
			return nil, err
		}
		out = append(out, an)
	}
	return out, nil
}

// compareTarget learns spec once per analyzer, at most parallel runs at a
// time. Reports keep the order of analyzers.
func compareTarget(cmd *cobra.Command, a *app, spec *config.TargetSpec, analyzers []acex.Analyzer, backend string, parallel int) ([]runReport, error) {
	reports := make([]runReport, len(analyzers))
	g, ctx := errgroup.WithContext(cmd.Context())
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, an := range analyzers {
		i, an := i, an
		g.Go(func() error {
			lc := a.cfg
			lc.Analyzer = an
			r, err := runTarget(ctx, spec, lc, runOptions{
				Backend: backend,
				Logger:  a.logger.With("target", spec.Name, "analyzer", an.String()).Slog(),
			})
			if err != nil {
				return fmt.Errorf("%s: %w", an, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func summarizeQueries(reports []runReport) (querySummary, error) {
	data := make(stats.Float64Data, len(reports))
	for i, r := range reports {
		data[i] = float64(r.Queries)
	}
	var s querySummary
	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return s, err
	}
	return s, nil
}

func runCompare(cmd *cobra.Command, a *app, f *compareFlags) error {
	spec, err := config.LoadTarget(f.target)
	if err != nil {
		return err
	}
	analyzers, err := parseAnalyzers(f.analyzers)
	if err != nil {
		return err
	}

	reports, err := compareTarget(cmd, a, spec, analyzers, f.backend, f.parallel)
	if err != nil {
		return fmt.Errorf("compare %s: %w", spec.Name, err)
	}
	summary, err := summarizeQueries(reports)
	if err != nil {
		return err
	}

	out := a.out
	out.Title(fmt.Sprintf("%s (%s): %d analyzers", spec.Name, spec.Kind, len(reports)))
	rows := make([][]string, len(reports))
	best := 0
	for i, r := range reports {
		rows[i] = []string{
			r.Config.Analyzer.String(),
			strconv.Itoa(r.Result.Rounds),
			strconv.Itoa(r.Result.States),
			strconv.FormatInt(r.Queries, 10),
			strconv.FormatInt(r.Symbols, 10),
			r.Result.Duration.Round(time.Microsecond).String(),
		}
		if r.Queries < reports[best].Queries {
			best = i
		}
	}
	out.Table([]string{"analyzer", "rounds", "states", "queries", "symbols", "duration"}, rows)
	out.KeyValue("queries_mean", strconv.FormatFloat(summary.Mean, 'f', 1, 64))
	out.KeyValue("queries_median", strconv.FormatFloat(summary.Median, 'f', 1, 64))
	out.KeyValue("queries_min", strconv.FormatFloat(summary.Min, 'f', 0, 64))
	out.KeyValue("queries_max", strconv.FormatFloat(summary.Max, 'f', 0, 64))
	out.KeyValue("queries_stddev", strconv.FormatFloat(summary.StdDev, 'f', 2, 64))
	out.Success(fmt.Sprintf("fewest queries: %s", reports[best].Config.Analyzer))
	return nil
}
