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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianLearn/pkg/logging"
	"github.com/AleutianAI/AleutianLearn/pkg/ux"
	"github.com/AleutianAI/AleutianLearn/services/learn/config"
	"github.com/AleutianAI/AleutianLearn/services/learn/telemetry"
)

// app carries state shared by every subcommand. setup fills it before a
// subcommand runs; close releases it after Execute returns.
type app struct {
	configPath  string
	outputLevel string
	logLevel    string
	logDir      string
	jsonLogs    bool

	cfg      config.LearnerConfig
	logger   *logging.Logger
	out      *ux.Printer
	shutdown func(context.Context) error
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "dtlearn",
		Short: "Active automata learning with discrimination trees",
		Long: `dtlearn learns DFAs, Mealy machines and Moore machines from a target
described in YAML, using membership and equivalence queries against a
simulated system under learning.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "learner config file (YAML)")
	flags.StringVar(&a.outputLevel, "output", "", "output style: standard, minimal or machine (default: detect)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&a.logDir, "log-dir", "", "also write JSON logs to this directory")
	flags.BoolVar(&a.jsonLogs, "json-logs", false, "write console logs as JSON")

	root.AddCommand(newLearnCmd(a), newCompareCmd(a), newAnalyzersCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.outputLevel != "" {
		ux.SetPersonalityLevel(ux.ParsePersonalityLevel(a.outputLevel))
	} else {
		ux.InitPersonality()
	}
	a.out = ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), ux.GetPersonalityLevel())

	cfg, err := config.LoadLearnerConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	a.cfg = cfg

	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  a.logDir,
		Service: cfg.Observability.ServiceName,
		JSON:    a.jsonLogs,
		Output:  cmd.ErrOrStderr(),
	})

	shutdown, err := telemetry.Init(cmd.Context(), cfg.Observability)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdown = shutdown
	return nil
}

// close flushes telemetry and closes log files. Safe when setup never ran.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
		a.shutdown = nil
	}
	if a.logger != nil {
		errs = append(errs, a.logger.Close())
	}
	return errors.Join(errs...)
}

// printer returns the configured printer, or a stdout printer when setup
// failed before creating one.
func (a *app) printer() *ux.Printer {
	if a.out != nil {
		return a.out
	}
	return ux.Stdout()
}
