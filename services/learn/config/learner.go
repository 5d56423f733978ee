// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianLearn/services/learn/acex"
	"github.com/AleutianAI/AleutianLearn/services/learn/learner"
	"github.com/AleutianAI/AleutianLearn/services/learn/telemetry"
)

// Learner kinds.
const (
	KindDFA   = "dfa"
	KindMealy = "mealy"
	KindMoore = "moore"
)

// validate is shared by every Validate method; validator.Validate caches
// struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// LearnerConfig contains every setting of a learning run.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type LearnerConfig struct {
	// Kind selects the learner: dfa, mealy or moore.
	Kind string `yaml:"kind" validate:"oneof=dfa mealy moore"`

	// Analyzer locates counterexample breakpoints.
	Analyzer acex.Analyzer `yaml:"analyzer"`

	// Encoding selects boolean or raw effects. Raw is DFA only.
	Encoding learner.Encoding `yaml:"encoding"`

	// RepeatedEvaluation keeps refining with a counterexample until the
	// hypothesis agrees with it.
	RepeatedEvaluation bool `yaml:"repeated_evaluation"`

	// EpsilonRoot starts DFA learning with an inner root on the empty word.
	EpsilonRoot bool `yaml:"epsilon_root"`

	// MaxRounds bounds equivalence queries per run. 0 means no limit.
	MaxRounds int `yaml:"max_rounds" validate:"gte=0"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Observability configures tracing and metric export.
	Observability telemetry.Config `yaml:"observability"`
}

// DefaultLearnerConfig returns defaults matching learner.DefaultConfig.
func DefaultLearnerConfig() LearnerConfig {
	lc := learner.DefaultConfig()
	return LearnerConfig{
		Kind:               KindDFA,
		Analyzer:           lc.Analyzer,
		Encoding:           lc.Encoding,
		RepeatedEvaluation: lc.RepeatedEvaluation,
		EpsilonRoot:        lc.EpsilonRoot,
		MaxRounds:          0,
		LogLevel:           "info",
		Observability:      telemetry.DefaultConfig(),
	}
}

// LoadLearnerConfig loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - path: YAML file path. Empty skips the file.
//
// Outputs:
//   - LearnerConfig: Merged configuration.
//   - error: Non-nil if the file cannot be read or parsed, or the merged
//     result is invalid (wraps ErrInvalidConfig).
func LoadLearnerConfig(path string) (LearnerConfig, error) {
	cfg := DefaultLearnerConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *LearnerConfig) error {
	if v := os.Getenv("DTLEARN_KIND"); v != "" {
		cfg.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("DTLEARN_ANALYZER"); v != "" {
		a, err := acex.ParseAnalyzer(v)
		if err != nil {
			return fmt.Errorf("%w: DTLEARN_ANALYZER: %v", ErrInvalidConfig, err)
		}
		cfg.Analyzer = a
	}
	if v := os.Getenv("DTLEARN_ENCODING"); v != "" {
		e, err := learner.ParseEncoding(v)
		if err != nil {
			return fmt.Errorf("%w: DTLEARN_ENCODING: %v", ErrInvalidConfig, err)
		}
		cfg.Encoding = e
	}
	if v := os.Getenv("DTLEARN_MAX_ROUNDS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.MaxRounds = i
		}
	}
	if v := os.Getenv("DTLEARN_REPEATED_EVALUATION"); v != "" {
		cfg.RepeatedEvaluation = v == "true" || v == "1"
	}
	if v := os.Getenv("DTLEARN_EPSILON_ROOT"); v != "" {
		cfg.EpsilonRoot = v == "true" || v == "1"
	}
	if v := os.Getenv("DTLEARN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks field constraints and cross-field rules.
//
// Outputs:
//   - error: Non-nil wrapping ErrInvalidConfig and, for tag failures,
//     validator.ValidationErrors.
func (c LearnerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !c.Analyzer.Valid() {
		return fmt.Errorf("%w: analyzer %s", ErrInvalidConfig, c.Analyzer)
	}
	if c.Encoding == learner.EncodingRaw && c.Kind != KindDFA {
		return fmt.Errorf("%w: raw encoding requires kind dfa, got %s", ErrInvalidConfig, c.Kind)
	}
	return nil
}

// LearnerOptions converts the file settings into learner options.
//
// Inputs:
//   - logger: Passed through; nil selects slog.Default().
//   - metrics: Passed through; nil selects telemetry.DefaultMetrics().
func (c LearnerConfig) LearnerOptions(logger *slog.Logger, metrics *telemetry.Metrics) *learner.Config {
	return &learner.Config{
		Analyzer:           c.Analyzer,
		Encoding:           c.Encoding,
		RepeatedEvaluation: c.RepeatedEvaluation,
		EpsilonRoot:        c.EpsilonRoot,
		Logger:             logger,
		Metrics:            metrics,
	}
}
