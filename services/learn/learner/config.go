// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package learner

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianLearn/services/learn/acex"
	"github.com/AleutianAI/AleutianLearn/services/learn/telemetry"
)

// Encoding selects how a counterexample is turned into effects.
type Encoding int

const (
	// EncodingBoolean evaluates, per index i, whether the oracle output of
	// as(w[:i])·w[i:] matches the hypothesis output. Works for every kind.
	EncodingBoolean Encoding = iota

	// EncodingRaw uses the oracle output of as(w[:i])·w[i:] itself as the
	// effect. DFA only.
	EncodingRaw
)

// String returns "boolean" or "raw".
func (e Encoding) String() string {
	switch e {
	case EncodingBoolean:
		return "boolean"
	case EncodingRaw:
		return "raw"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// ParseEncoding resolves an encoding name case-insensitively.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "boolean", "bool":
		return EncodingBoolean, nil
	case "raw":
		return EncodingRaw, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Encoding) MarshalText() ([]byte, error) {
	if e != EncodingBoolean && e != EncodingRaw {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEncoding, int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encoding) UnmarshalText(text []byte) error {
	parsed, err := ParseEncoding(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Config holds learner options.
//
// Use DefaultConfig() for defaults; a nil *Config passed to a constructor
// means the same.
type Config struct {
	// Analyzer locates the breakpoint in a counterexample.
	Analyzer acex.Analyzer

	// Encoding selects the effect encoding.
	Encoding Encoding

	// RepeatedEvaluation keeps refining with the same counterexample while
	// the hypothesis still disagrees with it.
	RepeatedEvaluation bool

	// EpsilonRoot starts a DFA tree with an inner root on the empty word.
	// Ignored by Mealy and Moore learners.
	EpsilonRoot bool

	// Logger receives refinement logs. nil selects slog.Default().
	Logger *slog.Logger

	// Metrics receives learning metrics. nil selects
	// telemetry.DefaultMetrics().
	Metrics *telemetry.Metrics
}

// DefaultConfig returns the default learner configuration.
func DefaultConfig() *Config {
	return &Config{
		Analyzer:           acex.BinarySearchLeft,
		Encoding:           EncodingBoolean,
		RepeatedEvaluation: true,
		EpsilonRoot:        true,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Analyzer.Valid() {
		return fmt.Errorf("%w: analyzer %d", ErrInvalidConfig, int(c.Analyzer))
	}
	if c.Encoding != EncodingBoolean && c.Encoding != EncodingRaw {
		return fmt.Errorf("%w: encoding %d", ErrInvalidConfig, int(c.Encoding))
	}
	return nil
}

// resolve fills nil collaborators and validates.
func resolve(cfg *Config) (Config, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := *cfg
	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Metrics == nil {
		out.Metrics = telemetry.DefaultMetrics()
	}
	return out, nil
}
