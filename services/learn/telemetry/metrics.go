// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope of the learning metrics.
const MeterName = "dtlearn"

// Metrics contains the learning instruments.
//
// All metrics use the "learn_" prefix and carry a "kind" attribute
// (dfa, mealy, moore).
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- Refinement Metrics ---

	// RefinementsTotal counts RefineHypothesis calls by outcome
	// (refined, rejected, error).
	RefinementsTotal metric.Int64Counter

	// RefinementDuration records RefineHypothesis duration in seconds.
	RefinementDuration metric.Float64Histogram

	// CounterexampleLength records the length of refined counterexamples.
	CounterexampleLength metric.Int64Histogram

	// --- Tree Metrics ---

	// SplitsTotal counts leaf splits by analyzer.
	SplitsTotal metric.Int64Counter

	// --- Hypothesis Metrics ---

	// HypothesisStates records the hypothesis size after each stabilization.
	HypothesisStates metric.Int64Gauge

	// --- Experiment Metrics ---

	// EquivalenceQueriesTotal counts equivalence queries issued by experiments.
	EquivalenceQueriesTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments registered.
//
// Inputs:
//
//	meter - The OTel meter to use for registration.
//
// Outputs:
//
//	*Metrics - The registered instruments.
//	error - Non-nil if registration fails.
//
// Example:
//
//	metrics, err := telemetry.NewMetrics(otel.Meter(telemetry.MeterName))
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
//	metrics.SplitsTotal.Add(ctx, 1)
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- Refinement Metrics ---
	m.RefinementsTotal, err = meter.Int64Counter(
		"learn_refinements_total",
		metric.WithDescription("Total hypothesis refinement calls"),
		metric.WithUnit("{refinement}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create refinements_total: %w", err)
	}

	m.RefinementDuration, err = meter.Float64Histogram(
		"learn_refinement_duration_seconds",
		metric.WithDescription("Hypothesis refinement duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("create refinement_duration: %w", err)
	}

	m.CounterexampleLength, err = meter.Int64Histogram(
		"learn_counterexample_length",
		metric.WithDescription("Length of counterexamples passed to refinement"),
		metric.WithUnit("{symbol}"),
		metric.WithExplicitBucketBoundaries(1, 2, 4, 8, 16, 32, 64, 128, 256),
	)
	if err != nil {
		return nil, fmt.Errorf("create counterexample_length: %w", err)
	}

	// --- Tree Metrics ---
	m.SplitsTotal, err = meter.Int64Counter(
		"learn_splits_total",
		metric.WithDescription("Total discrimination tree leaf splits"),
		metric.WithUnit("{split}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create splits_total: %w", err)
	}

	// --- Hypothesis Metrics ---
	m.HypothesisStates, err = meter.Int64Gauge(
		"learn_hypothesis_states",
		metric.WithDescription("Number of hypothesis states"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create hypothesis_states: %w", err)
	}

	// --- Experiment Metrics ---
	m.EquivalenceQueriesTotal, err = meter.Int64Counter(
		"learn_equivalence_queries_total",
		metric.WithDescription("Total equivalence queries issued"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create equivalence_queries_total: %w", err)
	}

	return m, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns instruments registered on the global meter
// provider. Falls back to no-op instruments if registration fails.
//
// Thread Safety: Safe for concurrent use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.Meter(MeterName))
		if err != nil {
			m, _ = NewMetrics(noop.NewMeterProvider().Meter(MeterName))
		}
		defaultMetrics = m
	})
	return defaultMetrics
}
