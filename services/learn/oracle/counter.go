// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// -----------------------------------------------------------------------------
// Query Purposes (for cardinality protection)
// -----------------------------------------------------------------------------

// Purpose labels why a learner issued a query.
type Purpose string

const (
	PurposeSift           Purpose = "sift"
	PurposeSplit          Purpose = "split"
	PurposeCounterexample Purpose = "counterexample"
	PurposeProperty       Purpose = "property"
	PurposeUnknown        Purpose = "unknown"
)

var knownPurposes = map[Purpose]bool{
	PurposeSift:           true,
	PurposeSplit:          true,
	PurposeCounterexample: true,
	PurposeProperty:       true,
}

type purposeKey struct{}

// WithPurpose tags ctx so counting oracles attribute queries to p.
func WithPurpose(ctx context.Context, p Purpose) context.Context {
	return context.WithValue(ctx, purposeKey{}, p)
}

// PurposeFromContext returns the purpose stored in ctx, or PurposeUnknown.
func PurposeFromContext(ctx context.Context) Purpose {
	p, ok := ctx.Value(purposeKey{}).(Purpose)
	if !ok || !knownPurposes[p] {
		return PurposeUnknown
	}
	return p
}

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

var (
	// queriesTotal counts membership queries.
	//
	// Labels:
	//   - oracle: name given to NewCountingOracle
	//   - purpose: sift, split, counterexample, property, or unknown
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dtlearn",
			Subsystem: "oracle",
			Name:      "queries_total",
			Help:      "Total membership queries by oracle and purpose",
		},
		[]string{"oracle", "purpose"},
	)

	// symbolsTotal counts input symbols across all queries.
	symbolsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dtlearn",
			Subsystem: "oracle",
			Name:      "symbols_total",
			Help:      "Total input symbols submitted in membership queries by oracle",
		},
		[]string{"oracle"},
	)

	// batchesTotal counts ProcessQueries calls.
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dtlearn",
			Subsystem: "oracle",
			Name:      "batches_total",
			Help:      "Total membership query batches by oracle",
		},
		[]string{"oracle"},
	)
)

// -----------------------------------------------------------------------------
// CountingOracle
// -----------------------------------------------------------------------------

// CountingOracle decorates a MembershipOracle with query statistics.
//
// Counts are kept locally for programmatic access and mirrored into the
// dtlearn_oracle_* Prometheus counters.
//
// Thread Safety: Safe for concurrent use if the delegate is.
type CountingOracle[I comparable, D any] struct {
	delegate MembershipOracle[I, D]
	name     string

	queries atomic.Int64
	symbols atomic.Int64
}

// NewCountingOracle wraps delegate. name becomes the "oracle" label value.
func NewCountingOracle[I comparable, D any](name string, delegate MembershipOracle[I, D]) *CountingOracle[I, D] {
	return &CountingOracle[I, D]{delegate: delegate, name: name}
}

// ProcessQueries implements MembershipOracle.
func (c *CountingOracle[I, D]) ProcessQueries(ctx context.Context, queries []*Query[I, D]) error {
	var syms int64
	for _, q := range queries {
		syms += int64(q.Prefix.Len() + q.Suffix.Len())
	}
	n := int64(len(queries))
	c.queries.Add(n)
	c.symbols.Add(syms)

	purpose := string(PurposeFromContext(ctx))
	queriesTotal.WithLabelValues(c.name, purpose).Add(float64(n))
	symbolsTotal.WithLabelValues(c.name).Add(float64(syms))
	batchesTotal.WithLabelValues(c.name).Inc()

	return c.delegate.ProcessQueries(ctx, queries)
}

// QueryCount returns the number of queries seen.
func (c *CountingOracle[I, D]) QueryCount() int64 { return c.queries.Load() }

// SymbolCount returns the number of input symbols seen.
func (c *CountingOracle[I, D]) SymbolCount() int64 { return c.symbols.Load() }

// Name returns the label value used for metrics.
func (c *CountingOracle[I, D]) Name() string { return c.name }

// Reset zeroes the local counts. Prometheus counters are monotonic and are
// left untouched.
func (c *CountingOracle[I, D]) Reset() {
	c.queries.Store(0)
	c.symbols.Store(0)
}
