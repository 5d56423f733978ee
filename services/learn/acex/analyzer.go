// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package acex

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Analyzer selects a breakpoint search strategy.
type Analyzer int

const (
	// LinearFwd scans upwards and returns the first breakpoint.
	LinearFwd Analyzer = iota

	// LinearBwd scans downwards and returns the last breakpoint.
	LinearBwd

	// BinarySearchLeft halves the range, keeping the left endpoint's effect.
	BinarySearchLeft

	// BinarySearchRight halves the range, keeping the right endpoint's effect.
	BinarySearchRight

	// ExponentialFwd probes at distances 1, 2, 4, ... from the low end, then
	// binary searches the bracket.
	ExponentialFwd

	// ExponentialBwd probes at distances 1, 2, 4, ... from the high end.
	ExponentialBwd

	// PartitionFwd probes in steps of span/log2(span) from the low end.
	PartitionFwd

	// PartitionBwd probes in steps of span/log2(span) from the high end.
	PartitionBwd
)

var analyzerNames = [...]string{
	LinearFwd:         "LinearFwd",
	LinearBwd:         "LinearBwd",
	BinarySearchLeft:  "BinarySearchLeft",
	BinarySearchRight: "BinarySearchRight",
	ExponentialFwd:    "ExponentialFwd",
	ExponentialBwd:    "ExponentialBwd",
	PartitionFwd:      "PartitionFwd",
	PartitionBwd:      "PartitionBwd",
}

// aliases maps normalized alternative names to analyzers.
var aliases = map[string]Analyzer{
	"linear":       LinearFwd,
	"binarysearch": BinarySearchLeft,
	"binary":       BinarySearchLeft,
	"exponential":  ExponentialFwd,
	"partition":    PartitionFwd,
}

// String returns the analyzer name.
func (a Analyzer) String() string {
	if a < 0 || int(a) >= len(analyzerNames) {
		return fmt.Sprintf("Analyzer(%d)", int(a))
	}
	return analyzerNames[a]
}

// Valid reports whether a names a known analyzer.
func (a Analyzer) Valid() bool {
	return a >= 0 && int(a) < len(analyzerNames)
}

// Forward reports whether the analyzer searches from the low end.
func (a Analyzer) Forward() bool {
	switch a {
	case LinearFwd, BinarySearchLeft, ExponentialFwd, PartitionFwd:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Analyzer) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAnalyzer, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Analyzer) UnmarshalText(text []byte) error {
	parsed, err := ParseAnalyzer(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAnalyzer resolves a name case-insensitively, ignoring '_' and '-'.
// "BinarySearch", "Linear", "Exponential" and "Partition" select the
// forward variants.
func ParseAnalyzer(name string) (Analyzer, error) {
	norm := normalize(name)
	for i, n := range analyzerNames {
		if normalize(n) == norm {
			return Analyzer(i), nil
		}
	}
	if a, ok := aliases[norm]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAnalyzer, name)
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, "-", "")
}

// Analyzers returns every analyzer in declaration order.
func Analyzers() []Analyzer {
	out := make([]Analyzer, len(analyzerNames))
	for i := range out {
		out[i] = Analyzer(i)
	}
	return out
}

// ForwardAnalyzers returns the analyzers searching from the low end.
func ForwardAnalyzers() []Analyzer {
	return filter(func(a Analyzer) bool { return a.Forward() })
}

// BackwardAnalyzers returns the analyzers searching from the high end.
func BackwardAnalyzers() []Analyzer {
	return filter(func(a Analyzer) bool { return !a.Forward() })
}

func filter(keep func(Analyzer) bool) []Analyzer {
	var out []Analyzer
	for _, a := range Analyzers() {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// =============================================================================
// Entry points
// =============================================================================

// Analyze finds a breakpoint of ce over its full range.
//
// Outputs:
//
//	int - Index i with 0 <= i < ce.Len() and incompatible effects at i, i+1.
//	error - ErrInvalidCounterexample if the endpoints are compatible, or an
//	        effect evaluation error.
func Analyze[E any](ctx context.Context, a Analyzer, ce Counterexample[E]) (int, error) {
	return AnalyzeRange(ctx, a, ce, 0, ce.Len())
}

// AnalyzeRange finds a breakpoint of ce within [low, high].
func AnalyzeRange[E any](ctx context.Context, a Analyzer, ce Counterexample[E], low, high int) (int, error) {
	if low < 0 || high > ce.Len() || low >= high {
		return 0, fmt.Errorf("%w: range [%d,%d] for length %d", ErrIndexOutOfRange, low, high, ce.Len())
	}
	compatible, err := Compatible(ctx, ce, low, high)
	if err != nil {
		return 0, err
	}
	if compatible {
		return 0, fmt.Errorf("%w: [%d,%d]", ErrInvalidCounterexample, low, high)
	}

	switch a {
	case LinearFwd:
		return linearSearchFwd(ctx, ce, low, high)
	case LinearBwd:
		return linearSearchBwd(ctx, ce, low, high)
	case BinarySearchLeft:
		return binarySearchLeft(ctx, ce, low, high)
	case BinarySearchRight:
		return binarySearchRight(ctx, ce, low, high)
	case ExponentialFwd:
		return exponentialSearchFwd(ctx, ce, low, high)
	case ExponentialBwd:
		return exponentialSearchBwd(ctx, ce, low, high)
	case PartitionFwd:
		return partitionSearchFwd(ctx, ce, low, high)
	case PartitionBwd:
		return partitionSearchBwd(ctx, ce, low, high)
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownAnalyzer, int(a))
	}
}

// =============================================================================
// Search strategies
// =============================================================================
//
// Every strategy assumes incompatible effects at low and high.

func linearSearchFwd[E any](ctx context.Context, ce Counterexample[E], low, high int) (int, error) {
	prev, err := ce.Effect(ctx, low)
	if err != nil {
		return 0, err
	}
	for i := low + 1; i <= high; i++ {
		cur, err := ce.Effect(ctx, i)
		if err != nil {
			return 0, err
		}
		if !ce.CheckEffects(prev, cur) {
			return i - 1, nil
		}
		prev = cur
	}
	panic(fmt.Sprintf("acex: invariant violated: no breakpoint in [%d,%d]", low, high))
}

func linearSearchBwd[E any](ctx context.Context, ce Counterexample[E], low, high int) (int, error) {
	prev, err := ce.Effect(ctx, high)
	if err != nil {
		return 0, err
	}
	for i := high - 1; i >= low; i-- {
		cur, err := ce.Effect(ctx, i)
		if err != nil {
			return 0, err
		}
		if !ce.CheckEffects(cur, prev) {
			return i, nil
		}
		prev = cur
	}
	panic(fmt.Sprintf("acex: invariant violated: no breakpoint in [%d,%d]", low, high))
}

func binarySearchLeft[E any](ctx context.Context, ce Counterexample[E], low, high int) (int, error) {
	effLow, err := ce.Effect(ctx, low)
	if err != nil {
		return 0, err
	}
	for high-low > 1 {
		mid := low + (high-low)/2
		effMid, err := ce.Effect(ctx, mid)
		if err != nil {
			return 0, err
		}
		if !ce.CheckEffects(effLow, effMid) {
			high = mid
		} else {
			low = mid
			effLow = effMid
		}
	}
	return low, nil
}

func binarySearchRight[E any](ctx context.Context, ce Counterexample[E], low, high int) (int, error) {
	effHigh, err := ce.Effect(ctx, high)
	if err != nil {
		return 0, err
	}
	for high-low > 1 {
		mid := low + (high-low)/2
		effMid, err := ce.Effect(ctx, mid)
		if err != nil {
			return 0, err
		}
		if !ce.CheckEffects(effMid, effHigh) {
			low = mid
		} else {
			high = mid
			effHigh = effMid
		}
	}
	return low, nil
}

func exponentialSearchFwd[E any](ctx context.Context, ce Counterexample[E], low, high int) (int, error) {
	effLow, err := ce.Effect(ctx, low)
	if err != nil {
		return 0, err
	}
	ofs := 1
	for low+ofs < high {
		next := low + ofs
		eff, err := ce.Effect(ctx, next)
		if err != nil {
			return 0, err
		}
		if !ce.CheckEffects(effLow, eff) {
			high = next
			break
		}
		low = next
		ofs *= 2
	}
	return binarySearchLeft(ctx, ce, low, high)
}

func exponentialSearchBwd[E any](ctx context.Context, ce Counterexample[E], low, high int) (int, error) {
	effHigh, err := ce.Effect(ctx, high)
	if err != nil {
		return 0, err
	}
	ofs := 1
	for high-ofs > low {
		next := high - ofs
		eff, err := ce.Effect(ctx, next)
		if err != nil {
			return 0, err
		}
		if !ce.CheckEffects(eff, effHigh) {
			low = next
			break
		}
		high = next
		ofs *= 2
	}
	return binarySearchRight(ctx, ce, low, high)
}

// partitionStep returns span/log2(span), at least 1.
func partitionStep(low, high int) int {
	span := high - low + 1
	step := int(float64(span) / math.Log2(float64(span)))
	if step < 1 {
		step = 1
	}
	return step
}

func partitionSearchFwd[E any](ctx context.Context, ce Counterexample[E], low, high int) (int, error) {
	effLow, err := ce.Effect(ctx, low)
	if err != nil {
		return 0, err
	}
	step := partitionStep(low, high)
	for low+step < high {
		next := low + step
		eff, err := ce.Effect(ctx, next)
		if err != nil {
			return 0, err
		}
		if !ce.CheckEffects(effLow, eff) {
			high = next
			break
		}
		low = next
	}
	return binarySearchLeft(ctx, ce, low, high)
}

func partitionSearchBwd[E any](ctx context.Context, ce Counterexample[E], low, high int) (int, error) {
	effHigh, err := ce.Effect(ctx, high)
	if err != nil {
		return 0, err
	}
	step := partitionStep(low, high)
	for high-step > low {
		next := high - step
		eff, err := ce.Effect(ctx, next)
		if err != nil {
			return 0, err
		}
		if !ce.CheckEffects(eff, effHigh) {
			low = next
			break
		}
		high = next
	}
	return binarySearchRight(ctx, ce, low, high)
}
