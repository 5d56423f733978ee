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

import "errors"

var (
	// ErrAlreadyStarted indicates StartLearning was called twice.
	ErrAlreadyStarted = errors.New("learning already started")

	// ErrNotStarted indicates an operation that needs an initial hypothesis.
	ErrNotStarted = errors.New("learning not started")

	// ErrNilCounterexample indicates RefineHypothesis was called with nil.
	ErrNilCounterexample = errors.New("counterexample must not be nil")

	// ErrForeignSymbol indicates a counterexample uses a symbol outside the
	// learner's alphabet.
	ErrForeignSymbol = errors.New("counterexample symbol not in alphabet")

	// ErrUnsupportedEncoding indicates an ACEX encoding the automaton kind
	// cannot use.
	ErrUnsupportedEncoding = errors.New("unsupported counterexample encoding")

	// ErrInvalidConfig indicates a learner configuration failed validation.
	ErrInvalidConfig = errors.New("invalid learner configuration")

	// ErrNotQuiescent indicates a snapshot was requested while transitions
	// are still open.
	ErrNotQuiescent = errors.New("hypothesis has open transitions")

	// ErrOutputLength indicates a membership oracle answered with an output
	// word of the wrong length.
	ErrOutputLength = errors.New("unexpected output length")

	// ErrInvariant indicates VerifyInvariants found a broken structural
	// invariant.
	ErrInvariant = errors.New("learner invariant violated")
)
