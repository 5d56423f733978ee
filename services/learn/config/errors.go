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

import "errors"

var (
	// ErrInvalidConfig indicates a learner configuration that failed
	// validation. The validator's field errors are wrapped alongside it.
	ErrInvalidConfig = errors.New("invalid learner config")

	// ErrInvalidTarget indicates a target description that does not define
	// a well-formed automaton.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrKindMismatch indicates a builder called for a different kind than
	// the target declares.
	ErrKindMismatch = errors.New("target kind mismatch")
)
