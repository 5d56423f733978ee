// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for names read from target
// descriptions.
//
// Input symbols and state names end up as looplab/fsm event and state names,
// in tab-separated machine output, and in log attributes. Whitespace and
// control characters would corrupt all three, so names are restricted to a
// small identifier alphabet.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches valid symbol and state names.
// Allows: letters, digits, underscore, dot, colon, hyphen.
// Must not start with a dot, colon, or hyphen. Max length: 64.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.:\-]{0,63}$`)

// ValidateIdentifier validates one symbol or state name.
//
// Valid identifiers:
//   - 1-64 characters
//   - Letters, digits, and underscores anywhere
//   - Dots, colons, and hyphens after the first character
//
// Example:
//
//	if err := validation.ValidateIdentifier(sym); err != nil {
//	    return fmt.Errorf("alphabet: %w", err)
//	}
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q (must be 1-64 chars of letters, digits, '_', '.', ':' or '-', not starting with '.', ':' or '-')", name)
	}

	return nil
}

// ValidateIdentifiers validates several names.
// Returns an error listing every invalid name if any fail validation.
func ValidateIdentifiers(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateIdentifier(n); err != nil {
			invalid = append(invalid, fmt.Sprintf("%q", n))
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid identifiers: %s", strings.Join(invalid, ", "))
	}
	return nil
}
