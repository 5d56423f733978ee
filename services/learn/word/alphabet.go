// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package word

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSymbol indicates a symbol was added to an alphabet twice.
	ErrDuplicateSymbol = errors.New("duplicate alphabet symbol")

	// ErrUnknownSymbol indicates a symbol that is not part of the alphabet.
	ErrUnknownSymbol = errors.New("unknown alphabet symbol")
)

// Alphabet is an ordered set of input symbols with a dense index.
//
// Indices are assigned in insertion order and never change, so an alphabet
// can grow while learning without invalidating transition tables.
//
// Thread Safety: Not safe for concurrent mutation.
type Alphabet[I comparable] struct {
	syms  []I
	index map[I]int
}

// NewAlphabet creates an alphabet from the given symbols.
//
// Outputs:
//
//	*Alphabet[I] - The alphabet.
//	error - ErrDuplicateSymbol if a symbol repeats.
func NewAlphabet[I comparable](syms ...I) (*Alphabet[I], error) {
	a := &Alphabet[I]{
		syms:  make([]I, 0, len(syms)),
		index: make(map[I]int, len(syms)),
	}
	for _, s := range syms {
		if _, err := a.Add(s); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// MustAlphabet is like NewAlphabet but panics on error.
func MustAlphabet[I comparable](syms ...I) *Alphabet[I] {
	a, err := NewAlphabet(syms...)
	if err != nil {
		panic(err)
	}
	return a
}

// Add appends sym and returns its index.
func (a *Alphabet[I]) Add(sym I) (int, error) {
	if _, ok := a.index[sym]; ok {
		return 0, fmt.Errorf("%w: %v", ErrDuplicateSymbol, sym)
	}
	a.index[sym] = len(a.syms)
	a.syms = append(a.syms, sym)
	return len(a.syms) - 1, nil
}

// Size returns the number of symbols.
func (a *Alphabet[I]) Size() int {
	return len(a.syms)
}

// Symbol returns the symbol with index i.
func (a *Alphabet[I]) Symbol(i int) I {
	return a.syms[i]
}

// Index returns the index of sym.
func (a *Alphabet[I]) Index(sym I) (int, bool) {
	i, ok := a.index[sym]
	return i, ok
}

// Contains reports whether sym is part of the alphabet.
func (a *Alphabet[I]) Contains(sym I) bool {
	_, ok := a.index[sym]
	return ok
}

// Symbols returns a copy of the symbols in index order.
func (a *Alphabet[I]) Symbols() []I {
	out := make([]I, len(a.syms))
	copy(out, a.syms)
	return out
}

// Clone returns an independent copy.
func (a *Alphabet[I]) Clone() *Alphabet[I] {
	c := &Alphabet[I]{
		syms:  a.Symbols(),
		index: make(map[I]int, len(a.index)),
	}
	for k, v := range a.index {
		c.index[k] = v
	}
	return c
}

// Covers reports whether every symbol of w belongs to the alphabet.
func (a *Alphabet[I]) Covers(w Word[I]) bool {
	for _, s := range w.syms {
		if !a.Contains(s) {
			return false
		}
	}
	return true
}
