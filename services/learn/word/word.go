// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package word provides the immutable input words and alphabets shared by
// every learning component.
//
// A Word never changes after construction. Derived words (prefixes,
// suffixes, concatenations) either share the backing array with a capped
// capacity or copy, so appending to a derived word can never overwrite the
// symbols of the word it was derived from.
package word

import (
	"fmt"
	"strings"
)

// Word is an immutable finite sequence of symbols.
//
// The zero value is the empty word.
type Word[I comparable] struct {
	syms []I
}

// Epsilon returns the empty word.
func Epsilon[I comparable]() Word[I] {
	return Word[I]{}
}

// Of returns a word holding a copy of the given symbols.
func Of[I comparable](syms ...I) Word[I] {
	if len(syms) == 0 {
		return Word[I]{}
	}
	cp := make([]I, len(syms))
	copy(cp, syms)
	return Word[I]{syms: cp}
}

// Len returns the number of symbols.
func (w Word[I]) Len() int {
	return len(w.syms)
}

// IsEmpty reports whether w is the empty word.
func (w Word[I]) IsEmpty() bool {
	return len(w.syms) == 0
}

// At returns the symbol at position i. Panics if i is out of range.
func (w Word[I]) At(i int) I {
	return w.syms[i]
}

// Prefix returns the first n symbols.
func (w Word[I]) Prefix(n int) Word[I] {
	w.checkLen(n)
	return Word[I]{syms: w.syms[:n:n]}
}

// Suffix returns the last n symbols.
func (w Word[I]) Suffix(n int) Word[I] {
	w.checkLen(n)
	start := len(w.syms) - n
	return Word[I]{syms: w.syms[start:len(w.syms):len(w.syms)]}
}

// SubWord returns the symbols in [from, to).
func (w Word[I]) SubWord(from, to int) Word[I] {
	if from < 0 || to > len(w.syms) || from > to {
		panic(fmt.Sprintf("word: sub-word [%d,%d) out of range for length %d", from, to, len(w.syms)))
	}
	return Word[I]{syms: w.syms[from:to:to]}
}

// From returns the symbols from position i to the end.
func (w Word[I]) From(i int) Word[I] {
	return w.SubWord(i, len(w.syms))
}

// Append returns w followed by sym.
func (w Word[I]) Append(sym I) Word[I] {
	out := make([]I, len(w.syms)+1)
	copy(out, w.syms)
	out[len(w.syms)] = sym
	return Word[I]{syms: out}
}

// Prepend returns sym followed by w.
func (w Word[I]) Prepend(sym I) Word[I] {
	out := make([]I, len(w.syms)+1)
	out[0] = sym
	copy(out[1:], w.syms)
	return Word[I]{syms: out}
}

// Concat returns w followed by every word in others.
func (w Word[I]) Concat(others ...Word[I]) Word[I] {
	n := len(w.syms)
	for _, o := range others {
		n += len(o.syms)
	}
	if n == len(w.syms) {
		return w
	}
	out := make([]I, 0, n)
	out = append(out, w.syms...)
	for _, o := range others {
		out = append(out, o.syms...)
	}
	return Word[I]{syms: out}
}

// Equal reports whether w and o hold the same symbols in the same order.
func (w Word[I]) Equal(o Word[I]) bool {
	if len(w.syms) != len(o.syms) {
		return false
	}
	for i := range w.syms {
		if w.syms[i] != o.syms[i] {
			return false
		}
	}
	return true
}

// Symbols returns a copy of the symbols.
func (w Word[I]) Symbols() []I {
	out := make([]I, len(w.syms))
	copy(out, w.syms)
	return out
}

// String renders the word with space separated symbols, or "ε" when empty.
func (w Word[I]) String() string {
	if len(w.syms) == 0 {
		return "ε"
	}
	parts := make([]string, len(w.syms))
	for i, s := range w.syms {
		parts[i] = fmt.Sprint(s)
	}
	return strings.Join(parts, " ")
}

func (w Word[I]) checkLen(n int) {
	if n < 0 || n > len(w.syms) {
		panic(fmt.Sprintf("word: length %d out of range for length %d", n, len(w.syms)))
	}
}
