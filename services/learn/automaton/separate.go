// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package automaton

import (
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// pair is a state of the product automaton.
type pair struct {
	a, b StateID
}

// bfsEntry remembers how a product state was first reached.
type bfsEntry[I comparable] struct {
	from pair
	sym  I
	root bool
}

// separate runs a breadth-first search over the product of a and b and
// returns the shortest word w with differs(state after w) or a differing
// transition on the last symbol of w.
//
// Undefined successors are represented by NoState on the affected side and
// the search continues, so partial automata compare like completions with a
// rejecting sink.
func separate[I comparable](
	a, b Automaton[I],
	inputs []I,
	stateDiffers func(p, q StateID) bool,
	transDiffers func(p, q StateID, sym I) bool,
) (word.Word[I], bool) {
	start := pair{a.InitialState(), b.InitialState()}
	seen := map[pair]bfsEntry[I]{start: {root: true}}
	if stateDiffers(start.a, start.b) {
		return word.Epsilon[I](), true
	}

	queue := []pair{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, sym := range inputs {
			if transDiffers(cur.a, cur.b, sym) {
				return trace(seen, cur).Append(sym), true
			}
			next := pair{step(a, cur.a, sym), step(b, cur.b, sym)}
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = bfsEntry[I]{from: cur, sym: sym}
			if stateDiffers(next.a, next.b) {
				return trace(seen, next), true
			}
			queue = append(queue, next)
		}
	}
	return word.Word[I]{}, false
}

func step[I comparable](a Automaton[I], s StateID, sym I) StateID {
	if s == NoState {
		return NoState
	}
	return a.Successor(s, sym)
}

func trace[I comparable](seen map[pair]bfsEntry[I], p pair) word.Word[I] {
	var rev []I
	for {
		e := seen[p]
		if e.root {
			break
		}
		rev = append(rev, e.sym)
		p = e.from
	}
	syms := make([]I, len(rev))
	for i := range rev {
		syms[i] = rev[len(rev)-1-i]
	}
	return word.Of(syms...)
}

// SeparatingWordDFA returns a shortest word accepted by exactly one of a and
// b. The second result is false when they accept the same language over
// inputs.
func SeparatingWordDFA[I comparable](a, b DFA[I], inputs []I) (word.Word[I], bool) {
	accepts := func(d DFA[I], s StateID) bool { return s != NoState && d.IsAccepting(s) }
	return separate[I](a, b, inputs,
		func(p, q StateID) bool { return accepts(a, p) != accepts(b, q) },
		func(StateID, StateID, I) bool { return false },
	)
}

// SeparatingWordMealy returns a shortest input word on which a and b produce
// different outputs.
func SeparatingWordMealy[I comparable, O comparable](a, b Mealy[I, O], inputs []I) (word.Word[I], bool) {
	return separate[I](a, b, inputs,
		func(StateID, StateID) bool { return false },
		func(p, q StateID, sym I) bool {
			pn, qn := step[I](a, p, sym), step[I](b, q, sym)
			if (pn == NoState) != (qn == NoState) {
				return true
			}
			if pn == NoState {
				return false
			}
			return a.TransitionOutput(p, sym) != b.TransitionOutput(q, sym)
		},
	)
}

// SeparatingWordMoore returns a shortest input word after which a and b
// produce different state outputs.
func SeparatingWordMoore[I comparable, O comparable](a, b Moore[I, O], inputs []I) (word.Word[I], bool) {
	return separate[I](a, b, inputs,
		func(p, q StateID) bool {
			if (p == NoState) != (q == NoState) {
				return true
			}
			return p != NoState && a.StateOutput(p) != b.StateOutput(q)
		},
		func(StateID, StateID, I) bool { return false },
	)
}

// Equivalent reports whether two DFAs accept the same language over inputs.
func Equivalent[I comparable](a, b DFA[I], inputs []I) bool {
	_, found := SeparatingWordDFA(a, b, inputs)
	return !found
}
