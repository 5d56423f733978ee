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

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianLearn/pkg/validation"
	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// sinkState names the rejecting state added to complete partial DFAs.
const sinkState = "__sink__"

// TargetSpec describes a reference system under learning.
type TargetSpec struct {
	Kind        string           `yaml:"kind" validate:"oneof=dfa mealy moore"`
	Name        string           `yaml:"name" validate:"required"`
	Alphabet    []string         `yaml:"alphabet" validate:"required,min=1,unique,dive,required"`
	Initial     string           `yaml:"initial" validate:"required"`
	States      []StateSpec      `yaml:"states" validate:"required,min=1,dive"`
	Transitions []TransitionSpec `yaml:"transitions" validate:"dive"`
}

// StateSpec is one target state. Accepting is read for DFAs, Output for
// Moore machines.
type StateSpec struct {
	Name      string `yaml:"name" validate:"required"`
	Accepting bool   `yaml:"accepting"`
	Output    string `yaml:"output"`
}

// TransitionSpec is one target edge. Output is read for Mealy machines.
type TransitionSpec struct {
	From   string `yaml:"from" validate:"required"`
	Input  string `yaml:"input" validate:"required"`
	To     string `yaml:"to" validate:"required"`
	Output string `yaml:"output"`
}

// LoadTarget reads and validates a target description.
func LoadTarget(path string) (*TargetSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read target file: %w", err)
	}
	return ParseTarget(data)
}

// ParseTarget decodes and validates a YAML target description.
func ParseTarget(data []byte) (*TargetSpec, error) {
	var spec TargetSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the tags and name syntax, then that states and symbols referenced by
// transitions exist, that no (state, input) pair has two edges, and that
// Mealy and Moore targets are complete.
func (t *TargetSpec) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	names := append([]string(nil), t.Alphabet...)
	for _, s := range t.States {
		names = append(names, s.Name)
	}
	if err := validation.ValidateIdentifiers(names); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	states := make(map[string]bool, len(t.States))
	for _, s := range t.States {
		if states[s.Name] {
			return fmt.Errorf("%w: duplicate state %q", ErrInvalidTarget, s.Name)
		}
		if s.Name == sinkState {
			return fmt.Errorf("%w: state name %q is reserved", ErrInvalidTarget, sinkState)
		}
		states[s.Name] = true
	}
	if !states[t.Initial] {
		return fmt.Errorf("%w: initial state %q not declared", ErrInvalidTarget, t.Initial)
	}

	symbols := make(map[string]bool, len(t.Alphabet))
	for _, a := range t.Alphabet {
		symbols[a] = true
	}

	edges := make(map[[2]string]bool, len(t.Transitions))
	for _, tr := range t.Transitions {
		if !states[tr.From] || !states[tr.To] {
			return fmt.Errorf("%w: transition %s -%s-> %s uses an undeclared state", ErrInvalidTarget, tr.From, tr.Input, tr.To)
		}
		if !symbols[tr.Input] {
			return fmt.Errorf("%w: transition input %q not in alphabet", ErrInvalidTarget, tr.Input)
		}
		key := [2]string{tr.From, tr.Input}
		if edges[key] {
			return fmt.Errorf("%w: duplicate transition from %q on %q", ErrInvalidTarget, tr.From, tr.Input)
		}
		edges[key] = true
	}

	if t.Kind != KindDFA {
		for _, s := range t.States {
			for _, a := range t.Alphabet {
				if !edges[[2]string{s.Name, a}] {
					return fmt.Errorf("%w: %s target has no transition from %q on %q", ErrInvalidTarget, t.Kind, s.Name, a)
				}
			}
		}
	}
	return nil
}

// InputAlphabet returns a fresh alphabet of the target's inputs.
func (t *TargetSpec) InputAlphabet() *word.Alphabet[string] {
	return word.MustAlphabet(t.Alphabet...)
}

// ids assigns state ids in declaration order with the initial state first.
func (t *TargetSpec) ids() (map[string]automaton.StateID, []StateSpec) {
	order := make([]StateSpec, 0, len(t.States))
	for _, s := range t.States {
		if s.Name == t.Initial {
			order = append(order, s)
		}
	}
	for _, s := range t.States {
		if s.Name != t.Initial {
			order = append(order, s)
		}
	}
	ids := make(map[string]automaton.StateID, len(order))
	for i, s := range order {
		ids[s.Name] = automaton.StateID(i)
	}
	return ids, order
}

func (t *TargetSpec) expect(kind string) error {
	if t.Kind != kind {
		return fmt.Errorf("%w: target %s is %s, not %s", ErrKindMismatch, t.Name, t.Kind, kind)
	}
	return nil
}

// DFA builds a complete DFA. Missing transitions go to a rejecting sink,
// added only when needed.
func (t *TargetSpec) DFA() (*automaton.CompactDFA[string], error) {
	if err := t.expect(KindDFA); err != nil {
		return nil, err
	}
	ids, order := t.ids()
	d := automaton.NewCompactDFA(t.InputAlphabet())
	for _, s := range order {
		d.AddState(s.Accepting)
	}
	for _, tr := range t.Transitions {
		if err := d.SetTransition(ids[tr.From], tr.Input, ids[tr.To]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
	}

	sink := automaton.NoState
	for s := 0; s < d.Size(); s++ {
		for _, a := range t.Alphabet {
			if d.Successor(automaton.StateID(s), a) != automaton.NoState {
				continue
			}
			if sink == automaton.NoState {
				sink = d.AddState(false)
				for _, b := range t.Alphabet {
					if err := d.SetTransition(sink, b, sink); err != nil {
						return nil, err
					}
				}
			}
			if err := d.SetTransition(automaton.StateID(s), a, sink); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// Mealy builds the Mealy machine described by the target.
func (t *TargetSpec) Mealy() (*automaton.CompactMealy[string, string], error) {
	if err := t.expect(KindMealy); err != nil {
		return nil, err
	}
	ids, order := t.ids()
	m := automaton.NewCompactMealy[string, string](t.InputAlphabet())
	for range order {
		m.AddState()
	}
	for _, tr := range t.Transitions {
		if err := m.SetTransition(ids[tr.From], tr.Input, ids[tr.To], tr.Output); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
	}
	return m, nil
}

// Moore builds the Moore machine described by the target.
func (t *TargetSpec) Moore() (*automaton.CompactMoore[string, string], error) {
	if err := t.expect(KindMoore); err != nil {
		return nil, err
	}
	ids, order := t.ids()
	m := automaton.NewCompactMoore[string, string](t.InputAlphabet())
	for _, s := range order {
		m.AddState(s.Output)
	}
	for _, tr := range t.Transitions {
		if err := m.SetTransition(ids[tr.From], tr.Input, ids[tr.To]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
	}
	return m, nil
}

// FSMOracle builds a looplab/fsm-backed membership oracle for a DFA target.
func (t *TargetSpec) FSMOracle() (*oracle.FSMOracle, error) {
	if err := t.expect(KindDFA); err != nil {
		return nil, err
	}
	var accepting []string
	for _, s := range t.States {
		if s.Accepting {
			accepting = append(accepting, s.Name)
		}
	}
	edges := make([]oracle.FSMTransition, len(t.Transitions))
	for i, tr := range t.Transitions {
		edges[i] = oracle.FSMTransition{From: tr.From, Input: tr.Input, To: tr.To}
	}
	return oracle.NewFSMOracle(t.Initial, accepting, edges)
}
