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
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
)

// FSMTransition is one edge of an FSMOracle target.
type FSMTransition struct {
	From  string
	Input string
	To    string
}

// FSMOracle answers DFA membership queries by driving a looplab/fsm state
// machine. Input symbols are fsm events; a symbol with no transition from
// the current state sends the run to an implicit rejecting sink.
//
// # Description
//
// Every query resets the machine to the initial state and fires one event per
// input symbol. Self loops surface from looplab/fsm as NoTransitionError and
// are treated as successful steps.
//
// # Thread Safety
//
// Safe for concurrent use; queries are serialized on one machine.
type FSMOracle struct {
	mu        sync.Mutex
	machine   *fsm.FSM
	initial   string
	accepting map[string]bool
	steps     int64
}

// NewFSMOracle builds an oracle for the DFA described by the arguments.
//
// Inputs:
//
//	initial - Initial state name.
//	accepting - Accepting state names.
//	transitions - Edges; at most one per (From, Input).
//
// Outputs:
//
//	*FSMOracle - The oracle.
//	error - Non-nil if an edge is duplicated or initial is empty.
func NewFSMOracle(initial string, accepting []string, transitions []FSMTransition) (*FSMOracle, error) {
	if initial == "" {
		return nil, errors.New("fsm oracle: initial state must not be empty")
	}

	seen := make(map[[2]string]bool, len(transitions))
	events := make(fsm.Events, 0, len(transitions))
	for _, tr := range transitions {
		key := [2]string{tr.From, tr.Input}
		if seen[key] {
			return nil, fmt.Errorf("fsm oracle: duplicate transition from %q on %q", tr.From, tr.Input)
		}
		seen[key] = true
		events = append(events, fsm.EventDesc{Name: tr.Input, Src: []string{tr.From}, Dst: tr.To})
	}

	o := &FSMOracle{
		initial:   initial,
		accepting: make(map[string]bool, len(accepting)),
	}
	for _, s := range accepting {
		o.accepting[s] = true
	}
	o.machine = fsm.NewFSM(initial, events, fsm.Callbacks{
		"enter_state": func(_ context.Context, _ *fsm.Event) {
			o.steps++
		},
	})
	return o, nil
}

// ProcessQueries implements MembershipOracle.
func (o *FSMOracle) ProcessQueries(ctx context.Context, queries []*Query[string, bool]) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, q := range queries {
		accepted, err := o.run(ctx, q)
		if err != nil {
			return &QueryError{Prefix: q.Prefix.String(), Suffix: q.Suffix.String(), Err: err}
		}
		q.Answer(accepted)
	}
	return nil
}

// StateChanges returns how many state-changing transitions fired so far.
func (o *FSMOracle) StateChanges() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.steps
}

func (o *FSMOracle) run(ctx context.Context, q *Query[string, bool]) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	o.machine.SetState(o.initial)

	input := q.Input()
	for i := 0; i < input.Len(); i++ {
		err := o.machine.Event(ctx, input.At(i))
		if err == nil {
			continue
		}

		var noTransition fsm.NoTransitionError
		var invalid fsm.InvalidEventError
		var unknown fsm.UnknownEventError
		switch {
		case errors.As(err, &noTransition):
			// self loop
		case errors.As(err, &invalid), errors.As(err, &unknown):
			return false, nil
		default:
			return false, err
		}
	}
	return o.accepting[o.machine.Current()], nil
}
