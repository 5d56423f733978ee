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

import (
	"context"
	"fmt"

	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/dtree"
	"github.com/AleutianAI/AleutianLearn/services/learn/hypothesis"
	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// MooreLearner learns Moore machines over a multi-way tree keyed by output
// words.
type MooreLearner[I comparable, O comparable] struct {
	*Engine[I, word.Word[O], O, struct{}]
}

// NewMooreLearner creates a Moore learner. The oracle answers the output of
// the state reached by the prefix followed by one output per suffix symbol.
// Only EncodingBoolean is supported.
func NewMooreLearner[I comparable, O comparable](alphabet *word.Alphabet[I], mo oracle.MembershipOracle[I, word.Word[O]], cfg *Config) (*MooreLearner[I, O], error) {
	c, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	if c.Encoding != EncodingBoolean {
		return nil, fmt.Errorf("%w: %s for moore", ErrUnsupportedEncoding, c.Encoding)
	}
	tree := dtree.NewMulti[I](mo, word.Word[O].Equal)
	return &MooreLearner[I, O]{newEngine[I, word.Word[O], O, struct{}](alphabet, mo, tree, mooreSemantics[I, O]{}, c)}, nil
}

// Model returns the hypothesis as a Moore machine.
func (l *MooreLearner[I, O]) Model() hypothesis.MooreView[I, O, struct{}] {
	return hypothesis.MooreView[I, O, struct{}]{Hypothesis: l.Hypothesis()}
}

type mooreSemantics[I comparable, O comparable] struct{}

func (mooreSemantics[I, O]) Kind() string { return "moore" }

func (mooreSemantics[I, O]) Equal(a, b word.Word[O]) bool { return a.Equal(b) }

func (mooreSemantics[I, O]) StateProperty(ctx context.Context, mo oracle.MembershipOracle[I, word.Word[O]], tree *dtree.Tree[I, word.Word[O]], leaf dtree.NodeID, as word.Word[I]) (O, error) {
	for _, step := range tree.Path(leaf) {
		if step.Discriminator.IsEmpty() && step.Outcome.Len() == 1 {
			return step.Outcome.At(0), nil
		}
	}
	out, err := oracle.AnswerQuery(ctx, mo, as, word.Epsilon[I]())
	if err != nil {
		var zero O
		return zero, err
	}
	if out.Len() != 1 {
		var zero O
		return zero, fmt.Errorf("%w: %d outputs for the empty suffix", ErrOutputLength, out.Len())
	}
	return out.At(0), nil
}

func (mooreSemantics[I, O]) TransitionProperty(context.Context, oracle.MembershipOracle[I, word.Word[O]], word.Word[I], I) (struct{}, error) {
	return struct{}{}, nil
}

func (mooreSemantics[I, O]) HypothesisOutput(h *hypothesis.Hypothesis[I, O, struct{}], prefix, suffix word.Word[I]) word.Word[O] {
	out, _ := automaton.MooreOutput[I, O](hypothesis.MooreView[I, O, struct{}]{Hypothesis: h}, prefix, suffix)
	return out
}
