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

// MealyLearner learns Mealy machines over a multi-way tree keyed by output
// words.
type MealyLearner[I comparable, O comparable] struct {
	*Engine[I, word.Word[O], struct{}, O]
}

// NewMealyLearner creates a Mealy learner. The oracle answers the outputs
// produced while reading the suffix. Only EncodingBoolean is supported.
func NewMealyLearner[I comparable, O comparable](alphabet *word.Alphabet[I], mo oracle.MembershipOracle[I, word.Word[O]], cfg *Config) (*MealyLearner[I, O], error) {
	c, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	if c.Encoding != EncodingBoolean {
		return nil, fmt.Errorf("%w: %s for mealy", ErrUnsupportedEncoding, c.Encoding)
	}
	tree := dtree.NewMulti[I](mo, word.Word[O].Equal)
	return &MealyLearner[I, O]{newEngine[I, word.Word[O], struct{}, O](alphabet, mo, tree, mealySemantics[I, O]{}, c)}, nil
}

// Model returns the hypothesis as a Mealy machine.
func (l *MealyLearner[I, O]) Model() hypothesis.MealyView[I, struct{}, O] {
	return hypothesis.MealyView[I, struct{}, O]{Hypothesis: l.Hypothesis()}
}

type mealySemantics[I comparable, O comparable] struct{}

func (mealySemantics[I, O]) Kind() string { return "mealy" }

func (mealySemantics[I, O]) Equal(a, b word.Word[O]) bool { return a.Equal(b) }

func (mealySemantics[I, O]) StateProperty(context.Context, oracle.MembershipOracle[I, word.Word[O]], *dtree.Tree[I, word.Word[O]], dtree.NodeID, word.Word[I]) (struct{}, error) {
	return struct{}{}, nil
}

func (mealySemantics[I, O]) TransitionProperty(ctx context.Context, mo oracle.MembershipOracle[I, word.Word[O]], as word.Word[I], sym I) (O, error) {
	out, err := oracle.AnswerQuery(ctx, mo, as, word.Of(sym))
	if err != nil {
		var zero O
		return zero, err
	}
	if out.Len() != 1 {
		var zero O
		return zero, fmt.Errorf("%w: %d outputs for one input", ErrOutputLength, out.Len())
	}
	return out.At(0), nil
}

func (mealySemantics[I, O]) HypothesisOutput(h *hypothesis.Hypothesis[I, struct{}, O], prefix, suffix word.Word[I]) word.Word[O] {
	out, _ := automaton.MealyOutput[I, O](hypothesis.MealyView[I, struct{}, O]{Hypothesis: h}, prefix, suffix)
	return out
}
