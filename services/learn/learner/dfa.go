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

	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/dtree"
	"github.com/AleutianAI/AleutianLearn/services/learn/hypothesis"
	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// DFALearner learns deterministic finite acceptors over a binary tree.
type DFALearner[I comparable] struct {
	*Engine[I, bool, bool, struct{}]
}

// NewDFALearner creates a DFA learner.
//
// Inputs:
//
//	alphabet - Input alphabet. Copied.
//	mo - Membership oracle answering acceptance of prefix·suffix.
//	cfg - Options. nil selects DefaultConfig().
//
// Outputs:
//
//	*DFALearner[I] - The learner. Call StartLearning before anything else.
//	error - Non-nil if cfg is invalid.
func NewDFALearner[I comparable](alphabet *word.Alphabet[I], mo oracle.MembershipOracle[I, bool], cfg *Config) (*DFALearner[I], error) {
	c, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	tree := dtree.NewBinary[I](mo, c.EpsilonRoot)
	return &DFALearner[I]{newEngine[I, bool, bool, struct{}](alphabet, mo, tree, dfaSemantics[I]{}, c)}, nil
}

// Model returns the hypothesis as a DFA.
func (l *DFALearner[I]) Model() hypothesis.DFAView[I, struct{}] {
	return hypothesis.DFAView[I, struct{}]{Hypothesis: l.Hypothesis()}
}

type dfaSemantics[I comparable] struct{}

func (dfaSemantics[I]) Kind() string { return "dfa" }

func (dfaSemantics[I]) Equal(a, b bool) bool { return a == b }

// StateProperty reuses an empty-word discriminator on the leaf's path when
// there is one; otherwise it asks the oracle.
func (dfaSemantics[I]) StateProperty(ctx context.Context, mo oracle.MembershipOracle[I, bool], tree *dtree.Tree[I, bool], leaf dtree.NodeID, as word.Word[I]) (bool, error) {
	for _, step := range tree.Path(leaf) {
		if step.Discriminator.IsEmpty() {
			return step.Outcome, nil
		}
	}
	return oracle.AnswerQuery(ctx, mo, as, word.Epsilon[I]())
}

func (dfaSemantics[I]) TransitionProperty(context.Context, oracle.MembershipOracle[I, bool], word.Word[I], I) (struct{}, error) {
	return struct{}{}, nil
}

func (dfaSemantics[I]) HypothesisOutput(h *hypothesis.Hypothesis[I, bool, struct{}], prefix, suffix word.Word[I]) bool {
	return automaton.Accepts[I](hypothesis.DFAView[I, struct{}]{Hypothesis: h}, prefix.Concat(suffix))
}
