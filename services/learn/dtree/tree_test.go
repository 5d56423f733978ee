// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dtree

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// =============================================================================
// Helpers
// =============================================================================

func w(s string) word.Word[string] {
	if s == "" {
		return word.Epsilon[string]()
	}
	return word.Of(strings.Split(s, "")...)
}

// evenEven accepts words with an even number of a's and of b's.
func evenEven() oracle.Func[string, bool] {
	return func(_ context.Context, prefix, suffix word.Word[string]) (bool, error) {
		a, b := 0, 0
		in := prefix.Concat(suffix)
		for i := 0; i < in.Len(); i++ {
			if in.At(i) == "a" {
				a++
			} else {
				b++
			}
		}
		return a%2 == 0 && b%2 == 0, nil
	}
}

// counting wraps an oracle and counts queries.
type counting struct {
	delegate oracle.MembershipOracle[string, bool]
	n        int
	fail     bool
}

func (c *counting) ProcessQueries(ctx context.Context, qs []*oracle.Query[string, bool]) error {
	if c.fail {
		return errors.New("oracle down")
	}
	c.n += len(qs)
	return c.delegate.ProcessQueries(ctx, qs)
}

// =============================================================================
// Construction
// =============================================================================

func TestNewBinary_EpsilonRoot(t *testing.T) {
	tree := NewBinary[string](evenEven(), true)

	require.False(t, tree.IsLeaf(tree.Root()))
	assert.True(t, tree.Discriminator(tree.Root()).IsEmpty())
	assert.Len(t, tree.Children(tree.Root()), 2)
	assert.Len(t, tree.Leaves(), 2)

	acc, ok := tree.Child(tree.Root(), true)
	require.True(t, ok)
	out, hasParent := tree.Outcome(acc)
	assert.True(t, hasParent)
	assert.True(t, out)
	assert.Equal(t, 1, tree.Depth(acc))
}

func TestNewBinary_PlainRoot(t *testing.T) {
	tree := NewBinary[string](evenEven(), false)

	assert.True(t, tree.IsLeaf(tree.Root()))
	assert.Equal(t, 1, tree.Size())
	_, hasParent := tree.Outcome(tree.Root())
	assert.False(t, hasParent)
	assert.Panics(t, func() { tree.Discriminator(tree.Root()) })
}

// =============================================================================
// Sift
// =============================================================================

func TestSift(t *testing.T) {
	mo := &counting{delegate: evenEven()}
	tree := NewBinary[string](mo, true)

	acc, _ := tree.Child(tree.Root(), true)
	rej, _ := tree.Child(tree.Root(), false)

	leaf, err := tree.Sift(context.Background(), tree.Root(), w("abab"))
	require.NoError(t, err)
	assert.Equal(t, acc, leaf)

	leaf, err = tree.Sift(context.Background(), tree.Root(), w("a"))
	require.NoError(t, err)
	assert.Equal(t, rej, leaf)
	assert.Equal(t, 2, mo.n)

	// Sifting from a leaf does not query.
	leaf, err = tree.Sift(context.Background(), rej, w("b"))
	require.NoError(t, err)
	assert.Equal(t, rej, leaf)
	assert.Equal(t, 2, mo.n)
}

func TestSift_Idempotent(t *testing.T) {
	tree := NewBinary[string](evenEven(), true)
	for _, in := range []string{"", "a", "ab", "ba", "aabb"} {
		first, err := tree.Sift(context.Background(), tree.Root(), w(in))
		require.NoError(t, err)
		second, err := tree.Sift(context.Background(), tree.Root(), w(in))
		require.NoError(t, err)
		assert.Equal(t, first, second, in)
	}
}

func TestSift_OracleError(t *testing.T) {
	tree := NewBinary[string](&counting{delegate: evenEven(), fail: true}, true)
	_, err := tree.Sift(context.Background(), tree.Root(), w("a"))
	assert.ErrorContains(t, err, "oracle down")
}

func TestSift_MultiCreatesLeavesLazily(t *testing.T) {
	length := oracle.Func[string, int](func(_ context.Context, prefix, _ word.Word[string]) (int, error) {
		return prefix.Len() % 3, nil
	})
	tree := NewMulti[string, int](length, func(a, b int) bool { return a == b })
	tree.Bind(tree.Root(), 0)

	res, err := tree.Split(context.Background(), tree.Root(), w("x"), 0, 1, nil)
	require.NoError(t, err)
	assert.Len(t, tree.Children(res.Inner), 2)

	leaf, err := tree.Sift(context.Background(), tree.Root(), w("xx"))
	require.NoError(t, err)
	assert.Len(t, tree.Children(res.Inner), 3)
	_, bound := tree.State(leaf)
	assert.False(t, bound)

	again, err := tree.Sift(context.Background(), tree.Root(), w("yy"))
	require.NoError(t, err)
	assert.Equal(t, leaf, again)
}

// =============================================================================
// Binding and incoming sets
// =============================================================================

func TestBind(t *testing.T) {
	tree := NewBinary[string](evenEven(), true)
	acc, _ := tree.Child(tree.Root(), true)

	tree.Bind(acc, 0)
	s, ok := tree.State(acc)
	assert.True(t, ok)
	assert.Equal(t, automaton.StateID(0), s)
	assert.Equal(t, 1, tree.BoundLeaves())

	assert.Panics(t, func() { tree.Bind(acc, 1) })
	assert.Panics(t, func() { tree.Bind(tree.Root(), 1) })
}

func TestIncoming_OrderedSet(t *testing.T) {
	tree := NewBinary[string](evenEven(), false)
	leaf := tree.Root()

	assert.True(t, tree.AddIncoming(leaf, TransitionRef{Source: 2, Input: 0}))
	assert.True(t, tree.AddIncoming(leaf, TransitionRef{Source: 0, Input: 1}))
	assert.True(t, tree.AddIncoming(leaf, TransitionRef{Source: 0, Input: 0}))
	assert.False(t, tree.AddIncoming(leaf, TransitionRef{Source: 0, Input: 1}))

	assert.Equal(t, []TransitionRef{{0, 0}, {0, 1}, {2, 0}}, tree.Incoming(leaf))

	assert.True(t, tree.RemoveIncoming(leaf, TransitionRef{Source: 0, Input: 1}))
	assert.False(t, tree.RemoveIncoming(leaf, TransitionRef{Source: 0, Input: 1}))
	assert.Equal(t, []TransitionRef{{0, 0}, {2, 0}}, tree.Incoming(leaf))
}

// =============================================================================
// Split
// =============================================================================

// splitFixture builds an epsilon-root tree for even/even with state 0 (ε)
// bound to the accepting leaf and state 1 (a) bound to the rejecting leaf.
// Transitions of both states are classified as a sift would classify them.
func splitFixture(t *testing.T, mo oracle.MembershipOracle[string, bool]) (*Tree[string, bool], map[TransitionRef]word.Word[string]) {
	t.Helper()
	tree := NewBinary[string](mo, true)
	acc, _ := tree.Child(tree.Root(), true)
	rej, _ := tree.Child(tree.Root(), false)
	tree.Bind(acc, 0)
	tree.Bind(rej, 1)

	access := []word.Word[string]{w(""), w("a")}
	inputs := []string{"a", "b"}
	contexts := make(map[TransitionRef]word.Word[string])
	for s, as := range access {
		for i, sym := range inputs {
			ref := TransitionRef{Source: automaton.StateID(s), Input: i}
			contexts[ref] = as.Append(sym)
			leaf, err := tree.Sift(context.Background(), tree.Root(), contexts[ref])
			require.NoError(t, err)
			tree.AddIncoming(leaf, ref)
		}
	}
	return tree, contexts
}

func TestSplit_RedistributesIncoming(t *testing.T) {
	tree, contexts := splitFixture(t, evenEven())
	rej, _ := tree.Child(tree.Root(), false)
	before := tree.Incoming(rej)
	require.Len(t, before, 3) // ε·a, ε·b, a·b

	// Discriminator "b" separates a (ab rejects) from b (bb accepts).
	res, err := tree.Split(context.Background(), rej, w("b"), false, true,
		func(ref TransitionRef) word.Word[string] { return contexts[ref] })
	require.NoError(t, err)

	assert.Equal(t, rej, res.Inner)
	assert.False(t, tree.IsLeaf(rej))
	s, ok := tree.State(res.Old)
	require.True(t, ok)
	assert.Equal(t, automaton.StateID(1), s)
	_, ok = tree.State(res.New)
	assert.False(t, ok)

	// Every prior incoming transition moved exactly once.
	require.Len(t, res.Moves, len(before))
	total := len(tree.Incoming(res.Old)) + len(tree.Incoming(res.New))
	assert.Equal(t, len(before), total)
	assert.Empty(t, tree.Incoming(rej))

	// abb rejects, so a·b stays with the old state.
	assert.Contains(t, tree.Incoming(res.Old), TransitionRef{Source: 1, Input: 1})
	// bb accepts.
	assert.Contains(t, tree.Incoming(res.New), TransitionRef{Source: 0, Input: 1})
	// ab rejects.
	assert.Contains(t, tree.Incoming(res.Old), TransitionRef{Source: 0, Input: 0})

	require.NoError(t, tree.Validate())
}

func TestSplit_PreservesPriorClassification(t *testing.T) {
	tree, contexts := splitFixture(t, evenEven())
	rej, _ := tree.Child(tree.Root(), false)

	inputs := []string{"", "a", "b", "ab", "ba", "aab", "abb", "bbb", "abab"}
	before := make(map[string]NodeID)
	for _, in := range inputs {
		leaf, err := tree.Sift(context.Background(), tree.Root(), w(in))
		require.NoError(t, err)
		before[in] = leaf
	}

	_, err := tree.Split(context.Background(), rej, w("b"), false, true,
		func(ref TransitionRef) word.Word[string] { return contexts[ref] })
	require.NoError(t, err)

	for _, in := range inputs {
		leaf, err := tree.Sift(context.Background(), tree.Root(), w(in))
		require.NoError(t, err)
		// The new leaf is the old leaf or one of its children.
		if leaf != before[in] {
			assert.Equal(t, before[in], tree.Parent(leaf), in)
		}
		// Every discriminator that existed before still yields the same outcome.
		path := tree.Path(leaf)
		assert.Equal(t, tree.Path(before[in]), path[:tree.Depth(before[in])], in)
	}
}

func TestSplit_OracleErrorLeavesTreeUntouched(t *testing.T) {
	mo := &counting{delegate: evenEven()}
	tree, contexts := splitFixture(t, mo)
	rej, _ := tree.Child(tree.Root(), false)
	size := tree.Size()

	mo.fail = true
	_, err := tree.Split(context.Background(), rej, w("b"), false, true,
		func(ref TransitionRef) word.Word[string] { return contexts[ref] })
	require.Error(t, err)

	assert.True(t, tree.IsLeaf(rej))
	assert.Equal(t, size, tree.Size())
	assert.Len(t, tree.Incoming(rej), 3)
}

func TestSplit_Panics(t *testing.T) {
	tree, contexts := splitFixture(t, evenEven())
	rej, _ := tree.Child(tree.Root(), false)
	ctxOf := func(ref TransitionRef) word.Word[string] { return contexts[ref] }

	assert.PanicsWithValue(t,
		"dtree: invariant violated: split of leaf 1 on b with equal responses false",
		func() { _, _ = tree.Split(context.Background(), rej, w("b"), false, false, ctxOf) })

	assert.Panics(t, func() {
		_, _ = tree.Split(context.Background(), rej, word.Epsilon[string](), false, true, ctxOf)
	}, "epsilon already labels the root")

	assert.Panics(t, func() {
		_, _ = tree.Split(context.Background(), tree.Root(), w("b"), false, true, ctxOf)
	}, "root is inner")
}

// =============================================================================
// Structure queries
// =============================================================================

func TestLCAAndSeparator(t *testing.T) {
	tree, contexts := splitFixture(t, evenEven())
	acc, _ := tree.Child(tree.Root(), true)
	rej, _ := tree.Child(tree.Root(), false)

	res, err := tree.Split(context.Background(), rej, w("b"), false, true,
		func(ref TransitionRef) word.Word[string] { return contexts[ref] })
	require.NoError(t, err)

	assert.Equal(t, rej, tree.LCA(res.Old, res.New))
	assert.Equal(t, tree.Root(), tree.LCA(acc, res.New))

	disc, outA, outB, ok := tree.Separator(res.Old, res.New)
	require.True(t, ok)
	assert.Equal(t, "b", disc.String())
	assert.False(t, outA)
	assert.True(t, outB)

	_, _, _, ok = tree.Separator(rej, res.New)
	assert.False(t, ok)

	path := tree.Path(res.New)
	require.Len(t, path, 2)
	assert.True(t, path[0].Discriminator.IsEmpty())
	assert.False(t, path[0].Outcome)
	assert.True(t, path[1].Outcome)
}

func TestClone_Independent(t *testing.T) {
	tree, contexts := splitFixture(t, evenEven())
	rej, _ := tree.Child(tree.Root(), false)

	c := tree.Clone(evenEven())
	_, err := c.Split(context.Background(), rej, w("b"), false, true,
		func(ref TransitionRef) word.Word[string] { return contexts[ref] })
	require.NoError(t, err)

	assert.True(t, tree.IsLeaf(rej))
	assert.Len(t, tree.Incoming(rej), 3)
	assert.Equal(t, tree.BoundLeaves(), c.BoundLeaves())
	assert.Greater(t, c.Size(), tree.Size())
	require.NoError(t, tree.Validate())
	require.NoError(t, c.Validate())
}
