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
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

// NodeID addresses a node in a tree's arena.
type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = -1

// TransitionRef identifies a hypothesis transition by source state and input
// index.
type TransitionRef struct {
	Source automaton.StateID
	Input  int
}

func compareRefs(a, b TransitionRef) int {
	if c := cmp.Compare(a.Source, b.Source); c != 0 {
		return c
	}
	return cmp.Compare(a.Input, b.Input)
}

// -----------------------------------------------------------------------------
// Policies
// -----------------------------------------------------------------------------

// Policy decides how inner nodes branch on oracle responses.
type Policy[R any] struct {
	// Name identifies the policy in logs.
	Name string

	// MaxBranching bounds the children of an inner node. Zero is unbounded.
	MaxBranching int

	// Equal compares two responses.
	Equal func(a, b R) bool
}

// BinaryPolicy branches on boolean responses.
func BinaryPolicy() Policy[bool] {
	return Policy[bool]{
		Name:         "binary",
		MaxBranching: 2,
		Equal:        func(a, b bool) bool { return a == b },
	}
}

// MultiPolicy branches on arbitrary responses compared by equal.
func MultiPolicy[R any](equal func(a, b R) bool) Policy[R] {
	return Policy[R]{Name: "multi", Equal: equal}
}

// -----------------------------------------------------------------------------
// Tree
// -----------------------------------------------------------------------------

type child[R any] struct {
	outcome R
	node    NodeID
}

type node[I comparable, R any] struct {
	parent  NodeID
	outcome R
	depth   int

	inner         bool
	discriminator word.Word[I]
	children      []child[R]

	state    automaton.StateID
	incoming []TransitionRef
}

// Tree is a discrimination tree over inputs I with oracle responses R.
type Tree[I comparable, R any] struct {
	oracle oracle.MembershipOracle[I, R]
	policy Policy[R]
	nodes  []node[I, R]
	bound  int
}

// New creates a tree whose root is a single unbound leaf.
func New[I comparable, R any](mo oracle.MembershipOracle[I, R], policy Policy[R]) *Tree[I, R] {
	t := &Tree[I, R]{oracle: mo, policy: policy}
	t.nodes = append(t.nodes, node[I, R]{parent: NoNode, state: automaton.NoState})
	return t
}

// NewBinary creates a boolean tree. With epsilonRoot the root is an inner
// node on the empty word with both leaves already present.
func NewBinary[I comparable](mo oracle.MembershipOracle[I, bool], epsilonRoot bool) *Tree[I, bool] {
	t := New(mo, BinaryPolicy())
	if epsilonRoot {
		t.nodes[0].inner = true
		t.nodes[0].discriminator = word.Epsilon[I]()
		t.addChild(0, false)
		t.addChild(0, true)
	}
	return t
}

// NewMulti creates a tree branching on arbitrary responses.
func NewMulti[I comparable, R any](mo oracle.MembershipOracle[I, R], equal func(a, b R) bool) *Tree[I, R] {
	return New(mo, MultiPolicy(equal))
}

// Policy returns the branching policy.
func (t *Tree[I, R]) Policy() Policy[R] { return t.policy }

// Root returns the root node.
func (t *Tree[I, R]) Root() NodeID { return 0 }

// Size returns the number of nodes.
func (t *Tree[I, R]) Size() int { return len(t.nodes) }

// IsLeaf reports whether n is a leaf.
func (t *Tree[I, R]) IsLeaf(n NodeID) bool { return !t.nodes[n].inner }

// Parent returns the parent of n, or NoNode for the root.
func (t *Tree[I, R]) Parent(n NodeID) NodeID { return t.nodes[n].parent }

// Depth returns the number of edges between the root and n.
func (t *Tree[I, R]) Depth(n NodeID) int { return t.nodes[n].depth }

// Outcome returns the response labelling the edge into n. The second result
// is false for the root.
func (t *Tree[I, R]) Outcome(n NodeID) (R, bool) {
	return t.nodes[n].outcome, t.nodes[n].parent != NoNode
}

// Discriminator returns the discriminator of inner node n.
func (t *Tree[I, R]) Discriminator(n NodeID) word.Word[I] {
	t.mustInner(n)
	return t.nodes[n].discriminator
}

// Children returns the children of n in creation order.
func (t *Tree[I, R]) Children(n NodeID) []NodeID {
	out := make([]NodeID, len(t.nodes[n].children))
	for i, c := range t.nodes[n].children {
		out[i] = c.node
	}
	return out
}

// Child returns the child of n for response out.
func (t *Tree[I, R]) Child(n NodeID, out R) (NodeID, bool) {
	for _, c := range t.nodes[n].children {
		if t.policy.Equal(c.outcome, out) {
			return c.node, true
		}
	}
	return NoNode, false
}

// State returns the state bound to leaf n.
func (t *Tree[I, R]) State(n NodeID) (automaton.StateID, bool) {
	s := t.nodes[n].state
	return s, !t.nodes[n].inner && s != automaton.NoState
}

// Bind attaches state s to the unbound leaf n.
func (t *Tree[I, R]) Bind(n NodeID, s automaton.StateID) {
	t.mustLeaf(n)
	if t.nodes[n].state != automaton.NoState {
		panic(fmt.Sprintf("dtree: invariant violated: leaf %d already bound to state %d", n, t.nodes[n].state))
	}
	t.nodes[n].state = s
	t.bound++
}

// BoundLeaves returns the number of leaves bound to a state.
func (t *Tree[I, R]) BoundLeaves() int { return t.bound }

// Leaves returns all leaves in id order.
func (t *Tree[I, R]) Leaves() []NodeID {
	var out []NodeID
	for i := range t.nodes {
		if !t.nodes[i].inner {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Incoming sets
// -----------------------------------------------------------------------------

// Incoming returns the transitions classified into leaf n, ordered by
// source state and input.
func (t *Tree[I, R]) Incoming(n NodeID) []TransitionRef {
	return slices.Clone(t.nodes[n].incoming)
}

// AddIncoming records that ref was classified into leaf n. Returns false if
// it was already present.
func (t *Tree[I, R]) AddIncoming(n NodeID, ref TransitionRef) bool {
	t.mustLeaf(n)
	return t.insertIncoming(n, ref)
}

// RemoveIncoming removes ref from leaf n. Returns false if it was absent.
func (t *Tree[I, R]) RemoveIncoming(n NodeID, ref TransitionRef) bool {
	in := t.nodes[n].incoming
	i, found := slices.BinarySearchFunc(in, ref, compareRefs)
	if !found {
		return false
	}
	t.nodes[n].incoming = slices.Delete(in, i, i+1)
	return true
}

func (t *Tree[I, R]) insertIncoming(n NodeID, ref TransitionRef) bool {
	in := t.nodes[n].incoming
	i, found := slices.BinarySearchFunc(in, ref, compareRefs)
	if found {
		return false
	}
	t.nodes[n].incoming = slices.Insert(in, i, ref)
	return true
}

// -----------------------------------------------------------------------------
// Sift
// -----------------------------------------------------------------------------

// Sift classifies prefix starting at node start.
//
// Description:
//
//	At each inner node the oracle is asked for prefix·discriminator and the
//	walk descends to the child for the response. Under the multi policy an
//	unseen response creates a fresh unbound leaf.
//
// Inputs:
//
//	ctx - Passed to the oracle.
//	start - Node to start from. Use Root() for a full sift.
//	prefix - Word to classify.
//
// Outputs:
//
//	NodeID - The leaf reached.
//	error - Non-nil if the oracle fails. The tree is unchanged except for
//	        leaves created by earlier levels of this sift.
func (t *Tree[I, R]) Sift(ctx context.Context, start NodeID, prefix word.Word[I]) (NodeID, error) {
	n := start
	for t.nodes[n].inner {
		out, err := oracle.AnswerQuery(ctx, t.oracle, prefix, t.nodes[n].discriminator)
		if err != nil {
			return NoNode, fmt.Errorf("sift %s at node %d: %w", prefix, n, err)
		}
		n = t.childFor(n, out)
	}
	return n, nil
}

// SiftState sifts prefix from the root and returns the state of the leaf
// reached, or automaton.NoState if it is unbound.
func (t *Tree[I, R]) SiftState(ctx context.Context, prefix word.Word[I]) (automaton.StateID, NodeID, error) {
	leaf, err := t.Sift(ctx, t.Root(), prefix)
	if err != nil {
		return automaton.NoState, NoNode, err
	}
	s, _ := t.State(leaf)
	return s, leaf, nil
}

// -----------------------------------------------------------------------------
// Split
// -----------------------------------------------------------------------------

// Move records where a split reclassified an incoming transition.
type Move struct {
	Ref  TransitionRef
	Leaf NodeID
}

// SplitResult describes the outcome of Split.
type SplitResult struct {
	// Inner is the former leaf, now an inner node.
	Inner NodeID

	// Old holds the state previously bound to the leaf.
	Old NodeID

	// New is the unbound leaf for the state being introduced.
	New NodeID

	// Moves lists every redistributed incoming transition, ordered like the
	// incoming set was.
	Moves []Move
}

// Split turns leaf into an inner node on discriminator.
//
// Description:
//
//	Creates exactly two children: Old under oldOut inheriting the leaf's
//	state, and an unbound New under newOut. Every transition in the leaf's
//	incoming set is reclassified with one batched oracle call on
//	contextOf(ref)·discriminator and moved into the child for its response.
//	Under the multi policy a response matching neither child creates an
//	additional unbound leaf.
//
//	All oracle calls happen before the tree is modified, so an oracle error
//	leaves the tree untouched.
//
// Inputs:
//
//	ctx - Passed to the oracle.
//	leaf - The leaf to split.
//	discriminator - New discriminator. Must not occur above leaf.
//	oldOut - Response of the leaf's state to discriminator.
//	newOut - Response of the new state to discriminator. Must differ from oldOut.
//	contextOf - Returns the word a transition stands for (source access
//	            sequence followed by its input).
//
// Outputs:
//
//	SplitResult - The new nodes and the moved transitions.
//	error - Non-nil if the oracle fails.
//
// Panics if leaf is inner, if the responses are equal, or if discriminator
// repeats on the path.
func (t *Tree[I, R]) Split(
	ctx context.Context,
	leaf NodeID,
	discriminator word.Word[I],
	oldOut, newOut R,
	contextOf func(TransitionRef) word.Word[I],
) (SplitResult, error) {
	t.mustLeaf(leaf)
	if t.policy.Equal(oldOut, newOut) {
		panic(fmt.Sprintf("dtree: invariant violated: split of leaf %d on %s with equal responses %v", leaf, discriminator, oldOut))
	}
	if t.onPath(leaf, discriminator) {
		panic(fmt.Sprintf("dtree: invariant violated: discriminator %s repeats above leaf %d", discriminator, leaf))
	}

	refs := t.nodes[leaf].incoming
	queries := make([]*oracle.Query[I, R], len(refs))
	for i, ref := range refs {
		queries[i] = oracle.NewQuery[I, R](contextOf(ref), discriminator)
	}
	if err := oracle.AnswerBatch(ctx, t.oracle, queries); err != nil {
		return SplitResult{}, fmt.Errorf("split leaf %d on %s: %w", leaf, discriminator, err)
	}

	state := t.nodes[leaf].state
	t.nodes[leaf].inner = true
	t.nodes[leaf].discriminator = discriminator
	t.nodes[leaf].incoming = nil
	t.nodes[leaf].state = automaton.NoState

	oldLeaf := t.addChild(leaf, oldOut)
	newLeaf := t.addChild(leaf, newOut)
	t.nodes[oldLeaf].state = state

	moves := make([]Move, len(refs))
	for i, ref := range refs {
		dst := t.childFor(leaf, queries[i].Output())
		t.insertIncoming(dst, ref)
		moves[i] = Move{Ref: ref, Leaf: dst}
	}

	return SplitResult{Inner: leaf, Old: oldLeaf, New: newLeaf, Moves: moves}, nil
}

// -----------------------------------------------------------------------------
// Structure queries
// -----------------------------------------------------------------------------

// Step is one edge of a root-to-node path.
type Step[I comparable, R any] struct {
	Discriminator word.Word[I]
	Outcome       R
}

// Path returns the discriminators and outcomes from the root down to n.
func (t *Tree[I, R]) Path(n NodeID) []Step[I, R] {
	steps := make([]Step[I, R], t.nodes[n].depth)
	for cur := n; t.nodes[cur].parent != NoNode; cur = t.nodes[cur].parent {
		p := t.nodes[cur].parent
		steps[t.nodes[p].depth] = Step[I, R]{
			Discriminator: t.nodes[p].discriminator,
			Outcome:       t.nodes[cur].outcome,
		}
	}
	return steps
}

// LCA returns the lowest common ancestor of a and b.
func (t *Tree[I, R]) LCA(a, b NodeID) NodeID {
	for t.nodes[a].depth > t.nodes[b].depth {
		a = t.nodes[a].parent
	}
	for t.nodes[b].depth > t.nodes[a].depth {
		b = t.nodes[b].parent
	}
	for a != b {
		a, b = t.nodes[a].parent, t.nodes[b].parent
	}
	return a
}

// Separator returns the discriminator of the lowest common ancestor of a and
// b together with the responses leading towards a and towards b. The last
// result is false when one node is an ancestor of the other.
func (t *Tree[I, R]) Separator(a, b NodeID) (word.Word[I], R, R, bool) {
	lca := t.LCA(a, b)
	var zero R
	if lca == a || lca == b {
		return word.Word[I]{}, zero, zero, false
	}
	return t.nodes[lca].discriminator, t.childOutcomeToward(lca, a), t.childOutcomeToward(lca, b), true
}

func (t *Tree[I, R]) childOutcomeToward(ancestor, n NodeID) R {
	for t.nodes[n].parent != ancestor {
		n = t.nodes[n].parent
	}
	return t.nodes[n].outcome
}

// Clone returns a deep copy of the tree that queries mo.
func (t *Tree[I, R]) Clone(mo oracle.MembershipOracle[I, R]) *Tree[I, R] {
	c := &Tree[I, R]{
		oracle: mo,
		policy: t.policy,
		nodes:  make([]node[I, R], len(t.nodes)),
		bound:  t.bound,
	}
	for i, n := range t.nodes {
		n.children = slices.Clone(n.children)
		n.incoming = slices.Clone(n.incoming)
		c.nodes[i] = n
	}
	return c
}

// Validate checks the structural invariants and returns the first violation.
func (t *Tree[I, R]) Validate() error {
	seenRefs := make(map[TransitionRef]NodeID)
	seenStates := make(map[automaton.StateID]NodeID)
	bound := 0
	for i := range t.nodes {
		id := NodeID(i)
		n := t.nodes[i]
		if n.inner {
			if t.onPath(id, n.discriminator) {
				return fmt.Errorf("discriminator %s repeats above node %d", n.discriminator, id)
			}
			if len(n.incoming) > 0 || n.state != automaton.NoState {
				return fmt.Errorf("inner node %d carries leaf data", id)
			}
			continue
		}
		if n.state != automaton.NoState {
			if other, dup := seenStates[n.state]; dup {
				return fmt.Errorf("state %d bound to leaves %d and %d", n.state, other, id)
			}
			seenStates[n.state] = id
			bound++
		}
		for _, ref := range n.incoming {
			if other, dup := seenRefs[ref]; dup {
				return fmt.Errorf("transition %v classified into leaves %d and %d", ref, other, id)
			}
			seenRefs[ref] = id
		}
	}
	if bound != t.bound {
		return fmt.Errorf("bound leaf count %d, tracked %d", bound, t.bound)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

func (t *Tree[I, R]) addChild(parent NodeID, out R) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node[I, R]{
		parent:  parent,
		outcome: out,
		depth:   t.nodes[parent].depth + 1,
		state:   automaton.NoState,
	})
	t.nodes[parent].children = append(t.nodes[parent].children, child[R]{outcome: out, node: id})
	return id
}

func (t *Tree[I, R]) childFor(n NodeID, out R) NodeID {
	if c, ok := t.Child(n, out); ok {
		return c
	}
	if t.policy.MaxBranching > 0 && len(t.nodes[n].children) >= t.policy.MaxBranching {
		panic(fmt.Sprintf("dtree: invariant violated: node %d exceeds %s branching with response %v", n, t.policy.Name, out))
	}
	return t.addChild(n, out)
}

// onPath reports whether disc labels a strict ancestor of n.
func (t *Tree[I, R]) onPath(n NodeID, disc word.Word[I]) bool {
	for p := t.nodes[n].parent; p != NoNode; p = t.nodes[p].parent {
		if t.nodes[p].discriminator.Equal(disc) {
			return true
		}
	}
	return false
}

func (t *Tree[I, R]) mustLeaf(n NodeID) {
	if t.nodes[n].inner {
		panic(fmt.Sprintf("dtree: invariant violated: node %d is not a leaf", n))
	}
}

func (t *Tree[I, R]) mustInner(n NodeID) {
	if !t.nodes[n].inner {
		panic(fmt.Sprintf("dtree: invariant violated: node %d is not an inner node", n))
	}
}
