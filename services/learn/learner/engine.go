// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package learner implements discrimination-tree active automata learning.
//
// An Engine owns a classification tree and a hypothesis automaton. It seeds
// both with the initial state, resolves every open transition by sifting,
// and refines the hypothesis from counterexamples: the counterexample is
// turned into an abstract counterexample, an analyzer finds the breakpoint,
// and the tree leaf of the state reached after the breakpoint is split on
// the remaining suffix.
//
// DFALearner, MealyLearner and MooreLearner bind the engine to the three
// automaton kinds.
//
// # Failure Model
//
// Oracle errors are returned from StartLearning, RefineHypothesis and
// AddAlphabetSymbol. After such an error the engine state is undefined and
// the learner must be discarded (or restored from a Snapshot). Internal
// invariant violations panic.
//
// # Thread Safety
//
// An Engine is not safe for concurrent use.
package learner

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianLearn/services/learn/acex"
	"github.com/AleutianAI/AleutianLearn/services/learn/automaton"
	"github.com/AleutianAI/AleutianLearn/services/learn/dtree"
	"github.com/AleutianAI/AleutianLearn/services/learn/hypothesis"
	"github.com/AleutianAI/AleutianLearn/services/learn/oracle"
	"github.com/AleutianAI/AleutianLearn/services/learn/telemetry"
	"github.com/AleutianAI/AleutianLearn/services/learn/word"
)

const tracerName = "dtlearn.learner"

// Semantics binds the engine to an automaton kind.
//
// D is the membership oracle output, SP the state property and TP the
// transition property.
type Semantics[I comparable, D any, SP any, TP any] interface {
	// Kind names the automaton kind for logs and metrics.
	Kind() string

	// Equal compares two oracle outputs.
	Equal(a, b D) bool

	// StateProperty computes the property of a new state with access
	// sequence as, bound to leaf.
	StateProperty(ctx context.Context, mo oracle.MembershipOracle[I, D], tree *dtree.Tree[I, D], leaf dtree.NodeID, as word.Word[I]) (SP, error)

	// TransitionProperty computes the property of the transition leaving the
	// state with access sequence as on sym.
	TransitionProperty(ctx context.Context, mo oracle.MembershipOracle[I, D], as word.Word[I], sym I) (TP, error)

	// HypothesisOutput returns what h answers for (prefix, suffix), in the
	// oracle's output convention. h has no open transitions.
	HypothesisOutput(h *hypothesis.Hypothesis[I, SP, TP], prefix, suffix word.Word[I]) D
}

// Stats counts engine activity.
type Stats struct {
	// Refinements counts RefineHypothesis calls that split at least once.
	Refinements int

	// Rejected counts RefineHypothesis calls with a non-counterexample.
	Rejected int

	// Splits counts leaf splits.
	Splits int
}

// Engine is the generic discrimination-tree learner.
type Engine[I comparable, D any, SP any, TP any] struct {
	cfg     Config
	mo      oracle.MembershipOracle[I, D]
	sem     Semantics[I, D, SP, TP]
	tree    *dtree.Tree[I, D]
	hyp     *hypothesis.Hypothesis[I, SP, TP]
	props   map[dtree.TransitionRef]TP
	started bool
	stats   Stats
	attrs   metric.MeasurementOption
}

func newEngine[I comparable, D any, SP any, TP any](
	alphabet *word.Alphabet[I],
	mo oracle.MembershipOracle[I, D],
	tree *dtree.Tree[I, D],
	sem Semantics[I, D, SP, TP],
	cfg Config,
) *Engine[I, D, SP, TP] {
	return &Engine[I, D, SP, TP]{
		cfg:   cfg,
		mo:    mo,
		sem:   sem,
		tree:  tree,
		hyp:   hypothesis.New[I, SP, TP](alphabet),
		props: make(map[dtree.TransitionRef]TP),
		attrs: metric.WithAttributes(
			attribute.String("kind", sem.Kind()),
			attribute.String("analyzer", cfg.Analyzer.String()),
		),
	}
}

// Hypothesis returns the current hypothesis. Read only.
func (e *Engine[I, D, SP, TP]) Hypothesis() *hypothesis.Hypothesis[I, SP, TP] { return e.hyp }

// Tree returns the classification tree. Read only.
func (e *Engine[I, D, SP, TP]) Tree() *dtree.Tree[I, D] { return e.tree }

// Alphabet returns the current input alphabet.
func (e *Engine[I, D, SP, TP]) Alphabet() *word.Alphabet[I] { return e.hyp.Alphabet() }

// Config returns the resolved configuration.
func (e *Engine[I, D, SP, TP]) Config() Config { return e.cfg }

// Stats returns activity counters.
func (e *Engine[I, D, SP, TP]) Stats() Stats { return e.stats }

// Started reports whether StartLearning succeeded.
func (e *Engine[I, D, SP, TP]) Started() bool { return e.started }

// Kind returns "dfa", "mealy" or "moore".
func (e *Engine[I, D, SP, TP]) Kind() string { return e.sem.Kind() }

// Size returns the number of hypothesis states.
func (e *Engine[I, D, SP, TP]) Size() int { return e.hyp.Size() }

// =============================================================================
// Learning
// =============================================================================

// StartLearning builds the initial hypothesis.
//
// Description:
//
//	Sifts the empty word into the tree, binds the initial state to the
//	resulting leaf and resolves all transitions. Returns ErrAlreadyStarted
//	on a second call.
//
// Inputs:
//
//	ctx - Passed to the membership oracle.
//
// Outputs:
//
//	error - Non-nil on a second call or if the oracle fails.
func (e *Engine[I, D, SP, TP]) StartLearning(ctx context.Context) error {
	if e.started {
		return ErrAlreadyStarted
	}
	ctx, span := telemetry.StartSpan(ctx, tracerName, "learner.StartLearning",
		trace.WithAttributes(
			attribute.String("kind", e.sem.Kind()),
			attribute.Int("alphabet_size", e.hyp.Alphabet().Size()),
		),
	)
	defer span.End()

	eps := word.Epsilon[I]()
	leaf, err := e.tree.Sift(oracle.WithPurpose(ctx, oracle.PurposeSift), e.tree.Root(), eps)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("sift initial state: %w", err)
	}
	init, err := e.createState(ctx, eps, leaf, nil)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := e.stabilize(ctx, e.transitionsOf(init)); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	e.started = true
	e.recordSize(ctx)

	e.logger(ctx).Info("initial hypothesis built",
		slog.String("kind", e.sem.Kind()),
		slog.Int("states", e.hyp.Size()),
	)
	telemetry.SetSpanOK(span)
	return nil
}

// RefineHypothesis refines the hypothesis with a counterexample.
//
// Description:
//
//	Returns (false, nil) without touching any state when the hypothesis
//	already answers ce.Output for ce. Otherwise finds a breakpoint, splits
//	the affected leaf and re-stabilizes. With RepeatedEvaluation the same
//	counterexample is analyzed again until the hypothesis agrees with it.
//
// Inputs:
//
//	ctx - Passed to the membership oracle.
//	ce - The counterexample. Prefix and Suffix are interpreted in the
//	     oracle's output convention.
//
// Outputs:
//
//	bool - True if at least one split happened.
//	error - Non-nil if the learner is not started, ce is unusable, or the
//	        oracle fails.
func (e *Engine[I, D, SP, TP]) RefineHypothesis(ctx context.Context, ce *oracle.DefaultQuery[I, D]) (bool, error) {
	if !e.started {
		return false, ErrNotStarted
	}
	if ce == nil {
		return false, ErrNilCounterexample
	}
	input := ce.Input()
	if !e.hyp.Alphabet().Covers(input) {
		return false, fmt.Errorf("%w: %s", ErrForeignSymbol, input)
	}

	ctx, span := telemetry.StartSpan(ctx, tracerName, "learner.RefineHypothesis",
		trace.WithAttributes(
			attribute.String("kind", e.sem.Kind()),
			attribute.String("analyzer", e.cfg.Analyzer.String()),
			attribute.Int("ce_length", input.Len()),
		),
	)
	defer span.End()
	start := time.Now()

	if e.sem.Equal(e.sem.HypothesisOutput(e.hyp, ce.Prefix, ce.Suffix), ce.Output) {
		e.stats.Rejected++
		e.cfg.Metrics.RefinementsTotal.Add(ctx, 1, e.attrs, metric.WithAttributes(attribute.String("outcome", "rejected")))
		e.logger(ctx).Debug("not a counterexample", slog.String("input", input.String()))
		telemetry.SetSpanOK(span)
		return false, nil
	}

	w, out, err := e.normalize(ctx, ce)
	if err != nil {
		return false, e.fail(ctx, span, err)
	}
	e.cfg.Metrics.CounterexampleLength.Record(ctx, int64(w.Len()), e.attrs)

	splits := 0
	for {
		if err := e.refineOnce(ctx, w, out); err != nil {
			return false, e.fail(ctx, span, err)
		}
		splits++
		if !e.cfg.RepeatedEvaluation {
			break
		}
		if e.sem.Equal(e.sem.HypothesisOutput(e.hyp, word.Epsilon[I](), w), out) {
			break
		}
	}

	e.stats.Refinements++
	e.cfg.Metrics.RefinementsTotal.Add(ctx, 1, e.attrs, metric.WithAttributes(attribute.String("outcome", "refined")))
	e.cfg.Metrics.RefinementDuration.Record(ctx, time.Since(start).Seconds(), e.attrs)
	e.recordSize(ctx)
	span.SetAttributes(attribute.Int("splits", splits), attribute.Int("states", e.hyp.Size()))

	e.logger(ctx).Info("hypothesis refined",
		slog.String("kind", e.sem.Kind()),
		slog.Int("ce_length", w.Len()),
		slog.Int("splits", splits),
		slog.Int("states", e.hyp.Size()),
	)
	telemetry.SetSpanOK(span)
	return true, nil
}

// AddAlphabetSymbol extends the alphabet with sym and resolves the new
// transitions. Adding a symbol already in the alphabet is a no-op. Before
// StartLearning the symbol is only recorded.
func (e *Engine[I, D, SP, TP]) AddAlphabetSymbol(ctx context.Context, sym I) error {
	if e.hyp.Alphabet().Contains(sym) {
		return nil
	}
	_, refs, err := e.hyp.AddAlphabetSymbol(sym, e.tree.Root())
	if err != nil {
		return err
	}
	if !e.started {
		return nil
	}
	if err := e.stabilize(ctx, refs); err != nil {
		return fmt.Errorf("add symbol %v: %w", sym, err)
	}
	e.logger(ctx).Info("alphabet extended",
		slog.String("symbol", fmt.Sprint(sym)),
		slog.Int("alphabet_size", e.hyp.Alphabet().Size()),
		slog.Int("states", e.hyp.Size()),
	)
	e.recordSize(ctx)
	return nil
}

// =============================================================================
// Refinement
// =============================================================================

// normalize turns ce into an equivalent counterexample with an empty prefix.
func (e *Engine[I, D, SP, TP]) normalize(ctx context.Context, ce *oracle.DefaultQuery[I, D]) (word.Word[I], D, error) {
	if ce.Prefix.IsEmpty() {
		return ce.Suffix, ce.Output, nil
	}
	w := ce.Input()
	out, err := oracle.AnswerQuery(oracle.WithPurpose(ctx, oracle.PurposeCounterexample), e.mo, word.Epsilon[I](), w)
	if err != nil {
		var zero D
		return w, zero, fmt.Errorf("normalize counterexample: %w", err)
	}
	return w, out, nil
}

// refineOnce performs one split driven by the prefix-free counterexample w.
func (e *Engine[I, D, SP, TP]) refineOnce(ctx context.Context, w word.Word[I], out D) error {
	idx, err := e.breakpoint(ctx, w, out)
	if err != nil {
		return fmt.Errorf("analyze counterexample %s: %w", w, err)
	}

	u := e.hyp.TransformAccessSequence(w.Prefix(idx))
	a := w.At(idx)
	v := w.From(idx + 1)
	ua := u.Append(a)
	src := e.hyp.Reach(u)
	succ := e.hyp.Reach(ua)
	succState := e.hyp.State(succ)

	splitCtx := oracle.WithPurpose(ctx, oracle.PurposeSplit)
	qs := []*oracle.Query[I, D]{
		oracle.NewQuery[I, D](succState.AccessSequence, v),
		oracle.NewQuery[I, D](ua, v),
	}
	if err := oracle.AnswerBatch(splitCtx, e.mo, qs); err != nil {
		return fmt.Errorf("split outputs: %w", err)
	}
	oldOut, newOut := qs[0].Output(), qs[1].Output()
	if e.sem.Equal(oldOut, newOut) {
		panic(fmt.Sprintf("learner: invariant violated: breakpoint %d of %s does not separate %s from %s", idx, w, succState.AccessSequence, ua))
	}

	res, err := e.tree.Split(splitCtx, succState.Leaf, v, oldOut, newOut, e.contextOf)
	if err != nil {
		return err
	}
	e.hyp.SetLeaf(succ, res.Old)
	e.stats.Splits++
	e.cfg.Metrics.SplitsTotal.Add(ctx, 1, e.attrs)

	symIdx, _ := e.hyp.Alphabet().Index(a)
	treeIn := dtree.TransitionRef{Source: src, Input: symIdx}
	created, err := e.createState(ctx, ua, res.New, &treeIn)
	if err != nil {
		return err
	}

	queue := e.transitionsOf(created)
	for _, mv := range res.Moves {
		if mv.Leaf == res.Old {
			continue
		}
		e.hyp.SetOpen(mv.Ref, mv.Leaf)
		queue = append(queue, mv.Ref)
	}

	e.logger(ctx).Debug("leaf split",
		slog.Int("breakpoint", idx),
		slog.String("discriminator", v.String()),
		slog.String("old_state", succState.AccessSequence.String()),
		slog.String("new_state", ua.String()),
		slog.Int("reopened", len(queue)-e.hyp.Alphabet().Size()),
	)
	return e.stabilize(ctx, queue)
}

// breakpoint builds the abstract counterexample for w and analyzes it.
func (e *Engine[I, D, SP, TP]) breakpoint(ctx context.Context, w word.Word[I], out D) (int, error) {
	n := w.Len()
	ceCtx := oracle.WithPurpose(ctx, oracle.PurposeCounterexample)

	if e.cfg.Encoding == EncodingRaw {
		memo := acex.NewMemo(n, func(ctx context.Context, i int) (D, error) {
			return oracle.AnswerQuery(ctx, e.mo, e.hyp.TransformAccessSequence(w.Prefix(i)), w.From(i))
		}, e.sem.Equal)
		memo.SetEffect(0, out)
		memo.SetEffect(n, e.sem.HypothesisOutput(e.hyp, w, word.Epsilon[I]()))
		return acex.Analyze[D](ceCtx, e.cfg.Analyzer, memo)
	}

	memo := acex.NewMemo(n, func(ctx context.Context, i int) (bool, error) {
		u := e.hyp.TransformAccessSequence(w.Prefix(i))
		suffix := w.From(i)
		got, err := oracle.AnswerQuery(ctx, e.mo, u, suffix)
		if err != nil {
			return false, err
		}
		return e.sem.Equal(got, e.sem.HypothesisOutput(e.hyp, u, suffix)), nil
	}, func(a, b bool) bool { return a == b })
	memo.SetEffect(0, false)
	memo.SetEffect(n, true)
	return acex.Analyze[bool](ceCtx, e.cfg.Analyzer, memo)
}

// =============================================================================
// Stabilization
// =============================================================================

// stabilize resolves the queued transitions and every transition of the
// states created along the way, in FIFO order.
func (e *Engine[I, D, SP, TP]) stabilize(ctx context.Context, queue []dtree.TransitionRef) error {
	siftCtx := oracle.WithPurpose(ctx, oracle.PurposeSift)
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]

		open, ok := e.hyp.Transition(ref.Source, ref.Input).Payload.(hypothesis.Open)
		if !ok {
			continue
		}
		as := e.contextOf(ref)
		leaf, err := e.tree.Sift(siftCtx, open.Node, as)
		if err != nil {
			return fmt.Errorf("sift %s: %w", as, err)
		}

		target, bound := e.tree.State(leaf)
		if !bound {
			target, err = e.createState(ctx, as, leaf, &ref)
			if err != nil {
				return err
			}
			queue = append(queue, e.transitionsOf(target)...)
		}

		prop, err := e.transitionProperty(ctx, ref)
		if err != nil {
			return err
		}
		e.hyp.SetResolved(ref, target, prop)
		e.tree.AddIncoming(leaf, ref)
	}
	return nil
}

// createState adds a state with access sequence as and binds it to leaf.
func (e *Engine[I, D, SP, TP]) createState(ctx context.Context, as word.Word[I], leaf dtree.NodeID, treeIn *dtree.TransitionRef) (automaton.StateID, error) {
	prop, err := e.sem.StateProperty(oracle.WithPurpose(ctx, oracle.PurposeProperty), e.mo, e.tree, leaf, as)
	if err != nil {
		return automaton.NoState, fmt.Errorf("state property of %s: %w", as, err)
	}
	var in *dtree.TransitionRef
	if treeIn != nil {
		cp := *treeIn
		in = &cp
	}
	id := e.hyp.CreateState(as, leaf, in, prop, e.tree.Root())
	e.tree.Bind(leaf, id)

	e.logger(ctx).Debug("state created",
		slog.Int("state", int(id)),
		slog.String("access_sequence", as.String()),
		slog.Int("leaf", int(leaf)),
	)
	return id, nil
}

func (e *Engine[I, D, SP, TP]) transitionProperty(ctx context.Context, ref dtree.TransitionRef) (TP, error) {
	if p, ok := e.props[ref]; ok {
		return p, nil
	}
	src := e.hyp.State(ref.Source).AccessSequence
	sym := e.hyp.Alphabet().Symbol(ref.Input)
	p, err := e.sem.TransitionProperty(oracle.WithPurpose(ctx, oracle.PurposeProperty), e.mo, src, sym)
	if err != nil {
		var zero TP
		return zero, fmt.Errorf("transition property of %s·%v: %w", src, sym, err)
	}
	e.props[ref] = p
	return p, nil
}

// transitionsOf lists the outgoing transitions of s.
func (e *Engine[I, D, SP, TP]) transitionsOf(s automaton.StateID) []dtree.TransitionRef {
	refs := make([]dtree.TransitionRef, e.hyp.Alphabet().Size())
	for i := range refs {
		refs[i] = dtree.TransitionRef{Source: s, Input: i}
	}
	return refs
}

// contextOf returns the word a transition stands for.
func (e *Engine[I, D, SP, TP]) contextOf(ref dtree.TransitionRef) word.Word[I] {
	return e.hyp.State(ref.Source).AccessSequence.Append(e.hyp.Alphabet().Symbol(ref.Input))
}

// =============================================================================
// Helpers
// =============================================================================

func (e *Engine[I, D, SP, TP]) logger(ctx context.Context) *slog.Logger {
	return telemetry.LoggerWithTrace(ctx, e.cfg.Logger)
}

func (e *Engine[I, D, SP, TP]) recordSize(ctx context.Context) {
	e.cfg.Metrics.HypothesisStates.Record(ctx, int64(e.hyp.Size()), e.attrs)
}

func (e *Engine[I, D, SP, TP]) fail(ctx context.Context, span trace.Span, err error) error {
	telemetry.RecordError(span, err)
	e.cfg.Metrics.RefinementsTotal.Add(ctx, 1, e.attrs, metric.WithAttributes(attribute.String("outcome", "error")))
	e.logger(ctx).Error("refinement failed", slog.String("error", err.Error()))
	return err
}

// =============================================================================
// Snapshots
// =============================================================================

// Snapshot is an opaque deep copy of a learner's state.
type Snapshot[I comparable, D any, SP any, TP any] struct {
	tree    *dtree.Tree[I, D]
	hyp     *hypothesis.Hypothesis[I, SP, TP]
	props   map[dtree.TransitionRef]TP
	started bool
	stats   Stats
}

// States returns the number of hypothesis states captured.
func (s *Snapshot[I, D, SP, TP]) States() int { return s.hyp.Size() }

// Suspend captures the learner state. Fails with ErrNotQuiescent while
// transitions are open, which only happens after an oracle error.
func (e *Engine[I, D, SP, TP]) Suspend() (*Snapshot[I, D, SP, TP], error) {
	if !e.hyp.IsStable() {
		return nil, ErrNotQuiescent
	}
	return &Snapshot[I, D, SP, TP]{
		tree:    e.tree.Clone(e.mo),
		hyp:     e.hyp.Clone(),
		props:   maps.Clone(e.props),
		started: e.started,
		stats:   e.stats,
	}, nil
}

// Resume restores a snapshot. A non-nil mo replaces the membership oracle;
// the snapshot stays reusable.
func (e *Engine[I, D, SP, TP]) Resume(s *Snapshot[I, D, SP, TP], mo oracle.MembershipOracle[I, D]) {
	if mo != nil {
		e.mo = mo
	}
	e.tree = s.tree.Clone(e.mo)
	e.hyp = s.hyp.Clone()
	e.props = maps.Clone(s.props)
	e.started = s.started
	e.stats = s.stats
}
