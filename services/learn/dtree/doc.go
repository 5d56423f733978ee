// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dtree implements the discrimination (classification) tree used by
// discrimination-tree learners.
//
// # Structure
//
// Inner nodes carry a discriminator word and branch on the membership oracle
// response to prefix·discriminator. Leaves optionally carry a hypothesis
// state and always carry the ordered set of hypothesis transitions that were
// last classified into them (the incoming set).
//
// Nodes live in an arena and are addressed by NodeID. Parent links are ids,
// so the tree has no pointer cycles and a deep copy is a slice copy.
//
// # Branching Policies
//
//   - Binary: responses are booleans, at most two children per inner node.
//     The epsilon-root option pre-splits the root on the empty word, which
//     separates accepting from rejecting states before any counterexample.
//   - Multi: responses are arbitrary values compared by a caller supplied
//     equality; children are created lazily on first observation.
//
// # Invariants
//
//   - Leaves bound to a state are in bijection with hypothesis states.
//   - A discriminator occurs at most once on any root-to-leaf path.
//   - Split never loses or duplicates an incoming transition.
//
// Violations panic with a message prefixed by "dtree: invariant violated".
//
// # Thread Safety
//
// A Tree is owned by one learner and is not safe for concurrent use.
package dtree
