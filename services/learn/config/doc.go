// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads learner settings and target descriptions from YAML.
//
// # Learner settings
//
// LoadLearnerConfig applies, in order: DefaultLearnerConfig, the YAML file,
// DTLEARN_* environment variables, then validation.
//
//	kind: dfa
//	analyzer: binary-search-left
//	encoding: boolean
//	repeated_evaluation: true
//	epsilon_root: true
//	max_rounds: 100
//	log_level: info
//	observability:
//	  service_name: dtlearn
//	  trace_exporter: none
//	  metric_exporter: prometheus
//
// # Targets
//
// A TargetSpec names the system under learning: its kind, input alphabet,
// states and transitions. DFA targets may leave transitions undefined; those
// go to a rejecting sink. Mealy and Moore targets must be complete.
//
//	kind: dfa
//	name: even-a
//	alphabet: [a, b]
//	initial: even
//	states:
//	  - {name: even, accepting: true}
//	  - {name: odd}
//	transitions:
//	  - {from: even, input: a, to: odd}
//	  - {from: odd, input: a, to: even}
//	  - {from: even, input: b, to: even}
//	  - {from: odd, input: b, to: odd}
package config
