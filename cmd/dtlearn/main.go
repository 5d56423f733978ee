// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command dtlearn learns automata from YAML target descriptions with the
// discrimination-tree learner.
//
// Usage:
//
//	dtlearn learn --target testdata/even_even.yaml
//	dtlearn learn --target machine.yaml --backend fsm --analyzer linear-fwd --verify
//	dtlearn compare --target machine.yaml --analyzers linear-fwd,binary-search-left
//	dtlearn analyzers
//
// Settings come from --config (YAML), then DTLEARN_* environment variables,
// then command flags. Logs go to stderr; results go to stdout.
//
// With Prometheus metrics:
//
//	OTEL_METRICS_EXPORTER=prometheus dtlearn learn --target t.yaml --metrics-addr :9464
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()
	if cerr := a.close(context.Background()); err == nil {
		err = cerr
	}
	if err != nil {
		a.printer().Error(err.Error())
		os.Exit(1)
	}
}
