// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianLearn/services/learn/acex"
)

func newAnalyzersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyzers",
		Short: "List counterexample analyzers",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			rows := make([][]string, 0, len(acex.Analyzers()))
			for _, an := range acex.Analyzers() {
				dir := "backward"
				if an.Forward() {
					dir = "forward"
				}
				def := ""
				if an == a.cfg.Analyzer {
					def = "*"
				}
				rows = append(rows, []string{an.String(), dir, def})
			}
			a.out.Table([]string{"analyzer", "direction", "configured"}, rows)
			return nil
		},
	}
}
