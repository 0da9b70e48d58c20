/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

// newRootCommand builds the command tree. The environment is read through l,
// or the process environment when l is nil.
func newRootCommand(l envconfig.Lookuper) *cobra.Command {
	var cfg *config

	root := &cobra.Command{
		Use:   "sonarfix",
		Short: "Fix static-analysis findings with an AI model",
		Long: `sonarfix fetches findings from a SonarQube-compatible server, asks an AI
model for a corrected file per finding, and commits the fixes in batches to a
working branch. A fingerprint database keeps fixed findings from being
processed twice.

All settings are read from the environment. Secrets that are not set fall back
to the OS keyring under the "sonarfix" service.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(cmd.Context(), l)
			if err != nil {
				return err
			}
			c.fillFromKeyring()
			cfg = c

			logger := newLogger(cfg.LogLevel)
			cmd.SetContext(clog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	current := func() *config { return cfg }
	root.AddCommand(
		newRunCommand(current),
		newStatsCommand(current),
		newPurgeCommand(current),
		newVerifyCommand(current),
	)
	return root
}
