/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"chainguard.dev/sonarfix/fixer"
	"chainguard.dev/sonarfix/report"
)

func newStatsCommand(cfg func() *config) *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the fingerprint records of a branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, cfg())
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.BranchStatistics(ctx, branch)
			if err != nil {
				return err
			}
			recs, err := store.Records(ctx, branch)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := report.WriteStats(out, st); err != nil {
				return err
			}
			return report.WriteRecords(out, recs)
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "working branch to report on")
	_ = cmd.MarkFlagRequired("branch")
	return cmd
}

func newPurgeCommand(cfg func() *config) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete fingerprint records older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c := cfg()
			if !cmd.Flags().Changed("days") {
				days = c.RetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("%w: --days must be positive", fixer.ErrConfig)
			}
			store, err := openStore(ctx, c)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.PurgeOlderThan(ctx, days)
			if err != nil {
				return err
			}
			clog.FromContext(ctx).With("days", days, "removed", removed).Info("Purged fingerprints")
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records older than %d days\n", removed, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (default RETENTION_DAYS)")
	return cmd
}

func newVerifyCommand(cfg func() *config) *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Drop fingerprint records whose files changed on the branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c := cfg()
			if err := c.validateHost(); err != nil {
				return fmt.Errorf("%w: %w", fixer.ErrConfig, err)
			}
			host, err := newHost(ctx, c)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, c)
			if err != nil {
				return err
			}
			defer store.Close()

			v, err := store.Verify(ctx, host, branch, isMissing)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Kept %d, removed %d stale, %d unreadable\n", v.Kept, v.Removed, v.Unreadable)
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "working branch to verify")
	_ = cmd.MarkFlagRequired("branch")
	return cmd
}
