/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"chainguard.dev/sonarfix/agents/metrics"
	"chainguard.dev/sonarfix/findings"
	"chainguard.dev/sonarfix/fixer"
	"chainguard.dev/sonarfix/report"
)

func newRunCommand(cfg func() *config) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fix findings and commit them to a working branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := cfg()
			if dryRun {
				c.DryRun = true
			}
			return runFix(cmd.Context(), c, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "generate fixes without committing or recording them (overrides DRY_RUN)")
	return cmd
}

func runFix(ctx context.Context, cfg *config, out io.Writer) error {
	if err := cfg.validateRun(); err != nil {
		return err
	}
	ctx = metrics.WithProject(ctx, cfg.SonarProjectKey)
	log := clog.FromContext(ctx)

	source, err := findings.NewClient(cfg.SonarURL, cfg.SonarToken)
	if err != nil {
		return fmt.Errorf("%w: %w", fixer.ErrConfig, err)
	}
	if err := source.Validate(ctx); err != nil {
		return fmt.Errorf("checking analysis server: %w", err)
	}

	prompts, err := loadPrompts(cfg)
	if err != nil {
		return err
	}
	ai, err := newCompleter(ctx, cfg, prompts.System)
	if err != nil {
		return err
	}
	host, err := newHost(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warnf("Closing fingerprint store: %v", err)
		}
	}()

	o, err := fixer.New(fixer.Config{
		Query: findings.Query{
			ProjectKey:  cfg.SonarProjectKey,
			PullRequest: cfg.SonarPullRequest,
			Branch:      cfg.SonarBranch,
			Types:       cfg.SonarIssueTypes,
			MaxCount:    cfg.MaxFindings,
		},
		BaseBranch:          cfg.BaseBranch,
		WorkingBranch:       cfg.WorkingBranch,
		TimestampedBranch:   cfg.TimestampedBranch,
		BatchSize:           cfg.BatchSize,
		DryRun:              cfg.DryRun,
		CreateChangeRequest: cfg.CreateChangeRequest,
		RetentionDays:       cfg.RetentionDays,
		ExcludePaths:        cfg.ExcludePaths,
		MaxFileTokens:       cfg.fileTokenLimit(),
	}, fixer.Dependencies{
		Source:  source,
		AI:      ai,
		Store:   store,
		Host:    host,
		Catalog: prompts,
	})
	if err != nil {
		return err
	}

	summary, err := o.Run(ctx)
	if err != nil {
		return err
	}
	if err := report.WriteSummary(out, summary); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	if cfg.PushgatewayURL != "" {
		if err := report.Push(ctx, cfg.PushgatewayURL, summary); err != nil {
			log.Warnf("Pushing run metrics: %v", err)
		}
	}
	return nil
}
