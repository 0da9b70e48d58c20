/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fixer

import (
	"context"

	"github.com/chainguard-dev/clog"
	"github.com/samber/lo"

	"chainguard.dev/sonarfix/agents/completion"
	"chainguard.dev/sonarfix/batch"
	"chainguard.dev/sonarfix/findings"
	"chainguard.dev/sonarfix/fingerprint"
)

// Attempt is the outcome of processing one finding.
type Attempt struct {
	Finding findings.Finding
	Success bool
	// Reason explains a failure.
	Reason string
	Usage  completion.Usage
	// Calls is the number of provider calls made for the finding.
	Calls    int
	CommitID string
}

// Failure is a finding that was not fixed.
type Failure struct {
	Key    string
	Path   string
	Rule   string
	Reason string
}

// Summary aggregates a run.
type Summary struct {
	Project       string
	Model         string
	WorkingBranch string
	BaseBranch    string
	DryRun        bool

	Processed int
	Succeeded int
	Failed    int
	// Skipped counts findings already fixed on the working branch.
	Skipped int
	// Excluded counts findings dropped by exclude patterns.
	Excluded int

	DebtMinutes       int
	Usage             completion.Usage
	CostPerFix        float64
	CostPerDebtMinute float64

	Commits          int
	CommitFailures   []batch.Failure
	ChangeRequestURL string

	Attempts []Attempt
	Failures []Failure
	// BranchStats is nil when statistics could not be read.
	BranchStats *fingerprint.Stats
}

func (o *Orchestrator) summarize(ctx context.Context, skipped, excluded int) *Summary {
	attempts := lo.Map(o.attempts, func(a *Attempt, _ int) Attempt { return *a })
	fixed, failed := lo.FilterReject(attempts, func(a Attempt, _ int) bool { return a.Success })

	s := &Summary{
		Project:          o.cfg.Query.ProjectKey,
		Model:            o.deps.AI.Model(),
		WorkingBranch:    o.branch,
		BaseBranch:       o.cfg.BaseBranch,
		DryRun:           o.cfg.DryRun,
		Processed:        len(attempts),
		Succeeded:        len(fixed),
		Failed:           len(failed),
		Skipped:          skipped,
		Excluded:         excluded,
		DebtMinutes:      lo.SumBy(fixed, func(a Attempt) int { return a.Finding.DebtMinutes }),
		Usage:            o.deps.AI.TotalUsage(),
		Commits:          o.batch.Commits(),
		CommitFailures:   o.commitFailures,
		ChangeRequestURL: o.changeRequest,
		Attempts:         attempts,
		Failures: lo.Map(failed, func(a Attempt, _ int) Failure {
			return Failure{Key: a.Finding.Key, Path: a.Finding.Path, Rule: a.Finding.Rule, Reason: a.Reason}
		}),
	}
	if s.Succeeded > 0 {
		s.CostPerFix = s.Usage.CostUSD / float64(s.Succeeded)
	}
	if s.DebtMinutes > 0 {
		s.CostPerDebtMinute = s.Usage.CostUSD / float64(s.DebtMinutes)
	}

	if !o.cfg.DryRun {
		stats, err := o.deps.Store.BranchStatistics(ctx, o.branch)
		if err != nil {
			clog.FromContext(ctx).With("error", err).Warn("Failed to read branch statistics")
		} else {
			s.BranchStats = &stats
		}
	}

	clog.FromContext(ctx).With(
		"processed", s.Processed,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"debt_minutes", s.DebtMinutes,
		"cost_usd", s.Usage.CostUSD,
		"tokens", s.Usage.TotalTokens(),
	).Info("Run complete")
	return s
}
