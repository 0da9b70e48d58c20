/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/samber/lo"

	"chainguard.dev/sonarfix/fingerprint"
	"chainguard.dev/sonarfix/fixer"
)

// WriteSummary renders a run summary as markdown.
func WriteSummary(w io.Writer, s *fixer.Summary) error {
	title := "## Run summary"
	if s.DryRun {
		title += " (dry run)"
	}
	if _, err := fmt.Fprintf(w, "%s\n\n", title); err != nil {
		return err
	}

	rows := [][]string{
		{"Project", s.Project},
		{"Working branch", s.WorkingBranch},
		{"Model", s.Model},
		{"Processed", strconv.Itoa(s.Processed)},
		{"Succeeded", strconv.Itoa(s.Succeeded)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Skipped (already fixed)", strconv.Itoa(s.Skipped)},
		{"Excluded", strconv.Itoa(s.Excluded)},
		{"Debt reduced", fmt.Sprintf("%d min", s.DebtMinutes)},
		{"Tokens", fmt.Sprintf("%d (%d prompt, %d completion)", s.Usage.TotalTokens(), s.Usage.PromptTokens, s.Usage.CompletionTokens)},
		{"Cost", fmt.Sprintf("$%.4f", s.Usage.CostUSD)},
		{"Cost per fix", fmt.Sprintf("$%.4f", s.CostPerFix)},
		{"Cost per debt minute", fmt.Sprintf("$%.4f", s.CostPerDebtMinute)},
		{"Commits", strconv.Itoa(s.Commits)},
	}
	if s.ChangeRequestURL != "" {
		rows = append(rows, []string{"Change request", s.ChangeRequestURL})
	}
	if err := writeTable(w, []string{"Metric", "Value"}, rows); err != nil {
		return err
	}

	if len(s.Failures) > 0 {
		if _, err := fmt.Fprintf(w, "\n## Failures\n\n"); err != nil {
			return err
		}
		rows := lo.Map(s.Failures, func(f fixer.Failure, _ int) []string {
			return []string{f.Key, f.Path, f.Rule, f.Reason}
		})
		if err := writeTable(w, []string{"Finding", "Path", "Rule", "Reason"}, rows); err != nil {
			return err
		}
	}

	if s.BranchStats != nil {
		if _, err := fmt.Fprintf(w, "\n## Branch %s\n\n", s.WorkingBranch); err != nil {
			return err
		}
		if err := WriteStats(w, *s.BranchStats); err != nil {
			return err
		}
	}
	return nil
}

// WriteStats renders fingerprint statistics for a branch.
func WriteStats(w io.Writer, st fingerprint.Stats) error {
	return writeTable(w, []string{"Metric", "Value"}, [][]string{
		{"Fixed findings", strconv.FormatInt(st.TotalFixed, 10)},
		{"Files", strconv.FormatInt(st.DistinctFiles, 10)},
		{"Rules", strconv.FormatInt(st.DistinctRules, 10)},
		{"First fix", formatTime(st.FirstFix)},
		{"Last fix", formatTime(st.LastFix)},
	})
}

// WriteRecords renders fixed-finding records, in the order given.
func WriteRecords(w io.Writer, records []fingerprint.Record) error {
	rows := lo.Map(records, func(r fingerprint.Record, _ int) []string {
		return []string{r.IssueKey, r.FilePath, r.Rule, formatTime(r.FixedAt), shortID(r.CommitID)}
	})
	return writeTable(w, []string{"Finding", "Path", "Rule", "Fixed at", "Commit"}, rows)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	return id[:min(len(id), 12)]
}
