/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"chainguard.dev/sonarfix/fixer"
)

// Job is the Pushgateway job name used for runs.
const Job = "sonarfix"

// Registry returns a registry holding gauges that describe s.
func Registry(s *fixer.Summary) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	findings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sonarfix_findings",
		Help: "Findings handled by the last run, by outcome",
	}, []string{"outcome"})
	findings.WithLabelValues("processed").Set(float64(s.Processed))
	findings.WithLabelValues("succeeded").Set(float64(s.Succeeded))
	findings.WithLabelValues("failed").Set(float64(s.Failed))
	findings.WithLabelValues("skipped").Set(float64(s.Skipped))
	findings.WithLabelValues("excluded").Set(float64(s.Excluded))

	tokens := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sonarfix_ai_tokens",
		Help: "Tokens used by the last run, by kind",
	}, []string{"kind"})
	tokens.WithLabelValues("prompt").Set(float64(s.Usage.PromptTokens))
	tokens.WithLabelValues("completion").Set(float64(s.Usage.CompletionTokens))

	gauge := func(name, help string, v float64) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		g.Set(v)
		return g
	}
	reg.MustRegister(
		findings,
		tokens,
		gauge("sonarfix_debt_minutes_reduced", "Remediation minutes fixed by the last run", float64(s.DebtMinutes)),
		gauge("sonarfix_ai_cost_usd", "AI cost of the last run in USD", s.Usage.CostUSD),
		gauge("sonarfix_commits", "Commits created by the last run", float64(s.Commits)),
	)
	return reg
}

// Push sends the summary gauges to a Prometheus Pushgateway, grouped by
// project.
func Push(ctx context.Context, url string, s *fixer.Summary) error {
	err := push.New(url, Job).
		Gatherer(Registry(s)).
		Grouping("project", s.Project).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
