/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fixer

import (
	"strings"
	"text/template"

	"github.com/samber/lo"

	"chainguard.dev/sonarfix/agents/completion"
)

var changeRequestTemplate = template.Must(template.New("change-request").Parse(`## Automated static-analysis fixes

Fixes generated for findings reported on project ` + "`{{.Project}}`" + `.

| Metric | Value |
|---|---|
| Findings fixed | {{.Fixed}} |
| Commits | {{.Commits}} |
| Technical debt reduced | {{.DebtMinutes}} min |
| AI cost | ${{printf "%.4f" .Usage.CostUSD}} |
| AI tokens | {{.Usage.TotalTokens}} |
| Model | {{.Model}} |

### Fixed findings
{{range .Attempts}}
- ` + "`{{.Finding.Rule}}`" + ` {{.Finding.Path}}:{{.Finding.Line}} {{.Finding.Message}}
{{- end}}

Please review every change before merging.
`))

type changeRequestData struct {
	Project     string
	Model       string
	Fixed       int
	Commits     int
	DebtMinutes int
	Usage       completion.Usage
	Attempts    []*Attempt
}

func (o *Orchestrator) changeRequestData() changeRequestData {
	fixed := lo.Filter(o.attempts, func(a *Attempt, _ int) bool { return a.Success })
	return changeRequestData{
		Project:     o.cfg.Query.ProjectKey,
		Model:       o.deps.AI.Model(),
		Fixed:       len(fixed),
		Commits:     o.batch.Commits(),
		DebtMinutes: lo.SumBy(fixed, func(a *Attempt) int { return a.Finding.DebtMinutes }),
		Usage:       o.deps.AI.TotalUsage(),
		Attempts:    fixed,
	}
}

func renderChangeRequest(data changeRequestData) (string, error) {
	var b strings.Builder
	if err := changeRequestTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
