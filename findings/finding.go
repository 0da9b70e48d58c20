/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package findings

import (
	"regexp"
	"strconv"
	"strings"
)

// Finding is one static-analysis issue reported by the analysis server.
// Findings are read-only once produced.
type Finding struct {
	// Key uniquely identifies the issue on the server.
	Key      string
	Rule     string
	Severity string
	Type     string
	Message  string
	// Component is the server-side component, usually "<project>:<path>".
	Component string
	// Path is the file path relative to the repository root.
	Path string
	// Line and EndLine are 1-based. EndLine equals Line for single-line issues.
	Line    int
	EndLine int
	// DebtMinutes is the estimated remediation effort.
	DebtMinutes int
}

// PathFromComponent strips the project prefix from a component key.
func PathFromComponent(component string) string {
	if i := strings.LastIndexByte(component, ':'); i >= 0 {
		return component[i+1:]
	}
	return component
}

// defaultEffortMinutes is used when an effort string cannot be parsed.
const defaultEffortMinutes = 5

// minutesPerDay follows the server's 8-hour remediation day.
const minutesPerDay = 8 * 60

var effortPart = regexp.MustCompile(`(\d+)\s*(d|h|min)`)

// ParseEffort converts a remediation effort such as "5min", "1h30min" or "2d"
// into minutes. An empty effort is zero; an unparseable one falls back to five
// minutes.
func ParseEffort(effort string) int {
	effort = strings.TrimSpace(effort)
	if effort == "" {
		return 0
	}
	parts := effortPart.FindAllStringSubmatch(effort, -1)
	if len(parts) == 0 || strings.TrimSpace(effortPart.ReplaceAllString(effort, "")) != "" {
		return defaultEffortMinutes
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p[1])
		if err != nil {
			return defaultEffortMinutes
		}
		switch p[2] {
		case "d":
			total += n * minutesPerDay
		case "h":
			total += n * 60
		default:
			total += n
		}
	}
	return total
}
