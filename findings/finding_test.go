/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package findings

import "testing"

func TestParseEffort(t *testing.T) {
	t.Parallel()
	tests := []struct {
		effort string
		want   int
	}{
		{"", 0},
		{"5min", 5},
		{"1h", 60},
		{"1h30min", 90},
		{"1h 30min", 90},
		{"1d", 480},
		{"2d1h", 1020},
		{"bogus", 5},
		{"10", 5},
		{"3mins", 5},
	}
	for _, tt := range tests {
		if got := ParseEffort(tt.effort); got != tt.want {
			t.Errorf("ParseEffort(%q): got = %d, wanted = %d", tt.effort, got, tt.want)
		}
	}
}

func TestPathFromComponent(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"my-project:src/main/java/A.java": "src/main/java/A.java",
		"org:proj:lib/a.py":               "lib/a.py",
		"plain/path.go":                   "plain/path.go",
	}
	for in, want := range tests {
		if got := PathFromComponent(in); got != want {
			t.Errorf("PathFromComponent(%q): got = %q, wanted = %q", in, got, want)
		}
	}
}
