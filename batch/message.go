/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package batch

import (
	"fmt"
	"strings"
	"time"
)

// maxListed bounds the file list in a commit message.
const maxListed = 5

// Message builds the default commit message for a batch.
func Message(paths []string, batch int, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fix %d static-analysis findings (batch #%d) - %s", len(paths), batch, now.Format(time.RFC3339))
	if len(paths) == 0 {
		return b.String()
	}
	b.WriteString("\n\nFiles modified:")
	for _, p := range paths[:min(len(paths), maxListed)] {
		b.WriteString("\n- " + p)
	}
	if extra := len(paths) - maxListed; extra > 0 {
		fmt.Fprintf(&b, "\n- ... and %d more files", extra)
	}
	return b.String()
}
