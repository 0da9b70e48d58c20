/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package batch stages fixed files and commits them to a working branch once a
threshold is reached.

A host that can commit many files at once gets a single commit per batch.
Otherwise files are committed one at a time, and a failing file does not stop
the rest of the batch:

	m, err := batch.New(host, batch.WithSize(10))
	m.Add("src/a.go", fixed)
	if m.ShouldFlush() {
	    res := m.Flush(ctx, branch, "")
	    if err := res.Err(); err != nil { ... }
	}
	m.FlushRemaining(ctx, branch)

A flush that lands at least one file clears the staged set and counts as a
commit. A flush where every file fails keeps the staged set.
*/
package batch
