/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fingerprint

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
)

// Reader reads file content at a ref.
type Reader interface {
	ReadFile(ctx context.Context, path, ref string) (string, error)
}

// Verification counts the outcome of Verify.
type Verification struct {
	Kept    int
	Removed int
	// Unreadable records could not be checked and were left untouched.
	Unreadable int
}

// Verify re-reads every file recorded on branch and drops the records whose
// content no longer matches. A file reported missing by isMissing counts as
// changed.
func (s *Store) Verify(ctx context.Context, r Reader, branch string, isMissing func(error) bool) (Verification, error) {
	var v Verification
	recs, err := s.Records(ctx, branch)
	if err != nil {
		return v, err
	}
	log := clog.FromContext(ctx).With("branch", branch)

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return v, fmt.Errorf("verifying fingerprints: %w", err)
		}
		content, err := r.ReadFile(ctx, rec.FilePath, branch)
		switch {
		case err == nil:
		case isMissing != nil && isMissing(err):
			content = ""
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return v, fmt.Errorf("verifying fingerprints: %w", err)
		default:
			log.With("path", rec.FilePath).Warnf("Could not read recorded file: %v", err)
			v.Unreadable++
			continue
		}
		if s.IsStillFixed(ctx, rec.IssueKey, branch, content) {
			v.Kept++
		} else {
			v.Removed++
		}
	}
	return v, nil
}
