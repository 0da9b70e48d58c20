/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/sonarfix/githost"
)

// DefaultSize is the flush threshold used when none is configured.
const DefaultSize = 10

// Failure is a file that could not be committed.
type Failure struct {
	Path string
	Err  error
}

// Result describes one flush.
type Result struct {
	// Success is true when at least one file landed, or when there was
	// nothing to flush.
	Success bool
	// Commits maps each committed path to the commit that carries it.
	Commits   map[string]githost.Commit
	Message   string
	Succeeded []string
	Failed    []Failure
}

// Err joins the per-file errors, or returns nil when nothing failed.
func (r Result) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
	}
	return errors.Join(errs...)
}

// Manager accumulates fixed files and commits them in batches. It is not safe
// for concurrent use.
type Manager struct {
	atomic  githost.AtomicCommitter
	perFile githost.FileCommitter

	size    int
	now     func() time.Time
	order   []string
	pending map[string]string
	commits int
	// retryAt is the staged count that triggers the next flush after a flush
	// where nothing landed.
	retryAt int
}

// Option configures a Manager.
type Option func(*Manager) error

// WithSize sets the flush threshold.
func WithSize(n int) Option {
	return func(m *Manager) error {
		if n <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", n)
		}
		m.size = n
		return nil
	}
}

// WithClock overrides the timestamp used in default commit messages.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) error {
		m.now = now
		return nil
	}
}

// New returns a Manager committing through host. Hosts with a multi-file
// commit are preferred over per-file commits.
func New(host githost.Host, opts ...Option) (*Manager, error) {
	m := &Manager{
		size:    DefaultSize,
		now:     time.Now,
		pending: make(map[string]string),
	}
	switch c := host.(type) {
	case githost.AtomicCommitter:
		m.atomic = c
	case githost.FileCommitter:
		m.perFile = c
	default:
		return nil, fmt.Errorf("host %T cannot commit files", host)
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add stages content for path. A later Add for the same path replaces the
// earlier content.
func (m *Manager) Add(path, content string) {
	if _, ok := m.pending[path]; !ok {
		m.order = append(m.order, path)
	}
	m.pending[path] = content
}

// Pending returns the number of staged files.
func (m *Manager) Pending() int {
	return len(m.pending)
}

// ShouldFlush reports whether the staged files reached the threshold. After a
// flush where nothing landed, the threshold moves one batch further.
func (m *Manager) ShouldFlush() bool {
	return len(m.pending) >= max(m.size, m.retryAt)
}

// Commits returns how many flushes landed at least one file.
func (m *Manager) Commits() int {
	return m.commits
}

// Flush commits every staged file to branch. An empty message gets the
// default batch message. Staged files are cleared when anything succeeded and
// kept for another attempt when everything failed.
func (m *Manager) Flush(ctx context.Context, branch, message string) Result {
	if len(m.pending) == 0 {
		return Result{Success: true}
	}
	if message == "" {
		message = Message(m.order, m.commits+1, m.now())
	}

	files := make([]githost.File, 0, len(m.order))
	for _, p := range m.order {
		files = append(files, githost.File{Path: p, Content: m.pending[p], Action: githost.ActionUpdate})
	}

	log := clog.FromContext(ctx).With("branch", branch, "files", len(files))
	res := Result{Message: message, Commits: make(map[string]githost.Commit, len(files))}
	if m.atomic != nil {
		commit, err := m.atomic.CommitFiles(ctx, branch, message, files)
		if err != nil {
			for _, f := range files {
				res.Failed = append(res.Failed, Failure{Path: f.Path, Err: err})
			}
		} else {
			for _, f := range files {
				res.Commits[f.Path] = commit
				res.Succeeded = append(res.Succeeded, f.Path)
			}
		}
	} else {
		for _, f := range files {
			commit, err := m.perFile.CommitFile(ctx, branch, message, f)
			if err != nil {
				log.With("path", f.Path, "error", err).Warn("Failed to commit file")
				res.Failed = append(res.Failed, Failure{Path: f.Path, Err: err})
				continue
			}
			res.Commits[f.Path] = commit
			res.Succeeded = append(res.Succeeded, f.Path)
		}
	}

	res.Success = len(res.Succeeded) > 0
	if !res.Success {
		m.retryAt = len(m.pending) + m.size
		log.With("error", res.Err()).Error("Batch commit failed, keeping files staged")
		return res
	}

	m.commits++
	m.retryAt = 0
	m.order = nil
	clear(m.pending)
	log = log.With("commit", res.Commits[res.Succeeded[len(res.Succeeded)-1]].ID, "batch", m.commits)
	if len(res.Failed) > 0 {
		log.With("failed", len(res.Failed)).Warn("Batch committed with failures")
	} else {
		log.Info("Batch committed")
	}
	return res
}

// FlushRemaining commits whatever is staged with the default message.
func (m *Manager) FlushRemaining(ctx context.Context, branch string) Result {
	return m.Flush(ctx, branch, "")
}
