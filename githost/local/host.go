/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package local implements githost on a clone in the local filesystem. It is
// meant for offline runs and works on a dedicated clone: committing checks out
// the target branch and discards uncommitted work.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"chainguard.dev/sonarfix/githost"
)

// Host commits into a non-bare repository.
type Host struct {
	mu     sync.Mutex
	repo   *git.Repository
	author githost.Author
	now    func() time.Time
}

var (
	_ githost.Host            = (*Host)(nil)
	_ githost.AtomicCommitter = (*Host)(nil)
)

// Option configures a Host.
type Option func(*Host)

// WithAuthor overrides the commit author.
func WithAuthor(a githost.Author) Option {
	return func(h *Host) { h.author = a }
}

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(h *Host) { h.now = now }
}

// Open opens the repository at path.
func Open(path string, opts ...Option) (*Host, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", path, err)
	}
	return New(repo, opts...), nil
}

// New wraps an open repository.
func New(repo *git.Repository, opts ...Option) *Host {
	h := &Host{repo: repo, author: githost.DefaultAuthor, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) resolve(ref string) (*object.Commit, error) {
	hash, err := h.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("ref %q: %w", ref, githost.ErrNotFound)
		}
		return nil, fmt.Errorf("resolving %q: %w", ref, err)
	}
	commit, err := h.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", hash, err)
	}
	return commit, nil
}

// ReadFile implements githost.Reader. Content comes from the commit at ref,
// never from the working tree.
func (h *Host) ReadFile(_ context.Context, path, ref string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	commit, err := h.resolve(ref)
	if err != nil {
		return "", err
	}
	file, err := commit.File(filepath.ToSlash(path))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return "", fmt.Errorf("%s@%s: %w", path, ref, githost.ErrNotFound)
		}
		return "", fmt.Errorf("reading %s@%s: %w", path, ref, err)
	}
	return file.Contents()
}

// CreateBranch implements githost.Host.
func (h *Host) CreateBranch(ctx context.Context, name, from string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if name == "" {
		return errors.New("branch name cannot be empty")
	}
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := h.repo.Reference(refName, false); err == nil {
		return fmt.Errorf("%s: %w", name, githost.ErrBranchExists)
	}
	base, err := h.resolve(from)
	if err != nil {
		return err
	}
	if err := h.repo.Storer.SetReference(plumbing.NewHashReference(refName, base.Hash)); err != nil {
		return fmt.Errorf("setting branch reference: %w", err)
	}
	clog.FromContext(ctx).With("branch", name, "from", from, "sha", base.Hash.String()).Info("Created branch")
	return nil
}

// CommitFiles implements githost.AtomicCommitter.
func (h *Host) CommitFiles(_ context.Context, branch, message string, files []githost.File) (githost.Commit, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(files) == 0 {
		return githost.Commit{}, errors.New("no files to commit")
	}
	worktree, err := h.repo.Worktree()
	if err != nil {
		return githost.Commit{}, fmt.Errorf("getting worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch), Force: true}); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return githost.Commit{}, fmt.Errorf("branch %q: %w", branch, githost.ErrNotFound)
		}
		return githost.Commit{}, fmt.Errorf("checking out %s: %w", branch, err)
	}

	root := worktree.Filesystem.Root()
	for _, f := range files {
		if !filepath.IsLocal(f.Path) {
			return githost.Commit{}, fmt.Errorf("path %q escapes the repository", f.Path)
		}
		full := filepath.Join(root, f.Path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return githost.Commit{}, fmt.Errorf("creating directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(full, []byte(f.Content), 0o644); err != nil {
			return githost.Commit{}, fmt.Errorf("writing %s: %w", f.Path, err)
		}
		if _, err := worktree.Add(filepath.ToSlash(f.Path)); err != nil {
			return githost.Commit{}, fmt.Errorf("staging %s: %w", f.Path, err)
		}
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  h.author.Name,
			Email: h.author.Email,
			When:  h.now(),
		},
	})
	if err != nil {
		return githost.Commit{}, fmt.Errorf("committing: %w", err)
	}
	return githost.Commit{ID: hash.String()}, nil
}

// OpenChangeRequest is not available for a local clone.
func (h *Host) OpenChangeRequest(context.Context, string, string, string, string) (string, error) {
	return "", fmt.Errorf("local host cannot open change requests: %w", errors.ErrUnsupported)
}
