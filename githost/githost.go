/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githost

import (
	"context"
	"errors"
)

var (
	// ErrBranchExists is returned by CreateBranch when the branch is already
	// present on the host.
	ErrBranchExists = errors.New("branch already exists")

	// ErrNotFound is returned when a file or ref does not exist.
	ErrNotFound = errors.New("not found")
)

// Action says how a file is written by a commit.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// File is one file change in a commit.
type File struct {
	Path    string
	Content string
	Action  Action
}

// Commit identifies a commit created on the host.
type Commit struct {
	ID  string
	URL string
}

// Author is the identity written into commits by hosts that accept one.
type Author struct {
	Name  string
	Email string
}

// DefaultAuthor is the commit identity used when none is configured.
var DefaultAuthor = Author{Name: "Sonar Fix Bot", Email: "sonarfix@automated.local"}

// Reader reads file content at a ref.
type Reader interface {
	// ReadFile returns the content of path at ref. A missing file yields an
	// error wrapping ErrNotFound.
	ReadFile(ctx context.Context, path, ref string) (string, error)
}

// Host is the capability every git host provides. A Host must also implement
// AtomicCommitter or FileCommitter to receive commits.
type Host interface {
	Reader

	// CreateBranch creates name from the head of from. An existing branch
	// yields an error wrapping ErrBranchExists.
	CreateBranch(ctx context.Context, name, from string) error

	// OpenChangeRequest opens a merge or pull request and returns its URL.
	OpenChangeRequest(ctx context.Context, source, target, title, body string) (string, error)
}

// AtomicCommitter writes several files in a single commit.
type AtomicCommitter interface {
	CommitFiles(ctx context.Context, branch, message string, files []File) (Commit, error)
}

// FileCommitter writes one file per commit.
type FileCommitter interface {
	CommitFile(ctx context.Context, branch, message string, file File) (Commit, error)
}
