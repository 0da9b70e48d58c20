/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githosttest provides an in-memory git host for tests.
package githosttest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"chainguard.dev/sonarfix/githost"
)

// ChangeRequest records an OpenChangeRequest call.
type ChangeRequest struct {
	Source, Target, Title, Body string
}

// CommitCall records one commit made against the fake.
type CommitCall struct {
	Branch  string
	Message string
	Paths   []string
}

// Fake is an in-memory host. Wrap it with Atomic or PerFile to pick the
// commit capability under test.
type Fake struct {
	mu       sync.Mutex
	branches map[string]map[string]string
	nextID   int

	// FailPaths makes commits touching the given paths fail.
	FailPaths map[string]error
	// FailReads makes ReadFile fail for the given paths.
	FailReads map[string]error
	// FailChangeRequest makes OpenChangeRequest fail.
	FailChangeRequest error

	Commits        []CommitCall
	ChangeRequests []ChangeRequest
	BranchesMade   []string
}

var _ githost.Host = (*Fake)(nil)

// New returns a Fake whose branch base holds files.
func New(base string, files map[string]string) *Fake {
	return &Fake{
		branches:  map[string]map[string]string{base: maps.Clone(files)},
		FailPaths: map[string]error{},
		FailReads: map[string]error{},
	}
}

// ReadFile implements githost.Reader.
func (f *Fake) ReadFile(_ context.Context, path, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailReads[path]; err != nil {
		return "", err
	}
	files, ok := f.branches[ref]
	if !ok {
		return "", fmt.Errorf("ref %q: %w", ref, githost.ErrNotFound)
	}
	content, ok := files[path]
	if !ok {
		return "", fmt.Errorf("%s@%s: %w", path, ref, githost.ErrNotFound)
	}
	return content, nil
}

// CreateBranch implements githost.Host.
func (f *Fake) CreateBranch(_ context.Context, name, from string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.branches[name]; ok {
		return fmt.Errorf("%s: %w", name, githost.ErrBranchExists)
	}
	files, ok := f.branches[from]
	if !ok {
		return fmt.Errorf("ref %q: %w", from, githost.ErrNotFound)
	}
	f.branches[name] = maps.Clone(files)
	f.BranchesMade = append(f.BranchesMade, name)
	return nil
}

// OpenChangeRequest implements githost.Host.
func (f *Fake) OpenChangeRequest(_ context.Context, source, target, title, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailChangeRequest != nil {
		return "", f.FailChangeRequest
	}
	f.ChangeRequests = append(f.ChangeRequests, ChangeRequest{Source: source, Target: target, Title: title, Body: body})
	return fmt.Sprintf("https://git.example.com/merge_requests/%d", len(f.ChangeRequests)), nil
}

// Content returns the file at branch without going through ReadFile failures.
func (f *Fake) Content(branch, path string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.branches[branch][path]
	return c, ok
}

func (f *Fake) commit(branch, message string, files []githost.File) (githost.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.branches[branch]
	if !ok {
		return githost.Commit{}, fmt.Errorf("branch %q: %w", branch, githost.ErrNotFound)
	}
	var errs []error
	for _, file := range files {
		if err := f.FailPaths[file.Path]; err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return githost.Commit{}, err
	}

	call := CommitCall{Branch: branch, Message: message}
	for _, file := range files {
		target[file.Path] = file.Content
		call.Paths = append(call.Paths, file.Path)
	}
	f.Commits = append(f.Commits, call)
	f.nextID++
	id := fmt.Sprintf("%040x", f.nextID)
	return githost.Commit{ID: id, URL: "https://git.example.com/commit/" + id}, nil
}

// Atomic exposes the fake as an AtomicCommitter.
type Atomic struct{ *Fake }

var _ githost.AtomicCommitter = Atomic{}

// CommitFiles implements githost.AtomicCommitter.
func (a Atomic) CommitFiles(_ context.Context, branch, message string, files []githost.File) (githost.Commit, error) {
	return a.commit(branch, message, files)
}

// PerFile exposes the fake as a FileCommitter.
type PerFile struct{ *Fake }

var _ githost.FileCommitter = PerFile{}

// CommitFile implements githost.FileCommitter.
func (p PerFile) CommitFile(_ context.Context, branch, message string, file githost.File) (githost.Commit, error) {
	return p.commit(branch, message, []githost.File{file})
}
