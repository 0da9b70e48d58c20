/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gitlab implements githost on the GitLab REST API. Every batch lands
// as one commit.
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"chainguard.dev/sonarfix/githost"
)

// Host talks to one GitLab project.
type Host struct {
	client  *gitlab.Client
	project string
	author  githost.Author
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

// New returns a Host for project, which may be a numeric ID or a
// "group/name" path.
func New(client *gitlab.Client, project string, opts ...Option) (*Host, error) {
	if client == nil {
		return nil, errors.New("gitlab client is required")
	}
	if project == "" {
		return nil, errors.New("gitlab project is required")
	}
	h := &Host{client: client, project: project, author: githost.DefaultAuthor}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// NewClient builds a GitLab API client. An empty baseURL means gitlab.com.
func NewClient(token, baseURL string) (*gitlab.Client, error) {
	var opts []gitlab.ClientOptionFunc
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}
	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return client, nil
}

// ReadFile implements githost.Reader.
func (h *Host) ReadFile(ctx context.Context, path, ref string) (string, error) {
	raw, _, err := h.client.RepositoryFiles.GetRawFile(h.project, path,
		&gitlab.GetRawFileOptions{Ref: gitlab.Ptr(ref)}, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("reading %s@%s: %w", path, ref, classify(err))
	}
	return string(raw), nil
}

// CreateBranch implements githost.Host.
func (h *Host) CreateBranch(ctx context.Context, name, from string) error {
	_, _, err := h.client.Branches.CreateBranch(h.project, &gitlab.CreateBranchOptions{
		Branch: gitlab.Ptr(name),
		Ref:    gitlab.Ptr(from),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("creating branch %s from %s: %w", name, from, classify(err))
	}
	clog.FromContext(ctx).With("branch", name, "from", from).Info("Created branch")
	return nil
}

// CommitFiles implements githost.AtomicCommitter.
func (h *Host) CommitFiles(ctx context.Context, branch, message string, files []githost.File) (githost.Commit, error) {
	if len(files) == 0 {
		return githost.Commit{}, errors.New("no files to commit")
	}
	actions := make([]*gitlab.CommitActionOptions, 0, len(files))
	for _, f := range files {
		action := gitlab.FileUpdate
		if f.Action == githost.ActionCreate {
			action = gitlab.FileCreate
		}
		actions = append(actions, &gitlab.CommitActionOptions{
			Action:   gitlab.Ptr(action),
			FilePath: gitlab.Ptr(f.Path),
			Content:  gitlab.Ptr(f.Content),
		})
	}

	commit, _, err := h.client.Commits.CreateCommit(h.project, &gitlab.CreateCommitOptions{
		Branch:        gitlab.Ptr(branch),
		CommitMessage: gitlab.Ptr(message),
		Actions:       actions,
		AuthorName:    gitlab.Ptr(h.author.Name),
		AuthorEmail:   gitlab.Ptr(h.author.Email),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return githost.Commit{}, fmt.Errorf("committing %d files to %s: %w", len(files), branch, classify(err))
	}
	return githost.Commit{ID: commit.ID, URL: commit.WebURL}, nil
}

// OpenChangeRequest implements githost.Host with a merge request.
func (h *Host) OpenChangeRequest(ctx context.Context, source, target, title, body string) (string, error) {
	mr, _, err := h.client.MergeRequests.CreateMergeRequest(h.project, &gitlab.CreateMergeRequestOptions{
		Title:              gitlab.Ptr(title),
		Description:        gitlab.Ptr(body),
		SourceBranch:       gitlab.Ptr(source),
		TargetBranch:       gitlab.Ptr(target),
		RemoveSourceBranch: gitlab.Ptr(true),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("creating merge request %s -> %s: %w", source, target, classify(err))
	}
	return mr.WebURL, nil
}

// classify maps GitLab API errors onto the githost sentinels.
func classify(err error) error {
	var resp *gitlab.ErrorResponse
	if !errors.As(err, &resp) || resp.Response == nil {
		return err
	}
	switch {
	case resp.Response.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", githost.ErrNotFound, err)
	case resp.Response.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(resp.Message), "already exists"):
		return fmt.Errorf("%w: %w", githost.ErrBranchExists, err)
	}
	return err
}
