/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"

	"chainguard.dev/sonarfix/githost"
)

// Host talks to one GitHub repository through the REST API and commits one
// file at a time with the contents API.
type Host struct {
	client *github.Client
	owner  string
	repo   string
}

var (
	_ githost.Host          = (*Host)(nil)
	_ githost.FileCommitter = (*Host)(nil)
)

// New returns a Host for owner/repo.
func New(client *github.Client, owner, repo string) (*Host, error) {
	if client == nil {
		return nil, errors.New("github client is required")
	}
	if owner == "" || repo == "" {
		return nil, errors.New("github owner and repo are required")
	}
	return &Host{client: client, owner: owner, repo: repo}, nil
}

// ReadFile implements githost.Reader.
func (h *Host) ReadFile(ctx context.Context, path, ref string) (string, error) {
	file, _, err := h.getFile(ctx, path, ref)
	if err != nil {
		return "", fmt.Errorf("reading %s@%s: %w", path, ref, err)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s@%s: %w", path, ref, err)
	}
	return content, nil
}

func (h *Host) getFile(ctx context.Context, path, ref string) (*github.RepositoryContent, *github.Response, error) {
	file, _, resp, err := h.client.Repositories.GetContents(ctx, h.owner, h.repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, resp, classify(err)
	}
	if file == nil {
		return nil, resp, fmt.Errorf("%s is a directory: %w", path, githost.ErrNotFound)
	}
	return file, resp, nil
}

// headSHA returns the commit at the tip of branch.
func (h *Host) headSHA(ctx context.Context, branch string) (string, error) {
	ref, _, err := h.client.Git.GetRef(ctx, h.owner, h.repo, "heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", branch, classify(err))
	}
	return ref.GetObject().GetSHA(), nil
}

// CreateBranch implements githost.Host.
func (h *Host) CreateBranch(ctx context.Context, name, from string) error {
	sha, err := h.headSHA(ctx, from)
	if err != nil {
		return err
	}

	if _, _, err := h.client.Git.CreateRef(ctx, h.owner, h.repo, github.CreateRef{
		Ref: "refs/heads/" + name,
		SHA: sha,
	}); err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusUnprocessableEntity {
			return fmt.Errorf("creating branch %s: %w: %w", name, githost.ErrBranchExists, err)
		}
		return fmt.Errorf("creating branch %s: %w", name, err)
	}
	clog.FromContext(ctx).With("branch", name, "from", from, "sha", sha).Info("Created branch")
	return nil
}

// CommitFile implements githost.FileCommitter. It updates the file when it
// exists on branch and creates it otherwise.
func (h *Host) CommitFile(ctx context.Context, branch, message string, file githost.File) (githost.Commit, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: []byte(file.Content),
		Branch:  github.Ptr(branch),
	}

	existing, _, err := h.getFile(ctx, file.Path, branch)
	switch {
	case err == nil:
		opts.SHA = github.Ptr(existing.GetSHA())
	case errors.Is(err, githost.ErrNotFound):
	default:
		return githost.Commit{}, fmt.Errorf("looking up %s: %w", file.Path, err)
	}

	var resp *github.RepositoryContentResponse
	if opts.SHA != nil {
		resp, _, err = h.client.Repositories.UpdateFile(ctx, h.owner, h.repo, file.Path, opts)
	} else {
		resp, _, err = h.client.Repositories.CreateFile(ctx, h.owner, h.repo, file.Path, opts)
	}
	if err != nil {
		return githost.Commit{}, fmt.Errorf("committing %s: %w", file.Path, classify(err))
	}
	return githost.Commit{ID: resp.Commit.GetSHA(), URL: resp.Commit.GetHTMLURL()}, nil
}

// OpenChangeRequest implements githost.Host with a pull request.
func (h *Host) OpenChangeRequest(ctx context.Context, source, target, title, body string) (string, error) {
	pr, _, err := h.client.PullRequests.Create(ctx, h.owner, h.repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
		Head:  github.Ptr(source),
		Base:  github.Ptr(target),
	})
	if err != nil {
		return "", fmt.Errorf("creating pull request %s -> %s: %w", source, target, err)
	}
	clog.FromContext(ctx).With("number", pr.GetNumber()).Info("Created pull request")
	return pr.GetHTMLURL(), nil
}

func classify(err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", githost.ErrNotFound, err)
	}
	return err
}
