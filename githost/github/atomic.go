/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/shurcooL/githubv4"

	"chainguard.dev/sonarfix/githost"
)

// AtomicHost commits a whole batch with the GraphQL createCommitOnBranch
// mutation. Reads, branches and pull requests go through the REST Host.
type AtomicHost struct {
	*Host
	gql *githubv4.Client
}

var _ githost.AtomicCommitter = (*AtomicHost)(nil)

// NewAtomic wraps host with a GraphQL client.
func NewAtomic(host *Host, gql *githubv4.Client) (*AtomicHost, error) {
	if host == nil || gql == nil {
		return nil, errors.New("rest host and graphql client are required")
	}
	return &AtomicHost{Host: host, gql: gql}, nil
}

// CommitFiles implements githost.AtomicCommitter. The commit is rejected by
// GitHub when branch moved since its head was read.
func (a *AtomicHost) CommitFiles(ctx context.Context, branch, message string, files []githost.File) (githost.Commit, error) {
	if len(files) == 0 {
		return githost.Commit{}, errors.New("no files to commit")
	}
	head, err := a.headSHA(ctx, branch)
	if err != nil {
		return githost.Commit{}, err
	}

	additions := make([]githubv4.FileAddition, 0, len(files))
	for _, f := range files {
		additions = append(additions, githubv4.FileAddition{
			Path:     githubv4.String(f.Path),
			Contents: githubv4.Base64String(base64.StdEncoding.EncodeToString([]byte(f.Content))),
		})
	}

	headline, body, _ := strings.Cut(message, "\n")
	msg := githubv4.CommitMessage{Headline: githubv4.String(headline)}
	if body = strings.TrimSpace(body); body != "" {
		msg.Body = githubv4.NewString(githubv4.String(body))
	}

	var mutation struct {
		CreateCommitOnBranch struct {
			Commit struct {
				Oid string
				Url string
			}
		} `graphql:"createCommitOnBranch(input: $input)"`
	}
	input := githubv4.CreateCommitOnBranchInput{
		Branch: githubv4.CommittableBranch{
			RepositoryNameWithOwner: githubv4.NewString(githubv4.String(a.owner + "/" + a.repo)),
			BranchName:              githubv4.NewString(githubv4.String(branch)),
		},
		Message:         msg,
		FileChanges:     &githubv4.FileChanges{Additions: &additions},
		ExpectedHeadOid: githubv4.GitObjectID(head),
	}
	if err := a.gql.Mutate(ctx, &mutation, input, nil); err != nil {
		return githost.Commit{}, fmt.Errorf("createCommitOnBranch on %s: %w", branch, err)
	}
	c := mutation.CreateCommitOnBranch.Commit
	return githost.Commit{ID: c.Oid, URL: c.Url}, nil
}
