/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package github implements githost for GitHub.

Host commits each file separately through the contents API. AtomicHost adds a
single-commit path through the GraphQL API:

	rest := github.NewClient(httpClient)
	host, err := ghhost.New(rest, "owner", "repo")
	atomic, err := ghhost.NewAtomic(host, githubv4.NewClient(httpClient))
*/
package github
