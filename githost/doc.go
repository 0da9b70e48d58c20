/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githost defines the capability a source-control host exposes to the
// fix pipeline: reading files at a ref, creating branches, committing fixed
// files and opening a change request.
//
// Implementations live in subpackages:
//   - gitlab: atomic multi-file commits through the GitLab API
//   - github: per-file commits through the contents API, or atomic commits
//     through the GraphQL createCommitOnBranch mutation
//   - local: commits into a local clone with go-git
package githost
