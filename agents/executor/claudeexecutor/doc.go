/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package claudeexecutor is a completion.Provider backed by Anthropic Claude.

With an API key:

	client := anthropic.NewClient(option.WithAPIKey(key), option.WithMaxRetries(0))
	exec, err := claudeexecutor.New(client, claudeexecutor.WithModel("claude-sonnet-4-5"))

Through Vertex AI:

	client := anthropic.NewClient(vertex.WithGoogleAuth(ctx, "us-east5", projectID), option.WithMaxRetries(0))
*/
package claudeexecutor
