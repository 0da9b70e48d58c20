/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package googleexecutor is a completion.Provider backed by Gemini.

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
	    APIKey:  key,
	    Backend: genai.BackendGeminiAPI,
	})
	exec, err := googleexecutor.New(client, googleexecutor.WithModel("gemini-2.0-flash"))

On Google Cloud, ResolveVertex discovers the project and region so the client
can use the Vertex AI backend instead.
*/
package googleexecutor
