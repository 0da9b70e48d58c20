/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaiexecutor is a completion.Provider for OpenAI-compatible chat
// completion APIs. The default endpoint is Mistral.
package openaiexecutor
