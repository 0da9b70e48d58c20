/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"chainguard.dev/sonarfix/agents/completion"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Executor sends single-turn prompts to Gemini.
type Executor struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
	temperature     float32
}

var _ completion.Provider = (*Executor)(nil)

// New creates an Executor around an existing genai client.
func New(client *genai.Client, opts ...Option) (*Executor, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	e := &Executor{
		client:          client,
		model:           DefaultModel,
		maxOutputTokens: 4000,
		temperature:     0.1,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Model implements completion.Provider.
func (e *Executor) Model() string {
	return e.model
}

// Invoke implements completion.Provider.
func (e *Executor) Invoke(ctx context.Context, system, user string) (completion.Reply, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(e.temperature),
		MaxOutputTokens: e.maxOutputTokens,
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(user), config)
	if err != nil {
		return completion.Reply{}, fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return completion.Reply{}, errors.New("gemini: response has no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			text.WriteString(part.Text)
		}
	}

	reply := completion.Reply{Text: text.String()}
	if um := resp.UsageMetadata; um != nil {
		reply.PromptTokens = int64(um.PromptTokenCount)
		reply.CompletionTokens = int64(um.CandidatesTokenCount)
	}
	return reply, nil
}
