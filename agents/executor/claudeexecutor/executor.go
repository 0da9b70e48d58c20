/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"chainguard.dev/sonarfix/agents/completion"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// Executor sends single-turn prompts to Claude.
type Executor struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

var _ completion.Provider = (*Executor)(nil)

// New creates an Executor. The client should be built with
// option.WithMaxRetries(0); retries belong to the completion client.
func New(client anthropic.Client, opts ...Option) (*Executor, error) {
	e := &Executor{
		client:      client,
		model:       DefaultModel,
		maxTokens:   4000,
		temperature: 0.1,
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
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: e.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		Temperature: anthropic.Float(e.temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return completion.Reply{}, describe(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return completion.Reply{
		Text:             text.String(),
		PromptTokens:     msg.Usage.InputTokens,
		CompletionTokens: msg.Usage.OutputTokens,
	}, nil
}

// describe adds the HTTP status to API errors.
func describe(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401:
			return fmt.Errorf("claude: invalid API key: %w", err)
		case 429, 529:
			return fmt.Errorf("claude: rate limited or overloaded (status %d): %w", apiErr.StatusCode, err)
		default:
			return fmt.Errorf("claude: status %d: %w", apiErr.StatusCode, err)
		}
	}
	return fmt.Errorf("claude: %w", err)
}
