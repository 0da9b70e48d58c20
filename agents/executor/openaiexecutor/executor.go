/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"chainguard.dev/sonarfix/agents/completion"
)

const (
	// MistralBaseURL is the OpenAI-compatible endpoint of the Mistral API.
	MistralBaseURL = "https://api.mistral.ai/v1/"

	// DefaultModel is used when no model is configured.
	DefaultModel = "mistral-small-latest"

	// DefaultTimeout bounds a single chat completion request.
	DefaultTimeout = 60 * time.Second
)

// Executor sends single-turn prompts to an OpenAI-compatible chat completion
// endpoint.
type Executor struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

var _ completion.Provider = (*Executor)(nil)

// NewClient builds a chat client for baseURL with SDK retries disabled.
func NewClient(apiKey, baseURL string, timeout time.Duration) openai.Client {
	if baseURL == "" {
		baseURL = MistralBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	)
}

// New creates an Executor.
func New(client openai.Client, opts ...Option) (*Executor, error) {
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
	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(e.model),
		Messages:    messages,
		MaxTokens:   openai.Int(e.maxTokens),
		Temperature: openai.Float(e.temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return completion.Reply{}, fmt.Errorf("chat completion: status %d: %w", apiErr.StatusCode, err)
		}
		return completion.Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return completion.Reply{}, errors.New("chat completion: response has no choices")
	}

	return completion.Reply{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
