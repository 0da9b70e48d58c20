/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chainguard.dev/sonarfix/agents/executor/retry"
	"chainguard.dev/sonarfix/agents/metrics"
	"chainguard.dev/sonarfix/agents/result"
)

// ErrNoCompletion is returned when every attempt of a call failed.
var ErrNoCompletion = errors.New("no completion")

// Provider performs a single call to an AI backend.
type Provider interface {
	// Model is the model identifier used for pricing and metrics.
	Model() string
	// Invoke sends one system and user prompt pair and returns the raw reply.
	Invoke(ctx context.Context, system, user string) (Reply, error)
}

// Reply is a provider response. Token counts are zero when the provider
// did not report them.
type Reply struct {
	Text             string
	PromptTokens     int64
	CompletionTokens int64
}

// Result is the outcome of Complete.
type Result struct {
	Content string
	Usage   Usage
	// Attempts is the number of provider calls made.
	Attempts int
	// Estimated is set when token counts were estimated locally.
	Estimated bool
}

// Client wraps a Provider with bounded retries, token accounting and cost
// tracking. The session usage total only grows until ResetUsage.
type Client struct {
	provider Provider
	catalog  Catalog
	retry    retry.RetryConfig
	system   string
	genai    *metrics.GenAI
	tracer   trace.Tracer

	mu    sync.Mutex
	total Usage
}

// Option configures a Client.
type Option func(*Client) error

// WithRetryConfig sets the retry policy.
func WithRetryConfig(cfg retry.RetryConfig) Option {
	return func(c *Client) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid retry config: %w", err)
		}
		c.retry = cfg
		return nil
	}
}

// WithSystemPrompt sets the system prompt sent with every call.
func WithSystemPrompt(system string) Option {
	return func(c *Client) error {
		c.system = system
		return nil
	}
}

// WithMetrics records token, cost and attempt metrics.
func WithMetrics(m *metrics.GenAI) Option {
	return func(c *Client) error {
		c.genai = m
		return nil
	}
}

// New creates a Client for the provider, priced from catalog.
func New(provider Provider, catalog Catalog, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	c := &Client{
		provider: provider,
		catalog:  catalog,
		retry:    retry.DefaultRetryConfig(),
		genai:    metrics.NewGenAI("chainguard.dev/sonarfix"),
		tracer:   otel.Tracer("chainguard.dev/sonarfix/agents/completion"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Model returns the provider's model identifier.
func (c *Client) Model() string {
	return c.provider.Model()
}

// Complete sends prompt with up to MaxRetries retries. On success the call's
// usage is added to the session total. When every attempt fails it returns
// an error wrapping ErrNoCompletion together with zero usage.
func (c *Client) Complete(ctx context.Context, prompt string) (Result, error) {
	model := c.provider.Model()
	ctx, span := c.tracer.Start(ctx, "completion.complete", trace.WithAttributes(
		attribute.String("gen_ai.system", c.catalog.Provider),
		attribute.String("gen_ai.request.model", model),
	))
	defer span.End()

	attempts := 0
	reply, err := retry.RetryWithBackoff(ctx, c.retry, "completion", retry.Always, func() (Reply, error) {
		attempts++
		r, err := c.provider.Invoke(ctx, c.system, prompt)
		if err == nil && strings.TrimSpace(r.Text) == "" {
			err = errors.New("empty completion")
		}
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeFailure
		}
		c.genai.RecordAttempt(ctx, model, outcome)
		return r, err
	})
	span.SetAttributes(attribute.Int("completion.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		clog.FromContext(ctx).With("model", model, "attempts", attempts).Warnf("Completion failed: %v", err)
		return Result{Attempts: attempts}, fmt.Errorf("%w: %w", ErrNoCompletion, err)
	}

	res := Result{Content: reply.Text, Attempts: attempts}
	res.Usage.PromptTokens, res.Usage.CompletionTokens = reply.PromptTokens, reply.CompletionTokens
	if res.Usage.PromptTokens == 0 {
		res.Usage.PromptTokens = EstimateTokens(c.system) + EstimateTokens(prompt)
		res.Estimated = true
	}
	if res.Usage.CompletionTokens == 0 {
		res.Usage.CompletionTokens = EstimateTokens(reply.Text)
		res.Estimated = true
	}
	res.Usage.CostUSD = c.catalog.Cost(model, res.Usage.PromptTokens, res.Usage.CompletionTokens)

	c.mu.Lock()
	c.total = c.total.Add(res.Usage)
	c.mu.Unlock()

	c.genai.RecordTokens(ctx, model, res.Usage.PromptTokens, res.Usage.CompletionTokens)
	c.genai.RecordCost(ctx, model, res.Usage.CostUSD)
	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", res.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", res.Usage.CompletionTokens),
	)
	return res, nil
}

// Fix completes prompt and extracts the replacement file body from the
// response. The returned Result carries usage even when extraction fails.
func (c *Client) Fix(ctx context.Context, prompt string) (string, Result, error) {
	res, err := c.Complete(ctx, prompt)
	if err != nil {
		return "", res, err
	}
	code, err := result.ExtractCode(res.Content)
	if err != nil {
		return "", res, err
	}
	return code, res, nil
}

// TotalUsage returns the usage accumulated since creation or the last reset.
func (c *Client) TotalUsage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// ResetUsage zeroes the session total.
func (c *Client) ResetUsage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = Usage{}
}
