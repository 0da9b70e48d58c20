/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Call outcomes recorded on the attempts counter.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// GenAI provides OpenTelemetry metrics for completion calls: token usage,
// cost in USD, and call attempts. Counters that fail to register degrade to
// no-ops instead of failing the caller.
type GenAI struct {
	meter            metric.Meter
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	cost             metric.Float64Counter
	attempts         metric.Int64Counter
	attrEnricher     AttributeEnricher
}

// NewGenAI creates a new GenAI metrics instance with the specified meter name.
// The model is recorded as a dimension so one meter serves every provider.
func NewGenAI(meterName string) *GenAI {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	promptTokens, err := meter.Int64Counter("genai.token.prompt",
		metric.WithDescription("The number of prompt tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create prompt tokens counter, metrics will be disabled", "error", err, "meter", meterName)
		promptTokens = noop.Int64Counter{}
	}

	completionTokens, err := meter.Int64Counter("genai.token.completion",
		metric.WithDescription("The number of completion tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create completion tokens counter, metrics will be disabled", "error", err, "meter", meterName)
		completionTokens = noop.Int64Counter{}
	}

	cost, err := meter.Float64Counter("genai.cost",
		metric.WithDescription("The estimated cost of completion calls"),
		metric.WithUnit("{USD}"))
	if err != nil {
		slog.Warn("Failed to create cost counter, metrics will be disabled", "error", err, "meter", meterName)
		cost = noop.Float64Counter{}
	}

	attempts, err := meter.Int64Counter("genai.call.attempts",
		metric.WithDescription("The number of provider calls attempted, by outcome"),
		metric.WithUnit("{calls}"))
	if err != nil {
		slog.Warn("Failed to create attempts counter, metrics will be disabled", "error", err, "meter", meterName)
		attempts = noop.Int64Counter{}
	}

	return &GenAI{
		meter:            meter,
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		cost:             cost,
		attempts:         attempts,
	}
}

// SetAttributeEnricher sets the attribute enricher for this metrics instance.
func (m *GenAI) SetAttributeEnricher(enricher AttributeEnricher) {
	m.attrEnricher = enricher
}

func (m *GenAI) attributes(ctx context.Context, base []attribute.KeyValue, attrs []attribute.KeyValue) metric.MeasurementOption {
	if m.attrEnricher != nil {
		base = m.attrEnricher(ctx, base)
	}
	return metric.WithAttributes(append(base, attrs...)...)
}

// RecordTokens records prompt and completion token usage for a model.
func (m *GenAI) RecordTokens(ctx context.Context, model string, promptTokens, completionTokens int64, attrs ...attribute.KeyValue) {
	opt := m.attributes(ctx, []attribute.KeyValue{attribute.String("model", model)}, attrs)
	m.promptTokens.Add(ctx, promptTokens, opt)
	m.completionTokens.Add(ctx, completionTokens, opt)
}

// RecordCost records the USD cost of one completion.
func (m *GenAI) RecordCost(ctx context.Context, model string, usd float64, attrs ...attribute.KeyValue) {
	m.cost.Add(ctx, usd, m.attributes(ctx, []attribute.KeyValue{attribute.String("model", model)}, attrs))
}

// RecordAttempt records a single provider call and its outcome.
func (m *GenAI) RecordAttempt(ctx context.Context, model, outcome string, attrs ...attribute.KeyValue) {
	m.attempts.Add(ctx, 1, m.attributes(ctx, []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	}, attrs))
}
