/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// AttributeEnricher enriches metric attributes with additional context, such
// as the project key or the rule of the finding being fixed. It receives the
// base attributes (model, outcome) and returns the enriched set.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

type projectKey struct{}

// WithProject returns a context carrying the analysis project key.
func WithProject(ctx context.Context, project string) context.Context {
	return context.WithValue(ctx, projectKey{}, project)
}

// ProjectEnricher adds the project key carried by the context, when present.
func ProjectEnricher(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	if p, ok := ctx.Value(projectKey{}).(string); ok && p != "" {
		return append(baseAttrs, attribute.String("project", p))
	}
	return baseAttrs
}
