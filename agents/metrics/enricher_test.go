/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
)

func TestProjectEnricher(t *testing.T) {
	t.Parallel()
	base := []attribute.KeyValue{attribute.String("model", "m")}

	if got := ProjectEnricher(context.Background(), base); len(got) != 1 {
		t.Fatalf("without project: got %d attributes, wanted 1", len(got))
	}

	got := ProjectEnricher(WithProject(context.Background(), "acme"), base)
	want := []attribute.KeyValue{attribute.String("model", "m"), attribute.String("project", "acme")}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b attribute.KeyValue) bool { return a == b })); diff != "" {
		t.Errorf("attributes (-want +got):\n%s", diff)
	}
}

func TestGenAI_RecordWithoutProvider(t *testing.T) {
	t.Parallel()
	// The global meter provider is a no-op until one is installed.
	m := NewGenAI("sonarfix.test")
	m.SetAttributeEnricher(ProjectEnricher)
	ctx := WithProject(context.Background(), "acme")
	m.RecordTokens(ctx, "mistral-small", 10, 5)
	m.RecordCost(ctx, "mistral-small", 0.01)
	m.RecordAttempt(ctx, "mistral-small", OutcomeSuccess)
}
