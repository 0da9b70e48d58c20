/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package batch_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"chainguard.dev/sonarfix/batch"
	"chainguard.dev/sonarfix/githost/githosttest"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newFake(t *testing.T) *githosttest.Fake {
	t.Helper()
	fake := githosttest.New("main", nil)
	if err := fake.CreateBranch(context.Background(), "work", "main"); err != nil {
		t.Fatalf("CreateBranch() = %v", err)
	}
	return fake
}

func TestFlush_AtomicRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFake(t)

	m, err := batch.New(githosttest.Atomic{Fake: fake}, batch.WithSize(3), batch.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	m.Add("a.go", "A1")
	m.Add("b.go", "B")
	if m.ShouldFlush() {
		t.Fatal("ShouldFlush() = true below threshold")
	}
	m.Add("a.go", "A2")
	if m.Pending() != 2 {
		t.Fatalf("Pending(): got = %d, wanted = 2 after re-adding a path", m.Pending())
	}
	m.Add("c.go", "C")
	if !m.ShouldFlush() {
		t.Fatal("ShouldFlush() = false at threshold")
	}

	res := m.Flush(ctx, "work", "")
	if !res.Success || res.Err() != nil {
		t.Fatalf("Flush(): got = %+v", res)
	}
	if diff := cmp.Diff([]string{"a.go", "b.go", "c.go"}, res.Succeeded); diff != "" {
		t.Errorf("succeeded (-want, +got): %s", diff)
	}
	if m.Pending() != 0 || m.Commits() != 1 {
		t.Errorf("after flush: pending = %d, commits = %d", m.Pending(), m.Commits())
	}
	if len(fake.Commits) != 1 {
		t.Fatalf("host commits: got = %d, wanted = 1", len(fake.Commits))
	}
	if got, _ := fake.Content("work", "a.go"); got != "A2" {
		t.Errorf("latest write should win, got %q", got)
	}
	one := fmt.Sprintf("%040x", 1)
	for _, p := range res.Succeeded {
		if res.Commits[p].ID != one {
			t.Errorf("commit of %s: got = %q, wanted = %q", p, res.Commits[p].ID, one)
		}
	}
	want := "Fix 3 static-analysis findings (batch #1) - 2026-05-04T10:30:00Z\n\nFiles modified:\n- a.go\n- b.go\n- c.go"
	if res.Message != want {
		t.Errorf("message: got = %q, wanted = %q", res.Message, want)
	}
}

func TestFlush_PerFilePartialFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFake(t)
	fake.FailPaths["2.go"] = errors.New("409 conflict")
	fake.FailPaths["4.go"] = errors.New("500 server error")

	m, err := batch.New(githosttest.PerFile{Fake: fake}, batch.WithSize(5))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	for i := 1; i <= 5; i++ {
		m.Add(fmt.Sprintf("%d.go", i), "fixed")
	}

	res := m.Flush(ctx, "work", "custom message")
	if !res.Success {
		t.Fatalf("Flush() success = false, wanted true with partial failure")
	}
	if len(res.Succeeded) != 3 || len(res.Failed) != 2 {
		t.Fatalf("partition: got %d succeeded, %d failed", len(res.Succeeded), len(res.Failed))
	}
	if res.Failed[0].Path != "2.go" || res.Failed[1].Path != "4.go" {
		t.Errorf("failed paths: got = %+v", res.Failed)
	}
	if err := res.Err(); err == nil || !strings.Contains(err.Error(), "409 conflict") {
		t.Errorf("Err(): got = %v", err)
	}
	if m.Pending() != 0 {
		t.Errorf("Pending(): got = %d, wanted cleared", m.Pending())
	}
	if m.Commits() != 1 {
		t.Errorf("Commits(): got = %d, wanted = 1", m.Commits())
	}
	for _, c := range fake.Commits {
		if c.Message != "custom message" {
			t.Errorf("message: got = %q", c.Message)
		}
	}
}

func TestFlush_PerFileCommitIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFake(t)
	fake.FailPaths["b.go"] = errors.New("409 conflict")

	m, err := batch.New(githosttest.PerFile{Fake: fake}, batch.WithSize(3))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	m.Add("a.go", "A")
	m.Add("b.go", "B")
	m.Add("c.go", "C")

	res := m.Flush(ctx, "work", "")
	got := make(map[string]string, len(res.Commits))
	for p, c := range res.Commits {
		got[p] = c.ID
	}
	want := map[string]string{
		"a.go": fmt.Sprintf("%040x", 1),
		"c.go": fmt.Sprintf("%040x", 2),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("commit per path (-want, +got): %s", diff)
	}
}

func TestShouldFlush_WaitsForNextBatchAfterTotalFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFake(t)
	fake.FailPaths["a.go"] = errors.New("boom")

	m, err := batch.New(githosttest.Atomic{Fake: fake}, batch.WithSize(2))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	m.Add("a.go", "A")
	m.Add("b.go", "B")
	if res := m.Flush(ctx, "work", ""); res.Success {
		t.Fatal("Flush() success = true, wanted false")
	}
	if m.ShouldFlush() {
		t.Fatal("ShouldFlush() = true right after a failed flush")
	}
	m.Add("c.go", "C")
	if m.ShouldFlush() {
		t.Error("ShouldFlush() = true one file after a failed flush")
	}
	m.Add("d.go", "D")
	if !m.ShouldFlush() {
		t.Fatal("ShouldFlush() = false a full batch after a failed flush")
	}

	delete(fake.FailPaths, "a.go")
	if res := m.Flush(ctx, "work", ""); !res.Success {
		t.Fatalf("Flush(): got = %+v", res)
	}
	m.Add("e.go", "E")
	m.Add("f.go", "F")
	if !m.ShouldFlush() {
		t.Error("ShouldFlush() = false at the normal threshold after a successful flush")
	}
}

func TestFlush_TotalFailureKeepsPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFake(t)
	fake.FailPaths["a.go"] = errors.New("boom")

	m, err := batch.New(githosttest.Atomic{Fake: fake}, batch.WithSize(2))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	m.Add("a.go", "A")
	m.Add("b.go", "B")

	res := m.Flush(ctx, "work", "")
	if res.Success {
		t.Fatal("Flush() success = true, wanted false")
	}
	if len(res.Failed) != 2 {
		t.Errorf("failed: got = %d, wanted = 2", len(res.Failed))
	}
	if m.Pending() != 2 || m.Commits() != 0 {
		t.Errorf("pending = %d, commits = %d; wanted 2, 0", m.Pending(), m.Commits())
	}

	delete(fake.FailPaths, "a.go")
	res = m.FlushRemaining(ctx, "work")
	if !res.Success || m.Pending() != 0 || m.Commits() != 1 {
		t.Errorf("retry: got %+v, pending %d, commits %d", res, m.Pending(), m.Commits())
	}
	if !strings.Contains(res.Message, "(batch #1)") {
		t.Errorf("retry should reuse batch index 1, got %q", res.Message)
	}
}

func TestFlush_Empty(t *testing.T) {
	t.Parallel()
	fake := newFake(t)
	m, err := batch.New(githosttest.Atomic{Fake: fake})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	res := m.FlushRemaining(context.Background(), "work")
	if !res.Success || len(res.Succeeded) != 0 {
		t.Errorf("empty flush: got = %+v", res)
	}
	if m.Commits() != 0 || len(fake.Commits) != 0 {
		t.Error("empty flush must not commit")
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := batch.New(githosttest.New("main", nil)); err == nil {
		t.Error("expected error for host without commit capability")
	}
	if _, err := batch.New(githosttest.Atomic{Fake: githosttest.New("main", nil)}, batch.WithSize(0)); err == nil {
		t.Error("expected error for zero batch size")
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()
	paths := []string{"1", "2", "3", "4", "5", "6", "7"}
	got := batch.Message(paths, 3, fixedNow)
	want := "Fix 7 static-analysis findings (batch #3) - 2026-05-04T10:30:00Z\n\n" +
		"Files modified:\n- 1\n- 2\n- 3\n- 4\n- 5\n- ... and 2 more files"
	if got != want {
		t.Errorf("Message(): got = %q, wanted = %q", got, want)
	}
}
