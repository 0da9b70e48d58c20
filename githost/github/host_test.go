/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package github_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	gogithub "github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"

	"chainguard.dev/sonarfix/githost"
	ghhost "chainguard.dev/sonarfix/githost/github"
)

// fakeGitHub serves the small slice of the REST and GraphQL APIs the hosts use.
type fakeGitHub struct {
	mu       sync.Mutex
	files    map[string]map[string]string // branch -> path -> content
	heads    map[string]string
	puts     []map[string]any
	mutation map[string]any
	prs      []map[string]any
	refs     []map[string]string
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		files: map[string]map[string]string{"main": {"src/a.go": "package a\n"}},
		heads: map[string]string{"main": "1111111111111111111111111111111111111111"},
	}
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		path := r.PathValue("path")
		content, ok := f.files[r.URL.Query().Get("ref")][path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "Not Found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"path":     path,
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(content)),
			"sha":      "blob-" + path,
		})
	})
	mux.HandleFunc("PUT /repos/o/r/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["path"] = r.PathValue("path")
		f.puts = append(f.puts, body)
		raw, _ := base64.StdEncoding.DecodeString(body["content"].(string))
		f.files[body["branch"].(string)][r.PathValue("path")] = string(raw)
		sha := fmt.Sprintf("%040d", len(f.puts))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]any{"path": r.PathValue("path")},
			"commit":  map[string]any{"sha": sha, "html_url": "https://github.com/o/r/commit/" + sha},
		})
	})
	mux.HandleFunc("GET /repos/o/r/git/ref/heads/{branch}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		sha, ok := f.heads[r.PathValue("branch")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "Not Found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ref":    "refs/heads/" + r.PathValue("branch"),
			"object": map[string]any{"sha": sha, "type": "commit"},
		})
	})
	mux.HandleFunc("POST /repos/o/r/git/refs", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.refs = append(f.refs, body)
		name := strings.TrimPrefix(body["ref"], "refs/heads/")
		if _, ok := f.heads[name]; ok {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message": "Reference already exists"}`))
			return
		}
		f.heads[name] = body["sha"]
		f.files[name] = map[string]string{}
		for p, c := range f.files["main"] {
			f.files[name][p] = c
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"ref": body["ref"], "object": map[string]any{"sha": body["sha"]}})
	})
	mux.HandleFunc("POST /repos/o/r/pulls", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.prs = append(f.prs, body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"number": 9, "html_url": "https://github.com/o/r/pull/9"})
	})
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !strings.Contains(body.Query, "createCommitOnBranch(input: $input)") {
			t.Errorf("unexpected query: %s", body.Query)
		}
		f.mutation = body.Variables["input"].(map[string]any)
		_, _ = w.Write([]byte(`{"data": {"createCommitOnBranch": {"commit": {"oid": "feedface", "url": "https://github.com/o/r/commit/feedface"}}}}`))
	})
	return mux
}

func newHost(t *testing.T, f *fakeGitHub) (*ghhost.Host, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	client := gogithub.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("url.Parse() = %v", err)
	}
	client.BaseURL = base

	host, err := ghhost.New(client, "o", "r")
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return host, srv
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	host, _ := newHost(t, newFakeGitHub())

	got, err := host.ReadFile(context.Background(), "src/a.go", "main")
	if err != nil {
		t.Fatalf("ReadFile() = %v", err)
	}
	if got != "package a\n" {
		t.Errorf("ReadFile(): got = %q", got)
	}
	if _, err := host.ReadFile(context.Background(), "nope.go", "main"); !errors.Is(err, githost.ErrNotFound) {
		t.Errorf("ReadFile(missing): got = %v, wanted ErrNotFound", err)
	}
}

func TestCreateBranch(t *testing.T) {
	t.Parallel()
	f := newFakeGitHub()
	host, _ := newHost(t, f)

	if err := host.CreateBranch(context.Background(), "sonarfix-1", "main"); err != nil {
		t.Fatalf("CreateBranch() = %v", err)
	}
	if f.heads["sonarfix-1"] != f.heads["main"] {
		t.Errorf("new branch should start at main head, got %q", f.heads["sonarfix-1"])
	}
	if err := host.CreateBranch(context.Background(), "sonarfix-1", "main"); !errors.Is(err, githost.ErrBranchExists) {
		t.Errorf("second CreateBranch(): got = %v, wanted ErrBranchExists", err)
	}
	if err := host.CreateBranch(context.Background(), "x", "missing"); !errors.Is(err, githost.ErrNotFound) {
		t.Errorf("CreateBranch(missing base): got = %v, wanted ErrNotFound", err)
	}
}

func TestCreateBranch_RefPayload(t *testing.T) {
	t.Parallel()
	f := newFakeGitHub()
	host, _ := newHost(t, f)

	if err := host.CreateBranch(context.Background(), "sonarfix/main", "main"); err != nil {
		t.Fatalf("CreateBranch() = %v", err)
	}
	want := []map[string]string{{
		"ref": "refs/heads/sonarfix/main",
		"sha": "1111111111111111111111111111111111111111",
	}}
	if diff := cmp.Diff(want, f.refs); diff != "" {
		t.Errorf("create ref payload (-want +got):\n%s", diff)
	}
}

func TestCommitFile_UpdateAndCreate(t *testing.T) {
	t.Parallel()
	f := newFakeGitHub()
	host, _ := newHost(t, f)
	ctx := context.Background()
	if err := host.CreateBranch(ctx, "work", "main"); err != nil {
		t.Fatalf("CreateBranch() = %v", err)
	}

	commit, err := host.CommitFile(ctx, "work", "fix a", githost.File{Path: "src/a.go", Content: "package a // fixed\n"})
	if err != nil {
		t.Fatalf("CommitFile(update) = %v", err)
	}
	if commit.ID == "" || !strings.HasSuffix(commit.URL, commit.ID) {
		t.Errorf("commit: got = %+v", commit)
	}
	if _, err := host.CommitFile(ctx, "work", "add b", githost.File{Path: "src/b.go", Content: "package b\n"}); err != nil {
		t.Fatalf("CommitFile(create) = %v", err)
	}

	if len(f.puts) != 2 {
		t.Fatalf("puts: got = %d, wanted = 2", len(f.puts))
	}
	if f.puts[0]["sha"] != "blob-src/a.go" {
		t.Errorf("update should carry the existing blob sha, got %v", f.puts[0]["sha"])
	}
	if _, ok := f.puts[1]["sha"]; ok {
		t.Errorf("create should not carry a sha, got %v", f.puts[1]["sha"])
	}
	if got, _ := host.ReadFile(ctx, "src/a.go", "work"); got != "package a // fixed\n" {
		t.Errorf("work branch content: got = %q", got)
	}
	if got, _ := host.ReadFile(ctx, "src/a.go", "main"); got != "package a\n" {
		t.Errorf("main branch content changed: got = %q", got)
	}
}

func TestOpenChangeRequest(t *testing.T) {
	t.Parallel()
	f := newFakeGitHub()
	host, _ := newHost(t, f)

	got, err := host.OpenChangeRequest(context.Background(), "work", "main", "title", "body")
	if err != nil {
		t.Fatalf("OpenChangeRequest() = %v", err)
	}
	if got != "https://github.com/o/r/pull/9" {
		t.Errorf("url: got = %q", got)
	}
	if len(f.prs) != 1 || f.prs[0]["head"] != "work" || f.prs[0]["base"] != "main" {
		t.Errorf("pull request: got = %v", f.prs)
	}
}

func TestAtomicCommitFiles(t *testing.T) {
	t.Parallel()
	f := newFakeGitHub()
	host, srv := newHost(t, f)
	atomic, err := ghhost.NewAtomic(host, githubv4.NewEnterpriseClient(srv.URL+"/graphql", srv.Client()))
	if err != nil {
		t.Fatalf("NewAtomic() = %v", err)
	}

	commit, err := atomic.CommitFiles(context.Background(), "main", "Fix 2 findings\n\nFiles modified:\n- a\n- b", []githost.File{
		{Path: "a.go", Content: "A"},
		{Path: "b.go", Content: "B"},
	})
	if err != nil {
		t.Fatalf("CommitFiles() = %v", err)
	}
	if commit.ID != "feedface" || commit.URL != "https://github.com/o/r/commit/feedface" {
		t.Errorf("commit: got = %+v", commit)
	}

	if f.mutation["expectedHeadOid"] != f.heads["main"] {
		t.Errorf("expectedHeadOid: got = %v", f.mutation["expectedHeadOid"])
	}
	branch := f.mutation["branch"].(map[string]any)
	if branch["repositoryNameWithOwner"] != "o/r" || branch["branchName"] != "main" {
		t.Errorf("branch: got = %v", branch)
	}
	msg := f.mutation["message"].(map[string]any)
	if msg["headline"] != "Fix 2 findings" || !strings.HasPrefix(msg["body"].(string), "Files modified:") {
		t.Errorf("message: got = %v", msg)
	}
	additions := f.mutation["fileChanges"].(map[string]any)["additions"].([]any)
	if len(additions) != 2 {
		t.Fatalf("additions: got = %d, wanted = 2", len(additions))
	}
	first := additions[0].(map[string]any)
	if first["path"] != "a.go" || first["contents"] != base64.StdEncoding.EncodeToString([]byte("A")) {
		t.Errorf("first addition: got = %v", first)
	}
}

func TestAtomicCommitFiles_Empty(t *testing.T) {
	t.Parallel()
	host, srv := newHost(t, newFakeGitHub())
	atomic, err := ghhost.NewAtomic(host, githubv4.NewEnterpriseClient(srv.URL+"/graphql", srv.Client()))
	if err != nil {
		t.Fatalf("NewAtomic() = %v", err)
	}
	if _, err := atomic.CommitFiles(context.Background(), "main", "m", nil); err == nil {
		t.Error("expected error for empty commit")
	}
}
