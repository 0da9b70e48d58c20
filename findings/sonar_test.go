/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package findings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSearchFindings(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/issues/search" {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "s3cr3t" || pass != "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		for k, want := range map[string]string{
			"componentKeys": "acme",
			"types":         "CODE_SMELL",
			"s":             "SEVERITY",
			"asc":           "false",
			"pullRequest":   "42",
			"ps":            "10",
		} {
			if got := q.Get(k); got != want {
				t.Errorf("param %s: got = %q, wanted = %q", k, got, want)
			}
		}
		fmt.Fprint(w, `{
			"paging": {"pageIndex": 1, "pageSize": 10, "total": 2},
			"issues": [
				{"key": "AX1", "rule": "java:S1192", "severity": "CRITICAL", "type": "CODE_SMELL",
				 "component": "acme:src/A.java", "message": "Define a constant", "line": 7,
				 "textRange": {"startLine": 7, "endLine": 9}, "effort": "10min"},
				{"key": "AX2", "rule": "java:S125", "component": "acme:src/B.java",
				 "message": "Remove commented code", "debt": "1h"}
			]
		}`)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", "s3cr3t")
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}
	got, err := c.SearchFindings(context.Background(), Query{ProjectKey: "acme", PullRequest: "42", MaxCount: 10})
	if err != nil {
		t.Fatalf("SearchFindings() = %v", err)
	}
	want := []Finding{{
		Key: "AX1", Rule: "java:S1192", Severity: "CRITICAL", Type: "CODE_SMELL",
		Message: "Define a constant", Component: "acme:src/A.java", Path: "src/A.java",
		Line: 7, EndLine: 9, DebtMinutes: 10,
	}, {
		Key: "AX2", Rule: "java:S125", Severity: "MINOR",
		Message: "Remove commented code", Component: "acme:src/B.java", Path: "src/B.java",
		Line: 1, EndLine: 1, DebtMinutes: 60,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SearchFindings() (-want +got):\n%s", diff)
	}
}

func TestSearchFindings_Pagination(t *testing.T) {
	t.Parallel()
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("p"))
		ps, _ := strconv.Atoi(r.URL.Query().Get("ps"))
		resp := searchResponse{}
		resp.Paging.Total = 10000
		for i := range ps {
			resp.Issues = append(resp.Issues, issue{
				Key:       fmt.Sprintf("K%d", (page-1)*ps+i),
				Component: "acme:f.go",
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "t")
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}
	got, err := c.SearchFindings(context.Background(), Query{ProjectKey: "acme", MaxCount: 700})
	if err != nil {
		t.Fatalf("SearchFindings() = %v", err)
	}
	if len(got) != 700 {
		t.Fatalf("len: got = %d, wanted = 700", len(got))
	}
	if got[699].Key != "K699" {
		t.Errorf("last key: got = %q, wanted = K699", got[699].Key)
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("requests: got = %d, wanted = 2", n)
	}
}

func TestSearchFindings_Errors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient privileges", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "t", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}
	if _, err := c.SearchFindings(context.Background(), Query{ProjectKey: "acme", MaxCount: 5}); err == nil {
		t.Error("SearchFindings() expected error on 403")
	}
	if _, err := c.SearchFindings(context.Background(), Query{MaxCount: 5}); err == nil {
		t.Error("SearchFindings() expected error without project key")
	}
	if got, err := c.SearchFindings(context.Background(), Query{ProjectKey: "acme"}); err != nil || got != nil {
		t.Errorf("SearchFindings(MaxCount=0): got = (%v, %v), wanted no request", got, err)
	}
	if _, err := NewClient("not a url", "t"); err == nil {
		t.Error("NewClient() expected error for relative URL")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, _ := r.BasicAuth()
		fmt.Fprintf(w, `{"valid": %t}`, user == "good")
	}))
	t.Cleanup(srv.Close)

	for token, wantErr := range map[string]bool{"good": false, "bad": true} {
		c, err := NewClient(srv.URL, token)
		if err != nil {
			t.Fatalf("NewClient() = %v", err)
		}
		if err := c.Validate(context.Background()); (err != nil) != wantErr {
			t.Errorf("Validate(%s): got err = %v, wanted error = %v", token, err, wantErr)
		}
	}
}
