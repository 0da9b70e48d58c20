/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package findings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// maxPageSize is the largest page the issues search endpoint serves.
const maxPageSize = 500

// DefaultTypes are the issue types searched when a query names none.
var DefaultTypes = []string{"CODE_SMELL"}

// Query selects findings for one project.
type Query struct {
	ProjectKey string
	// PullRequest and Branch narrow the search scope; both are optional.
	PullRequest string
	Branch      string
	Types       []string
	// MaxCount bounds the number of findings returned.
	MaxCount int
}

// Client searches a SonarQube-compatible analysis server.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the server at baseURL authenticating with token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing analysis server URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("analysis server URL %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type textRange struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

type issue struct {
	Key       string     `json:"key"`
	Rule      string     `json:"rule"`
	Severity  string     `json:"severity"`
	Type      string     `json:"type"`
	Component string     `json:"component"`
	Message   string     `json:"message"`
	Line      int        `json:"line"`
	TextRange *textRange `json:"textRange"`
	Effort    string     `json:"effort"`
	Debt      string     `json:"debt"`
}

type searchResponse struct {
	Paging struct {
		PageIndex int `json:"pageIndex"`
		PageSize  int `json:"pageSize"`
		Total     int `json:"total"`
	} `json:"paging"`
	Issues []issue `json:"issues"`
}

func (i issue) finding() Finding {
	f := Finding{
		Key:       i.Key,
		Rule:      i.Rule,
		Severity:  i.Severity,
		Type:      i.Type,
		Message:   i.Message,
		Component: i.Component,
		Path:      PathFromComponent(i.Component),
		Line:      i.Line,
	}
	if f.Severity == "" {
		f.Severity = "MINOR"
	}
	if i.TextRange != nil {
		if f.Line == 0 {
			f.Line = i.TextRange.StartLine
		}
		f.EndLine = i.TextRange.EndLine
	}
	if f.Line == 0 {
		f.Line = 1
	}
	if f.EndLine < f.Line {
		f.EndLine = f.Line
	}
	effort := i.Effort
	if effort == "" {
		effort = i.Debt
	}
	f.DebtMinutes = ParseEffort(effort)
	return f
}

// SearchFindings returns up to q.MaxCount findings ordered by severity,
// most severe first, paging through the server as needed.
func (c *Client) SearchFindings(ctx context.Context, q Query) ([]Finding, error) {
	if q.ProjectKey == "" {
		return nil, errors.New("project key is required")
	}
	if q.MaxCount <= 0 {
		return nil, nil
	}
	types := q.Types
	if len(types) == 0 {
		types = DefaultTypes
	}

	log := clog.FromContext(ctx).With("project", q.ProjectKey)
	pageSize := min(q.MaxCount, maxPageSize)
	var out []Finding
	for page := 1; len(out) < q.MaxCount; page++ {
		params := url.Values{
			"componentKeys": {q.ProjectKey},
			"types":         {strings.Join(types, ",")},
			"ps":            {strconv.Itoa(pageSize)},
			"p":             {strconv.Itoa(page)},
			"facets":        {"severities,types"},
			"s":             {"SEVERITY"},
			"asc":           {"false"},
		}
		if q.PullRequest != "" {
			params.Set("pullRequest", q.PullRequest)
		}
		if q.Branch != "" {
			params.Set("branch", q.Branch)
		}

		var resp searchResponse
		if err := c.get(ctx, "/api/issues/search", params, &resp); err != nil {
			return nil, fmt.Errorf("searching issues (page %d): %w", page, err)
		}
		for _, is := range resp.Issues {
			if len(out) == q.MaxCount {
				break
			}
			out = append(out, is.finding())
		}
		if len(resp.Issues) < pageSize || page*pageSize >= resp.Paging.Total {
			break
		}
	}
	log.Infof("Fetched %d findings", len(out))
	return out, nil
}

// Validate checks that the token is accepted by the server.
func (c *Client) Validate(ctx context.Context) error {
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := c.get(ctx, "/api/authentication/validate", nil, &resp); err != nil {
		return err
	}
	if !resp.Valid {
		return errors.New("analysis server rejected the token")
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, into any) error {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.token, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
