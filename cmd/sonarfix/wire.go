/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	"google.golang.org/genai"

	"chainguard.dev/sonarfix/agents/completion"
	"chainguard.dev/sonarfix/agents/executor/claudeexecutor"
	"chainguard.dev/sonarfix/agents/executor/googleexecutor"
	"chainguard.dev/sonarfix/agents/executor/openaiexecutor"
	"chainguard.dev/sonarfix/agents/executor/retry"
	"chainguard.dev/sonarfix/agents/metrics"
	"chainguard.dev/sonarfix/agents/promptbuilder"
	"chainguard.dev/sonarfix/fingerprint"
	"chainguard.dev/sonarfix/fixer"
	"chainguard.dev/sonarfix/githost"
	ghhost "chainguard.dev/sonarfix/githost/github"
	"chainguard.dev/sonarfix/githost/gitlab"
	"chainguard.dev/sonarfix/githost/local"
)

const (
	openAIBaseURL = "https://api.openai.com/v1/"
	meterName     = "chainguard.dev/sonarfix"
)

// newProvider builds the completion backend selected by AI_PROVIDER.
func newProvider(ctx context.Context, cfg *config) (completion.Provider, error) {
	switch cfg.AIProvider {
	case "mistral", "openai":
		base := cfg.AIBaseURL
		if base == "" {
			base = openaiexecutor.MistralBaseURL
			if cfg.AIProvider == "openai" {
				base = openAIBaseURL
			}
		}
		opts := []openaiexecutor.Option{
			openaiexecutor.WithMaxTokens(cfg.AIMaxTokens),
			openaiexecutor.WithTemperature(cfg.AITemperature),
		}
		if cfg.AIModel != "" {
			opts = append(opts, openaiexecutor.WithModel(cfg.AIModel))
		} else if cfg.AIProvider == "openai" {
			opts = append(opts, openaiexecutor.WithModel("gpt-4o-mini"))
		}
		return openaiexecutor.New(openaiexecutor.NewClient(cfg.AIAPIKey, base, openaiexecutor.DefaultTimeout), opts...)

	case "claude":
		reqOpts := []anthropicoption.RequestOption{
			anthropicoption.WithMaxRetries(0),
			anthropicoption.WithRequestTimeout(openaiexecutor.DefaultTimeout),
		}
		if cfg.usesVertex() {
			project, region, err := googleexecutor.ResolveVertex(ctx, cfg.GCPProjectID, cfg.GCPRegion)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", fixer.ErrConfig, err)
			}
			reqOpts = append(reqOpts, vertex.WithGoogleAuth(ctx, region, project))
		} else {
			reqOpts = append(reqOpts, anthropicoption.WithAPIKey(cfg.AIAPIKey))
		}
		opts := []claudeexecutor.Option{
			claudeexecutor.WithMaxTokens(cfg.AIMaxTokens),
			claudeexecutor.WithTemperature(cfg.AITemperature),
		}
		if cfg.AIModel != "" {
			opts = append(opts, claudeexecutor.WithModel(cfg.AIModel))
		}
		return claudeexecutor.New(anthropic.NewClient(reqOpts...), opts...)

	case "gemini":
		cc := &genai.ClientConfig{}
		if cfg.usesVertex() {
			project, region, err := googleexecutor.ResolveVertex(ctx, cfg.GCPProjectID, cfg.GCPRegion)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", fixer.ErrConfig, err)
			}
			cc.Backend = genai.BackendVertexAI
			cc.Project = project
			cc.Location = region
		} else {
			cc.Backend = genai.BackendGeminiAPI
			cc.APIKey = cfg.AIAPIKey
		}
		client, err := genai.NewClient(ctx, cc)
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
		opts := []googleexecutor.Option{
			googleexecutor.WithMaxOutputTokens(int32(cfg.AIMaxTokens)),
			googleexecutor.WithTemperature(float32(cfg.AITemperature)),
		}
		if cfg.AIModel != "" {
			opts = append(opts, googleexecutor.WithModel(cfg.AIModel))
		}
		return googleexecutor.New(client, opts...)
	}
	return nil, fmt.Errorf("%w: unknown AI_PROVIDER %q", fixer.ErrConfig, cfg.AIProvider)
}

// newCompleter wraps the provider with retries, pricing and metrics.
func newCompleter(ctx context.Context, cfg *config, system string) (*completion.Client, error) {
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	catalog, ok := completion.CatalogFor(cfg.AIProvider)
	if !ok {
		return nil, fmt.Errorf("%w: no price list for %q", fixer.ErrConfig, cfg.AIProvider)
	}

	rc := retry.DefaultRetryConfig()
	rc.MaxRetries = cfg.AIMaxRetries
	rc.BaseBackoff = cfg.AIBaseDelay

	m := metrics.NewGenAI(meterName)
	m.SetAttributeEnricher(metrics.ProjectEnricher)

	return completion.New(provider, catalog,
		completion.WithRetryConfig(rc),
		completion.WithSystemPrompt(system),
		completion.WithMetrics(m),
	)
}

// loadPrompts returns PROMPT_CATALOG when set, else the built-in catalog.
func loadPrompts(cfg *config) (*promptbuilder.Catalog, error) {
	if cfg.PromptCatalog == "" {
		return promptbuilder.DefaultCatalog()
	}
	c, err := promptbuilder.LoadCatalogFile(cfg.PromptCatalog)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fixer.ErrConfig, err)
	}
	return c, nil
}

// newHost builds the git host selected by GIT_HOST.
func newHost(ctx context.Context, cfg *config) (githost.Host, error) {
	switch cfg.GitHost {
	case "gitlab":
		client, err := gitlab.NewClient(cfg.GitLabToken, cfg.GitLabURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fixer.ErrConfig, err)
		}
		return gitlab.New(client, cfg.GitLabProjectID)

	case "github":
		return newGitHubHost(ctx, cfg)

	case "local":
		return local.Open(cfg.LocalRepoPath)
	}
	return nil, fmt.Errorf("%w: unknown GIT_HOST %q", fixer.ErrConfig, cfg.GitHost)
}

func newGitHubHost(ctx context.Context, cfg *config) (githost.Host, error) {
	var hc *http.Client
	if cfg.GitHubAppID != 0 {
		tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, cfg.GitHubAppID, cfg.GitHubInstallationID, cfg.GitHubPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: loading GitHub App key: %w", fixer.ErrConfig, err)
		}
		if cfg.GitHubURL != "" {
			tr.BaseURL = strings.TrimSuffix(cfg.GitHubURL, "/")
		}
		hc = &http.Client{Transport: tr}
	} else {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken}))
	}

	rest := gogithub.NewClient(hc)
	if cfg.GitHubURL != "" && !isPublicGitHub(cfg.GitHubURL) {
		var err error
		if rest, err = rest.WithEnterpriseURLs(cfg.GitHubURL, cfg.GitHubURL); err != nil {
			return nil, fmt.Errorf("%w: %w", fixer.ErrConfig, err)
		}
	}
	host, err := ghhost.New(rest, cfg.GitHubOwner, cfg.GitHubRepo)
	if err != nil {
		return nil, err
	}
	if cfg.GitHubCommitMode != "graphql" {
		return host, nil
	}

	var gql *githubv4.Client
	if cfg.GitHubURL != "" && !isPublicGitHub(cfg.GitHubURL) {
		gql = githubv4.NewEnterpriseClient(graphQLURL(cfg.GitHubURL), hc)
	} else {
		gql = githubv4.NewClient(hc)
	}
	return ghhost.NewAtomic(host, gql)
}

func isPublicGitHub(u string) bool {
	return strings.TrimSuffix(u, "/") == "https://api.github.com"
}

// graphQLURL maps a GitHub Enterprise REST base (https://host/api/v3) to its
// GraphQL endpoint (https://host/api/graphql).
func graphQLURL(restBase string) string {
	base := strings.TrimSuffix(restBase, "/")
	base = strings.TrimSuffix(base, "/v3")
	if !strings.HasSuffix(base, "/api") {
		base += "/api"
	}
	return base + "/graphql"
}

// openStore opens the fingerprint store at CACHE_DB.
func openStore(ctx context.Context, cfg *config) (*fingerprint.Store, error) {
	var opts []fingerprint.Option
	if cfg.FingerprintNormalizeEOL {
		opts = append(opts, fingerprint.WithLineEndingNormalization())
	}
	return fingerprint.Open(ctx, cfg.CacheDB, opts...)
}

// isMissing reports whether a git host error means the file is gone.
func isMissing(err error) bool {
	return errors.Is(err, githost.ErrNotFound)
}
