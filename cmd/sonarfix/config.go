/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/zalando/go-keyring"

	"chainguard.dev/sonarfix/fixer"
)

// keyringService is the OS keyring service holding secrets that are not set
// in the environment.
const keyringService = "sonarfix"

type config struct {
	// Analysis server
	SonarURL         string   `env:"SONAR_URL,default=http://localhost:9000"`
	SonarToken       string   `env:"SONAR_TOKEN"`
	SonarProjectKey  string   `env:"SONAR_PROJECT_KEY"`
	SonarPullRequest string   `env:"SONAR_PULL_REQUEST"`
	SonarBranch      string   `env:"SONAR_BRANCH"`
	SonarIssueTypes  []string `env:"SONAR_ISSUE_TYPES,default=CODE_SMELL"`
	MaxFindings      int      `env:"MAX_FINDINGS,default=10"`

	// AI provider
	AIProvider    string        `env:"AI_PROVIDER,default=mistral"`
	AIAPIKey      string        `env:"AI_API_KEY"`
	AIModel       string        `env:"AI_MODEL"`
	AIBaseURL     string        `env:"AI_BASE_URL"`
	AIMaxRetries  int           `env:"AI_MAX_RETRIES,default=3"`
	AIBaseDelay   time.Duration `env:"AI_BASE_DELAY,default=1s"`
	AIMaxTokens   int64         `env:"AI_MAX_TOKENS,default=4000"`
	AITemperature float64       `env:"AI_TEMPERATURE,default=0.1"`
	GCPProjectID  string        `env:"GCP_PROJECT_ID"`
	GCPRegion     string        `env:"GCP_REGION"`

	// Git host
	GitHost             string `env:"GIT_HOST,default=gitlab"`
	BaseBranch          string `env:"BASE_BRANCH,default=main"`
	WorkingBranch       string `env:"WORKING_BRANCH"`
	TimestampedBranch   bool   `env:"TIMESTAMPED_BRANCH,default=false"`
	BatchSize           int    `env:"BATCH_SIZE,default=10"`
	CreateChangeRequest bool   `env:"CREATE_CHANGE_REQUEST,default=true"`

	GitLabURL       string `env:"GITLAB_URL,default=https://gitlab.com"`
	GitLabToken     string `env:"GITLAB_TOKEN"`
	GitLabProjectID string `env:"GITLAB_PROJECT_ID"`

	GitHubURL            string `env:"GITHUB_URL"`
	GitHubToken          string `env:"GITHUB_TOKEN"`
	GitHubOwner          string `env:"GITHUB_OWNER"`
	GitHubRepo           string `env:"GITHUB_REPO"`
	GitHubCommitMode     string `env:"GITHUB_COMMIT_MODE,default=contents"`
	GitHubAppID          int64  `env:"GITHUB_APP_ID"`
	GitHubInstallationID int64  `env:"GITHUB_INSTALLATION_ID"`
	GitHubPrivateKeyPath string `env:"GITHUB_PRIVATE_KEY_PATH"`

	LocalRepoPath string `env:"LOCAL_REPO_PATH,default=."`

	// Storage and run behavior
	CacheDB                 string   `env:"CACHE_DB,default=.sonarfix_cache.db"`
	RetentionDays           int      `env:"RETENTION_DAYS,default=30"`
	FingerprintNormalizeEOL bool     `env:"FINGERPRINT_NORMALIZE_EOL,default=false"`
	PromptCatalog           string   `env:"PROMPT_CATALOG"`
	ExcludePaths            []string `env:"EXCLUDE_PATHS"`
	MaxFileTokens           int64    `env:"MAX_FILE_TOKENS,default=0"`
	DryRun                  bool     `env:"DRY_RUN,default=false"`

	// Reporting and logging
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
}

// loadConfig reads the environment through l. A nil l reads the process
// environment.
func loadConfig(ctx context.Context, l envconfig.Lookuper) (*config, error) {
	var cfg config
	if l == nil {
		l = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", fixer.ErrConfig, err)
	}
	return &cfg, nil
}

// secrets returns pointers to every secret field, keyed by variable name.
func (c *config) secrets() map[string]*string {
	return map[string]*string{
		"SONAR_TOKEN":  &c.SonarToken,
		"AI_API_KEY":   &c.AIAPIKey,
		"GITLAB_TOKEN": &c.GitLabToken,
		"GITHUB_TOKEN": &c.GitHubToken,
	}
}

// fillFromKeyring sets empty secrets from the OS keyring. Entries that are
// absent or unreadable stay empty.
func (c *config) fillFromKeyring() {
	for name, field := range c.secrets() {
		if *field != "" {
			continue
		}
		if v, err := keyring.Get(keyringService, name); err == nil {
			*field = v
		}
	}
}

// usesVertex reports whether the provider authenticates with Google
// application default credentials instead of an API key.
func (c *config) usesVertex() bool {
	switch c.AIProvider {
	case "claude", "gemini":
		return c.AIAPIKey == ""
	}
	return false
}

// fileTokenLimit is MAX_FILE_TOKENS, falling back to AI_MAX_TOKENS when unset.
// A negative value turns the size checks off.
func (c *config) fileTokenLimit() int64 {
	switch {
	case c.MaxFileTokens < 0:
		return 0
	case c.MaxFileTokens == 0:
		return c.AIMaxTokens
	}
	return c.MaxFileTokens
}

// validateRun checks everything a fix run needs before any network call.
func (c *config) validateRun() error {
	var errs []error
	missing := func(name string) {
		errs = append(errs, fmt.Errorf("%s is required", name))
	}

	if c.SonarToken == "" {
		missing("SONAR_TOKEN")
	}
	if c.SonarProjectKey == "" {
		missing("SONAR_PROJECT_KEY")
	}
	switch c.AIProvider {
	case "mistral", "openai":
		if c.AIAPIKey == "" {
			missing("AI_API_KEY")
		}
	case "claude", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider))
	}
	if err := c.validateHost(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxFindings <= 0 {
		errs = append(errs, errors.New("MAX_FINDINGS must be positive"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, errors.New("BATCH_SIZE must be positive"))
	}
	if c.AIMaxRetries < 0 {
		errs = append(errs, errors.New("AI_MAX_RETRIES cannot be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", fixer.ErrConfig, err)
	}
	return nil
}

// validateHost checks the settings of the selected git host.
func (c *config) validateHost() error {
	var errs []error
	missing := func(name string) {
		errs = append(errs, fmt.Errorf("%s is required for GIT_HOST=%s", name, c.GitHost))
	}

	switch c.GitHost {
	case "gitlab":
		if c.GitLabToken == "" {
			missing("GITLAB_TOKEN")
		}
		if c.GitLabProjectID == "" {
			missing("GITLAB_PROJECT_ID")
		}
	case "github":
		if c.GitHubToken == "" && c.GitHubAppID == 0 {
			missing("GITHUB_TOKEN or GITHUB_APP_ID")
		}
		if c.GitHubAppID != 0 && (c.GitHubInstallationID == 0 || c.GitHubPrivateKeyPath == "") {
			missing("GITHUB_INSTALLATION_ID and GITHUB_PRIVATE_KEY_PATH")
		}
		if c.GitHubOwner == "" {
			missing("GITHUB_OWNER")
		}
		if c.GitHubRepo == "" {
			missing("GITHUB_REPO")
		}
		switch c.GitHubCommitMode {
		case "contents", "graphql":
		default:
			errs = append(errs, fmt.Errorf("unknown GITHUB_COMMIT_MODE %q", c.GitHubCommitMode))
		}
	case "local":
		if c.LocalRepoPath == "" {
			missing("LOCAL_REPO_PATH")
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GIT_HOST %q", c.GitHost))
	}
	return errors.Join(errs...)
}
