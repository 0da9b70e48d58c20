/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"chainguard.dev/sonarfix/fixer"
	"chainguard.dev/sonarfix/githost"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

func validEnv() map[string]string {
	return map[string]string{
		"SONAR_TOKEN":       "sonar-token",
		"SONAR_PROJECT_KEY": "proj",
		"AI_API_KEY":        "ai-key",
		"GITLAB_TOKEN":      "gl-token",
		"GITLAB_PROJECT_ID": "42",
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(context.Background(), envconfig.MapLookuper(validEnv()))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxFindings)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, "mistral", cfg.AIProvider)
	assert.Equal(t, "gitlab", cfg.GitHost)
	assert.Equal(t, "contents", cfg.GitHubCommitMode)
	assert.Equal(t, ".sonarfix_cache.db", cfg.CacheDB)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 3, cfg.AIMaxRetries)
	assert.Equal(t, time.Second, cfg.AIBaseDelay)
	assert.Equal(t, []string{"CODE_SMELL"}, cfg.SonarIssueTypes)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.FingerprintNormalizeEOL)
	assert.False(t, cfg.TimestampedBranch)
	assert.Empty(t, cfg.WorkingBranch)
	assert.Equal(t, int64(4000), cfg.fileTokenLimit())
	require.NoError(t, cfg.validateRun())
}

func TestFileTokenLimit(t *testing.T) {
	for _, tt := range []struct {
		env  map[string]string
		want int64
	}{
		{env: map[string]string{}, want: 4000},
		{env: map[string]string{"AI_MAX_TOKENS": "8000"}, want: 8000},
		{env: map[string]string{"MAX_FILE_TOKENS": "1500"}, want: 1500},
		{env: map[string]string{"MAX_FILE_TOKENS": "-1"}, want: 0},
	} {
		env := validEnv()
		for k, v := range tt.env {
			env[k] = v
		}
		cfg, err := loadConfig(context.Background(), envconfig.MapLookuper(env))
		require.NoError(t, err)
		assert.Equal(t, tt.want, cfg.fileTokenLimit(), tt.env)
	}
}

func TestLoadConfig_Lists(t *testing.T) {
	env := validEnv()
	env["EXCLUDE_PATHS"] = "vendor/**,**/*_test.go"
	env["SONAR_ISSUE_TYPES"] = "CODE_SMELL,BUG"

	cfg, err := loadConfig(context.Background(), envconfig.MapLookuper(env))
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor/**", "**/*_test.go"}, cfg.ExcludePaths)
	assert.Equal(t, []string{"CODE_SMELL", "BUG"}, cfg.SonarIssueTypes)
}

func TestLoadConfig_BadValue(t *testing.T) {
	env := validEnv()
	env["BATCH_SIZE"] = "ten"

	_, err := loadConfig(context.Background(), envconfig.MapLookuper(env))
	require.ErrorIs(t, err, fixer.ErrConfig)
}

func TestValidateRun(t *testing.T) {
	tests := []struct {
		name    string
		change  map[string]string
		drop    []string
		wantErr string
	}{{
		name:    "missing analysis token",
		drop:    []string{"SONAR_TOKEN"},
		wantErr: "SONAR_TOKEN is required",
	}, {
		name:    "missing provider key",
		drop:    []string{"AI_API_KEY"},
		wantErr: "AI_API_KEY is required",
	}, {
		name:   "vertex needs no key",
		change: map[string]string{"AI_PROVIDER": "claude", "GCP_PROJECT_ID": "p"},
		drop:   []string{"AI_API_KEY"},
	}, {
		name:    "unknown provider",
		change:  map[string]string{"AI_PROVIDER": "llama"},
		wantErr: `unknown AI_PROVIDER "llama"`,
	}, {
		name:    "missing gitlab token",
		drop:    []string{"GITLAB_TOKEN"},
		wantErr: "GITLAB_TOKEN is required for GIT_HOST=gitlab",
	}, {
		name:    "github without credentials",
		change:  map[string]string{"GIT_HOST": "github", "GITHUB_OWNER": "o", "GITHUB_REPO": "r"},
		wantErr: "GITHUB_TOKEN or GITHUB_APP_ID is required",
	}, {
		name:    "github app without key",
		change:  map[string]string{"GIT_HOST": "github", "GITHUB_OWNER": "o", "GITHUB_REPO": "r", "GITHUB_APP_ID": "7"},
		wantErr: "GITHUB_INSTALLATION_ID and GITHUB_PRIVATE_KEY_PATH is required",
	}, {
		name:    "github bad commit mode",
		change:  map[string]string{"GIT_HOST": "github", "GITHUB_OWNER": "o", "GITHUB_REPO": "r", "GITHUB_TOKEN": "t", "GITHUB_COMMIT_MODE": "rest"},
		wantErr: `unknown GITHUB_COMMIT_MODE "rest"`,
	}, {
		name:   "local host",
		change: map[string]string{"GIT_HOST": "local", "LOCAL_REPO_PATH": "/src"},
		drop:   []string{"GITLAB_TOKEN", "GITLAB_PROJECT_ID"},
	}, {
		name:    "non-positive batch size",
		change:  map[string]string{"BATCH_SIZE": "0"},
		wantErr: "BATCH_SIZE must be positive",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnv()
			for k, v := range tt.change {
				env[k] = v
			}
			for _, k := range tt.drop {
				delete(env, k)
			}
			cfg, err := loadConfig(context.Background(), envconfig.MapLookuper(env))
			require.NoError(t, err)

			err = cfg.validateRun()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, fixer.ErrConfig)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFillFromKeyring(t *testing.T) {
	require.NoError(t, keyring.Set(keyringService, "GITLAB_TOKEN", "from-keyring"))
	t.Cleanup(func() { _ = keyring.Delete(keyringService, "GITLAB_TOKEN") })

	env := validEnv()
	delete(env, "GITLAB_TOKEN")
	env["SONAR_TOKEN"] = "from-env"
	cfg, err := loadConfig(context.Background(), envconfig.MapLookuper(env))
	require.NoError(t, err)

	cfg.fillFromKeyring()
	assert.Equal(t, "from-keyring", cfg.GitLabToken)
	assert.Equal(t, "from-env", cfg.SonarToken, "environment wins over the keyring")
	assert.Empty(t, cfg.GitHubToken)
}

func TestGraphQLURL(t *testing.T) {
	for in, want := range map[string]string{
		"https://ghe.example.com/api/v3":  "https://ghe.example.com/api/graphql",
		"https://ghe.example.com/api/v3/": "https://ghe.example.com/api/graphql",
		"https://ghe.example.com":         "https://ghe.example.com/api/graphql",
	} {
		assert.Equal(t, want, graphQLURL(in), in)
	}
}

func TestIsMissing(t *testing.T) {
	assert.True(t, isMissing(fmt.Errorf("reading a.go: %w", githost.ErrNotFound)))
	assert.False(t, isMissing(errors.New("boom")))
}
