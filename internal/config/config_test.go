package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/azdeck/internal/config"
	"github.com/waabox/azdeck/internal/hooks"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"AZURE_DEVOPS_EXT_PAT", "AZDECK_ORG", "AZDECK_PROJECT", "AZDECK_URL"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, `
run_limit = 5

[azure]
org = "acme"
project = "platform"
token = "pat-from-file"
url = "https://tfs.example.com/tfs"
`)

	cfg, err := config.LoadFrom(context.Background(), configPath)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Azure.Org)
	assert.Equal(t, "platform", cfg.Azure.Project)
	assert.Equal(t, "pat-from-file", cfg.Azure.Token)
	assert.Equal(t, "https://tfs.example.com/tfs", cfg.Azure.URL)
	assert.Equal(t, 5, cfg.RunLimitOrDefault())
}

func TestLoad_EnvVarsTakePrecedence(t *testing.T) {
	configPath := writeConfig(t, `
[azure]
org = "file-org"
token = "pat-from-file"
`)

	t.Setenv("AZURE_DEVOPS_EXT_PAT", "pat-from-env")
	t.Setenv("AZDECK_ORG", "env-org")
	t.Setenv("AZDECK_PROJECT", "env-project")
	t.Setenv("AZDECK_URL", "https://devops.myco.com")

	cfg, err := config.LoadFrom(context.Background(), configPath)
	require.NoError(t, err)
	assert.Equal(t, "pat-from-env", cfg.Azure.Token)
	assert.Equal(t, "env-org", cfg.Azure.Org)
	assert.Equal(t, "env-project", cfg.Azure.Project)
	assert.Equal(t, "https://devops.myco.com", cfg.Azure.URL)
}

func TestLoad_MissingFileIsNotError(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_DEVOPS_EXT_PAT", "pat-only-env")

	cfg, err := config.LoadFrom(context.Background(), "/nonexistent/path/config.toml")
	require.NoError(t, err, "missing file should not be an error")
	assert.Equal(t, "pat-only-env", cfg.Azure.Token)
	assert.Equal(t, 10, cfg.RunLimitOrDefault())
}

func TestLoad_Hooks(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, `
[[hooks.pre_queue]]
name = "freeze-window"
command = "./scripts/freeze.sh"
args = ["--strict"]
timeout_seconds = 10
on_failure = "FAIL"

[[hooks.pre_queue]]
name = "lint"
run = "make lint-pipeline ENV=prod"

[[hooks.on_fail]]
name = "page"
command = "pager"
on_failure = "ignore"
`)

	cfg, err := config.LoadFrom(context.Background(), configPath)
	require.NoError(t, err)
	require.Len(t, cfg.Hooks.PreQueue, 2)

	freeze := cfg.Hooks.PreQueue[0]
	assert.Equal(t, hooks.PolicyFail, freeze.OnFailure)
	assert.Equal(t, 10, freeze.TimeoutSeconds)

	lint := cfg.Hooks.PreQueue[1]
	assert.Equal(t, "make", lint.Command)
	assert.Equal(t, []string{"lint-pipeline", "ENV=prod"}, lint.Args)
	assert.Equal(t, hooks.PolicyWarn, lint.OnFailure, "warn is the default policy")
	assert.Equal(t, 60, lint.TimeoutSeconds)

	require.Len(t, cfg.Hooks.OnFail, 1)
	assert.Equal(t, hooks.PolicyIgnore, cfg.Hooks.OnFail[0].OnFailure)
}

func TestLoad_RejectsInvalidHooks(t *testing.T) {
	clearEnv(t)
	tests := map[string]string{
		"unknown policy": `
[[hooks.on_complete]]
name = "x"
command = "true"
on_failure = "explode"
`,
		"negative timeout": `
[[hooks.pre_queue]]
name = "x"
command = "true"
timeout_seconds = -5
`,
		"missing command": `
[[hooks.on_success]]
name = "x"
`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadFrom(context.Background(), writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}
