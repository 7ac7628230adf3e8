package hooks_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/hooks"
)

func TestParseFailurePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want hooks.FailurePolicy
	}{
		{"", hooks.PolicyWarn},
		{"warn", hooks.PolicyWarn},
		{"FAIL", hooks.PolicyFail},
		{"Ignore", hooks.PolicyIgnore},
	}
	for _, tt := range tests {
		got, err := hooks.ParseFailurePolicy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := hooks.ParseFailurePolicy("explode")
	assert.Error(t, err)
}

func TestNormalize_SplitsRunLine(t *testing.T) {
	h, err := hooks.HookConfig{Name: "notify", Run: `./notify.sh --channel "#deploys"`}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "./notify.sh", h.Command)
	assert.Equal(t, []string{"--channel", "#deploys"}, h.Args)
	assert.Equal(t, 60*time.Second, h.Timeout())
}

func TestNormalize_RejectsInvalidHooks(t *testing.T) {
	tests := []struct {
		name string
		hook hooks.HookConfig
	}{
		{"missing name", hooks.HookConfig{Command: "true"}},
		{"missing command", hooks.HookConfig{Name: "x"}},
		{"negative timeout", hooks.HookConfig{Name: "x", Command: "true", TimeoutSeconds: -1}},
		{"command and run", hooks.HookConfig{Name: "x", Command: "true", Run: "false"}},
		{"unterminated quote", hooks.HookConfig{Name: "x", Run: `echo "oops`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.hook.Normalize()
			assert.Error(t, err)
		})
	}
}

func TestContextJSON_UsesWireKeysAndNulls(t *testing.T) {
	project := domain.Project{Org: "acme", Name: "platform"}
	def := domain.Definition{ID: 42, Name: "api-ci"}

	data, err := hooks.NewContext(project, def, "", nil, nil).JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"org": "acme",
		"project": "platform",
		"pipelineId": 42,
		"pipelineName": "api-ci",
		"ref": null,
		"buildId": null,
		"parameters": {},
		"variables": {}
	}`, string(data))

	hctx := hooks.NewContext(project, def, "refs/heads/main", map[string]string{"env": "prod"}, map[string]string{"DEBUG": "1"}).WithBuild(1001)
	data, err = hctx.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "refs/heads/main", decoded["ref"])
	assert.Equal(t, float64(1001), decoded["buildId"])
	assert.Equal(t, map[string]any{"env": "prod"}, decoded["parameters"])
	assert.Equal(t, map[string]any{"DEBUG": "1"}, decoded["variables"])
}

func TestParseResponse(t *testing.T) {
	resp, err := hooks.ParseResponse(`{"approve": false, "reason": "Frozen"}`)
	require.NoError(t, err)
	assert.False(t, resp.Approve)
	assert.Equal(t, "Frozen", resp.Reason)

	resp, err = hooks.ParseResponse("\n  {\"approve\": true}\n")
	require.NoError(t, err)
	assert.True(t, resp.Approve)

	for _, bad := range []string{"", "not json", `{"reason": "x"}`, `{"approve": "yes"}`, "null", `{"approve": true} trailing`} {
		_, err := hooks.ParseResponse(bad)
		assert.Error(t, err, bad)
	}
}
