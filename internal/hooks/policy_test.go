package hooks_test

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/waabox/azdeck/internal/hooks"
)

func TestClassify(t *testing.T) {
	hook := hooks.HookConfig{Name: "gate"}
	tests := []struct {
		name   string
		point  hooks.Point
		res    hooks.ProcessResult
		err    error
		kind   hooks.OutcomeKind
		reason string
	}{
		{"run error wins", hooks.PreQueue, hooks.ProcessResult{Stdout: `{"approve":true}`}, errors.New("timed out"), hooks.OutcomeExecFailure, "timed out"},
		{"non-zero exit", hooks.PreQueue, hooks.ProcessResult{ExitCode: 2, Stderr: "boom\n"}, nil, hooks.OutcomeExecFailure, "exited with code 2: boom"},
		{"exit without stderr", hooks.OnFail, hooks.ProcessResult{ExitCode: 1}, nil, hooks.OutcomeExecFailure, "exited with code 1"},
		{"approved", hooks.PreQueue, hooks.ProcessResult{Stdout: `{"approve":true}`}, nil, hooks.OutcomeSuccess, ""},
		{"rejected", hooks.PreQueue, hooks.ProcessResult{Stdout: `{"approve":false,"reason":"Frozen"}`}, nil, hooks.OutcomeBlocked, "Frozen"},
		{"rejected without reason", hooks.PreQueue, hooks.ProcessResult{Stdout: `{"approve":false}`}, nil, hooks.OutcomeBlocked, "no reason given"},
		{"completion output ignored", hooks.OnComplete, hooks.ProcessResult{Stdout: "garbage"}, nil, hooks.OutcomeSuccess, ""},
		{"completion rejection ignored", hooks.OnSuccess, hooks.ProcessResult{Stdout: `{"approve":false}`}, nil, hooks.OutcomeSuccess, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := hooks.Classify(tt.point, hook, tt.res, tt.err)
			assert.Equal(t, "gate", o.Hook)
			assert.Equal(t, tt.kind, o.Kind)
			assert.Equal(t, tt.reason, o.Reason)
		})
	}
}

func TestClassify_MalformedResponseIsExecutionFailure(t *testing.T) {
	hook := hooks.HookConfig{Name: "gate"}
	for _, stdout := range []string{"", "ok", `{"reason":"x"}`} {
		o := hooks.Classify(hooks.PreQueue, hook, hooks.ProcessResult{Stdout: stdout}, nil)
		assert.Equal(t, hooks.OutcomeExecFailure, o.Kind, "stdout %q", stdout)
		assert.Contains(t, o.Reason, "invalid hook response")
	}
}

func TestClassify_LongStderrIsTruncatedOnRuneBoundary(t *testing.T) {
	stderr := "a" + strings.Repeat("é", 250)
	o := hooks.Classify(hooks.OnFail, hooks.HookConfig{Name: "notify"}, hooks.ProcessResult{ExitCode: 1, Stderr: stderr}, nil)

	assert.Equal(t, hooks.OutcomeExecFailure, o.Kind)
	assert.True(t, utf8.ValidString(o.Reason), "reason %q", o.Reason)
	assert.Equal(t, "exited with code 1: a"+strings.Repeat("é", 199)+"...", o.Reason)
}

func TestDecide(t *testing.T) {
	failure := hooks.Outcome{Hook: "lint", Kind: hooks.OutcomeExecFailure, Reason: "exited with code 1"}
	blocked := hooks.Outcome{Hook: "freeze", Kind: hooks.OutcomeBlocked, Reason: "Frozen"}
	success := hooks.Outcome{Hook: "ok"}

	policies := []hooks.FailurePolicy{hooks.PolicyWarn, hooks.PolicyFail, hooks.PolicyIgnore}
	for _, p := range policies {
		a := hooks.Decide(blocked, p)
		assert.Equal(t, hooks.ActionAbort, a.Kind, "blocked under %s", p)
		assert.Contains(t, a.Message, `"freeze"`)
		assert.Contains(t, a.Message, "Frozen")

		assert.Equal(t, hooks.ActionContinue, hooks.Decide(success, p).Kind, "success under %s", p)
	}

	warn := hooks.Decide(failure, hooks.PolicyWarn)
	assert.Equal(t, hooks.ActionWarn, warn.Kind)
	assert.Equal(t, `hook "lint" failed: exited with code 1`, warn.Message)

	assert.Equal(t, hooks.ActionAbort, hooks.Decide(failure, hooks.PolicyFail).Kind)
	assert.Equal(t, hooks.Action{Kind: hooks.ActionContinue}, hooks.Decide(failure, hooks.PolicyIgnore))
}
