package hooks

import (
	"fmt"
	"strings"
)

const maxReasonLen = 200

// OutcomeKind classifies a finished hook execution.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeExecFailure
	OutcomeBlocked
)

// Outcome is the classified result of running one hook.
type Outcome struct {
	Hook   string
	Kind   OutcomeKind
	Reason string
}

// Classify turns the raw result of a hook run into an Outcome. Checks apply in
// order: the run error, the exit code, then for gating points the response
// document and its verdict.
func Classify(point Point, hook HookConfig, res ProcessResult, runErr error) Outcome {
	o := Outcome{Hook: hook.Name}
	switch {
	case runErr != nil:
		o.Kind, o.Reason = OutcomeExecFailure, runErr.Error()
		return o
	case res.ExitCode != 0:
		o.Kind, o.Reason = OutcomeExecFailure, exitReason(res)
		return o
	case !point.Gating():
		return o
	}

	resp, err := ParseResponse(res.Stdout)
	if err != nil {
		o.Kind, o.Reason = OutcomeExecFailure, err.Error()
		return o
	}
	if !resp.Approve {
		o.Kind, o.Reason = OutcomeBlocked, resp.Reason
		if o.Reason == "" {
			o.Reason = "no reason given"
		}
	}
	return o
}

func exitReason(res ProcessResult) string {
	reason := fmt.Sprintf("exited with code %d", res.ExitCode)
	msg := strings.TrimSpace(res.Stderr)
	if msg == "" {
		return reason
	}
	if r := []rune(msg); len(r) > maxReasonLen {
		msg = string(r[:maxReasonLen]) + "..."
	}
	return reason + ": " + msg
}

// ActionKind is what the caller should do after a hook ran.
type ActionKind int

const (
	ActionContinue ActionKind = iota
	ActionWarn
	ActionAbort
)

// Action pairs an ActionKind with the message to show for it.
type Action struct {
	Kind    ActionKind
	Message string
}

// Decide maps an outcome and the hook's failure policy to an action. A block
// always aborts, whatever the policy.
func Decide(o Outcome, policy FailurePolicy) Action {
	switch o.Kind {
	case OutcomeBlocked:
		return Action{Kind: ActionAbort, Message: fmt.Sprintf("hook %q blocked the run: %s", o.Hook, o.Reason)}
	case OutcomeExecFailure:
		msg := fmt.Sprintf("hook %q failed: %s", o.Hook, o.Reason)
		switch policy {
		case PolicyFail:
			return Action{Kind: ActionAbort, Message: msg}
		case PolicyIgnore:
			return Action{Kind: ActionContinue}
		default:
			return Action{Kind: ActionWarn, Message: msg}
		}
	default:
		return Action{Kind: ActionContinue}
	}
}
