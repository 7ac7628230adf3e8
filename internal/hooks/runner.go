package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// waitDelay bounds how long Wait blocks on pipes held open by descendants of
// a killed hook.
const waitDelay = 2 * time.Second

// ProcessResult is what a hook process left behind once it exited.
type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExecError reports a hook that could not be started or did not finish in time.
type ExecError struct {
	Hook   string
	Reason string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("hook %q %s: %v", e.Hook, e.Reason, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Runner executes a single hook.
type Runner interface {
	Run(ctx context.Context, point Point, hook HookConfig, hctx HookContext) (ProcessResult, error)
}

// ProcessRunner runs hooks as child processes. The context is written to the
// child's stdin as JSON and the process is killed when its timeout elapses or
// ctx is canceled.
type ProcessRunner struct {
	// Env is appended to the current environment of every hook.
	Env []string
}

// Run executes hook and waits for it. A non-zero exit status is not an error:
// it is reported through ProcessResult.ExitCode.
func (r ProcessRunner) Run(ctx context.Context, point Point, hook HookConfig, hctx HookContext) (ProcessResult, error) {
	payload, err := hctx.JSON()
	if err != nil {
		return ProcessResult{}, &ExecError{Hook: hook.Name, Reason: "could not encode its context", Err: err}
	}

	timeout := hook.Timeout()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, hook.Command, hook.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Env = append(cmd.Env,
		"AZDECK_HOOK_NAME="+hook.Name,
		"AZDECK_HOOK_EVENT="+string(point),
		"AZDECK_HOOK_INVOCATION="+uuid.NewString(),
	)

	runErr := cmd.Run()
	res := ProcessResult{Stdout: stdout.String(), Stderr: stderr.String()}

	switch {
	case ctx.Err() != nil:
		return res, &ExecError{Hook: hook.Name, Reason: "was interrupted", Err: ctx.Err()}
	case runCtx.Err() != nil:
		return res, &ExecError{Hook: hook.Name, Reason: fmt.Sprintf("timed out after %s", timeout), Err: runCtx.Err()}
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if runErr != nil {
		return res, &ExecError{Hook: hook.Name, Reason: "could not be started", Err: runErr}
	}
	return res, nil
}
