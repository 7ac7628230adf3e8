package hooks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/timeline"
)

// BlockedError is returned when a pre-queue hook rejected the run.
type BlockedError struct {
	Hook   string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("pre-queue hook %q blocked the run: %s", e.Hook, e.Reason)
}

// HookFailedError is returned when a hook with the fail policy could not
// complete successfully.
type HookFailedError struct {
	Hook   string
	Point  Point
	Reason string
	Err    error
}

func (e *HookFailedError) Error() string {
	return fmt.Sprintf("%s hook %q failed: %s", e.Point, e.Hook, e.Reason)
}

func (e *HookFailedError) Unwrap() error { return e.Err }

// Service runs the configured hooks of each lifecycle point, one at a time
// and in configured order.
type Service struct {
	hooks  Set
	runner Runner
	logger *slog.Logger
}

// NewService creates a Service. A nil logger discards warnings.
func NewService(hooks Set, runner Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{hooks: hooks, runner: runner, logger: logger}
}

// RunPreQueue runs the pre-queue hooks. The first block or fail-policy
// failure stops the remaining hooks and is returned.
func (s *Service) RunPreQueue(ctx context.Context, hctx HookContext) error {
	return s.run(ctx, PreQueue, hctx)
}

// RunOnComplete runs the hooks for any finished run.
func (s *Service) RunOnComplete(ctx context.Context, hctx HookContext) error {
	return s.run(ctx, OnComplete, hctx)
}

// RunOnSuccess runs the hooks for runs that did not fail.
func (s *Service) RunOnSuccess(ctx context.Context, hctx HookContext) error {
	return s.run(ctx, OnSuccess, hctx)
}

// RunOnFail runs the hooks for runs that ended Failed or Canceled.
func (s *Service) RunOnFail(ctx context.Context, hctx HookContext) error {
	return s.run(ctx, OnFail, hctx)
}

// RunCompletion runs on-complete hooks and then either the on-success or the
// on-fail hooks depending on the run's result.
func (s *Service) RunCompletion(ctx context.Context, hctx HookContext, result domain.Result) error {
	if err := s.RunOnComplete(ctx, hctx); err != nil {
		return err
	}
	if timeline.IsFailure(result) {
		return s.RunOnFail(ctx, hctx)
	}
	return s.RunOnSuccess(ctx, hctx)
}

func (s *Service) run(ctx context.Context, point Point, hctx HookContext) error {
	for _, hook := range s.hooks.For(point) {
		res, err := s.runner.Run(ctx, point, hook, hctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		outcome := Classify(point, hook, res, err)
		action := Decide(outcome, hook.OnFailure)
		switch action.Kind {
		case ActionWarn:
			s.logger.Warn(action.Message, "hook", hook.Name, "event", string(point))
		case ActionAbort:
			if outcome.Kind == OutcomeBlocked {
				return &BlockedError{Hook: hook.Name, Reason: outcome.Reason}
			}
			return &HookFailedError{Hook: hook.Name, Point: point, Reason: outcome.Reason, Err: err}
		default:
			if outcome.Kind == OutcomeSuccess {
				s.logger.Debug("hook passed", "hook", hook.Name, "event", string(point))
			}
		}
	}
	return nil
}
