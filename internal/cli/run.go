package cli

import (
	"context"
	"fmt"
	"maps"

	"github.com/spf13/cobra"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/hooks"
	"github.com/waabox/azdeck/internal/monitor"
	"github.com/waabox/azdeck/internal/pipelineyaml"
	"github.com/waabox/azdeck/internal/timeline"
)

func (a *app) runCommand() *cobra.Command {
	var (
		ref      string
		params   []string
		vars     []string
		wait     bool
		yamlPath string
	)
	cmd := &cobra.Command{
		Use:   "run <pipeline>",
		Short: "Queue a run of a pipeline after its pre-queue hooks approve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			given, err := parseKeyValues(params)
			if err != nil {
				return fmt.Errorf("--param: %w", err)
			}
			variables, err := parseKeyValues(vars)
			if err != nil {
				return fmt.Errorf("--var: %w", err)
			}
			parameters := given
			if yamlPath != "" {
				declared, err := pipelineyaml.Load(yamlPath)
				if err != nil {
					return err
				}
				if err := declared.Validate(given); err != nil {
					return err
				}
				parameters = declared.Defaults()
				maps.Copy(parameters, given)
			}

			if err := a.connect(); err != nil {
				return err
			}
			ctx := cmd.Context()

			def, err := a.resolveDefinition(ctx, args[0])
			if err != nil {
				return err
			}
			if ref == "" && a.repo != nil {
				if branch, err := a.repo.CurrentBranch(); err == nil {
					ref = branch
				}
			}

			hctx := hooks.NewContext(a.target, def, ref, parameters, variables)
			if err := a.hooks.RunPreQueue(ctx, hctx); err != nil {
				return err
			}

			run, err := a.provider.QueueRun(ctx, a.target, domain.QueueRequest{
				DefinitionID: def.ID,
				Ref:          ref,
				Parameters:   parameters,
				Variables:    variables,
			})
			if err != nil {
				return fmt.Errorf("queuing %q: %w", def.Name, err)
			}
			fmt.Fprintf(a.opts.Out, "Queued %s #%s (run %d)\n", def.Name, run.Number, run.ID)
			if run.WebURL != "" {
				fmt.Fprintln(a.opts.Out, run.WebURL)
			}
			if !wait {
				return nil
			}
			return a.waitForRun(ctx, run, hctx.WithBuild(run.ID))
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&ref, "ref", "", "branch to run (default: the current branch)")
	flags.StringArrayVarP(&params, "param", "p", nil, "template parameter as key=value (repeatable)")
	flags.StringArrayVar(&vars, "var", nil, "pipeline variable as key=value (repeatable)")
	flags.BoolVarP(&wait, "wait", "w", false, "wait for the run to finish and fire completion hooks")
	flags.StringVar(&yamlPath, "yaml", "", "pipeline YAML used to default and validate parameters")
	return cmd
}

func (a *app) waitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wait <run-id>",
		Short: "Wait for a run to finish and fire completion hooks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			if err := a.connect(); err != nil {
				return err
			}
			ctx := cmd.Context()

			run, err := a.provider.GetRun(ctx, a.target, id)
			if err != nil {
				return fmt.Errorf("fetching run %d: %w", id, err)
			}
			hctx := hooks.NewContext(a.target, definitionOf(run), run.SourceBranch, nil, nil).WithBuild(run.ID)
			return a.waitForRun(ctx, run, hctx)
		},
	}
}

func (a *app) cancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <run-id>",
		Short: "Request cancellation of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			if err := a.connect(); err != nil {
				return err
			}
			if err := a.provider.CancelRun(cmd.Context(), a.target, id); err != nil {
				return fmt.Errorf("canceling run %d: %w", id, err)
			}
			fmt.Fprintf(a.opts.Out, "Cancellation requested for run %d\n", id)
			return nil
		},
	}
}

// waitForRun polls the run until it completes, prints its tree and fires the
// completion hooks. Interruption stops silently with context.Canceled.
func (a *app) waitForRun(ctx context.Context, run domain.Run, hctx hooks.HookContext) error {
	var opts []monitor.Option
	if a.opts.Sleep != nil {
		opts = append(opts, monitor.WithSleep(a.opts.Sleep))
	}
	opts = append(opts, monitor.WithObserver(func(p monitor.Progress) {
		a.logger.Info("waiting for run",
			"run", run.ID,
			"status", timeline.OverallLabel(p.Timeline),
			"stages", timeline.StageProgress(p.Timeline).String(),
			"next", p.NextInterval)
	}))

	m := monitor.New(func(ctx context.Context) ([]domain.TimelineRecord, error) {
		return a.provider.GetTimeline(ctx, a.target, run.ID)
	}, opts...)

	c, err := m.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for run %d: %w", run.ID, err)
	}
	if c.Canceled {
		return context.Canceled
	}

	a.printSummary(run, c.Timeline)
	if err := a.hooks.RunCompletion(ctx, hctx, c.Result); err != nil {
		return err
	}
	if c.Failed() {
		return &RunFailedError{RunID: run.ID, Label: c.Label()}
	}
	return nil
}
