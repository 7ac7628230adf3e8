package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/render"
	"github.com/waabox/azdeck/internal/timeline"
)

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the stage, job and task tree of a run",
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
			tl, err := a.fetchTimeline(ctx, id)
			if err != nil {
				return err
			}
			if tl.Empty() {
				return fmt.Errorf("no timeline records found for run #%d", id)
			}
			a.printSummary(run, tl)
			return nil
		},
	}
}

func (a *app) fetchTimeline(ctx context.Context, runID int) (timeline.RunTimeline, error) {
	records, err := a.provider.GetTimeline(ctx, a.target, runID)
	if err != nil {
		return timeline.RunTimeline{}, fmt.Errorf("fetching timeline of run %d: %w", runID, err)
	}
	return timeline.Build(records), nil
}

func (a *app) printSummary(run domain.Run, tl timeline.RunTimeline) {
	fmt.Fprintf(a.opts.Out, "%s #%s (run %d) on %s: %s, stages %s\n",
		run.DefinitionName, run.Number, run.ID, render.ShortBranch(run.SourceBranch),
		render.Overall(tl), timeline.StageProgress(tl))
	if run.WebURL != "" {
		fmt.Fprintln(a.opts.Out, run.WebURL)
	}
	fmt.Fprintln(a.opts.Out)
	render.Tree(a.opts.Out, tl)
}
