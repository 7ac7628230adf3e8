package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/waabox/azdeck/internal/render"
)

func (a *app) runsCommand() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "runs <pipeline>",
		Short: "List recent runs of a pipeline, by id or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(); err != nil {
				return err
			}
			ctx := cmd.Context()

			def, err := a.resolveDefinition(ctx, args[0])
			if err != nil {
				return err
			}
			if top <= 0 {
				top = a.cfg.RunLimitOrDefault()
			}
			runs, err := a.provider.ListRuns(ctx, a.target, def.ID, top)
			if err != nil {
				return fmt.Errorf("listing runs of %q: %w", def.Name, err)
			}
			if len(runs) == 0 {
				fmt.Fprintf(a.opts.Out, "No runs of %s\n", def.Name)
				return nil
			}

			now := time.Now()
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					strconv.Itoa(run.ID),
					run.Number,
					render.Icon(run.State, run.Result) + " " + render.Label(run.State, run.Result),
					render.ShortBranch(run.SourceBranch),
					render.Truncate(run.RequestedFor, 24),
					render.Age(run.QueuedAt),
					render.Duration(run.Duration(now)),
				})
			}
			fmt.Fprint(a.opts.Out, render.Table(
				[]string{"RUN", "NUMBER", "STATUS", "BRANCH", "REQUESTED BY", "QUEUED", "DURATION"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 0, "number of runs to show (default run_limit from config)")
	return cmd
}
