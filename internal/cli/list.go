package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/waabox/azdeck/internal/domain"
	azlog "github.com/waabox/azdeck/internal/log"
	"github.com/waabox/azdeck/internal/render"
)

const latestRunWorkers = 8

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pipeline definitions with their latest run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connect(); err != nil {
				return err
			}
			ctx := cmd.Context()

			defs, err := a.provider.ListDefinitions(ctx, a.target)
			if err != nil {
				return fmt.Errorf("listing pipelines: %w", err)
			}
			if len(defs) == 0 {
				fmt.Fprintf(a.opts.Out, "No pipelines in %s/%s\n", a.target.Org, a.target.Name)
				return nil
			}

			latest := make([]*domain.Run, len(defs))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(latestRunWorkers)
			for i, def := range defs {
				g.Go(func() error {
					runs, err := a.provider.ListRuns(gctx, a.target, def.ID, 1)
					if err != nil {
						return fmt.Errorf("latest run of %q: %w", def.Name, err)
					}
					if len(runs) > 0 {
						latest[i] = &runs[0]
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			azlog.FromContext(ctx).Debug("fetched latest runs", "definitions", len(defs))

			rows := make([][]string, 0, len(defs))
			for i, def := range defs {
				row := []string{strconv.Itoa(def.ID), def.Name, def.Folder, "--", "--", "--", "--"}
				if run := latest[i]; run != nil {
					row[3] = "#" + run.Number
					row[4] = render.Icon(run.State, run.Result) + " " + render.Label(run.State, run.Result)
					row[5] = render.ShortBranch(run.SourceBranch)
					row[6] = render.Age(run.QueuedAt)
				}
				rows = append(rows, row)
			}
			fmt.Fprint(a.opts.Out, render.Table(
				[]string{"ID", "PIPELINE", "FOLDER", "LAST RUN", "STATUS", "BRANCH", "QUEUED"}, rows))
			return nil
		},
	}
}
