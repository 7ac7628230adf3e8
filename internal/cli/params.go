package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waabox/azdeck/internal/pipelineyaml"
	"github.com/waabox/azdeck/internal/render"
	"github.com/waabox/azdeck/internal/tui"
)

func (a *app) paramsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "params <file>",
		Short: "List the runtime parameters declared by a pipeline YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			params, err := pipelineyaml.Load(args[0])
			if err != nil {
				return err
			}
			if len(params) == 0 {
				fmt.Fprintf(a.opts.Out, "%s declares no parameters\n", args[0])
				return nil
			}
			rows := make([][]string, 0, len(params))
			for _, p := range params {
				def := "(required)"
				if p.HasDefault {
					def = strings.ReplaceAll(p.Default, "\n", " ")
				}
				rows = append(rows, []string{
					p.Name,
					p.Type,
					render.Truncate(def, 40),
					strings.Join(p.Values, ", "),
					p.DisplayName,
				})
			}
			fmt.Fprint(a.opts.Out, render.Table(
				[]string{"NAME", "TYPE", "DEFAULT", "VALUES", "DISPLAY NAME"}, rows))
			return nil
		},
	}
}

func (a *app) browseCommand() *cobra.Command {
	var definition string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse runs interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connect(); err != nil {
				return err
			}
			ctx := cmd.Context()
			defID := 0
			if definition != "" {
				def, err := a.resolveDefinition(ctx, definition)
				if err != nil {
					return err
				}
				defID = def.ID
			}
			return tui.Run(ctx, a.target, a.provider, tui.Options{
				DefinitionID: defID,
				Limit:        a.cfg.RunLimitOrDefault(),
			})
		},
	}
	cmd.Flags().StringVar(&definition, "pipeline", "", "only show runs of this pipeline (id or name)")
	return cmd
}
