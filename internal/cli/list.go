package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/habits/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	var archived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List habits",
		Long: `List loads every habit from the store in row order.

Archived habits are hidden unless --archived is given.

Example:
  habits list
  habits list --archived
  habits list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			res := rt.coord.Load(cmd.Context())
			if !res.Success {
				return resultError("list", res)
			}

			out := []types.Habit{}
			for _, h := range res.Data {
				if h.IsArchived && !archived {
					continue
				}
				out = append(out, h)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), out)
			}
			printHabitTable(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&archived, "archived", false, "include archived habits")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one habit with its daily tracking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			if res := rt.coord.Load(cmd.Context()); !res.Success {
				return resultError("show", res)
			}
			h, ok := rt.coord.Habit(args[0])
			if !ok {
				return notFound("show")
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), h)
			}
			printHabitDetail(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
