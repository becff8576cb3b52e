package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreateCmd(a *app) *cobra.Command {
	var f habitFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a habit",
		Long: `Create appends a new habit to the store.

Example:
  habits create --name "Read" --goal 20 --quantifiable --unit pages --tag evening
  habits create --name "Sugar" --type bad --limit 1 --color "#e53935"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := f.habit("create")
			if err != nil {
				return err
			}
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			if res := rt.coord.Load(cmd.Context()); !res.Success {
				return resultError("create", res)
			}

			res := rt.coord.Create(cmd.Context(), h)
			if !res.Success {
				return resultError("create", res)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), res.Data)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s habit: %s\n", res.Data.Type(), res.Data.ID)
			return nil
		},
	}
	f.register(cmd)
	cmd.MarkFlagRequired(flagName)
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var f habitFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a habit",
		Long: `Update rewrites the habit's row with the fields given as flags.
Fields without a flag keep their value.

Example:
  habits update 0192... --name "Read more" --goal 30
  habits update 0192... --type bad --limit 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			if res := rt.coord.Load(cmd.Context()); !res.Success {
				return resultError("update", res)
			}
			current, ok := rt.coord.Habit(args[0])
			if !ok {
				return notFound("update")
			}
			u, err := f.update("update", cmd, current)
			if err != nil {
				return err
			}

			res := rt.coord.Update(cmd.Context(), args[0], u)
			if !res.Success {
				return resultError("update", res)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), res.Data)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated habit: %s\n", res.Data.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
