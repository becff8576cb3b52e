package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the habit store",
		Long: "Create configuration and data directories, then provision the habit folder,\n" +
			"spreadsheet and header row. Running init again reuses what exists.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			res := rt.coord.Load(cmd.Context())
			if !res.Success {
				return resultError("init", res)
			}

			h := rt.coord.Handle()
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), h)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Habit store initialized (folder %s, sheet %s, %d habits)\n",
				h.FolderID, h.SheetID, len(res.Data))
			return nil
		},
	}
}
