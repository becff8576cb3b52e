package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/habits/pkg/types"
)

func newArchiveCmd(a *app, archived bool) *cobra.Command {
	use, short, done := "archive", "Archive a habit", "Archived"
	if !archived {
		use, short, done = "unarchive", "Restore an archived habit", "Unarchived"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			if res := rt.coord.Load(cmd.Context()); !res.Success {
				return resultError(use, res)
			}
			res := rt.coord.Archive(cmd.Context(), args[0], archived)
			if !res.Success {
				return resultError(use, res)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), res.Data)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s habit: %s\n", done, res.Data.ID)
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a habit",
		Long:  "Delete clears the habit's row. Rows below it keep their positions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			if res := rt.coord.Load(cmd.Context()); !res.Success {
				return resultError("delete", res)
			}
			res := rt.coord.Delete(cmd.Context(), args[0])
			if !res.Success {
				return resultError("delete", res)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), res.Data)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted habit: %s (%s)\n", res.Data.ID, res.Data.Name)
			return nil
		},
	}
}

func newBatchCmd(a *app) *cobra.Command {
	batch := &cobra.Command{
		Use:   "batch",
		Short: "Apply an operation to many habits at once",
		Long: `Batch runs archive, unarchive or delete for every id concurrently.
A failure on one id does not stop the others; failed ids are listed so
they can be retried.`,
	}

	ops := []struct {
		use   string
		short string
		run   func(a *app, cmd *cobra.Command, ids []string) types.BatchResult
	}{
		{"archive", "Archive many habits", func(a *app, cmd *cobra.Command, ids []string) types.BatchResult {
			return a.rt.coord.BatchArchive(cmd.Context(), ids, true)
		}},
		{"unarchive", "Unarchive many habits", func(a *app, cmd *cobra.Command, ids []string) types.BatchResult {
			return a.rt.coord.BatchArchive(cmd.Context(), ids, false)
		}},
		{"delete", "Delete many habits", func(a *app, cmd *cobra.Command, ids []string) types.BatchResult {
			return a.rt.coord.BatchDelete(cmd.Context(), ids)
		}},
	}
	for _, op := range ops {
		batch.AddCommand(&cobra.Command{
			Use:   op.use + " <id>...",
			Short: op.short,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := a.open(cmd)
				if err != nil {
					return err
				}
				if res := rt.coord.Load(cmd.Context()); !res.Success {
					return resultError("batch "+op.use, res)
				}
				result := op.run(a, cmd, args)
				return printBatch(a, cmd, "batch "+op.use, result)
			},
		})
	}
	return batch
}

// printBatch writes the batch summary and fails when any item failed.
func printBatch(a *app, cmd *cobra.Command, op string, r types.BatchResult) error {
	w := cmd.OutOrStdout()
	if a.flags.jsonMode {
		if err := printJSON(w, r); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "%d succeeded, %d failed\n", r.Successful, r.Failed)
		for _, e := range r.Errors {
			fmt.Fprintln(w, "  "+missStyle.Render(e))
		}
	}
	if r.Failed == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d of %d failed (retry: %s)", r.Failed, r.Successful+r.Failed, strings.Join(r.FailedIDs(), " "))
	if r.NeedsAuth {
		return &types.StoreError{Kind: types.KindAuthentication, Op: op, Message: msg + "; re-authenticate and retry"}
	}
	return fmt.Errorf("%s: %s", op, msg)
}
