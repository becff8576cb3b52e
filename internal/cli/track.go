package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/habits/pkg/types"
)

func newTrackCmd(a *app) *cobra.Command {
	var (
		day      int
		whenText string
		clearDay bool
	)
	cmd := &cobra.Command{
		Use:   "track <id> [value]",
		Short: "Log a day's value for a habit",
		Long: `Track stores a value for one day of the current month and recomputes
the habit's streaks. The day defaults to today; --day picks a day of the
month and --when accepts phrases such as "yesterday" or "last friday".
--clear removes the day's value.

Example:
  habits track 0192... 20
  habits track 0192... 1 --when yesterday
  habits track 0192... --day 3 --clear`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.clock()
			d := now.Day()
			switch {
			case whenText != "":
				t, err := parseWhen(whenText, now)
				if err != nil {
					return invalid("track", "%s", err)
				}
				if t.Year() != now.Year() || t.Month() != now.Month() {
					return invalid("track", "%s is outside the current month", t.Format("2006-01-02"))
				}
				d = t.Day()
			case cmd.Flags().Changed("day"):
				d = day
			}

			var value types.DayValue
			switch {
			case clearDay && len(args) == 2:
				return invalid("track", "--clear takes no value")
			case clearDay:
			case len(args) < 2:
				return invalid("track", "a value or --clear is required")
			default:
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return invalid("track", "invalid value %q", args[1])
				}
				value = types.Logged(v)
			}

			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			if res := rt.coord.Load(cmd.Context()); !res.Success {
				return resultError("track", res)
			}
			res := rt.coord.UpdateDailyHabit(cmd.Context(), args[0], d, value)
			if !res.Success {
				return resultError("track", res)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), res.Data)
			}
			logged := "cleared"
			if value.Valid {
				logged = formatValue(value.Value)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Day %d of %s: %s (streak %d, longest %d)\n",
				d, res.Data.Name, logged, res.Data.CurrentStreak, res.Data.LongestStreak)
			return nil
		},
	}
	cmd.Flags().IntVar(&day, "day", 0, "day of the month (1-31)")
	cmd.Flags().StringVar(&whenText, "when", "", `natural date, e.g. "yesterday"`)
	cmd.Flags().BoolVar(&clearDay, "clear", false, "clear the day's value")
	cmd.MarkFlagsMutuallyExclusive("day", "when")
	return cmd
}

// parseWhen resolves a natural-language date relative to now.
func parseWhen(text string, now time.Time) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("no date found in %q", text)
	}
	return r.Time, nil
}
