// Package streak computes habit streaks from daily tracking.
//
// A day is completed when it is logged and its value satisfies the habit
// variant's rule: at least the goal for good habits, at most the limit for
// bad habits. Only days 1 through today are examined.
package streak

import (
	"time"

	"github.com/mesh-intelligence/habits/pkg/types"
)

// Result holds the recomputed streak counters.
type Result struct {
	CurrentStreak int
	LongestStreak int
}

// Compute scans days 1..today of h's tracking. CurrentStreak is the run of
// completed days ending at today (0 when today is not completed).
// LongestStreak is the maximum of h's stored LongestStreak and every run
// seen during the scan, so it never decreases. today is clamped to
// [0, types.DaysInPeriod].
func Compute(h types.Habit, today int) Result {
	today = min(max(today, 0), types.DaysInPeriod)

	longest := max(h.LongestStreak, 0)
	run := 0
	for day := 1; day <= today; day++ {
		if Completed(h, day) {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return Result{CurrentStreak: run, LongestStreak: longest}
}

// Completed reports whether the 1-based day is logged and meets the
// habit's completion rule.
func Completed(h types.Habit, day int) bool {
	if day < 1 || day > types.DaysInPeriod || h.Variant == nil {
		return false
	}
	v := h.DailyTracking[day-1]
	return v.Valid && h.Variant.Completed(v.Value)
}

// Today returns the day of the month of now, the reference day for
// Compute.
func Today(now time.Time) int {
	return now.Day()
}

// Apply recomputes h's streaks as of today and stores them on h.
func Apply(h *types.Habit, today int) {
	r := Compute(*h, today)
	h.CurrentStreak = r.CurrentStreak
	h.LongestStreak = r.LongestStreak
}
