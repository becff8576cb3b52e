package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mesh-intelligence/habits/internal/streak"
	"github.com/mesh-intelligence/habits/pkg/types"
)

var (
	cGood  = lipgloss.Color("42")  // green
	cBad   = lipgloss.Color("196") // red
	cMuted = lipgloss.Color("244") // gray
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(cMuted)
	doneStyle   = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	missStyle   = lipgloss.NewStyle().Foreground(cBad)
)

// nameStyle colors a habit's name with its colorCode.
func nameStyle(h types.Habit) lipgloss.Style {
	if h.ColorCode == "" {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(h.ColorCode))
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// resultError turns a failed result into an error for report. The
// message says what to do about authentication failures.
func resultError[T any](op string, res types.OperationResult[T]) error {
	msg := res.Error
	switch {
	case res.Recovered:
		msg += " (credential reloaded, retry the command)"
	case res.NeedsAuth:
		msg += " (re-authenticate and retry)"
	}
	return &types.StoreError{Kind: res.Kind, Op: op, Message: msg}
}

func notFound(op string) error {
	return &types.StoreError{
		Kind:    types.KindNotFound,
		Op:      op,
		Message: "Habit not found",
		Err:     types.ErrHabitNotFound,
	}
}

func invalid(op, format string, args ...any) error {
	return &types.StoreError{Kind: types.KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// target describes a habit's variant rule, e.g. ">= 20 pages".
func target(h types.Habit) string {
	switch v := h.Variant.(type) {
	case types.GoodHabit:
		return strings.TrimSpace(">= " + formatValue(v.Goal) + " " + v.Unit)
	case types.BadHabit:
		return "<= " + formatValue(v.Limit)
	default:
		return ""
	}
}

func formatValue(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// printHabitTable writes one padded line per habit.
func printHabitTable(w io.Writer, habits []types.Habit) {
	if len(habits) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no habits"))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-36s  %-24s  %-4s  %-14s  %6s  %7s",
		"ID", "NAME", "TYPE", "TARGET", "STREAK", "LONGEST")))
	for _, h := range habits {
		name := nameStyle(h).Render(fmt.Sprintf("%-24s", h.Name))
		line := fmt.Sprintf("%-36s  %s  %-4s  %-14s  %6d  %7d",
			h.ID, name, h.Type(), target(h), h.CurrentStreak, h.LongestStreak)
		if h.IsArchived {
			line += "  " + mutedStyle.Render("archived")
		}
		fmt.Fprintln(w, line)
	}
}

// printHabitDetail writes every field of h and its tracking grid.
func printHabitDetail(w io.Writer, h types.Habit) {
	fmt.Fprintln(w, nameStyle(h).Bold(true).Render(h.Name))
	field := func(label string, value any) {
		fmt.Fprintf(w, "  %s %v\n", headerStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
	}
	field("id", h.ID)
	field("type", h.Type())
	field("target", target(h))
	if h.Description != "" {
		field("description", h.Description)
	}
	if h.Category != "" {
		field("category", h.Category)
	}
	if len(h.Tags) > 0 {
		field("tags", strings.Join(h.Tags, ", "))
	}
	if g, ok := h.Good(); ok {
		if g.StartTime != "" {
			field("start time", g.StartTime)
		}
		if len(g.Subtasks) > 0 {
			field("subtasks", strings.Join(g.Subtasks, ", "))
		}
	}
	field("difficulty", h.DifficultyLevel)
	field("streak", fmt.Sprintf("%d (longest %d)", h.CurrentStreak, h.LongestStreak))
	field("archived", h.IsArchived)
	field("created", h.CreatedDate.Format("2006-01-02 15:04"))

	var days []string
	for day := 1; day <= types.DaysInPeriod; day++ {
		v := h.DailyTracking[day-1]
		cell := fmt.Sprintf("%d:", day)
		switch {
		case !v.Valid:
			days = append(days, mutedStyle.Render(cell+"-"))
		case streak.Completed(h, day):
			days = append(days, doneStyle.Render(cell+formatValue(v.Value)))
		default:
			days = append(days, missStyle.Render(cell+formatValue(v.Value)))
		}
	}
	for i := 0; i < len(days); i += 8 {
		fmt.Fprintln(w, "  "+strings.Join(days[i:min(i+8, len(days))], " "))
	}
}
