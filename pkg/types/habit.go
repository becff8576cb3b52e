package types

import (
	"strings"
	"time"
	"unicode/utf8"
)

// HabitType discriminates the two habit variants.
type HabitType string

// Habit types. A habit is either built up (good) or cut down (bad).
const (
	HabitGood HabitType = "good"
	HabitBad  HabitType = "bad"
)

// ParseHabitType maps a stored or user-supplied type name to a HabitType.
// Unrecognized input falls back to HabitGood.
func ParseHabitType(s string) HabitType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(HabitBad):
		return HabitBad
	default:
		return HabitGood
	}
}

// DaysInPeriod is the fixed length of a habit's daily tracking array.
// Index d holds the value for calendar day d+1 of the tracking period.
const DaysInPeriod = 31

// DayValue is one slot of daily tracking. Valid is false when the day has
// not been logged.
type DayValue struct {
	Value float64
	Valid bool
}

// Logged returns a DayValue holding v.
func Logged(v float64) DayValue {
	return DayValue{Value: v, Valid: true}
}

// Variant holds the fields that only exist for one habit type.
// GoodHabit and BadHabit are the only implementations.
type Variant interface {
	Type() HabitType

	// Completed reports whether a logged value satisfies the variant's
	// completion rule.
	Completed(value float64) bool

	cloneVariant() Variant
}

// GoodHabit is a habit the user wants to do at least Goal of per day.
type GoodHabit struct {
	Goal           float64
	IsQuantifiable bool
	Unit           string
	StartTime      string
	Subtasks       []string
}

// Type implements Variant.
func (GoodHabit) Type() HabitType { return HabitGood }

// Completed is true when the logged value reaches the goal.
func (g GoodHabit) Completed(value float64) bool { return value >= g.Goal }

func (g GoodHabit) cloneVariant() Variant {
	g.Subtasks = cloneStrings(g.Subtasks)
	return g
}

// BadHabit is a habit the user wants to keep at or below Limit per day.
type BadHabit struct {
	Limit float64
}

// Type implements Variant.
func (BadHabit) Type() HabitType { return HabitBad }

// Completed is true when the logged value stays within the limit.
func (b BadHabit) Completed(value float64) bool { return value <= b.Limit }

func (b BadHabit) cloneVariant() Variant { return b }

// Habit is a tracked habit record.
type Habit struct {
	ID              string    // Generated client-side on creation, never reused.
	Name            string    // Human-readable name (required, non-empty).
	Description     string    // Free text.
	DifficultyLevel int       // User-assigned difficulty.
	Variant         Variant   // GoodHabit or BadHabit.
	Category        string    // Free-form grouping.
	ColorCode       string    // Display color, e.g. "#4caf50".
	Tags            []string  // Ordered; duplicates allowed.
	IsArchived      bool      // Soft-archive flag; the record stays.
	CreatedDate     time.Time // Set once on creation.
	UpdatedDate     time.Time // Not persisted; synthesized on read.
	CurrentStreak   int       // Streak ending today.
	LongestStreak   int       // Never decreases across recomputations.
	DailyTracking   [DaysInPeriod]DayValue
}

// Type returns the habit's variant type. A habit without a variant is
// treated as good.
func (h *Habit) Type() HabitType {
	if h.Variant == nil {
		return HabitGood
	}
	return h.Variant.Type()
}

// Good returns the GoodHabit variant and true if h is a good habit.
func (h *Habit) Good() (GoodHabit, bool) {
	g, ok := h.Variant.(GoodHabit)
	return g, ok
}

// Bad returns the BadHabit variant and true if h is a bad habit.
func (h *Habit) Bad() (BadHabit, bool) {
	b, ok := h.Variant.(BadHabit)
	return b, ok
}

// Clone returns a deep copy of h. Mutating the copy never affects h.
func (h Habit) Clone() Habit {
	h.Tags = cloneStrings(h.Tags)
	if h.Variant != nil {
		h.Variant = h.Variant.cloneVariant()
	}
	return h
}

// Validate checks the fields a habit must have before it is persisted.
func (h *Habit) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return ErrInvalidName
	}
	if h.Variant == nil {
		return ErrInvalidHabit
	}
	if h.CurrentStreak < 0 || h.LongestStreak < 0 {
		return ErrInvalidHabit
	}
	return h.validateText()
}

// validateText rejects invalid UTF-8, which list cells cannot store
// unchanged.
func (h *Habit) validateText() error {
	fields := []string{h.ID, h.Name, h.Description, h.Category, h.ColorCode}
	fields = append(fields, h.Tags...)
	if g, ok := h.Variant.(GoodHabit); ok {
		fields = append(fields, g.Unit, g.StartTime)
		fields = append(fields, g.Subtasks...)
	}
	for _, f := range fields {
		if !utf8.ValidString(f) {
			return ErrInvalidText
		}
	}
	return nil
}

// Normalize replaces nil slices with empty ones so a habit compares equal
// to its decoded row.
func (h *Habit) Normalize() {
	if h.Tags == nil {
		h.Tags = []string{}
	}
	if g, ok := h.Variant.(GoodHabit); ok && g.Subtasks == nil {
		g.Subtasks = []string{}
		h.Variant = g
	}
}

// HabitUpdate lists the editable fields of a habit. Nil fields are left
// unchanged. Tags replaces the whole sequence when non-nil.
type HabitUpdate struct {
	Name            *string
	Description     *string
	DifficultyLevel *int
	Category        *string
	ColorCode       *string
	Tags            []string
	Variant         Variant
}

// Apply writes the non-nil fields of u into h.
func (u HabitUpdate) Apply(h *Habit) {
	if u.Name != nil {
		h.Name = *u.Name
	}
	if u.Description != nil {
		h.Description = *u.Description
	}
	if u.DifficultyLevel != nil {
		h.DifficultyLevel = *u.DifficultyLevel
	}
	if u.Category != nil {
		h.Category = *u.Category
	}
	if u.ColorCode != nil {
		h.ColorCode = *u.ColorCode
	}
	if u.Tags != nil {
		h.Tags = cloneStrings(u.Tags)
	}
	if u.Variant != nil {
		h.Variant = u.Variant.cloneVariant()
	}
}

// IsEmpty reports whether the update changes nothing.
func (u HabitUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.DifficultyLevel == nil &&
		u.Category == nil && u.ColorCode == nil && u.Tags == nil && u.Variant == nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
