package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// HabitDocument is the flat, serializable form of a Habit used for JSON,
// JSONL and YAML output. Variant-specific fields are omitted when they do
// not apply.
type HabitDocument struct {
	ID              string     `json:"id" yaml:"id"`
	Name            string     `json:"name" yaml:"name"`
	Description     string     `json:"description" yaml:"description"`
	HabitType       HabitType  `json:"habitType" yaml:"habitType"`
	DifficultyLevel int        `json:"difficultyLevel" yaml:"difficultyLevel"`
	Goal            *float64   `json:"goal,omitempty" yaml:"goal,omitempty"`
	Limit           *float64   `json:"limit,omitempty" yaml:"limit,omitempty"`
	IsQuantifiable  bool       `json:"isQuantifiable,omitempty" yaml:"isQuantifiable,omitempty"`
	Unit            string     `json:"unit,omitempty" yaml:"unit,omitempty"`
	StartTime       string     `json:"startTime,omitempty" yaml:"startTime,omitempty"`
	Subtasks        []string   `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
	Category        string     `json:"category" yaml:"category"`
	ColorCode       string     `json:"colorCode" yaml:"colorCode"`
	Tags            []string   `json:"tags" yaml:"tags"`
	IsArchived      bool       `json:"isArchived" yaml:"isArchived"`
	CreatedDate     time.Time  `json:"createdDate" yaml:"createdDate"`
	UpdatedDate     time.Time  `json:"updatedDate" yaml:"updatedDate"`
	CurrentStreak   int        `json:"currentStreak" yaml:"currentStreak"`
	LongestStreak   int        `json:"longestStreak" yaml:"longestStreak"`
	DailyTracking   []*float64 `json:"dailyTracking" yaml:"dailyTracking"`
}

// Document converts h to its flat serializable form.
func (h Habit) Document() HabitDocument {
	d := HabitDocument{
		ID:              h.ID,
		Name:            h.Name,
		Description:     h.Description,
		HabitType:       h.Type(),
		DifficultyLevel: h.DifficultyLevel,
		Category:        h.Category,
		ColorCode:       h.ColorCode,
		Tags:            cloneStrings(h.Tags),
		IsArchived:      h.IsArchived,
		CreatedDate:     h.CreatedDate,
		UpdatedDate:     h.UpdatedDate,
		CurrentStreak:   h.CurrentStreak,
		LongestStreak:   h.LongestStreak,
		DailyTracking:   make([]*float64, DaysInPeriod),
	}
	switch v := h.Variant.(type) {
	case GoodHabit:
		goal := v.Goal
		d.Goal = &goal
		d.IsQuantifiable = v.IsQuantifiable
		d.Unit = v.Unit
		d.StartTime = v.StartTime
		d.Subtasks = cloneStrings(v.Subtasks)
	case BadHabit:
		limit := v.Limit
		d.Limit = &limit
	}
	for i, dv := range h.DailyTracking {
		if dv.Valid {
			val := dv.Value
			d.DailyTracking[i] = &val
		}
	}
	return d
}

// Habit converts d back into a Habit. It fails when dailyTracking holds
// more than DaysInPeriod entries.
func (d HabitDocument) Habit() (Habit, error) {
	if len(d.DailyTracking) > DaysInPeriod {
		return Habit{}, fmt.Errorf("%w: dailyTracking has %d entries", ErrInvalidHabit, len(d.DailyTracking))
	}
	h := Habit{
		ID:              d.ID,
		Name:            d.Name,
		Description:     d.Description,
		DifficultyLevel: d.DifficultyLevel,
		Category:        d.Category,
		ColorCode:       d.ColorCode,
		Tags:            cloneStrings(d.Tags),
		IsArchived:      d.IsArchived,
		CreatedDate:     d.CreatedDate,
		UpdatedDate:     d.UpdatedDate,
		CurrentStreak:   d.CurrentStreak,
		LongestStreak:   d.LongestStreak,
	}
	switch ParseHabitType(string(d.HabitType)) {
	case HabitBad:
		var limit float64
		if d.Limit != nil {
			limit = *d.Limit
		}
		h.Variant = BadHabit{Limit: limit}
	default:
		var goal float64
		if d.Goal != nil {
			goal = *d.Goal
		}
		h.Variant = GoodHabit{
			Goal:           goal,
			IsQuantifiable: d.IsQuantifiable,
			Unit:           d.Unit,
			StartTime:      d.StartTime,
			Subtasks:       cloneStrings(d.Subtasks),
		}
	}
	for i, v := range d.DailyTracking {
		if v != nil {
			h.DailyTracking[i] = Logged(*v)
		}
	}
	h.Normalize()
	return h, nil
}

// MarshalJSON encodes the habit as a HabitDocument.
func (h Habit) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Document())
}

// UnmarshalJSON decodes a HabitDocument into the habit.
func (h *Habit) UnmarshalJSON(data []byte) error {
	var d HabitDocument
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	parsed, err := d.Habit()
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
