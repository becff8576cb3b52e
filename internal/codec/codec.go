// Package codec converts habit records to and from the fixed-width rows of
// the backing habit table.
//
// A row has types.ColumnCount text cells at fixed positions. Columns that
// do not apply to a habit's variant are written blank. A row whose id cell
// is blank is a tombstone and decodes to nothing.
package codec

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/habits/pkg/types"
)

// Boolean cell literals.
const (
	cellTrue  = "TRUE"
	cellFalse = "FALSE"
)

// Codec encodes and decodes habit rows for one schema.
type Codec struct {
	schema types.Schema
	now    func() time.Time
}

// New returns a codec for schema. now supplies the UpdatedDate synthesized
// on decode; nil means time.Now.
func New(schema types.Schema, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{schema: schema, now: now}
}

// Schema returns the codec's schema.
func (c *Codec) Schema() types.Schema { return c.schema }

// Header returns the header row.
func (c *Codec) Header() []string { return c.schema.Headers() }

// Encode converts h to a row of types.ColumnCount cells.
func (c *Codec) Encode(h types.Habit) []string {
	row := make([]string, types.ColumnCount)
	row[types.ColID] = h.ID
	row[types.ColName] = h.Name
	row[types.ColDescription] = h.Description
	row[types.ColHabitType] = string(h.Type())
	row[types.ColDifficultyLevel] = strconv.Itoa(h.DifficultyLevel)
	row[types.ColCurrentStreak] = strconv.Itoa(h.CurrentStreak)
	row[types.ColLongestStreak] = strconv.Itoa(h.LongestStreak)
	row[types.ColCreatedDate] = formatTime(h.CreatedDate)
	row[types.ColColorCode] = h.ColorCode
	row[types.ColCategory] = h.Category
	row[types.ColTags] = encodeList(h.Tags)
	row[types.ColIsArchived] = formatBool(h.IsArchived)

	switch v := h.Variant.(type) {
	case types.GoodHabit:
		row[types.ColGoal] = formatNumber(v.Goal)
		row[types.ColIsQuantifiable] = formatBool(v.IsQuantifiable)
		row[types.ColUnit] = v.Unit
		row[types.ColStartTime] = v.StartTime
		row[types.ColSubtasks] = encodeList(v.Subtasks)
	case types.BadHabit:
		row[types.ColLimit] = formatNumber(v.Limit)
	}

	for i, d := range h.DailyTracking {
		if d.Valid {
			row[types.ColFirstDay+i] = formatNumber(d.Value)
		}
	}
	return row
}

// Decode converts a row to a habit. It returns false for an empty row or
// a tombstone. Malformed numbers decode as 0 and malformed lists as empty.
func (c *Codec) Decode(row []string) (types.Habit, bool) {
	if len(row) == 0 || strings.TrimSpace(row[types.ColID]) == "" {
		return types.Habit{}, false
	}
	if len(row) < types.ColumnCount {
		padded := make([]string, types.ColumnCount)
		copy(padded, row)
		row = padded
	}

	h := types.Habit{
		ID:              row[types.ColID],
		Name:            row[types.ColName],
		Description:     row[types.ColDescription],
		DifficultyLevel: parseInt(row[types.ColDifficultyLevel]),
		Category:        row[types.ColCategory],
		ColorCode:       row[types.ColColorCode],
		Tags:            decodeList(row[types.ColTags]),
		IsArchived:      parseBool(row[types.ColIsArchived]),
		CreatedDate:     parseTime(row[types.ColCreatedDate]),
		UpdatedDate:     c.now(),
		CurrentStreak:   parseInt(row[types.ColCurrentStreak]),
		LongestStreak:   parseInt(row[types.ColLongestStreak]),
	}

	switch types.ParseHabitType(row[types.ColHabitType]) {
	case types.HabitBad:
		h.Variant = types.BadHabit{Limit: parseNumber(row[types.ColLimit])}
	default:
		h.Variant = types.GoodHabit{
			Goal:           parseNumber(row[types.ColGoal]),
			IsQuantifiable: parseBool(row[types.ColIsQuantifiable]),
			Unit:           row[types.ColUnit],
			StartTime:      row[types.ColStartTime],
			Subtasks:       decodeList(row[types.ColSubtasks]),
		}
	}

	for i := range h.DailyTracking {
		cell := strings.TrimSpace(row[types.ColFirstDay+i])
		if cell == "" {
			continue
		}
		h.DailyTracking[i] = types.Logged(parseNumber(cell))
	}
	return h, true
}

// EncodeCell formats a single value for the named column, for single-cell
// updates.
func EncodeCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return formatBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatNumber(x)
	case types.DayValue:
		if !x.Valid {
			return ""
		}
		return formatNumber(x.Value)
	case time.Time:
		return formatTime(x)
	case []string:
		return encodeList(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return cellTrue
	}
	return cellFalse
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// encodeList writes a JSON array; nil encodes as an empty array.
func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// decodeList parses a JSON array, substituting an empty list on any
// failure.
func decodeList(cell string) []string {
	var items []string
	if err := json.Unmarshal([]byte(cell), &items); err != nil || items == nil {
		return []string{}
	}
	return items
}

func parseNumber(cell string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(cell string) int {
	return int(parseNumber(cell))
}

func parseBool(cell string) bool {
	return strings.EqualFold(strings.TrimSpace(cell), cellTrue)
}

func parseTime(cell string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(cell))
	if err != nil {
		return time.Time{}
	}
	return t
}
