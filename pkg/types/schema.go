package types

import "fmt"

// Column positions of the fixed-width habit row.
const (
	ColID              = 0
	ColName            = 1
	ColDescription     = 2
	ColHabitType       = 3
	ColDifficultyLevel = 4
	ColGoal            = 5
	ColLimit           = 6
	ColCurrentStreak   = 7
	ColFirstDay        = 8 // day1; day N lives at ColFirstDay+N-1
	ColCreatedDate     = 39
	ColColorCode       = 40
	ColLongestStreak   = 41
	ColCategory        = 42
	ColTags            = 43
	ColIsArchived      = 44
	ColIsQuantifiable  = 45
	ColUnit            = 46
	ColStartTime       = 47
	ColSubtasks        = 48

	// ColumnCount is the width of every habit row.
	ColumnCount = 49
)

// Default names of the backing objects.
const (
	DefaultFolderName = "HabitTracker"
	DefaultSheetName  = "Habits"
	DefaultTabName    = "Habits"
)

// Schema names the backing folder, sheet and tab, and the header row of
// the habit table. A Schema is immutable; the With methods return copies.
type Schema struct {
	folderName string
	sheetName  string
	tabName    string
	headers    [ColumnCount]string
	index      map[string]int
}

// DefaultSchema returns the schema with the default names and headers.
func DefaultSchema() Schema {
	var headers [ColumnCount]string
	fixed := map[int]string{
		ColID:              "id",
		ColName:            "name",
		ColDescription:     "description",
		ColHabitType:       "habitType",
		ColDifficultyLevel: "difficultyLevel",
		ColGoal:            "goal",
		ColLimit:           "limit",
		ColCurrentStreak:   "currentStreak",
		ColCreatedDate:     "createdDate",
		ColColorCode:       "colorCode",
		ColLongestStreak:   "longestStreak",
		ColCategory:        "category",
		ColTags:            "tags",
		ColIsArchived:      "isArchived",
		ColIsQuantifiable:  "isQuantifiable",
		ColUnit:            "unit",
		ColStartTime:       "startTime",
		ColSubtasks:        "subtasks",
	}
	for col, name := range fixed {
		headers[col] = name
	}
	for d := 1; d <= DaysInPeriod; d++ {
		headers[ColFirstDay+d-1] = fmt.Sprintf("day%d", d)
	}

	index := make(map[string]int, ColumnCount)
	for i, h := range headers {
		index[h] = i
	}
	return Schema{
		folderName: DefaultFolderName,
		sheetName:  DefaultSheetName,
		tabName:    DefaultTabName,
		headers:    headers,
		index:      index,
	}
}

// WithNames returns a copy of s with the given backing object names.
// Empty arguments keep the current name.
func (s Schema) WithNames(folder, sheet, tab string) Schema {
	if folder != "" {
		s.folderName = folder
	}
	if sheet != "" {
		s.sheetName = sheet
	}
	if tab != "" {
		s.tabName = tab
	}
	return s
}

// FolderName is the name of the backing folder.
func (s Schema) FolderName() string { return s.folderName }

// SheetName is the name of the backing spreadsheet.
func (s Schema) SheetName() string { return s.sheetName }

// TabName is the name of the tab holding the habit table.
func (s Schema) TabName() string { return s.tabName }

// Headers returns a copy of the header row.
func (s Schema) Headers() []string {
	out := make([]string, ColumnCount)
	copy(out, s.headers[:])
	return out
}

// Column resolves a header name to its 0-based column position.
func (s Schema) Column(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// DayColumn returns the column holding the given 1-based day.
func DayColumn(day int) int {
	return ColFirstDay + day - 1
}
