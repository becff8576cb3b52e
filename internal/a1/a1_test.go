package a1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/habits/pkg/types"
)

func TestColumn(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{25, "Z"},
		{26, "AA"},
		{48, "AW"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Column(tt.index))
		got, err := ColumnIndex(tt.want)
		require.NoError(t, err)
		assert.Equal(t, tt.index, got)
	}
}

func TestColumnIndexRejectsGarbage(t *testing.T) {
	_, err := ColumnIndex("A1")
	assert.ErrorIs(t, err, types.ErrInvalidRange)
	_, err = ColumnIndex("")
	assert.ErrorIs(t, err, types.ErrInvalidRange)
}

func TestRangeString(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		want string
	}{
		{"data region", Rows("Habits", 2, 0), "Habits!A2:AW"},
		{"header row", Row("Habits", 1), "Habits!A1:AW1"},
		{"single row", Row("Habits", 5), "Habits!A5:AW5"},
		{"id column", WholeColumn("Habits", 0), "Habits!A:A"},
		{"single cell", Cell("Habits", types.ColIsArchived, 3), "Habits!AS3"},
		{"no tab", Cell("", 1, 1), "B1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.String())
			parsed, err := Parse(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.r, parsed)
		})
	}
}

func TestParse(t *testing.T) {
	r, err := Parse("'My Tab'!b2:c")
	require.NoError(t, err)
	assert.Equal(t, Range{Tab: "My Tab", StartCol: 1, StartRow: 2, EndCol: 2, EndRow: 0}, r)

	for _, bad := range []string{"", "Tab!", "Tab!1:2", "Tab!B2:A3", "Tab!A3:B2", "Tab!A", "Tab!A0"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, types.ErrInvalidRange, "input %q", bad)
	}
}

func TestRangeContains(t *testing.T) {
	open := Rows("T", 2, 0)
	assert.True(t, open.Contains(0, 2))
	assert.True(t, open.Contains(48, 1000))
	assert.False(t, open.Contains(0, 1))
	assert.False(t, open.Contains(49, 2))

	row := Row("T", 3)
	assert.True(t, row.Contains(10, 3))
	assert.False(t, row.Contains(10, 4))
	assert.Equal(t, types.ColumnCount, row.Width())
}
