// Package a1 parses and formats spreadsheet ranges in A1 notation:
// "Tab!A2:AW", "Tab!A:A", "Tab!A5:AW5", "Tab!B3".
package a1

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/habits/pkg/types"
)

// Range is a rectangular cell range. Columns are 0-based, rows are
// 1-based. An EndRow of 0 means the range is open to the last row.
type Range struct {
	Tab      string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// Column returns the letters of a 0-based column index (0 -> "A",
// 26 -> "AA").
func Column(index int) string {
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// ColumnIndex returns the 0-based index of column letters.
func ColumnIndex(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("%w: empty column", types.ErrInvalidRange)
	}
	n := 0
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("%w: column %q", types.ErrInvalidRange, letters)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

// Rows returns the range spanning every column of a habit row from
// startRow to endRow. An endRow of 0 leaves the range open.
func Rows(tab string, startRow, endRow int) Range {
	return Range{Tab: tab, StartCol: 0, StartRow: startRow, EndCol: types.ColumnCount - 1, EndRow: endRow}
}

// Row returns the range covering a single full-width row.
func Row(tab string, row int) Range {
	return Rows(tab, row, row)
}

// Cell returns the range of a single cell.
func Cell(tab string, col, row int) Range {
	return Range{Tab: tab, StartCol: col, StartRow: row, EndCol: col, EndRow: row}
}

// WholeColumn returns the range of an entire column including the header.
func WholeColumn(tab string, col int) Range {
	return Range{Tab: tab, StartCol: col, StartRow: 1, EndCol: col, EndRow: 0}
}

// String formats r in A1 notation.
func (r Range) String() string {
	var b strings.Builder
	if r.Tab != "" {
		b.WriteString(r.Tab)
		b.WriteByte('!')
	}
	if r.StartCol == r.EndCol && r.StartRow == r.EndRow && r.EndRow != 0 {
		b.WriteString(Column(r.StartCol))
		b.WriteString(strconv.Itoa(r.StartRow))
		return b.String()
	}
	b.WriteString(Column(r.StartCol))
	if r.StartRow > 1 || r.EndRow != 0 {
		b.WriteString(strconv.Itoa(r.StartRow))
	}
	b.WriteByte(':')
	b.WriteString(Column(r.EndCol))
	if r.EndRow != 0 {
		b.WriteString(strconv.Itoa(r.EndRow))
	}
	return b.String()
}

// Width is the number of columns in r.
func (r Range) Width() int {
	return r.EndCol - r.StartCol + 1
}

// Contains reports whether the 0-based column and 1-based row fall in r.
func (r Range) Contains(col, row int) bool {
	if col < r.StartCol || col > r.EndCol || row < r.StartRow {
		return false
	}
	return r.EndRow == 0 || row <= r.EndRow
}

// Parse reads an A1 range. A missing row on the start cell means row 1; a
// missing row on the end cell leaves the range open.
func Parse(s string) (Range, error) {
	var r Range
	body := s
	if i := strings.LastIndexByte(s, '!'); i >= 0 {
		r.Tab = strings.Trim(s[:i], "'")
		body = s[i+1:]
	}
	if body == "" {
		return Range{}, fmt.Errorf("%w: %q", types.ErrInvalidRange, s)
	}

	start, end, isSpan := strings.Cut(body, ":")
	sc, sr, err := parseCell(start)
	if err != nil {
		return Range{}, fmt.Errorf("parse %q: %w", s, err)
	}
	r.StartCol = sc
	r.StartRow = sr
	if r.StartRow == 0 {
		r.StartRow = 1
	}

	if !isSpan {
		if sr == 0 {
			return Range{}, fmt.Errorf("%w: single cell %q needs a row", types.ErrInvalidRange, s)
		}
		r.EndCol, r.EndRow = sc, sr
		return r, nil
	}

	ec, er, err := parseCell(end)
	if err != nil {
		return Range{}, fmt.Errorf("parse %q: %w", s, err)
	}
	r.EndCol, r.EndRow = ec, er
	if r.EndCol < r.StartCol || (r.EndRow != 0 && r.EndRow < r.StartRow) {
		return Range{}, fmt.Errorf("%w: %q is inverted", types.ErrInvalidRange, s)
	}
	return r, nil
}

// parseCell splits "AB12" into column 27 and row 12. The row is 0 when
// absent.
func parseCell(s string) (col, row int, err error) {
	i := 0
	for i < len(s) && (s[i] >= 'A' && s[i] <= 'Z' || s[i] >= 'a' && s[i] <= 'z') {
		i++
	}
	col, err = ColumnIndex(s[:i])
	if err != nil {
		return 0, 0, err
	}
	if i == len(s) {
		return col, 0, nil
	}
	row, err = strconv.Atoi(s[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("%w: row in %q", types.ErrInvalidRange, s)
	}
	return col, row, nil
}
