package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/habits/internal/a1"
	"github.com/mesh-intelligence/habits/pkg/types"
)

// ReadRange returns the non-empty extent of rng. Trailing empty rows are
// omitted and each row stops at its last non-empty cell.
func (b *Backend) ReadRange(ctx context.Context, sheetID, rng string) ([][]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	r, err := b.resolve(ctx, db, sheetID, rng)
	if err != nil {
		return nil, err
	}

	query := `SELECT row_num, col_num, value FROM cells
WHERE sheet_id = ? AND tab = ? AND row_num >= ? AND col_num BETWEEN ? AND ?`
	args := []any{sheetID, r.Tab, r.StartRow, r.StartCol, r.EndCol}
	if r.EndRow != 0 {
		query += " AND row_num <= ?"
		args = append(args, r.EndRow)
	}
	query += " ORDER BY row_num, col_num"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rng, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var (
			row, col int
			value    string
		)
		if err := rows.Scan(&row, &col, &value); err != nil {
			return nil, err
		}
		ri, ci := row-r.StartRow, col-r.StartCol
		for len(out) <= ri {
			out = append(out, []string{})
		}
		for len(out[ri]) <= ci {
			out[ri] = append(out[ri], "")
		}
		out[ri][ci] = value
	}
	return out, rows.Err()
}

// WriteRange stores values starting at the top-left cell of rng. Empty
// strings delete the cell. Values that overflow rng are rejected with
// ErrInvalidRange.
func (b *Backend) WriteRange(ctx context.Context, sheetID, rng string, values [][]string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return err
	}
	r, err := b.resolve(ctx, db, sheetID, rng)
	if err != nil {
		return err
	}
	if r.EndRow != 0 && len(values) > r.EndRow-r.StartRow+1 {
		return fmt.Errorf("%w: %d rows do not fit %s", types.ErrInvalidRange, len(values), rng)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, cells := range values {
		if len(cells) > r.Width() {
			return fmt.Errorf("%w: %d columns do not fit %s", types.ErrInvalidRange, len(cells), rng)
		}
		row := r.StartRow + i
		for j, value := range cells {
			col := r.StartCol + j
			if value == "" {
				_, err = tx.ExecContext(ctx,
					`DELETE FROM cells WHERE sheet_id = ? AND tab = ? AND row_num = ? AND col_num = ?`,
					sheetID, r.Tab, row, col)
			} else {
				_, err = tx.ExecContext(ctx,
					`INSERT INTO cells (sheet_id, tab, row_num, col_num, value) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (sheet_id, tab, row_num, col_num) DO UPDATE SET value = excluded.value`,
					sheetID, r.Tab, row, col, value)
			}
			if err != nil {
				return fmt.Errorf("writing %s%d: %w", a1.Column(col), row, err)
			}
		}
	}
	return tx.Commit()
}

// ClearRange deletes every cell of rng.
func (b *Backend) ClearRange(ctx context.Context, sheetID, rng string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return err
	}
	r, err := b.resolve(ctx, db, sheetID, rng)
	if err != nil {
		return err
	}

	query := `DELETE FROM cells WHERE sheet_id = ? AND tab = ? AND row_num >= ? AND col_num BETWEEN ? AND ?`
	args := []any{sheetID, r.Tab, r.StartRow, r.StartCol, r.EndCol}
	if r.EndRow != 0 {
		query += " AND row_num <= ?"
		args = append(args, r.EndRow)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clearing %s: %w", rng, err)
	}
	return nil
}

// FormatRange records f for rng, replacing an earlier format of the same
// range.
func (b *Backend) FormatRange(ctx context.Context, sheetID, rng string, f types.CellFormat) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return err
	}
	r, err := b.resolve(ctx, db, sheetID, rng)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO formats (sheet_id, tab, cell_range, bold, background, foreground) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (sheet_id, tab, cell_range) DO UPDATE SET
    bold = excluded.bold, background = excluded.background, foreground = excluded.foreground`,
		sheetID, r.Tab, r.String(), boolToInt(f.Bold), f.Background, f.Foreground)
	if err != nil {
		return fmt.Errorf("formatting %s: %w", rng, err)
	}
	return nil
}

// Format returns the format recorded for rng, or false if none.
func (b *Backend) Format(ctx context.Context, sheetID, rng string) (types.CellFormat, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return types.CellFormat{}, false, err
	}
	r, err := b.resolve(ctx, db, sheetID, rng)
	if err != nil {
		return types.CellFormat{}, false, err
	}
	var (
		f    types.CellFormat
		bold int
	)
	err = db.QueryRowContext(ctx,
		`SELECT bold, background, foreground FROM formats WHERE sheet_id = ? AND tab = ? AND cell_range = ?`,
		sheetID, r.Tab, r.String()).Scan(&bold, &f.Background, &f.Foreground)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CellFormat{}, false, nil
	}
	if err != nil {
		return types.CellFormat{}, false, err
	}
	f.Bold = bold != 0
	return f, true, nil
}

// resolve parses rng and checks that sheetID is a spreadsheet with the
// addressed tab. A range without a tab addresses the first tab.
func (b *Backend) resolve(ctx context.Context, db *sql.DB, sheetID, rng string) (a1.Range, error) {
	r, err := a1.Parse(rng)
	if err != nil {
		return a1.Range{}, err
	}
	item, err := getItem(ctx, db, sheetID)
	if err != nil {
		return a1.Range{}, err
	}
	if item.MimeType != types.MimeSpreadsheet {
		return a1.Range{}, fmt.Errorf("%w: %s is not a spreadsheet", types.ErrItemNotFound, sheetID)
	}

	if r.Tab == "" {
		err = db.QueryRowContext(ctx,
			`SELECT tab FROM tabs WHERE sheet_id = ? ORDER BY ordinal LIMIT 1`, sheetID).Scan(&r.Tab)
	} else {
		var n int
		err = db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tabs WHERE sheet_id = ? AND tab = ?`, sheetID, r.Tab).Scan(&n)
		if err == nil && n == 0 {
			err = sql.ErrNoRows
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return a1.Range{}, fmt.Errorf("%w: no tab for %q", types.ErrInvalidRange, rng)
	}
	if err != nil {
		return a1.Range{}, err
	}
	return r, nil
}
