package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mesh-intelligence/habits/internal/a1"
	"github.com/mesh-intelligence/habits/internal/codec"
	"github.com/mesh-intelligence/habits/pkg/types"
)

// firstDataRow is the sheet row of the first habit; row 1 is the header.
const firstDataRow = 2

// RecordStore reads and writes habit rows. Rows are addressed by their
// position in the table, found by scanning the id column. Locate is the
// only place positions are derived. Read-then-write sequences are not
// atomic; callers serialize mutations of the same id.
type RecordStore struct {
	backend types.Tabular
	codec   *codec.Codec
	logger  *slog.Logger
}

// NewRecordStore returns a record store using c's schema over backend. A
// nil logger means slog.Default().
func NewRecordStore(backend types.Tabular, c *codec.Codec, logger *slog.Logger) *RecordStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore{backend: backend, codec: c, logger: logger}
}

func (s *RecordStore) tab() string { return s.codec.Schema().TabName() }

// ReadAll returns every habit in table order, skipping tombstones and rows
// that do not decode.
func (s *RecordStore) ReadAll(ctx context.Context, h types.StoreHandle) ([]types.Habit, error) {
	if h.IsZero() {
		return nil, types.ErrNoHandle
	}
	rows, err := s.backend.ReadRange(ctx, h.SheetID, a1.Rows(s.tab(), firstDataRow, 0).String())
	if err != nil {
		return nil, fmt.Errorf("reading habits: %w", err)
	}
	habits := make([]types.Habit, 0, len(rows))
	for _, row := range rows {
		if habit, ok := s.codec.Decode(row); ok {
			habits = append(habits, habit)
		}
	}
	return habits, nil
}

// Locate returns the 0-based data row index of id. Tombstoned rows keep
// their positions. It returns ErrHabitNotFound when no row carries id.
func (s *RecordStore) Locate(ctx context.Context, h types.StoreHandle, id string) (int, error) {
	if h.IsZero() {
		return 0, types.ErrNoHandle
	}
	ids := a1.Range{Tab: s.tab(), StartCol: types.ColID, StartRow: firstDataRow, EndCol: types.ColID}
	rows, err := s.backend.ReadRange(ctx, h.SheetID, ids.String())
	if err != nil {
		return 0, fmt.Errorf("reading ids: %w", err)
	}
	for i, row := range rows {
		if len(row) > 0 && row[0] != "" && strings.TrimSpace(row[0]) == id {
			return i, nil
		}
	}
	return 0, types.ErrHabitNotFound
}

// Write stores habit. With a rowIndex it overwrites that data row;
// without one it appends after the last used row of the id column.
func (s *RecordStore) Write(ctx context.Context, h types.StoreHandle, habit types.Habit, rowIndex *int) error {
	if h.IsZero() {
		return types.ErrNoHandle
	}
	var sheetRow int
	if rowIndex != nil {
		sheetRow = *rowIndex + firstDataRow
	} else {
		col, err := s.backend.ReadRange(ctx, h.SheetID, a1.WholeColumn(s.tab(), types.ColID).String())
		if err != nil {
			return fmt.Errorf("reading id column: %w", err)
		}
		sheetRow = max(len(col)+1, firstDataRow)
	}

	rng := a1.Row(s.tab(), sheetRow).String()
	if err := s.backend.WriteRange(ctx, h.SheetID, rng, [][]string{s.codec.Encode(habit)}); err != nil {
		return fmt.Errorf("writing habit %s: %w", habit.ID, err)
	}
	return nil
}

// Update overwrites the row holding habit.ID.
func (s *RecordStore) Update(ctx context.Context, h types.StoreHandle, habit types.Habit) error {
	idx, err := s.Locate(ctx, h, habit.ID)
	if err != nil {
		return err
	}
	return s.Write(ctx, h, habit, &idx)
}

// Delete tombstones the row holding id by clearing it. Later rows keep
// their positions. An unknown id is logged and ignored.
func (s *RecordStore) Delete(ctx context.Context, h types.StoreHandle, id string) error {
	idx, err := s.Locate(ctx, h, id)
	if errors.Is(err, types.ErrHabitNotFound) {
		s.logger.Warn("delete of unknown habit", slog.String("id", id))
		return nil
	}
	if err != nil {
		return err
	}
	rng := a1.Row(s.tab(), idx+firstDataRow).String()
	if err := s.backend.ClearRange(ctx, h.SheetID, rng); err != nil {
		return fmt.Errorf("clearing habit %s: %w", id, err)
	}
	return nil
}

// UpdateCell writes value into the named column of id's row. It returns
// ErrUnknownColumn for a name outside the header and ErrHabitNotFound for
// an unknown id.
func (s *RecordStore) UpdateCell(ctx context.Context, h types.StoreHandle, id, column string, value any) error {
	col, ok := s.codec.Schema().Column(column)
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrUnknownColumn, column)
	}
	idx, err := s.Locate(ctx, h, id)
	if err != nil {
		return err
	}
	rng := a1.Cell(s.tab(), col, idx+firstDataRow).String()
	if err := s.backend.WriteRange(ctx, h.SheetID, rng, [][]string{{codec.EncodeCell(value)}}); err != nil {
		return fmt.Errorf("updating %s of %s: %w", column, id, err)
	}
	return nil
}
