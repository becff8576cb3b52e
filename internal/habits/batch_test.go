package habits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/habits/internal/tabulartest"
	"github.com/mesh-intelligence/habits/pkg/types"
)

func TestBatchDeletePartialFailure(t *testing.T) {
	f := setupCoordinator(t)
	f.create(t, good("Read", 1))
	h2 := f.create(t, good("Walk", 1))

	// h2 lives in row 3.
	f.faulty.FailOn(tabulartest.OpClearRange, "A3:", types.ErrHabitNotFound)

	got := f.c.BatchDelete(context.Background(), []string{"h1", "h2"})
	assert.Equal(t, types.BatchResult{
		Successful: 1,
		Failed:     1,
		Errors:     []string{"h2: Habit not found"},
		NeedsAuth:  false,
	}, got)
	assert.Equal(t, []string{"h2"}, got.FailedIDs())
	assert.Equal(t, []types.Habit{h2}, f.c.Habits(), "failed delete reverted")
	assert.Equal(t, []string{"h2"}, ids(f.reload(t)))
}

func TestBatchArchive(t *testing.T) {
	tests := []struct {
		name  string
		limit int
	}{
		{"unbounded", 0},
		{"limited", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupCoordinator(t, func(o *Options) { o.BatchLimit = tt.limit })
			for _, name := range []string{"Read", "Walk", "Stretch", "Sleep"} {
				f.create(t, good(name, 1))
			}

			got := f.c.BatchArchive(context.Background(), []string{"h1", "nope", "h3", "h4"}, true)
			assert.Equal(t, 3, got.Successful)
			assert.Equal(t, 1, got.Failed)
			assert.Equal(t, []string{"nope: Habit not found"}, got.Errors)

			archived := map[string]bool{}
			for _, h := range f.reload(t) {
				archived[h.ID] = h.IsArchived
			}
			assert.Equal(t, map[string]bool{"h1": true, "h2": false, "h3": true, "h4": true}, archived)
		})
	}
}

func TestBatchKeepsInputOrder(t *testing.T) {
	f := setupCoordinator(t)
	got := f.c.BatchDelete(context.Background(), []string{"x3", "x1", "x2"})
	assert.Equal(t, 0, got.Successful)
	assert.Equal(t, []string{"x3", "x1", "x2"}, got.FailedIDs())
}

func TestBatchEmpty(t *testing.T) {
	f := setupCoordinator(t)
	got := f.c.BatchArchive(context.Background(), nil, true)
	assert.Equal(t, types.BatchResult{Errors: []string{}}, got)
}

func TestBatchNeedsAuth(t *testing.T) {
	diag := &stubDiagnoser{}
	f := setupCoordinator(t, func(o *Options) { o.Diagnoser = diag })
	f.create(t, good("Read", 1))
	f.create(t, good("Walk", 1))
	f.faulty.FailOn(tabulartest.OpWriteRange, "", types.ErrUnauthorized)

	got := f.c.BatchArchive(context.Background(), []string{"h1", "h2"}, true)
	assert.Equal(t, 2, got.Failed)
	assert.True(t, got.NeedsAuth)
	require.Len(t, got.Errors, 2)
	assert.Equal(t, "h1: Invalid credentials", got.Errors[0])
	assert.Equal(t, 2, diag.diagnosed)
	for _, h := range f.c.Habits() {
		assert.False(t, h.IsArchived)
	}
}
