// Package tabulartest provides a SQLite-backed types.Tabular for tests and
// a wrapper that injects failures into selected calls.
package tabulartest

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/habits/internal/sqlite"
	"github.com/mesh-intelligence/habits/pkg/types"
)

// Op names a Tabular method.
type Op string

// Tabular operations.
const (
	OpListItems   Op = "ListItems"
	OpCreateItem  Op = "CreateItem"
	OpGetItem     Op = "GetItem"
	OpPatchItem   Op = "PatchItem"
	OpReadRange   Op = "ReadRange"
	OpWriteRange  Op = "WriteRange"
	OpClearRange  Op = "ClearRange"
	OpFormatRange Op = "FormatRange"
)

// NewSQLite returns an attached SQLite backend in a temporary directory,
// detached on cleanup.
func NewSQLite(t testing.TB) *sqlite.Backend {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return b
}

type rule struct {
	op    Op
	match string
	err   error
}

// Faulty wraps a Tabular and fails calls that match registered rules.
// It also counts calls per operation.
type Faulty struct {
	inner types.Tabular

	mu    sync.Mutex
	rules []rule
	calls map[Op]int
}

var _ types.Tabular = (*Faulty)(nil)

// Wrap returns a Faulty over inner with no rules.
func Wrap(inner types.Tabular) *Faulty {
	return &Faulty{inner: inner, calls: make(map[Op]int)}
}

// FailOn makes calls of op whose target contains match return err. The
// target is the range for cell operations, the item id for item
// operations and the item name for list and create. An empty match
// matches every call.
func (f *Faulty) FailOn(op Op, match string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{op: op, match: match, err: err})
}

// Reset removes every rule and zeroes the counters.
func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = nil
	f.calls = make(map[Op]int)
}

// Calls returns how many times op was invoked, failed calls included.
func (f *Faulty) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (f *Faulty) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *Faulty) check(op Op, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	for _, r := range f.rules {
		if r.op == op && strings.Contains(target, r.match) {
			return r.err
		}
	}
	return nil
}

func (f *Faulty) ListItems(ctx context.Context, q types.ItemQuery) ([]types.Item, error) {
	if err := f.check(OpListItems, q.Name); err != nil {
		return nil, err
	}
	return f.inner.ListItems(ctx, q)
}

func (f *Faulty) CreateItem(ctx context.Context, spec types.ItemSpec) (types.Item, error) {
	if err := f.check(OpCreateItem, spec.Name); err != nil {
		return types.Item{}, err
	}
	return f.inner.CreateItem(ctx, spec)
}

func (f *Faulty) GetItem(ctx context.Context, id string) (types.Item, error) {
	if err := f.check(OpGetItem, id); err != nil {
		return types.Item{}, err
	}
	return f.inner.GetItem(ctx, id)
}

func (f *Faulty) PatchItem(ctx context.Context, id string, patch types.ItemPatch) (types.Item, error) {
	if err := f.check(OpPatchItem, id); err != nil {
		return types.Item{}, err
	}
	return f.inner.PatchItem(ctx, id, patch)
}

func (f *Faulty) ReadRange(ctx context.Context, sheetID, rng string) ([][]string, error) {
	if err := f.check(OpReadRange, rng); err != nil {
		return nil, err
	}
	return f.inner.ReadRange(ctx, sheetID, rng)
}

func (f *Faulty) WriteRange(ctx context.Context, sheetID, rng string, values [][]string) error {
	if err := f.check(OpWriteRange, rng); err != nil {
		return err
	}
	return f.inner.WriteRange(ctx, sheetID, rng, values)
}

func (f *Faulty) ClearRange(ctx context.Context, sheetID, rng string) error {
	if err := f.check(OpClearRange, rng); err != nil {
		return err
	}
	return f.inner.ClearRange(ctx, sheetID, rng)
}

func (f *Faulty) FormatRange(ctx context.Context, sheetID, rng string, format types.CellFormat) error {
	if err := f.check(OpFormatRange, rng); err != nil {
		return err
	}
	return f.inner.FormatRange(ctx, sheetID, rng, format)
}
