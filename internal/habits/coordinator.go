// Package habits keeps an in-memory cache of habit records in step with
// the backing table. Every mutation is applied to the cache first and
// reverted exactly if the backing write fails.
package habits

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/habits/internal/codec"
	"github.com/mesh-intelligence/habits/internal/metrics"
	"github.com/mesh-intelligence/habits/internal/store"
	"github.com/mesh-intelligence/habits/internal/streak"
	"github.com/mesh-intelligence/habits/pkg/types"
)

// Operation names used for metrics and logs.
const (
	OpLoad        = "load"
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpArchive     = "archive"
	OpTrack       = "track"
	OpBatchDelete = "batch_delete"
	OpArchiveMany = "batch_archive"
)

// Options configures a Coordinator. Backend is required; every other
// field has a default.
type Options struct {
	Backend   types.Tabular
	Schema    types.Schema
	Diagnoser types.Diagnoser
	Logger    *slog.Logger
	Metrics   *metrics.OpMetric

	// Clock supplies timestamps and the reference day for streaks.
	Clock func() time.Time

	// NewID generates ids for created habits.
	NewID func() string

	// BatchLimit bounds the concurrency of batch operations; 0 means
	// unbounded.
	BatchLimit int

	// Handle, when set, is used instead of provisioning.
	Handle types.StoreHandle
}

// Coordinator owns the habit cache and serializes nothing but its own
// bookkeeping: remote calls for different records may run concurrently.
type Coordinator struct {
	prov       *store.Provisioner
	records    *store.RecordStore
	diag       types.Diagnoser
	logger     *slog.Logger
	metrics    *metrics.OpMetric
	clock      func() time.Time
	newID      func() string
	batchLimit int

	mu     sync.Mutex
	cache  []types.Habit
	handle types.StoreHandle
}

// New returns a coordinator over opts.Backend with an empty cache.
func New(opts Options) *Coordinator {
	if opts.Schema.TabName() == "" {
		opts.Schema = types.DefaultSchema()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = newUUID
	}
	if opts.Diagnoser == nil {
		opts.Diagnoser = noDiagnoser{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewOpMetric(nil, "habit_ops", "op")
	}
	return &Coordinator{
		prov:       store.NewProvisioner(opts.Backend, opts.Schema, opts.Logger),
		records:    store.NewRecordStore(opts.Backend, codec.New(opts.Schema, opts.Clock), opts.Logger),
		diag:       opts.Diagnoser,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
		newID:      opts.NewID,
		batchLimit: opts.BatchLimit,
		handle:     opts.Handle,
	}
}

// newUUID generates a UUID v7, falling back to v4.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Metrics returns the operation metrics.
func (c *Coordinator) Metrics() *metrics.OpMetric { return c.metrics }

// Handle returns the store handle, zero until provisioned.
func (c *Coordinator) Handle() types.StoreHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// UseHandle verifies h and adopts it for later calls.
func (c *Coordinator) UseHandle(ctx context.Context, h types.StoreHandle) error {
	if err := c.prov.Verify(ctx, h); err != nil {
		return err
	}
	c.mu.Lock()
	c.handle = h
	c.mu.Unlock()
	return nil
}

// ensureHandle provisions the store on first use. Concurrent first calls
// may both provision; the first result stored wins.
func (c *Coordinator) ensureHandle(ctx context.Context) (types.StoreHandle, error) {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()
	if !h.IsZero() {
		return h, nil
	}

	h, err := c.prov.EnsureStoreHandle(ctx)
	if err != nil {
		return types.StoreHandle{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle.IsZero() {
		c.handle = h
	}
	return c.handle, nil
}

// Load provisions the store if needed and replaces the cache with the
// table contents. The cache is unchanged on failure.
func (c *Coordinator) Load(ctx context.Context) types.OperationResult[[]types.Habit] {
	m := c.metrics.Start(OpLoad)
	defer m.End()

	h, err := c.ensureHandle(ctx)
	if err == nil {
		var all []types.Habit
		if all, err = c.records.ReadAll(ctx, h); err == nil {
			c.mu.Lock()
			c.cache = all
			c.mu.Unlock()
			return types.Succeeded(cloneAll(all))
		}
	}
	return failure[[]types.Habit](c, ctx, m, OpLoad, "", err)
}

// Habits returns a copy of the cache in table order.
func (c *Coordinator) Habits() []types.Habit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(c.cache)
}

// Habit returns a copy of the cached habit with id.
func (c *Coordinator) Habit(id string) (types.Habit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.cache[i].Clone(), true
	}
	return types.Habit{}, false
}

// now is the clock reading as persisted: UTC without a monotonic reading,
// so cached records compare equal to their decoded rows.
func (c *Coordinator) now() time.Time {
	return c.clock().UTC().Round(0)
}

// Create assigns an id and timestamps to h, caches it and appends it to
// the table.
func (c *Coordinator) Create(ctx context.Context, h types.Habit) types.OperationResult[types.Habit] {
	m := c.metrics.Start(OpCreate)
	defer m.End()

	next := h.Clone()
	if next.ID == "" {
		next.ID = c.newID()
	}
	now := c.now()
	next.CreatedDate = now
	next.UpdatedDate = now
	next.Normalize()
	if err := next.Validate(); err != nil {
		return failure[types.Habit](c, ctx, m, OpCreate, next.ID, err)
	}

	c.mu.Lock()
	if c.indexOf(next.ID) >= 0 {
		c.mu.Unlock()
		err := fmt.Errorf("%w: id %s already exists", types.ErrInvalidHabit, next.ID)
		return failure[types.Habit](c, ctx, m, OpCreate, next.ID, err)
	}
	snap := c.snapshotLocked(next.ID)
	c.cache = append(c.cache, next)
	c.mu.Unlock()

	return c.commit(ctx, m, OpCreate, snap, next, func(ctx context.Context, h types.StoreHandle) error {
		return c.records.Write(ctx, h, next, nil)
	})
}

// Update applies upd to the habit with id and rewrites its row.
func (c *Coordinator) Update(ctx context.Context, id string, upd types.HabitUpdate) types.OperationResult[types.Habit] {
	m := c.metrics.Start(OpUpdate)
	defer m.End()

	if upd.IsEmpty() {
		return failure[types.Habit](c, ctx, m, OpUpdate, id, types.ErrEmptyUpdate)
	}
	return c.mutate(ctx, m, OpUpdate, id, func(h *types.Habit) error {
		upd.Apply(h)
		return h.Validate()
	}, func(ctx context.Context, handle types.StoreHandle, next types.Habit) error {
		return c.records.Update(ctx, handle, next)
	})
}

// Archive sets the archived flag of the habit with id.
func (c *Coordinator) Archive(ctx context.Context, id string, archived bool) types.OperationResult[types.Habit] {
	m := c.metrics.Start(OpArchive)
	defer m.End()

	return c.mutate(ctx, m, OpArchive, id, func(h *types.Habit) error {
		h.IsArchived = archived
		return nil
	}, func(ctx context.Context, handle types.StoreHandle, next types.Habit) error {
		return c.records.UpdateCell(ctx, handle, id, "isArchived", archived)
	})
}

// UpdateDailyHabit stores value for the 1-based day, recomputes streaks
// as of today and rewrites the row. An out-of-range day fails before any
// cache or backend access.
func (c *Coordinator) UpdateDailyHabit(ctx context.Context, id string, day int, value types.DayValue) types.OperationResult[types.Habit] {
	m := c.metrics.Start(OpTrack)
	defer m.End()

	if day < 1 || day > types.DaysInPeriod {
		err := fmt.Errorf("%w: got %d", types.ErrDayOutOfRange, day)
		return failure[types.Habit](c, ctx, m, OpTrack, id, err)
	}
	today := streak.Today(c.clock())
	return c.mutate(ctx, m, OpTrack, id, func(h *types.Habit) error {
		h.DailyTracking[day-1] = value
		streak.Apply(h, today)
		return nil
	}, func(ctx context.Context, handle types.StoreHandle, next types.Habit) error {
		return c.records.Update(ctx, handle, next)
	})
}

// Delete removes the habit with id from the cache and tombstones its row.
// The deleted habit is returned as Data.
func (c *Coordinator) Delete(ctx context.Context, id string) types.OperationResult[types.Habit] {
	m := c.metrics.Start(OpDelete)
	defer m.End()

	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return failure[types.Habit](c, ctx, m, OpDelete, id, types.ErrHabitNotFound)
	}
	snap := c.snapshotLocked(id)
	c.cache = slices.Delete(c.cache, i, i+1)
	c.mu.Unlock()

	return c.commit(ctx, m, OpDelete, snap, snap.prev.Clone(), func(ctx context.Context, h types.StoreHandle) error {
		return c.records.Delete(ctx, h, id)
	})
}

// mutate runs the snapshot, apply, commit-or-revert sequence for an
// existing habit. change edits a copy of the cached record; a change
// error fails the call without touching the cache.
func (c *Coordinator) mutate(
	ctx context.Context,
	m *metrics.Measurer,
	op, id string,
	change func(*types.Habit) error,
	persist func(context.Context, types.StoreHandle, types.Habit) error,
) types.OperationResult[types.Habit] {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return failure[types.Habit](c, ctx, m, op, id, types.ErrHabitNotFound)
	}
	next := c.cache[i].Clone()
	if err := change(&next); err != nil {
		c.mu.Unlock()
		return failure[types.Habit](c, ctx, m, op, id, err)
	}
	next.Normalize()
	next.UpdatedDate = c.now()
	snap := c.snapshotLocked(id)
	c.cache[i] = next
	c.mu.Unlock()

	return c.commit(ctx, m, op, snap, next, func(ctx context.Context, h types.StoreHandle) error {
		return persist(ctx, h, next)
	})
}

// commit ensures the handle and persists; on any failure it reverts snap.
func (c *Coordinator) commit(
	ctx context.Context,
	m *metrics.Measurer,
	op string,
	snap snapshot,
	result types.Habit,
	persist func(context.Context, types.StoreHandle) error,
) types.OperationResult[types.Habit] {
	h, err := c.ensureHandle(ctx)
	if err == nil {
		err = persist(ctx, h)
	}
	if err != nil {
		c.revert(snap)
		c.logger.Warn("rolled back",
			slog.String("op", op),
			slog.String("id", snap.id),
			slog.String("kind", string(types.Classify(err).Kind)))
		return failure[types.Habit](c, ctx, m, op, snap.id, err)
	}
	return types.Succeeded(result.Clone())
}

// failure classifies err and runs credential diagnosis for
// authentication failures.
func failure[T any](c *Coordinator, ctx context.Context, m *metrics.Measurer, op, id string, err error) types.OperationResult[T] {
	se := types.Classify(err)
	res := types.OperationResult[T]{Error: se.Message, Kind: se.Kind}

	if se.Kind == types.KindAuthentication {
		res.NeedsAuth = true
		m.Result(metrics.ResultNeedsAuth)
		d := c.diag.Diagnose(ctx, err)
		if !d.IsHealthy && d.HasCritical() {
			res.Recovered = c.diag.AttemptAutoRecovery(ctx, d)
		}
		c.logger.Info("credential diagnosis",
			slog.String("op", op),
			slog.Bool("healthy", d.IsHealthy),
			slog.Bool("recovered", res.Recovered))
		return res
	}

	m.Failed()
	c.logger.Debug("operation failed",
		slog.String("op", op),
		slog.String("id", id),
		slog.String("kind", string(se.Kind)),
		slog.Any("error", err))
	return res
}

// snapshot is the pre-mutation state of one cache entry.
type snapshot struct {
	id      string
	index   int
	prev    types.Habit
	existed bool
}

func (c *Coordinator) snapshotLocked(id string) snapshot {
	i := c.indexOf(id)
	if i < 0 {
		return snapshot{id: id, index: len(c.cache)}
	}
	return snapshot{id: id, index: i, prev: c.cache[i].Clone(), existed: true}
}

// revert restores the entry recorded in s, leaving other entries alone.
func (c *Coordinator) revert(s snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(s.id)
	switch {
	case !s.existed:
		if i >= 0 {
			c.cache = slices.Delete(c.cache, i, i+1)
		}
	case i >= 0:
		c.cache[i] = s.prev
	default:
		c.cache = slices.Insert(c.cache, min(s.index, len(c.cache)), s.prev)
	}
}

func (c *Coordinator) indexOf(id string) int {
	return slices.IndexFunc(c.cache, func(h types.Habit) bool { return h.ID == id })
}

func cloneAll(habits []types.Habit) []types.Habit {
	out := make([]types.Habit, len(habits))
	for i, h := range habits {
		out[i] = h.Clone()
	}
	return out
}

// noDiagnoser reports every failure unhealthy without issues, so no
// recovery is attempted.
type noDiagnoser struct{}

func (noDiagnoser) Diagnose(context.Context, error) types.Diagnostic {
	return types.Diagnostic{IsHealthy: false}
}

func (noDiagnoser) AttemptAutoRecovery(context.Context, types.Diagnostic) bool { return false }
