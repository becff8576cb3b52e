package habits

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/habits/pkg/types"
)

// BatchArchive sets the archived flag on every id concurrently. One
// failure does not stop the others.
func (c *Coordinator) BatchArchive(ctx context.Context, ids []string, archived bool) types.BatchResult {
	return c.batch(ctx, OpArchiveMany, ids, func(ctx context.Context, id string) types.OperationResult[types.Habit] {
		return c.Archive(ctx, id, archived)
	})
}

// BatchDelete deletes every id concurrently. One failure does not stop
// the others.
func (c *Coordinator) BatchDelete(ctx context.Context, ids []string) types.BatchResult {
	return c.batch(ctx, OpBatchDelete, ids, c.Delete)
}

// batch runs fn for each id and aggregates the outcomes in input order.
// The group never cancels: every fn result is recorded as data, not as a
// group error.
func (c *Coordinator) batch(
	ctx context.Context,
	op string,
	ids []string,
	fn func(context.Context, string) types.OperationResult[types.Habit],
) types.BatchResult {
	m := c.metrics.Start(op)
	defer m.End()

	results := make([]types.OperationResult[types.Habit], len(ids))
	var g errgroup.Group
	if c.batchLimit > 0 {
		g.SetLimit(c.batchLimit)
	}
	for i, id := range ids {
		g.Go(func() error {
			results[i] = fn(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	out := types.BatchResult{Errors: []string{}}
	for i, r := range results {
		if r.Success {
			out.Successful++
			continue
		}
		out.Failed++
		out.Errors = append(out.Errors, types.BatchError(ids[i], r.Error))
		out.NeedsAuth = out.NeedsAuth || r.NeedsAuth
	}
	if out.Failed > 0 {
		m.Failed()
	}

	c.logger.Info("batch finished",
		slog.String("op", op),
		slog.Int("successful", out.Successful),
		slog.Int("failed", out.Failed),
		slog.Bool("needs_auth", out.NeedsAuth))
	return out
}
