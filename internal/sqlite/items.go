package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/habits/pkg/types"
)

// defaultTab names the single tab of a spreadsheet created without tabs.
const defaultTab = "Sheet1"

// ListItems returns the items matching q ordered by creation.
func (b *Backend) ListItems(ctx context.Context, q types.ItemQuery) ([]types.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if q.Name != "" {
		where = append(where, "i.name = ?")
		args = append(args, q.Name)
	}
	if q.MimeType != "" {
		where = append(where, "i.mime_type = ?")
		args = append(args, q.MimeType)
	}
	if q.Parent != "" {
		where = append(where, "EXISTS (SELECT 1 FROM item_parents p WHERE p.item_id = i.item_id AND p.parent_id = ?)")
		args = append(args, q.Parent)
	}
	if !q.IncludeTrashed {
		where = append(where, "i.trashed = 0")
	}

	query := "SELECT i.item_id FROM items i"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.created_at, i.item_id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items := make([]types.Item, 0, len(ids))
	for _, id := range ids {
		item, err := getItem(ctx, db, id)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// CreateItem inserts a folder or spreadsheet. A spreadsheet gets the tabs
// in spec.Tabs, or a single default tab.
func (b *Backend) CreateItem(ctx context.Context, spec types.ItemSpec) (types.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return types.Item{}, err
	}
	if spec.Name == "" || spec.MimeType == "" {
		return types.Item{}, fmt.Errorf("creating item: name and mime type are required")
	}

	id := generateUUID()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return types.Item{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO items (item_id, name, mime_type, trashed, created_at) VALUES (?, ?, ?, 0, ?)`,
		id, spec.Name, spec.MimeType, b.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return types.Item{}, fmt.Errorf("inserting item: %w", err)
	}
	if spec.Parent != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_parents (item_id, parent_id) VALUES (?, ?)`, id, spec.Parent); err != nil {
			return types.Item{}, fmt.Errorf("inserting parent: %w", err)
		}
	}
	if spec.MimeType == types.MimeSpreadsheet {
		tabs := spec.Tabs
		if len(tabs) == 0 {
			tabs = []string{defaultTab}
		}
		for i, tab := range tabs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO tabs (sheet_id, tab, ordinal) VALUES (?, ?, ?)`, id, tab, i); err != nil {
				return types.Item{}, fmt.Errorf("inserting tab %q: %w", tab, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return types.Item{}, err
	}
	return getItem(ctx, db, id)
}

// GetItem returns item metadata. It returns ErrItemNotFound for an
// unknown id.
func (b *Backend) GetItem(ctx context.Context, id string) (types.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return types.Item{}, err
	}
	return getItem(ctx, db, id)
}

// PatchItem renames, reparents or trashes an item.
func (b *Backend) PatchItem(ctx context.Context, id string, patch types.ItemPatch) (types.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return types.Item{}, err
	}
	if _, err := getItem(ctx, db, id); err != nil {
		return types.Item{}, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return types.Item{}, err
	}
	defer tx.Rollback()

	if patch.Name != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE items SET name = ? WHERE item_id = ?`, patch.Name, id); err != nil {
			return types.Item{}, fmt.Errorf("renaming item: %w", err)
		}
	}
	if patch.Trashed != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE items SET trashed = ? WHERE item_id = ?`, boolToInt(*patch.Trashed), id); err != nil {
			return types.Item{}, fmt.Errorf("trashing item: %w", err)
		}
	}
	for _, p := range patch.RemoveParents {
		if _, err := tx.ExecContext(ctx, `DELETE FROM item_parents WHERE item_id = ? AND parent_id = ?`, id, p); err != nil {
			return types.Item{}, fmt.Errorf("removing parent: %w", err)
		}
	}
	for _, p := range patch.AddParents {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO item_parents (item_id, parent_id) VALUES (?, ?)`, id, p); err != nil {
			return types.Item{}, fmt.Errorf("adding parent: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return types.Item{}, err
	}
	return getItem(ctx, db, id)
}

func getItem(ctx context.Context, db *sql.DB, id string) (types.Item, error) {
	var (
		item    types.Item
		trashed int
	)
	err := db.QueryRowContext(ctx,
		`SELECT item_id, name, mime_type, trashed FROM items WHERE item_id = ?`, id).
		Scan(&item.ID, &item.Name, &item.MimeType, &trashed)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Item{}, fmt.Errorf("%w: %s", types.ErrItemNotFound, id)
	}
	if err != nil {
		return types.Item{}, fmt.Errorf("reading item: %w", err)
	}
	item.Trashed = trashed != 0

	rows, err := db.QueryContext(ctx,
		`SELECT parent_id FROM item_parents WHERE item_id = ? ORDER BY parent_id`, id)
	if err != nil {
		return types.Item{}, fmt.Errorf("reading parents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return types.Item{}, err
		}
		item.Parents = append(item.Parents, p)
	}
	return item, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
