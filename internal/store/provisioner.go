// Package store implements provisioning of the backing folder and
// spreadsheet and row-level CRUD of habit records over a types.Tabular
// backend.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/habits/internal/a1"
	"github.com/mesh-intelligence/habits/pkg/types"
)

// HeaderFormat is the styling applied to the header row of a new sheet.
var HeaderFormat = types.CellFormat{Bold: true, Background: "#e0e0e0"}

// Provisioner finds or creates the folder and spreadsheet that back the
// habit table. Lookups and creates are not locked: two concurrent callers
// may both create.
type Provisioner struct {
	backend types.Tabular
	schema  types.Schema
	logger  *slog.Logger
}

// NewProvisioner returns a provisioner for schema over backend. A nil
// logger means slog.Default().
func NewProvisioner(backend types.Tabular, schema types.Schema, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{backend: backend, schema: schema, logger: logger}
}

// EnsureFolder returns the untrashed folder named by the schema, creating
// it if none exists.
func (p *Provisioner) EnsureFolder(ctx context.Context) (types.Item, error) {
	items, err := p.backend.ListItems(ctx, types.ItemQuery{
		Name:     p.schema.FolderName(),
		MimeType: types.MimeFolder,
	})
	if err != nil {
		return types.Item{}, fmt.Errorf("listing folders: %w", err)
	}
	if len(items) > 0 {
		return items[0], nil
	}

	folder, err := p.backend.CreateItem(ctx, types.ItemSpec{
		Name:     p.schema.FolderName(),
		MimeType: types.MimeFolder,
	})
	if err != nil {
		return types.Item{}, fmt.Errorf("creating folder: %w", err)
	}
	p.logger.Info("created folder",
		slog.String("name", folder.Name),
		slog.String("id", folder.ID))
	return folder, nil
}

// EnsureSheet returns the spreadsheet named by the schema inside
// folderID, creating it with a styled header row if none exists. A
// styling failure is logged and does not fail the call.
func (p *Provisioner) EnsureSheet(ctx context.Context, folderID string) (types.Item, error) {
	items, err := p.backend.ListItems(ctx, types.ItemQuery{
		Name:     p.schema.SheetName(),
		MimeType: types.MimeSpreadsheet,
		Parent:   folderID,
	})
	if err != nil {
		return types.Item{}, fmt.Errorf("listing sheets: %w", err)
	}
	if len(items) > 0 {
		return items[0], nil
	}

	sheet, err := p.backend.CreateItem(ctx, types.ItemSpec{
		Name:     p.schema.SheetName(),
		MimeType: types.MimeSpreadsheet,
		Parent:   folderID,
		Tabs:     []string{p.schema.TabName()},
	})
	if err != nil {
		return types.Item{}, fmt.Errorf("creating sheet: %w", err)
	}
	p.logger.Info("created sheet",
		slog.String("name", sheet.Name),
		slog.String("id", sheet.ID))

	header := a1.Row(p.schema.TabName(), 1).String()
	if err := p.backend.WriteRange(ctx, sheet.ID, header, [][]string{p.schema.Headers()}); err != nil {
		return types.Item{}, fmt.Errorf("writing header: %w", err)
	}
	if err := p.backend.FormatRange(ctx, sheet.ID, header, HeaderFormat); err != nil {
		p.logger.Warn("header formatting failed",
			slog.String("sheet", sheet.ID),
			slog.Any("error", err))
	}
	return sheet, nil
}

// EnsureStoreHandle ensures the folder and then the sheet inside it.
func (p *Provisioner) EnsureStoreHandle(ctx context.Context) (types.StoreHandle, error) {
	folder, err := p.EnsureFolder(ctx)
	if err != nil {
		return types.StoreHandle{}, err
	}
	sheet, err := p.EnsureSheet(ctx, folder.ID)
	if err != nil {
		return types.StoreHandle{}, err
	}
	return types.StoreHandle{FolderID: folder.ID, SheetID: sheet.ID}, nil
}

// Verify checks that a previously obtained handle still addresses a live
// folder and sheet. It returns ErrNoHandle for a zero handle and
// ErrItemNotFound when either item is missing or trashed.
func (p *Provisioner) Verify(ctx context.Context, h types.StoreHandle) error {
	if h.IsZero() {
		return types.ErrNoHandle
	}
	for _, id := range []string{h.FolderID, h.SheetID} {
		item, err := p.backend.GetItem(ctx, id)
		if err != nil {
			return fmt.Errorf("verifying %s: %w", id, err)
		}
		if item.Trashed {
			return fmt.Errorf("verifying %s: %w", id, types.ErrItemNotFound)
		}
	}
	return nil
}
