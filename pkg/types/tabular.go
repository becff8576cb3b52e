package types

import "context"

// MIME types of the backing objects.
const (
	MimeFolder      = "application/vnd.google-apps.folder"
	MimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
)

// Item is a folder or spreadsheet known to the tabular backend.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents,omitempty"`
	Trashed  bool     `json:"trashed,omitempty"`
}

// ItemQuery selects items by name, kind and parent. Trashed items are
// excluded unless IncludeTrashed is set. Empty fields do not filter.
type ItemQuery struct {
	Name           string
	MimeType       string
	Parent         string
	IncludeTrashed bool
}

// ItemSpec describes an item to create. Tabs names the tabs of a new
// spreadsheet and is ignored for folders.
type ItemSpec struct {
	Name     string
	MimeType string
	Parent   string
	Tabs     []string
}

// ItemPatch changes item metadata. Zero fields are left unchanged.
type ItemPatch struct {
	Name          string
	AddParents    []string
	RemoveParents []string
	Trashed       *bool
}

// CellFormat is the cell-level styling applied to a range.
type CellFormat struct {
	Bold       bool
	Background string // hex color, e.g. "#e0e0e0"
	Foreground string
}

// Tabular is the protocol of the remote row-oriented backend: item
// metadata plus cell ranges addressed in A1 notation ("Tab!A2:AW").
// Values are read and written as text cells.
type Tabular interface {
	// ListItems returns the items matching q.
	ListItems(ctx context.Context, q ItemQuery) ([]Item, error)

	// CreateItem creates a folder or spreadsheet.
	CreateItem(ctx context.Context, spec ItemSpec) (Item, error)

	// GetItem returns item metadata by ID.
	GetItem(ctx context.Context, id string) (Item, error)

	// PatchItem updates item metadata.
	PatchItem(ctx context.Context, id string, patch ItemPatch) (Item, error)

	// ReadRange returns the cells of rng as rows of text. Trailing empty
	// rows are omitted and rows may be shorter than the range width.
	ReadRange(ctx context.Context, sheetID, rng string) ([][]string, error)

	// WriteRange overwrites the cells of rng starting at its top-left cell.
	WriteRange(ctx context.Context, sheetID, rng string, values [][]string) error

	// ClearRange empties every cell of rng.
	ClearRange(ctx context.Context, sheetID, rng string) error

	// FormatRange applies f to every cell of rng.
	FormatRange(ctx context.Context, sheetID, rng string, f CellFormat) error
}

// StoreHandle addresses the backing folder and spreadsheet.
type StoreHandle struct {
	FolderID string `json:"folderId" yaml:"folderId" mapstructure:"folder_id"`
	SheetID  string `json:"sheetId" yaml:"sheetId" mapstructure:"sheet_id"`
}

// IsZero reports whether the handle has not been provisioned.
func (h StoreHandle) IsZero() bool {
	return h.FolderID == "" || h.SheetID == ""
}
