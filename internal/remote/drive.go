package remote

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/mesh-intelligence/habits/pkg/types"
)

// itemFields selects the file metadata the client decodes.
const itemFields = "id,name,mimeType,parents,trashed"

type fileList struct {
	Files []types.Item `json:"files"`
}

type fileBody struct {
	Name     string   `json:"name,omitempty"`
	MimeType string   `json:"mimeType,omitempty"`
	Parents  []string `json:"parents,omitempty"`
	Trashed  *bool    `json:"trashed,omitempty"`
}

// ListItems queries file metadata by name, kind and parent.
func (c *Client) ListItems(ctx context.Context, q types.ItemQuery) ([]types.Item, error) {
	query := url.Values{
		"q":        {searchQuery(q)},
		"fields":   {"files(" + itemFields + ")"},
		"spaces":   {"drive"},
		"pageSize": {"100"},
	}
	var out fileList
	if err := c.do(ctx, "list items", http.MethodGet, endpoint(c.driveURL, query, "files"), nil, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// CreateItem creates a folder through the file API, or a spreadsheet
// through the sheets API and then files it under spec.Parent.
func (c *Client) CreateItem(ctx context.Context, spec types.ItemSpec) (types.Item, error) {
	if spec.MimeType != types.MimeSpreadsheet {
		body := fileBody{Name: spec.Name, MimeType: spec.MimeType}
		if spec.Parent != "" {
			body.Parents = []string{spec.Parent}
		}
		var item types.Item
		query := url.Values{"fields": {itemFields}}
		err := c.do(ctx, "create item", http.MethodPost, endpoint(c.driveURL, query, "files"), body, &item)
		return item, err
	}

	sheetID, err := c.createSpreadsheet(ctx, spec.Name, spec.Tabs)
	if err != nil {
		return types.Item{}, err
	}
	if spec.Parent == "" {
		return c.GetItem(ctx, sheetID)
	}
	current, err := c.GetItem(ctx, sheetID)
	if err != nil {
		return types.Item{}, err
	}
	return c.PatchItem(ctx, sheetID, types.ItemPatch{
		AddParents:    []string{spec.Parent},
		RemoveParents: current.Parents,
	})
}

// GetItem returns file metadata by id.
func (c *Client) GetItem(ctx context.Context, id string) (types.Item, error) {
	var item types.Item
	query := url.Values{"fields": {itemFields}}
	err := c.do(ctx, "get item", http.MethodGet, endpoint(c.driveURL, query, "files", id), nil, &item)
	return item, err
}

// PatchItem updates name, trashed state and parents.
func (c *Client) PatchItem(ctx context.Context, id string, patch types.ItemPatch) (types.Item, error) {
	query := url.Values{"fields": {itemFields}}
	if len(patch.AddParents) > 0 {
		query.Set("addParents", strings.Join(patch.AddParents, ","))
	}
	if len(patch.RemoveParents) > 0 {
		query.Set("removeParents", strings.Join(patch.RemoveParents, ","))
	}
	body := fileBody{Name: patch.Name, Trashed: patch.Trashed}
	var item types.Item
	err := c.do(ctx, "patch item", http.MethodPatch, endpoint(c.driveURL, query, "files", id), body, &item)
	return item, err
}

// searchQuery builds the file search expression for q.
func searchQuery(q types.ItemQuery) string {
	var terms []string
	if q.Name != "" {
		terms = append(terms, "name = "+quote(q.Name))
	}
	if q.MimeType != "" {
		terms = append(terms, "mimeType = "+quote(q.MimeType))
	}
	if q.Parent != "" {
		terms = append(terms, quote(q.Parent)+" in parents")
	}
	if !q.IncludeTrashed {
		terms = append(terms, "trashed = false")
	}
	return strings.Join(terms, " and ")
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
