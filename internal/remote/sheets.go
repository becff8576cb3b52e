package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/habits/internal/a1"
	"github.com/mesh-intelligence/habits/pkg/types"
)

type sheetProperties struct {
	SheetID int    `json:"sheetId"`
	Title   string `json:"title"`
}

type spreadsheet struct {
	SpreadsheetID string `json:"spreadsheetId,omitempty"`
	Properties    struct {
		Title string `json:"title"`
	} `json:"properties"`
	Sheets []struct {
		Properties sheetProperties `json:"properties"`
	} `json:"sheets,omitempty"`
}

type valueRange struct {
	Range          string  `json:"range,omitempty"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values,omitempty"`
}

// createSpreadsheet creates a spreadsheet with the given tabs and returns
// its id.
func (c *Client) createSpreadsheet(ctx context.Context, title string, tabs []string) (string, error) {
	var req spreadsheet
	req.Properties.Title = title
	for i, tab := range tabs {
		req.Sheets = append(req.Sheets, struct {
			Properties sheetProperties `json:"properties"`
		}{Properties: sheetProperties{SheetID: i, Title: tab}})
	}
	var out spreadsheet
	if err := c.do(ctx, "create spreadsheet", http.MethodPost, endpoint(c.sheetsURL, nil, "spreadsheets"), req, &out); err != nil {
		return "", err
	}
	if out.SpreadsheetID == "" {
		return "", &types.StoreError{Kind: types.KindServer, Op: "create spreadsheet", Message: "Unexpected response body", Err: types.ErrUnexpectedBody}
	}
	return out.SpreadsheetID, nil
}

// ReadRange fetches the values of rng as text.
func (c *Client) ReadRange(ctx context.Context, sheetID, rng string) ([][]string, error) {
	query := url.Values{"majorDimension": {"ROWS"}}
	var out valueRange
	if err := c.do(ctx, "read range", http.MethodGet, endpoint(c.sheetsURL, query, "spreadsheets", sheetID, "values", rng), nil, &out); err != nil {
		return nil, err
	}
	rows := make([][]string, len(out.Values))
	for i, row := range out.Values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = cellText(v)
		}
	}
	return rows, nil
}

// WriteRange writes values into rng without input parsing.
func (c *Client) WriteRange(ctx context.Context, sheetID, rng string, values [][]string) error {
	body := valueRange{Range: rng, MajorDimension: "ROWS", Values: make([][]any, len(values))}
	for i, row := range values {
		body.Values[i] = make([]any, len(row))
		for j, v := range row {
			body.Values[i][j] = v
		}
	}
	query := url.Values{"valueInputOption": {"RAW"}}
	return c.do(ctx, "write range", http.MethodPut, endpoint(c.sheetsURL, query, "spreadsheets", sheetID, "values", rng), body, nil)
}

// ClearRange clears the values of rng.
func (c *Client) ClearRange(ctx context.Context, sheetID, rng string) error {
	u := endpoint(c.sheetsURL, nil, "spreadsheets", sheetID, "values", rng) + ":clear"
	return c.do(ctx, "clear range", http.MethodPost, u, struct{}{}, nil)
}

// FormatRange applies f to rng with a repeatCell request.
func (c *Client) FormatRange(ctx context.Context, sheetID, rng string, f types.CellFormat) error {
	r, err := a1.Parse(rng)
	if err != nil {
		return &types.StoreError{Kind: types.KindValidation, Op: "format range", Message: err.Error(), Err: err}
	}
	tabID, err := c.tabID(ctx, sheetID, r.Tab)
	if err != nil {
		return err
	}

	grid := map[string]int{
		"sheetId":          tabID,
		"startRowIndex":    r.StartRow - 1,
		"startColumnIndex": r.StartCol,
		"endColumnIndex":   r.EndCol + 1,
	}
	if r.EndRow != 0 {
		grid["endRowIndex"] = r.EndRow
	}
	format := map[string]any{"textFormat": textFormat(f)}
	fields := []string{"textFormat"}
	if f.Background != "" {
		format["backgroundColor"] = color(f.Background)
		fields = append(fields, "backgroundColor")
	}
	body := map[string]any{
		"requests": []any{map[string]any{
			"repeatCell": map[string]any{
				"range":  grid,
				"cell":   map[string]any{"userEnteredFormat": format},
				"fields": "userEnteredFormat(" + strings.Join(fields, ",") + ")",
			},
		}},
	}
	return c.do(ctx, "format range", http.MethodPost, endpoint(c.sheetsURL, nil, "spreadsheets", sheetID+":batchUpdate"), body, nil)
}

// tabID resolves a tab title to its numeric id. An empty title selects
// the first tab.
func (c *Client) tabID(ctx context.Context, sheetID, tab string) (int, error) {
	query := url.Values{"fields": {"sheets.properties"}}
	var out spreadsheet
	if err := c.do(ctx, "get spreadsheet", http.MethodGet, endpoint(c.sheetsURL, query, "spreadsheets", sheetID), nil, &out); err != nil {
		return 0, err
	}
	for _, s := range out.Sheets {
		if tab == "" || s.Properties.Title == tab {
			return s.Properties.SheetID, nil
		}
	}
	err := fmt.Errorf("%w: no tab %q", types.ErrInvalidRange, tab)
	return 0, &types.StoreError{Kind: types.KindNotFound, Op: "format range", Message: err.Error(), Err: err}
}

func textFormat(f types.CellFormat) map[string]any {
	tf := map[string]any{"bold": f.Bold}
	if f.Foreground != "" {
		tf["foregroundColor"] = color(f.Foreground)
	}
	return tf
}

// color converts "#rrggbb" to the API's 0..1 float channels. Malformed
// input yields black.
func color(hex string) map[string]float64 {
	hex = strings.TrimPrefix(hex, "#")
	channel := func(i int) float64 {
		if len(hex) < i+2 {
			return 0
		}
		v, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			return 0
		}
		return float64(v) / 255
	}
	return map[string]float64{"red": channel(0), "green": channel(2), "blue": channel(4)}
}

// cellText renders a decoded JSON scalar as cell text.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
