package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/habits/internal/codec"
	"github.com/mesh-intelligence/habits/internal/store"
	"github.com/mesh-intelligence/habits/pkg/types"
)

const goodToken = "ya29.good"

func setupClient(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	f, srv := newFakeAPI(t, goodToken)
	return f, f.client(srv, goodToken)
}

func TestItemsRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, c := setupClient(t)

	folder, err := c.CreateItem(ctx, types.ItemSpec{Name: "Habit's Tracker", MimeType: types.MimeFolder})
	require.NoError(t, err)
	assert.Equal(t, "Habit's Tracker", folder.Name)

	found, err := c.ListItems(ctx, types.ItemQuery{Name: "Habit's Tracker", MimeType: types.MimeFolder})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, folder.ID, found[0].ID)

	sheet, err := c.CreateItem(ctx, types.ItemSpec{
		Name:     "Habits",
		MimeType: types.MimeSpreadsheet,
		Parent:   folder.ID,
		Tabs:     []string{"Habits"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{folder.ID}, sheet.Parents, "spreadsheet moved out of root")

	inFolder, err := c.ListItems(ctx, types.ItemQuery{Parent: folder.ID})
	require.NoError(t, err)
	require.Len(t, inFolder, 1)
	assert.Equal(t, sheet.ID, inFolder[0].ID)

	trashed := true
	got, err := c.PatchItem(ctx, folder.ID, types.ItemPatch{Trashed: &trashed})
	require.NoError(t, err)
	assert.True(t, got.Trashed)

	found, err = c.ListItems(ctx, types.ItemQuery{Name: "Habit's Tracker"})
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = c.GetItem(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrItemNotFound)
}

func TestRanges(t *testing.T) {
	ctx := context.Background()
	f, c := setupClient(t)

	sheet, err := c.CreateItem(ctx, types.ItemSpec{Name: "S", MimeType: types.MimeSpreadsheet, Tabs: []string{"Habits"}})
	require.NoError(t, err)

	require.NoError(t, c.WriteRange(ctx, sheet.ID, "Habits!A1:C2", [][]string{
		{"id", "name", "goal"},
		{"h1", "Read", "2.5"},
	}))

	rows, err := c.ReadRange(ctx, sheet.ID, "Habits!A2:C")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"h1", "Read", "2.5"}}, rows)

	require.NoError(t, c.ClearRange(ctx, sheet.ID, "Habits!A2:C2"))
	rows, err = c.ReadRange(ctx, sheet.ID, "Habits!A2:C")
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, c.FormatRange(ctx, sheet.ID, "Habits!A1:C1", types.CellFormat{Bold: true, Background: "#ff0000"}))
	require.Len(t, f.formats, 1)
	repeat := f.formats[0]["repeatCell"].(map[string]any)
	grid := repeat["range"].(map[string]any)
	assert.Equal(t, float64(0), grid["sheetId"])
	assert.Equal(t, float64(0), grid["startRowIndex"])
	assert.Equal(t, float64(1), grid["endRowIndex"])
	assert.Equal(t, float64(3), grid["endColumnIndex"])
	assert.Equal(t, "userEnteredFormat(textFormat,backgroundColor)", repeat["fields"])

	_, err = c.ReadRange(ctx, sheet.ID, "Nope!A1")
	var se *types.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.KindValidation, se.Kind)
	assert.Equal(t, http.StatusBadRequest, se.Status)
}

func TestStatusMapping(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		status int
		kind   types.ErrorKind
		target error
	}{
		{http.StatusUnauthorized, types.KindAuthentication, types.ErrUnauthorized},
		{http.StatusForbidden, types.KindAuthorization, types.ErrForbidden},
		{http.StatusNotFound, types.KindNotFound, types.ErrItemNotFound},
		{http.StatusInternalServerError, types.KindServer, types.ErrServerFailure},
		{http.StatusServiceUnavailable, types.KindServer, types.ErrServerFailure},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			f, c := setupClient(t)
			f.failWith(tt.status)

			_, err := c.ListItems(ctx, types.ItemQuery{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)

			se := types.Classify(err)
			assert.Equal(t, tt.kind, se.Kind)
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, "list items", se.Op)
		})
	}
}

func TestBearerToken(t *testing.T) {
	ctx := context.Background()
	f, srv := newFakeAPI(t, goodToken)
	c := f.client(srv, "stale")

	_, err := c.ListItems(ctx, types.ItemQuery{})
	assert.True(t, types.IsAuthentication(err))
	assert.Contains(t, err.Error(), "Invalid credentials")

	c.SetToken(goodToken)
	_, err = c.ListItems(ctx, types.ItemQuery{})
	assert.NoError(t, err)
}

func TestMissingToken(t *testing.T) {
	f, srv := newFakeAPI(t, goodToken)
	c := f.client(srv, "")

	_, err := c.GetItem(context.Background(), "x")
	assert.ErrorIs(t, err, types.ErrTokenMissing)
	assert.True(t, types.IsAuthentication(err))
	assert.Empty(t, f.log(), "no request without a token")
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{DriveURL: url, SheetsURL: url, Token: goodToken, Timeout: time.Second})
	_, err := c.ListItems(context.Background(), types.ItemQuery{})
	assert.Equal(t, types.KindNetwork, types.Classify(err).Kind)
}

func TestUnexpectedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	t.Cleanup(srv.Close)

	c := New(Options{DriveURL: srv.URL, SheetsURL: srv.URL, Token: goodToken})
	_, err := c.GetItem(context.Background(), "x")
	assert.ErrorIs(t, err, types.ErrUnexpectedBody)
}

func TestSearchQuery(t *testing.T) {
	got := searchQuery(types.ItemQuery{Name: `it's`, MimeType: types.MimeFolder, Parent: "p1"})
	assert.Equal(t, `name = 'it\'s' and mimeType = 'application/vnd.google-apps.folder' and 'p1' in parents and trashed = false`, got)
	assert.Equal(t, "", searchQuery(types.ItemQuery{IncludeTrashed: true}))
}

func TestColor(t *testing.T) {
	assert.Equal(t, map[string]float64{"red": 1, "green": 0, "blue": 0}, color("#ff0000"))
	assert.Equal(t, map[string]float64{"red": 0, "green": 0, "blue": 0}, color("zz"))
}

func TestStoreOverRemote(t *testing.T) {
	ctx := context.Background()
	_, c := setupClient(t)
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	schema := types.DefaultSchema()

	handle, err := store.NewProvisioner(c, schema, nil).EnsureStoreHandle(ctx)
	require.NoError(t, err)

	records := store.NewRecordStore(c, codec.New(schema, func() time.Time { return now }), nil)
	h := types.Habit{
		ID:          "h1",
		Name:        "Read",
		Variant:     types.GoodHabit{Goal: 3, Unit: "pages", Subtasks: []string{"open book"}},
		Tags:        []string{"evening"},
		CreatedDate: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
		UpdatedDate: now,
	}
	h.DailyTracking[0] = types.Logged(3)
	require.NoError(t, records.Write(ctx, handle, h, nil))

	all, err := records.ReadAll(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, []types.Habit{h}, all)

	require.NoError(t, records.UpdateCell(ctx, handle, "h1", "isArchived", true))
	require.NoError(t, records.Delete(ctx, handle, "h1"))
	all, err = records.ReadAll(ctx, handle)
	require.NoError(t, err)
	assert.Empty(t, all)

	again, err := store.NewProvisioner(c, schema, nil).EnsureStoreHandle(ctx)
	require.NoError(t, err)
	assert.Equal(t, handle, again)
}

func TestContextCanceled(t *testing.T) {
	_, c := setupClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListItems(ctx, types.ItemQuery{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, types.KindNetwork, types.Classify(err).Kind)
}
