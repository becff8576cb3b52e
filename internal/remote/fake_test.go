package remote

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/mesh-intelligence/habits/internal/tabulartest"
	"github.com/mesh-intelligence/habits/pkg/types"
)

// fakeAPI serves the Drive and Sheets endpoints over a local tabular
// backend.
type fakeAPI struct {
	t       *testing.T
	backend types.Tabular
	token   string

	mu       sync.Mutex
	tabs     map[string][]string
	status   int // when non-zero every request fails with it
	requests []string
	formats  []map[string]any
}

func newFakeAPI(t *testing.T, token string) (*fakeAPI, *httptest.Server) {
	f := &fakeAPI{
		t:       t,
		backend: tabulartest.NewSQLite(t),
		token:   token,
		tabs:    make(map[string][]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /drive/files", f.listFiles)
	mux.HandleFunc("POST /drive/files", f.createFile)
	mux.HandleFunc("GET /drive/files/{id}", f.getFile)
	mux.HandleFunc("PATCH /drive/files/{id}", f.patchFile)
	mux.HandleFunc("POST /sheets/spreadsheets", f.createSpreadsheet)
	mux.HandleFunc("GET /sheets/spreadsheets/{id}", f.getSpreadsheet)
	mux.HandleFunc("POST /sheets/spreadsheets/{id}", f.batchUpdate)
	mux.HandleFunc("GET /sheets/spreadsheets/{id}/values/{rng}", f.getValues)
	mux.HandleFunc("PUT /sheets/spreadsheets/{id}/values/{rng}", f.putValues)
	mux.HandleFunc("POST /sheets/spreadsheets/{id}/values/{rng}", f.clearValues)

	srv := httptest.NewServer(f.guard(mux))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) client(srv *httptest.Server, token string) *Client {
	return New(Options{DriveURL: srv.URL + "/drive", SheetsURL: srv.URL + "/sheets", Token: token})
}

func (f *fakeAPI) failWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeAPI) log() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeAPI) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		status := f.status
		f.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+f.token {
			writeError(w, http.StatusUnauthorized, "Request had invalid authentication credentials.")
			return
		}
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	var e apiError
	e.Error.Code = status
	e.Error.Message = msg
	json.NewEncoder(w).Encode(e)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

var (
	nameTerm   = regexp.MustCompile(`name = '((?:[^'\\]|\\.)*)'`)
	mimeTerm   = regexp.MustCompile(`mimeType = '((?:[^'\\]|\\.)*)'`)
	parentTerm = regexp.MustCompile(`'((?:[^'\\]|\\.)*)' in parents`)
)

func unquote(s string) string {
	s = strings.ReplaceAll(s, `\'`, `'`)
	return strings.ReplaceAll(s, `\\`, `\`)
}

func (f *fakeAPI) listFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	var query types.ItemQuery
	if m := nameTerm.FindStringSubmatch(q); m != nil {
		query.Name = unquote(m[1])
	}
	if m := mimeTerm.FindStringSubmatch(q); m != nil {
		query.MimeType = unquote(m[1])
	}
	if m := parentTerm.FindStringSubmatch(q); m != nil {
		query.Parent = unquote(m[1])
	}
	query.IncludeTrashed = !strings.Contains(q, "trashed = false")

	items, err := f.backend.ListItems(r.Context(), query)
	if err != nil {
		f.fail(w, err)
		return
	}
	if items == nil {
		items = []types.Item{}
	}
	writeJSON(w, fileList{Files: items})
}

func (f *fakeAPI) createFile(w http.ResponseWriter, r *http.Request) {
	var body fileBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	spec := types.ItemSpec{Name: body.Name, MimeType: body.MimeType}
	if len(body.Parents) > 0 {
		spec.Parent = body.Parents[0]
	}
	item, err := f.backend.CreateItem(r.Context(), spec)
	if err != nil {
		f.fail(w, err)
		return
	}
	writeJSON(w, item)
}

func (f *fakeAPI) getFile(w http.ResponseWriter, r *http.Request) {
	item, err := f.backend.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		f.fail(w, err)
		return
	}
	writeJSON(w, item)
}

func (f *fakeAPI) patchFile(w http.ResponseWriter, r *http.Request) {
	var body fileBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	patch := types.ItemPatch{Name: body.Name, Trashed: body.Trashed}
	if v := r.URL.Query().Get("addParents"); v != "" {
		patch.AddParents = strings.Split(v, ",")
	}
	if v := r.URL.Query().Get("removeParents"); v != "" {
		patch.RemoveParents = strings.Split(v, ",")
	}
	item, err := f.backend.PatchItem(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		f.fail(w, err)
		return
	}
	writeJSON(w, item)
}

func (f *fakeAPI) createSpreadsheet(w http.ResponseWriter, r *http.Request) {
	var body spreadsheet
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var tabs []string
	for _, s := range body.Sheets {
		tabs = append(tabs, s.Properties.Title)
	}
	// New spreadsheets land in the root folder.
	item, err := f.backend.CreateItem(r.Context(), types.ItemSpec{
		Name:     body.Properties.Title,
		MimeType: types.MimeSpreadsheet,
		Parent:   "root",
		Tabs:     tabs,
	})
	if err != nil {
		f.fail(w, err)
		return
	}
	f.mu.Lock()
	f.tabs[item.ID] = tabs
	f.mu.Unlock()

	body.SpreadsheetID = item.ID
	writeJSON(w, body)
}

func (f *fakeAPI) getSpreadsheet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	tabs, ok := f.tabs[id]
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}
	var out spreadsheet
	for i, tab := range tabs {
		out.Sheets = append(out.Sheets, struct {
			Properties sheetProperties `json:"properties"`
		}{Properties: sheetProperties{SheetID: i, Title: tab}})
	}
	writeJSON(w, out)
}

func (f *fakeAPI) batchUpdate(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.PathValue("id"), ":batchUpdate") {
		writeError(w, http.StatusNotFound, "unknown method")
		return
	}
	var body struct {
		Requests []map[string]any `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	f.formats = append(f.formats, body.Requests...)
	f.mu.Unlock()
	writeJSON(w, map[string]any{})
}

func (f *fakeAPI) getValues(w http.ResponseWriter, r *http.Request) {
	rows, err := f.backend.ReadRange(r.Context(), r.PathValue("id"), r.PathValue("rng"))
	if err != nil {
		f.fail(w, err)
		return
	}
	out := valueRange{Range: r.PathValue("rng"), MajorDimension: "ROWS"}
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, c := range row {
			// Numbers come back as JSON numbers, like an unformatted read.
			if n, err := strconv.ParseFloat(c, 64); err == nil && c != "" {
				cells[i] = n
			} else {
				cells[i] = c
			}
		}
		out.Values = append(out.Values, cells)
	}
	writeJSON(w, out)
}

func (f *fakeAPI) putValues(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("valueInputOption") != "RAW" {
		writeError(w, http.StatusBadRequest, "valueInputOption must be RAW")
		return
	}
	var body valueRange
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	values := make([][]string, len(body.Values))
	for i, row := range body.Values {
		values[i] = make([]string, len(row))
		for j, v := range row {
			values[i][j] = cellText(v)
		}
	}
	if err := f.backend.WriteRange(r.Context(), r.PathValue("id"), r.PathValue("rng"), values); err != nil {
		f.fail(w, err)
		return
	}
	writeJSON(w, map[string]any{"updatedRange": r.PathValue("rng")})
}

func (f *fakeAPI) clearValues(w http.ResponseWriter, r *http.Request) {
	rng, ok := strings.CutSuffix(r.PathValue("rng"), ":clear")
	if !ok {
		writeError(w, http.StatusNotFound, "unknown method")
		return
	}
	if err := f.backend.ClearRange(r.Context(), r.PathValue("id"), rng); err != nil {
		f.fail(w, err)
		return
	}
	writeJSON(w, map[string]any{"clearedRange": rng})
}
