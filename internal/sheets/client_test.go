package sheets_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"sheets_join/internal/errors"
	"sheets_join/internal/sheets"
	"sheets_join/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

const spreadsheetID = "sheet-abc"

// fakeAPI serves the handful of Sheets v4 endpoints the client uses.
type fakeAPI struct {
	mu       sync.Mutex
	titles   []string
	values   map[string][][]any
	status   int
	requests []*http.Request
	bodies   []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := io.ReadAll(r.Body)
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, string(body))

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": f.status, "message": "The caller does not have permission"},
		})
		return
	}

	prefix := "/v4/spreadsheets/" + spreadsheetID
	path := r.URL.Path
	switch {
	case path == prefix && r.Method == http.MethodGet:
		var sheetList []map[string]any
		for _, t := range f.titles {
			sheetList = append(sheetList, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheetList})
	case path == prefix+":batchUpdate":
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": spreadsheetID})
	case strings.HasPrefix(path, prefix+"/values/") && strings.HasSuffix(path, ":clear"):
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": spreadsheetID})
	case strings.HasPrefix(path, prefix+"/values/") && r.Method == http.MethodPut:
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": spreadsheetID})
	case strings.HasPrefix(path, prefix+"/values/"):
		rng := strings.TrimPrefix(path, prefix+"/values/")
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.values[rng]})
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 404, "message": "Requested entity was not found."}})
	}
}

func (f *fakeAPI) last() (*http.Request, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1], f.bodies[len(f.bodies)-1]
}

func newTestClient(t *testing.T, api *fakeAPI) *sheets.Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := sheets.NewClientWithOptions(context.Background(), "bot@example.iam.gserviceaccount.com",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestSubTables(t *testing.T) {
	client := newTestClient(t, &fakeAPI{titles: []string{"page_logs", "Sheet2"}})

	titles, err := client.SubTables(context.Background(), spreadsheetID)
	require.NoError(t, err)
	assert.Equal(t, []string{"page_logs", "Sheet2"}, titles)
}

func TestRecords(t *testing.T) {
	api := &fakeAPI{
		titles: []string{"page_logs"},
		values: map[string][][]any{
			"'page_logs'": {
				{"course_id", "brand", "received_at"},
				{"u1", "X", "2024-01-01"},
				{"17", "Y"},
			},
		},
	}
	client := newTestClient(t, api)

	records, err := client.Records(context.Background(), spreadsheetID, "page_logs")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "u1", records[0].Value("course_id"))
	assert.Equal(t, int64(17), records[1].Value("course_id"))
	assert.Equal(t, "", records[1].Value("received_at"))

	req, _ := api.last()
	assert.Equal(t, "FORMATTED_VALUE", req.URL.Query().Get("valueRenderOption"))
}

func TestRecords_UnknownSheetListsAvailable(t *testing.T) {
	client := newTestClient(t, &fakeAPI{titles: []string{"page_logs", "Sheet2"}})

	_, err := client.Records(context.Background(), spreadsheetID, "missing")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSubTableNotFound))

	var te *errors.TableError
	require.True(t, stderrors.As(err, &te))
	assert.Equal(t, []string{"page_logs", "Sheet2"}, te.Available)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, errors.ErrSourceUnavailable},
		{"forbidden", http.StatusForbidden, errors.ErrAccessDenied},
		{"server", http.StatusInternalServerError, errors.ErrRemoteAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeAPI{status: tt.status})

			_, err := client.Records(context.Background(), spreadsheetID, "page_logs")
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestAccessDeniedNamesServiceAccount(t *testing.T) {
	client := newTestClient(t, &fakeAPI{status: http.StatusForbidden})

	_, err := client.SubTables(context.Background(), spreadsheetID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot@example.iam.gserviceaccount.com")
	assert.Contains(t, err.Error(), "Editor")
}

func TestTryReadCell(t *testing.T) {
	api := &fakeAPI{
		titles: []string{"Sheet2"},
		values: map[string][][]any{
			"'Sheet2'!G2": {{"=ARRAYFORMULA(IF(LEN(B2:B)=0,,INT(B2:B)))"}},
		},
	}
	client := newTestClient(t, api)

	v, ok := client.TryReadCell(context.Background(), spreadsheetID, "Sheet2", "G2")
	assert.True(t, ok)
	assert.Equal(t, "=ARRAYFORMULA(IF(LEN(B2:B)=0,,INT(B2:B)))", v)
	req, _ := api.last()
	assert.Equal(t, "FORMULA", req.URL.Query().Get("valueRenderOption"))

	_, ok = client.TryReadCell(context.Background(), spreadsheetID, "Sheet2", "G1")
	assert.False(t, ok)
}

func TestTryReadCell_FailureIsAbsent(t *testing.T) {
	client := newTestClient(t, &fakeAPI{status: http.StatusInternalServerError})

	v, ok := client.TryReadCell(context.Background(), spreadsheetID, "Sheet2", "G2")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestWriteRange(t *testing.T) {
	api := &fakeAPI{titles: []string{"Sheet2"}}
	client := newTestClient(t, api)

	err := client.WriteRange(context.Background(), spreadsheetID, "Sheet2", "A1",
		[][]any{{"id", "date"}, {"u1", "2024-01-01"}}, table.Raw)
	require.NoError(t, err)

	req, body := api.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "RAW", req.URL.Query().Get("valueInputOption"))
	assert.Contains(t, body, `"u1"`)
}

func TestClearRange(t *testing.T) {
	api := &fakeAPI{titles: []string{"Sheet2"}}
	client := newTestClient(t, api)

	require.NoError(t, client.ClearRange(context.Background(), spreadsheetID, "Sheet2", "A:F"))

	req, _ := api.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.True(t, strings.HasSuffix(req.URL.Path, "'Sheet2'!A:F:clear"), req.URL.Path)
}

func TestEnsureSubTable(t *testing.T) {
	api := &fakeAPI{titles: []string{"page_logs"}}
	client := newTestClient(t, api)

	created, err := client.EnsureSubTable(context.Background(), spreadsheetID, "Sheet2", 1000, 10)
	require.NoError(t, err)
	assert.True(t, created)

	_, body := api.last()
	assert.Contains(t, body, `"addSheet"`)
	assert.Contains(t, body, `"title":"Sheet2"`)

	created, err = client.EnsureSubTable(context.Background(), spreadsheetID, "page_logs", 1000, 10)
	require.NoError(t, err)
	assert.False(t, created)
}
