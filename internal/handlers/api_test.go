package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reclist/internal/log"
	"reclist/internal/recordings"
	"reclist/internal/storage"
	"reclist/pkg/types"
)

type fakeHistory struct {
	mu      sync.Mutex
	records []types.ScanRecord
	err     error
}

func (f *fakeHistory) RecordScan(rec *types.ScanRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeHistory) RecentScans(limit int) ([]types.ScanRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []types.ScanRecord{}
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.records[i])
	}
	return out, nil
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", size)), 0o644))
}

func newTestHandler(t *testing.T, base string, history ScanHistory) *APIHandler {
	t.Helper()
	classifier := recordings.NewClassifier(recordings.ClassifierConfig{MinSizeBytes: recordings.DefaultMinSizeBytes})
	return NewAPIHandler(recordings.NewEnumerator(base, classifier), history, base)
}

func listRequest(dir string) *http.Request {
	target := "/api/list-files"
	if dir != "" {
		target += "?dir=" + url.QueryEscape(dir)
	}
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestAPIHandler_ListFiles(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "team1", "b.guac"), 10)
	writeFile(t, filepath.Join(base, "team1", "a.cast"), 10)
	writeFile(t, filepath.Join(base, "team1", "sub", "4e1d"), 100)
	writeFile(t, filepath.Join(base, "team1", "tiny"), 5)

	history := &fakeHistory{}
	handler := newTestHandler(t, base, history)

	w := httptest.NewRecorder()
	handler.ListFiles(w, listRequest(filepath.Join(base, "team1")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var listing types.Listing
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listing))

	assert.Equal(t, filepath.Join(base, "team1"), listing.Directory)
	assert.Equal(t, 3, listing.Count)
	require.Len(t, listing.Recordings, 3)
	assert.Equal(t, "a.cast", listing.Recordings[0].Name)
	assert.Equal(t, "/team1/a.cast", listing.Recordings[0].Path)
	assert.Equal(t, "sub/4e1d", listing.Recordings[2].Name)
	assert.Equal(t, "/sub/team1/sub/4e1d", listing.Recordings[2].Path)
	assert.Equal(t, int64(100), listing.Recordings[2].Size)

	require.Len(t, history.records, 1)
	assert.Equal(t, 3, history.records[0].Count)
	assert.Equal(t, int64(120), history.records[0].TotalBytes)
	assert.NotEmpty(t, history.records[0].ID)
}

func TestAPIHandler_ListFiles_WireFormat(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "rec.guac"), 10)
	handler := newTestHandler(t, base, nil)

	w := httptest.NewRecorder()
	handler.ListFiles(w, listRequest(""))
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	assert.Equal(t, float64(1), raw["count"])

	recs := raw["recordings"].([]any)
	rec := recs[0].(map[string]any)
	assert.Equal(t, "rec.guac", rec["name"])
	assert.Equal(t, "/rec.guac", rec["path"])
	assert.Equal(t, float64(10), rec["size"])
	assert.IsType(t, float64(0), rec["modified"])
	assert.Greater(t, rec["modified"].(float64), float64(0))
}

func TestAPIHandler_ListFiles_DefaultDirectory(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "a.guac"), 10)
	handler := newTestHandler(t, base, nil)

	w := httptest.NewRecorder()
	handler.ListFiles(w, listRequest(""))
	require.Equal(t, http.StatusOK, w.Code)

	var listing types.Listing
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listing))
	assert.Equal(t, filepath.Clean(base), listing.Directory)
	assert.Equal(t, 1, listing.Count)
}

func TestAPIHandler_ListFiles_EmptyDirectory(t *testing.T) {
	base := t.TempDir()
	handler := newTestHandler(t, base, nil)

	w := httptest.NewRecorder()
	handler.ListFiles(w, listRequest(base))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"recordings":[]`)
}

func TestAPIHandler_ListFiles_NotFound(t *testing.T) {
	base := t.TempDir()
	history := &fakeHistory{}
	handler := newTestHandler(t, base, history)
	missing := filepath.Join(base, "nope")

	w := httptest.NewRecorder()
	handler.ListFiles(w, listRequest(missing))

	require.Equal(t, http.StatusNotFound, w.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	assert.Equal(t, "Directory not found: "+missing, raw["error"])
	assert.Equal(t, []any{}, raw["recordings"])
	assert.Empty(t, history.records, "missing directories are not recorded")
}

func TestAPIHandler_ListFiles_HistoryFailureDoesNotFailRequest(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "a.guac"), 10)
	handler := newTestHandler(t, base, &fakeHistory{err: errors.New("disk full")})

	w := httptest.NewRecorder()
	handler.ListFiles(w, listRequest(base))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIHandler_ListFiles_HTML(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "session<1>.guac"), 2048)
	handler := newTestHandler(t, base, nil)

	req := listRequest(base)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	w := httptest.NewRecorder()
	handler.ListFiles(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "session&lt;1&gt;.guac")
	assert.Contains(t, body, "2.0 KB")
	assert.Contains(t, body, "1 recording(s)")
}

func TestAPIHandler_ListFiles_RequestIDRecorded(t *testing.T) {
	base := t.TempDir()
	history := &fakeHistory{}
	handler := newTestHandler(t, base, history)

	req := listRequest(base)
	req = req.WithContext(log.ContextWithRequestID(req.Context(), "req-42"))
	handler.ListFiles(httptest.NewRecorder(), req)

	require.Len(t, history.records, 1)
	assert.Equal(t, "req-42", history.records[0].RequestID)
}

func TestAPIHandler_ListScans(t *testing.T) {
	base := t.TempDir()
	store, err := storage.New("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := newTestHandler(t, base, store)
	for i := 0; i < 3; i++ {
		handler.ListFiles(httptest.NewRecorder(), listRequest(base))
	}

	w := httptest.NewRecorder()
	handler.ListScans(w, httptest.NewRequest(http.MethodGet, "/api/scans?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp ScanListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Scans, 2)
	assert.Equal(t, filepath.Clean(base), resp.Scans[0].Directory)
}

func TestAPIHandler_ListScans_BadLimit(t *testing.T) {
	handler := newTestHandler(t, t.TempDir(), &fakeHistory{})

	for _, limit := range []string{"0", "-1", "ten"} {
		w := httptest.NewRecorder()
		handler.ListScans(w, httptest.NewRequest(http.MethodGet, "/api/scans?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit %s", limit)
	}
}

func TestAPIHandler_ListScans_NoHistory(t *testing.T) {
	handler := newTestHandler(t, t.TempDir(), nil)

	w := httptest.NewRecorder()
	handler.ListScans(w, httptest.NewRequest(http.MethodGet, "/api/scans", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"scans":[],"count":0}`, w.Body.String())
}

func TestAPIHandler_ListScans_HistoryError(t *testing.T) {
	handler := newTestHandler(t, t.TempDir(), &fakeHistory{err: errors.New("closed")})

	w := httptest.NewRecorder()
	handler.ListScans(w, httptest.NewRequest(http.MethodGet, "/api/scans", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		0:           "0 B",
		1023:        "1023 B",
		1024:        "1.0 KB",
		1536:        "1.5 KB",
		1024 * 1024: "1.0 MB",
	}
	for size, want := range tests {
		assert.Equal(t, want, formatSize(size), "size %d", size)
	}
}
