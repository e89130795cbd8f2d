package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"reclist/internal/log"
	"reclist/internal/metrics"
	"reclist/internal/recordings"
	"reclist/pkg/types"
)

const (
	defaultScanLimit = 50
	maxScanLimit     = 500
)

// ScanHistory records summaries of completed scans.
type ScanHistory interface {
	RecordScan(rec *types.ScanRecord) error
	RecentScans(limit int) ([]types.ScanRecord, error)
}

type APIHandler struct {
	enumerator *recordings.Enumerator
	history    ScanHistory
	defaultDir string
	browser    *BrowserHandler
}

// NewAPIHandler wires the list endpoints. history may be nil.
func NewAPIHandler(enumerator *recordings.Enumerator, history ScanHistory, defaultDir string) *APIHandler {
	return &APIHandler{
		enumerator: enumerator,
		history:    history,
		defaultDir: defaultDir,
		browser:    NewBrowserHandler(),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type notFoundResponse struct {
	Error      string            `json:"error"`
	Recordings []types.Recording `json:"recordings"`
}

type ScanListResponse struct {
	Scans []types.ScanRecord `json:"scans"`
	Count int                `json:"count"`
}

// GET /api/list-files?dir=... - list recordings under dir
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	directory := r.URL.Query().Get("dir")
	if directory == "" {
		directory = h.defaultDir
	}
	directory = filepath.Clean(directory)

	logger := log.WithComponentFromContext(r.Context(), "api")

	if _, err := os.Stat(directory); err != nil {
		metrics.RecordScan(metrics.OutcomeNotFound, 0, 0)
		logger.Debug().Err(err).Str(log.FieldDirectory, directory).Msg("requested directory not found")
		h.sendJSON(w, http.StatusNotFound, notFoundResponse{
			Error:      "Directory not found: " + directory,
			Recordings: []types.Recording{},
		})
		return
	}

	start := time.Now()
	recs, stats := h.enumerator.Scan(directory)
	elapsed := time.Since(start)
	metrics.RecordScan(metrics.OutcomeOK, elapsed, len(recs))

	logger.Info().
		Str(log.FieldDirectory, directory).
		Int(log.FieldCount, len(recs)).
		Int("skipped", stats.Skipped).
		Int("dirs", stats.Dirs).
		Int("walk_errors", stats.Errors).
		Dur(log.FieldDuration, elapsed).
		Msg("listed recordings")

	h.recordScan(r, directory, stats, start, elapsed)

	listing := types.Listing{
		Directory:  directory,
		Recordings: recs,
		Count:      len(recs),
	}

	if wantsHTML(r) {
		h.browser.Render(w, listing)
		return
	}

	h.sendJSON(w, http.StatusOK, listing)
}

// GET /api/scans?limit=N - recent scan summaries, newest first
func (h *APIHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	limit := defaultScanLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.sendError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxScanLimit)
	}

	scans := []types.ScanRecord{}
	if h.history != nil {
		var err error
		scans, err = h.history.RecentScans(limit)
		if err != nil {
			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Error().Err(err).Msg("failed to read scan history")
			h.sendError(w, http.StatusInternalServerError, "failed to read scan history")
			return
		}
	}

	h.sendJSON(w, http.StatusOK, ScanListResponse{
		Scans: scans,
		Count: len(scans),
	})
}

// NotFound answers unknown routes.
func (h *APIHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.sendError(w, http.StatusNotFound, "not found")
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *APIHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, OPTIONS")
	h.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// recordScan stores a summary of the scan. Failures never fail the request.
func (h *APIHandler) recordScan(r *http.Request, directory string, stats recordings.ScanStats, start time.Time, elapsed time.Duration) {
	if h.history == nil {
		return
	}

	rec := &types.ScanRecord{
		ID:         uuid.NewString(),
		Directory:  directory,
		Count:      stats.Files,
		TotalBytes: stats.Bytes,
		DurationMS: elapsed.Milliseconds(),
		ScannedAt:  start.UTC(),
		RequestID:  log.RequestIDFromContext(r.Context()),
	}
	if err := h.history.RecordScan(rec); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Str(log.FieldDirectory, directory).Msg("failed to record scan history")
	}
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func (h *APIHandler) sendError(w http.ResponseWriter, statusCode int, errorMsg string) {
	h.sendJSON(w, statusCode, errorResponse{Error: errorMsg})
}
