package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/invoicebatch/internal/core"
	"github.com/JonMunkholm/invoicebatch/internal/logging"
	"github.com/JonMunkholm/invoicebatch/internal/template"
)

// handleListBatches returns one page of batches, newest first.
// Query: state, page, limit.
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := s.service.ListBatches(r.Context(), core.BatchQuery{
		State: q.Get("state"),
		Page:  parseIntParam(r, "page", 1),
		Limit: parseIntParam(r, "limit", core.DefaultPageSize),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// handleBatchStats returns the number of batches in each state.
func (s *Server) handleBatchStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.BatchStats(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// handleBatchDetail returns a batch with its logs and findings.
func (s *Server) handleBatchDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.BatchDetail(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// handleDownloadTemplate returns the PLANTILLA workbook of a completed batch.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	batch, err := s.service.DownloadableBatch(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	f, err := template.Render(batch)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		respondServiceError(w, r, fmt.Errorf("write template: %w", err))
		return
	}

	w.Header().Set("Content-Type", template.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, template.FileName(batch)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("template download interrupted", "batch_id", batch.ID, "error", err)
	}
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
