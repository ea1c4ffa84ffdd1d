package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/invoicebatch/internal/core"
)

// maxActionBody bounds the JSON body of an exception action.
const maxActionBody = 64 << 10

var errInvalidActionBody = errors.New("invalid action body")

// handleListExceptions lists exceptions with summary counts.
// Query: batch_id, validation_state, management_state.
func (s *Server) handleListExceptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := core.ParseExceptionFilter(q.Get("batch_id"), q.Get("validation_state"), q.Get("management_state"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	list, err := s.service.ListExceptions(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

// handleExceptionAction applies correct, create, ignore or retry (or their
// Spanish names) to one exception. The body is optional JSON
// {"notes": "...", "correction": {...}}.
func (s *Server) handleExceptionAction(w http.ResponseWriter, r *http.Request) {
	action, err := core.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var in core.ActionInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, r, fmt.Errorf("%w: %v", errInvalidActionBody, err), http.StatusBadRequest)
		return
	}

	result, err := s.service.ApplyExceptionAction(r.Context(), chi.URLParam(r, "exceptionID"), action, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
