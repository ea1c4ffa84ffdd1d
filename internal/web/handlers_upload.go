package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/invoicebatch/internal/core"
)

// multipartMemory is how much of a multipart form is kept in memory before
// the rest spills to disk.
const multipartMemory = 8 << 20

// handleUpload ingests one invoice file sent as multipart field "file", with
// optional "client_id" and "format" fields. Processing is synchronous: the
// response carries the batch in its final state. A file that fails to parse
// still answers 200 with state Error.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.service.MaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := s.service.Upload(r.Context(), core.UploadRequest{
		FileName:   header.Filename,
		ClientID:   r.FormValue("client_id"),
		FormatHint: r.FormValue("format"),
		Size:       header.Size,
		Body:       file,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}
