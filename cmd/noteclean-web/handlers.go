package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fpang/noteclean/internal/batch"
	"github.com/fpang/noteclean/internal/editor"
	"github.com/fpang/noteclean/internal/extract"
	"github.com/fpang/noteclean/internal/filehandler"
)

// extractionFailedMessage is shown for every extraction failure; details go to the log.
const extractionFailedMessage = "Failed to process the files. Please try again."

// multipartMemory is how much of an upload is kept in memory before spilling to disk.
const multipartMemory = 32 << 20

// GET /api/mode
func (s *server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, editor.ViewOf(s.orch.Mode()))
}

// PUT /api/mode
func (s *server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode        string `json:"mode"`
		Instruction string `json:"instruction"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, err := editor.ParseMode(req.Mode, req.Instruction)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.orch.SetMode(mode)
	respondJSON(w, http.StatusOK, editor.ViewOf(mode))
}

// POST /api/batch (multipart "files", optional "mode" and "instruction")
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		httpError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var mode editor.Mode
	if name := r.FormValue("mode"); name != "" {
		m, err := editor.ParseMode(name, r.FormValue("instruction"))
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = m
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		httpError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	sources := make([]extract.Source, 0, len(headers))
	for _, fh := range headers {
		src, err := readUpload(fh)
		if err != nil {
			log.Warn().Err(err).Str("file", fh.Filename).Msg("Failed to read upload")
			httpError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		sources = append(sources, src)
	}

	// A new upload replaces the previous batch even when extraction fails.
	s.orch.Reset()

	result, err := s.extractor.Extract(r.Context(), sources)
	switch {
	case errors.Is(err, extract.ErrNoItems):
		httpError(w, http.StatusBadRequest, "no supported files uploaded (PDF, JPEG, PNG, WebP or GIF)")
		return
	case err != nil:
		log.Error().Err(err).Int("files", len(sources)).Msg("Extraction failed")
		httpError(w, http.StatusUnprocessableEntity, extractionFailedMessage)
		return
	}

	if mode != nil {
		s.orch.SetMode(mode)
	}
	if _, err := s.orch.StartBatch(result.Items); err != nil {
		log.Error().Err(err).Msg("Failed to start batch")
		httpError(w, http.StatusInternalServerError, "failed to start batch")
		return
	}

	view := viewOfSnapshot(s.orch.Snapshot())
	for _, name := range result.Skipped {
		view.Warnings = append(view.Warnings, "Skipped unsupported file: "+name)
	}
	respondJSON(w, http.StatusAccepted, view)
}

func readUpload(fh *multipart.FileHeader) (extract.Source, error) {
	f, err := fh.Open()
	if err != nil {
		return extract.Source{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return extract.Source{}, err
	}
	return extract.Source{
		Name:     fh.Filename,
		MIMEType: filehandler.DetectMIMEType(fh.Filename, fh.Header.Get("Content-Type")),
		Data:     data,
	}, nil
}

// GET /api/batch
func (s *server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, viewOfSnapshot(s.orch.Snapshot()))
}

// DELETE /api/batch
func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.orch.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/batch/retry-failed
func (s *server) handleRetryFailed(w http.ResponseWriter, r *http.Request) {
	if _, err := s.orch.Current(); errors.Is(err, batch.ErrNoBatch) {
		httpError(w, http.StatusNotFound, "no batch loaded")
		return
	}
	n := s.orch.RetryAllFailed()
	respondJSON(w, http.StatusAccepted, map[string]int{"retried": n})
}

// POST /api/items/{id}/retry
func (s *server) handleRetryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.orch.RetryItem(id) {
		httpError(w, http.StatusNotFound, "item not found")
		return
	}
	it, _ := s.orch.Item(id)
	respondJSON(w, http.StatusAccepted, viewOfItem(it))
}

// GET /api/items/{id}/original
func (s *server) handleOriginal(w http.ResponseWriter, r *http.Request) {
	it, ok := s.orch.Item(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "item not found")
		return
	}
	writeImage(w, it.Original.MIMEType, it.Original.Data)
}

// GET /api/items/{id}/thumbnail
func (s *server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	it, ok := s.orch.Item(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "item not found")
		return
	}

	src := it.Original
	if it.HasEdit() {
		src = *it.Edited
	}
	thumb, err := filehandler.GenerateThumbnail(src, filehandler.DefaultThumbnailMaxDimension)
	if err != nil {
		log.Warn().Err(err).Str("item_id", it.ID).Msg("Failed to generate thumbnail")
		httpError(w, http.StatusInternalServerError, "thumbnail generation failed")
		return
	}
	writeImage(w, thumb.MIMEType, thumb.Data)
}
