package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fpang/noteclean/internal/archive"
	"github.com/fpang/noteclean/internal/batch"
	"github.com/fpang/noteclean/internal/filehandler"
)

// GET /api/items/{id}/edited[?download=1]
func (s *server) handleEdited(w http.ResponseWriter, r *http.Request) {
	it, ok := s.orch.Item(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "item not found")
		return
	}
	if !it.HasEdit() {
		httpError(w, http.StatusNotFound, "item has no edited image yet")
		return
	}

	if r.URL.Query().Get("download") != "1" {
		writeImage(w, it.Edited.MIMEType, it.Edited.Data)
		return
	}

	img, err := filehandler.ToJPEG(*it.Edited, s.cfg.Extract.JPEGQuality)
	if err != nil {
		log.Warn().Err(err).Str("item_id", it.ID).Msg("Failed to convert edit to JPEG")
		httpError(w, http.StatusInternalServerError, "failed to prepare download")
		return
	}
	w.Header().Set("Content-Disposition", attachment(archive.SingleFilename(it.Sequence)))
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	writeImage(w, img.MIMEType, img.Data)
}

// GET /api/batch/archive
func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.completedBatch(w)
	if !ok {
		return
	}

	data, n, err := s.buildArchive(snap)
	if err != nil {
		log.Error().Err(err).Str("batch_id", snap.BatchID).Msg("Failed to build archive")
		httpError(w, http.StatusInternalServerError, "failed to build archive")
		return
	}

	log.Info().Str("batch_id", snap.BatchID).Int("files", n).Int("bytes", len(data)).Msg("Archive served")
	w.Header().Set("Content-Type", archive.ContentType)
	w.Header().Set("Content-Disposition", attachment(archive.ArchiveFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// POST /api/batch/archive/export
func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		httpError(w, http.StatusServiceUnavailable, "archive export is not configured")
		return
	}
	snap, ok := s.completedBatch(w)
	if !ok {
		return
	}

	data, n, err := s.buildArchive(snap)
	if err != nil {
		log.Error().Err(err).Str("batch_id", snap.BatchID).Msg("Failed to build archive")
		httpError(w, http.StatusInternalServerError, "failed to build archive")
		return
	}

	upload, err := s.exporter.ExportArchive(r.Context(), snap.BatchID, archive.ArchiveFilename, data)
	if err != nil {
		log.Error().Err(err).Str("batch_id", snap.BatchID).Msg("Archive export failed")
		httpError(w, http.StatusBadGateway, "archive export failed")
		return
	}

	log.Info().Str("batch_id", snap.BatchID).Int("files", n).Str("key", upload.Key).Msg("Archive exported")
	respondJSON(w, http.StatusOK, upload)
}

// completedBatch returns the current snapshot when every item is done,
// otherwise it writes the error response.
func (s *server) completedBatch(w http.ResponseWriter) (batch.Snapshot, bool) {
	snap, err := s.orch.Current()
	if errors.Is(err, batch.ErrNoBatch) {
		httpError(w, http.StatusNotFound, "no batch loaded")
		return snap, false
	}
	if !snap.AllDone {
		httpError(w, http.StatusConflict, "every item must be done before downloading the archive")
		return snap, false
	}
	return snap, true
}

func (s *server) buildArchive(snap batch.Snapshot) ([]byte, int, error) {
	var buf bytes.Buffer
	n, err := archive.Write(&buf, snap.Items, archive.Options{
		Method: s.cfg.Archive.Method,
		Folder: s.cfg.Archive.Folder,
	})
	if err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), n, nil
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
