package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fpang/noteclean/internal/batch"
	"github.com/fpang/noteclean/internal/config"
	"github.com/fpang/noteclean/internal/editor"
	"github.com/fpang/noteclean/internal/extract"
	"github.com/fpang/noteclean/internal/s3util"
)

// archiveExporter uploads a finished archive and returns where to fetch it.
type archiveExporter interface {
	ExportArchive(ctx context.Context, batchID, filename string, data []byte) (s3util.Upload, error)
}

type server struct {
	orch      *batch.Orchestrator
	extractor *extract.Extractor
	exporter  archiveExporter
	cfg       *config.Config
}

func newServer(orch *batch.Orchestrator, extractor *extract.Extractor, exporter archiveExporter, cfg *config.Config) *server {
	return &server{orch: orch, extractor: extractor, exporter: exporter, cfg: cfg}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withCORS)
	r.Use(withLogging)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/mode", s.handleGetMode)
		r.Put("/mode", s.handleSetMode)

		r.Route("/batch", func(r chi.Router) {
			r.Post("/", s.handleUpload)
			r.Get("/", s.handleGetBatch)
			r.Delete("/", s.handleReset)
			r.Post("/retry-failed", s.handleRetryFailed)
			r.Get("/archive", s.handleArchive)
			r.Post("/archive/export", s.handleExport)
		})

		r.Route("/items/{id}", func(r chi.Router) {
			r.Post("/retry", s.handleRetryItem)
			r.Get("/original", s.handleOriginal)
			r.Get("/edited", s.handleEdited)
			r.Get("/thumbnail", s.handleThumbnail)
		})
	})
	return r
}

// itemView is the JSON shape of an item: state plus links to its images.
type itemView struct {
	batch.Item
	OriginalLink  string `json:"originalUrl"`
	EditedLink    string `json:"editedUrl,omitempty"`
	ThumbnailLink string `json:"thumbnailUrl"`
}

func viewOfItem(it batch.Item) itemView {
	v := itemView{
		Item:          it,
		OriginalLink:  "/api/items/" + it.ID + "/original",
		ThumbnailLink: "/api/items/" + it.ID + "/thumbnail",
	}
	if it.HasEdit() {
		v.EditedLink = "/api/items/" + it.ID + "/edited"
	}
	return v
}

type snapshotView struct {
	BatchID      string          `json:"batchId,omitempty"`
	CreatedAt    time.Time       `json:"createdAt,omitzero"`
	Mode         editor.ModeView `json:"mode"`
	Items        []itemView      `json:"items"`
	Summary      batch.Summary   `json:"summary"`
	AllDone      bool            `json:"allDone"`
	AnyFailed    bool            `json:"anyFailed"`
	IsProcessing bool            `json:"isProcessing"`
	Warnings     []string        `json:"warnings,omitempty"`
}

func viewOfSnapshot(snap batch.Snapshot) snapshotView {
	items := make([]itemView, 0, len(snap.Items))
	for _, it := range snap.Items {
		items = append(items, viewOfItem(it))
	}
	return snapshotView{
		BatchID:      snap.BatchID,
		CreatedAt:    snap.CreatedAt,
		Mode:         snap.Mode,
		Items:        items,
		Summary:      snap.Summary,
		AllDone:      snap.AllDone,
		AnyFailed:    snap.AnyFailed,
		IsProcessing: snap.IsProcessing,
	}
}
