// Package extract turns uploaded documents and images into batch items:
// one item per PDF page, one per image, documents first, numbered 1..N.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/noteclean/internal/batch"
	"github.com/fpang/noteclean/internal/filehandler"
)

var (
	// ErrExtraction wraps every failure that aborts an extraction.
	ErrExtraction = errors.New("extraction failed")
	// ErrNoItems is returned when the uploads produced no items at all.
	ErrNoItems = fmt.Errorf("%w: no supported files", ErrExtraction)
)

// Result is the outcome of a successful extraction.
type Result struct {
	// Items are ready for batch.Orchestrator.StartBatch.
	Items []batch.Item
	// Skipped lists the names of unsupported uploads.
	Skipped []string
}

// Options configures an Extractor.
type Options struct {
	Normalize filehandler.NormalizeOptions
	// Concurrency caps sources decoded at once. 0 means one per source.
	Concurrency int
}

// Extractor converts sources into items.
type Extractor struct {
	rasterizer filehandler.Rasterizer
	opts       Options
}

// New creates an Extractor that renders documents with r.
func New(r filehandler.Rasterizer, opts Options) *Extractor {
	return &Extractor{rasterizer: r, opts: opts}
}

// Extract classifies sources, rasterizes documents and normalizes images.
// Item order is every document page (upload order, then page order)
// followed by every image (upload order). Any decode or render error aborts
// the whole extraction. Unsupported sources are skipped.
func (e *Extractor) Extract(ctx context.Context, sources []Source) (Result, error) {
	start := time.Now()

	var docs, images []Source
	var result Result
	for _, src := range sources {
		switch src.Kind() {
		case filehandler.KindDocument:
			docs = append(docs, src)
		case filehandler.KindImage:
			images = append(images, src)
		default:
			log.Warn().Str("file", src.Name).Str("mime_type", src.MIMEType).Msg("Skipping unsupported upload")
			result.Skipped = append(result.Skipped, src.Name)
		}
	}

	if len(docs) == 0 && len(images) == 0 {
		return result, ErrNoItems
	}

	docItems := make([][]batch.Item, len(docs))
	imageItems := make([]batch.Item, len(images))

	g, gctx := errgroup.WithContext(ctx)
	if e.opts.Concurrency > 0 {
		g.SetLimit(e.opts.Concurrency)
	}

	for i, doc := range docs {
		g.Go(func() error {
			if e.rasterizer == nil {
				return fmt.Errorf("%w: %s: no document rasterizer configured", ErrExtraction, doc.Name)
			}
			pages, err := e.rasterizer.Rasterize(gctx, doc.Data)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrExtraction, doc.Name, err)
			}
			items := make([]batch.Item, len(pages))
			for p, page := range pages {
				items[p] = batch.NewItem(doc.Name, p+1, page)
			}
			docItems[i] = items
			return nil
		})
	}

	for i, img := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			normalized, err := filehandler.NormalizeImage(img.Data, e.opts.Normalize)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrExtraction, img.Name, err)
			}
			imageItems[i] = batch.NewItem(img.Name, 0, normalized)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Extraction aborted")
		if !errors.Is(err, ErrExtraction) {
			err = fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		return Result{Skipped: result.Skipped}, err
	}

	for _, items := range docItems {
		result.Items = append(result.Items, items...)
	}
	result.Items = append(result.Items, imageItems...)

	if len(result.Items) == 0 {
		return result, ErrNoItems
	}
	batch.Renumber(result.Items)

	log.Info().
		Int("documents", len(docs)).
		Int("images", len(images)).
		Int("items", len(result.Items)).
		Int("skipped", len(result.Skipped)).
		Dur("duration", time.Since(start)).
		Msg("Extraction complete")

	return result, nil
}
