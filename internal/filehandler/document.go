package filehandler

import (
	"context"
	"fmt"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// DefaultPDFDPI renders pages at twice the 72 DPI PDF user-space resolution.
const DefaultPDFDPI = 144

// Rasterizer converts a document into one image per page, in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte) ([]Image, error)
}

// FitzRasterizer implements Rasterizer with go-fitz (MuPDF).
type FitzRasterizer struct {
	dpi         float64
	jpegQuality int
}

// NewFitzRasterizer creates a rasterizer rendering at dpi and encoding pages
// as JPEG at jpegQuality. Zero values fall back to the defaults.
func NewFitzRasterizer(dpi float64, jpegQuality int) *FitzRasterizer {
	if dpi <= 0 {
		dpi = DefaultPDFDPI
	}
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	return &FitzRasterizer{dpi: dpi, jpegQuality: jpegQuality}
}

// Rasterize renders every page of the PDF in data. The first failing page
// aborts the whole document. A document without pages yields no images.
func (r *FitzRasterizer) Rasterize(ctx context.Context, data []byte) ([]Image, error) {
	start := time.Now()

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	if numPages == 0 {
		log.Debug().Msg("PDF has no pages")
		return []Image{}, nil
	}

	pages := make([]Image, 0, numPages)
	for pageNum := 0; pageNum < numPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.ImageDPI(pageNum, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("unable to render page %d: %w", pageNum+1, err)
		}

		page, err := EncodeJPEG(img, r.jpegQuality)
		if err != nil {
			return nil, fmt.Errorf("unable to encode page %d: %w", pageNum+1, err)
		}
		pages = append(pages, page)
	}

	log.Debug().
		Int("pages", numPages).
		Float64("dpi", r.dpi).
		Dur("duration", time.Since(start)).
		Msg("PDF rasterized")

	return pages, nil
}
