// Package archive bundles finished edits into a ZIP file.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/fpang/noteclean/internal/batch"
	"github.com/fpang/noteclean/internal/filehandler"
)

// ArchiveFilename is the download name of the bundle.
const ArchiveFilename = "processed-images.zip"

// DefaultFolder is the folder every entry is placed under.
const DefaultFolder = "processed_images"

// ContentType is the media type of the bundle.
const ContentType = "application/zip"

// Compression methods accepted in configuration.
const (
	MethodDeflate = "deflate"
	MethodZstd    = "zstd"
	MethodStore   = "store"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = 93

// Options configures Write.
type Options struct {
	// Method is one of MethodDeflate (default), MethodZstd or MethodStore.
	Method string
	// Folder is the directory inside the ZIP. Defaults to DefaultFolder.
	Folder string
	// ModTime is stamped on every entry. Defaults to now.
	ModTime time.Time
}

// ValidateMethod rejects unknown compression method names.
func ValidateMethod(method string) error {
	switch strings.ToLower(method) {
	case "", MethodDeflate, MethodZstd, MethodStore:
		return nil
	default:
		return fmt.Errorf("unknown archive method %q (valid: %s, %s, %s)", method, MethodDeflate, MethodZstd, MethodStore)
	}
}

// EntryName returns the path of an item's edit inside the archive:
// <folder>/image-<sequence>.<ext>, ext following the edit's media type.
func EntryName(folder string, item batch.Item) string {
	if folder == "" {
		folder = DefaultFolder
	}
	mimeType := ""
	if item.Edited != nil {
		mimeType = item.Edited.MIMEType
	}
	return path.Join(folder, fmt.Sprintf("image-%d.%s", item.Sequence, filehandler.ExtensionForMIME(mimeType)))
}

// SingleFilename is the download name of one edited page.
func SingleFilename(sequence int) string {
	return fmt.Sprintf("cleaned-page-%d.jpg", sequence)
}

// Write writes every done item that has an edit into a ZIP on w and returns
// the number of entries written. Other items are skipped silently.
func Write(w io.Writer, items []batch.Item, opts Options) (int, error) {
	if err := ValidateMethod(opts.Method); err != nil {
		return 0, err
	}
	if opts.ModTime.IsZero() {
		opts.ModTime = time.Now()
	}

	zw := zip.NewWriter(w)
	method := zip.Deflate
	switch strings.ToLower(opts.Method) {
	case MethodZstd:
		method = zipMethodZstd
		zw.RegisterCompressor(zipMethodZstd, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedBetterCompression)))
	case MethodStore:
		method = zip.Store
	default:
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, flate.DefaultCompression)
		})
	}

	written := 0
	for _, item := range items {
		if item.Status != batch.StatusDone || item.Edited == nil {
			continue
		}

		header := &zip.FileHeader{
			Name:     EntryName(opts.Folder, item),
			Method:   method,
			Modified: opts.ModTime,
		}
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return written, fmt.Errorf("failed to create zip entry %s: %w", header.Name, err)
		}
		if _, err := entry.Write(item.Edited.Data); err != nil {
			return written, fmt.Errorf("failed to write zip entry %s: %w", header.Name, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finalize zip: %w", err)
	}

	log.Debug().
		Int("entries", written).
		Int("skipped", len(items)-written).
		Str("method", opts.Method).
		Msg("Archive written")

	return written, nil
}
