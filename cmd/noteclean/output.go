package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"github.com/fpang/noteclean/internal/archive"
	"github.com/fpang/noteclean/internal/batch"
	"github.com/fpang/noteclean/internal/cli"
	"github.com/fpang/noteclean/internal/editor"
	"github.com/fpang/noteclean/internal/filehandler"
	"github.com/fpang/noteclean/internal/s3util"
)

// archiveExporter uploads a finished archive and returns where to fetch it.
type archiveExporter interface {
	ExportArchive(ctx context.Context, batchID, filename string, data []byte) (s3util.Upload, error)
}

type outputOptions struct {
	Dir      string
	Pages    bool
	Zip      bool
	Archive  archive.Options
	Quality  int
	Exporter archiveExporter
}

type outputs struct {
	Dir            string
	Pages          []string
	Archive        string
	ArchiveFiles   int
	ArchiveSkipped bool
	Upload         *s3util.Upload
}

// writeOutputs writes one cleaned-page-N.jpg per done page and, when every
// page is done, the ZIP archive and its optional S3 export.
func writeOutputs(ctx context.Context, snap batch.Snapshot, opts outputOptions) (outputs, error) {
	out := outputs{Dir: opts.Dir}
	done := snap.DoneItems()
	wantArchive := opts.Zip || opts.Exporter != nil

	if wantArchive && !snap.AllDone {
		out.ArchiveSkipped = true
		wantArchive = false
	}
	if (!opts.Pages || len(done) == 0) && !wantArchive {
		return out, nil
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return out, fmt.Errorf("failed to create output directory: %w", err)
	}

	if opts.Pages {
		for _, it := range done {
			img, err := filehandler.ToJPEG(*it.Edited, opts.Quality)
			if err != nil {
				return out, fmt.Errorf("page %d: %w", it.Sequence, err)
			}
			path := filepath.Join(opts.Dir, archive.SingleFilename(it.Sequence))
			if err := os.WriteFile(path, img.Data, 0o644); err != nil {
				return out, fmt.Errorf("failed to write %s: %w", path, err)
			}
			out.Pages = append(out.Pages, path)
		}
		log.Debug().Int("files", len(out.Pages)).Str("dir", opts.Dir).Msg("Pages written")
	}

	if !wantArchive {
		return out, nil
	}

	var buf bytes.Buffer
	n, err := archive.Write(&buf, snap.Items, opts.Archive)
	if err != nil {
		return out, fmt.Errorf("failed to build archive: %w", err)
	}
	out.ArchiveFiles = n

	if opts.Zip {
		path := filepath.Join(opts.Dir, archive.ArchiveFilename)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return out, fmt.Errorf("failed to write archive: %w", err)
		}
		out.Archive = path
	}

	if opts.Exporter != nil {
		upload, err := opts.Exporter.ExportArchive(ctx, snap.BatchID, archive.ArchiveFilename, buf.Bytes())
		if err != nil {
			return out, err
		}
		out.Upload = &upload
	}
	return out, nil
}

func printHeader(pages int, mode editor.Mode, model string) {
	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("NoteClean")
	fmt.Println("============================================")
	fmt.Printf("Pages: %d\n", pages)
	fmt.Printf("Mode: %s\n", mode.Title())
	if c, ok := mode.(editor.CustomizeText); ok {
		fmt.Printf("Instruction: %s\n", c.Instruction)
	}
	fmt.Printf("Model: %s\n", model)
	fmt.Println("--------------------------------------------")
}

func printSummary(w io.Writer, snap batch.Snapshot, out outputs, elapsed time.Duration) {
	fmt.Fprintln(w)
	color.New(color.FgMagenta, color.Bold).Fprintln(w, "━━━ SUMMARY ━━━")

	color.New(color.FgGreen).Fprintf(w, "✓ %s of %d done\n", cli.Pages(snap.Summary.Done), snap.Summary.Total)
	if snap.Summary.Failed > 0 {
		color.New(color.FgRed).Fprintf(w, "✗ %d failed\n", snap.Summary.Failed)
		for _, it := range snap.Items {
			if it.Status != batch.StatusFailed {
				continue
			}
			fmt.Fprintf(w, "    page %d (%s): %s\n", it.Sequence, describeSource(it), cli.DescribeFailure(it.ErrorKind))
		}
	}

	if len(out.Pages) > 0 {
		color.New(color.FgBlue).Fprintf(w, "→ Wrote %d files to %s\n", len(out.Pages), out.Dir)
	}
	if out.Archive != "" {
		color.New(color.FgBlue).Fprintf(w, "→ Wrote %s (%d files)\n", out.Archive, out.ArchiveFiles)
	}
	if out.ArchiveSkipped {
		color.New(color.FgYellow).Fprintln(w, "⚠ Archive skipped: every page must be done first (try --retry-failed)")
	}
	if out.Upload != nil {
		color.New(color.FgBlue).Fprintf(w, "→ Uploaded s3://%s/%s\n", out.Upload.Bucket, out.Upload.Key)
		fmt.Fprintf(w, "    %s\n", out.Upload.URL)
	}
	fmt.Fprintf(w, "Elapsed: %s\n", cli.FormatDurationShort(elapsed))
}

func describeSource(it batch.Item) string {
	if it.Page > 0 {
		return fmt.Sprintf("%s p.%d", it.Source, it.Page)
	}
	return it.Source
}

func warnf(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(os.Stderr, "⚠ %s\n", fmt.Sprintf(format, args...))
}

func infof(format string, args ...any) {
	color.New(color.FgCyan).Fprintf(os.Stderr, "ℹ %s\n", fmt.Sprintf(format, args...))
}
