package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpang/noteclean/internal/archive"
	"github.com/fpang/noteclean/internal/batch"
	"github.com/fpang/noteclean/internal/editor"
	"github.com/fpang/noteclean/internal/filehandler"
	"github.com/fpang/noteclean/internal/s3util"
)

type fakeExporter struct {
	data []byte
	err  error
}

func (f *fakeExporter) ExportArchive(_ context.Context, batchID, filename string, data []byte) (s3util.Upload, error) {
	f.data = data
	if f.err != nil {
		return s3util.Upload{}, f.err
	}
	return s3util.Upload{Bucket: "bkt", Key: batchID + "/" + filename, URL: "https://example/signed"}, nil
}

func pngImage(t *testing.T) *filehandler.Image {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 8, 8)), imaging.PNG))
	return &filehandler.Image{MIMEType: "image/png", Data: buf.Bytes()}
}

func snapshotOf(items ...batch.Item) batch.Snapshot {
	batch.Renumber(items)
	return batch.Snapshot{
		BatchID:   "batch-test",
		Items:     items,
		Summary:   batch.Summarize(items),
		AllDone:   batch.AllDone(items),
		AnyFailed: batch.AnyFailed(items),
	}
}

func doneItem(t *testing.T, source string) batch.Item {
	return batch.Item{ID: source, Source: source, Status: batch.StatusDone, Edited: pngImage(t)}
}

func failedItem(source string) batch.Item {
	return batch.Item{ID: source, Source: source, Page: 2, Status: batch.StatusFailed, ErrorKind: "quota", Error: "quota exceeded"}
}

func TestWriteOutputs_AllDone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	exp := &fakeExporter{}
	snap := snapshotOf(doneItem(t, "a.png"), doneItem(t, "b.png"))

	out, err := writeOutputs(t.Context(), snap, outputOptions{
		Dir: dir, Pages: true, Zip: true, Exporter: exp,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "cleaned-page-1.jpg"),
		filepath.Join(dir, "cleaned-page-2.jpg"),
	}, out.Pages)
	for _, p := range out.Pages {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		_, format, err := image.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format, "single downloads are always JPEG")
	}

	assert.Equal(t, filepath.Join(dir, archive.ArchiveFilename), out.Archive)
	assert.Equal(t, 2, out.ArchiveFiles)
	data, err := os.ReadFile(out.Archive)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)

	require.NotNil(t, out.Upload)
	assert.Equal(t, "batch-test/processed-images.zip", out.Upload.Key)
	assert.Equal(t, data, exp.data)
}

func TestWriteOutputs_ArchiveSkippedUnlessAllDone(t *testing.T) {
	dir := t.TempDir()
	exp := &fakeExporter{}
	snap := snapshotOf(doneItem(t, "a.png"), failedItem("deck.pdf"))

	out, err := writeOutputs(t.Context(), snap, outputOptions{Dir: dir, Pages: true, Zip: true, Exporter: exp})
	require.NoError(t, err)

	assert.Len(t, out.Pages, 1)
	assert.True(t, out.ArchiveSkipped)
	assert.Empty(t, out.Archive)
	assert.Nil(t, out.Upload)
	assert.Nil(t, exp.data)
	assert.NoFileExists(t, filepath.Join(dir, archive.ArchiveFilename))
}

func TestWriteOutputs_NothingToWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	out, err := writeOutputs(t.Context(), snapshotOf(failedItem("a.png")), outputOptions{Dir: dir, Pages: true})
	require.NoError(t, err)
	assert.Empty(t, out.Pages)
	assert.NoDirExists(t, dir)
}

func TestWriteOutputs_ExportError(t *testing.T) {
	_, err := writeOutputs(t.Context(), snapshotOf(doneItem(t, "a.png")), outputOptions{
		Dir: t.TempDir(), Exporter: &fakeExporter{err: errors.New("denied")},
	})
	assert.ErrorContains(t, err, "denied")
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true

	snap := snapshotOf(doneItem(t, "a.png"), failedItem("deck.pdf"))
	var buf bytes.Buffer
	printSummary(&buf, snap, outputs{Dir: "out", Pages: []string{"out/cleaned-page-1.jpg"}, ArchiveSkipped: true}, 65*time.Second)

	text := buf.String()
	assert.Contains(t, text, "1 page of 2 done")
	assert.Contains(t, text, "1 failed")
	assert.Contains(t, text, "page 2 (deck.pdf p.2): API quota exceeded")
	assert.Contains(t, text, "Wrote 1 files to out")
	assert.Contains(t, text, "Archive skipped")
	assert.True(t, strings.HasSuffix(text, "Elapsed: 1:05\n"))
}

func TestResolveMode(t *testing.T) {
	m, err := resolveMode("convert", "")
	require.NoError(t, err)
	assert.Equal(t, editor.ModeNameConvertOrientation, m.Name())

	m, err = resolveMode("customize-text", "Swap the logo text")
	require.NoError(t, err)
	assert.Equal(t, "Swap the logo text", editor.ViewOf(m).Instruction)

	_, err = resolveMode("sharpen", "")
	assert.ErrorContains(t, err, "unknown mode")
}

func TestSettledOf_CountsOnlyTheRound(t *testing.T) {
	// Retry round of 2 pages in a 10-page batch: 8 done before the round started.
	assert.Zero(t, settledOf(batch.Summary{Total: 10, Done: 8, Pending: 1, Processing: 1}, 2))
	assert.Equal(t, 1, settledOf(batch.Summary{Total: 10, Done: 8, Failed: 1, Processing: 1}, 2))
	assert.Equal(t, 2, settledOf(batch.Summary{Total: 10, Done: 9, Failed: 1}, 2))

	assert.Equal(t, 3, settledOf(batch.Summary{Total: 4, Done: 2, Failed: 1, Processing: 1}, 4))
	assert.Zero(t, settledOf(batch.Summary{Total: 4, Pending: 4}, 4))
}
