package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/noteclean/internal/archive"
	"github.com/fpang/noteclean/internal/batch"
	"github.com/fpang/noteclean/internal/cli"
	"github.com/fpang/noteclean/internal/config"
	"github.com/fpang/noteclean/internal/editor"
	"github.com/fpang/noteclean/internal/extract"
	"github.com/fpang/noteclean/internal/filehandler"
	"github.com/fpang/noteclean/internal/logging"
	"github.com/fpang/noteclean/internal/metrics"
)

const version = "0.1.0"

// CLI flags
var (
	configFlag        string
	modeFlag          string
	instructionFlag   string
	modelFlag         string
	outFlag           string
	zipFlag           bool
	noPagesFlag       bool
	retryFailedFlag   int
	pickFlag          bool
	s3BucketFlag      string
	archiveMethodFlag string
	maxDepthFlag      int
	limitFlag         int
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noteclean [files or directories...]",
		Short: "Edit PDF pages and images with the Gemini image model",
		Long: `NoteClean splits PDFs into pages and sends every page or image to the
Gemini image model with one editing instruction: remove branding, convert to
a vertical 9:16 layout, remove text, or apply a custom text change.

Edited pages are written as cleaned-page-N.jpg and, optionally, bundled into
processed-images.zip once every page succeeded.

Examples:
  noteclean slides.pdf
  noteclean scans/ --mode remove-text --zip
  noteclean deck.pdf --mode convert --retry-failed 2 --out ./vertical
  noteclean notes.pdf --mode customize-text --instruction 'Replace "Draft" with "Final"'
  noteclean --pick --zip --s3-bucket my-exports`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
		RunE: runMain,
	}

	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVar(&modeFlag, "mode", editor.ModeNameRemoveBranding, "Editing mode: remove-branding, convert, remove-text, customize-text")
	cmd.Flags().StringVarP(&instructionFlag, "instruction", "i", "", "Text change for customize-text mode (prompted when omitted)")
	cmd.Flags().StringVarP(&modelFlag, "model", "m", editor.DefaultModelName, "Gemini image model to use")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "noteclean-output", "Output directory")
	cmd.Flags().BoolVar(&zipFlag, "zip", false, "Also write "+archive.ArchiveFilename+" when every page is done")
	cmd.Flags().BoolVar(&noPagesFlag, "no-pages", false, "Skip writing individual cleaned-page-N.jpg files")
	cmd.Flags().IntVar(&retryFailedFlag, "retry-failed", 0, "Retry rounds for failed pages after the first pass")
	cmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose input files with a native file dialog")
	cmd.Flags().StringVar(&s3BucketFlag, "s3-bucket", "", "Upload the archive to this S3 bucket and print a download link")
	cmd.Flags().StringVar(&archiveMethodFlag, "archive-method", "", "ZIP compression: deflate, zstd or store")
	cmd.Flags().IntVar(&maxDepthFlag, "max-depth", 0, "Maximum directory recursion depth (0 = unlimited)")
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum input files taken from directories (0 = unlimited)")
	return cmd
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	start := time.Now()
	logging.Init()
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	mode, err := resolveMode(modeFlag, instructionFlag)
	if err != nil {
		return err
	}

	paths := args
	if pickFlag {
		picked, err := pickFiles()
		if err != nil {
			return err
		}
		paths = append(paths, picked...)
	}
	if len(paths) == 0 {
		return errors.New("no input files: pass files or directories, or use --pick")
	}

	files, err := filehandler.CollectInputs(paths, filehandler.ScanOptions{MaxDepth: maxDepthFlag, Limit: limitFlag})
	if err != nil {
		return err
	}
	sources, err := extract.LoadFiles(files)
	if err != nil {
		return err
	}

	extractor := extract.New(
		filehandler.NewFitzRasterizer(cfg.Extract.PDFDPI, cfg.Extract.JPEGQuality),
		extract.Options{Normalize: filehandler.NormalizeOptions{
			MaxDimension: cfg.Extract.MaxDimension,
			JPEGQuality:  cfg.Extract.JPEGQuality,
		}},
	)
	result, err := extractor.Extract(ctx, sources)
	if err != nil {
		return fmt.Errorf("failed to process the files: %w", err)
	}
	for _, name := range result.Skipped {
		warnf("Skipped unsupported file: %s", name)
	}

	clients := cli.InitClients(ctx, cfg)
	emitter := metrics.Disabled()
	if cfg.Metrics.EMF {
		emitter = metrics.NewEmitter(os.Stderr, cfg.Metrics.Namespace)
	}

	orch := batch.New(clients.Editor, batch.Options{MaxConcurrent: cfg.Batch.MaxConcurrent, Metrics: emitter})
	orch.SetMode(mode)
	defer orch.Reset()

	printHeader(len(result.Items), mode, clients.Editor.Model())

	if _, err := orch.StartBatch(result.Items); err != nil {
		return err
	}
	if err := waitWithProgress(ctx, orch, "Editing", len(result.Items)); err != nil {
		return err
	}
	for round := 1; round <= retryFailedFlag; round++ {
		n := orch.RetryAllFailed()
		if n == 0 {
			break
		}
		infof("Retry round %d: %s", round, cli.Pages(n))
		if err := waitWithProgress(ctx, orch, fmt.Sprintf("Retry %d", round), n); err != nil {
			return err
		}
	}

	snap := orch.Snapshot()
	out, err := writeOutputs(ctx, snap, outputOptions{
		Dir:      outFlag,
		Pages:    !noPagesFlag,
		Zip:      zipFlag,
		Archive:  archive.Options{Method: cfg.Archive.Method, Folder: cfg.Archive.Folder},
		Quality:  cfg.Extract.JPEGQuality,
		Exporter: exporterOrNil(clients),
	})
	if err != nil {
		return err
	}

	printSummary(os.Stdout, snap, out, time.Since(start))
	log.Debug().Str("batch_id", snap.BatchID).Dur("elapsed", time.Since(start)).Msg("Run complete")

	if snap.AnyFailed {
		return fmt.Errorf("%d of %s failed", snap.Summary.Failed, cli.Pages(snap.Summary.Total))
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("model") {
		cfg.Gemini.Model = modelFlag
	}
	if s3BucketFlag != "" {
		cfg.Storage.S3Bucket = s3BucketFlag
	}
	if archiveMethodFlag != "" {
		cfg.Archive.Method = archiveMethodFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveMode parses the mode flags, prompting for the customize-text
// instruction when it was not given.
func resolveMode(name, instruction string) (editor.Mode, error) {
	mode, err := editor.ParseMode(name, instruction)
	if !errors.Is(err, editor.ErrMissingInstruction) {
		return mode, err
	}
	instruction = cli.PromptForInstruction(os.Stdin, os.Stderr)
	return editor.ParseMode(name, instruction)
}

func pickFiles() ([]string, error) {
	selected, err := zenity.SelectFileMultiple(
		zenity.Title("Select PDFs or images"),
		zenity.FileFilters{
			{
				Name:     "Documents and images",
				Patterns: []string{"*.pdf", "*.jpg", "*.jpeg", "*.png", "*.webp", "*.gif"},
			},
		},
	)
	if errors.Is(err, zenity.ErrCanceled) {
		log.Info().Msg("File picker canceled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file picker failed: %w", err)
	}
	log.Info().Int("count", len(selected)).Msg("Files picked via native dialog")
	return selected, nil
}

func exporterOrNil(c cli.Clients) archiveExporter {
	if c.Exporter == nil {
		return nil
	}
	return c.Exporter
}
