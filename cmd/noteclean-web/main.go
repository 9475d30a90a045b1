package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/noteclean/internal/auth"
	"github.com/fpang/noteclean/internal/awsboot"
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
	configFlag string
	portFlag   int
	modelFlag  string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noteclean-web",
		Short: "HTTP API for batch page editing with Gemini",
		Long: `NoteClean Web starts a local server that accepts PDFs and images,
splits documents into pages and edits every page with the Gemini image model.
Progress, retries and downloads are driven through a JSON API.

Examples:
  noteclean-web
  noteclean-web --port 9090
  noteclean-web --config noteclean.yaml --model gemini-3-pro-image-preview`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
		RunE: runServe,
	}

	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to YAML config file")
	cmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	cmd.Flags().StringVarP(&modelFlag, "model", "m", editor.DefaultModelName, "Gemini image model to use")
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

func runServe(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	logging.Init()
	ctx := cmd.Context()

	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = portFlag
	}
	if cmd.Flags().Changed("model") {
		cfg.Gemini.Model = modelFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	clients := cli.InitClients(ctx, cfg)
	var exporter archiveExporter
	if clients.Exporter != nil {
		exporter = clients.Exporter
	}

	emitter := metrics.Disabled()
	if cfg.Metrics.EMF {
		emitter = metrics.NewEmitter(os.Stdout, cfg.Metrics.Namespace)
	}

	orch := batch.New(clients.Editor, batch.Options{
		MaxConcurrent: cfg.Batch.MaxConcurrent,
		Metrics:       emitter,
	})
	extractor := extract.New(
		filehandler.NewFitzRasterizer(cfg.Extract.PDFDPI, cfg.Extract.JPEGQuality),
		extract.Options{Normalize: filehandler.NormalizeOptions{
			MaxDimension: cfg.Extract.MaxDimension,
			JPEGQuality:  cfg.Extract.JPEGQuality,
		}},
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newServer(orch, extractor, exporter, cfg).routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		orch.Reset()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	awsboot.StartupLog("noteclean-web", initStart).
		Version(version).
		S3Bucket("exports", cfg.Storage.S3Bucket).
		SSMParam("geminiKey", os.Getenv(auth.EnvSSMParam)).
		Feature("apiKey", clients.HasKey).
		Feature("s3Export", exporter != nil).
		Feature("emf", emitter.Enabled()).
		Config("model", clients.Editor.Model()).
		Config("port", fmt.Sprint(cfg.Server.Port)).
		Config("maxConcurrent", fmt.Sprint(cfg.Batch.MaxConcurrent)).
		Config("archiveMethod", cfg.Archive.Method).
		Log()

	log.Info().Int("port", cfg.Server.Port).Msg("Starting web server")
	fmt.Printf("\n  NoteClean API: http://localhost:%d/api/batch\n\n", cfg.Server.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
