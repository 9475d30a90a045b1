package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/fpang/noteclean/internal/batch"
)

const pollInterval = 250 * time.Millisecond

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// waitWithProgress polls the orchestrator until nothing is processing,
// rendering how many of the launched pages have settled.
func waitWithProgress(ctx context.Context, orch *batch.Orchestrator, label string, launched int) error {
	bar := newProgressBar(launched, label)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		snap := orch.Snapshot()
		_ = bar.Set(settledOf(snap.Summary, launched))
		if !snap.IsProcessing {
			_ = bar.Finish()
			return nil
		}
		select {
		case <-ctx.Done():
			_ = bar.Clear()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// settledOf counts launched pages that are no longer pending or processing.
// Pages outside the round are already settled and are not counted.
func settledOf(sum batch.Summary, launched int) int {
	n := launched - sum.Pending - sum.Processing
	return max(0, min(n, launched))
}
