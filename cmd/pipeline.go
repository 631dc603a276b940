package cmd

import (
	"fmt"
	"log/slog"

	"github.com/obs-pipelines/framesort/internal/config"
	"github.com/obs-pipelines/framesort/internal/engine"
	"github.com/obs-pipelines/framesort/internal/frame"
	"github.com/obs-pipelines/framesort/internal/header"
	"github.com/obs-pipelines/framesort/internal/override"
)

// runPipeline loads headers, overrides, and settings, then runs one engine
// pass. Shared by the sort and calcheck commands.
func runPipeline(headersPath, overridesPath, configPath string) (*engine.Result, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	slog.Info("Loading headers", "path", headersPath)
	frames, metaErrs, err := header.NewReader(headersPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load headers: %w", err)
	}
	slog.Info("Headers loaded", "frames", len(frames), "metadata_errors", len(metaErrs))

	overrides := &override.Table{}
	if overridesPath != "" {
		overrides, err = override.Load(overridesPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Overrides loaded", "path", overridesPath,
			"frames", len(overrides.Frames), "patterns", len(overrides.Patterns), "pins", len(overrides.Pins))
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	return eng.Run(frames, metaErrs, overrides)
}

// printFrameTable dumps the classified frame table, one line per frame.
func printFrameTable(frames []*frame.Frame) {
	fmt.Println("\n========================================")
	fmt.Println("Sorted Frames")
	fmt.Println("========================================")
	for _, f := range frames {
		setupID := f.SetupID
		if setupID == "" {
			setupID = "-"
		}
		exp := "-"
		if f.ExposureTime >= 0 {
			exp = fmt.Sprintf("%.1fs", f.ExposureTime)
		}
		fmt.Printf("  %-10s %-13s %8s  %s\n", setupID, f.InferredType, exp, f.ID)
	}
	fmt.Println("========================================")
}
