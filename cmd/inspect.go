package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/obs-pipelines/framesort/internal/classify"
	"github.com/obs-pipelines/framesort/internal/config"
	"github.com/obs-pipelines/framesort/internal/header"
	"github.com/obs-pipelines/framesort/internal/override"
)

func newInspectCmd() *cobra.Command {
	var headersPath string
	var overridesPath string
	var configPath string
	var sample int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Classify frames and print the table without grouping",
		Long: `Load header records, classify each frame, and print the resulting table.

Useful for checking heuristic results and debugging override patterns before
running the full sort.`,
		Example: `  # Inspect the first 20 frames of a headers file
  framesort inspect --headers night1.jsonl --sample 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			frames, metaErrs, err := header.NewReader(headersPath).LoadSample(sample)
			if err != nil {
				return fmt.Errorf("failed to load headers: %w", err)
			}

			overrides := &override.Table{}
			if overridesPath != "" {
				overrides, err = override.Load(overridesPath)
				if err != nil {
					return err
				}
			}

			classifier := classify.New(cfg.Instrument)
			for _, f := range frames {
				f.InferredType = classifier.Classify(f, overrides)
			}

			printFrameTable(frames)
			fmt.Printf("\nFrames: %d  Metadata errors: %d\n", len(frames), len(metaErrs))
			for _, me := range metaErrs {
				slog.Warn("Metadata error", "frame", me.FrameID, "reason", me.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&headersPath, "headers", "", "Path to headers dataset (.jsonl, .parquet, or directory of .json files)")
	cmd.Flags().StringVar(&overridesPath, "overrides", "", "Path to YAML override table")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to framesort.toml settings file")
	cmd.Flags().IntVar(&sample, "sample", -1, "Number of frames to inspect (-1 for all)")
	_ = cmd.MarkFlagRequired("headers")

	return cmd
}
