package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

func newSortCmd() *cobra.Command {
	var headersPath string
	var overridesPath string
	var configPath string
	var outputPath string
	var reportPath string

	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Classify and group frames, then write the reduction manifest",
		Long: `Run the full sorting pipeline: classify every frame, partition the set
into instrument setups, associate calibration frames to each science and
standard exposure, and write the manifest plus the completeness report.

The manifest is written even when calibrations are incomplete, so the
deficiencies can be inspected and fixed through the override file. Use
"framesort calcheck" as the gate before launching reduction.`,
		Example: `  # Sort a night's headers and write manifest.yaml
  framesort sort --headers night1.jsonl

  # Apply overrides and a 2h calibration window from framesort.toml
  framesort sort --headers night1.parquet --overrides overrides.yaml --config framesort.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runPipeline(headersPath, overridesPath, configPath)
			if err != nil {
				return err
			}

			if err := result.Manifest.Write(outputPath); err != nil {
				return err
			}
			rp := reportPath
			if rp == "" {
				rp = strings.TrimSuffix(outputPath, ".yaml") + ".report.yaml"
			}
			if err := result.Report.Write(rp); err != nil {
				return err
			}

			printFrameTable(result.Frames)
			fmt.Printf("\nManifest written to: %s\n", outputPath)
			fmt.Printf("Report written to:   %s\n", rp)

			if !result.Report.Complete {
				slog.Warn("Calibrations incomplete", "deficiencies", result.Report.Deficiencies())
				fmt.Printf("\nCalibrations are incomplete. Run:\n")
				fmt.Printf("  framesort calcheck --headers %s\n", headersPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&headersPath, "headers", "", "Path to headers dataset (.jsonl, .parquet, or directory of .json files)")
	cmd.Flags().StringVar(&overridesPath, "overrides", "", "Path to YAML override table")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to framesort.toml settings file")
	cmd.Flags().StringVar(&outputPath, "output", "manifest.yaml", "Path to output manifest")
	cmd.Flags().StringVar(&reportPath, "report", "", "Path to output report (default: <output>.report.yaml)")
	_ = cmd.MarkFlagRequired("headers")

	return cmd
}
