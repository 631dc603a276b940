package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obs-pipelines/framesort/internal/calcheck"
)

func newCalcheckCmd() *cobra.Command {
	var headersPath string
	var overridesPath string
	var configPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "calcheck",
		Short: "Verify calibration completeness before reduction",
		Long: `Run the sorting pipeline and print the calibration completeness report.

This is the gate in front of the reduction stage: when any setup is missing
required calibration frames, calcheck exits nonzero so scripted reductions
stop instead of running on an incomplete calibration set. Pass --force to
acknowledge the deficiencies and exit zero anyway.`,
		Example: `  # Gate a reduction script on complete calibrations
  framesort calcheck --headers night1.jsonl --overrides overrides.yaml

  # Proceed despite missing calibrations
  framesort calcheck --headers night1.jsonl --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runPipeline(headersPath, overridesPath, configPath)
			if err != nil {
				return err
			}

			printReport(result.Report)

			if !result.Report.Complete && !force {
				return fmt.Errorf("calibration check failed: %d unsatisfied roles (use --force to proceed anyway)",
					result.Report.Deficiencies())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&headersPath, "headers", "", "Path to headers dataset (.jsonl, .parquet, or directory of .json files)")
	cmd.Flags().StringVar(&overridesPath, "overrides", "", "Path to YAML override table")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to framesort.toml settings file")
	cmd.Flags().BoolVar(&force, "force", false, "Exit zero even when calibrations are incomplete")
	_ = cmd.MarkFlagRequired("headers")

	return cmd
}

func printReport(r *calcheck.Report) {
	fmt.Println("\n========================================")
	fmt.Println("Calibration Check")
	fmt.Println("========================================")
	for _, sr := range r.Setups {
		status := "complete"
		switch {
		case sr.Indeterminate:
			status = "indeterminate"
		case sr.CalibrationOnly:
			status = "calibration-only"
		case !sr.Complete:
			status = "INCOMPLETE"
		}
		fmt.Printf("Setup %-13s %s\n", sr.Setup, status)
		if sr.Key != "" {
			fmt.Printf("  key: %s\n", sr.Key)
		}
		for _, fr := range sr.Frames {
			if len(fr.Missing) == 0 {
				fmt.Printf("  %-10s %s: ok\n", fr.Type, fr.Frame)
				continue
			}
			fmt.Printf("  %-10s %s: missing %v\n", fr.Type, fr.Frame, fr.Missing)
		}
	}
	if len(r.Unknown) > 0 {
		fmt.Println("\nUnknown-type frames (assign a type in the override file):")
		for _, id := range r.Unknown {
			fmt.Printf("  %s\n", id)
		}
	}
	if len(r.MetadataErrors) > 0 {
		fmt.Println("\nMetadata errors:")
		for _, msg := range r.MetadataErrors {
			fmt.Printf("  %s\n", msg)
		}
	}
	fmt.Println("========================================")
	if r.Complete {
		fmt.Println("All setups complete.")
	}
}
