package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "framesort",
		Short: "Spectrograph frame sorting and calibration checking",
		Long: `Framesort classifies raw spectrograph exposures, groups them into
instrument setups, matches calibration frames to every science exposure, and
verifies that each setup's calibrations are complete before reduction runs.

It consumes normalized header records (JSONL, Parquet, or a directory of JSON
header files) plus an optional YAML override table, and emits a deterministic
manifest for the reduction stage.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	cmd.AddCommand(newSortCmd())
	cmd.AddCommand(newCalcheckCmd())
	cmd.AddCommand(newInspectCmd())

	return cmd
}
