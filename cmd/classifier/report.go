package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rbg-research/SMM4H-2025/internal/app"
	"github.com/rbg-research/SMM4H-2025/internal/report"
)

var (
	reportCSV string
	reportOut string
)

// reportCmd regenerates the JSON views from an existing combined CSV
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Regenerate the JSON views from a combined CSV",
	Long: `Reads a combined output.csv and writes subtask_1.json, subtask_2a.json and
subtask_2b.json to --out. Missing label cells read as "no" and missing
evidence cells as an empty list.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportCSV, "csv", "", "combined CSV to read")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "directory for the JSON views (default: pipeline.output_dir)")
	_ = reportCmd.MarkFlagRequired("csv")
}

func runReport(cmd *cobra.Command, args []string) error {
	manager, err := loadConfig(map[string]interface{}{"pipeline.output_dir": reportOut})
	if err != nil {
		return err
	}

	logger, closer, err := app.NewLogger(manager)
	if err != nil {
		return err
	}
	defer closer.Close()

	out := manager.GetPipelineConfig().OutputDir
	views, err := report.NewEmitter(logger, out).GenerateFromCombined(reportCSV)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote views for %d notes to %s\n", views.Summary.Len(), out)
	return nil
}
