package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rbg-research/SMM4H-2025/internal/dataset"
	"github.com/rbg-research/SMM4H-2025/internal/report"
	"github.com/rbg-research/SMM4H-2025/internal/results"
	"github.com/rbg-research/SMM4H-2025/internal/service"
)

var (
	inputPath      string
	dataDir        string
	dataSplit      string
	outputDir      string
	workers        int
	vocabularyFile string
)

// classifyCmd runs the batch pipeline over one dataset split
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify every note of a dataset split",
	Long: `Loads <data_dir>/<split>.csv (or --input), classifies each note, writes
<output_dir>/<split>/output.csv and regenerates subtask_1.json,
subtask_2a.json and subtask_2b.json in <output_dir> from that file.

Notes whose completion fails are reported with every label set to "no".`,
	Args: cobra.NoArgs,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&inputPath, "input", "", "input CSV (overrides --data-dir/--split)")
	classifyCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding <split>.csv")
	classifyCmd.Flags().StringVar(&dataSplit, "split", "", "dataset split: train, validation or test")
	classifyCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for the combined CSV and JSON views")
	classifyCmd.Flags().IntVar(&workers, "workers", 0, "concurrent completion calls (default from config)")
	classifyCmd.Flags().StringVar(&vocabularyFile, "vocabulary", "", "YAML medication vocabulary file")
}

func runClassify(cmd *cobra.Command, args []string) error {
	overrides := map[string]interface{}{
		"pipeline.input_path":      inputPath,
		"pipeline.data_dir":        dataDir,
		"pipeline.data_split":      dataSplit,
		"pipeline.output_dir":      outputDir,
		"pipeline.vocabulary_file": vocabularyFile,
	}
	if workers > 0 {
		overrides["pipeline.workers"] = workers
	}

	manager, err := loadConfig(overrides)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, manager)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := manager.GetConfig()
	path := dataset.ResolvePath(cfg.Pipeline)

	notes, err := dataset.LoadNotes(path)
	if err != nil {
		return err
	}
	a.Logger.WithFields(logrus.Fields{
		"path":  path,
		"notes": len(notes),
	}).Info("Dataset loaded")

	run := results.NewRun(cfg.Pipeline.DataSplit, path, cfg.Completion.Model)
	start := time.Now()

	pipeline := service.NewPipeline(a.Logger, a.Classifier, cfg.Pipeline.Workers)
	out, err := pipeline.Run(ctx, notes)
	if err != nil {
		return fmt.Errorf("classification interrupted: %w", err)
	}
	run.Complete(out)

	emitter := report.NewEmitter(a.Logger, cfg.Pipeline.OutputDir)
	csvPath, err := emitter.WriteCombinedFile(cfg.Pipeline.DataSplit, out)
	if err != nil {
		return err
	}
	if _, err := emitter.GenerateFromCombined(csvPath); err != nil {
		return err
	}

	if a.Store != nil {
		if err := a.Store.SaveRun(ctx, run, out); err != nil {
			return err
		}
		a.Logger.WithField("run_id", run.ID).Info("Run stored")
	}

	a.Logger.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"notes":    run.NoteCount,
		"failed":   run.FailedCount,
		"duration": time.Since(start),
	}).Info("Classification run completed")

	fmt.Fprintf(cmd.OutOrStdout(), "Classified %d notes (%d failed). Results in %s\n",
		run.NoteCount, run.FailedCount, cfg.Pipeline.OutputDir)
	return nil
}
