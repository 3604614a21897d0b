package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phystat/chifit/internal/model"
	"github.com/phystat/chifit/internal/plot"
	"github.com/phystat/chifit/internal/store"
)

var (
	plotDataDir string
	plotOutPath string
)

var plotCmd = &cobra.Command{
	Use:   "plot <job-id>",
	Short: "Render a stored fit record as a PNG",
	Long: `Loads a fit record from the local data directory and renders the
dataset with the fitted curve overlaid.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlot,
}

func init() {
	plotCmd.Flags().StringVar(&plotDataDir, "data-dir", "./data", "Base directory for record storage")
	plotCmd.Flags().StringVar(&plotOutPath, "out", "fit.png", "Output PNG path")
	rootCmd.AddCommand(plotCmd)
}

func runPlot(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	recordStore, err := store.NewFSStore(plotDataDir)
	if err != nil {
		return fmt.Errorf("failed to create record store: %w", err)
	}

	record, err := recordStore.LoadRecord(jobID)
	if err != nil {
		return fmt.Errorf("failed to load record: %w", err)
	}

	ds, err := loadDataset(record.Config.DataPath)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	spec, err := model.ByName(record.Config.Model)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s fit (%s)", spec.Name, record.Status)
	if err := plot.SaveFitPlot(plotOutPath, title, ds, spec.Func, record.Params); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}

	fmt.Printf("Wrote %s\n", plotOutPath)
	return nil
}
