package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/phystat/chifit/internal/data"
	"github.com/phystat/chifit/internal/fit"
	"github.com/phystat/chifit/internal/model"
	"github.com/phystat/chifit/internal/opt"
	"github.com/phystat/chifit/internal/plot"
	"github.com/phystat/chifit/internal/report"
)

var (
	dataPath   string
	modelName  string
	engineName string
	initParams []float64
	stepSizes  []float64
	tolerance  float64
	maxIter    int
	maxCalls   int
	strategy   int
	plotPath   string
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Run a single fit",
	Long: `Fits a model to a dataset and prints the fitted parameters with
their standard errors. Without --data, the built-in radioactive decay
sample is used.`,
	RunE: runFit,
}

func init() {
	fitCmd.Flags().StringVar(&dataPath, "data", "", "Dataset CSV path (covariate,value,errMinus,errPlus); empty uses the decay sample")
	fitCmd.Flags().StringVar(&modelName, "model", "expdecay", "Model name: "+strings.Join(model.Names(), ", "))
	fitCmd.Flags().StringVar(&engineName, "engine", fit.EngineNewton, "Minimization engine: newton, lm")
	fitCmd.Flags().Float64SliceVar(&initParams, "init", []float64{0.2, 900}, "Initial parameter values")
	fitCmd.Flags().Float64SliceVar(&stepSizes, "steps", []float64{0.01, 10}, "Per-parameter step sizes")
	fitCmd.Flags().Float64Var(&tolerance, "tolerance", 1e-6, "Convergence tolerance")
	fitCmd.Flags().IntVar(&maxIter, "max-iter", 10000, "Iteration budget")
	fitCmd.Flags().IntVar(&maxCalls, "max-calls", 10000, "Function-evaluation budget (0 = unlimited)")
	fitCmd.Flags().IntVar(&strategy, "strategy", 1, "Accuracy strategy: 0 (cheap), 1 (default), 2 (thorough)")
	fitCmd.Flags().StringVar(&plotPath, "plot", "", "Write a PNG of the fitted curve to this path")

	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset(dataPath)
	if err != nil {
		return err
	}

	spec, err := model.ByName(modelName)
	if err != nil {
		return err
	}

	slog.Info("Starting fit", "model", spec.Name, "engine", engineName, "points", ds.Len())

	start := time.Now()
	result, err := fit.Run(fit.Problem{
		Dataset: ds,
		Model:   spec,
		Engine:  engineName,
		Config: opt.Config{
			InitialParams: initParams,
			StepSizes:     stepSizes,
			Tolerance:     tolerance,
			MaxIterations: maxIter,
			MaxCalls:      maxCalls,
			Strategy:      strategy,
		},
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	slog.Info("Fit finished", "elapsed", elapsed, "status", result.Status, "chi2", result.Objective)

	if err := report.Write(os.Stdout, result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if plotPath != "" {
		title := fmt.Sprintf("%s fit", spec.Name)
		if err := plot.SaveFitPlot(plotPath, title, ds, spec.Func, result.Params); err != nil {
			return fmt.Errorf("failed to save plot: %w", err)
		}
		fmt.Printf("Wrote %s\n", plotPath)
	}

	if !result.Success {
		return fmt.Errorf("fit did not succeed: %s", result.Status)
	}
	return nil
}

// loadDataset loads the CSV at path, or the built-in decay sample when
// path is empty.
func loadDataset(path string) (*data.Dataset, error) {
	if path == "" {
		return data.DecaySample(), nil
	}
	return data.LoadCSV(path)
}
