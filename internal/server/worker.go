package server

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/phystat/chifit/internal/data"
	"github.com/phystat/chifit/internal/fit"
	"github.com/phystat/chifit/internal/model"
	"github.com/phystat/chifit/internal/opt"
	"github.com/phystat/chifit/internal/store"
)

// runJob executes a fit job in the background.
// If recordStore is not nil, the final record and the per-iteration trace
// are persisted under its base directory.
func runJob(ctx context.Context, jm *JobManager, recordStore *store.FSStore, jobID string) error {
	// Get the job
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	// Update state to running
	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "model", job.Config.Model, "engine", job.Config.Engine)

	// Load the dataset: explicit CSV path, or the built-in decay sample
	var ds *data.Dataset
	if job.Config.DataPath != "" {
		ds, err = data.LoadCSV(job.Config.DataPath)
		if err != nil {
			markJobFailed(jm, jobID, fmt.Errorf("failed to load dataset: %w", err))
			return err
		}
	} else {
		ds = data.DecaySample()
	}

	spec, err := model.ByName(job.Config.Model)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	slog.Info("Loaded dataset", "job_id", jobID, "points", ds.Len(), "model", spec.Name)

	// Open the iteration trace next to the record
	var trace *store.TraceWriter
	if recordStore != nil {
		trace, err = store.NewTraceWriter(recordStore.BaseDir(), jobID)
		if err != nil {
			slog.Warn("Failed to open trace writer", "job_id", jobID, "error", err)
			trace = nil
		} else {
			defer trace.Close()
		}
	}

	cfg := opt.Config{
		InitialParams: job.Config.InitialParams,
		StepSizes:     job.Config.StepSizes,
		Tolerance:     job.Config.Tolerance,
		MaxIterations: job.Config.MaxIterations,
		MaxCalls:      job.Config.MaxCalls,
		Strategy:      job.Config.Strategy,
	}
	cfg.Progress = func(u opt.ProgressUpdate) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Iterations = u.Iteration
			j.Chi2 = store.JSONFloat(u.Objective)
			j.FuncCalls = u.FuncCalls
			j.Params = u.Params
		})

		jm.broadcaster.Broadcast(ProgressEvent{
			JobID:     jobID,
			State:     StateRunning,
			Iteration: u.Iteration,
			Chi2:      store.JSONFloat(u.Objective),
			FuncCalls: u.FuncCalls,
			Timestamp: time.Now(),
		})

		if trace != nil {
			if err := trace.Write(store.TraceEntry{
				Iteration: u.Iteration,
				Chi2:      u.Objective,
				FuncCalls: u.FuncCalls,
				Params:    u.Params,
				Timestamp: time.Now(),
			}); err != nil {
				slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
			}
		}
	}

	// Check for cancellation before starting the expensive part
	select {
	case <-ctx.Done():
		markJobFailed(jm, jobID, ctx.Err())
		return ctx.Err()
	default:
	}

	start := time.Now()
	result, err := fit.Run(fit.Problem{
		Dataset: ds,
		Model:   spec,
		Engine:  job.Config.Engine,
		Config:  cfg,
	})
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	elapsed := time.Since(start)

	// Update job with results. A run that terminated without usable
	// uncertainties is still completed, not failed; Status carries the
	// diagnosis.
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Status = string(result.Status)
		j.Params = result.Params
		j.StdErrors = store.JSONFloats(result.StdErrors)
		j.Chi2 = store.JSONFloat(result.Objective)
		j.Iterations = result.Iterations
		j.FuncCalls = result.FuncCalls
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"success", result.Success,
		"status", result.Status,
		"chi2", result.Objective,
		"iterations", result.Iterations,
		"calls", result.FuncCalls,
	)

	// Persist the record
	if recordStore != nil {
		record := store.NewFitRecord(jobID, result.Success, string(result.Status),
			result.Params, result.StdErrors, result.Objective,
			result.Iterations, result.FuncCalls, job.Config)
		if err := recordStore.SaveRecord(jobID, record); err != nil {
			slog.Error("Failed to save fit record", "job_id", jobID, "error", err)
		}
	}
	if trace != nil {
		if err := trace.Flush(); err != nil {
			slog.Warn("Failed to flush trace", "job_id", jobID, "error", err)
		}
	}

	// Broadcast final completion event
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateCompleted,
		Iteration: result.Iterations,
		Chi2:      store.JSONFloat(result.Objective),
		FuncCalls: result.FuncCalls,
		Timestamp: time.Now(),
	})

	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateFailed,
		Chi2:      store.JSONFloat(math.NaN()),
		Timestamp: time.Now(),
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}
