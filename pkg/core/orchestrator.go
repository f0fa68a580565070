package core

import (
	"context"
	"path/filepath"
	"sync"

	"epub2pdf/pkg/config"
	"epub2pdf/pkg/imagep"
	"epub2pdf/pkg/logger"
	"epub2pdf/pkg/packager"
	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"
)

// ProgressFunc receives a monotonic progress update after every job
// completes (success, skip or failure).
type ProgressFunc func(completed, total int, result types.ConversionResult)

// Orchestrator iterates over the resolved input jobs, applies the
// skip/force/dry-run policy, runs the per-file pipeline and aggregates
// the batch summary. One job's failure never aborts the batch.
type Orchestrator struct {
	config   *config.Config
	logger   *logger.Logger
	pipeline *Pipeline
	packager *packager.Packager

	// Progress, when set, is invoked after each job under a lock so
	// updates are serialized even in parallel mode.
	Progress ProgressFunc

	mu        sync.Mutex
	completed int
}

// NewOrchestrator creates the batch orchestrator with the default
// pipeline wiring.
func NewOrchestrator(cfg *config.Config, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		config:   cfg,
		logger:   log,
		pipeline: NewPipeline(cfg, log, imagep.NewProcessor(cfg, log)),
		packager: packager.NewPackager(log),
	}
}

// RunBatch converts every job and returns exactly one result per input,
// in input order.
func (o *Orchestrator) RunBatch(ctx context.Context, jobs []types.ConversionJob) types.BatchSummary {
	summary := types.BatchSummary{Results: make([]types.ConversionResult, len(jobs))}
	o.completed = 0

	if o.config.DryRun {
		for i, job := range jobs {
			summary.Results[i] = o.planJob(job)
			o.emitProgress(len(jobs), summary.Results[i])
		}
		summary.Count()
		return summary
	}

	if o.config.Parallel && o.config.MaxWorkers > 1 {
		o.runParallel(ctx, jobs, summary.Results)
	} else {
		for i, job := range jobs {
			summary.Results[i] = o.runJob(ctx, job)
			o.emitProgress(len(jobs), summary.Results[i])
		}
	}

	summary.Count()
	o.postBatch(summary)
	return summary
}

// runParallel distributes jobs over a bounded worker pool. Workers
// write into disjoint result slots, so the only shared mutable state is
// the progress counter.
func (o *Orchestrator) runParallel(ctx context.Context, jobs []types.ConversionJob, results []types.ConversionResult) {
	workers := o.config.MaxWorkers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	o.logger.Progress("⚙️", "Running %d jobs on %d workers", len(jobs), workers)

	jobCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				results[idx] = o.runJob(ctx, jobs[idx])
				o.emitProgress(len(jobs), results[idx])
			}
		}()
	}
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()
}

// planJob reports the planned mapping of one job without any I/O.
// Evaluated before the skip rule, so pre-existing outputs are reported
// too, distinctly labeled.
func (o *Orchestrator) planJob(job types.ConversionJob) types.ConversionResult {
	reason := "dry-run"
	label := ""
	if utils.FileExists(job.OutputPath) {
		reason = "dry-run (output exists, would skip)"
		label = " [exists]"
	}
	o.logger.ProgressAlways("🔍", "%s → %s%s", job.Input, job.OutputPath, label)
	return types.ConversionResult{Job: job, Status: types.StatusSkipped, Reason: reason}
}

// runJob applies the skip policy and runs the pipeline for one job
func (o *Orchestrator) runJob(ctx context.Context, job types.ConversionJob) types.ConversionResult {
	if !o.config.Force && utils.FileExists(job.OutputPath) {
		o.logger.Progress("⏭️", "Skipping %s (output exists)", filepath.Base(job.Input))
		return types.ConversionResult{Job: job, Status: types.StatusSkipped, Reason: utils.ReasonAlreadyExists}
	}

	o.logger.ProgressAlways("🚀", "Converting %s", filepath.Base(job.Input))
	if err := o.pipeline.Run(ctx, job); err != nil {
		result := types.ConversionResult{Job: job, Status: types.StatusFailed, Err: err, Reason: err.Error()}
		if appErr, ok := utils.AsAppError(err); ok {
			result.Stage = appErr.Stage()
			if appErr.Reason != "" {
				result.Reason = appErr.Reason
			}
		}
		o.logger.Error("Conversion failed for %s: %v", job.Input, err)
		return result
	}

	o.logger.ProgressAlways("✅", "Created %s", job.OutputPath)
	return types.ConversionResult{Job: job, Status: types.StatusSucceeded}
}

// emitProgress advances the shared counter and publishes the update
func (o *Orchestrator) emitProgress(total int, result types.ConversionResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
	if o.Progress != nil {
		o.Progress(o.completed, total, result)
	}
}

// postBatch runs the best-effort conveniences after all jobs finished
func (o *Orchestrator) postBatch(summary types.BatchSummary) {
	var produced []string
	for _, r := range summary.Results {
		if r.Status == types.StatusSucceeded {
			produced = append(produced, r.Job.OutputPath)
		}
	}

	if o.config.ZipOutput && len(produced) > 0 {
		archivePath := filepath.Join(filepath.Dir(produced[0]), "converted_pdfs.zip")
		if o.config.OutputDir != "" {
			archivePath = filepath.Join(o.config.OutputDir, "converted_pdfs.zip")
		}
		if err := o.packager.ZipOutputs(produced, archivePath); err != nil {
			o.logger.Warn("Failed to zip outputs: %v", err)
		}
	}

	if o.config.OpenOutput && len(produced) > 0 {
		dir := o.config.OutputDir
		if dir == "" {
			dir = filepath.Dir(produced[0])
		}
		if err := o.packager.OpenDirectory(dir); err != nil {
			o.logger.Warn("Failed to open output directory: %v", err)
		}
	}
}
