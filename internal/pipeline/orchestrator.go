// Package pipeline runs one ingest job end to end: fetch the records, infer a
// schema from a sample, replace the destination table and verify it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/database"
	"github.com/dbsmedya/goingest/internal/history"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
	"github.com/dbsmedya/goingest/internal/schema"
	"github.com/dbsmedya/goingest/internal/sink"
	"github.com/dbsmedya/goingest/internal/source"
	"github.com/dbsmedya/goingest/internal/types"
	"github.com/dbsmedya/goingest/internal/verifier"
)

// ErrNoRecords is returned by InferOnly when the source returned nothing to
// infer from.
var ErrNoRecords = errors.New("source returned no records")

// RunResult contains statistics and status of one job run.
type RunResult struct {
	RunID        string
	JobName      string
	Table        string
	Source       string
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	Fetch        *types.FetchStats
	Samples      int
	Schema       *schema.StructNode
	Write        *sink.WriteStats
	Verification *verifier.VerifyResult
	Empty        bool // the source returned no records and nothing was written
	Success      bool
}

// Orchestrator coordinates fetch, inference, write and verification for a job.
type Orchestrator struct {
	config          *config.Config
	jobName         string
	jobConfig       *config.JobConfig
	dbManager       *database.Manager
	source          source.Source
	logger          *logger.Logger
	inferenceCfg    config.InferenceConfig    // Effective inference config (job-specific or global)
	processingCfg   config.ProcessingConfig   // Effective processing config (job-specific or global)
	verificationCfg config.VerificationConfig // Effective verification config (job-specific or global)
}

// NewOrchestrator creates an orchestrator for jobName. dbManager may be nil
// when the orchestrator is only used for InferOnly.
func NewOrchestrator(cfg *config.Config, jobName string, jobCfg *config.JobConfig, dbManager *database.Manager, log *logger.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if jobCfg == nil {
		return nil, fmt.Errorf("job config is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	src, err := source.New(cfg.Source, *jobCfg, log.WithJob(jobName))
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	return &Orchestrator{
		config:          cfg,
		jobName:         jobName,
		jobConfig:       jobCfg,
		dbManager:       dbManager,
		source:          src,
		logger:          log,
		inferenceCfg:    jobCfg.GetJobInference(cfg.Inference),
		processingCfg:   jobCfg.GetJobProcessing(cfg.Processing),
		verificationCfg: jobCfg.GetJobVerification(cfg.Verification),
	}, nil
}

// WithSource replaces the configured source.
func (o *Orchestrator) WithSource(src source.Source) *Orchestrator {
	o.source = src
	return o
}

// SetProcessing overrides the effective processing config (CLI flags).
func (o *Orchestrator) SetProcessing(p config.ProcessingConfig) {
	o.processingCfg = p
}

// SetInference overrides the effective inference config (CLI flags).
func (o *Orchestrator) SetInference(i config.InferenceConfig) {
	o.inferenceCfg = i
}

// InferenceOptions converts an inference config into schema options.
func InferenceOptions(cfg config.InferenceConfig) (schema.Options, error) {
	propagation, err := schema.ParsePropagation(cfg.Propagation)
	if err != nil {
		return schema.Options{}, err
	}
	return schema.Options{
		MaxLevel:        cfg.MaxLevel,
		StringifyFields: cfg.StringifyFields,
		SkipFields:      cfg.SkipFields,
		Propagation:     propagation,
	}, nil
}

// Sample returns the first n records as inference samples. n below one
// means one.
func Sample(records []record.Mapping, n int) []any {
	if n < 1 {
		n = 1
	}
	if n > len(records) {
		n = len(records)
	}
	samples := make([]any, n)
	for i := 0; i < n; i++ {
		samples[i] = records[i]
	}
	return samples
}

// Run executes the job: fetch, infer, write, verify. When run history is
// enabled every run is recorded on the destination, failed ones included.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}
	if o.dbManager == nil || o.dbManager.Destination == nil {
		return nil, fmt.Errorf("destination database not connected")
	}

	result, log := o.newResult()

	recorder, err := o.startHistory(ctx, result, log)
	if err != nil {
		return nil, err
	}

	records, err := o.fetchAndInfer(ctx, result, log)
	if err == nil {
		err = o.writeAndVerify(ctx, result, records, log)
	}

	if recorder != nil {
		o.finishHistory(ctx, recorder, result, err, log)
	}
	if err != nil {
		return nil, err
	}
	return o.finish(result, log), nil
}

func (o *Orchestrator) writeAndVerify(ctx context.Context, result *RunResult, records []record.Mapping, log *logger.Logger) error {
	if result.Empty {
		log.Warn("Source returned no records - nothing to write")
		return nil
	}

	writer, err := sink.NewWriter(
		o.dbManager.Destination,
		o.dbManager.Driver,
		sink.Options{
			BatchSize:  o.processingCfg.BatchSize,
			OnMismatch: sink.MismatchPolicy(o.processingCfg.OnMismatch),
		},
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}

	writeStats, err := writer.Write(ctx, o.jobConfig.Table, result.Schema, records)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	result.Write = writeStats

	method := verifier.MethodSkip
	if !o.verificationCfg.Skip() {
		method, err = verifier.ParseMethod(o.verificationCfg.Method)
		if err != nil {
			return err
		}
	}
	v, err := verifier.NewVerifier(o.dbManager.Destination, o.dbManager.Driver, method, log)
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}
	verification, err := v.Verify(ctx, o.jobConfig.Table, writeStats.RowsWritten)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	result.Verification = verification
	return nil
}

// startHistory records the run start. It returns a nil recorder when run
// history is disabled.
func (o *Orchestrator) startHistory(ctx context.Context, result *RunResult, log *logger.Logger) (*history.Recorder, error) {
	if !o.config.History.Enabled {
		return nil, nil
	}

	recorder, err := history.NewRecorder(o.dbManager.Destination, o.dbManager.Driver, o.config.History.Table, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create run history recorder: %w", err)
	}
	if err := recorder.InitializeTable(ctx); err != nil {
		return nil, err
	}
	if err := recorder.Start(ctx, result.RunID, result.JobName, result.Table, result.StartedAt); err != nil {
		return nil, err
	}
	return recorder, nil
}

// finishHistory stores the outcome of the run. A cancelled run is still
// recorded, so the write ignores ctx cancellation. Failures are logged only.
func (o *Orchestrator) finishHistory(ctx context.Context, recorder *history.Recorder, result *RunResult, runErr error, log *logger.Logger) {
	ctx = context.WithoutCancel(ctx)
	now := time.Now()

	var err error
	if runErr != nil {
		err = recorder.Fail(ctx, result.RunID, runErr.Error(), now)
	} else {
		var records, rows int64
		if result.Fetch != nil {
			records = int64(result.Fetch.Records)
		}
		if result.Write != nil {
			rows = result.Write.RowsWritten
		}
		err = recorder.Complete(ctx, result.RunID, records, rows, now)
	}
	if err != nil {
		log.Warnw("Failed to record run history", "error", err)
	}
}

// InferOnly fetches the job's records and infers their schema without
// touching the destination.
func (o *Orchestrator) InferOnly(ctx context.Context) (*RunResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}

	result, log := o.newResult()
	if _, err := o.fetchAndInfer(ctx, result, log); err != nil {
		return nil, err
	}
	if result.Empty {
		return nil, fmt.Errorf("%s: %w", o.source.Name(), ErrNoRecords)
	}
	return o.finish(result, log), nil
}

func (o *Orchestrator) newResult() (*RunResult, *logger.Logger) {
	result := &RunResult{
		RunID:     uuid.NewString(),
		JobName:   o.jobName,
		Table:     o.jobConfig.Table,
		Source:    o.source.Name(),
		StartedAt: time.Now(),
	}
	return result, o.logger.WithJob(o.jobName).WithRun(result.RunID)
}

func (o *Orchestrator) fetchAndInfer(ctx context.Context, result *RunResult, log *logger.Logger) ([]record.Mapping, error) {
	opts, err := InferenceOptions(o.inferenceCfg)
	if err != nil {
		return nil, err
	}

	log.Infow("Starting job run",
		"source", result.Source,
		"table", result.Table,
		"sample_size", o.inferenceCfg.SampleSize,
		"max_level", o.inferenceCfg.MaxLevel,
		"propagation", opts.Propagation,
		"batch_size", o.processingCfg.BatchSize,
		"on_mismatch", o.processingCfg.OnMismatch,
		"verification_method", o.verificationCfg.Method,
	)

	records, fetchStats, err := o.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	if fetchStats == nil {
		fetchStats = &types.FetchStats{Records: len(records)}
	}
	result.Fetch = fetchStats

	log.Infow("Fetched records",
		"records", len(records),
		"pages", fetchStats.Pages,
		"bytes", fetchStats.Bytes,
		"duration", fetchStats.Duration,
	)

	if len(records) == 0 {
		result.Empty = true
		return records, nil
	}

	samples := Sample(records, o.inferenceCfg.SampleSize)
	s, err := schema.Suggest(samples, opts)
	if err != nil {
		return nil, fmt.Errorf("schema inference failed: %w", err)
	}
	result.Samples = len(samples)
	result.Schema = s

	log.Infow("Inferred schema",
		"samples", result.Samples,
		"columns", s.Len(),
		"schema", s.String(),
	)

	return records, nil
}

func (o *Orchestrator) finish(result *RunResult, log *logger.Logger) *RunResult {
	result.Success = true
	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	fields := []interface{}{
		"duration", result.Duration,
		"records", result.Fetch.Records,
		"empty", result.Empty,
	}
	if result.Write != nil {
		fields = append(fields,
			"rows_written", result.Write.RowsWritten,
			"rows_coerced", result.Write.RowsCoerced,
		)
	}
	log.Infow("Job run completed", fields...)
	return result
}
