// Package pipeline runs the offline flow: synthesize a dataset, persist it,
// train a forest on it and persist the model artifact.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/krnkaavya03/StuPred/internal/dataset"
	"github.com/krnkaavya03/StuPred/internal/ml"
	"github.com/krnkaavya03/StuPred/internal/schema"
	"github.com/krnkaavya03/StuPred/internal/storage"
)

// MetricsInterface is the subset of metrics the pipeline reports.
type MetricsInterface interface {
	RecordsGeneratedAdd(n int, successRate float64)
	TrainingCompleted(d time.Duration, trainAccuracy, testAccuracy float64)
	TrainingFailed()
}

// RunStore records training runs.
type RunStore interface {
	SaveTrainingRun(run storage.TrainingRun) error
}

// Config selects the files and parameters of a run.
type Config struct {
	DatasetPath string
	ModelPath   string
	Samples     int
	// GenerateSeed seeds the synthesizer. Nil uses a time-based seed.
	GenerateSeed *int64
	Train        ml.TrainConfig
}

// Result describes a finished run.
type Result struct {
	RunID    string
	Summary  dataset.Summary
	Model    *ml.Model
	Metrics  ml.TrainMetrics
	Checksum string
}

// Runner executes pipeline stages. Stages stop at the first error; because
// every file is replaced atomically a failed stage never leaves a partial
// dataset or artifact behind.
type Runner struct {
	cfg     Config
	metrics MetricsInterface
	store   RunStore
	now     func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics reports generation and training to m.
func WithMetrics(m MetricsInterface) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithStore records every training attempt in s.
func WithStore(s RunStore) Option {
	return func(r *Runner) { r.store = s }
}

// NewRunner validates cfg and returns a Runner.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if cfg.DatasetPath == "" {
		return nil, fmt.Errorf("dataset path is required")
	}
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path is required")
	}
	if cfg.Samples < 0 {
		return nil, fmt.Errorf("%w: %d", dataset.ErrInvalidCount, cfg.Samples)
	}
	if err := cfg.Train.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Generate synthesizes Samples records and writes them to DatasetPath.
func (r *Runner) Generate(ctx context.Context) ([]schema.StudentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := dataset.Generate(r.cfg.Samples, r.cfg.GenerateSeed)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := dataset.WriteCSV(r.cfg.DatasetPath, records); err != nil {
		return nil, err
	}

	summary := dataset.Summarize(records)
	if r.metrics != nil {
		r.metrics.RecordsGeneratedAdd(summary.Rows, summary.SuccessRate)
	}
	log.Info().
		Int("rows", summary.Rows).
		Int("successes", summary.Successes).
		Int("failures", summary.Failures).
		Float64("success_rate", summary.SuccessRate).
		Msg("Dataset generated")
	return records, nil
}

// Train reads DatasetPath, trains a model and writes it to ModelPath.
func (r *Runner) Train(ctx context.Context) (Result, error) {
	run := r.startRun()

	records, err := dataset.ReadCSV(r.cfg.DatasetPath)
	if err != nil {
		return Result{}, r.fail(run, err)
	}
	return r.train(ctx, run, records)
}

// Run generates a fresh dataset and trains on it.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	run := r.startRun()

	records, err := r.Generate(ctx)
	if err != nil {
		return Result{}, r.fail(run, err)
	}
	return r.train(ctx, run, records)
}

func (r *Runner) startRun() storage.TrainingRun {
	return storage.TrainingRun{
		ID:           uuid.NewString(),
		StartedAt:    r.now(),
		DatasetPath:  r.cfg.DatasetPath,
		ModelPath:    r.cfg.ModelPath,
		Seed:         r.cfg.Train.Seed,
		Trees:        r.cfg.Train.Trees,
		TestFraction: r.cfg.Train.TestFraction,
	}
}

func (r *Runner) train(ctx context.Context, run storage.TrainingRun, records []schema.StudentRecord) (Result, error) {
	run.Records = len(records)
	if err := ctx.Err(); err != nil {
		return Result{}, r.fail(run, err)
	}

	model, tm, err := ml.Train(records, r.cfg.Train)
	if err != nil {
		return Result{}, r.fail(run, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, r.fail(run, err)
	}
	if err := ml.SaveArtifact(r.cfg.ModelPath, model); err != nil {
		return Result{}, r.fail(run, err)
	}
	sum, err := model.Checksum()
	if err != nil {
		return Result{}, r.fail(run, err)
	}

	run.Status = storage.RunSucceeded
	run.ModelID = model.Metadata.ID
	run.FinishedAt = r.now()
	run.TrainRows = tm.TrainRows
	run.TestRows = tm.TestRows
	run.TrainAccuracy = tm.TrainAccuracy
	run.TestAccuracy = tm.TestAccuracy
	run.FeatureImportance = tm.FeatureImportance
	run.Checksum = sum
	r.record(run)

	if r.metrics != nil {
		r.metrics.TrainingCompleted(tm.Duration, tm.TrainAccuracy, tm.TestAccuracy)
	}

	log.Info().
		Str("run_id", run.ID).
		Str("model_id", run.ModelID).
		Str("model_path", r.cfg.ModelPath).
		Str("top_feature", topFeature(tm.FeatureImportance)).
		Msg("Pipeline run complete")

	return Result{
		RunID:    run.ID,
		Summary:  dataset.Summarize(records),
		Model:    model,
		Metrics:  tm,
		Checksum: sum,
	}, nil
}

func (r *Runner) fail(run storage.TrainingRun, err error) error {
	run.Status = storage.RunFailed
	run.Error = err.Error()
	run.FinishedAt = r.now()
	r.record(run)

	if r.metrics != nil && !errors.Is(err, context.Canceled) {
		r.metrics.TrainingFailed()
	}
	log.Error().Err(err).Str("run_id", run.ID).Msg("Pipeline run failed")
	return err
}

// record stores run. The ledger is informational so a failing store only
// logs.
func (r *Runner) record(run storage.TrainingRun) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveTrainingRun(run); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to record training run")
	}
}

func topFeature(importance map[string]float64) string {
	if top := ml.TopFeatures(importance, 1); len(top) > 0 {
		return top[0]
	}
	return ""
}
