package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krnkaavya03/StuPred/internal/dataset"
	"github.com/krnkaavya03/StuPred/internal/ml"
	"github.com/krnkaavya03/StuPred/internal/storage"
)

type recordingMetrics struct {
	mu        sync.Mutex
	generated int
	completed int
	failed    int
	testAcc   float64
}

func (m *recordingMetrics) RecordsGeneratedAdd(n int, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generated += n
}

func (m *recordingMetrics) TrainingCompleted(_ time.Duration, _, testAccuracy float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
	m.testAcc = testAccuracy
}

func (m *recordingMetrics) TrainingFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

type failingStore struct{}

func (failingStore) SaveTrainingRun(storage.TrainingRun) error {
	return errors.New("disk full")
}

func testConfig(dir string, samples int) Config {
	seed := int64(42)
	train := ml.DefaultTrainConfig()
	train.Trees = 20
	return Config{
		DatasetPath:  filepath.Join(dir, "data", "students.csv"),
		ModelPath:    filepath.Join(dir, "models", "model.json"),
		Samples:      samples,
		GenerateSeed: &seed,
		Train:        train,
	}
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir, 300)
	store := newStore(t)
	metrics := &recordingMetrics{}

	runner, err := NewRunner(cfg, WithStore(store), WithMetrics(metrics))
	require.NoError(t, err)

	res, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 300, res.Summary.Rows)
	assert.Equal(t, 300, res.Metrics.TrainRows+res.Metrics.TestRows)
	assert.Greater(t, res.Metrics.TestAccuracy, 0.7)

	records, err := dataset.ReadCSV(cfg.DatasetPath)
	require.NoError(t, err)
	assert.Len(t, records, 300)

	loaded, err := ml.LoadArtifact(cfg.ModelPath)
	require.NoError(t, err)
	sum, err := loaded.Checksum()
	require.NoError(t, err)
	assert.Equal(t, res.Checksum, sum)
	assert.Equal(t, res.Model.Metadata.ID, loaded.Metadata.ID)

	assert.Equal(t, 300, metrics.generated)
	assert.Equal(t, 1, metrics.completed)
	assert.Equal(t, 0, metrics.failed)
	assert.Equal(t, res.Metrics.TestAccuracy, metrics.testAcc)

	latest, err := store.LatestTrainingRun()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, res.RunID, latest.ID)
	assert.Equal(t, storage.RunSucceeded, latest.Status)
	assert.Equal(t, res.Model.Metadata.ID, latest.ModelID)
	assert.Equal(t, 300, latest.Records)
	assert.Equal(t, res.Checksum, latest.Checksum)
	assert.Equal(t, 20, latest.Trees)
}

func TestRunner_TrainFromExistingDataset(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir, 200)

	runner, err := NewRunner(cfg)
	require.NoError(t, err)

	generated, err := runner.Generate(context.Background())
	require.NoError(t, err)

	res, err := runner.Train(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(generated), res.Summary.Rows)

	_, err = ml.NewService(cfg.ModelPath)
	assert.NoError(t, err)
}

func TestRunner_Deterministic(t *testing.T) {
	run := func() Result {
		runner, err := NewRunner(testConfig(t.TempDir(), 200))
		require.NoError(t, err)
		res, err := runner.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	a, b := run(), run()
	assert.Equal(t, a.Checksum, b.Checksum)
	assert.Equal(t, a.Metrics.TestAccuracy, b.Metrics.TestAccuracy)
	assert.Equal(t, a.Metrics.FeatureImportance, b.Metrics.FeatureImportance)
}

func TestRunner_MissingDataset(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir, 100)
	store := newStore(t)
	metrics := &recordingMetrics{}

	runner, err := NewRunner(cfg, WithStore(store), WithMetrics(metrics))
	require.NoError(t, err)

	_, err = runner.Train(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 1, metrics.failed)

	_, statErr := os.Stat(cfg.ModelPath)
	assert.True(t, os.IsNotExist(statErr))

	runs, err := store.ListTrainingRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)

	latest, err := store.LatestTrainingRun()
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRunner_FailedTrainingKeepsPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	good := testConfig(dir, 200)

	runner, err := NewRunner(good)
	require.NoError(t, err)
	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	before, err := os.ReadFile(good.ModelPath)
	require.NoError(t, err)

	// A single row holds only one class.
	bad := good
	bad.Samples = 1
	runner, err = NewRunner(bad)
	require.NoError(t, err)
	_, err = runner.Run(context.Background())
	require.ErrorIs(t, err, ml.ErrInsufficientData)

	after, err := os.ReadFile(good.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunner_Canceled(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir, 100)
	metrics := &recordingMetrics{}

	runner, err := NewRunner(cfg, WithMetrics(metrics))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, metrics.failed)

	_, statErr := os.Stat(cfg.DatasetPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunner_StoreFailureDoesNotFailRun(t *testing.T) {
	runner, err := NewRunner(testConfig(t.TempDir(), 150), WithStore(failingStore{}))
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	assert.NoError(t, err)
}

func TestNewRunner_Validation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"missing dataset path", func(c *Config) { c.DatasetPath = "" }, nil},
		{"missing model path", func(c *Config) { c.ModelPath = "" }, nil},
		{"negative samples", func(c *Config) { c.Samples = -1 }, dataset.ErrInvalidCount},
		{"zero trees", func(c *Config) { c.Train.Trees = 0 }, ml.ErrInvalidConfig},
		{"bad test fraction", func(c *Config) { c.Train.TestFraction = 1 }, ml.ErrInvalidConfig},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(dir, 10)
			tc.mutate(&cfg)
			_, err := NewRunner(cfg)
			require.Error(t, err)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
		})
	}
}
