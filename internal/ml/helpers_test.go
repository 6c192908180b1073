package ml

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/krnkaavya03/StuPred/internal/dataset"
	"github.com/krnkaavya03/StuPred/internal/schema"
)

var (
	defaultModelOnce sync.Once
	defaultModel     *Model
	defaultMetrics   TrainMetrics
	defaultErr       error
)

// trainDefault trains the standard configuration on 500 rows generated with
// seed 42 once per test binary.
func trainDefault(t *testing.T) (*Model, TrainMetrics) {
	t.Helper()
	defaultModelOnce.Do(func() {
		seed := int64(42)
		records, err := dataset.Generate(500, &seed)
		if err != nil {
			defaultErr = err
			return
		}
		defaultModel, defaultMetrics, defaultErr = Train(records, DefaultTrainConfig())
	})
	require.NoError(t, defaultErr)
	return defaultModel, defaultMetrics
}

func smallConfig() TrainConfig {
	cfg := DefaultTrainConfig()
	cfg.Trees = 15
	return cfg
}

func generate(t *testing.T, n int, seed int64) []schema.StudentRecord {
	t.Helper()
	records, err := dataset.Generate(n, &seed)
	require.NoError(t, err)
	return records
}

var (
	maxUIVector = schema.FeatureVector{100, 70, 15, 100, 100, 10, 5}
	// maxVector tops every generation range.
	maxVector   = schema.FeatureVector{100, 70, 10, 100, 100, 10, 5}
	minUIVector = schema.FeatureVector{50, 10, 5, 50, 50, 1, 1}
)
