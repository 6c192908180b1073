package ml

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krnkaavya03/StuPred/internal/schema"
)

func TestTrain_DefaultAccuracy(t *testing.T) {
	model, metrics := trainDefault(t)

	assert.Greater(t, metrics.TestAccuracy, 0.85)
	assert.GreaterOrEqual(t, metrics.TrainAccuracy, metrics.TestAccuracy)
	assert.Equal(t, 500, metrics.TrainRows+metrics.TestRows)
	assert.InDelta(t, 100, metrics.TestRows, 1)
	assert.Len(t, model.Forest.Trees, 200)
	assert.Equal(t, schema.FeatureNames(), model.Features)
	assert.NotEmpty(t, model.Metadata.ID)
	assert.Equal(t, metrics.TestAccuracy, model.Metadata.TestAccuracy)
}

func TestTrain_ExtremeVectors(t *testing.T) {
	model, _ := trainDefault(t)

	high := model.Predict(maxUIVector)
	assert.Equal(t, 1, high.Label)
	assert.GreaterOrEqual(t, high.Probability, 0.9)
	assert.Equal(t, BandLikely, high.Band)

	low := model.Predict(minUIVector)
	assert.Equal(t, 0, low.Label)
	assert.Equal(t, BandAtRisk, low.Band)
	assert.LessOrEqual(t, low.Probability, high.Probability)
}

func TestTrain_MaximalVector(t *testing.T) {
	model, _ := trainDefault(t)

	res := model.Predict(maxVector)
	assert.Equal(t, 1, res.Label)
	assert.GreaterOrEqual(t, res.Probability, 0.9)
	assert.Equal(t, BandLikely, res.Band)

	// Leaves are pure, so every tree casts a whole vote.
	votes := 0
	for i := range model.Forest.Trees {
		v := model.Forest.Trees[i].Predict(maxVector)
		require.True(t, v == 0 || v == 1, "tree %d leaf value %v", i, v)
		votes += int(v)
	}
	assert.GreaterOrEqual(t, votes, 180)
	assert.Equal(t, float64(votes)/float64(len(model.Forest.Trees)), res.Probability)
}

func TestTrain_FeatureImportance(t *testing.T) {
	_, metrics := trainDefault(t)

	require.Len(t, metrics.FeatureImportance, schema.NumFeatures)
	var sum float64
	for _, v := range metrics.FeatureImportance {
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// study_hours carries the largest weight range of the rule.
	assert.Equal(t, "study_hours", TopFeatures(metrics.FeatureImportance, 1)[0])
	assert.Len(t, metrics.PermutationImportance, schema.NumFeatures)
	assert.Greater(t, metrics.PermutationImportance["study_hours"], 0.0)
}

func TestTrain_Deterministic(t *testing.T) {
	records := generate(t, 300, 11)

	m1, met1, err := Train(records, smallConfig())
	require.NoError(t, err)
	m2, met2, err := Train(records, smallConfig())
	require.NoError(t, err)

	assert.Equal(t, m1.Forest, m2.Forest)
	met1.Duration, met2.Duration = 0, 0
	assert.Equal(t, met1, met2)

	other := smallConfig()
	other.Seed = 12
	m3, _, err := Train(records, other)
	require.NoError(t, err)
	assert.NotEqual(t, m1.Forest, m3.Forest)
}

func TestTrain_MaxDepth(t *testing.T) {
	records := generate(t, 200, 5)
	cfg := smallConfig()
	cfg.MaxDepth = 3

	model, _, err := Train(records, cfg)
	require.NoError(t, err)
	for i := range model.Forest.Trees {
		assert.LessOrEqual(t, model.Forest.Trees[i].Depth(), 3)
	}
}

func TestTrain_InvalidConfig(t *testing.T) {
	records := generate(t, 50, 1)

	tests := []struct {
		name   string
		modify func(*TrainConfig)
	}{
		{"zero test fraction", func(c *TrainConfig) { c.TestFraction = 0 }},
		{"full test fraction", func(c *TrainConfig) { c.TestFraction = 1 }},
		{"negative test fraction", func(c *TrainConfig) { c.TestFraction = -0.1 }},
		{"nan test fraction", func(c *TrainConfig) { c.TestFraction = math.NaN() }},
		{"no trees", func(c *TrainConfig) { c.Trees = 0 }},
		{"negative depth", func(c *TrainConfig) { c.MaxDepth = -1 }},
		{"min samples split", func(c *TrainConfig) { c.MinSamplesSplit = 1 }},
		{"too many features", func(c *TrainConfig) { c.MaxFeatures = 8 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultTrainConfig()
			tc.modify(&cfg)
			_, _, err := Train(records, cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestTrain_InsufficientData(t *testing.T) {
	pass := schema.NewRecord("S001", [schema.NumFeatures]int{100, 70, 10, 100, 100, 10, 5})
	fail := schema.NewRecord("S002", [schema.NumFeatures]int{40, 0, 0, 35, 35, 0, 0})

	tests := []struct {
		name    string
		records []schema.StudentRecord
	}{
		{"empty", nil},
		{"single class", []schema.StudentRecord{pass, pass, pass, pass}},
		{"one row of a class", []schema.StudentRecord{pass, pass, pass, fail}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Train(tc.records, DefaultTrainConfig())
			assert.ErrorIs(t, err, ErrInsufficientData)
		})
	}
}

func TestStratifiedSplit_PreservesBalance(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 42} {
		records := generate(t, 257, seed)
		var positives int
		for _, r := range records {
			positives += r.Success
		}
		rate := float64(positives) / float64(len(records))

		for _, frac := range []float64{0.1, 0.2, 0.33, 0.5} {
			train, test, err := StratifiedSplit(records, frac, rand.New(rand.NewSource(seed)))
			require.NoError(t, err)
			assert.Equal(t, len(records), len(train)+len(test))

			for _, part := range [][]schema.StudentRecord{train, test} {
				var pos int
				for _, r := range part {
					pos += r.Success
				}
				assert.LessOrEqual(t, math.Abs(float64(pos)-rate*float64(len(part))), 1.0,
					"seed %d fraction %v", seed, frac)
			}
		}
	}
}

func TestStratifiedSplit_NoOverlap(t *testing.T) {
	records := generate(t, 100, 9)
	train, test, err := StratifiedSplit(records, 0.2, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, r := range append(append([]schema.StudentRecord{}, train...), test...) {
		assert.False(t, seen[r.StudentID], "duplicate %s", r.StudentID)
		seen[r.StudentID] = true
	}
	assert.Len(t, seen, 100)
}

func TestBandFor(t *testing.T) {
	assert.Equal(t, BandAtRisk, BandFor(0))
	assert.Equal(t, BandAtRisk, BandFor(0.4999))
	assert.Equal(t, BandBorderline, BandFor(0.5))
	assert.Equal(t, BandBorderline, BandFor(0.7499))
	assert.Equal(t, BandLikely, BandFor(0.75))
	assert.Equal(t, BandLikely, BandFor(1))

	assert.Equal(t, 1, NewPredictionResult(0.5).Label)
	assert.Equal(t, 0, NewPredictionResult(0.49).Label)
}
