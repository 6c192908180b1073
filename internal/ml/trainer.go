package ml

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/krnkaavya03/StuPred/internal/schema"
)

// TrainConfig holds the training hyperparameters. MaxDepth 0 grows trees
// until their leaves are pure and MaxFeatures 0 means floor(sqrt(7)) candidate
// features per split.
type TrainConfig struct {
	TestFraction    float64 `json:"test_fraction" yaml:"test_fraction"`
	Seed            int64   `json:"seed" yaml:"seed"`
	Trees           int     `json:"trees" yaml:"trees"`
	MaxDepth        int     `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split" yaml:"min_samples_split"`
	MaxFeatures     int     `json:"max_features" yaml:"max_features"`
}

// DefaultTrainConfig returns the standard settings: a 20% test partition,
// seed 42 and 200 fully grown trees.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		TestFraction:    0.2,
		Seed:            42,
		Trees:           200,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MaxFeatures:     0,
	}
}

// Validate rejects out-of-range parameters with ErrInvalidConfig.
func (c TrainConfig) Validate() error {
	switch {
	case math.IsNaN(c.TestFraction) || c.TestFraction <= 0 || c.TestFraction >= 1:
		return fmt.Errorf("%w: test fraction %v not in (0,1)", ErrInvalidConfig, c.TestFraction)
	case c.Trees < 1:
		return fmt.Errorf("%w: trees must be at least 1, got %d", ErrInvalidConfig, c.Trees)
	case c.MaxDepth < 0:
		return fmt.Errorf("%w: max depth must not be negative, got %d", ErrInvalidConfig, c.MaxDepth)
	case c.MinSamplesSplit < 2:
		return fmt.Errorf("%w: min samples split must be at least 2, got %d", ErrInvalidConfig, c.MinSamplesSplit)
	case c.MaxFeatures < 0 || c.MaxFeatures > schema.NumFeatures:
		return fmt.Errorf("%w: max features must be in [0,%d], got %d", ErrInvalidConfig, schema.NumFeatures, c.MaxFeatures)
	}
	return nil
}

func (c TrainConfig) featuresPerSplit() int {
	if c.MaxFeatures > 0 {
		return c.MaxFeatures
	}
	return int(math.Sqrt(schema.NumFeatures))
}

// TrainMetrics reports how a training run went.
type TrainMetrics struct {
	TrainRows             int                `json:"train_rows"`
	TestRows              int                `json:"test_rows"`
	TrainSuccessRate      float64            `json:"train_success_rate"`
	TestSuccessRate       float64            `json:"test_success_rate"`
	TrainAccuracy         float64            `json:"train_accuracy"`
	TestAccuracy          float64            `json:"test_accuracy"`
	FeatureImportance     map[string]float64 `json:"feature_importance"`
	PermutationImportance map[string]float64 `json:"permutation_importance"`
	Duration              time.Duration      `json:"duration"`
}

// Train splits records into stratified train and test partitions, fits a
// bagged forest on the train partition and evaluates it on both. The result
// depends only on the records, their order and cfg.
func Train(records []schema.StudentRecord, cfg TrainConfig) (*Model, TrainMetrics, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, TrainMetrics{}, err
	}
	if len(records) == 0 {
		return nil, TrainMetrics{}, fmt.Errorf("%w: dataset is empty", ErrInsufficientData)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	train, test, err := StratifiedSplit(records, cfg.TestFraction, rng)
	if err != nil {
		return nil, TrainMetrics{}, err
	}

	log.Info().
		Int("train_rows", len(train)).
		Int("test_rows", len(test)).
		Int("trees", cfg.Trees).
		Int64("seed", cfg.Seed).
		Msg("Training forest")

	seeds := make([]int64, cfg.Trees)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}
	forest, importance := fitForest(train, seeds, cfg)

	model := &Model{
		Features: schema.FeatureNames(),
		Forest:   forest,
	}

	trainX, trainY := columns(train)
	testX, testY := columns(test)

	metrics := TrainMetrics{
		TrainRows:             len(train),
		TestRows:              len(test),
		TrainSuccessRate:      successRate(trainY),
		TestSuccessRate:       successRate(testY),
		TrainAccuracy:         model.accuracy(trainX, trainY),
		TestAccuracy:          model.accuracy(testX, testY),
		FeatureImportance:     importance,
		PermutationImportance: PermutationImportance(model, testX, testY, rand.New(rand.NewSource(rng.Int63()))),
	}
	metrics.Duration = time.Since(start)

	model.Metadata = ModelMetadata{
		ID:                uuid.NewString(),
		TrainedAt:         time.Now().UTC(),
		Config:            cfg,
		TrainRows:         metrics.TrainRows,
		TestRows:          metrics.TestRows,
		TrainAccuracy:     metrics.TrainAccuracy,
		TestAccuracy:      metrics.TestAccuracy,
		FeatureImportance: importance,
	}

	log.Info().
		Str("model_id", model.Metadata.ID).
		Float64("train_accuracy", metrics.TrainAccuracy).
		Float64("test_accuracy", metrics.TestAccuracy).
		Dur("duration", metrics.Duration).
		Msg("Training complete")

	return model, metrics, nil
}

// fitForest grows one tree per seed on a bootstrap sample of train. Trees are
// grown in parallel; each uses only its own seed so the result does not
// depend on scheduling.
func fitForest(train []schema.StudentRecord, seeds []int64, cfg TrainConfig) (Forest, map[string]float64) {
	x, y := columns(train)
	trees := make([]Tree, len(seeds))
	importances := make([][schema.NumFeatures]float64, len(seeds))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(runtime.NumCPU(), len(seeds)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := &treeBuilder{
				x:               x,
				y:               y,
				maxDepth:        cfg.MaxDepth,
				minSamplesSplit: cfg.MinSamplesSplit,
				maxFeatures:     cfg.featuresPerSplit(),
			}
			for i := range jobs {
				b.rng = rand.New(rand.NewSource(seeds[i]))
				b.importance = [schema.NumFeatures]float64{}
				rows := make([]int, len(x))
				for j := range rows {
					rows[j] = b.rng.Intn(len(x))
				}
				trees[i] = b.build(rows)
				importances[i] = b.importance
			}
		}()
	}
	for i := range seeds {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return Forest{Trees: trees}, meanImportance(importances)
}

// meanImportance normalizes each tree's impurity decrease, averages over the
// forest and normalizes the result to sum to one.
func meanImportance(perTree [][schema.NumFeatures]float64) map[string]float64 {
	var total [schema.NumFeatures]float64
	for _, imp := range perTree {
		var sum float64
		for _, v := range imp {
			sum += v
		}
		if sum <= 0 {
			continue
		}
		for i, v := range imp {
			total[i] += v / sum
		}
	}

	var sum float64
	for _, v := range total {
		sum += v
	}
	out := make(map[string]float64, schema.NumFeatures)
	for i, f := range schema.Features {
		if sum > 0 {
			out[f.String()] = total[i] / sum
		} else {
			out[f.String()] = 0
		}
	}
	return out
}

func columns(records []schema.StudentRecord) ([]schema.FeatureVector, []int) {
	x := make([]schema.FeatureVector, len(records))
	y := make([]int, len(records))
	for i, r := range records {
		x[i] = r.Features()
		y[i] = r.Success
	}
	return x, y
}

func successRate(y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	pos := 0
	for _, v := range y {
		pos += v
	}
	return float64(pos) / float64(len(y))
}
