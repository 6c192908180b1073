package ml

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/krnkaavya03/StuPred/internal/schema"
)

// MetricsInterface defines the metrics the inference service reports.
type MetricsInterface interface {
	MLPredictionsInc()
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLPredictionScoresObserve(float64)
	MLCacheHitsInc()
	MLModelAgeSet(float64)
	MLOutOfRangeInc(feature string)
}

// Service answers predictions from one model loaded at construction. The
// model is a snapshot: later changes to the artifact file are not picked up.
// A Service is safe for concurrent use.
type Service struct {
	model     *Model
	path      string
	checksum  string
	loadedAt  time.Time
	metrics   MetricsInterface
	cacheSize int
	cache     *lru.Cache[schema.FeatureVector, PredictionResult]
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics reports predictions, failures and latency to m.
func WithMetrics(m MetricsInterface) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithCacheSize keeps up to n recent results keyed by their input. Zero
// disables the cache.
func WithCacheSize(n int) ServiceOption {
	return func(s *Service) { s.cacheSize = n }
}

// NewService loads the artifact at path. Any failure wraps ErrModelLoad and
// no Service is returned.
func NewService(path string, opts ...ServiceOption) (*Service, error) {
	m, err := LoadArtifact(path)
	if err != nil {
		log.Error().Err(err).Str("model_path", path).Msg("Failed to load model")
		return nil, err
	}

	s, err := NewServiceFromModel(m, opts...)
	if err != nil {
		return nil, err
	}
	s.path = path

	log.Info().
		Str("model_path", path).
		Str("model_id", m.Metadata.ID).
		Int("trees", len(m.Forest.Trees)).
		Float64("test_accuracy", m.Metadata.TestAccuracy).
		Msg("Model loaded")
	return s, nil
}

// NewServiceFromModel serves an in-memory model, for example one that was
// just trained.
func NewServiceFromModel(m *Model, opts ...ServiceOption) (*Service, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", ErrModelLoad)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	sum, err := m.Checksum()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	s := &Service{
		model:    m,
		checksum: sum,
		loadedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cacheSize > 0 {
		cache, err := lru.New[schema.FeatureVector, PredictionResult](s.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		s.cache = cache
	}

	if s.metrics != nil && !m.Metadata.TrainedAt.IsZero() {
		s.metrics.MLModelAgeSet(time.Since(m.Metadata.TrainedAt).Seconds())
	}
	return s, nil
}

// Predict classifies fv. Values outside the usual ranges are accepted; NaN
// and infinite values are rejected with ErrInvalidFeatureVector.
func (s *Service) Predict(fv schema.FeatureVector) (PredictionResult, error) {
	start := time.Now()
	if s.metrics != nil {
		defer func() {
			s.metrics.MLLatencyObserve(time.Since(start).Seconds())
		}()
	}

	if err := schema.Validate(fv); err != nil {
		s.fail()
		return PredictionResult{}, err
	}
	s.checkRanges(fv)

	if s.cache != nil {
		if res, ok := s.cache.Get(fv); ok {
			if s.metrics != nil {
				s.metrics.MLCacheHitsInc()
			}
			s.observe(res)
			return res, nil
		}
	}

	res := s.model.Predict(fv)
	if s.cache != nil {
		s.cache.Add(fv, res)
	}
	s.observe(res)
	return res, nil
}

// PredictObject parses the named form and predicts.
func (s *Service) PredictObject(values map[string]any) (PredictionResult, error) {
	fv, err := schema.ParseObject(values)
	if err != nil {
		s.fail()
		return PredictionResult{}, err
	}
	return s.Predict(fv)
}

// PredictJSON parses a JSON object or array and predicts.
func (s *Service) PredictJSON(data []byte) (PredictionResult, error) {
	fv, err := schema.DecodeJSON(data)
	if err != nil {
		s.fail()
		return PredictionResult{}, err
	}
	return s.Predict(fv)
}

// ModelInfo describes the loaded model.
type ModelInfo struct {
	ID                string        `json:"id"`
	Path              string        `json:"path,omitempty"`
	Checksum          string        `json:"checksum"`
	Features          []string      `json:"features"`
	Trees             int           `json:"trees"`
	TrainedAt         time.Time     `json:"trained_at"`
	LoadedAt          time.Time     `json:"loaded_at"`
	TrainRows         int           `json:"train_rows"`
	TestRows          int           `json:"test_rows"`
	TrainAccuracy     float64       `json:"train_accuracy"`
	TestAccuracy      float64       `json:"test_accuracy"`
	FeatureImportance []FeatureRank `json:"feature_importance"`
	Config            TrainConfig   `json:"config"`
	CacheSize         int           `json:"cache_size"`
}

// Info returns metadata about the loaded model.
func (s *Service) Info() ModelInfo {
	md := s.model.Metadata
	return ModelInfo{
		ID:                md.ID,
		Path:              s.path,
		Checksum:          s.checksum,
		Features:          append([]string(nil), s.model.Features...),
		Trees:             len(s.model.Forest.Trees),
		TrainedAt:         md.TrainedAt,
		LoadedAt:          s.loadedAt,
		TrainRows:         md.TrainRows,
		TestRows:          md.TestRows,
		TrainAccuracy:     md.TrainAccuracy,
		TestAccuracy:      md.TestAccuracy,
		FeatureImportance: RankFeatures(md.FeatureImportance),
		Config:            md.Config,
		CacheSize:         s.cacheSize,
	}
}

// Path returns the artifact path the service was loaded from, or "" for an
// in-memory model.
func (s *Service) Path() string {
	return s.path
}

func (s *Service) observe(res PredictionResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.MLPredictionsInc()
	s.metrics.MLPredictionScoresObserve(res.Probability)
}

// checkRanges counts values the model never saw during training. They are
// still predicted; trees extrapolate with their outermost leaves.
func (s *Service) checkRanges(fv schema.FeatureVector) {
	if s.metrics == nil {
		return
	}
	for i, r := range schema.GenerationRanges {
		if !r.Contains(fv[i]) {
			s.metrics.MLOutOfRangeInc(schema.Features[i].String())
		}
	}
}

func (s *Service) fail() {
	if s.metrics != nil {
		s.metrics.MLFailuresInc()
	}
}
