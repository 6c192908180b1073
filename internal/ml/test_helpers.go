package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      int
	failures         int
	cacheHits        int
	latencyCount     int
	latencySum       float64
	modelAge         float64
	predictionScores []float64
	outOfRange       map[string]int
}

func (m *MockMetrics) MLPredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencyCount++
	m.latencySum += v
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

func (m *MockMetrics) MLCacheHitsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

func (m *MockMetrics) MLModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

func (m *MockMetrics) MLOutOfRangeInc(feature string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outOfRange == nil {
		m.outOfRange = make(map[string]int)
	}
	m.outOfRange[feature]++
}

func (m *MockMetrics) outOfRangeCount(feature string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outOfRange[feature]
}

func (m *MockMetrics) snapshot() (predictions, failures, cacheHits, latencyCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions, m.failures, m.cacheHits, m.latencyCount
}
