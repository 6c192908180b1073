package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Interfaces for metrics to avoid circular imports
type MetricsCounter interface {
	Inc()
}

type MetricsGauge interface {
	Set(float64)
	Add(float64)
}

// MetricsWrapper adapts Metrics to the narrow interfaces the ml, pipeline and
// server packages depend on.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

// Metrics returns the wrapped instruments.
func (w *MetricsWrapper) Metrics() *Metrics {
	return w.m
}

// Inference

func (w *MetricsWrapper) MLPredictionsInc() {
	w.m.MLPredictions.Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLPredictionScoresObserve(v float64) {
	w.m.MLPredictionScores.Observe(v)
}

func (w *MetricsWrapper) MLCacheHitsInc() {
	w.m.MLCacheHits.Inc()
}

func (w *MetricsWrapper) MLModelAgeSet(v float64) {
	w.m.MLModelAge.Set(v)
}

func (w *MetricsWrapper) MLOutOfRangeInc(feature string) {
	w.m.MLOutOfRange.WithLabelValues(feature).Inc()
}

// Pipeline

func (w *MetricsWrapper) RecordsGeneratedAdd(n int, successRate float64) {
	w.m.RecordsGenerated.Add(float64(n))
	w.m.DatasetSuccessRate.Set(successRate)
}

func (w *MetricsWrapper) TrainingCompleted(d time.Duration, trainAccuracy, testAccuracy float64) {
	w.m.TrainingRuns.Inc()
	w.m.TrainingDuration.Observe(d.Seconds())
	w.m.TrainAccuracy.Set(trainAccuracy)
	w.m.TestAccuracy.Set(testAccuracy)
}

func (w *MetricsWrapper) TrainingFailed() {
	w.m.TrainingFailures.Inc()
	w.m.ErrorsTotal.Inc()
}

// Server

func (w *MetricsWrapper) HTTPRequest(route string, code int) {
	w.m.HTTPRequests.WithLabelValues(route, statusClass(code)).Inc()
}

func (w *MetricsWrapper) WSConnections() MetricsGauge {
	return &GaugeWrapper{w.m.WSConnections}
}

func (w *MetricsWrapper) ArtifactChanges() MetricsCounter {
	return &CounterWrapper{w.m.ArtifactChanges}
}

func (w *MetricsWrapper) ErrorsTotal() MetricsCounter {
	return &CounterWrapper{w.m.ErrorsTotal}
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}

type GaugeWrapper struct {
	g prometheus.Gauge
}

func (gw *GaugeWrapper) Set(v float64) {
	gw.g.Set(v)
}

func (gw *GaugeWrapper) Add(v float64) {
	gw.g.Add(v)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
