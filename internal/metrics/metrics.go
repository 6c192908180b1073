// Package metrics provides Prometheus metrics for the student success
// pipeline. It covers dataset generation, training runs, the inference
// service and its HTTP boundary.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "stupred"

// Metrics holds all Prometheus instruments.
type Metrics struct {
	// Dataset metrics
	RecordsGenerated   prometheus.Counter // Total synthetic records generated
	DatasetSuccessRate prometheus.Gauge   // Success rate of the last generated dataset

	// Training metrics
	TrainingRuns     prometheus.Counter   // Completed training runs
	TrainingFailures prometheus.Counter   // Training runs that returned an error
	TrainingDuration prometheus.Histogram // Wall time of a training run
	TrainAccuracy    prometheus.Gauge     // Train partition accuracy of the last model
	TestAccuracy     prometheus.Gauge     // Test partition accuracy of the last model

	// Inference metrics
	MLPredictions      prometheus.Counter
	MLFailures         prometheus.Counter
	MLModelAge         prometheus.Gauge
	MLLatency          prometheus.Histogram
	MLPredictionScores prometheus.Histogram
	MLCacheHits        prometheus.Counter
	MLOutOfRange       *prometheus.CounterVec // Inputs outside the generation range, by feature

	// Boundary metrics
	HTTPRequests    *prometheus.CounterVec // Requests by route and status code
	WSConnections   prometheus.Gauge
	ArtifactChanges prometheus.Counter // Artifact file changes seen while serving

	ErrorsTotal prometheus.Counter
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RecordsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_generated_total",
			Help:      "Total number of synthetic student records generated",
		}),
		DatasetSuccessRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_success_rate",
			Help:      "Share of successful students in the last generated dataset",
		}),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Total number of completed training runs",
		}),
		TrainingFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_failures_total",
			Help:      "Total number of failed training runs",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Duration of training runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		TrainAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "train_accuracy",
			Help:      "Train partition accuracy of the most recently trained model",
		}),
		TestAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "test_accuracy",
			Help:      "Test partition accuracy of the most recently trained model",
		}),
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of predictions served",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_failures_total",
			Help:      "Total number of rejected prediction requests",
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_age_seconds",
			Help:      "Age of the loaded model in seconds at load time",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_latency_seconds",
			Help:      "Prediction latency in seconds",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_probability",
			Help:      "Distribution of predicted success probabilities",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		MLCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_hits_total",
			Help:      "Total number of predictions answered from the cache",
		}),
		MLOutOfRange: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_out_of_range_total",
			Help:      "Feature values outside the range seen during training",
		}, []string{"feature"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open WebSocket prediction connections",
		}),
		ArtifactChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_changes_total",
			Help:      "Changes to the model artifact observed while serving",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors encountered",
		}),
	}
}

// GetErrorRate returns rejected predictions as a share of all prediction
// attempts, or 0 before the first attempt.
func (m *Metrics) GetErrorRate() float64 {
	served := counterValue(m.MLPredictions)
	failed := counterValue(m.MLFailures)
	if served+failed == 0 {
		return 0
	}
	return failed / (served + failed)
}

func counterValue(c prometheus.Counter) float64 {
	var metric dto.Metric
	if err := c.Write(&metric); err != nil || metric.Counter == nil {
		return 0
	}
	return metric.Counter.GetValue()
}
