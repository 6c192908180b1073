// Package server exposes an inference service over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/krnkaavya03/StuPred/internal/metrics"
	"github.com/krnkaavya03/StuPred/internal/ml"
	"github.com/krnkaavya03/StuPred/internal/storage"
)

// MetricsInterface is what the server reports about its traffic.
type MetricsInterface interface {
	HTTPRequest(route string, code int)
	WSConnections() metrics.MetricsGauge
	MLFailuresInc()
}

// PredictionLedger stores served predictions.
type PredictionLedger interface {
	SavePrediction(record storage.PredictionRecord) error
	RecentPredictions(limit int) ([]storage.PredictionRecord, error)
}

// Config controls the listener.
type Config struct {
	Port           int
	RequestTimeout time.Duration
}

const (
	defaultRequestTimeout = 5 * time.Second
	maxBodyBytes          = 64 << 10
)

// Server answers prediction requests from a single Predictor.
type Server struct {
	predictor ml.Predictor
	ledger    PredictionLedger
	metrics   MetricsInterface
	gatherer  prometheus.Gatherer
	timeout   time.Duration
	server    *http.Server
	upgrader  websocket.Upgrader

	connsMu sync.Mutex
	conns   map[*websocket.Conn]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLedger records every served prediction in l and enables
// GET /api/predictions.
func WithLedger(l PredictionLedger) Option {
	return func(s *Server) { s.ledger = l }
}

// WithMetrics counts requests and open WebSocket connections.
func WithMetrics(m MetricsInterface) Option {
	return func(s *Server) { s.metrics = m }
}

// WithGatherer serves g on /metrics instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New builds a server around p. p must already hold a loaded model.
func New(p ml.Predictor, cfg Config, opts ...Option) *Server {
	s := &Server{
		predictor: p,
		gatherer:  prometheus.DefaultGatherer,
		timeout:   cfg.RequestTimeout,
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		conns:     make(map[*websocket.Conn]struct{}),
	}
	if s.timeout <= 0 {
		s.timeout = defaultRequestTimeout
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: s.timeout,
		ReadTimeout:       s.timeout,
		WriteTimeout:      s.timeout,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	api.HandleFunc("/schema", s.handleSchema).Methods(http.MethodGet)
	api.HandleFunc("/model", s.handleModel).Methods(http.MethodGet)
	api.HandleFunc("/predictions", s.handlePredictions).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/ws/predict", s.handleWebSocket).Methods(http.MethodGet)
	return r
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called. It returns nil
// after a graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	log.Info().
		Str("addr", ln.Addr().String()).
		Str("model_id", s.predictor.Info().ID).
		Msg("Starting inference server")

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes open WebSocket connections and waits for in-flight
// requests to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[*websocket.Conn]struct{})
	s.connsMu.Unlock()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down inference server")
		return err
	}
	log.Info().Msg("Inference server stopped")
	return nil
}
