package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/krnkaavya03/StuPred/internal/ml"
	"github.com/krnkaavya03/StuPred/internal/schema"
	"github.com/krnkaavya03/StuPred/internal/storage"
)

// Prediction sources recorded in the ledger.
const (
	SourceHTTP      = "http"
	SourceWebSocket = "ws"
)

const (
	defaultPredictionsLimit = 20
	maxPredictionsLimit     = 500
)

// PredictResponse is the body of a successful prediction.
type PredictResponse struct {
	ml.PredictionResult
	ID string `json:"id,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	ModelID   string    `json:"model_id"`
	LoadedAt  time.Time `json:"loaded_at"`
	Timestamp time.Time `json:"timestamp"`
}

// SchemaResponse is the body of GET /api/schema.
type SchemaResponse struct {
	schema.Description
	DecisionThreshold float64 `json:"decision_threshold"`
	Bands             []Band  `json:"bands"`
}

// Band describes one display band of the probability gauge.
type Band struct {
	Name ml.Band `json:"name"`
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

var bands = []Band{
	{Name: ml.BandAtRisk, From: 0, To: 0.5},
	{Name: ml.BandBorderline, From: 0.5, To: 0.75},
	{Name: ml.BandLikely, From: 0.75, To: 1},
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("read body: %w", err))
		return
	}

	resp, err := s.predict(body, SourceHTTP)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// predict decodes a feature vector, classifies it and records the result.
func (s *Server) predict(body []byte, source string) (PredictResponse, error) {
	fv, err := schema.DecodeJSON(body)
	if err != nil {
		// Rejected before the predictor sees it.
		if s.metrics != nil {
			s.metrics.MLFailuresInc()
		}
		return PredictResponse{}, err
	}
	res, err := s.predictor.Predict(fv)
	if err != nil {
		return PredictResponse{}, err
	}

	resp := PredictResponse{PredictionResult: res}
	if s.ledger != nil {
		resp.ID = uuid.NewString()
		rec := storage.PredictionRecord{
			ID:          resp.ID,
			Timestamp:   time.Now().UTC(),
			Source:      source,
			ModelID:     s.predictor.Info().ID,
			Features:    fv,
			Label:       res.Label,
			Probability: res.Probability,
			Band:        string(res.Band),
		}
		if err := s.ledger.SavePrediction(rec); err != nil {
			log.Warn().Err(err).Str("prediction_id", rec.ID).Msg("Failed to record prediction")
		}
	}
	return resp, nil
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SchemaResponse{
		Description:       schema.Describe(),
		DecisionThreshold: ml.DecisionThreshold,
		Bands:             bands,
	})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.predictor.Info())
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusNotFound, errors.New("prediction log is disabled"))
		return
	}

	limit := defaultPredictionsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPredictionsLimit {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be between 1 and %d", maxPredictionsLimit))
			return
		}
		limit = n
	}

	records, err := s.ledger.RecentPredictions(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list predictions")
		writeError(w, http.StatusInternalServerError, errors.New("failed to list predictions"))
		return
	}
	if records == nil {
		records = []storage.PredictionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.predictor.Info()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		ModelID:   info.ID,
		LoadedAt:  info.LoadedAt,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}

func statusFor(err error) int {
	if errors.Is(err, schema.ErrInvalidFeatureVector) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
