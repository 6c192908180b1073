// Package client calls the inference server over HTTP.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/krnkaavya03/StuPred/internal/ml"
	"github.com/krnkaavya03/StuPred/internal/schema"
	"github.com/krnkaavya03/StuPred/internal/server"
	"github.com/krnkaavya03/StuPred/internal/storage"
)

// ErrUnavailable is returned when the server cannot be reached or answers
// with a server-side error.
var ErrUnavailable = errors.New("inference server unavailable")

type Client struct {
	base string
	rest *resty.Client
}

// New returns a client for the server at base, e.g. http://localhost:8080.
func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// Predict sends fv in its named form. A 400 answer wraps
// schema.ErrInvalidFeatureVector.
func (c *Client) Predict(ctx context.Context, fv schema.FeatureVector) (server.PredictResponse, error) {
	body, err := json.Marshal(fv)
	if err != nil {
		return server.PredictResponse{}, fmt.Errorf("encode features: %w", err)
	}
	return c.predict(ctx, body)
}

// PredictRaw sends a JSON document as is, in either the named or the ordered
// form.
func (c *Client) PredictRaw(ctx context.Context, body []byte) (server.PredictResponse, error) {
	return c.predict(ctx, body)
}

func (c *Client) predict(ctx context.Context, body []byte) (server.PredictResponse, error) {
	var out server.PredictResponse
	var apiErr server.ErrorResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(c.base + "/api/predict")
	if err != nil {
		return server.PredictResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := check(resp, apiErr); err != nil {
		return server.PredictResponse{}, err
	}
	return out, nil
}

// Schema fetches the feature schema and display bands.
func (c *Client) Schema(ctx context.Context) (server.SchemaResponse, error) {
	var out server.SchemaResponse
	err := c.get(ctx, "/api/schema", nil, &out)
	return out, err
}

// ModelInfo fetches metadata of the served model.
func (c *Client) ModelInfo(ctx context.Context) (ml.ModelInfo, error) {
	var out ml.ModelInfo
	err := c.get(ctx, "/api/model", nil, &out)
	return out, err
}

// Health reports whether the server is up with a model loaded.
func (c *Client) Health(ctx context.Context) (server.HealthResponse, error) {
	var out server.HealthResponse
	err := c.get(ctx, "/health", nil, &out)
	return out, err
}

// RecentPredictions lists up to limit served predictions, newest first.
func (c *Client) RecentPredictions(ctx context.Context, limit int) ([]storage.PredictionRecord, error) {
	var out []storage.PredictionRecord
	params := map[string]string{"limit": strconv.Itoa(limit)}
	err := c.get(ctx, "/api/predictions", params, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, result any) error {
	var apiErr server.ErrorResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		SetError(&apiErr).
		Get(c.base + path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return check(resp, apiErr)
}

func check(resp *resty.Response, apiErr server.ErrorResponse) error {
	switch code := resp.StatusCode(); {
	case code == http.StatusOK:
		return nil
	case code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", schema.ErrInvalidFeatureVector, message(resp, apiErr))
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, code, message(resp, apiErr))
	default:
		return fmt.Errorf("API error: status %d: %s", code, message(resp, apiErr))
	}
}

func message(resp *resty.Response, apiErr server.ErrorResponse) string {
	if apiErr.Error != "" {
		return apiErr.Error
	}
	return strings.TrimSpace(resp.String())
}
