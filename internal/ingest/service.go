// Package ingest fetches station measurements from their remote JSON
// endpoints and installs them on the in-memory station.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/couchcryptid/station-weather/internal/domain"
	"github.com/couchcryptid/station-weather/internal/observability"
	"github.com/couchcryptid/station-weather/internal/queue"
)

// DefaultTimeout bounds a single outbound request.
const DefaultTimeout = 10 * time.Second

// Fetch outcomes, used as the metric label.
const (
	outcomeSuccess      = "success"
	outcomeNetworkError = "network_error"
	outcomeStatusError  = "status_error"
	outcomeDecodeError  = "decode_error"
)

// Service retrieves and parses measurements from station endpoints.
type Service struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics

	// handoff keeps each enqueue paired with its own dequeue.
	handoff sync.Mutex
	pending *queue.Queue[string]
}

// NewService creates an ingestion service whose requests time out after timeout.
// A non-positive timeout falls back to DefaultTimeout.
func NewService(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		pending: queue.New[string](),
		logger:  logger,
		metrics: metrics,
	}
}

// Pending reports how many requests are waiting in the hand-off queue.
// It is zero between calls.
func (s *Service) Pending() int { return s.pending.Len() }

// Fetch retrieves the station's measurements and replaces its current
// sequence with them. It returns false on network, status or decode
// failures, in which case the station is left untouched. A well-formed
// response with no usable entries still succeeds and empties the sequence.
func (s *Service) Fetch(ctx context.Context, st *domain.Station) bool {
	if st == nil {
		return false
	}

	url := st.APIURL()
	logger := s.logger.With("station_id", st.ID, "url", url)

	body, err := s.getJSON(ctx, url)
	if err != nil {
		logger.Warn("measurement fetch failed", "error", err)
		return false
	}

	measurements, skipped := parseMeasurements(body, logger)
	st.ReplaceMeasurements(measurements)

	s.metrics.MeasurementsParsed.Add(float64(len(measurements)))
	s.metrics.MeasurementsSkipped.Add(float64(skipped))
	logger.Info("measurements fetched", "count", len(measurements), "skipped", skipped)
	return true
}

// ValidateURL reports whether url answers with a JSON object carrying a
// "results" key. The key's value is not inspected.
func (s *Service) ValidateURL(ctx context.Context, url string) bool {
	body, err := s.getJSON(ctx, url)
	if err != nil {
		s.logger.Warn("url validation failed", "url", url, "error", err)
		s.metrics.URLValidations.WithLabelValues("invalid").Inc()
		return false
	}

	obj, ok := body.(map[string]any)
	if !ok {
		s.metrics.URLValidations.WithLabelValues("invalid").Inc()
		return false
	}
	if _, ok := obj["results"]; !ok {
		s.metrics.URLValidations.WithLabelValues("invalid").Inc()
		return false
	}
	s.metrics.URLValidations.WithLabelValues("valid").Inc()
	return true
}

// getJSON passes url through the hand-off queue, issues a GET and decodes
// the body. Numbers are kept as json.Number so coercion sees their source text.
func (s *Service) getJSON(ctx context.Context, url string) (any, error) {
	s.handoff.Lock()
	s.pending.Enqueue(url)
	next, _ := s.pending.Dequeue()
	s.handoff.Unlock()

	start := time.Now()
	body, outcome, err := s.doRequest(ctx, next)
	s.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	s.metrics.FetchRequests.WithLabelValues(outcome).Inc()
	return body, err
}

func (s *Service) doRequest(ctx context.Context, url string) (any, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, outcomeNetworkError, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, outcomeNetworkError, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, outcomeStatusError, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, outcomeNetworkError, fmt.Errorf("read body: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, outcomeDecodeError, fmt.Errorf("decode response: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, outcomeDecodeError, errors.New("decode response: trailing data after JSON value")
	}
	return body, outcomeSuccess, nil
}
