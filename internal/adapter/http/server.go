package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/station-weather/internal/adapter/sqlite"
	"github.com/couchcryptid/station-weather/internal/command"
	"github.com/couchcryptid/station-weather/internal/domain"
	"github.com/couchcryptid/station-weather/internal/store"
)

// Stations is the application surface the API routes read from.
type Stations interface {
	StationList() []store.StationEntry
	SelectStation(ctx context.Context, id string) (*domain.Station, error)
	RefreshStation(ctx context.Context, id string) (*domain.Station, error)
	ArchivedMeasurements(ctx context.Context, id string, limit int) ([]sqlite.Record, error)
	History() []command.Entry
}

// Server exposes health, readiness, metrics and station API endpoints.
type Server struct {
	httpServer *http.Server
	stations   Stations
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and /api routes.
func NewServer(addr string, stations Stations, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		stations: stations,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/stations", s.handleStations)
	mux.HandleFunc("GET /api/stations/{id}/measurements", s.handleMeasurements)
	mux.HandleFunc("POST /api/stations/{id}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/stations/{id}/archive", s.handleArchive)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleStations(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.stations.StationList())
}

// measurementsResponse is the body of the measurements and refresh routes.
type measurementsResponse struct {
	StationID    string               `json:"station_id"`
	StationName  string               `json:"station_name"`
	FetchedAt    *time.Time           `json:"fetched_at"`
	Measurements []domain.Measurement `json:"measurements"`
}

func (s *Server) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	st, err := s.stations.SelectStation(r.Context(), id)
	if err != nil {
		s.writeStationError(w, "select station failed", id, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newMeasurementsResponse(st))
}

// handleRefresh discards the station's measurements and fetches them again.
// A failed fetch answers 502 since the upstream endpoint is at fault.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	st, err := s.stations.RefreshStation(r.Context(), id)
	if err != nil {
		s.writeStationError(w, "refresh station failed", id, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newMeasurementsResponse(st))
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := s.stations.ArchivedMeasurements(r.Context(), id, limit)
	if errors.Is(err, sqlite.ErrDisabled) {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("read archive failed", "station_id", id, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, records)
}

func (s *Server) writeStationError(w http.ResponseWriter, msg, id string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "station not found"})
	case errors.Is(err, command.ErrFetchFailed):
		s.logger.Warn(msg, "station_id", id, "error", err)
		sharedobs.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		s.logger.Error(msg, "station_id", id, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func newMeasurementsResponse(st *domain.Station) measurementsResponse {
	resp := measurementsResponse{
		StationID:    st.ID,
		StationName:  st.Name,
		Measurements: st.Measurements(),
	}
	if fetched := st.FetchedAt(); !fetched.IsZero() {
		utc := fetched.UTC()
		resp.FetchedAt = &utc
	}
	return resp
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.stations.History())
}
