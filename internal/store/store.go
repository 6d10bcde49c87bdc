// Package store is the persisted record of the country → city → station
// hierarchy. It owns ids, names, parent links and station URLs, enforces
// cascading deletes, and rewrites the whole document to disk after every
// mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/couchcryptid/station-weather/internal/config"
	"github.com/couchcryptid/station-weather/internal/observability"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store holds the hierarchy in memory and mirrors it to a JSON document.
// A process is expected to construct exactly one Store and pass it around.
type Store struct {
	path    string
	logger  *slog.Logger
	metrics *observability.Metrics

	mu         sync.RWMutex
	doc        document
	persistErr error
}

// Open creates dataDir if needed and loads the configuration document from it.
// A missing document starts an empty store; an unreadable or malformed one is
// logged and replaced by an empty store on the next write.
func Open(dataDir string, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}

	s := &Store{
		path:    filepath.Join(dataDir, config.ConfigFileName),
		logger:  logger,
		metrics: metrics,
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	doc, err := readDocument(s.path)
	switch {
	case errors.Is(err, errNoDocument):
		s.logger.Info("no configuration document found, starting empty", "path", s.path)
		s.metrics.StoreLoads.WithLabelValues("missing").Inc()
	case err != nil:
		s.logger.Error("failed to load configuration, starting empty", "path", s.path, "error", err)
		s.metrics.StoreLoads.WithLabelValues("error").Inc()
	default:
		s.logger.Info("configuration loaded",
			"path", s.path,
			"countries", len(doc.Countries),
			"cities", len(doc.Cities),
			"stations", len(doc.Stations),
		)
		s.metrics.StoreLoads.WithLabelValues("ok").Inc()
	}
	s.doc = doc
}

// persist rewrites the document. Callers must hold s.mu for writing.
// Failures are logged and remembered for readiness, never returned.
func (s *Store) persist() {
	if err := writeDocument(s.path, s.doc); err != nil {
		s.logger.Error("failed to save configuration", "path", s.path, "error", err)
		s.metrics.StorePersists.WithLabelValues("error").Inc()
		s.persistErr = err
		return
	}
	s.metrics.StorePersists.WithLabelValues("ok").Inc()
	s.persistErr = nil
}

// Path returns the location of the configuration document.
func (s *Store) Path() string { return s.path }

// CheckReadiness reports the most recent persistence failure, if the last
// write did not succeed.
func (s *Store) CheckReadiness(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.persistErr != nil {
		return fmt.Errorf("configuration not persisted: %w", s.persistErr)
	}
	return nil
}

// Countries returns a copy of every country record keyed by id.
func (s *Store) Countries() map[string]CountryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.doc.Countries)
}

// Cities returns a copy of the city records, limited to countryID when it is non-empty.
func (s *Store) Cities(countryID string) map[string]CityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]CityRecord)
	for id, c := range s.doc.Cities {
		if countryID == "" || c.CountryID == countryID {
			out[id] = c
		}
	}
	return out
}

// Stations returns a copy of the station records, limited to cityID when it is non-empty.
func (s *Store) Stations(cityID string) map[string]StationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]StationRecord)
	for id, st := range s.doc.Stations {
		if cityID == "" || st.CityID == cityID {
			out[id] = st
		}
	}
	return out
}

// Station returns the station record with the given id.
func (s *Store) Station(id string) (StationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.doc.Stations[id]
	return st, ok
}

// StationList flattens every station to (id, name, url), ordered by id.
func (s *Store) StationList() []StationEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StationEntry, 0, len(s.doc.Stations))
	for id, st := range s.doc.Stations {
		out = append(out, StationEntry{ID: id, Name: st.Name, APIURL: st.APIURL})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddCountry inserts or overwrites a country and persists.
func (s *Store) AddCountry(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Countries[id] = CountryRecord{Name: name}
	s.persist()
}

// RemoveCountry deletes a country together with its cities and their
// stations, then persists once. Returns false if the country does not exist.
func (s *Store) RemoveCountry(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Countries[id]; !ok {
		return false
	}

	var cityIDs []string
	for cityID, c := range s.doc.Cities {
		if c.CountryID == id {
			cityIDs = append(cityIDs, cityID)
		}
	}
	for _, cityID := range cityIDs {
		s.removeCityLocked(cityID)
	}
	delete(s.doc.Countries, id)

	s.logger.Debug("country removed", "country_id", id, "cascaded_cities", len(cityIDs))
	s.persist()
	return true
}

// AddCity inserts or overwrites a city and persists.
func (s *Store) AddCity(id, name, countryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Cities[id] = CityRecord{Name: name, CountryID: countryID}
	s.persist()
}

// RemoveCity deletes a city and its stations, then persists.
// Returns false if the city does not exist.
func (s *Store) RemoveCity(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeCityLocked(id) {
		return false
	}
	s.persist()
	return true
}

// removeCityLocked removes the city and every station pointing at it without persisting.
func (s *Store) removeCityLocked(id string) bool {
	if _, ok := s.doc.Cities[id]; !ok {
		return false
	}

	var stationIDs []string
	for stationID, st := range s.doc.Stations {
		if st.CityID == id {
			stationIDs = append(stationIDs, stationID)
		}
	}
	for _, stationID := range stationIDs {
		delete(s.doc.Stations, stationID)
	}
	delete(s.doc.Cities, id)

	s.logger.Debug("city removed", "city_id", id, "cascaded_stations", len(stationIDs))
	return true
}

// AddStation inserts or overwrites a station and persists.
func (s *Store) AddStation(id, name, cityID, apiURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Stations[id] = StationRecord{Name: name, CityID: cityID, APIURL: apiURL}
	s.persist()
}

// RemoveStation deletes a station and persists. Returns false if it does not exist.
func (s *Store) RemoveStation(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Stations[id]; !ok {
		return false
	}
	delete(s.doc.Stations, id)
	s.persist()
	return true
}

// UpdateStationURL points a station at a new endpoint and persists.
// Returns false if the station does not exist.
func (s *Store) UpdateStationURL(id, newURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.doc.Stations[id]
	if !ok {
		return false
	}
	st.APIURL = newURL
	s.doc.Stations[id] = st
	s.persist()
	return true
}
