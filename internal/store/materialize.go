package store

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/station-weather/internal/domain"
)

// Hierarchy builds the full entity tree from the current records. Countries,
// cities and stations are ordered by id. Records whose parent is missing are
// skipped with a warning.
func (s *Store) Hierarchy() []*domain.Country {
	s.mu.RLock()
	defer s.mu.RUnlock()

	countries := make(map[string]*domain.Country, len(s.doc.Countries))
	out := make([]*domain.Country, 0, len(s.doc.Countries))
	for _, id := range sortedKeys(s.doc.Countries) {
		country, err := domain.NewCountry(id, s.doc.Countries[id].Name)
		if err != nil {
			s.logger.Warn("skipping country", "country_id", id, "error", err)
			continue
		}
		countries[id] = country
		out = append(out, country)
	}

	cities := make(map[string]*domain.City, len(s.doc.Cities))
	for _, id := range sortedKeys(s.doc.Cities) {
		rec := s.doc.Cities[id]
		country, ok := countries[rec.CountryID]
		if !ok {
			s.logger.Warn("skipping city with unknown country", "city_id", id, "country_id", rec.CountryID)
			continue
		}
		city, err := domain.NewCity(id, rec.Name, country)
		if err != nil {
			s.logger.Warn("skipping city", "city_id", id, "error", err)
			continue
		}
		cities[id] = city
	}

	for _, id := range sortedKeys(s.doc.Stations) {
		rec := s.doc.Stations[id]
		city, ok := cities[rec.CityID]
		if !ok {
			s.logger.Warn("skipping station with unknown city", "station_id", id, "city_id", rec.CityID)
			continue
		}
		if _, err := domain.NewStation(id, rec.Name, city, rec.APIURL); err != nil {
			s.logger.Warn("skipping station", "station_id", id, "error", err)
		}
	}

	return out
}

// LoadStation materializes a single station together with its city and country.
func (s *Store) LoadStation(id string) (*domain.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.doc.Stations[id]
	if !ok {
		return nil, fmt.Errorf("station %q: %w", id, ErrNotFound)
	}
	cityRec, ok := s.doc.Cities[rec.CityID]
	if !ok {
		return nil, fmt.Errorf("station %q references unknown city %q", id, rec.CityID)
	}
	countryRec, ok := s.doc.Countries[cityRec.CountryID]
	if !ok {
		return nil, fmt.Errorf("city %q references unknown country %q", rec.CityID, cityRec.CountryID)
	}

	country, err := domain.NewCountry(cityRec.CountryID, countryRec.Name)
	if err != nil {
		return nil, fmt.Errorf("load station %q: %w", id, err)
	}
	city, err := domain.NewCity(rec.CityID, cityRec.Name, country)
	if err != nil {
		return nil, fmt.Errorf("load station %q: %w", id, err)
	}
	station, err := domain.NewStation(id, rec.Name, city, rec.APIURL)
	if err != nil {
		return nil, fmt.Errorf("load station %q: %w", id, err)
	}
	return station, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
