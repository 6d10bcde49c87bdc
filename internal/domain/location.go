package domain

import (
	"fmt"
	"sync"
	"time"
)

// Country is the root of the location tree.
type Country struct {
	ID   string
	Name string

	mu     sync.RWMutex
	cities []*City
}

// AddCity appends a city unless one with the same ID is already present.
// Returns false when the city was ignored.
func (c *Country) AddCity(city *City) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.cities {
		if existing.ID == city.ID {
			return false
		}
	}
	c.cities = append(c.cities, city)
	return true
}

// Cities returns the country's cities in insertion order.
func (c *Country) Cities() []*City {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*City, len(c.cities))
	copy(out, c.cities)
	return out
}

// City returns the city with the given ID, if present.
func (c *Country) City(id string) (*City, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, city := range c.cities {
		if city.ID == id {
			return city, true
		}
	}
	return nil, false
}

func (c *Country) String() string {
	return fmt.Sprintf("Country: %s (ID: %s) - %d city(ies)", c.Name, c.ID, len(c.Cities()))
}

// City belongs to exactly one Country and groups its stations.
type City struct {
	ID        string
	Name      string
	CountryID string

	country *Country

	mu       sync.RWMutex
	stations []*Station
}

// Country returns the parent country.
func (c *City) Country() *Country { return c.country }

// AddStation appends a station unless one with the same ID is already present.
// Returns false when the station was ignored.
func (c *City) AddStation(station *Station) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.stations {
		if existing.ID == station.ID {
			return false
		}
	}
	c.stations = append(c.stations, station)
	return true
}

// Stations returns the city's stations in insertion order.
func (c *City) Stations() []*Station {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// Station returns the station with the given ID, if present.
func (c *City) Station(id string) (*Station, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.stations {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

func (c *City) String() string {
	return fmt.Sprintf("City: %s (Country: %s) - %d station(s)", c.Name, c.country.Name, len(c.Stations()))
}

// Station is a weather station with a remote endpoint and the measurements
// from its most recent successful fetch.
type Station struct {
	ID     string
	Name   string
	CityID string

	city *City

	mu           sync.RWMutex
	apiURL       string
	measurements []Measurement
	fetchedAt    time.Time
}

// City returns the parent city.
func (s *Station) City() *City { return s.city }

// APIURL returns the endpoint measurements are fetched from.
func (s *Station) APIURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiURL
}

// SetAPIURL points the station at a new endpoint. Existing measurements are kept.
func (s *Station) SetAPIURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiURL = url
}

// Measurements returns a copy of the current measurement sequence.
func (s *Station) Measurements() []Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Measurement, len(s.measurements))
	copy(out, s.measurements)
	return out
}

// ReplaceMeasurements installs ms as the station's full measurement sequence,
// discarding whatever was there, and stamps FetchedAt.
func (s *Station) ReplaceMeasurements(ms []Measurement) {
	installed := make([]Measurement, len(ms))
	copy(installed, ms)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.measurements = installed
	s.fetchedAt = clock.Now()
}

// ClearMeasurements empties the measurement sequence.
func (s *Station) ClearMeasurements() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measurements = nil
}

// FetchedAt is the time of the last ReplaceMeasurements call, zero if none.
func (s *Station) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

func (s *Station) String() string {
	return fmt.Sprintf("Station: %s (City: %s, Country: %s) - %d measurement(s)",
		s.Name, s.city.Name, s.city.country.Name, len(s.Measurements()))
}
