// Package command wraps store and selection operations as named commands
// so they can be executed through an Invoker that keeps a history.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/station-weather/internal/domain"
	"github.com/couchcryptid/station-weather/internal/store"
)

var (
	// ErrDuplicateID is returned when adding a record whose id is already taken.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidURL is returned when a station URL fails the pre-flight check.
	ErrInvalidURL = errors.New("url does not serve a results document")
	// ErrFetchFailed is returned when a refresh could not retrieve measurements.
	ErrFetchFailed = errors.New("fetch failed")
)

// Command is a single executable operation.
type Command interface {
	Label() string
	Execute(ctx context.Context) (any, error)
}

// Store is the part of the configuration store the commands mutate.
type Store interface {
	Countries() map[string]store.CountryRecord
	Cities(countryID string) map[string]store.CityRecord
	Station(id string) (store.StationRecord, bool)
	AddCountry(id, name string)
	RemoveCountry(id string) bool
	AddCity(id, name, countryID string)
	RemoveCity(id string) bool
	AddStation(id, name, cityID, apiURL string)
	RemoveStation(id string) bool
	UpdateStationURL(id, newURL string) bool
}

// URLValidator checks that a URL serves a measurements document.
type URLValidator interface {
	ValidateURL(ctx context.Context, url string) bool
}

// Selector changes the current station selection.
type Selector interface {
	Select(ctx context.Context, st *domain.Station)
}

// Fetcher refreshes a station's measurements.
type Fetcher interface {
	Fetch(ctx context.Context, st *domain.Station) bool
}

// AddCountry creates a country.
type AddCountry struct {
	Store Store
	ID    string
	Name  string
}

func (c *AddCountry) Label() string { return "add-country " + c.ID }

func (c *AddCountry) Execute(_ context.Context) (any, error) {
	if _, err := domain.NewCountry(c.ID, c.Name); err != nil {
		return nil, err
	}
	if _, exists := c.Store.Countries()[c.ID]; exists {
		return nil, fmt.Errorf("country %q: %w", c.ID, ErrDuplicateID)
	}
	c.Store.AddCountry(c.ID, c.Name)
	return store.CountryRecord{Name: c.Name}, nil
}

// RemoveCountry deletes a country with its cities and stations.
type RemoveCountry struct {
	Store Store
	ID    string
}

func (c *RemoveCountry) Label() string { return "remove-country " + c.ID }

func (c *RemoveCountry) Execute(_ context.Context) (any, error) {
	if !c.Store.RemoveCountry(c.ID) {
		return nil, fmt.Errorf("country %q: %w", c.ID, ErrNotFound)
	}
	return nil, nil
}

// AddCity creates a city under an existing country.
type AddCity struct {
	Store     Store
	ID        string
	Name      string
	CountryID string
}

func (c *AddCity) Label() string { return "add-city " + c.ID }

func (c *AddCity) Execute(_ context.Context) (any, error) {
	var parent *domain.Country
	if rec, ok := c.Store.Countries()[c.CountryID]; ok {
		parent = &domain.Country{ID: c.CountryID, Name: rec.Name}
	}
	if _, err := domain.NewCity(c.ID, c.Name, parent); err != nil {
		if parent == nil && c.ID != "" && c.Name != "" {
			return nil, fmt.Errorf("country %q: %w", c.CountryID, ErrNotFound)
		}
		return nil, err
	}
	if _, exists := c.Store.Cities("")[c.ID]; exists {
		return nil, fmt.Errorf("city %q: %w", c.ID, ErrDuplicateID)
	}
	c.Store.AddCity(c.ID, c.Name, c.CountryID)
	return store.CityRecord{Name: c.Name, CountryID: c.CountryID}, nil
}

// RemoveCity deletes a city with its stations.
type RemoveCity struct {
	Store Store
	ID    string
}

func (c *RemoveCity) Label() string { return "remove-city " + c.ID }

func (c *RemoveCity) Execute(_ context.Context) (any, error) {
	if !c.Store.RemoveCity(c.ID) {
		return nil, fmt.Errorf("city %q: %w", c.ID, ErrNotFound)
	}
	return nil, nil
}

// AddStation creates a station under an existing city. When Validator is
// set the URL must pass the pre-flight check first.
type AddStation struct {
	Store     Store
	Validator URLValidator
	ID        string
	Name      string
	CityID    string
	APIURL    string
}

func (c *AddStation) Label() string { return "add-station " + c.ID }

func (c *AddStation) Execute(ctx context.Context) (any, error) {
	var parent *domain.City
	if rec, ok := c.Store.Cities("")[c.CityID]; ok {
		parent = &domain.City{ID: c.CityID, Name: rec.Name, CountryID: rec.CountryID}
	}
	if _, err := domain.NewStation(c.ID, c.Name, parent, c.APIURL); err != nil {
		if parent == nil && c.ID != "" && c.Name != "" && c.APIURL != "" {
			return nil, fmt.Errorf("city %q: %w", c.CityID, ErrNotFound)
		}
		return nil, err
	}
	if _, exists := c.Store.Station(c.ID); exists {
		return nil, fmt.Errorf("station %q: %w", c.ID, ErrDuplicateID)
	}
	if c.Validator != nil && !c.Validator.ValidateURL(ctx, c.APIURL) {
		return nil, fmt.Errorf("station %q: %s: %w", c.ID, c.APIURL, ErrInvalidURL)
	}
	c.Store.AddStation(c.ID, c.Name, c.CityID, c.APIURL)
	return store.StationRecord{Name: c.Name, CityID: c.CityID, APIURL: c.APIURL}, nil
}

// RemoveStation deletes a station.
type RemoveStation struct {
	Store Store
	ID    string
}

func (c *RemoveStation) Label() string { return "remove-station " + c.ID }

func (c *RemoveStation) Execute(_ context.Context) (any, error) {
	if !c.Store.RemoveStation(c.ID) {
		return nil, fmt.Errorf("station %q: %w", c.ID, ErrNotFound)
	}
	return nil, nil
}

// UpdateStationURL points a station at a new endpoint, optionally after a
// pre-flight check.
type UpdateStationURL struct {
	Store     Store
	Validator URLValidator
	ID        string
	URL       string
}

func (c *UpdateStationURL) Label() string { return "set-url " + c.ID }

func (c *UpdateStationURL) Execute(ctx context.Context) (any, error) {
	rec, ok := c.Store.Station(c.ID)
	if !ok {
		return nil, fmt.Errorf("station %q: %w", c.ID, ErrNotFound)
	}
	if c.URL == "" {
		return nil, &domain.MissingFieldsError{Entity: "station", Fields: []string{"api url"}}
	}
	if c.Validator != nil && !c.Validator.ValidateURL(ctx, c.URL) {
		return nil, fmt.Errorf("station %q: %s: %w", c.ID, c.URL, ErrInvalidURL)
	}
	if !c.Store.UpdateStationURL(c.ID, c.URL) {
		return nil, fmt.Errorf("station %q: %w", c.ID, ErrNotFound)
	}
	rec.APIURL = c.URL
	return rec, nil
}

// SelectStation makes Station the current selection.
type SelectStation struct {
	Selector Selector
	Station  *domain.Station
}

func (c *SelectStation) Label() string {
	if c.Station == nil {
		return "select-station"
	}
	return "select-station " + c.Station.ID
}

func (c *SelectStation) Execute(ctx context.Context) (any, error) {
	if c.Station == nil {
		return nil, fmt.Errorf("select station: %w", ErrNotFound)
	}
	c.Selector.Select(ctx, c.Station)
	return c.Station, nil
}

// RefreshStation discards the station's measurements and fetches them again.
type RefreshStation struct {
	Fetcher Fetcher
	Station *domain.Station
}

func (c *RefreshStation) Label() string {
	if c.Station == nil {
		return "refresh"
	}
	return "refresh " + c.Station.ID
}

func (c *RefreshStation) Execute(ctx context.Context) (any, error) {
	if c.Station == nil {
		return nil, fmt.Errorf("refresh: %w", ErrNotFound)
	}
	c.Station.ClearMeasurements()
	if !c.Fetcher.Fetch(ctx, c.Station) {
		return nil, fmt.Errorf("refresh %q: %w", c.Station.ID, ErrFetchFailed)
	}
	return c.Station.Measurements(), nil
}
