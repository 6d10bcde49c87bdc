package domain

import (
	"fmt"
	"strings"
)

// MissingFieldsError reports every required field that was empty when an
// entity was constructed.
type MissingFieldsError struct {
	Entity string
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("cannot build %s: missing %s", e.Entity, strings.Join(e.Fields, ", "))
}

// NewCountry builds a Country. Both id and name are required.
func NewCountry(id, name string) (*Country, error) {
	var missing []string
	if id == "" {
		missing = append(missing, "id")
	}
	if name == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Entity: "country", Fields: missing}
	}
	return &Country{ID: id, Name: name}, nil
}

// NewCity builds a City and links it into country.
func NewCity(id, name string, country *Country) (*City, error) {
	var missing []string
	if id == "" {
		missing = append(missing, "id")
	}
	if name == "" {
		missing = append(missing, "name")
	}
	if country == nil {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Entity: "city", Fields: missing}
	}

	city := &City{ID: id, Name: name, CountryID: country.ID, country: country}
	country.AddCity(city)
	return city, nil
}

// NewStation builds a Station and links it into city.
func NewStation(id, name string, city *City, apiURL string) (*Station, error) {
	var missing []string
	if id == "" {
		missing = append(missing, "id")
	}
	if name == "" {
		missing = append(missing, "name")
	}
	if city == nil {
		missing = append(missing, "city")
	}
	if apiURL == "" {
		missing = append(missing, "api url")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Entity: "station", Fields: missing}
	}

	station := &Station{ID: id, Name: name, CityID: city.ID, city: city, apiURL: apiURL}
	city.AddStation(station)
	return station, nil
}
