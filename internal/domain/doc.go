// Package domain models the location hierarchy tracked by station-weather and
// the weather readings attached to it.
//
// # Hierarchy
//
// The tree has three levels:
//
//	Country
//	  └── City          (CountryID → Country.ID)
//	        └── Station (CityID → City.ID, APIURL)
//
// Entities here are in-memory objects materialized on demand from the
// configuration store (see package store). They are never written back; the
// store owns ids, names, parent links and URLs.
//
// # Measurements
//
// A [Measurement] is one reading from a station endpoint:
//
//	heure_de_paris          ISO-8601 timestamp, timezone-aware ("2025-02-11T10:00:00+00:00")
//	temperature_en_degre_c  degrees Celsius, float
//	humidite                relative humidity, integer percent
//	pression                atmospheric pressure, integer Pascals
//
// A station's measurements are replaced wholesale on every successful fetch
// (most-recent-fetch-wins); they are never merged with a previous batch.
//
// # Construction
//
// [NewCountry], [NewCity] and [NewStation] validate their required fields and
// report every missing one at once through [MissingFieldsError]. NewCity and
// NewStation also link the new child into its parent.
package domain
