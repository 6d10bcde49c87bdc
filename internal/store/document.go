package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CountryRecord is the persisted form of a country.
type CountryRecord struct {
	Name string `json:"nom"`
}

// CityRecord is the persisted form of a city. CountryID is the foreign key to its country.
type CityRecord struct {
	Name      string `json:"nom"`
	CountryID string `json:"pays_id"`
}

// StationRecord is the persisted form of a station. CityID is the foreign key to its city.
type StationRecord struct {
	Name   string `json:"nom"`
	CityID string `json:"ville_id"`
	APIURL string `json:"api_url"`
}

// StationEntry is one row of the flattened station listing.
type StationEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	APIURL string `json:"api_url"`
}

// document is the on-disk layout: three flat maps keyed by id, with
// relationships expressed only through the foreign-key fields.
type document struct {
	Countries map[string]CountryRecord `json:"pays"`
	Cities    map[string]CityRecord    `json:"villes"`
	Stations  map[string]StationRecord `json:"stations"`
}

func emptyDocument() document {
	return document{
		Countries: map[string]CountryRecord{},
		Cities:    map[string]CityRecord{},
		Stations:  map[string]StationRecord{},
	}
}

// fillDefaults replaces missing top-level maps with empty ones.
func (d *document) fillDefaults() {
	if d.Countries == nil {
		d.Countries = map[string]CountryRecord{}
	}
	if d.Cities == nil {
		d.Cities = map[string]CityRecord{}
	}
	if d.Stations == nil {
		d.Stations = map[string]StationRecord{}
	}
}

// errNoDocument is returned by readDocument when the file does not exist yet.
var errNoDocument = errors.New("configuration document does not exist")

func readDocument(path string) (document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return emptyDocument(), errNoDocument
	}
	if err != nil {
		return emptyDocument(), fmt.Errorf("read %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return emptyDocument(), fmt.Errorf("parse %s: %w", path, err)
	}
	doc.fillDefaults()
	return doc, nil
}

// writeDocument rewrites the whole document through a temp file and rename so
// readers never see a half-written file.
func writeDocument(path string, doc document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close() //nolint:errcheck,gosec // chmod error takes precedence
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
