package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-weather/internal/adapter/sqlite"
	"github.com/couchcryptid/station-weather/internal/app"
	"github.com/couchcryptid/station-weather/internal/command"
	"github.com/couchcryptid/station-weather/internal/config"
	"github.com/couchcryptid/station-weather/internal/observability"
	"github.com/couchcryptid/station-weather/internal/store"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	return newTestAppWithArchive(t, "")
}

func newTestAppWithArchive(t *testing.T, archivePath string) *app.App {
	t.Helper()
	cfg := &config.Config{DataDir: t.TempDir(), FetchTimeout: time.Second, ArchivePath: archivePath}
	a, err := app.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func stationEndpoint(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"results":[{"heure_de_paris":"2024-01-15T14:30:00+01:00","temperature_en_degre_c":15.5,"humidite":75,"pression":101325}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func runOK(t *testing.T, a *app.App, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(t.Context(), a, args, &out), "weather %v", args)
	return out.String()
}

func TestRun_BuildAndInspectHierarchy(t *testing.T) {
	a := newTestApp(t)
	url := stationEndpoint(t)

	runOK(t, a, "add-country", "FR", "France")
	runOK(t, a, "add-city", "TLS", "Toulouse", "FR")
	out := runOK(t, a, "add-station", "S1", "Capitole", "TLS", url)
	assert.JSONEq(t, `{"nom":"Capitole","ville_id":"TLS","api_url":"`+url+`"}`, out)

	assert.JSONEq(t, `{"FR":{"nom":"France"}}`, runOK(t, a, "countries"))
	assert.JSONEq(t, `{"TLS":{"nom":"Toulouse","pays_id":"FR"}}`, runOK(t, a, "cities", "FR"))
	assert.JSONEq(t, `{}`, runOK(t, a, "stations", "OTHER"))
	assert.JSONEq(t, `[{"id":"FR","name":"France","cities":[{"id":"TLS","name":"Toulouse","stations":[
		{"id":"S1","name":"Capitole","api_url":"`+url+`"}]}]}]`, runOK(t, a, "tree"))
}

func TestRun_Fetch(t *testing.T) {
	a := newTestApp(t)
	a.Store().AddCountry("FR", "France")
	a.Store().AddCity("TLS", "Toulouse", "FR")
	a.Store().AddStation("S1", "Capitole", "TLS", stationEndpoint(t))

	var res fetchResult
	require.NoError(t, json.Unmarshal([]byte(runOK(t, a, "fetch", "S1")), &res))

	assert.Equal(t, "S1", res.StationID)
	require.NotNil(t, res.FetchedAt)
	require.Len(t, res.Measurements, 1)
	assert.InDelta(t, 15.5, res.Measurements[0].Temperature, 0)
	assert.Equal(t, "15/01/2024 14:30 - Temp: 15.5°C, Hum: 75%, Press: 101325 Pa", res.Measurements[0].Display)
}

func TestRun_ValidateURL(t *testing.T) {
	a := newTestApp(t)
	url := stationEndpoint(t)

	assert.JSONEq(t, `{"url":"`+url+`","valid":true}`, runOK(t, a, "validate-url", url))
}

func TestRun_AddStationRejectsInvalidURL(t *testing.T) {
	a := newTestApp(t)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	t.Cleanup(bad.Close)
	a.Store().AddCountry("FR", "France")
	a.Store().AddCity("TLS", "Toulouse", "FR")

	err := run(t.Context(), a, []string{"add-station", "S1", "Capitole", "TLS", bad.URL}, io.Discard)
	require.ErrorIs(t, err, command.ErrInvalidURL)

	runOK(t, a, "add-station", "-no-validate", "S1", "Capitole", "TLS", bad.URL)
	_, ok := a.Store().Station("S1")
	assert.True(t, ok)
}

func TestRun_RemoveAndErrors(t *testing.T) {
	a := newTestApp(t)
	a.Store().AddCountry("FR", "France")

	assert.JSONEq(t, `{"removed":"FR"}`, runOK(t, a, "remove-country", "FR"))

	err := run(t.Context(), a, []string{"remove-country", "FR"}, io.Discard)
	assert.ErrorIs(t, err, command.ErrNotFound)

	err = run(t.Context(), a, []string{"fetch", "nope"}, io.Discard)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, run(t.Context(), a, []string{"add-country", "only-id"}, io.Discard), errUsage)
	assert.ErrorIs(t, run(t.Context(), a, []string{"bogus"}, io.Discard), errUsage)
}

func TestRun_SetURL(t *testing.T) {
	a := newTestApp(t)
	a.Store().AddStation("S1", "Capitole", "TLS", "https://example.test/old")
	url := stationEndpoint(t)

	runOK(t, a, "set-url", "S1", url)

	rec, _ := a.Store().Station("S1")
	assert.Equal(t, url, rec.APIURL)
	require.Len(t, a.History(), 1)
	assert.Equal(t, "set-url S1", a.History()[0].Command)
}

func failingEndpoint(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func seedStation(a *app.App, url string) {
	a.Store().AddCountry("FR", "France")
	a.Store().AddCity("TLS", "Toulouse", "FR")
	a.Store().AddStation("S1", "Capitole", "TLS", url)
}

func TestRun_FetchFailureIsAnError(t *testing.T) {
	a := newTestApp(t)
	seedStation(a, failingEndpoint(t))

	var out bytes.Buffer
	err := run(t.Context(), a, []string{"fetch", "S1"}, &out)

	require.ErrorIs(t, err, command.ErrFetchFailed)
	assert.Empty(t, out.String())
}

func TestRun_Refresh(t *testing.T) {
	a := newTestApp(t)
	seedStation(a, stationEndpoint(t))

	var res fetchResult
	require.NoError(t, json.Unmarshal([]byte(runOK(t, a, "refresh", "S1")), &res))
	assert.Equal(t, "S1", res.StationID)
	require.Len(t, res.Measurements, 1)

	require.Len(t, a.History(), 1)
	assert.Equal(t, "refresh S1", a.History()[0].Command)
}

func TestRun_RefreshFailure(t *testing.T) {
	a := newTestApp(t)
	seedStation(a, failingEndpoint(t))

	err := run(t.Context(), a, []string{"refresh", "S1"}, io.Discard)

	assert.ErrorIs(t, err, command.ErrFetchFailed)
	assert.ErrorIs(t, run(t.Context(), a, []string{"refresh"}, io.Discard), errUsage)
}

func TestRun_Archive(t *testing.T) {
	a := newTestAppWithArchive(t, sqlite.MemoryPath)
	seedStation(a, stationEndpoint(t))
	runOK(t, a, "fetch", "S1")

	var records []sqlite.Record
	require.NoError(t, json.Unmarshal([]byte(runOK(t, a, "archive", "S1", "1")), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "S1", records[0].StationID)
	assert.Equal(t, "2024-01-15T14:30:00+01:00", records[0].Measurement.Timestamp)

	assert.JSONEq(t, `[]`, runOK(t, a, "archive", "S2"))
	assert.ErrorIs(t, run(t.Context(), a, []string{"archive", "S1", "zero"}, io.Discard), errUsage)
}

func TestRun_ArchiveDisabled(t *testing.T) {
	a := newTestApp(t)

	err := run(t.Context(), a, []string{"archive", "S1"}, io.Discard)

	assert.ErrorIs(t, err, sqlite.ErrDisabled)
}
