package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchy(t *testing.T) {
	s, _ := openTestStore(t, t.TempDir())
	seed(s)

	countries := s.Hierarchy()

	require.Len(t, countries, 2)
	assert.Equal(t, "BE", countries[0].ID)
	assert.Equal(t, "FR", countries[1].ID)

	fr := countries[1]
	cities := fr.Cities()
	require.Len(t, cities, 2)
	assert.Equal(t, "LYO", cities[0].ID)
	assert.Equal(t, "PAR", cities[1].ID)
	assert.Same(t, fr, cities[1].Country())

	stations := cities[1].Stations()
	require.Len(t, stations, 1)
	assert.Equal(t, "S1", stations[0].ID)
	assert.Equal(t, "https://example.test/s1", stations[0].APIURL())
	assert.Empty(t, stations[0].Measurements())
}

func TestHierarchy_SkipsDanglingRecords(t *testing.T) {
	dir := t.TempDir()
	doc := `{
  "pays": {"FR": {"nom": "France"}},
  "villes": {"PAR": {"nom": "Paris", "pays_id": "FR"}, "GHOST": {"nom": "Nowhere", "pays_id": "XX"}},
  "stations": {"S1": {"nom": "Montsouris", "ville_id": "PAR", "api_url": "u"}, "S9": {"nom": "Lost", "ville_id": "GHOST", "api_url": "u"}}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(doc), 0o644))
	s, _ := openTestStore(t, dir)

	countries := s.Hierarchy()

	require.Len(t, countries, 1)
	cities := countries[0].Cities()
	require.Len(t, cities, 1)
	assert.Equal(t, "PAR", cities[0].ID)
	require.Len(t, cities[0].Stations(), 1)
}

func TestLoadStation(t *testing.T) {
	s, _ := openTestStore(t, t.TempDir())
	seed(s)

	st, err := s.LoadStation("S2")
	require.NoError(t, err)

	assert.Equal(t, "Bron", st.Name)
	assert.Equal(t, "LYO", st.CityID)
	assert.Equal(t, "Lyon", st.City().Name)
	assert.Equal(t, "France", st.City().Country().Name)
	assert.Equal(t, "https://example.test/s2", st.APIURL())
}

func TestLoadStation_NotFound(t *testing.T) {
	s, _ := openTestStore(t, t.TempDir())

	_, err := s.LoadStation("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadStation_DanglingCity(t *testing.T) {
	s, _ := openTestStore(t, t.TempDir())
	s.AddStation("S1", "Orphan", "GHOST", "https://example.test")

	_, err := s.LoadStation("S1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "unknown city")
}
