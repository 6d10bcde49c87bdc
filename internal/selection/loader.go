package selection

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/station-weather/internal/domain"
)

// Fetcher refreshes a station's measurements. It reports whether the fetch succeeded.
type Fetcher interface {
	Fetch(ctx context.Context, st *domain.Station) bool
}

// DataLoader fetches measurements for every station that gets selected.
type DataLoader struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewDataLoader creates a loader backed by fetcher.
func NewDataLoader(fetcher Fetcher, logger *slog.Logger) *DataLoader {
	return &DataLoader{fetcher: fetcher, logger: logger}
}

// StationSelected fetches st. A nil station is ignored.
func (l *DataLoader) StationSelected(ctx context.Context, st *domain.Station) {
	if st == nil {
		return
	}
	if !l.fetcher.Fetch(ctx, st) {
		l.logger.Warn("could not load measurements for selected station", "station_id", st.ID)
	}
}
