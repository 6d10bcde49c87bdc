// Package app assembles the store, ingestion service, selection notifier,
// optional sinks and command invoker into one explicitly passed context.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/station-weather/internal/adapter/kafka"
	"github.com/couchcryptid/station-weather/internal/adapter/sqlite"
	"github.com/couchcryptid/station-weather/internal/command"
	"github.com/couchcryptid/station-weather/internal/config"
	"github.com/couchcryptid/station-weather/internal/domain"
	"github.com/couchcryptid/station-weather/internal/ingest"
	"github.com/couchcryptid/station-weather/internal/observability"
	"github.com/couchcryptid/station-weather/internal/selection"
	"github.com/couchcryptid/station-weather/internal/store"
)

// DefaultArchiveLimit is the number of archived measurements returned when
// the caller does not ask for a specific amount.
const DefaultArchiveLimit = 50

// App owns the single configuration store and everything built around it.
type App struct {
	logger *slog.Logger

	store    *store.Store
	ingest   *ingest.Service
	notifier *selection.Notifier
	invoker  *command.Invoker

	publisher *kafka.Publisher
	archive   *sqlite.Archive

	mu       sync.Mutex
	stations map[string]*domain.Station
}

// New opens the store and wires the selection observers: the data loader
// first, then the Kafka publisher and the SQLite archive when enabled.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	st, err := store.Open(cfg.DataDir, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{
		logger:   logger,
		store:    st,
		ingest:   ingest.NewService(cfg.FetchTimeout, logger, metrics),
		notifier: selection.NewNotifier(logger, metrics),
		invoker:  command.NewInvoker(clockwork.NewRealClock(), logger),
		stations: make(map[string]*domain.Station),
	}
	a.notifier.Subscribe(selection.NewDataLoader(a.ingest, logger))

	if cfg.KafkaEnabled {
		a.publisher = kafka.NewPublisher(cfg, logger, metrics)
		a.notifier.Subscribe(a.publisher)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	if cfg.ArchivePath != "" {
		archive, err := sqlite.Open(cfg.ArchivePath, logger, metrics)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open archive: %w", err)
		}
		a.archive = archive
		a.notifier.Subscribe(archive)
		logger.Info("measurement archive enabled", "path", cfg.ArchivePath)
	}

	return a, nil
}

func (a *App) Store() *store.Store               { return a.store }
func (a *App) Ingest() *ingest.Service           { return a.ingest }
func (a *App) Notifier() *selection.Notifier     { return a.notifier }
func (a *App) Invoker() *command.Invoker         { return a.invoker }
func (a *App) Archive() *sqlite.Archive          { return a.archive }
func (a *App) History() []command.Entry          { return a.invoker.History() }
func (a *App) StationList() []store.StationEntry { return a.store.StationList() }

// Execute runs cmd through the invoker.
func (a *App) Execute(ctx context.Context, cmd command.Command) (any, error) {
	return a.invoker.Execute(ctx, cmd)
}

// SelectStation makes the station with the given id current, which fetches
// its measurements and feeds the enabled sinks. Stations are cached between
// selections so they keep their last successful batch.
func (a *App) SelectStation(ctx context.Context, id string) (*domain.Station, error) {
	st, err := a.station(id)
	if err != nil {
		return nil, err
	}
	if _, err := a.invoker.Execute(ctx, &command.SelectStation{Selector: a.notifier, Station: st}); err != nil {
		return nil, err
	}
	return st, nil
}

// RefreshStation clears the station's measurements and fetches them again
// without notifying the sinks.
func (a *App) RefreshStation(ctx context.Context, id string) (*domain.Station, error) {
	st, err := a.station(id)
	if err != nil {
		return nil, err
	}
	if _, err := a.invoker.Execute(ctx, &command.RefreshStation{Fetcher: a.ingest, Station: st}); err != nil {
		return st, err
	}
	return st, nil
}

// ArchivedMeasurements returns up to limit archived measurements for the
// station, newest first. A non-positive limit uses DefaultArchiveLimit.
// Stations removed from the store keep their archived history.
func (a *App) ArchivedMeasurements(ctx context.Context, id string, limit int) ([]sqlite.Record, error) {
	if a.archive == nil {
		return nil, sqlite.ErrDisabled
	}
	if limit <= 0 {
		limit = DefaultArchiveLimit
	}
	return a.archive.Latest(ctx, id, limit)
}

// station returns the cached station for id, rebuilding it when its record
// changed name or parent, and syncing its URL from the store.
func (a *App) station(id string) (*domain.Station, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.store.Station(id)
	if !ok {
		delete(a.stations, id)
		return nil, fmt.Errorf("station %q: %w", id, store.ErrNotFound)
	}

	if cached, ok := a.stations[id]; ok && cached.Name == rec.Name && cached.CityID == rec.CityID {
		cached.SetAPIURL(rec.APIURL)
		return cached, nil
	}

	st, err := a.store.LoadStation(id)
	if err != nil {
		return nil, err
	}
	a.stations[id] = st
	return st, nil
}

// CheckReadiness reports store persistence failures and archive connectivity.
func (a *App) CheckReadiness(ctx context.Context) error {
	if err := a.store.CheckReadiness(ctx); err != nil {
		return err
	}
	if a.archive != nil {
		return a.archive.CheckReadiness(ctx)
	}
	return nil
}

// Close releases the sinks.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka publisher: %w", err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close archive: %w", err))
		}
	}
	return errors.Join(errs...)
}
