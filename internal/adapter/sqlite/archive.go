// Package sqlite archives fetched measurements in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/station-weather/internal/domain"
	"github.com/couchcryptid/station-weather/internal/observability"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/upsert-measurement.sql
var upsertMeasurementSQL string

//go:embed sql/latest-measurements.sql
var latestMeasurementsSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrDisabled is returned by callers that need an archive when none is configured.
var ErrDisabled = errors.New("measurement archive not enabled")

// Record is one archived measurement.
type Record struct {
	StationID   string             `json:"station_id"`
	Measurement domain.Measurement `json:"measurement"`
	FetchedAt   time.Time          `json:"fetched_at"`
}

// Archive upserts every measurement batch of a selected station, keyed by
// station and timestamp.
type Archive struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Open opens (creating if needed) the archive at path and applies the schema.
func Open(path string, logger *slog.Logger, metrics *observability.Metrics) (*Archive, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// An in-memory database lives on a single connection.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Archive{db: db, logger: logger, metrics: metrics}, nil
}

func buildDSN(path string) (string, error) {
	if path == MemoryPath {
		return path, nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path), nil
}

// StationSelected archives st's current measurements. Failures are logged.
func (a *Archive) StationSelected(ctx context.Context, st *domain.Station) {
	if st == nil {
		return
	}
	if err := a.Store(ctx, st); err != nil {
		a.logger.Error("failed to archive measurements", "station_id", st.ID, "error", err)
	}
}

// Store upserts the station's measurements in a single transaction.
func (a *Archive) Store(ctx context.Context, st *domain.Station) error {
	measurements := st.Measurements()
	if len(measurements) == 0 {
		return nil
	}
	fetchedAt := st.FetchedAt().UTC().Format(time.RFC3339Nano)

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, upsertMeasurementSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range measurements {
		if _, err := stmt.ExecContext(ctx, st.ID, m.Timestamp, m.Temperature, m.Humidity, m.Pressure, fetchedAt); err != nil {
			return fmt.Errorf("upsert measurement %s/%s: %w", st.ID, m.Timestamp, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}

	a.metrics.MeasurementsArchived.Add(float64(len(measurements)))
	a.logger.Debug("measurements archived", "station_id", st.ID, "count", len(measurements))
	return nil
}

// Latest returns up to limit archived measurements for stationID, newest first.
func (a *Archive) Latest(ctx context.Context, stationID string, limit int) ([]Record, error) {
	rows, err := a.db.QueryContext(ctx, latestMeasurementsSQL, stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest measurements: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			a.logger.Error("close latest measurements rows", "error", err)
		}
	}()

	out := []Record{}
	for rows.Next() {
		var (
			rec       Record
			fetchedAt string
		)
		m := &rec.Measurement
		if err := rows.Scan(&rec.StationID, &m.Timestamp, &m.Temperature, &m.Humidity, &m.Pressure, &fetchedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("parse fetched_at %q: %w", fetchedAt, err)
		}
		rec.FetchedAt = t
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CheckReadiness pings the database.
func (a *Archive) CheckReadiness(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}
