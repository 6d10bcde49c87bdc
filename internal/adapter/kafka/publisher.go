package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/station-weather/internal/config"
	"github.com/couchcryptid/station-weather/internal/domain"
	"github.com/couchcryptid/station-weather/internal/observability"
)

// Header keys attached to every published batch.
const (
	HeaderStationID = "station_id"
	HeaderFetchedAt = "fetched_at"
	HeaderBatchID   = "batch_id"
)

// Write attempts per batch and the backoff between them.
const (
	publishAttempts = 3
	initialBackoff  = 100 * time.Millisecond
	maxBackoff      = time.Second
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Batch is the JSON payload of one published message.
type Batch struct {
	StationID    string               `json:"station_id"`
	StationName  string               `json:"station_name"`
	CityID       string               `json:"city_id"`
	FetchedAt    time.Time            `json:"fetched_at"`
	Measurements []domain.Measurement `json:"measurements"`
}

// Publisher sends each selected station's measurement batch to a Kafka topic.
// It is a selection observer and should be subscribed after the data loader.
// A batch is published once per fetch: when a later fetch fails the station
// still carries the old batch, and reselecting it publishes nothing.
type Publisher struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
	newID   func() string
	backoff time.Duration

	mu        sync.Mutex
	published map[string]time.Time // station id -> FetchedAt of the last published batch
}

// NewPublisher creates a Kafka producer for the configured measurement topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newPublisher(w, logger, metrics)
}

func newPublisher(w messageWriter, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		writer:  w,
		logger:  logger,
		metrics: metrics,
		newID:     func() string { return uuid.NewString() },
		backoff:   initialBackoff,
		published: make(map[string]time.Time),
	}
}

// StationSelected publishes st's current measurements. Failures are logged.
func (p *Publisher) StationSelected(ctx context.Context, st *domain.Station) {
	if st == nil {
		return
	}
	if err := p.Publish(ctx, st); err != nil {
		p.logger.Error("failed to publish measurements", "station_id", st.ID, "error", err)
	}
}

// Publish writes the station's measurement batch as a single message keyed
// by station id, retrying with exponential backoff. An empty batch, or one
// already published for the same fetch, is not published.
func (p *Publisher) Publish(ctx context.Context, st *domain.Station) error {
	measurements := st.Measurements()
	if len(measurements) == 0 {
		p.logger.Debug("no measurements to publish", "station_id", st.ID)
		return nil
	}
	fetchedAt := st.FetchedAt()
	if p.alreadyPublished(st.ID, fetchedAt) {
		p.logger.Debug("batch already published", "station_id", st.ID, "fetched_at", fetchedAt)
		return nil
	}

	msg, err := serializeToMessage(Batch{
		StationID:    st.ID,
		StationName:  st.Name,
		CityID:       st.CityID,
		FetchedAt:    fetchedAt.UTC(),
		Measurements: measurements,
	}, p.newID())
	if err != nil {
		return err
	}

	if err := p.write(ctx, st.ID, msg); err != nil {
		p.metrics.BatchesPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("write batch: %w", err)
	}
	p.mu.Lock()
	p.published[st.ID] = fetchedAt
	p.mu.Unlock()

	p.metrics.BatchesPublished.WithLabelValues("success").Inc()
	p.logger.Info("measurements published", "station_id", st.ID, "count", len(measurements))
	return nil
}

func (p *Publisher) alreadyPublished(stationID string, fetchedAt time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.published[stationID]
	return ok && last.Equal(fetchedAt)
}

func (p *Publisher) write(ctx context.Context, stationID string, msg kafkago.Message) error {
	backoff := p.backoff
	for attempt := 1; ; attempt++ {
		err := p.writer.WriteMessages(ctx, msg)
		if err == nil || attempt == publishAttempts {
			return err
		}
		p.logger.Warn("publish attempt failed, retrying",
			"station_id", stationID, "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return err
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Batch into a Kafka message.
func serializeToMessage(b Batch, batchID string) (kafkago.Message, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize measurement batch: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(b.StationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderStationID, Value: []byte(b.StationID)},
			{Key: HeaderFetchedAt, Value: []byte(b.FetchedAt.Format(time.RFC3339))},
			{Key: HeaderBatchID, Value: []byte(batchID)},
		},
	}, nil
}
