package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the store, ingestion and sinks.
type Metrics struct {
	// Configuration store.
	StorePersists *prometheus.CounterVec // labels: result={ok,error}
	StoreLoads    *prometheus.CounterVec // labels: result={ok,missing,error}

	// Ingestion.
	FetchRequests        *prometheus.CounterVec // labels: outcome={success,network_error,status_error,decode_error}
	FetchDuration        prometheus.Histogram
	MeasurementsParsed   prometheus.Counter
	MeasurementsSkipped  prometheus.Counter
	URLValidations       *prometheus.CounterVec // labels: result={valid,invalid}
	StationSelections    prometheus.Counter
	MeasurementsArchived prometheus.Counter
	BatchesPublished     *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.StorePersists,
		m.StoreLoads,
		m.FetchRequests,
		m.FetchDuration,
		m.MeasurementsParsed,
		m.MeasurementsSkipped,
		m.URLValidations,
		m.StationSelections,
		m.MeasurementsArchived,
		m.BatchesPublished,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		StorePersists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "station_weather",
			Name:      "store_persist_total",
			Help:      "Configuration document rewrites by result.",
		}, []string{"result"}),
		StoreLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "station_weather",
			Name:      "store_load_total",
			Help:      "Configuration document loads by result.",
		}, []string{"result"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "station_weather",
			Name:      "fetch_requests_total",
			Help:      "Station endpoint fetches by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "station_weather",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of one remote request and body decode, excluding measurement parsing.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		MeasurementsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_weather",
			Name:      "measurements_parsed_total",
			Help:      "Measurements successfully parsed from station responses.",
		}),
		MeasurementsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_weather",
			Name:      "measurements_skipped_total",
			Help:      "Result entries skipped because a field could not be coerced.",
		}),
		URLValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "station_weather",
			Name:      "url_validations_total",
			Help:      "Station URL pre-flight checks by result.",
		}, []string{"result"}),
		StationSelections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_weather",
			Name:      "station_selections_total",
			Help:      "Stations selected for loading.",
		}),
		MeasurementsArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_weather",
			Name:      "measurements_archived_total",
			Help:      "Measurements written to the SQLite archive.",
		}),
		BatchesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "station_weather",
			Name:      "batches_published_total",
			Help:      "Measurement batches published to Kafka by outcome.",
		}, []string{"outcome"}),
	}
}
