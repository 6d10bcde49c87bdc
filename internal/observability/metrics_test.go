package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting_Isolated(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.FetchRequests.WithLabelValues("success").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(a.FetchRequests.WithLabelValues("success")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.FetchRequests.WithLabelValues("success")), 0)
}

func TestFetchDuration_HelpExcludesParsing(t *testing.T) {
	m := NewMetricsForTesting()

	desc := m.FetchDuration.Desc().String()

	assert.Contains(t, desc, "station_weather_fetch_duration_seconds")
	assert.Contains(t, desc, "excluding measurement parsing")
}
