package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimestamp = "2025-02-11T10:00:00+00:00"

func TestMeasurement_Equality(t *testing.T) {
	a := NewMeasurement(testTimestamp, 15.5, 75, 101325)
	b := Measurement{Timestamp: testTimestamp, Temperature: 15.5, Humidity: 75, Pressure: 101325}

	assert.Equal(t, a, b)
	assert.True(t, a == b)
	assert.NotEqual(t, a, NewMeasurement(testTimestamp, 15.5, 75, 101300))
}

func TestMeasurement_Time(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want time.Time
	}{
		{"utc offset", testTimestamp, time.Date(2025, 2, 11, 10, 0, 0, 0, time.UTC)},
		{"zulu suffix", "2025-02-11T10:00:00Z", time.Date(2025, 2, 11, 10, 0, 0, 0, time.UTC)},
		{"paris offset", "2025-02-11T11:00:00+01:00", time.Date(2025, 2, 11, 10, 0, 0, 0, time.UTC)},
		{"no offset", "2025-02-11T10:00:00", time.Date(2025, 2, 11, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewMeasurement(tt.ts, 0, 0, 0).Time()
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestMeasurement_Time_Invalid(t *testing.T) {
	_, err := NewMeasurement("yesterday", 0, 0, 0).Time()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yesterday")
}

func TestMeasurement_FormatTime(t *testing.T) {
	assert.Equal(t, "11/02/2025 11:00", NewMeasurement("2025-02-11T11:00:00+01:00", 0, 0, 0).FormatTime())
	assert.Equal(t, "garbage", NewMeasurement("garbage", 0, 0, 0).FormatTime())
	assert.Equal(t, "", NewMeasurement("", 0, 0, 0).FormatTime())
}

func TestMeasurement_String(t *testing.T) {
	m := NewMeasurement(testTimestamp, 15.5, 75, 101325)
	assert.Equal(t, "11/02/2025 10:00 - Temp: 15.5°C, Hum: 75%, Press: 101325 Pa", m.String())
}
