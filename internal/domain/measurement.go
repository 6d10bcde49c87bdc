package domain

import (
	"fmt"
	"strings"
	"time"
)

// Measurement is a single weather reading. It is a comparable value: two
// measurements are the same reading when all four fields are equal.
type Measurement struct {
	Timestamp   string  `json:"heure_de_paris"`
	Temperature float64 `json:"temperature_en_degre_c"` // °C
	Humidity    int     `json:"humidite"`               // %
	Pressure    int     `json:"pression"`               // Pa
}

// NewMeasurement returns a Measurement with the given fields.
func NewMeasurement(timestamp string, temperature float64, humidity, pressure int) Measurement {
	return Measurement{
		Timestamp:   timestamp,
		Temperature: temperature,
		Humidity:    humidity,
		Pressure:    pressure,
	}
}

// timeLayouts are tried in order; the first matches the endpoint's usual offset form.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Time parses the timestamp. Offsets ("+01:00", "Z") are honoured; timestamps
// without one are read as UTC.
func (m Measurement) Time() (time.Time, error) {
	ts := strings.TrimSpace(m.Timestamp)
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, ts)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("parse measurement time %q: %w", m.Timestamp, firstErr)
}

// FormatTime renders the timestamp as DD/MM/YYYY HH:MM in its own offset.
// Unparseable timestamps are returned unchanged.
func (m Measurement) FormatTime() string {
	t, err := m.Time()
	if err != nil {
		return m.Timestamp
	}
	return t.Format("02/01/2006 15:04")
}

func (m Measurement) String() string {
	return fmt.Sprintf("%s - Temp: %g°C, Hum: %d%%, Press: %d Pa",
		m.FormatTime(), m.Temperature, m.Humidity, m.Pressure)
}
