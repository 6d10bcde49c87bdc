package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/station-weather/internal/domain"
)

// Remote payload field names.
const (
	fieldResults     = "results"
	fieldTimestamp   = "heure_de_paris"
	fieldTemperature = "temperature_en_degre_c"
	fieldHumidity    = "humidite"
	fieldPressure    = "pression"
)

var errNotNumeric = errors.New("not a number")

// parseMeasurements extracts measurements from a decoded response body in
// source order. Entries that cannot be coerced are skipped and counted.
// A body without a "results" array yields no measurements.
func parseMeasurements(body any, logger *slog.Logger) (measurements []domain.Measurement, skipped int) {
	obj, ok := body.(map[string]any)
	if !ok {
		return []domain.Measurement{}, 0
	}
	results, ok := obj[fieldResults].([]any)
	if !ok {
		return []domain.Measurement{}, 0
	}

	measurements = make([]domain.Measurement, 0, len(results))
	for i, raw := range results {
		m, err := parseEntry(raw)
		if err != nil {
			logger.Warn("skipping malformed measurement", "index", i, "error", err)
			skipped++
			continue
		}
		measurements = append(measurements, m)
	}
	return measurements, skipped
}

func parseEntry(raw any) (domain.Measurement, error) {
	entry, ok := raw.(map[string]any)
	if !ok {
		return domain.Measurement{}, fmt.Errorf("entry is %T, not an object", raw)
	}

	temp, err := floatField(entry, fieldTemperature)
	if err != nil {
		return domain.Measurement{}, err
	}
	hum, err := intField(entry, fieldHumidity)
	if err != nil {
		return domain.Measurement{}, err
	}
	press, err := intField(entry, fieldPressure)
	if err != nil {
		return domain.Measurement{}, err
	}

	return domain.NewMeasurement(timestampField(entry), temp, hum, press), nil
}

// timestampField returns the timestamp string. Non-string values are kept
// as their JSON text.
func timestampField(entry map[string]any) string {
	v, ok := entry[fieldTimestamp]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func floatField(entry map[string]any, key string) (float64, error) {
	v, ok := entry[key]
	if !ok {
		return 0, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func intField(entry map[string]any, key string) (int, error) {
	v, ok := entry[key]
	if !ok {
		return 0, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case json.Number:
		return strconv.ParseFloat(t.String(), 64)
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", t, errNotNumeric)
		}
		return f, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%T: %w", v, errNotNumeric)
	}
}

// toInt accepts integers, truncates JSON floats toward zero and parses
// integer literals from strings. Fractional strings are rejected.
func toInt(v any) (int, error) {
	switch t := v.(type) {
	case json.Number:
		if n, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return int(n), nil
		}
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", t, errNotNumeric)
		}
		return truncate(f)
	case float64:
		return truncate(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("%q: %w", t, errNotNumeric)
		}
		return n, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%T: %w", v, errNotNumeric)
	}
}

func truncate(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%g: out of range", f)
	}
	return int(math.Trunc(f)), nil
}
