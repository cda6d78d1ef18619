package domain

import (
	"context"
	"errors"
	"time"
)

// ErrForecastUnavailable marks a forecast failure that may succeed on retry.
var ErrForecastUnavailable = errors.New("forecast source unavailable")

// ForecastSample is one hour of forecast for a single coordinate.
type ForecastSample struct {
	Time                     time.Time `json:"time"`
	TemperatureC             float64   `json:"temperature_c"`
	PrecipitationMM          float64   `json:"precipitation_mm"`
	PrecipitationProbability float64   `json:"precipitation_probability"` // 0-100
	WeatherCode              int       `json:"weather_code"`              // WMO code
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies within WGS-84 bounds.
func (g Geo) Valid() bool {
	return g.Lat >= -90 && g.Lat <= 90 && g.Lon >= -180 && g.Lon <= 180
}

// AssessmentRequest asks for the hazard alerts of one coordinate.
type AssessmentRequest struct {
	RequestID string  `json:"request_id,omitempty"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

// Geo returns the request coordinate.
func (r AssessmentRequest) Geo() Geo {
	return Geo{Lat: r.Lat, Lon: r.Lon}
}

// RawEvent represents an unprocessed message from the request topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for a sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
