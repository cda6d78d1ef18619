package openmeteo

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/hazard-alerts/internal/domain"
)

// Open-Meteo's ISO8601 hourly format: local time, no seconds, no offset.
const timeLayout = "2006-01-02T15:04"

type response struct {
	UTCOffsetSeconds     int     `json:"utc_offset_seconds"`
	TimezoneAbbreviation string  `json:"timezone_abbreviation"`
	Hourly               *hourly `json:"hourly"`
}

// Columns are nullable: Open-Meteo emits null for hours a model does not cover.
type hourly struct {
	Time                     []*string  `json:"time"`
	Temperature2m            []*float64 `json:"temperature_2m"`
	Precipitation            []*float64 `json:"precipitation"`
	PrecipitationProbability []*float64 `json:"precipitation_probability"`
	WeatherCode              []*float64 `json:"weather_code"`
}

// DecodeHourly parses an Open-Meteo forecast body into samples. Time,
// temperature and weather code are required: hours where any of them is null,
// or beyond the shortest of those columns, are dropped. A null or missing
// precipitation or probability reads as 0, so only the rain rules lose
// evidence for that hour.
func DecodeHourly(r io.Reader) ([]domain.ForecastSample, error) {
	var resp response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}
	if resp.Hourly == nil {
		return nil, ErrNoForecast
	}

	loc := time.FixedZone(resp.TimezoneAbbreviation, resp.UTCOffsetSeconds)
	h := resp.Hourly

	n := min(len(h.Time), len(h.Temperature2m), len(h.WeatherCode))

	samples := make([]domain.ForecastSample, 0, n)
	for i := range n {
		stamp, temp, code := h.Time[i], h.Temperature2m[i], h.WeatherCode[i]
		if stamp == nil || temp == nil || code == nil {
			continue
		}
		ts, err := time.ParseInLocation(timeLayout, *stamp, loc)
		if err != nil {
			return nil, fmt.Errorf("decode forecast: hour %d: %w", i, err)
		}
		samples = append(samples, domain.ForecastSample{
			Time:                     ts,
			TemperatureC:             *temp,
			PrecipitationMM:          valueAt(h.Precipitation, i),
			PrecipitationProbability: valueAt(h.PrecipitationProbability, i),
			WeatherCode:              int(*code),
		})
	}
	return samples, nil
}

func valueAt(column []*float64, i int) float64 {
	if i >= len(column) || column[i] == nil {
		return 0
	}
	return *column[i]
}
