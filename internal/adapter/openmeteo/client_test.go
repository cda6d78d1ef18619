package openmeteo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/hazard-alerts/internal/domain"
	"github.com/couchcryptid/hazard-alerts/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const caliForecast = `{
	"latitude": 3.4516,
	"longitude": -76.532,
	"utc_offset_seconds": -18000,
	"timezone": "America/Bogota",
	"timezone_abbreviation": "-05",
	"hourly": {
		"time": ["2024-10-14T09:00", "2024-10-14T10:00", "2024-10-14T11:00"],
		"temperature_2m": [24.1, 25.3, 36.2],
		"precipitation": [0.0, 6.4, 3.1],
		"precipitation_probability": [10, 85, 65],
		"weather_code": [1, 63, 95]
	}
}`

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 7, 5*time.Second, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_FetchHourly_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "3.4516", q.Get("latitude"))
		assert.Equal(t, "-76.5320", q.Get("longitude"))
		assert.Equal(t, hourlyVariables, q.Get("hourly"))
		assert.Equal(t, "7", q.Get("forecast_days"))
		assert.Equal(t, "auto", q.Get("timezone"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, caliForecast)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	samples, err := c.FetchHourly(context.Background(), 3.4516, -76.5320)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	s := samples[1]
	assert.True(t, s.Time.Equal(time.Date(2024, 10, 14, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, 10, s.Time.Hour(), "times stay in local wall clock")
	assert.InDelta(t, 25.3, s.TemperatureC, 1e-9)
	assert.InDelta(t, 6.4, s.PrecipitationMM, 1e-9)
	assert.InDelta(t, 85.0, s.PrecipitationProbability, 1e-9)
	assert.Equal(t, 63, s.WeatherCode)

	_, offset := samples[0].Time.Zone()
	assert.Equal(t, -18000, offset)
	assert.True(t, samples[0].Time.Equal(time.Date(2024, 10, 14, 14, 0, 0, 0, time.UTC)))
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.metrics.ForecastRequests.WithLabelValues("success")), 0)
}

func TestClient_FetchHourly_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":true,"reason":"Latitude must be in range of -90 to 90°."}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.FetchHourly(context.Background(), 3.45, -76.53)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "Latitude must be in range")
	assert.NotErrorIs(t, err, domain.ErrForecastUnavailable)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.metrics.ForecastRequests.WithLabelValues("error")), 0)
}

func TestClient_FetchHourly_CircuitOpens(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for range 6 {
		_, err := c.FetchHourly(context.Background(), 3.45, -76.53)
		require.Error(t, err)
	}

	_, err := c.FetchHourly(context.Background(), 3.45, -76.53)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, err, domain.ErrForecastUnavailable)
	assert.Equal(t, 6, calls)
}

func TestClient_FetchHourly_TransientFailuresAreUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
		{"not found", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).FetchHourly(context.Background(), 3.45, -76.53)
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.Is(err, domain.ErrForecastUnavailable))
		})
	}
}

func TestClient_FetchHourly_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testClient(url).FetchHourly(context.Background(), 3.45, -76.53)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrForecastUnavailable)
}

func TestDecodeHourly_DropsHoursMissingRequiredValues(t *testing.T) {
	body := `{
		"utc_offset_seconds": 0,
		"hourly": {
			"time": ["2024-10-14T00:00", "2024-10-14T01:00", "2024-10-14T02:00", null, "2024-10-14T04:00"],
			"temperature_2m": [20, null, 22, 23, 24],
			"precipitation": [0, 1, 2, 3, 4],
			"precipitation_probability": [0, 10, 20, 30, 40],
			"weather_code": [0, 1, null, 3, 61]
		}
	}`

	samples, err := DecodeHourly(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 0, samples[0].Time.Hour())
	assert.Equal(t, 4, samples[1].Time.Hour())
	assert.InDelta(t, 4.0, samples[1].PrecipitationMM, 0)
	assert.Equal(t, 61, samples[1].WeatherCode)
}

func TestDecodeHourly_NullRainValuesReadAsZero(t *testing.T) {
	body := `{
		"utc_offset_seconds": -18000,
		"timezone_abbreviation": "-05",
		"hourly": {
			"time": ["2024-10-20T14:00", "2024-10-20T15:00"],
			"temperature_2m": [38.2, 30.1],
			"precipitation": [null, 1.5],
			"precipitation_probability": [null, null],
			"weather_code": [96, 3]
		}
	}`

	samples, err := DecodeHourly(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, samples, 2)

	storm := samples[0]
	assert.Equal(t, 96, storm.WeatherCode)
	assert.InDelta(t, 38.2, storm.TemperatureC, 0)
	assert.Zero(t, storm.PrecipitationMM)
	assert.Zero(t, storm.PrecipitationProbability)

	assert.InDelta(t, 1.5, samples[1].PrecipitationMM, 0)
	assert.Zero(t, samples[1].PrecipitationProbability)
}

func TestDecodeHourly_StormAndHeatSurviveMissingProbability(t *testing.T) {
	body := `{
		"utc_offset_seconds": -18000,
		"timezone_abbreviation": "-05",
		"hourly": {
			"time": ["2024-10-20T14:00", "2024-10-20T15:00"],
			"temperature_2m": [38.0, 29.0],
			"precipitation": [0.4, 0],
			"precipitation_probability": [null, 20],
			"weather_code": [96, 2]
		}
	}`

	samples, err := DecodeHourly(strings.NewReader(body))
	require.NoError(t, err)

	now := time.Date(2024, 10, 20, 19, 10, 0, 0, time.UTC)
	alerts := domain.Evaluate(samples, "Cali, Valle del Cauca", now)

	kinds := make([]domain.HazardKind, 0, len(alerts))
	for _, a := range alerts {
		assert.Equal(t, "now", a.Time)
		kinds = append(kinds, a.Kind)
	}
	assert.Equal(t, []domain.HazardKind{domain.HazardThunderstorm, domain.HazardExtremeHeat}, kinds)
	assert.Equal(t, domain.SeverityDanger, domain.OverallLevel(alerts))
}

func TestDecodeHourly_TruncatesToShortestRequiredColumn(t *testing.T) {
	body := `{
		"hourly": {
			"time": ["2024-10-14T00:00", "2024-10-14T01:00", "2024-10-14T02:00"],
			"temperature_2m": [20, 21],
			"precipitation": [0, 1, 2],
			"precipitation_probability": [0, 10, 20],
			"weather_code": [0, 1, 2]
		}
	}`

	samples, err := DecodeHourly(strings.NewReader(body))
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestDecodeHourly_ShortRainColumnsReadAsZero(t *testing.T) {
	body := `{
		"hourly": {
			"time": ["2024-10-14T00:00", "2024-10-14T01:00", "2024-10-14T02:00"],
			"temperature_2m": [20, 21, 22],
			"precipitation": [0.5],
			"weather_code": [0, 1, 95]
		}
	}`

	samples, err := DecodeHourly(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.InDelta(t, 0.5, samples[0].PrecipitationMM, 0)
	assert.Zero(t, samples[2].PrecipitationMM)
	assert.Equal(t, 95, samples[2].WeatherCode)
}

func TestDecodeHourly_EmptyArrays(t *testing.T) {
	samples, err := DecodeHourly(strings.NewReader(`{"hourly": {"time": []}}`))
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestDecodeHourly_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{`, "decode forecast"},
		{"missing hourly", `{"utc_offset_seconds": 0}`, ErrNoForecast.Error()},
		{"bad timestamp", `{"hourly": {"time": ["yesterday"], "temperature_2m": [1], "precipitation": [0],
			"precipitation_probability": [0], "weather_code": [0]}}`, "hour 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHourly(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := DecodeHourly(strings.NewReader(`{}`))
	assert.ErrorIs(t, err, ErrNoForecast)
}
