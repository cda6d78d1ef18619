// Package openmeteo fetches hourly forecasts from the Open-Meteo API.
package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/hazard-alerts/internal/domain"
	"github.com/couchcryptid/hazard-alerts/internal/observability"
	"github.com/sony/gobreaker/v2"
)

const (
	hourlyVariables = "temperature_2m,precipitation,precipitation_probability,weather_code"
	breakerName     = "open-meteo"
	maxErrorBytes   = 512
)

// ErrNoForecast is returned when a response carries no hourly block.
var ErrNoForecast = errors.New("forecast response has no hourly data")

// Client fetches hourly forecasts for a coordinate.
type Client struct {
	httpClient *http.Client
	baseURL    string
	days       int
	breaker    *gobreaker.CircuitBreaker[[]domain.ForecastSample]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. days is the forecast horizon (1-16).
func NewClient(baseURL string, days int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		days:       days,
		breaker: gobreaker.NewCircuitBreaker[[]domain.ForecastSample](gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchHourly returns the hourly forecast for a coordinate, with times in the
// coordinate's local time zone.
func (c *Client) FetchHourly(ctx context.Context, lat, lon float64) ([]domain.ForecastSample, error) {
	params := url.Values{
		"latitude":      {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude":     {strconv.FormatFloat(lon, 'f', 4, 64)},
		"hourly":        {hourlyVariables},
		"forecast_days": {strconv.Itoa(c.days)},
		"timezone":      {"auto"},
	}

	start := time.Now()
	samples, err := c.breaker.Execute(func() ([]domain.ForecastSample, error) {
		return c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	})
	c.metrics.ForecastDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %w", domain.ErrForecastUnavailable, err)
		}
		return nil, fmt.Errorf("fetch forecast (%.4f, %.4f): %w", lat, lon, err)
	}
	c.metrics.ForecastRequests.WithLabelValues("success").Inc()
	c.logger.Debug("forecast fetched", "lat", lat, "lon", lon, "hours", len(samples))
	return samples, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.ForecastSample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w: %w", domain.ErrForecastUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		err := fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %w", domain.ErrForecastUnavailable, err)
		}
		return nil, err
	}

	return DecodeHourly(resp.Body)
}
