// Command evaluate runs the hazard rule engine once and prints the alert
// report as JSON. The forecast comes from a saved Open-Meteo response or is
// fetched live for a coordinate.
//
// Usage:
//
//	go run ./cmd/evaluate -forecast cmd/evaluate/testdata/forecast.json -now 2024-10-14T09:00:00-05:00
//	go run ./cmd/evaluate -lat 3.4516 -lon -76.5320
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/hazard-alerts/internal/adapter/openmeteo"
	"github.com/couchcryptid/hazard-alerts/internal/domain"
	"github.com/couchcryptid/hazard-alerts/internal/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "evaluate:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	forecastPath := fs.String("forecast", "", `saved Open-Meteo response ("-" for stdin); fetched live when empty`)
	lat := fs.Float64("lat", 3.4516, "latitude for live fetch")
	lon := fs.Float64("lon", -76.5320, "longitude for live fetch")
	days := fs.Int("days", 7, "forecast days for live fetch")
	apiURL := fs.String("url", "https://api.open-meteo.com/v1/forecast", "Open-Meteo forecast endpoint")
	location := fs.String("location", "Cali, Valle del Cauca", "location label for alerts")
	nowFlag := fs.String("now", "", "evaluation time (RFC3339); defaults to the current time")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *nowFlag != "" {
		now, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			return fmt.Errorf("parse -now: %w", err)
		}
		// Fixed clock for reproducible labels.
		domain.SetClock(clockwork.NewFakeClockAt(now))
		defer domain.SetClock(nil)
	}

	geo := domain.Geo{Lat: *lat, Lon: *lon}
	if !geo.Valid() {
		return domain.ErrInvalidCoordinates
	}

	samples, err := loadForecast(ctx, *forecastPath, stdin, geo, *apiURL, *days)
	if err != nil {
		return err
	}

	now := domain.Now()
	alerts := domain.Evaluate(samples, *location, now)
	report := domain.AlertReport{
		Geo:         geo,
		Location:    *location,
		GeneratedAt: now,
		Level:       domain.OverallLevel(alerts),
		Alerts:      alerts,
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func loadForecast(ctx context.Context, path string, stdin io.Reader, geo domain.Geo, apiURL string, days int) ([]domain.ForecastSample, error) {
	switch path {
	case "":
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		client := openmeteo.NewClient(apiURL, days, 15*time.Second, observability.NewMetrics(), logger)
		return client.FetchHourly(ctx, geo.Lat, geo.Lon)
	case "-":
		return openmeteo.DecodeHourly(stdin)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open forecast: %w", err)
		}
		defer f.Close()
		return openmeteo.DecodeHourly(f)
	}
}
