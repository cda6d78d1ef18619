package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/hazard-alerts/internal/domain"
	"github.com/couchcryptid/hazard-alerts/internal/observability"
	"golang.org/x/sync/errgroup"
)

// ErrNoCurrentConditions is returned when a forecast has no hour at or after now.
var ErrNoCurrentConditions = errors.New("forecast has no current hour")

// ForecastSource fetches the hourly forecast for a coordinate.
type ForecastSource interface {
	FetchHourly(ctx context.Context, lat, lon float64) ([]domain.ForecastSample, error)
}

// Assessor turns a coordinate into a hazard report: it fetches the forecast,
// resolves a place label and runs the rule engine.
type Assessor struct {
	forecasts ForecastSource
	geocoder  domain.Geocoder
	fallback  string
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewAssessor creates an Assessor. Pass a nil geocoder to always label
// reports with fallback.
func NewAssessor(forecasts ForecastSource, geocoder domain.Geocoder, fallback string, metrics *observability.Metrics, logger *slog.Logger) *Assessor {
	return &Assessor{
		forecasts: forecasts,
		geocoder:  geocoder,
		fallback:  fallback,
		metrics:   metrics,
		logger:    logger,
	}
}

// Assess evaluates the forecast for req and returns the alert report.
// Only forecast failures are returned; geocoding failures degrade to the
// fallback label.
func (a *Assessor) Assess(ctx context.Context, req domain.AssessmentRequest) (domain.AlertReport, error) {
	geo := req.Geo()
	samples, location, err := a.gather(ctx, geo)
	if err != nil {
		return domain.AlertReport{}, err
	}

	now := domain.Now()
	alerts := domain.Evaluate(samples, location, now)
	for _, alert := range alerts {
		a.metrics.AlertsEmitted.WithLabelValues(string(alert.Kind), alert.Level.String()).Inc()
	}

	report := domain.AlertReport{
		RequestID:   req.RequestID,
		Geo:         geo,
		Location:    location,
		GeneratedAt: now,
		Level:       domain.OverallLevel(alerts),
		Alerts:      alerts,
	}
	a.logger.Debug("assessment complete",
		"request_id", req.RequestID,
		"location", location,
		"level", report.Level,
		"alerts", len(alerts),
	)
	return report, nil
}

// Conditions returns the current-hour weather for geo with the overall
// hazard level of the full forecast.
func (a *Assessor) Conditions(ctx context.Context, geo domain.Geo) (domain.ConditionsReport, error) {
	samples, location, err := a.gather(ctx, geo)
	if err != nil {
		return domain.ConditionsReport{}, err
	}

	now := domain.Now()
	current, ok := domain.CurrentConditions(samples, now)
	if !ok {
		return domain.ConditionsReport{}, ErrNoCurrentConditions
	}

	return domain.ConditionsReport{
		Geo:        geo,
		Location:   location,
		Level:      domain.OverallLevel(domain.Evaluate(samples, location, now)),
		Conditions: current,
	}, nil
}

// gather fetches the forecast and the place label concurrently. The geocoder
// runs on the caller's context so a forecast failure does not cancel it.
func (a *Assessor) gather(ctx context.Context, geo domain.Geo) ([]domain.ForecastSample, string, error) {
	var (
		samples  []domain.ForecastSample
		location string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		samples, err = a.forecasts.FetchHourly(gctx, geo.Lat, geo.Lon)
		return err
	})
	g.Go(func() error {
		location = domain.ResolveLocation(ctx, a.geocoder, geo, a.fallback, a.logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	return samples, location, nil
}
