package domain

import (
	"context"
	"log/slog"
)

// ResolveLocation returns the display label for a coordinate. If geocoder is
// nil, fails, or returns an empty label, fallback is returned instead
// (graceful degradation).
func ResolveLocation(ctx context.Context, geocoder Geocoder, geo Geo, fallback string, logger *slog.Logger) string {
	if geocoder == nil {
		return fallback
	}

	result, err := geocoder.ReverseGeocode(ctx, geo.Lat, geo.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", geo.Lat,
			"lon", geo.Lon,
			"error", err,
		)
		return fallback
	}
	if result.Label == "" {
		return fallback
	}
	return result.Label
}
