package domain

import "context"

// GeocodingResult contains place data returned by a reverse geocoding provider.
type GeocodingResult struct {
	Label            string // "City, State" display label
	City             string
	State            string
	FormattedAddress string
}

// Geocoder resolves coordinates to a human-readable place.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
