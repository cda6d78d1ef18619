// Package domain turns hourly weather forecasts into community hazard alerts.
//
// # Data Source
//
// Forecasts come from the Open-Meteo hourly API (see adapter/openmeteo). Each
// hour carries temperature (°C), precipitation (mm in that hour), the
// probability of precipitation (0–100) and a WMO weather code. Samples are
// ordered by time and spaced one hour apart; the engine assumes but does not
// validate this.
//
// # Hour Offsets
//
// Every sample is indexed by its offset in whole hours from the start of the
// current hour, measured in the forecast's own time zone:
//
//	offset 0   the hour containing "now"
//	offset <0  past hours, ignored
//	day        floor(offset / 24)
//
// # Hazard Rules
//
// Rules are evaluated per hour in a fixed order:
//
//	heavy_rain        precip > 5mm and prob > 70%       danger if > 10mm, else alert
//	thunderstorm      weather code >= 95                danger
//	flood_risk        6h block at offsets % 12 == 0,    danger
//	                  >= 4 wet hours and total > 15mm
//	rain_probability  prob > 80% and 2mm < precip <= 5  warning
//	moderate_rain     2mm < precip <= 5 and prob > 60%  warning
//	extreme_heat      temperature > 35°C                alert
//
// rain_probability and moderate_rain overlap and may both fire for the same
// hour; each is deduplicated only against itself.
//
// A hazard window (kind, day) admits at most one alert. The scan stops once
// [MaxAlerts] alerts exist, so earlier hazards win over later ones.
//
// # Time Labels
//
// Alerts carry a relative time label rather than a timestamp:
//
//	"now" | "in 1 hour" | "in N hours" | "in 1 day" | "in N days" | "in Dd Hh"
//
// [FormatTimeLabel] and [ParseTimeLabel] are inverses; the final ordering is
// computed from the parsed labels.
//
// # WMO Weather Codes
//
//	0 clear | 1–3 cloudy | 45,48 fog | 51–57 drizzle | 61–67 rain
//	71–77 snow | 80–86 showers | 95–99 thunderstorm
package domain
