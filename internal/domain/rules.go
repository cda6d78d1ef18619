package domain

import "fmt"

// Thresholds for the hazard rules. Precipitation in mm per hour,
// probability in percent, temperature in °C.
const (
	heavyRainMinMM          = 5.0
	heavyRainMinProbability = 70.0
	heavyRainDangerMM       = 10.0

	moderateRainMinMM          = 2.0
	moderateRainMaxMM          = 5.0
	moderateRainMinProbability = 60.0
	rainWarningMinProbability  = 80.0

	extremeHeatMinC = 35.0

	floodBlockHours  = 6
	floodBlockStride = 12
	floodMinWetHours = 4
	floodMinTotalMM  = 15.0
)

// trigger carries the values that made a rule fire. For flood risk,
// precipitationMM is the block total.
type trigger struct {
	precipitationMM float64
	probability     float64
	temperatureC    float64
	weatherCode     int
	wetHours        int
}

// rule is one row of the hazard table. match inspects points[i] (and, for
// block rules, the points after it).
type rule struct {
	kind     HazardKind
	title    string
	icon     string
	match    func(points []hourPoint, i int) (trigger, bool)
	severity func(trigger) Severity
	describe func(trigger) string
}

// rules are evaluated in this order for every hour.
var rules = []rule{
	{
		kind:  HazardHeavyRain,
		title: "Heavy Rain Expected",
		icon:  "🌧️",
		match: hourly(func(s ForecastSample) bool {
			return s.PrecipitationMM > heavyRainMinMM && s.PrecipitationProbability > heavyRainMinProbability
		}),
		severity: func(t trigger) Severity {
			if t.precipitationMM > heavyRainDangerMM {
				return SeverityDanger
			}
			return SeverityAlert
		},
		describe: func(t trigger) string {
			return fmt.Sprintf("%.1fmm of rain expected with %.0f%% probability. Flooding is possible in low-lying areas.",
				t.precipitationMM, t.probability)
		},
	},
	{
		kind:  HazardThunderstorm,
		title: "Thunderstorm",
		icon:  "⛈️",
		match: hourly(func(s ForecastSample) bool {
			return s.WeatherCode >= weatherCodeThunderstorm
		}),
		severity: fixed(SeverityDanger),
		describe: func(t trigger) string {
			return fmt.Sprintf("%s forecast (code %d). Stay indoors and away from open areas, trees and power lines.",
				DescribeWeatherCode(t.weatherCode), t.weatherCode)
		},
	},
	{
		kind:     HazardFloodRisk,
		title:    "Flood Risk",
		icon:     "🌊",
		match:    floodBlock,
		severity: fixed(SeverityDanger),
		describe: func(t trigger) string {
			return fmt.Sprintf("%.1fmm of rain accumulated over %d of the next %d hours. Watch for rising rivers and overflowing drains.",
				t.precipitationMM, t.wetHours, floodBlockHours)
		},
	},
	{
		kind:  HazardRainProbability,
		title: "High Chance of Rain",
		icon:  "☔",
		match: hourly(func(s ForecastSample) bool {
			return s.PrecipitationProbability > rainWarningMinProbability && isModerateAmount(s.PrecipitationMM)
		}),
		severity: fixed(SeverityWarning),
		describe: func(t trigger) string {
			return fmt.Sprintf("%.0f%% chance of rain with %.1fmm expected. Carry rain protection.",
				t.probability, t.precipitationMM)
		},
	},
	{
		kind:  HazardModerateRain,
		title: "Moderate Rain",
		icon:  "🌦️",
		match: hourly(func(s ForecastSample) bool {
			return isModerateAmount(s.PrecipitationMM) && s.PrecipitationProbability > moderateRainMinProbability
		}),
		severity: fixed(SeverityWarning),
		describe: func(t trigger) string {
			return fmt.Sprintf("Moderate rain of %.1fmm expected (%.0f%% probability). Roads may be slippery.",
				t.precipitationMM, t.probability)
		},
	},
	{
		kind:  HazardExtremeHeat,
		title: "Extreme Heat",
		icon:  "🌡️",
		match: hourly(func(s ForecastSample) bool {
			return s.TemperatureC > extremeHeatMinC
		}),
		severity: fixed(SeverityAlert),
		describe: func(t trigger) string {
			return fmt.Sprintf("Temperature of %.1f°C expected. Stay hydrated and avoid direct sun.", t.temperatureC)
		},
	},
}

// hourly adapts a single-sample predicate to a rule matcher.
func hourly(pred func(ForecastSample) bool) func([]hourPoint, int) (trigger, bool) {
	return func(points []hourPoint, i int) (trigger, bool) {
		s := points[i].sample
		if !pred(s) {
			return trigger{}, false
		}
		return trigger{
			precipitationMM: s.PrecipitationMM,
			probability:     s.PrecipitationProbability,
			temperatureC:    s.TemperatureC,
			weatherCode:     s.WeatherCode,
		}, true
	}
}

// floodBlock opens a block covering the floodBlockHours wall-clock hours
// from an offset that is a multiple of floodBlockStride. Hours missing from
// the series count as dry. Blocks that run past the last sample never match.
func floodBlock(points []hourPoint, i int) (trigger, bool) {
	start := points[i].offset
	if start%floodBlockStride != 0 || points[len(points)-1].offset < start+floodBlockHours-1 {
		return trigger{}, false
	}

	var t trigger
	for _, p := range points[i:] {
		if p.offset >= start+floodBlockHours {
			break
		}
		if p.sample.PrecipitationMM > 0 {
			t.wetHours++
		}
		t.precipitationMM += p.sample.PrecipitationMM
	}
	if t.wetHours >= floodMinWetHours && t.precipitationMM > floodMinTotalMM {
		return t, true
	}
	return trigger{}, false
}

func isModerateAmount(mm float64) bool {
	return mm > moderateRainMinMM && mm <= moderateRainMaxMM
}

func fixed(level Severity) func(trigger) Severity {
	return func(trigger) Severity { return level }
}
