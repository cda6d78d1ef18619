package domain

import "time"

// WMO weather code ranges used to classify a forecast hour.
const (
	weatherCodeThunderstorm = 95
)

// WeatherCategory groups WMO weather codes into the phenomena shown to users.
type WeatherCategory string

const (
	WeatherClear        WeatherCategory = "clear"
	WeatherCloudy       WeatherCategory = "cloudy"
	WeatherFog          WeatherCategory = "fog"
	WeatherDrizzle      WeatherCategory = "drizzle"
	WeatherRain         WeatherCategory = "rain"
	WeatherSnow         WeatherCategory = "snow"
	WeatherShowers      WeatherCategory = "showers"
	WeatherThunderstorm WeatherCategory = "thunderstorm"
	WeatherUnknown      WeatherCategory = "unknown"
)

// ClassifyWeatherCode maps a WMO code to its category.
func ClassifyWeatherCode(code int) WeatherCategory {
	switch {
	case code == 0:
		return WeatherClear
	case code >= 1 && code <= 3:
		return WeatherCloudy
	case code == 45 || code == 48:
		return WeatherFog
	case code >= 51 && code <= 57:
		return WeatherDrizzle
	case code >= 61 && code <= 67:
		return WeatherRain
	case code >= 71 && code <= 77:
		return WeatherSnow
	case code >= 80 && code <= 86:
		return WeatherShowers
	case code >= weatherCodeThunderstorm:
		return WeatherThunderstorm
	default:
		return WeatherUnknown
	}
}

var weatherDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// DescribeWeatherCode returns a short English description of a WMO code.
func DescribeWeatherCode(code int) string {
	if desc, ok := weatherDescriptions[code]; ok {
		return desc
	}
	if code >= weatherCodeThunderstorm {
		return weatherDescriptions[weatherCodeThunderstorm]
	}
	return "Unknown"
}

// Conditions summarizes the forecast hour containing "now".
type Conditions struct {
	Time                     time.Time       `json:"time"`
	TemperatureC             float64         `json:"temperature_c"`
	PrecipitationMM          float64         `json:"precipitation_mm"`
	PrecipitationProbability float64         `json:"precipitation_probability"`
	WeatherCode              int             `json:"weather_code"`
	Weather                  string          `json:"weather"`
	Category                 WeatherCategory `json:"category"`
}

// ConditionsReport pairs current conditions with the overall hazard level.
type ConditionsReport struct {
	Geo        Geo        `json:"geo"`
	Location   string     `json:"location"`
	Level      Severity   `json:"level"`
	Conditions Conditions `json:"conditions"`
}

// CurrentConditions returns the earliest non-past sample as Conditions.
// The boolean is false when no sample is eligible.
func CurrentConditions(samples []ForecastSample, now time.Time) (Conditions, bool) {
	points := eligibleHours(samples, now)
	if len(points) == 0 {
		return Conditions{}, false
	}
	s := points[0].sample
	return Conditions{
		Time:                     s.Time,
		TemperatureC:             s.TemperatureC,
		PrecipitationMM:          s.PrecipitationMM,
		PrecipitationProbability: s.PrecipitationProbability,
		WeatherCode:              s.WeatherCode,
		Weather:                  DescribeWeatherCode(s.WeatherCode),
		Category:                 ClassifyWeatherCode(s.WeatherCode),
	}, true
}
