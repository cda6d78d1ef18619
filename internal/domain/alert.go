package domain

import (
	"fmt"
	"time"
)

// Severity ranks how urgently an alert needs attention.
// The zero value is SeveritySafe.
type Severity int

const (
	SeveritySafe Severity = iota
	SeverityWarning
	SeverityAlert
	SeverityDanger
)

var severityNames = [...]string{
	SeveritySafe:    "safe",
	SeverityWarning: "warning",
	SeverityAlert:   "alert",
	SeverityDanger:  "danger",
}

func (s Severity) String() string {
	if s < SeveritySafe || s > SeverityDanger {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// MarshalText encodes the severity as its lowercase name.
func (s Severity) MarshalText() ([]byte, error) {
	if s < SeveritySafe || s > SeverityDanger {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(severityNames[s]), nil
}

// UnmarshalText decodes a lowercase severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity maps a severity name back to its level.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SeveritySafe, fmt.Errorf("unknown severity %q", name)
}

// HazardKind identifies the rule that produced an alert.
type HazardKind string

const (
	HazardHeavyRain       HazardKind = "heavy_rain"
	HazardThunderstorm    HazardKind = "thunderstorm"
	HazardFloodRisk       HazardKind = "flood_risk"
	HazardRainProbability HazardKind = "rain_probability"
	HazardModerateRain    HazardKind = "moderate_rain"
	HazardExtremeHeat     HazardKind = "extreme_heat"
	HazardFavorable       HazardKind = "favorable"
)

// Alert is a single hazard notice ready for display.
type Alert struct {
	ID          string     `json:"id"`
	Kind        HazardKind `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Level       Severity   `json:"level"`
	Location    string     `json:"location"`
	Time        string     `json:"time"`
	Icon        string     `json:"icon"`
}

// AlertReport is the result of one assessment cycle for a coordinate.
type AlertReport struct {
	RequestID   string    `json:"request_id,omitempty"`
	Geo         Geo       `json:"geo"`
	Location    string    `json:"location"`
	GeneratedAt time.Time `json:"generated_at"`
	Level       Severity  `json:"level"`
	Alerts      []Alert   `json:"alerts"`
}

// OverallLevel returns the highest severity among alerts, or SeveritySafe
// for an empty list.
func OverallLevel(alerts []Alert) Severity {
	level := SeveritySafe
	for i := range alerts {
		if alerts[i].Level > level {
			level = alerts[i].Level
		}
	}
	return level
}
