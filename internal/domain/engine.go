package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// MaxAlerts caps the number of alerts a single evaluation returns.
const MaxAlerts = 15

// hourPoint is a sample paired with its hour offset from the current hour.
type hourPoint struct {
	sample ForecastSample
	offset int
}

// hazardWindow is the deduplication key: one alert per hazard per day.
type hazardWindow struct {
	kind HazardKind
	day  int
}

// Evaluate turns an hourly forecast into a time-ordered list of hazard alerts
// for the given location label. It scans samples once from the current hour
// forward, applies every rule per hour, keeps at most one alert per hazard
// per day, and stops after MaxAlerts. When nothing matches (including empty
// or entirely past input) it returns a single favorable-conditions alert.
//
// Evaluate is pure: now is the only notion of time it uses.
func Evaluate(samples []ForecastSample, location string, now time.Time) []Alert {
	points := eligibleHours(samples, now)
	seen := make(map[hazardWindow]struct{})
	alerts := make([]Alert, 0, MaxAlerts)

scan:
	for i := range points {
		for r := range rules {
			w := hazardWindow{kind: rules[r].kind, day: points[i].offset / 24}
			if _, ok := seen[w]; ok {
				continue
			}
			t, ok := rules[r].match(points, i)
			if !ok {
				continue
			}
			seen[w] = struct{}{}
			alerts = append(alerts, newAlert(&rules[r], t, location, points[i].offset, len(alerts)+1))
			if len(alerts) >= MaxAlerts {
				break scan
			}
		}
	}

	if len(alerts) == 0 {
		return []Alert{favorableAlert(location)}
	}

	sortByTimeLabel(alerts)
	return alerts
}

// eligibleHours drops samples without a timestamp and samples before the
// current hour, and assigns each remaining sample its hour offset. The
// current hour is taken in the forecast's own time zone.
func eligibleHours(samples []ForecastSample, now time.Time) []hourPoint {
	var start time.Time
	points := make([]hourPoint, 0, len(samples))

	for _, s := range samples {
		if s.Time.IsZero() {
			continue
		}
		if start.IsZero() {
			start = hourStart(now, s.Time.Location())
		}
		offset := int(math.Floor(s.Time.Sub(start).Hours()))
		if offset < 0 {
			continue
		}
		points = append(points, hourPoint{sample: s, offset: offset})
	}
	return points
}

func hourStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
}

func newAlert(r *rule, t trigger, location string, offset, seq int) Alert {
	return Alert{
		ID:          fmt.Sprintf("%s-%d", r.kind, seq),
		Kind:        r.kind,
		Title:       r.title,
		Description: r.describe(t),
		Level:       r.severity(t),
		Location:    location,
		Time:        FormatTimeLabel(offset),
		Icon:        r.icon,
	}
}

func favorableAlert(location string) Alert {
	return Alert{
		ID:          fmt.Sprintf("%s-1", HazardFavorable),
		Kind:        HazardFavorable,
		Title:       "Favorable Conditions",
		Description: "No weather hazards detected in the forecast for the coming days.",
		Level:       SeveritySafe,
		Location:    location,
		Time:        FormatTimeLabel(0),
		Icon:        "☀️",
	}
}

// sortByTimeLabel orders alerts soonest first by re-parsing their labels.
// The sort is stable so alerts for the same hour keep rule order.
func sortByTimeLabel(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return labelHours(alerts[i].Time) < labelHours(alerts[j].Time)
	})
}

func labelHours(label string) int {
	h, err := ParseTimeLabel(label)
	if err != nil {
		return math.MaxInt
	}
	return h
}
