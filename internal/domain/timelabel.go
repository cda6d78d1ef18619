package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidTimeLabel is returned by ParseTimeLabel for text that
// FormatTimeLabel could not have produced.
var ErrInvalidTimeLabel = errors.New("invalid time label")

var (
	// unitLabelRe matches "in 3 hours", "in 1 hour", "in 2 days", "in 1 day".
	unitLabelRe = regexp.MustCompile(`^in (\d+) (hours?|days?)$`)

	// mixedLabelRe matches "in 2d 5h".
	mixedLabelRe = regexp.MustCompile(`^in (\d+)d (\d+)h$`)
)

// FormatTimeLabel renders an hour offset from now as a display label:
//
//	0           -> "now"
//	1..23       -> "in 1 hour" / "in N hours"
//	24*k        -> "in 1 day" / "in N days"
//	otherwise   -> "in Dd Hh"
//
// Negative offsets render as "now".
func FormatTimeLabel(hours int) string {
	switch {
	case hours <= 0:
		return "now"
	case hours == 1:
		return "in 1 hour"
	case hours < 24:
		return fmt.Sprintf("in %d hours", hours)
	case hours == 24:
		return "in 1 day"
	case hours%24 == 0:
		return fmt.Sprintf("in %d days", hours/24)
	default:
		return fmt.Sprintf("in %dd %dh", hours/24, hours%24)
	}
}

// ParseTimeLabel is the inverse of FormatTimeLabel.
func ParseTimeLabel(label string) (int, error) {
	if label == "now" {
		return 0, nil
	}

	if m := unitLabelRe.FindStringSubmatch(label); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeLabel, label)
		}
		switch m[2] {
		case "hour", "hours":
			return n, nil
		default:
			return n * 24, nil
		}
	}

	if m := mixedLabelRe.FindStringSubmatch(label); m != nil {
		days, errD := strconv.Atoi(m[1])
		hours, errH := strconv.Atoi(m[2])
		if errD != nil || errH != nil || hours >= 24 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeLabel, label)
		}
		return days*24 + hours, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidTimeLabel, label)
}
