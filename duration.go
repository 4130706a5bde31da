package switcher

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseDurationString parses the silentMode duration grammar
// of the shape "<integer><unit>" with unit in {s, m, h}. Unlike
// time.ParseDuration this rejects any unit outside that allow-list
// (fractional durations, "ns", "us", "ms" ...) so a typo surfaces as
// ErrValidationInput instead of silently parsing to something else.
func parseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, newOpError("parseDuration", ErrValidationInput, 0, fmt.Errorf("empty duration string"))
	}

	unit := s[len(s)-1:]
	var mul time.Duration
	switch unit {
	case "s":
		mul = time.Second
	case "m":
		mul = time.Minute
	case "h":
		mul = time.Hour
	default:
		return 0, newOpError("parseDuration", ErrValidationInput, 0,
			fmt.Errorf("unsupported time unit %q in %q (expected s, m, or h)", unit, s))
	}

	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, newOpError("parseDuration", ErrValidationInput, 0,
			fmt.Errorf("invalid integer in duration %q: %w", s, err))
	}
	if n < 0 {
		return 0, newOpError("parseDuration", ErrValidationInput, 0,
			fmt.Errorf("negative duration %q", s))
	}

	return time.Duration(n) * mul, nil
}
