package config

import (
	"fmt"
	"strings"
	"time"
)

// Durations in the config are Go duration strings ("5s", "1m30s").
// Negative values are rejected; no knob here means anything run
// backwards.

func parseDuration(path, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: bad duration %q: %w", path, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", path, s)
	}
	return d, nil
}

// ParseDurationField reads an optional duration. Empty means unset and
// parses to zero.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	return parseDuration(path, s)
}

// ParseDurationOrDefault is ParseDurationField with a fallback: unset or
// explicit zero both yield def, so a blank config line never disables a
// delay entirely.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := parseDuration(path, s)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
