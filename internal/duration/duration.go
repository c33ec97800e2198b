// Package duration parses the retention windows used by vacuum and
// conversation cleanup: "12h", "7d", "4w" or "3m" (30-day months).
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var pattern = regexp.MustCompile(`^(\d+)([hdwm])$`)

const day = 24 * time.Hour

// Parse parses Nh (hours), Nd (days), Nw (weeks) or Nm (months).
func Parse(s string) (time.Duration, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration format: %s (use 12h, 7d, 4w or 3m)", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}

	unit := map[string]time.Duration{"h": time.Hour, "d": day, "w": 7 * day, "m": 30 * day}[m[2]]
	return time.Duration(n) * unit, nil
}

// ParseOptional returns nil for an empty string, meaning "no cutoff".
func ParseOptional(s string) (*time.Duration, error) {
	if s == "" {
		return nil, nil
	}
	d, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
