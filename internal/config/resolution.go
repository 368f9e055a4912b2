package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseResolution turns a snapshot resolution label such as "1h", "15m" or
// "1d" into the bucket width.
func ParseResolution(label string) (time.Duration, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, fmt.Errorf("resolution is required")
	}

	var width time.Duration
	switch unit := label[len(label)-1]; unit {
	case 'd', 'w':
		n, err := strconv.ParseUint(label[:len(label)-1], 10, 32)
		if err != nil || n == 0 {
			return 0, fmt.Errorf("invalid resolution %q", label)
		}
		width = time.Duration(n) * 24 * time.Hour
		if unit == 'w' {
			width *= 7
		}
	default:
		d, err := time.ParseDuration(label)
		if err != nil {
			return 0, fmt.Errorf("invalid resolution %q: %w", label, err)
		}
		width = d
	}

	if width < time.Second || width%time.Second != 0 {
		return 0, fmt.Errorf("resolution %q must be a whole number of seconds", label)
	}
	return width, nil
}
