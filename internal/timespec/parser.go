// Package timespec parses the --since and --until flags shared by the history and
// customizations commands.
package timespec

import (
	"fmt"
	"time"
)

// Parse parses a time specification relative to now. Accepted forms:
//   - Go durations meaning "that long ago": "1h", "30m", "2h45m"
//   - Day counts meaning "that many days ago": "7d"
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
func Parse(spec string, now time.Time) (time.Time, error) {
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t, nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d), nil
	}

	var days int
	if n, err := fmt.Sscanf(spec, "%dd", &days); err == nil && n == 1 && fmt.Sprintf("%dd", days) == spec {
		return now.AddDate(0, 0, -days), nil
	}

	return time.Time{}, fmt.Errorf("invalid time specification: %s (use duration like '1h30m', days like '7d' or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

// Range is a time window. Zero ends are unbounded.
type Range struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether t lies inside the window (both ends inclusive).
func (r Range) Contains(t time.Time) bool {
	if !r.Since.IsZero() && t.Before(r.Since) {
		return false
	}
	if !r.Until.IsZero() && t.After(r.Until) {
		return false
	}
	return true
}

// ParseRange parses both flags and checks since is before until.
func ParseRange(since, until string, now time.Time) (Range, error) {
	var r Range
	var err error

	if since != "" {
		if r.Since, err = Parse(since, now); err != nil {
			return Range{}, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		if r.Until, err = Parse(until, now); err != nil {
			return Range{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if !r.Since.IsZero() && !r.Until.IsZero() && !r.Since.Before(r.Until) {
		return Range{}, fmt.Errorf("--since must be before --until")
	}

	return r, nil
}
