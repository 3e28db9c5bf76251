package cleanup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSchedule runs the job hourly.
const DefaultSchedule = "every 1 hours"

var ErrInvalidSchedule = errors.New("invalid cleanup schedule")

var scheduleUnits = map[string]time.Duration{
	"second":  time.Second,
	"seconds": time.Second,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"mins":    time.Minute,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
}

// ParseSchedule accepts "every <n> <unit>" (for example "every 1 hours" or
// "every 30 minutes") or a Go duration such as "90m".
func ParseSchedule(schedule string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(schedule))

	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidSchedule, schedule)
		}

		return d, nil
	}

	fields := strings.Fields(s)
	if len(fields) != 3 || fields[0] != "every" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSchedule, schedule)
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q needs a positive count", ErrInvalidSchedule, schedule)
	}

	unit, ok := scheduleUnits[fields[2]]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidSchedule, fields[2])
	}

	return time.Duration(n) * unit, nil
}
