package scheduler

import (
	"strconv"
	"strings"
	"time"
)

// unitDurations maps the interval suffixes the config accepts onto their
// base durations. Seconds are deliberately absent: cycles align to bar
// closes and nothing here trades sub-minute bars.
var unitDurations = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseIntervalDuration converts a bar interval such as "15m", "4h" or "1d"
// into a time.Duration. The bool is false for anything malformed,
// non-positive or carrying an unknown unit.
func ParseIntervalDuration(interval string) (time.Duration, bool) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return 0, false
	}
	base, ok := unitDurations[interval[len(interval)-1]]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(interval[:len(interval)-1]))
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * base, true
}
