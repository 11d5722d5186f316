package moderation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

var unitSeconds = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
}

// ParseDuration accepts `<integer><unit>` with unit one of s, m, h, d and
// returns a strictly positive duration.
func ParseDuration(value string) (time.Duration, error) {
	match := durationPattern.FindStringSubmatch(value)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, value)
	}
	count, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, value)
	}
	if count <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidDuration, value)
	}
	unit := unitSeconds[match[2]]
	if count > math.MaxInt64/int64(time.Second)/unit {
		return 0, fmt.Errorf("%w: %q is too long", ErrInvalidDuration, value)
	}
	return time.Duration(count*unit) * time.Second, nil
}

// IsDisable reports whether value asks to switch a setting off rather than
// apply it for a period.
func IsDisable(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "off":
		return true
	default:
		return false
	}
}

// FormatRemaining renders d as "2 days, 3 hours, 5 minutes". Seconds only
// appear when no larger unit does.
func FormatRemaining(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0 seconds"
	}

	days := seconds / 86400
	seconds %= 86400
	hours := seconds / 3600
	seconds %= 3600
	minutes := seconds / 60
	seconds %= 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 && len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.FormatInt(n, 10) + " " + unit + "s"
}
