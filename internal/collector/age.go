package collector

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// agePattern matches LinkedIn's relative-age indicators: "45m", "5h", "3d",
// "2w", "1mo", "1yr", optionally followed by noise like "• Edited".
var agePattern = regexp.MustCompile(`^(\d+)\s*(m|h|d|w|mo|yr)\b`)

// ParseRelativeAge converts a scraped relative-age string to a duration.
// Returns ok=false for anything it cannot read ("Just now", empty, future
// markup changes); callers treat unreadable ages as passing the filter.
func ParseRelativeAge(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	m := agePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	var unit time.Duration
	switch m[2] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	case "mo":
		unit = 30 * 24 * time.Hour
	case "yr":
		unit = 365 * 24 * time.Hour
	default:
		return 0, false
	}

	return time.Duration(n) * unit, true
}
