package config

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationRE     = regexp.MustCompile(`^(?:\d+(?:mo|[smhdwy]))+$`)
	durationPartRE = regexp.MustCompile(`(\d+)(mo|[smhdwy])`)
)

// ParseDuration parses a label duration. A bare integer is a number of seconds; otherwise
// it is a sequence of "<integer><unit>" where unit is one of s, m (minutes), h, d, w,
// mo (30 days) or y (365 days), e.g. "30d", "1mo" or "1d12h".
func ParseDuration(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if secs, err := strconv.Atoi(input); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative duration: %s", input)
		}
		return scale(int64(secs), time.Second, input)
	}
	if !durationRE.MatchString(input) {
		return 0, fmt.Errorf("invalid duration format: %s", input)
	}
	var total time.Duration
	for _, m := range durationPartRE.FindAllStringSubmatch(input, -1) {
		value, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("invalid number: %s", m[1])
		}
		var unit time.Duration
		switch m[2] {
		case "s":
			unit = time.Second
		case "m":
			unit = time.Minute
		case "h":
			unit = time.Hour
		case "d":
			unit = 24 * time.Hour
		case "w":
			unit = 7 * 24 * time.Hour
		case "mo":
			unit = 30 * 24 * time.Hour // approximation
		case "y":
			unit = 365 * 24 * time.Hour // approximation
		}
		part, err := scale(int64(value), unit, input)
		if err != nil {
			return 0, err
		}
		if total > math.MaxInt64-part {
			return 0, fmt.Errorf("duration out of range: %s", input)
		}
		total += part
	}
	return total, nil
}

func scale(value int64, unit time.Duration, input string) (time.Duration, error) {
	if value > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("duration out of range: %s", input)
	}
	return time.Duration(value) * unit, nil
}

// ParseBool accepts the usual spellings of true and false, case-insensitively:
// 1, t, true, y, yes, on and 0, f, false, n, no, off.
func ParseBool(input string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %q", input)
}

func parseInt(input string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %q", input)
	}
	return v, nil
}
