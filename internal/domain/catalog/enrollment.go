package catalog

import (
	"math"
	"strconv"
	"strings"
)

// ParseEnrollment converts a human-readable enrollment count such as "5.3k",
// "17k", "2m" or "150" into an integer. Anything unparseable yields 0.
func ParseEnrollment(raw string) int64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || s == "nan" {
		return 0
	}

	mult := 1.0
	switch {
	case strings.Contains(s, "k"):
		mult = 1_000
		s = strings.ReplaceAll(s, "k", "")
	case strings.Contains(s, "m"):
		mult = 1_000_000
		s = strings.ReplaceAll(s, "m", "")
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return EnrollmentFromFloat(f * mult)
}

// EnrollmentFromFloat truncates an already-numeric enrollment. NaN and Inf map to 0.
func EnrollmentFromFloat(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}
