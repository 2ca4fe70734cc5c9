package catalog

import (
	"math"
	"testing"
)

func TestParseEnrollment(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"5.3k", 5300},
		{"17k", 17000},
		{"130K", 130000},
		{"2m", 2000000},
		{"1.5M", 1500000},
		{"150", 150},
		{"150.9", 150},
		{" 42 ", 42},
		{"bad", 0},
		{"k", 0},
		{"", 0},
		{"NaN", 0},
	}

	for _, tc := range tests {
		if got := ParseEnrollment(tc.in); got != tc.want {
			t.Errorf("ParseEnrollment(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEnrollmentFromFloat(t *testing.T) {
	if got := EnrollmentFromFloat(1234.99); got != 1234 {
		t.Errorf("EnrollmentFromFloat(1234.99) = %d", got)
	}
	if got := EnrollmentFromFloat(math.NaN()); got != 0 {
		t.Errorf("EnrollmentFromFloat(NaN) = %d", got)
	}
	if got := EnrollmentFromFloat(math.Inf(1)); got != 0 {
		t.Errorf("EnrollmentFromFloat(+Inf) = %d", got)
	}
}
