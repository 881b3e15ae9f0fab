package config

import (
	"testing"
	"time"
)

func TestParseDurationExtended(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"90s", 90 * time.Second},
		{"1.5h", 90 * time.Minute},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"1w2d", 9 * 24 * time.Hour},
		{"1.5d", 36 * time.Hour},
		{"-2w", -14 * 24 * time.Hour},
		{"1d12h", 36 * time.Hour},
	}
	for _, tc := range cases {
		got, err := parseDurationExtended(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseDurationExtendedRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "d", "1dd2", "one week", "1x"} {
		if _, err := parseDurationExtended(in); err == nil {
			t.Fatalf("expected parse %q to fail", in)
		}
	}
}
