package types

import (
	"testing"
	"time"
)

func TestFormatTimestampMilliseconds(t *testing.T) {
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 8, 30, 10, 0, 0, 500*int(time.Millisecond), time.UTC), "2026-08-30_10-00-00-500"},
		{time.Date(2026, 8, 30, 10, 0, 0, 7*int(time.Millisecond), time.UTC), "2026-08-30_10-00-00-007"},
		{time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), "2026-08-30_10-00-00-000"},
		{time.Date(2026, 12, 31, 23, 59, 59, 999*int(time.Millisecond), time.UTC), "2026-12-31_23-59-59-999"},
	}
	for _, tc := range cases {
		if got := FormatTimestamp(tc.at); got != tc.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestFormatTimestampDistinctWithinOneSecond(t *testing.T) {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	a := FormatTimestamp(base.Add(100 * time.Millisecond))
	b := FormatTimestamp(base.Add(200 * time.Millisecond))
	if a == b {
		t.Fatalf("frames in the same second render the same timestamp %q", a)
	}
}
