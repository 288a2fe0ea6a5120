package schedule

import (
	"errors"
	"testing"
	"time"
)

const testTZ = "Asia/Manila"

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(testTZ, DefaultHours())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func localTime(t *testing.T, hour, min, sec int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(testTZ)
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return time.Date(2025, time.March, 10, hour, min, sec, 0, loc)
}

func TestResolveLocalBoundaries(t *testing.T) {
	r := testResolver(t)
	cases := []struct {
		name    string
		at      time.Time
		want    Period
		outside bool
	}{
		{"one second before open", localTime(t, 5, 59, 59), 0, true},
		{"opening instant", localTime(t, 6, 0, 0), PeriodMorning, false},
		{"last morning second", localTime(t, 11, 59, 59), PeriodMorning, false},
		{"noon flips to afternoon", localTime(t, 12, 0, 0), PeriodAfternoon, false},
		{"last afternoon second", localTime(t, 21, 59, 59), PeriodAfternoon, false},
		{"closing instant", localTime(t, 22, 0, 0), 0, true},
		{"midnight", localTime(t, 0, 30, 0), 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			moment, err := r.ResolveLocal(tc.at)
			if tc.outside {
				if !errors.Is(err, ErrOutsideHours) {
					t.Fatalf("ResolveLocal(%s) err = %v, want ErrOutsideHours", tc.at, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveLocal(%s): %v", tc.at, err)
			}
			if moment.Period != tc.want {
				t.Fatalf("period = %s, want %s", moment.Period, tc.want)
			}
		})
	}
}

func TestResolveLocalDayBucket(t *testing.T) {
	r := testResolver(t)
	moment, err := r.ResolveLocal(localTime(t, 7, 15, 30))
	if err != nil {
		t.Fatalf("ResolveLocal: %v", err)
	}
	if got := moment.DayBucket.Format("2006-01-02 15:04:05"); got != "2025-03-10 00:00:00" {
		t.Fatalf("day bucket = %s, want local midnight 2025-03-10", got)
	}
	if moment.DayBucket.Location().String() != testTZ {
		t.Fatalf("day bucket location = %s, want %s", moment.DayBucket.Location(), testTZ)
	}
}

func TestResolveLocalConvertsInstant(t *testing.T) {
	r := testResolver(t)
	// 23:00 UTC on March 9 is 07:00 on March 10 in Manila (UTC+8).
	moment, err := r.ResolveLocal(time.Date(2025, time.March, 9, 23, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ResolveLocal: %v", err)
	}
	if moment.Period != PeriodMorning {
		t.Fatalf("period = %s, want MORNING", moment.Period)
	}
	if got := moment.DayBucket.Format("2006-01-02"); got != "2025-03-10" {
		t.Fatalf("day bucket = %s, want 2025-03-10", got)
	}
	if moment.Local.Hour() != 7 {
		t.Fatalf("local hour = %d, want 7", moment.Local.Hour())
	}
}

func TestResolverConfig(t *testing.T) {
	if _, err := NewResolver("Not/AZone", DefaultHours()); err == nil {
		t.Fatal("want error for unknown timezone")
	}
	if _, err := NewResolver(testTZ, Hours{MorningStart: 12, AfternoonStart: 6, Close: 22}); err == nil {
		t.Fatal("want error for non-increasing boundaries")
	}

	r, err := NewResolver(testTZ, Hours{MorningStart: 7, AfternoonStart: 13, Close: 18})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if _, err := r.ResolveLocal(localTime(t, 6, 30, 0)); !errors.Is(err, ErrOutsideHours) {
		t.Fatal("custom morning start not honored")
	}
	moment, err := r.ResolveLocal(localTime(t, 12, 30, 0))
	if err != nil {
		t.Fatalf("ResolveLocal: %v", err)
	}
	if moment.Period != PeriodMorning {
		t.Fatalf("period = %s, want MORNING under shifted noon", moment.Period)
	}
}
