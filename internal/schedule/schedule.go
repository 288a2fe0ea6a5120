// Package schedule maps scan instants onto the institution's local
// wall clock: the calendar day bucket and the morning/afternoon period.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Period is the half-day a scan falls into.
type Period int

const (
	PeriodMorning Period = iota
	PeriodAfternoon
)

func (p Period) String() string {
	switch p {
	case PeriodMorning:
		return "MORNING"
	case PeriodAfternoon:
		return "AFTERNOON"
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// ErrOutsideHours marks scans outside the open window. No record may
// ever be created outside it.
var ErrOutsideHours = errors.New("outside scanning hours")

// Clock supplies the current instant. Injected so every hour-boundary
// case is testable without waiting for real time to pass.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Hours holds the local-hour cut points. Half-open on every boundary:
// morning is [MorningStart, AfternoonStart), afternoon is
// [AfternoonStart, Close). Scans at or after Close are refused.
type Hours struct {
	MorningStart   int
	AfternoonStart int
	Close          int
}

// DefaultHours is the 6/12/22 institutional window.
func DefaultHours() Hours {
	return Hours{MorningStart: 6, AfternoonStart: 12, Close: 22}
}

// Moment is a scan instant resolved into institution-local terms.
type Moment struct {
	Local     time.Time
	DayBucket time.Time // local midnight of the calendar date
	Period    Period
}

// Resolver converts instants into the configured timezone. The
// institution runs at one site, so a single fixed location suffices.
type Resolver struct {
	loc   *time.Location
	hours Hours
}

// NewResolver loads the timezone by IANA name.
func NewResolver(tz string, hours Hours) (*Resolver, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	if hours.MorningStart >= hours.AfternoonStart || hours.AfternoonStart >= hours.Close {
		return nil, fmt.Errorf("hour boundaries %d/%d/%d not strictly increasing", hours.MorningStart, hours.AfternoonStart, hours.Close)
	}
	return &Resolver{loc: loc, hours: hours}, nil
}

// Location exposes the institution timezone for callers that format
// timestamps.
func (r *Resolver) Location() *time.Location { return r.loc }

// ResolveLocal converts an instant to local time and classifies its
// period. Returns ErrOutsideHours when the local hour falls outside
// the open window.
func (r *Resolver) ResolveLocal(t time.Time) (Moment, error) {
	local := t.In(r.loc)
	y, m, d := local.Date()
	moment := Moment{
		Local:     local,
		DayBucket: time.Date(y, m, d, 0, 0, 0, 0, r.loc),
	}

	switch h := local.Hour(); {
	case h >= r.hours.MorningStart && h < r.hours.AfternoonStart:
		moment.Period = PeriodMorning
	case h >= r.hours.AfternoonStart && h < r.hours.Close:
		moment.Period = PeriodAfternoon
	default:
		return Moment{}, ErrOutsideHours
	}
	return moment, nil
}
