package session

import (
	"fmt"
	"time"

	"gateattend/internal/schedule"
)

// Reason is the machine-readable rejection code surfaced to callers.
type Reason string

const (
	ReasonInvalidQR           Reason = "INVALID_QR"
	ReasonStudentNotFound     Reason = "STUDENT_NOT_FOUND"
	ReasonOutsideHours        Reason = "OUTSIDE_HOURS"
	ReasonAlreadyRecorded     Reason = "ALREADY_RECORDED"
	ReasonMissingPrecondition Reason = "MISSING_PRECONDITION"
	ReasonRateLimited         Reason = "RATE_LIMITED"
	ReasonConflict            Reason = "CONFLICT"
)

// Rejection is the ordinary-value outcome for a refused scan. The
// engine never returns a generic failure when a more specific reason
// applies.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string { return string(r.Reason) + ": " + r.Message }

// Reject builds a rejection with a formatted operator-facing message.
func Reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Mode selects how the target slot is derived.
type Mode int

const (
	// ModeExplicit trusts the caller's literal slot; used by
	// authenticated operators.
	ModeExplicit Mode = iota
	// ModeIntent derives the slot from period plus a check-in or
	// check-out intent; used by the public gate scanner.
	ModeIntent
)

// ParseMode accepts the wire values EXPLICIT and INTENT.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "EXPLICIT":
		return ModeExplicit, nil
	case "INTENT":
		return ModeIntent, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Request is one scan to be resolved, already past identity validation
// and period classification.
type Request struct {
	Mode   Mode
	Slot   Slot            // explicit mode only
	Intent Intent          // intent mode only
	Period schedule.Period // intent mode only
	At     time.Time
}

// Existing is the minimal view of a persisted record the engine needs.
type Existing struct {
	Slot       Slot
	OccurredAt time.Time
}

// Snapshot is the caller-fetched state the decision is made against.
// The engine holds no state of its own; with a stale snapshot two
// concurrent scans can both pass, which is why the store's uniqueness
// constraint stays the final arbiter.
type Snapshot struct {
	// Target is the existing record in the target slot for the day,
	// if any.
	Target *Existing
	// PeriodIn is the existing check-in record for the target slot's
	// period, if any. Only consulted for check-out intents.
	PeriodIn *Existing
	// Recent is the most recent record in the target slot at or after
	// the suppression-window start, if any.
	Recent *Existing
}

// Engine resolves scans to slot decisions. Pure over its snapshot
// input; safe for concurrent use.
type Engine struct {
	window time.Duration
}

// NewEngine creates an engine with the given duplicate-scan
// suppression window.
func NewEngine(window time.Duration) *Engine {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Engine{window: window}
}

// Window exposes the suppression window so callers can bound their
// recent-record lookups.
func (e *Engine) Window() time.Duration { return e.window }

// Target maps the request to the concrete slot it aims at.
func (e *Engine) Target(req Request) Slot {
	if req.Mode == ModeExplicit {
		return req.Slot
	}
	return TargetSlot(req.Period, req.Intent)
}

// Resolve decides the slot for a scan or the specific reason it is
// refused. Check order is fixed so error messages stay deterministic:
// check-out precondition, then duplicate slot, then the suppression
// window refinement.
func (e *Engine) Resolve(req Request, snap Snapshot) (Slot, *Rejection) {
	target := e.Target(req)

	if req.Mode == ModeIntent && req.Intent == IntentTimeOut && snap.PeriodIn == nil {
		return 0, Reject(ReasonMissingPrecondition,
			"cannot record %s: no %s recorded today", target, InSlot(target.Period()))
	}

	if snap.Target != nil {
		// A same-slot record within the window is scan jitter from the
		// same physical event, not a session violation; report it as
		// the softer rate-limit outcome.
		if req.At.Sub(snap.Target.OccurredAt) <= e.window {
			return 0, Reject(ReasonRateLimited,
				"%s already scanned at %s, ignoring repeat within %s", target,
				snap.Target.OccurredAt.Format("15:04:05"), e.window)
		}
		return 0, Reject(ReasonAlreadyRecorded,
			"%s already recorded today at %s", target,
			snap.Target.OccurredAt.Format("15:04:05"))
	}

	if snap.Recent != nil && req.At.Sub(snap.Recent.OccurredAt) <= e.window {
		return 0, Reject(ReasonRateLimited,
			"%s already scanned at %s, ignoring repeat within %s", target,
			snap.Recent.OccurredAt.Format("15:04:05"), e.window)
	}

	return target, nil
}
