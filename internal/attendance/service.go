package attendance

import (
	"context"
	"errors"
	"fmt"

	"gateattend/internal/qrid"
	"gateattend/internal/schedule"
	"gateattend/internal/session"
)

// ScanRequest is one scan event as received at an ingestion boundary.
type ScanRequest struct {
	Raw          string
	GateLocation string
	Mode         session.Mode
	Slot         session.Slot   // explicit mode
	Intent       session.Intent // intent mode
	Notes        string
}

// ScanResult describes an accepted, persisted scan.
type ScanResult struct {
	Record      Record
	StudentName string
}

// Service runs the scan pipeline: identity validation, local-time
// resolution, slot decision, insert. It holds no mutable state; every
// call is a fresh read-decide-write pass over the store.
type Service struct {
	validator *qrid.Validator
	resolver  *schedule.Resolver
	engine    *session.Engine
	store     Store
	clock     schedule.Clock
}

// NewService wires the pipeline. clock may be nil for the system clock.
func NewService(validator *qrid.Validator, resolver *schedule.Resolver, engine *session.Engine, store Store, clock schedule.Clock) *Service {
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	return &Service{
		validator: validator,
		resolver:  resolver,
		engine:    engine,
		store:     store,
		clock:     clock,
	}
}

// Scan processes one scan event. Business refusals come back as a
// *session.Rejection; the error return is reserved for store failures
// and other faults the gate operator cannot act on. Checks run in a
// fixed order so the caller always sees the most specific reason.
func (s *Service) Scan(ctx context.Context, req ScanRequest) (ScanResult, *session.Rejection, error) {
	studentID, err := s.validator.Validate(req.Raw)
	if err != nil {
		return ScanResult{}, session.Reject(session.ReasonInvalidQR, "%v", err), nil
	}

	student, err := s.store.FindStudent(ctx, studentID)
	if err != nil {
		return ScanResult{}, nil, fmt.Errorf("lookup student %s: %w", studentID, err)
	}
	if student == nil {
		return ScanResult{}, session.Reject(session.ReasonStudentNotFound, "no student registered for %s", studentID), nil
	}

	moment, err := s.resolver.ResolveLocal(s.clock.Now())
	if err != nil {
		if errors.Is(err, schedule.ErrOutsideHours) {
			return ScanResult{}, session.Reject(session.ReasonOutsideHours, "scanning is closed at this hour, try again when gates open"), nil
		}
		return ScanResult{}, nil, err
	}

	eng := session.Request{
		Mode:   req.Mode,
		Slot:   req.Slot,
		Intent: req.Intent,
		Period: moment.Period,
		At:     moment.Local,
	}

	snap, err := s.snapshot(ctx, studentID, eng, moment)
	if err != nil {
		return ScanResult{}, nil, err
	}

	slot, rej := s.engine.Resolve(eng, snap)
	if rej != nil {
		return ScanResult{}, rej, nil
	}

	rec, err := s.store.Insert(ctx, Record{
		StudentID:    studentID,
		Slot:         slot,
		DayBucket:    moment.DayBucket,
		OccurredAt:   moment.Local,
		GateLocation: req.GateLocation,
		Notes:        req.Notes,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			// Lost a write race for the same tuple. Same outcome for
			// the student as a duplicate, so same message.
			return ScanResult{}, session.Reject(session.ReasonConflict, "%s already recorded today", slot), nil
		}
		return ScanResult{}, nil, fmt.Errorf("insert record: %w", err)
	}

	return ScanResult{Record: rec, StudentName: student.Name}, nil, nil
}

// snapshot gathers the existing-record state the engine decides over.
func (s *Service) snapshot(ctx context.Context, studentID string, req session.Request, moment schedule.Moment) (session.Snapshot, error) {
	var snap session.Snapshot
	target := s.engine.Target(req)

	existing, err := s.store.FindSlot(ctx, studentID, moment.DayBucket, target)
	if err != nil {
		return snap, fmt.Errorf("check slot %s: %w", target, err)
	}
	if existing != nil {
		snap.Target = &session.Existing{Slot: existing.Slot, OccurredAt: existing.OccurredAt}
	}

	if req.Mode == session.ModeIntent && req.Intent == session.IntentTimeOut {
		in := session.InSlot(target.Period())
		inRec, err := s.store.FindSlot(ctx, studentID, moment.DayBucket, in)
		if err != nil {
			return snap, fmt.Errorf("check slot %s: %w", in, err)
		}
		if inRec != nil {
			snap.PeriodIn = &session.Existing{Slot: inRec.Slot, OccurredAt: inRec.OccurredAt}
		}
	}

	recent, err := s.store.FindRecentBySlot(ctx, studentID, target, moment.Local.Add(-s.engine.Window()))
	if err != nil {
		return snap, fmt.Errorf("check recent %s: %w", target, err)
	}
	if recent != nil {
		snap.Recent = &session.Existing{Slot: recent.Slot, OccurredAt: recent.OccurredAt}
	}

	return snap, nil
}

// RegisterStudent validates the identifier shape and upserts the
// student. Used by the operator registry endpoint.
func (s *Service) RegisterStudent(ctx context.Context, rawID, name string) (string, error) {
	studentID, err := s.validator.Validate(rawID)
	if err != nil {
		return "", err
	}
	return studentID, s.store.UpsertStudent(ctx, studentID, name)
}
