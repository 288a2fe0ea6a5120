package attendance

import (
	"context"
	"errors"
	"time"

	"gateattend/internal/session"
)

// ErrConflict reports that a concurrent writer already inserted the
// same (student, day, slot) tuple. The unique constraint in Postgres
// is the final arbiter for races the engine's snapshot cannot see.
var ErrConflict = errors.New("attendance record already exists")

// Student is a registered QR card holder. Owned by the registry; the
// scan pipeline only reads it.
type Student struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Record is one persisted attendance entry. At most one exists per
// (student, day, slot); records are never mutated after insert.
type Record struct {
	ID           string       `json:"id"`
	StudentID    string       `json:"student_id"`
	Slot         session.Slot `json:"-"`
	SlotName     string       `json:"slot"`
	DayBucket    time.Time    `json:"day_bucket"`
	OccurredAt   time.Time    `json:"occurred_at"`
	GateLocation string       `json:"gate_location"`
	Notes        string       `json:"notes,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Store is what the scan pipeline needs from persistence. Repository
// implements it against Postgres; tests swap in a fake.
type Store interface {
	FindStudent(ctx context.Context, studentID string) (*Student, error)
	UpsertStudent(ctx context.Context, studentID, name string) error
	FindSlot(ctx context.Context, studentID string, day time.Time, slot session.Slot) (*Record, error)
	FindRecentBySlot(ctx context.Context, studentID string, slot session.Slot, since time.Time) (*Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
}
