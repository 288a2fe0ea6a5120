package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"gateattend/internal/session"
)

// Repository persists students and attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindStudent returns the student for a canonical identifier, or nil
// when none is registered.
func (r *Repository) FindStudent(ctx context.Context, studentID string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, name, created_at
		FROM students WHERE student_id = $1
	`, studentID)
	var s Student
	if err := row.Scan(&s.ID, &s.StudentID, &s.Name, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// UpsertStudent creates or renames a student.
func (r *Repository) UpsertStudent(ctx context.Context, studentID, name string) error {
	if studentID == "" {
		return errors.New("student id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, student_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id) DO UPDATE SET name = EXCLUDED.name
	`, uuid.NewString(), studentID, name)
	return err
}

// ListStudents returns all registered students ordered by identifier.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, name, created_at
		FROM students ORDER BY student_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.StudentID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// FindSlot returns the record occupying a slot for a student and day,
// or nil when the slot is still open.
func (r *Repository) FindSlot(ctx context.Context, studentID string, day time.Time, slot session.Slot) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, slot, day_bucket, occurred_at, gate_location, notes, created_at
		FROM attendance_records
		WHERE student_id = $1 AND day_bucket = $2 AND slot = $3
	`, studentID, day, slot.String())
	return scanRecord(row)
}

// FindRecentBySlot returns the newest same-slot record at or after
// since, for the duplicate-scan suppression check.
func (r *Repository) FindRecentBySlot(ctx context.Context, studentID string, slot session.Slot, since time.Time) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, slot, day_bucket, occurred_at, gate_location, notes, created_at
		FROM attendance_records
		WHERE student_id = $1 AND slot = $2 AND occurred_at >= $3
		ORDER BY occurred_at DESC
		LIMIT 1
	`, studentID, slot.String(), since)
	return scanRecord(row)
}

// Insert writes a new record. The unique index on (student_id,
// day_bucket, slot) makes the second of two racing writers fail with
// ErrConflict.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, slot, day_bucket, occurred_at, gate_location, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, rec.ID, rec.StudentID, rec.Slot.String(), rec.DayBucket, rec.OccurredAt, rec.GateLocation, rec.Notes)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrConflict
		}
		return Record{}, err
	}
	rec.SlotName = rec.Slot.String()
	return rec, nil
}

// GetRecord returns a single record by id.
func (r *Repository) GetRecord(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, slot, day_bucket, occurred_at, gate_location, notes, created_at
		FROM attendance_records WHERE id = $1
	`, id)
	rec, err := scanRecord(row)
	if err != nil {
		return Record{}, err
	}
	if rec == nil {
		return Record{}, sql.ErrNoRows
	}
	return *rec, nil
}

// ListRecords returns records with basic filters, newest first.
func (r *Repository) ListRecords(ctx context.Context, studentID string, day *time.Time, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, student_id, slot, day_bucket, occurred_at, gate_location, notes, created_at FROM attendance_records`
	args := []any{}
	clauses := []string{}
	if studentID != "" {
		clauses = append(clauses, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, studentID)
	}
	if day != nil {
		clauses = append(clauses, fmt.Sprintf("day_bucket = $%d", len(args)+1))
		args = append(args, *day)
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			res = append(res, *rec)
		}
	}
	return res, rows.Err()
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, operatorID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (operator_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, operatorID, token, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var slotName string
	if err := row.Scan(&rec.ID, &rec.StudentID, &slotName, &rec.DayBucket, &rec.OccurredAt, &rec.GateLocation, &rec.Notes, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	slot, err := session.ParseSlot(slotName)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	rec.Slot = slot
	rec.SlotName = slotName
	return &rec, nil
}

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
