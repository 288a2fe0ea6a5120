// Package qrid validates raw QR payloads into canonical student identifiers.
package qrid

import (
	"fmt"
	"strings"
	"time"
)

// Shape describes the accepted identifier pattern: a year segment, a
// separator, and a sequence segment, all fixed width. Widths come from
// configuration so deployments with different card formats stay supported.
type Shape struct {
	YearDigits int
	SeqDigits  int
	Separator  string
	MinYear    int
}

// DefaultShape matches the common "2025-0000206" card layout.
func DefaultShape() Shape {
	return Shape{YearDigits: 4, SeqDigits: 7, Separator: "-", MinYear: 2000}
}

// Validator checks scanned payloads against a Shape. It is pure: the only
// ambient input is the current year, taken from the injected now func so
// tests can pin it.
type Validator struct {
	shape Shape
	now   func() time.Time
}

// NewValidator builds a validator; now may be nil for the system clock.
func NewValidator(shape Shape, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{shape: shape, now: now}
}

// Validate normalizes and checks a raw scanned string, returning the
// canonical identifier. Keyboard-wedge scanners append CR/LF after the
// payload, so trailing control characters and whitespace are stripped
// before any shape check.
func (v *Validator) Validate(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	id = strings.TrimRight(id, "\r\n")
	if id == "" {
		return "", fmt.Errorf("empty scan payload")
	}

	wantLen := v.shape.YearDigits + len(v.shape.Separator) + v.shape.SeqDigits
	if len(id) != wantLen {
		return "", fmt.Errorf("scanned value %q has length %d, want %d", id, len(id), wantLen)
	}

	yearPart := id[:v.shape.YearDigits]
	sepPart := id[v.shape.YearDigits : v.shape.YearDigits+len(v.shape.Separator)]
	seqPart := id[v.shape.YearDigits+len(v.shape.Separator):]

	if sepPart != v.shape.Separator {
		return "", fmt.Errorf("scanned value %q missing %q separator", id, v.shape.Separator)
	}
	if !allDigits(yearPart) || !allDigits(seqPart) {
		return "", fmt.Errorf("scanned value %q contains non-numeric segments", id)
	}

	year := atoi(yearPart)
	maxYear := v.now().Year() + 1
	if year < v.shape.MinYear || year > maxYear {
		return "", fmt.Errorf("scanned value %q has issue year %d outside %d..%d", id, year, v.shape.MinYear, maxYear)
	}

	return id, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// atoi converts a digits-only string; callers check allDigits first.
func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
