package qrid

import (
	"testing"
	"time"
)

func testValidator() *Validator {
	now := func() time.Time {
		return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	}
	return NewValidator(DefaultShape(), now)
}

func TestValidateAccepts(t *testing.T) {
	v := testValidator()
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "2025-0000206", "2025-0000206"},
		{"wedge scanner CRLF", "2025-0000206\r\n", "2025-0000206"},
		{"trailing newline", "2025-0000206\n", "2025-0000206"},
		{"surrounding spaces", "  2025-0000206  ", "2025-0000206"},
		{"next year card", "2026-0000001", "2026-0000001"},
		{"min year card", "2000-0000001", "2000-0000001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := v.Validate(tc.raw)
			if err != nil {
				t.Fatalf("Validate(%q): %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("Validate(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	v := testValidator()
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   \r\n"},
		{"garbage", "abc"},
		{"too short", "2025-000206"},
		{"too long", "2025-00002066"},
		{"missing separator", "202500002066"},
		{"wrong separator", "2025_0000206"},
		{"alpha in sequence", "2025-00002a6"},
		{"alpha in year", "20a5-0000206"},
		{"year below minimum", "1999-0000206"},
		{"year too far ahead", "2027-0000206"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got, err := v.Validate(tc.raw); err == nil {
				t.Fatalf("Validate(%q) = %q, want error", tc.raw, got)
			}
		})
	}
}

func TestValidateConfiguredShape(t *testing.T) {
	shape := Shape{YearDigits: 2, SeqDigits: 4, Separator: "/", MinYear: 20}
	v := NewValidator(shape, func() time.Time {
		return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	})
	// Year segment compared against now().Year()+1, so two-digit years
	// always pass the upper bound; only the minimum applies.
	if _, err := v.Validate("25/0042"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, err := v.Validate("19/0042"); err == nil {
		t.Fatal("want error for year below configured minimum")
	}
	if _, err := v.Validate("2025-0000206"); err == nil {
		t.Fatal("want error for default-shape id under narrow shape")
	}
}
