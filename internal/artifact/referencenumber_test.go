package artifact

import (
	"regexp"
	"testing"
	"time"
)

var referenceNumberPattern = regexp.MustCompile(`^SUM-\d{8}-[A-Z0-9]{5}$`)

func TestGenerateReferenceNumber_Format(t *testing.T) {
	date := time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC)
	ref := GenerateReferenceNumber("123e4567-e89b-12d3-a456-426614174000", date)

	if !referenceNumberPattern.MatchString(ref) {
		t.Fatalf("reference number %q does not match expected shape", ref)
	}
	if got, want := ref[:12], "SUM-20250127"; got != want {
		t.Fatalf("date segment = %q, want %q", got, want)
	}
}

func TestGenerateReferenceNumber_Deterministic(t *testing.T) {
	date := time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC)
	id := "123e4567-e89b-12d3-a456-426614174000"

	first := GenerateReferenceNumber(id, date)
	second := GenerateReferenceNumber(id, date)
	if first != second {
		t.Fatalf("expected deterministic output, got %q then %q", first, second)
	}
}

func TestGenerateReferenceNumber_DiffersByID(t *testing.T) {
	date := time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC)
	a := GenerateReferenceNumber("00000000-0000-0000-0000-000000000000", date)
	b := GenerateReferenceNumber("ffffffff-ffff-ffff-ffff-ffffffffffff", date)
	if a == b {
		t.Fatalf("expected distinct reference numbers for distinct ids, both were %q", a)
	}
}

func TestGenerateReferenceNumber_SuffixAlwaysFiveChars(t *testing.T) {
	date := time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC)
	ref := GenerateReferenceNumber("00000000-0000-0000-0000-000000000000", date)
	suffix := ref[len(ref)-5:]
	if len(suffix) != 5 {
		t.Fatalf("expected 5-char suffix, got %q (%d chars)", suffix, len(suffix))
	}
}
