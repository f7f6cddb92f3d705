package eventlog

import (
	"testing"

	"github.com/gemologic/lattice/internal/apperror"
)

func TestParseCursorBothOrNeither(t *testing.T) {
	cur, err := ParseCursor("", "")
	if err != nil || cur != nil {
		t.Fatalf("empty pair should mean no cursor, got %v / %v", cur, err)
	}

	if _, err := ParseCursor("2026-03-01T10:00:00Z", ""); !apperror.IsBadRequest(err) {
		t.Fatalf("partial cursor (missing id) should be rejected, got %v", err)
	}
	if _, err := ParseCursor("", "0000000000000000000000000000abcd"); !apperror.IsBadRequest(err) {
		t.Fatalf("partial cursor (missing time) should be rejected, got %v", err)
	}
}

func TestParseCursorValidatesComponents(t *testing.T) {
	if _, err := ParseCursor("yesterday", "0000000000000000000000000000abcd"); !apperror.IsBadRequest(err) {
		t.Fatalf("bad timestamp should be rejected, got %v", err)
	}
	if _, err := ParseCursor("2026-03-01T10:00:00Z", "not-hex"); !apperror.IsBadRequest(err) {
		t.Fatalf("bad id should be rejected, got %v", err)
	}
}

func TestParseCursorNormalizesOffset(t *testing.T) {
	cur, err := ParseCursor("2026-03-01T12:00:00+02:00", "0000000000000000000000000000abcd")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cur.CreatedAt != "2026-03-01T10:00:00Z" {
		t.Fatalf("cursor time not normalized to UTC: %q", cur.CreatedAt)
	}
}
