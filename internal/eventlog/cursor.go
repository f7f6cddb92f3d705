package eventlog

import (
	"time"

	"github.com/gemologic/lattice/internal/apperror"
	"github.com/gemologic/lattice/pkg/id"
)

// ParseCursor validates a cursor arriving as a (created_at, id) string pair.
// Both components empty means "no cursor" and returns nil. A partial pair is
// a validation error: a cursor is meaningless without its tie-break half.
func ParseCursor(createdAt, eventID string) (*Cursor, error) {
	if createdAt == "" && eventID == "" {
		return nil, nil
	}
	if createdAt == "" || eventID == "" {
		return nil, apperror.BadRequest("cursor_time and cursor_id must be provided together")
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, apperror.BadRequest("cursor_time must be an RFC3339 timestamp")
	}
	if _, err := id.Parse(eventID); err != nil {
		return nil, apperror.BadRequest("cursor_id is not a valid event id")
	}
	// Re-render so the key byte layout is canonical regardless of the
	// client's offset formatting.
	return &Cursor{CreatedAt: ts.UTC().Format(time.RFC3339), ID: eventID}, nil
}
