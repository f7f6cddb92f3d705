package eventlog

// Keyspace helpers for Pebble keys. See the package doc for the layout.

var (
	sep       = byte('/')
	evtPrefix = []byte("evt/")
)

// keyEvent builds the row key for an event: evt/{created_at}/{id}.
func keyEvent(createdAt, eventID string) []byte {
	k := make([]byte, 0, len(evtPrefix)+len(createdAt)+len(eventID)+1)
	k = append(k, evtPrefix...)
	k = append(k, createdAt...)
	k = append(k, sep)
	k = append(k, eventID...)
	return k
}

// keyEventUpperBound returns the exclusive upper bound for scanning the
// whole event keyspace.
func keyEventUpperBound() []byte {
	k := make([]byte, len(evtPrefix))
	copy(k, evtPrefix)
	k[len(k)-1]++ // "evt/" -> "evt0"
	return k
}

// keyAfterCursor returns the smallest key strictly greater than the
// cursor's row key.
func keyAfterCursor(c *Cursor) []byte {
	return append(keyEvent(c.CreatedAt, c.ID), 0x00)
}
