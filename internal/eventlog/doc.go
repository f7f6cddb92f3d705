// Package eventlog implements the durable, append-only record of
// state-changing actions over Pebble.
//
// Every mutation in the tracker commits exactly one event row in the same
// Pebble batch as the records it touches, so the log never disagrees with
// the data it describes. Rows are immutable; nothing updates or deletes
// them.
//
// # Keyspace
//
// Layout (byte-wise, lexicographically sortable):
//
//	evt/{created_at}/{id}
//
// created_at is RFC3339 UTC at second resolution (fixed width, "Z" suffix)
// and id is a 32-char sortable hex id, so plain byte order over the keys is
// exactly (created_at, id) order. The id breaks ties between events sharing
// a timestamp second.
//
// # API surface
//
//	l := eventlog.Open(db)
//	err := l.Stage(batch, &ev)             // ride a caller-owned batch
//	err = l.Append(ctx, &ev)               // self-committing convenience
//	evs, err := l.QueryAfter(ctx, opts)    // ascending, strictly after cursor
//	cur, err := l.LatestCursor(ctx, nil)   // newest position, nil when empty
//
// Consumers poll QueryAfter with their own cursor; the log pushes nothing.
package eventlog
