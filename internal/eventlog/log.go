package eventlog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/gemologic/lattice/internal/apperror"
	pebblestore "github.com/gemologic/lattice/internal/storage/pebble"
	"github.com/gemologic/lattice/pkg/id"
)

// Log provides append and ordered-read operations over the event keyspace.
type Log struct {
	db  *pebblestore.DB
	gen *id.Generator

	mu  sync.Mutex
	now func() time.Time
}

// Open initializes a Log over db.
func Open(db *pebblestore.DB) *Log {
	return &Log{db: db, gen: id.NewGenerator(), now: time.Now}
}

// SetNow overrides the clock. Tests use it to force timestamp collisions.
func (l *Log) SetNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Stage fills in the event's id and timestamp and writes its row into a
// caller-owned batch, so the event commits atomically with the mutation it
// describes. The caller keeps ownership of the batch.
func (l *Log) Stage(b *pebble.Batch, ev *Event) error {
	if !ValidAction(ev.Action) {
		return apperror.BadRequest("unknown event action '%s'", ev.Action)
	}
	if ev.ProjectSlug == "" {
		return apperror.BadRequest("event requires a project")
	}
	l.mu.Lock()
	if ev.ID == "" {
		ev.ID = l.gen.Next().String()
	}
	if ev.CreatedAt == "" {
		ev.CreatedAt = l.now().UTC().Format(time.RFC3339)
	}
	l.mu.Unlock()
	if len(ev.Detail) == 0 {
		ev.Detail = json.RawMessage("{}")
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return apperror.Internal("encode event: %v", err)
	}
	return b.Set(keyEvent(ev.CreatedAt, ev.ID), encodeValue(payload), nil)
}

// Append stages the event into a fresh batch and commits it. Mutations that
// carry record writes use Stage directly; Append covers the standalone case.
func (l *Log) Append(ctx context.Context, ev *Event) error {
	b := l.db.NewBatch()
	defer b.Close()
	if err := l.Stage(b, ev); err != nil {
		return err
	}
	return l.db.CommitBatch(ctx, b)
}
