package store

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/gemologic/lattice/internal/apperror"
	"github.com/gemologic/lattice/internal/eventlog"
	pebblestore "github.com/gemologic/lattice/internal/storage/pebble"
	"github.com/gemologic/lattice/pkg/id"
	"github.com/gemologic/lattice/pkg/log"
)

// Store owns the tracker keyspace. Writers serialize on one mutex so that
// read-modify-write sequences (counter bumps, column appends) commit against
// the state they read; reads go straight to the engine.
type Store struct {
	db     *pebblestore.DB
	events *eventlog.Log
	logger log.Logger
	ids    *id.Generator

	mu  sync.Mutex
	now func() time.Time
}

// New wires a Store over an open database and event log.
func New(db *pebblestore.DB, events *eventlog.Log, logger log.Logger) *Store {
	return &Store{
		db:     db,
		events: events,
		logger: logger.WithComponent("store"),
		ids:    id.NewGenerator(),
		now:    time.Now,
	}
}

// SetNow overrides the clock for tests.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// timestamp renders the write clock. Callers hold s.mu.
func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *Store) newID() string {
	return s.ids.Next().String()
}

// lookupSlug folds a path slug for key lookups. Full validation happens only
// on create; junk slugs simply miss and surface as not found.
func lookupSlug(slug string) string {
	return strings.ToUpper(strings.TrimSpace(slug))
}

// getJSON loads and decodes one record. The boolean reports presence.
func (s *Store) getJSON(key []byte, out any) (bool, error) {
	value, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperror.Internal("read record %q: %v", key, err)
	}
	if err := json.Unmarshal(value, out); err != nil {
		return false, apperror.Internal("decode record %q: %v", key, err)
	}
	return true, nil
}

// batchSetJSON encodes a record into a caller-owned batch.
func batchSetJSON(b *pebble.Batch, key []byte, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return apperror.Internal("encode record %q: %v", key, err)
	}
	return b.Set(key, payload, nil)
}

// scanPrefix walks values under prefix in key order. The value slice passed
// to fn is only valid for the duration of the call.
func (s *Store) scanPrefix(prefix []byte, fn func(value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return apperror.Internal("open iterator: %v", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return apperror.Internal("scan %q: %v", prefix, err)
	}
	return nil
}

// scanPrefixReverse walks values under prefix newest-first. Record ids sort
// by creation time, so reverse key order is creation order reversed.
func (s *Store) scanPrefixReverse(prefix []byte, fn func(value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return apperror.Internal("open iterator: %v", err)
	}
	defer iter.Close()

	for iter.Last(); iter.Valid(); iter.Prev() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return apperror.Internal("scan %q: %v", prefix, err)
	}
	return nil
}

// encodeDetail renders an event detail payload. Detail maps are built from
// plain values, so a marshal failure degrades to the empty object instead of
// failing the mutation.
func encodeDetail(v any) json.RawMessage {
	payload, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return payload
}
