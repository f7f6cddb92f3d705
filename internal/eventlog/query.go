package eventlog

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/pebble"

	"github.com/gemologic/lattice/internal/apperror"
)

// MaxQueryLimit caps a single QueryAfter batch. Interactive consumers stay
// at or below 100; the dispatcher may read up to the full ceiling.
const MaxQueryLimit = 200

// QueryOptions selects a slice of the log.
type QueryOptions struct {
	// Projects restricts results to these project slugs. Empty means all.
	Projects []string
	// After excludes everything at or before this cursor. Nil reads from
	// the start of the log.
	After *Cursor
	// Limit is the maximum number of matching events returned. Must be in
	// [1, MaxQueryLimit].
	Limit int
}

// QueryAfter returns events strictly greater than opts.After in
// (created_at, id) order. Re-querying with the same cursor and no new
// events yields an empty slice.
func (l *Log) QueryAfter(ctx context.Context, opts QueryOptions) ([]Event, error) {
	if opts.Limit <= 0 || opts.Limit > MaxQueryLimit {
		return nil, apperror.BadRequest("limit must be between 1 and %d", MaxQueryLimit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(evtPrefix),
		UpperBound: keyEventUpperBound(),
	})
	if err != nil {
		return nil, apperror.Internal("event scan: %v", err)
	}
	defer iter.Close()

	filter := sliceToSet(opts.Projects)
	out := make([]Event, 0, opts.Limit)

	ok := iter.First()
	if opts.After != nil {
		ok = iter.SeekGE(keyAfterCursor(opts.After))
	}
	for ; ok && len(out) < opts.Limit; ok = iter.Next() {
		ev, decoded := decodeEvent(iter.Value())
		if !decoded {
			continue
		}
		if filter != nil {
			if _, want := filter[ev.ProjectSlug]; !want {
				continue
			}
		}
		out = append(out, ev)
	}
	return out, nil
}

// LatestCursor returns the position of the newest event matching the
// project filter, or nil when no such event exists. New consumers start
// here so they observe only future events, never backlog.
func (l *Log) LatestCursor(ctx context.Context, projects []string) (*Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(evtPrefix),
		UpperBound: keyEventUpperBound(),
	})
	if err != nil {
		return nil, apperror.Internal("event scan: %v", err)
	}
	defer iter.Close()

	filter := sliceToSet(projects)
	for ok := iter.Last(); ok; ok = iter.Prev() {
		ev, decoded := decodeEvent(iter.Value())
		if !decoded {
			continue
		}
		if filter != nil {
			if _, want := filter[ev.ProjectSlug]; !want {
				continue
			}
		}
		return &Cursor{CreatedAt: ev.CreatedAt, ID: ev.ID}, nil
	}
	return nil, nil
}

func decodeEvent(value []byte) (Event, bool) {
	payload, ok := decodeValue(value)
	if !ok {
		return Event{}, false
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, false
	}
	return ev, true
}

func sliceToSet(projects []string) map[string]struct{} {
	if len(projects) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		if p != "" {
			set[p] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}
