package eventsvc

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gemologic/lattice/internal/eventlog"
	"github.com/gemologic/lattice/internal/store"
	"github.com/gemologic/lattice/pkg/log"
)

const (
	// defaultPollInterval is how often a subscription checks the log for
	// new events.
	defaultPollInterval = 750 * time.Millisecond
	// defaultKeepAliveInterval bounds how long a connection stays silent
	// before a comment frame is written.
	defaultKeepAliveInterval = 15 * time.Second
	// streamBufferLen decouples the poller from a slow client. When the
	// buffer fills, the poller blocks rather than dropping frames.
	streamBufferLen = 64
	// streamBatchSize caps one poll's worth of events.
	streamBatchSize = 100
)

// Frame is one rendered SSE event: the id line, the event-type line, and
// the JSON data line.
type Frame struct {
	ID    string
	Event string
	Data  []byte
}

// EventSink receives a subscription's output. Implementations write to the
// client connection; any returned error terminates the stream.
type EventSink interface {
	// Send writes one frame.
	Send(frame Frame) error
	// KeepAlive writes a comment so intermediaries keep the connection open.
	KeepAlive() error
	// Context cancels the stream when the client goes away.
	Context() context.Context
}

// Service hands out live subscriptions over the event log.
type Service struct {
	events *eventlog.Log
	store  *store.Store
	logger log.Logger

	pollInterval      time.Duration
	keepAliveInterval time.Duration
}

// New returns a Service with production polling cadence.
func New(events *eventlog.Log, st *store.Store, logger log.Logger) *Service {
	return &Service{
		events:            events,
		store:             st,
		logger:            logger.WithComponent("events"),
		pollInterval:      defaultPollInterval,
		keepAliveInterval: defaultKeepAliveInterval,
	}
}

// SetPollInterval overrides the poll cadence. Call before Subscribe; tests
// use it to avoid real-time waits.
func (s *Service) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.pollInterval = d
	}
}

// SetKeepAliveInterval overrides the idle keep-alive cadence. Call before
// Subscribe.
func (s *Service) SetKeepAliveInterval(d time.Duration) {
	if d > 0 {
		s.keepAliveInterval = d
	}
}

// Subscription is one subscriber's position in the log plus its project
// filter. It is not safe for concurrent Stream calls.
type Subscription struct {
	svc      *Service
	projects []string
	after    *eventlog.Cursor
}

// Subscribe normalizes a multi-project filter and positions the
// subscription at the tail of the log, so the subscriber observes only
// events appended after the handshake. Filter slugs are validated for
// shape, deduplicated, and sorted; a well-formed slug naming no project
// is allowed and simply never matches.
func (s *Service) Subscribe(ctx context.Context, projects []string) (*Subscription, error) {
	set := map[string]bool{}
	for _, raw := range projects {
		slug, err := store.NormalizeSlug(raw)
		if err != nil {
			return nil, err
		}
		set[slug] = true
	}
	normalized := make([]string, 0, len(set))
	for slug := range set {
		normalized = append(normalized, slug)
	}
	sort.Strings(normalized)
	return s.subscription(ctx, normalized), nil
}

// SubscribeProject subscribes to a single project. Unlike Subscribe, the
// project must exist; an unknown slug fails the handshake with NotFound
// before any stream bytes are written.
func (s *Service) SubscribeProject(ctx context.Context, slug string) (*Subscription, error) {
	project, err := s.store.LookupProject(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.subscription(ctx, []string{project.Slug}), nil
}

func (s *Service) subscription(ctx context.Context, projects []string) *Subscription {
	after, err := s.events.LatestCursor(ctx, projects)
	if err != nil {
		s.logger.Warn("tail position unavailable, streaming from log start", log.Err(err))
		after = nil
	}
	return &Subscription{svc: s, projects: projects, after: after}
}

// Projects returns the normalized project filter.
func (sub *Subscription) Projects() []string {
	out := make([]string, len(sub.projects))
	copy(out, sub.projects)
	return out
}

// Stream polls the log and pushes frames into sink until the sink's context
// is canceled, a write fails, or a poll fails. A canceled context is normal
// client departure and returns nil; poll and write failures are returned.
func (sub *Subscription) Stream(sink EventSink) error {
	ctx, cancel := context.WithCancel(sink.Context())
	defer cancel()

	frames := make(chan Frame, streamBufferLen)
	writeErr := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		keepAlive := time.NewTimer(sub.svc.keepAliveInterval)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-frames:
				if !ok {
					return
				}
				if err := sink.Send(frame); err != nil {
					writeErr <- err
					return
				}
				if !keepAlive.Stop() {
					select {
					case <-keepAlive.C:
					default:
					}
				}
				keepAlive.Reset(sub.svc.keepAliveInterval)
			case <-keepAlive.C:
				if err := sink.KeepAlive(); err != nil {
					writeErr <- err
					return
				}
				keepAlive.Reset(sub.svc.keepAliveInterval)
			}
		}
	}()

	pollErr := sub.poll(ctx, frames)
	close(frames)
	wg.Wait()

	select {
	case err := <-writeErr:
		return err
	default:
	}
	return pollErr
}

func (sub *Subscription) poll(ctx context.Context, frames chan<- Frame) error {
	ticker := time.NewTicker(sub.svc.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		batch, err := sub.svc.events.QueryAfter(ctx, eventlog.QueryOptions{
			Projects: sub.projects,
			After:    sub.after,
			Limit:    streamBatchSize,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			sub.svc.logger.Error("event poll failed, closing stream", log.Err(err))
			return err
		}

		for i := range batch {
			frame, err := renderFrame(&batch[i])
			if err != nil {
				sub.svc.logger.Warn("skipping unrenderable event",
					log.Str("event", batch[i].ID),
					log.Err(err))
				continue
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return nil
			}
		}
		if len(batch) > 0 {
			last := batch[len(batch)-1]
			sub.after = &eventlog.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		}
	}
}

// framePayload is the data line of one SSE frame. Task fields are pointers
// so project-scoped events serialize them as explicit nulls rather than
// dropping the keys.
type framePayload struct {
	ID             string  `json:"id"`
	Project        string  `json:"project"`
	TaskID         *string `json:"task_id"`
	TaskNumber     *int64  `json:"task_number"`
	TaskDisplayKey *string `json:"task_display_key"`
	Action         string  `json:"action"`
	Actor          string  `json:"actor"`
	Detail         any     `json:"detail"`
	CreatedAt      string  `json:"created_at"`
}

func renderFrame(ev *eventlog.Event) (Frame, error) {
	payload := framePayload{
		ID:        ev.ID,
		Project:   ev.ProjectSlug,
		Action:    ev.Action,
		Actor:     ev.Actor,
		Detail:    decodeDetail(ev.Detail),
		CreatedAt: ev.CreatedAt,
	}
	if ev.TaskID != "" {
		taskID := ev.TaskID
		number := ev.TaskNumber
		displayKey := store.DisplayKey(ev.ProjectSlug, number)
		payload.TaskID = &taskID
		payload.TaskNumber = &number
		payload.TaskDisplayKey = &displayKey
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{ID: ev.ID, Event: ev.Action, Data: data}, nil
}

// decodeDetail surfaces the stored detail as structured JSON when it parses
// and as a plain string when it does not.
func decodeDetail(raw json.RawMessage) any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
