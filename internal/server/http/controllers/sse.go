package controllers

import (
	"context"
	"net/http"

	"github.com/gemologic/lattice/internal/apperror"
	eventsvc "github.com/gemologic/lattice/internal/services/events"
	"github.com/gemologic/lattice/pkg/log"
)

// EventsController serves the live event streams over Server-Sent Events.
// Connection capacity is enforced upstream by the rate limit middleware;
// by the time a request reaches this controller it already holds a lease.
type EventsController struct {
	events *eventsvc.Service
	logger log.Logger
}

// NewEventsController creates the events controller.
func NewEventsController(events *eventsvc.Service, logger log.Logger) *EventsController {
	return &EventsController{events: events, logger: logger.WithComponent("http")}
}

// RegisterRoutes registers event stream routes with the given mux.
func (c *EventsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/events", c.handleStreamEvents)
	mux.HandleFunc("GET /api/v1/projects/{slug}/events", c.handleStreamProjectEvents)
}

// handleStreamEvents streams events across projects. Repeated "project"
// query parameters narrow the stream; none means every project.
func (c *EventsController) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	sub, err := c.events.Subscribe(r.Context(), r.URL.Query()["project"])
	if err != nil {
		writeError(w, err)
		return
	}
	c.serveStream(w, r, sub)
}

// handleStreamProjectEvents streams one project's events. Unknown projects
// fail the handshake with 404 before any stream bytes are written.
func (c *EventsController) handleStreamProjectEvents(w http.ResponseWriter, r *http.Request) {
	sub, err := c.events.SubscribeProject(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	c.serveStream(w, r, sub)
}

func (c *EventsController) serveStream(w http.ResponseWriter, r *http.Request, sub *eventsvc.Subscription) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperror.Internal("streaming unsupported by the underlying connection"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := sseSink{w: w, r: r, flusher: flusher}
	if err := sub.Stream(sink); err != nil {
		// The stream is already committed; all that is left is to log why
		// this connection ended early. The client reconnects from "now".
		c.logger.Warn("event stream ended with error", log.Err(err))
	}
}

// sseSink writes frames to one client connection in SSE wire format.
type sseSink struct {
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher
}

// Send writes one event frame: the id line, the event-type line, and the
// data line, followed by the blank separator line.
func (s sseSink) Send(frame eventsvc.Frame) error {
	if _, err := s.w.Write([]byte("id: " + frame.ID + "\n")); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("event: " + frame.Event + "\n")); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(frame.Data); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// KeepAlive writes an SSE comment so intermediaries keep the idle
// connection open.
func (s sseSink) KeepAlive() error {
	if _, err := s.w.Write([]byte(": keep-alive\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Context cancels the stream when the client disconnects.
func (s sseSink) Context() context.Context {
	return s.r.Context()
}
