package webhooksvc

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gemologic/lattice/internal/apperror"
	"github.com/gemologic/lattice/internal/eventlog"
	"github.com/gemologic/lattice/internal/store"
	"github.com/gemologic/lattice/pkg/log"
)

const (
	// defaultPollInterval is how often the dispatcher drains the log.
	defaultPollInterval = 1000 * time.Millisecond

	// defaultRetryDelay is how long a failed delivery waits for its one
	// retry.
	defaultRetryDelay = 30 * time.Second

	// deliverTimeout bounds a single HTTP delivery attempt.
	deliverTimeout = 5 * time.Second

	// maxRetryQueue caps deferred deliveries. Beyond it new retries are
	// dropped so a dead endpoint cannot grow the queue without bound.
	maxRetryQueue = 512

	// dispatchBatchSize is the most events read from the log per tick.
	dispatchBatchSize = 100

	// signatureHeader carries the body signature for generic webhooks
	// configured with a secret.
	signatureHeader = "X-Lattice-Signature"
)

// pendingDelivery is a failed delivery waiting for its single retry.
type pendingDelivery struct {
	webhook store.Webhook
	payload Payload
	dueAt   time.Time
}

// Dispatcher fans committed events out to webhook subscriptions. Run one
// per process. The delivery cursor lives in memory, so a restart resumes
// at the tail of the log and never replays events from before it.
type Dispatcher struct {
	events *eventlog.Log
	store  *store.Store
	logger log.Logger
	client *http.Client

	pollInterval time.Duration
	retryDelay   time.Duration
}

// New creates a dispatcher over the given log and store. Call Run to
// start delivering.
func New(events *eventlog.Log, st *store.Store, logger log.Logger) *Dispatcher {
	return &Dispatcher{
		events:       events,
		store:        st,
		logger:       logger.WithComponent("webhooks"),
		client:       &http.Client{Timeout: deliverTimeout},
		pollInterval: defaultPollInterval,
		retryDelay:   defaultRetryDelay,
	}
}

// SetPollInterval overrides the dispatch interval. Call before Run.
func (d *Dispatcher) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		d.pollInterval = interval
	}
}

// SetRetryDelay overrides how long a failed delivery waits for its retry.
// Call before Run.
func (d *Dispatcher) SetRetryDelay(delay time.Duration) {
	if delay > 0 {
		d.retryDelay = delay
	}
}

// Run tails the event log and delivers until ctx is canceled. Poll and
// delivery failures are logged and never stop the loop. Each tick drains
// due retries first so a failed delivery cannot starve behind a busy log.
func (d *Dispatcher) Run(ctx context.Context) {
	cursor, err := d.events.LatestCursor(ctx, nil)
	if err != nil {
		d.logger.Error("dispatch cursor unavailable, starting from log start", log.Err(err))
		cursor = nil
	}

	var retries []pendingDelivery

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.logger.Info("webhook dispatcher started",
		log.Str("interval", d.pollInterval.String()))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("webhook dispatcher stopped")
			return
		case <-ticker.C:
		}

		retries = d.sweepRetries(ctx, retries)

		batch, err := d.events.QueryAfter(ctx, eventlog.QueryOptions{
			After: cursor,
			Limit: dispatchBatchSize,
		})
		if err != nil {
			if ctx.Err() == nil {
				d.logger.Error("event poll for dispatch failed", log.Err(err))
			}
			continue
		}
		for i := range batch {
			ev := &batch[i]
			cursor = &eventlog.Cursor{CreatedAt: ev.CreatedAt, ID: ev.ID}
			retries = d.dispatch(ctx, ev, retries)
		}
	}
}

// dispatch delivers one event to every matching subscription in its
// project. First failures are queued for a single retry.
func (d *Dispatcher) dispatch(ctx context.Context, ev *eventlog.Event, retries []pendingDelivery) []pendingDelivery {
	payload := payloadFromEvent(ev)

	webhooks, err := d.store.ListActiveWebhooks(ctx, ev.ProjectSlug)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Events outlive their project; nothing is listening anymore.
			return retries
		}
		d.logger.Error("load webhooks for dispatch failed",
			log.Str("project", ev.ProjectSlug),
			log.Err(err))
		return retries
	}

	for i := range webhooks {
		webhook := webhooks[i]
		if !subscribed(&webhook, payload.Event) {
			continue
		}
		if err := d.deliver(ctx, &webhook, &payload); err != nil {
			d.logger.Warn("webhook delivery failed, scheduling one retry",
				log.Str("webhook", webhook.ID),
				log.Str("event", payload.Event),
				log.Err(err))
			retries = d.scheduleRetry(retries, webhook, payload)
		}
	}
	return retries
}

// sweepRetries delivers every due retry. A retry that fails again is
// logged and dropped.
func (d *Dispatcher) sweepRetries(ctx context.Context, retries []pendingDelivery) []pendingDelivery {
	now := time.Now()
	pending := retries[:0]
	for i := range retries {
		entry := retries[i]
		if entry.dueAt.After(now) {
			pending = append(pending, entry)
			continue
		}
		if err := d.deliver(ctx, &entry.webhook, &entry.payload); err != nil {
			d.logger.Warn("webhook retry failed, dropping delivery",
				log.Str("webhook", entry.webhook.ID),
				log.Str("event", entry.payload.Event),
				log.Err(err))
		}
	}
	return pending
}

func (d *Dispatcher) scheduleRetry(retries []pendingDelivery, webhook store.Webhook, payload Payload) []pendingDelivery {
	if len(retries) >= maxRetryQueue {
		d.logger.Warn("retry queue full, dropping delivery",
			log.Str("webhook", webhook.ID),
			log.Str("event", payload.Event))
		return retries
	}
	return append(retries, pendingDelivery{
		webhook: webhook,
		payload: payload,
		dueAt:   time.Now().Add(d.retryDelay),
	})
}

func subscribed(webhook *store.Webhook, action string) bool {
	for _, candidate := range webhook.Events {
		if candidate == action {
			return true
		}
	}
	return false
}

// deliver renders and posts one payload. Success is any 2xx response.
func (d *Dispatcher) deliver(ctx context.Context, webhook *store.Webhook, payload *Payload) error {
	body, err := renderBody(webhook.Platform, payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for webhook '%s': %w", webhook.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if webhook.Platform == store.PlatformGeneric {
		if secret := strings.TrimSpace(webhook.Secret); secret != "" {
			req.Header.Set(signatureHeader, signBody(secret, body))
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed for webhook '%s': %w", webhook.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook '%s' returned status %d", webhook.ID, resp.StatusCode)
}

// signBody computes the generic-platform signature: "sha256=" plus the
// lowercase hex HMAC-SHA256 of the exact body bytes.
func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// SendTest synchronously posts a synthetic "test" payload to one webhook
// so an endpoint can be verified before it is trusted with real events.
// The webhook does not need to be active, and the attempt is made exactly
// once with no retry.
func (d *Dispatcher) SendTest(ctx context.Context, slug, webhookID string) error {
	project, err := d.store.LookupProject(ctx, slug)
	if err != nil {
		return err
	}
	webhook, err := d.store.GetWebhook(ctx, project.Slug, webhookID)
	if err != nil {
		return err
	}

	payload := Payload{
		Event:     "test",
		Project:   project.Slug,
		Actor:     "system",
		Detail:    map[string]any{"message": "test webhook from lattice"},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := d.deliver(ctx, webhook, &payload); err != nil {
		return fmt.Errorf("deliver test webhook: %w", err)
	}
	return nil
}
