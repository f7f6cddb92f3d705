package store

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/gemologic/lattice/internal/apperror"
	"github.com/gemologic/lattice/internal/eventlog"
	"github.com/gemologic/lattice/pkg/log"
)

// CreateWebhook registers a delivery subscription for a project. Webhook
// mutations do not emit events; the dispatcher reads the log, it does not
// write to it.
func (s *Store) CreateWebhook(ctx context.Context, slug string, input CreateWebhookInput) (*Webhook, error) {
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.getProject(normalized)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.BadRequest("webhook name cannot be empty")
	}
	endpoint, err := normalizeWebhookURL(input.URL)
	if err != nil {
		return nil, err
	}
	platform, err := normalizeWebhookPlatform(input.Platform)
	if err != nil {
		return nil, err
	}
	events, err := normalizeWebhookEvents(input.Events)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	webhook := Webhook{
		ID:        s.newID(),
		ProjectID: project.ID,
		Name:      name,
		URL:       endpoint,
		Platform:  platform,
		Events:    events,
		Secret:    strings.TrimSpace(input.Secret),
		Active:    input.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	payload, err := json.Marshal(&webhook)
	if err != nil {
		return nil, apperror.Internal("encode webhook: %v", err)
	}
	if err := s.db.Set(keyWebhook(normalized, webhook.ID), payload); err != nil {
		return nil, err
	}

	s.logger.Debug("webhook created",
		log.Str("project", normalized),
		log.Str("webhook", webhook.ID),
		log.Str("platform", webhook.Platform))
	return &webhook, nil
}

// ListWebhooks returns a project's webhooks, newest first.
func (s *Store) ListWebhooks(ctx context.Context, slug string) ([]Webhook, error) {
	return s.listWebhooks(slug, false)
}

// ListActiveWebhooks returns only subscriptions eligible for delivery.
func (s *Store) ListActiveWebhooks(ctx context.Context, slug string) ([]Webhook, error) {
	return s.listWebhooks(slug, true)
}

func (s *Store) listWebhooks(slug string, activeOnly bool) ([]Webhook, error) {
	normalized := lookupSlug(slug)
	if _, err := s.getProject(normalized); err != nil {
		return nil, err
	}

	webhooks := []Webhook{}
	err := s.scanPrefixReverse(keyWebhookPrefix(normalized), func(value []byte) error {
		var webhook Webhook
		if err := json.Unmarshal(value, &webhook); err != nil {
			return apperror.Internal("decode webhook: %v", err)
		}
		if activeOnly && !webhook.Active {
			return nil
		}
		webhooks = append(webhooks, webhook)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return webhooks, nil
}

// GetWebhook returns one webhook.
func (s *Store) GetWebhook(ctx context.Context, slug, webhookID string) (*Webhook, error) {
	normalized := lookupSlug(slug)
	if _, err := s.getProject(normalized); err != nil {
		return nil, err
	}

	var webhook Webhook
	found, err := s.getJSON(keyWebhook(normalized, webhookID), &webhook)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("webhook '%s' not found", webhookID)
	}
	return &webhook, nil
}

// UpdateWebhook applies a partial update. A non-nil empty secret clears the
// stored secret; a nil secret keeps it.
func (s *Store) UpdateWebhook(ctx context.Context, slug, webhookID string, input UpdateWebhookInput) (*Webhook, error) {
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	webhook, err := s.GetWebhook(ctx, normalized, webhookID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, apperror.BadRequest("webhook name cannot be empty")
		}
		webhook.Name = trimmed
	}
	if input.URL != nil {
		endpoint, err := normalizeWebhookURL(*input.URL)
		if err != nil {
			return nil, err
		}
		webhook.URL = endpoint
	}
	if input.Platform != nil {
		platform, err := normalizeWebhookPlatform(*input.Platform)
		if err != nil {
			return nil, err
		}
		webhook.Platform = platform
	}
	if input.Events != nil {
		events, err := normalizeWebhookEvents(input.Events)
		if err != nil {
			return nil, err
		}
		webhook.Events = events
	}
	if input.Secret != nil {
		webhook.Secret = strings.TrimSpace(*input.Secret)
	}
	if input.Active != nil {
		webhook.Active = *input.Active
	}
	webhook.UpdatedAt = s.timestamp()

	payload, err := json.Marshal(webhook)
	if err != nil {
		return nil, apperror.Internal("encode webhook: %v", err)
	}
	if err := s.db.Set(keyWebhook(normalized, webhook.ID), payload); err != nil {
		return nil, err
	}
	return webhook, nil
}

// DeleteWebhook removes a subscription.
func (s *Store) DeleteWebhook(ctx context.Context, slug, webhookID string) error {
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.GetWebhook(ctx, normalized, webhookID); err != nil {
		return err
	}
	if err := s.db.Delete(keyWebhook(normalized, webhookID)); err != nil {
		return err
	}

	s.logger.Debug("webhook deleted",
		log.Str("project", normalized),
		log.Str("webhook", webhookID))
	return nil
}

func normalizeWebhookURL(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	parsed, err := url.Parse(trimmed)
	if err != nil || !parsed.IsAbs() {
		return "", apperror.BadRequest("webhook url must be a valid http(s) URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", apperror.BadRequest("webhook url must use http or https")
	}
	if parsed.Host == "" {
		return "", apperror.BadRequest("webhook url must be a valid http(s) URL")
	}
	return parsed.String(), nil
}

func normalizeWebhookPlatform(value string) (string, error) {
	platform := strings.ToLower(strings.TrimSpace(value))
	switch platform {
	case PlatformSlack, PlatformDiscord, PlatformGeneric:
		return platform, nil
	}
	return "", apperror.BadRequest("invalid webhook platform '%s'", value)
}

// normalizeWebhookEvents validates subscriptions against the event
// vocabulary and returns them deduplicated in sorted order.
func normalizeWebhookEvents(events []string) ([]string, error) {
	seen := map[string]bool{}
	for _, event := range events {
		candidate := strings.TrimSpace(event)
		if candidate == "" {
			continue
		}
		if !eventlog.ValidAction(candidate) {
			return nil, apperror.BadRequest("invalid webhook event '%s'", candidate)
		}
		seen[candidate] = true
	}
	if len(seen) == 0 {
		return nil, apperror.BadRequest("webhook must subscribe to at least one event")
	}

	normalized := make([]string, 0, len(seen))
	for event := range seen {
		normalized = append(normalized, event)
	}
	sort.Strings(normalized)
	return normalized, nil
}
