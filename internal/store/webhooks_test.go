package store

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/gemologic/lattice/internal/apperror"
	"github.com/gemologic/lattice/internal/eventlog"
)

func TestCreateWebhookNormalizesInput(t *testing.T) {
	s, events, _ := newTestStore(t)
	summary := mustCreateProject(t, s, "Acme", "ACME")

	webhook, err := s.CreateWebhook(context.Background(), "acme", CreateWebhookInput{
		Name:     "  Team channel  ",
		URL:      "  https://hooks.example.com/T123  ",
		Platform: " SLACK ",
		Events: []string{
			" task.moved ",
			"task.created",
			"",
			"task.created",
		},
		Secret: "  hush  ",
		Active: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if webhook.Name != "Team channel" {
		t.Fatalf("name = %q", webhook.Name)
	}
	if webhook.URL != "https://hooks.example.com/T123" {
		t.Fatalf("url = %q", webhook.URL)
	}
	if webhook.Platform != PlatformSlack {
		t.Fatalf("platform = %q", webhook.Platform)
	}
	want := []string{eventlog.ActionTaskCreated, eventlog.ActionTaskMoved}
	if !reflect.DeepEqual(webhook.Events, want) {
		t.Fatalf("events = %v, want %v", webhook.Events, want)
	}
	if webhook.Secret != "hush" {
		t.Fatalf("secret = %q", webhook.Secret)
	}
	if !webhook.Active || webhook.ProjectID != summary.Project.ID {
		t.Fatalf("unexpected webhook %+v", webhook)
	}

	// Webhook management is configuration, not project activity.
	if got := allEvents(t, events); len(got) != 0 {
		t.Fatalf("webhook create emitted %d events", len(got))
	}
}

func TestCreateWebhookValidation(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreateProject(t, s, "Acme", "ACME")
	ctx := context.Background()

	valid := CreateWebhookInput{
		Name:     "hook",
		URL:      "https://hooks.example.com/x",
		Platform: PlatformGeneric,
		Events:   []string{eventlog.ActionTaskCreated},
	}

	cases := []struct {
		name    string
		mutate  func(input *CreateWebhookInput)
		message string
	}{
		{
			name:    "blank name",
			mutate:  func(input *CreateWebhookInput) { input.Name = "   " },
			message: "webhook name cannot be empty",
		},
		{
			name:    "relative url",
			mutate:  func(input *CreateWebhookInput) { input.URL = "hooks.example.com/x" },
			message: "webhook url must be a valid http(s) URL",
		},
		{
			name:    "hostless url",
			mutate:  func(input *CreateWebhookInput) { input.URL = "http://" },
			message: "webhook url must be a valid http(s) URL",
		},
		{
			name:    "wrong scheme",
			mutate:  func(input *CreateWebhookInput) { input.URL = "ftp://hooks.example.com/x" },
			message: "webhook url must use http or https",
		},
		{
			name:    "unknown platform",
			mutate:  func(input *CreateWebhookInput) { input.Platform = "teams" },
			message: "invalid webhook platform 'teams'",
		},
		{
			name:    "unknown event",
			mutate:  func(input *CreateWebhookInput) { input.Events = []string{"task.exploded"} },
			message: "invalid webhook event 'task.exploded'",
		},
		{
			name:    "no events",
			mutate:  func(input *CreateWebhookInput) { input.Events = []string{" ", ""} },
			message: "webhook must subscribe to at least one event",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			_, err := s.CreateWebhook(ctx, "ACME", input)
			if !apperror.IsBadRequest(err) {
				t.Fatalf("want bad request, got %v", err)
			}
			if err.Error() != tc.message {
				t.Fatalf("message = %q, want %q", err.Error(), tc.message)
			}
		})
	}

	if _, err := s.CreateWebhook(ctx, "GHOST", valid); !apperror.IsNotFound(err) {
		t.Fatalf("unknown project: %v", err)
	}
}

func TestListWebhooksNewestFirstAndActiveFilter(t *testing.T) {
	s, _, clk := newTestStore(t)
	mustCreateProject(t, s, "Acme", "ACME")
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for i, active := range []bool{true, false, true} {
		webhook, err := s.CreateWebhook(ctx, "ACME", CreateWebhookInput{
			Name:     "hook",
			URL:      "https://hooks.example.com/x",
			Platform: PlatformGeneric,
			Events:   []string{eventlog.ActionTaskCreated},
			Active:   active,
		})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, webhook.ID)
		clk.Advance(time.Second)
	}

	all, err := s.ListWebhooks(ctx, "ACME")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 webhooks, got %d", len(all))
	}
	if all[0].ID != ids[2] || all[1].ID != ids[1] || all[2].ID != ids[0] {
		t.Fatalf("not newest first: %+v", all)
	}

	active, err := s.ListActiveWebhooks(ctx, "ACME")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("want 2 active webhooks, got %d", len(active))
	}
	for _, webhook := range active {
		if !webhook.Active {
			t.Fatalf("inactive webhook leaked: %+v", webhook)
		}
	}

	if _, err := s.ListWebhooks(ctx, "GHOST"); !apperror.IsNotFound(err) {
		t.Fatalf("unknown project: %v", err)
	}
}

func TestUpdateWebhookPartial(t *testing.T) {
	s, _, clk := newTestStore(t)
	mustCreateProject(t, s, "Acme", "ACME")
	ctx := context.Background()

	webhook, err := s.CreateWebhook(ctx, "ACME", CreateWebhookInput{
		Name:     "hook",
		URL:      "https://hooks.example.com/x",
		Platform: PlatformSlack,
		Events:   []string{eventlog.ActionTaskCreated},
		Secret:   "hush",
		Active:   true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clk.Advance(time.Minute)
	name := "  renamed  "
	updated, err := s.UpdateWebhook(ctx, "ACME", webhook.ID, UpdateWebhookInput{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "renamed" {
		t.Fatalf("name = %q", updated.Name)
	}
	if updated.URL != webhook.URL || updated.Platform != webhook.Platform || updated.Secret != "hush" || !updated.Active {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if !reflect.DeepEqual(updated.Events, webhook.Events) {
		t.Fatalf("nil events replaced subscriptions: %v", updated.Events)
	}
	if updated.UpdatedAt == webhook.UpdatedAt {
		t.Fatal("updated_at did not move")
	}
	if updated.CreatedAt != webhook.CreatedAt {
		t.Fatal("created_at moved")
	}

	platform := " Discord "
	endpoint := "http://hooks.example.com/y"
	subscriptions := []string{eventlog.ActionTaskMoved, eventlog.ActionTaskMoved, eventlog.ActionQuestionCreated}
	active := false
	updated, err = s.UpdateWebhook(ctx, "ACME", webhook.ID, UpdateWebhookInput{
		URL:      &endpoint,
		Platform: &platform,
		Events:   subscriptions,
		Active:   &active,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Platform != PlatformDiscord || updated.URL != endpoint || updated.Active {
		t.Fatalf("unexpected webhook %+v", updated)
	}
	want := []string{eventlog.ActionQuestionCreated, eventlog.ActionTaskMoved}
	if !reflect.DeepEqual(updated.Events, want) {
		t.Fatalf("events = %v, want %v", updated.Events, want)
	}

	// A nil secret keeps the stored value, an empty one clears it.
	updated, err = s.UpdateWebhook(ctx, "ACME", webhook.ID, UpdateWebhookInput{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Secret != "hush" {
		t.Fatalf("secret cleared by nil: %q", updated.Secret)
	}
	empty := "  "
	updated, err = s.UpdateWebhook(ctx, "ACME", webhook.ID, UpdateWebhookInput{Secret: &empty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Secret != "" {
		t.Fatalf("secret survived clear: %q", updated.Secret)
	}

	badEvents := []string{"task.exploded"}
	if _, err := s.UpdateWebhook(ctx, "ACME", webhook.ID, UpdateWebhookInput{Events: badEvents}); !apperror.IsBadRequest(err) {
		t.Fatalf("bad events: %v", err)
	}
	if _, err := s.UpdateWebhook(ctx, "ACME", "missing", UpdateWebhookInput{Name: &name}); !apperror.IsNotFound(err) {
		t.Fatalf("unknown webhook: %v", err)
	}
}

func TestDeleteWebhook(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreateProject(t, s, "Acme", "ACME")
	ctx := context.Background()

	webhook, err := s.CreateWebhook(ctx, "ACME", CreateWebhookInput{
		Name:     "hook",
		URL:      "https://hooks.example.com/x",
		Platform: PlatformGeneric,
		Events:   []string{eventlog.ActionTaskCreated},
		Active:   true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.DeleteWebhook(ctx, "acme", webhook.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetWebhook(ctx, "ACME", webhook.ID); !apperror.IsNotFound(err) {
		t.Fatalf("webhook survived delete: %v", err)
	}
	if err := s.DeleteWebhook(ctx, "ACME", webhook.ID); !apperror.IsNotFound(err) {
		t.Fatalf("second delete: %v", err)
	}

	list, err := s.ListWebhooks(ctx, "ACME")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list after delete: %+v", list)
	}
}
