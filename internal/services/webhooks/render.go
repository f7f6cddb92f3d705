package webhooksvc

import (
	"encoding/json"
	"fmt"

	"github.com/gemologic/lattice/internal/eventlog"
	"github.com/gemologic/lattice/internal/store"
)

// Payload is the platform-independent shape of one delivery, and the
// wire body for generic webhooks. Task fields are pointers so that
// project-scoped events serialize them as explicit nulls rather than
// dropping the keys.
type Payload struct {
	Event          string  `json:"event"`
	Project        string  `json:"project"`
	TaskID         *string `json:"task_id"`
	TaskNumber     *int64  `json:"task_number"`
	TaskDisplayKey *string `json:"task_display_key"`
	Actor          string  `json:"actor"`
	Detail         any     `json:"detail"`
	CreatedAt      string  `json:"created_at"`
}

// payloadFromEvent maps a committed event onto the wire payload. Detail
// is surfaced as structured JSON when it parses and as a plain string
// when it does not.
func payloadFromEvent(ev *eventlog.Event) Payload {
	payload := Payload{
		Event:     ev.Action,
		Project:   ev.ProjectSlug,
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
	return payload
}

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

// renderBody encodes the payload for the webhook's platform. Slack and
// Discord get chat-formatted documents; every other platform receives
// the payload verbatim.
func renderBody(platform string, payload *Payload) ([]byte, error) {
	var body any
	switch platform {
	case store.PlatformSlack:
		body = slackBody(payload)
	case store.PlatformDiscord:
		body = discordBody(payload)
	default:
		body = payload
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}
	return encoded, nil
}

// taskLabel names the task in chat messages, falling back to "task" for
// project-scoped events.
func taskLabel(payload *Payload) string {
	if payload.TaskDisplayKey != nil {
		return *payload.TaskDisplayKey
	}
	return "task"
}

func slackBody(payload *Payload) map[string]any {
	label := taskLabel(payload)
	return map[string]any{
		"text": fmt.Sprintf("[%s] %s %s", payload.Project, payload.Event, label),
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*%s* `%s` in *%s*", payload.Event, label, payload.Project),
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": fmt.Sprintf("actor: %s • %s", payload.Actor, payload.CreatedAt),
					},
				},
			},
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": compactDetail(payload.Detail),
				},
			},
		},
	}
}

func discordBody(payload *Payload) map[string]any {
	label := taskLabel(payload)
	return map[string]any{
		"embeds": []map[string]any{
			{
				"title":       fmt.Sprintf("%s • %s", payload.Event, label),
				"description": compactDetail(payload.Detail),
				"color":       discordColor(payload.Event),
				"footer": map[string]any{
					"text": fmt.Sprintf("%s • %s", payload.Project, payload.Actor),
				},
				"timestamp": payload.CreatedAt,
			},
		},
	}
}

// compactDetail renders the detail document on a single line for chat
// bodies. Anything that cannot be encoded collapses to an empty object.
func compactDetail(detail any) string {
	if detail == nil {
		return "{}"
	}
	encoded, err := json.Marshal(detail)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

// discordColor picks the embed accent for an action. Unlisted actions,
// task.updated among them, use the neutral gray.
func discordColor(action string) uint32 {
	switch action {
	case eventlog.ActionTaskCreated:
		return 0x7A3FFF
	case eventlog.ActionTaskMoved:
		return 0x4F9DFF
	case eventlog.ActionTaskDeleted:
		return 0xC94C4C
	case eventlog.ActionReviewStateChanged:
		return 0xE0A341
	case eventlog.ActionQuestionCreated:
		return 0xF0C54A
	case eventlog.ActionQuestionResolved:
		return 0x4BB47B
	case eventlog.ActionSpecUpdated:
		return 0x9A65C7
	case eventlog.ActionGoalUpdated:
		return 0x74BBD6
	default:
		return 0x8A8A8A
	}
}
