package webhooksvc

import (
	"encoding/json"
	"testing"

	"github.com/gemologic/lattice/internal/eventlog"
	"github.com/gemologic/lattice/internal/store"
)

func moveEvent() *eventlog.Event {
	return &eventlog.Event{
		ID:          "00000000000000010000000000000001",
		ProjectSlug: "ACME",
		TaskID:      "00000000000000010000000000000002",
		TaskNumber:  7,
		Actor:       "agent-7",
		Action:      eventlog.ActionTaskMoved,
		Detail:      json.RawMessage(`{"from_status":"backlog","to_status":"in_progress"}`),
		CreatedAt:   "2026-05-12T08:00:00Z",
	}
}

func TestGenericBodyCarriesExplicitNulls(t *testing.T) {
	ev := &eventlog.Event{
		ID:          "00000000000000010000000000000001",
		ProjectSlug: "ACME",
		Actor:       "human",
		Action:      eventlog.ActionGoalUpdated,
		Detail:      json.RawMessage(`{"goal":"ship"}`),
		CreatedAt:   "2026-05-12T08:00:00Z",
	}
	payload := payloadFromEvent(ev)
	body, err := renderBody(store.PlatformGeneric, &payload)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	decoded := map[string]any{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["event"] != eventlog.ActionGoalUpdated || decoded["project"] != "ACME" {
		t.Fatalf("unexpected body %v", decoded)
	}
	for _, key := range []string{"task_id", "task_number", "task_display_key"} {
		value, ok := decoded[key]
		if !ok {
			t.Fatalf("project scoped body dropped %s", key)
		}
		if value != nil {
			t.Fatalf("%s = %v, want null", key, value)
		}
	}
}

func TestGenericBodyJoinsDisplayKey(t *testing.T) {
	payload := payloadFromEvent(moveEvent())
	body, err := renderBody(store.PlatformGeneric, &payload)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	decoded := map[string]any{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["task_display_key"] != "ACME-7" {
		t.Fatalf("display key = %v", decoded["task_display_key"])
	}
	if decoded["task_number"] != float64(7) {
		t.Fatalf("task number = %v", decoded["task_number"])
	}
	detail, ok := decoded["detail"].(map[string]any)
	if !ok || detail["to_status"] != store.StatusInProgress {
		t.Fatalf("detail = %v", decoded["detail"])
	}
}

func TestSlackBodyFormatsBlocks(t *testing.T) {
	payload := payloadFromEvent(moveEvent())
	body := slackBody(&payload)

	if got := body["text"]; got != "[ACME] task.moved ACME-7" {
		t.Fatalf("text = %q", got)
	}
	blocks, ok := body["blocks"].([]map[string]any)
	if !ok || len(blocks) != 3 {
		t.Fatalf("blocks = %v", body["blocks"])
	}
	header := blocks[0]["text"].(map[string]any)
	if header["text"] != "*task.moved* `ACME-7` in *ACME*" {
		t.Fatalf("header = %q", header["text"])
	}
	meta := blocks[1]["elements"].([]map[string]any)[0]
	if meta["text"] != "actor: agent-7 • 2026-05-12T08:00:00Z" {
		t.Fatalf("context = %q", meta["text"])
	}
	detail := blocks[2]["text"].(map[string]any)
	if detail["text"] != `{"from_status":"backlog","to_status":"in_progress"}` {
		t.Fatalf("detail = %q", detail["text"])
	}
}

func TestChatBodiesFallBackToTaskLabel(t *testing.T) {
	payload := payloadFromEvent(&eventlog.Event{
		ID:          "00000000000000010000000000000001",
		ProjectSlug: "ACME",
		Actor:       "human",
		Action:      eventlog.ActionSpecUpdated,
		Detail:      json.RawMessage(`{"section":"overview"}`),
		CreatedAt:   "2026-05-12T08:00:00Z",
	})

	slack := slackBody(&payload)
	if got := slack["text"]; got != "[ACME] spec.updated task" {
		t.Fatalf("slack text = %q", got)
	}

	discord := discordBody(&payload)
	embed := discord["embeds"].([]map[string]any)[0]
	if embed["title"] != "spec.updated • task" {
		t.Fatalf("discord title = %q", embed["title"])
	}
}

func TestDiscordBodyFormatsEmbed(t *testing.T) {
	payload := payloadFromEvent(moveEvent())
	body := discordBody(&payload)

	embeds, ok := body["embeds"].([]map[string]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("embeds = %v", body["embeds"])
	}
	embed := embeds[0]
	if embed["title"] != "task.moved • ACME-7" {
		t.Fatalf("title = %q", embed["title"])
	}
	if embed["description"] != `{"from_status":"backlog","to_status":"in_progress"}` {
		t.Fatalf("description = %q", embed["description"])
	}
	if embed["color"] != uint32(0x4F9DFF) {
		t.Fatalf("color = %v", embed["color"])
	}
	footer := embed["footer"].(map[string]any)
	if footer["text"] != "ACME • agent-7" {
		t.Fatalf("footer = %q", footer["text"])
	}
	if embed["timestamp"] != "2026-05-12T08:00:00Z" {
		t.Fatalf("timestamp = %v", embed["timestamp"])
	}
}

func TestDiscordColorTable(t *testing.T) {
	cases := map[string]uint32{
		eventlog.ActionTaskCreated:        0x7A3FFF,
		eventlog.ActionTaskMoved:          0x4F9DFF,
		eventlog.ActionTaskDeleted:        0xC94C4C,
		eventlog.ActionReviewStateChanged: 0xE0A341,
		eventlog.ActionQuestionCreated:    0xF0C54A,
		eventlog.ActionQuestionResolved:   0x4BB47B,
		eventlog.ActionSpecUpdated:        0x9A65C7,
		eventlog.ActionGoalUpdated:        0x74BBD6,
		eventlog.ActionTaskUpdated:        0x8A8A8A,
		"test":                            0x8A8A8A,
	}
	for action, want := range cases {
		if got := discordColor(action); got != want {
			t.Errorf("color(%s) = %#x, want %#x", action, got, want)
		}
	}
}

func TestCompactDetail(t *testing.T) {
	if got := compactDetail(nil); got != "{}" {
		t.Fatalf("nil detail = %q", got)
	}
	if got := compactDetail(decodeDetail(nil)); got != "{}" {
		t.Fatalf("empty detail = %q", got)
	}
	if got := compactDetail(decodeDetail(json.RawMessage("not json"))); got != `"not json"` {
		t.Fatalf("string fallback = %q", got)
	}
	if got := compactDetail(map[string]any{"z": 1, "a": "b"}); got != `{"a":"b","z":1}` {
		t.Fatalf("compact = %q", got)
	}
	if got := compactDetail(make(chan int)); got != "{}" {
		t.Fatalf("unencodable detail = %q", got)
	}
}
