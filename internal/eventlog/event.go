package eventlog

import "encoding/json"

// Action names form a fixed vocabulary; webhook subscriptions validate
// against it and the Discord renderer keys its color table on it.
const (
	ActionTaskCreated        = "task.created"
	ActionTaskUpdated        = "task.updated"
	ActionTaskMoved          = "task.moved"
	ActionTaskDeleted        = "task.deleted"
	ActionReviewStateChanged = "task.review_state_changed"
	ActionQuestionCreated    = "question.created"
	ActionQuestionResolved   = "question.resolved"
	ActionSpecUpdated        = "spec.updated"
	ActionGoalUpdated        = "goal.updated"
)

var actions = []string{
	ActionTaskCreated,
	ActionTaskUpdated,
	ActionTaskMoved,
	ActionTaskDeleted,
	ActionReviewStateChanged,
	ActionQuestionCreated,
	ActionQuestionResolved,
	ActionSpecUpdated,
	ActionGoalUpdated,
}

// Actions returns the event vocabulary in stable order.
func Actions() []string {
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

// ValidAction reports whether name is part of the vocabulary.
func ValidAction(name string) bool {
	for _, a := range actions {
		if a == name {
			return true
		}
	}
	return false
}

// Event is one immutable log row. Task fields are set only for task-scoped
// actions; project-scoped actions (spec.updated, goal.updated) leave them
// empty.
type Event struct {
	ID          string          `json:"id"`
	ProjectSlug string          `json:"project_slug"`
	TaskID      string          `json:"task_id,omitempty"`
	TaskNumber  int64           `json:"task_number,omitempty"`
	Actor       string          `json:"actor"`
	Action      string          `json:"action"`
	Detail      json.RawMessage `json:"detail"`
	CreatedAt   string          `json:"created_at"`
}

// Cursor marks the last event a consumer observed, as the (created_at, id)
// ordering pair.
type Cursor struct {
	CreatedAt string
	ID        string
}
