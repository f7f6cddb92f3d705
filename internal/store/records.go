package store

import (
	"strconv"
	"strings"

	"github.com/gemologic/lattice/internal/apperror"
	"github.com/gemologic/lattice/pkg/id"
)

// Task lifecycle vocabulary, in board column order.
const (
	StatusBacklog    = "backlog"
	StatusReady      = "ready"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Review states gate agent-originated board moves.
const (
	ReviewReady    = "ready"
	ReviewNotReady = "not_ready"
)

// Webhook delivery platforms.
const (
	PlatformSlack   = "slack"
	PlatformDiscord = "discord"
	PlatformGeneric = "generic"
)

const (
	questionOpen     = "open"
	questionResolved = "resolved"
)

// specSections lists the fixed spec sections in display order. Every project
// owns exactly one record per section.
var specSections = []string{
	"overview",
	"requirements",
	"architecture",
	"technical_design",
	"open_decisions",
	"references",
}

// Project is the root tracker record. TaskCounter feeds display key
// assignment and only ever grows, so deleted tasks never free their numbers.
type Project struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Goal        string `json:"goal"`
	TaskCounter int64  `json:"task_counter"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Task is a unit of work on a project board. SortOrder positions the task
// inside its status column; TaskNumber is the per-project sequence behind
// display keys such as "ACME-7".
type Task struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	TaskNumber  int64   `json:"task_number"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	ReviewState string  `json:"review_state"`
	SortOrder   float64 `json:"sort_order"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Question is an open question raised against a task. Resolution fields stay
// null until the question is answered.
type Question struct {
	ID         string  `json:"id"`
	TaskID     string  `json:"task_id"`
	Question   string  `json:"question"`
	Context    string  `json:"context"`
	Answer     *string `json:"answer"`
	Status     string  `json:"status"`
	AskedBy    string  `json:"asked_by"`
	ResolvedBy *string `json:"resolved_by"`
	CreatedAt  string  `json:"created_at"`
	ResolvedAt *string `json:"resolved_at"`
}

// ProjectQuestion is a question joined with its task's number for
// project-wide listings.
type ProjectQuestion struct {
	Question
	TaskNumber int64 `json:"task_number"`
}

// SpecSection holds the current content of one named spec section.
type SpecSection struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Section   string `json:"section"`
	Content   string `json:"content"`
	UpdatedAt string `json:"updated_at"`
}

// SpecRevision is an immutable snapshot taken on every section update.
type SpecRevision struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Section   string `json:"section"`
	Content   string `json:"content"`
	EditedBy  string `json:"edited_by"`
	CreatedAt string `json:"created_at"`
}

// Webhook is a delivery subscription scoped to one project.
type Webhook struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Platform  string   `json:"platform"`
	Events    []string `json:"events"`
	Secret    string   `json:"secret,omitempty"`
	Active    bool     `json:"active"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// ProjectSummary is a project with live board counts.
type ProjectSummary struct {
	Project           Project `json:"project"`
	BacklogCount      int64   `json:"backlog_count"`
	ReadyCount        int64   `json:"ready_count"`
	InProgressCount   int64   `json:"in_progress_count"`
	ReviewCount       int64   `json:"review_count"`
	DoneCount         int64   `json:"done_count"`
	OpenQuestionCount int64   `json:"open_question_count"`
	NotReadyCount     int64   `json:"not_ready_count"`
}

// TaskDetails is a task with its questions, newest first.
type TaskDetails struct {
	Task          Task       `json:"task"`
	OpenQuestions []Question `json:"open_questions"`
}

// TaskFilters narrows task listings. Empty fields match everything.
type TaskFilters struct {
	Status      string
	ReviewState string
}

// NewTaskInput carries a fully defaulted create request.
type NewTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	ReviewState string
	CreatedBy   string
}

// UpdateTaskInput carries a partial update. Nil fields keep current values.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	ReviewState *string
	Actor       string
}

// MoveTaskInput repositions a task on the board. A nil SortOrder appends the
// task to the end of the target column. MCPOrigin marks agent-originated
// moves, which are refused while the task is not_ready.
type MoveTaskInput struct {
	Status    string
	SortOrder *float64
	Actor     string
	MCPOrigin bool
}

// CreateWebhookInput carries a fully defaulted webhook create request.
type CreateWebhookInput struct {
	Name     string
	URL      string
	Platform string
	Events   []string
	Secret   string
	Active   bool
}

// UpdateWebhookInput carries a partial webhook update. Nil fields keep
// current values; a non-nil empty Secret clears the stored secret.
type UpdateWebhookInput struct {
	Name     *string
	URL      *string
	Platform *string
	Events   []string
	Secret   *string
	Active   *bool
}

// NormalizeSlug uppercases and validates a project slug. Slugs are uppercase
// alphanumerics joined by single '-' separators, e.g. "PAYMENTS-V2".
func NormalizeSlug(slug string) (string, error) {
	candidate := strings.ToUpper(strings.TrimSpace(slug))
	if candidate == "" {
		return "", apperror.BadRequest("project slug cannot be empty")
	}
	if strings.HasPrefix(candidate, "-") || strings.HasSuffix(candidate, "-") || strings.Contains(candidate, "--") {
		return "", apperror.BadRequest("project slug must not start/end with '-' or contain consecutive '-'")
	}
	for _, r := range candidate {
		if !slugRune(r) {
			return "", apperror.BadRequest("project slug may only include uppercase letters, digits, and '-'")
		}
	}
	return candidate, nil
}

func slugRune(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-'
}

// DisplayKey renders the human-facing task handle, e.g. "ACME-7".
func DisplayKey(slug string, taskNumber int64) string {
	return slug + "-" + strconv.FormatInt(taskNumber, 10)
}

// taskRef is a parsed task reference: either a task id or a display key.
type taskRef struct {
	taskID     string
	slug       string
	taskNumber int64
}

func parseTaskRef(value string) (taskRef, error) {
	if parsed, err := id.Parse(value); err == nil {
		return taskRef{taskID: parsed.String()}, nil
	}
	if slug, number, ok := parseDisplayKey(value); ok {
		return taskRef{slug: slug, taskNumber: number}, nil
	}
	return taskRef{}, apperror.BadRequest("invalid task reference '%s', expected task id or display key", value)
}

// parseDisplayKey splits a "SLUG-N" handle at the first '-'. The slug half of
// a display key never contains '-' itself, and numbers carry no leading
// zeros, so anything else is rejected.
func parseDisplayKey(value string) (string, int64, bool) {
	slug, number, found := strings.Cut(value, "-")
	if !found || slug == "" {
		return "", 0, false
	}
	for _, r := range slug {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", 0, false
		}
	}
	if strings.HasPrefix(number, "0") {
		return "", 0, false
	}
	parsed, err := strconv.ParseInt(number, 10, 64)
	if err != nil || parsed <= 0 {
		return "", 0, false
	}
	return slug, parsed, true
}

func validateStatus(value string) error {
	switch value {
	case StatusBacklog, StatusReady, StatusInProgress, StatusReview, StatusDone:
		return nil
	}
	return apperror.BadRequest("invalid task status '%s'", value)
}

func validatePriority(value string) error {
	switch value {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return nil
	}
	return apperror.BadRequest("invalid task priority '%s'", value)
}

func validateReviewState(value string) error {
	switch value {
	case ReviewReady, ReviewNotReady:
		return nil
	}
	return apperror.BadRequest("invalid review state '%s'", value)
}

func validateSpecSection(section string) error {
	for _, known := range specSections {
		if known == section {
			return nil
		}
	}
	return apperror.BadRequest("invalid spec section '%s'", section)
}
