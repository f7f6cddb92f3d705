package controllers

import "github.com/gemologic/lattice/internal/store"

// Request and response bodies for the tracker API. Partial-update requests
// use pointer fields so "absent" and "empty" stay distinguishable.

type createProjectRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Goal string `json:"goal"`
}

type updateProjectRequest struct {
	Name *string `json:"name"`
	Goal *string `json:"goal"`
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	ReviewState *string `json:"review_state"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	ReviewState *string `json:"review_state"`
}

type moveTaskRequest struct {
	Status    string   `json:"status"`
	SortOrder *float64 `json:"sort_order"`
}

type setReviewStateRequest struct {
	ReviewState string `json:"review_state"`
}

type createQuestionRequest struct {
	Question string  `json:"question"`
	Context  *string `json:"context"`
}

type answerQuestionRequest struct {
	Answer string `json:"answer"`
}

type updateSpecSectionRequest struct {
	Content string `json:"content"`
}

type createWebhookRequest struct {
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Platform string   `json:"platform"`
	Events   []string `json:"events"`
	Secret   *string  `json:"secret"`
	Active   *bool    `json:"active"`
}

type updateWebhookRequest struct {
	Name     *string  `json:"name"`
	URL      *string  `json:"url"`
	Platform *string  `json:"platform"`
	Events   []string `json:"events"`
	Secret   *string  `json:"secret"`
	Active   *bool    `json:"active"`
}

// taskResponse is a task with its project-scoped display key.
type taskResponse struct {
	ID          string  `json:"id"`
	DisplayKey  string  `json:"display_key"`
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

func mapTask(slug string, task *store.Task) taskResponse {
	return taskResponse{
		ID:          task.ID,
		DisplayKey:  store.DisplayKey(displaySlug(slug), task.TaskNumber),
		TaskNumber:  task.TaskNumber,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		ReviewState: task.ReviewState,
		SortOrder:   task.SortOrder,
		CreatedBy:   task.CreatedBy,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

type taskDetailsResponse struct {
	Task          taskResponse     `json:"task"`
	OpenQuestions []store.Question `json:"open_questions"`
}

// projectQuestionResponse joins a question with its task's display key for
// project-wide listings.
type projectQuestionResponse struct {
	store.Question
	TaskNumber     int64  `json:"task_number"`
	TaskDisplayKey string `json:"task_display_key"`
}

// webhookResponse never echoes the stored secret, only whether one exists.
type webhookResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Platform  string   `json:"platform"`
	Events    []string `json:"events"`
	Active    bool     `json:"active"`
	HasSecret bool     `json:"has_secret"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func mapWebhook(webhook *store.Webhook) webhookResponse {
	return webhookResponse{
		ID:        webhook.ID,
		Name:      webhook.Name,
		URL:       webhook.URL,
		Platform:  webhook.Platform,
		Events:    webhook.Events,
		Active:    webhook.Active,
		HasSecret: webhook.Secret != "",
		CreatedAt: webhook.CreatedAt,
		UpdatedAt: webhook.UpdatedAt,
	}
}
