package controllers

import (
	"net/http"

	"github.com/gemologic/lattice/internal/store"
)

// TasksController handles the board's task lifecycle: create, update, move,
// review gating, and delete. Tasks are addressed by full id or display key
// ("ACME-7").
type TasksController struct {
	st *store.Store
}

// NewTasksController creates the tasks controller.
func NewTasksController(st *store.Store) *TasksController {
	return &TasksController{st: st}
}

// RegisterRoutes registers task routes with the given mux.
func (c *TasksController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/projects/{slug}/tasks", c.handleList)
	mux.HandleFunc("POST /api/v1/projects/{slug}/tasks", c.handleCreate)
	mux.HandleFunc("GET /api/v1/projects/{slug}/tasks/{ref}", c.handleGet)
	mux.HandleFunc("PATCH /api/v1/projects/{slug}/tasks/{ref}", c.handleUpdate)
	mux.HandleFunc("DELETE /api/v1/projects/{slug}/tasks/{ref}", c.handleDelete)
	mux.HandleFunc("POST /api/v1/projects/{slug}/tasks/{ref}/move", c.handleMove)
	mux.HandleFunc("POST /api/v1/projects/{slug}/tasks/{ref}/review", c.handleSetReviewState)
}

func (c *TasksController) handleList(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	limit, offset, err := parseListQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filters := store.TaskFilters{
		Status:      r.URL.Query().Get("status"),
		ReviewState: r.URL.Query().Get("review_state"),
	}
	tasks, err := c.st.ListTasks(r.Context(), slug, filters, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, mapTask(slug, &tasks[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *TasksController) handleCreate(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	input := store.NewTaskInput{
		Title:       req.Title,
		Description: stringOr(req.Description, ""),
		Status:      stringOr(req.Status, store.StatusBacklog),
		Priority:    stringOr(req.Priority, store.PriorityMedium),
		ReviewState: stringOr(req.ReviewState, store.ReviewReady),
		CreatedBy:   actorFromRequest(r),
	}
	task, err := c.st.CreateTask(r.Context(), slug, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapTask(slug, task))
}

func (c *TasksController) handleGet(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	details, err := c.st.GetTask(r.Context(), slug, r.PathValue("ref"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskDetailsResponse{
		Task:          mapTask(slug, &details.Task),
		OpenQuestions: details.OpenQuestions,
	})
}

func (c *TasksController) handleUpdate(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	var req updateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	task, err := c.st.UpdateTask(r.Context(), slug, r.PathValue("ref"), store.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		ReviewState: req.ReviewState,
		Actor:       actorFromRequest(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapTask(slug, task))
}

func (c *TasksController) handleMove(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	var req moveTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	task, err := c.st.MoveTask(r.Context(), slug, r.PathValue("ref"), store.MoveTaskInput{
		Status:    req.Status,
		SortOrder: req.SortOrder,
		Actor:     actorFromRequest(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapTask(slug, task))
}

func (c *TasksController) handleSetReviewState(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	var req setReviewStateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	task, err := c.st.SetReviewState(r.Context(), slug, r.PathValue("ref"), req.ReviewState, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapTask(slug, task))
}

func (c *TasksController) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := c.st.DeleteTask(r.Context(), r.PathValue("slug"), r.PathValue("ref"), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func stringOr(value *string, fallback string) string {
	if value != nil {
		return *value
	}
	return fallback
}
