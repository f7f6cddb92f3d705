package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/gemologic/lattice/internal/apperror"
	"github.com/gemologic/lattice/internal/eventlog"
	"github.com/gemologic/lattice/pkg/log"
)

// statusRank orders board columns for task listings.
func statusRank(status string) int {
	switch status {
	case StatusBacklog:
		return 0
	case StatusReady:
		return 1
	case StatusInProgress:
		return 2
	case StatusReview:
		return 3
	case StatusDone:
		return 4
	}
	return 5
}

// ListTasks returns a project's tasks in board order: column, then sort
// order, then age. An unknown project yields an empty list rather than an
// error so boards render before their first task exists.
func (s *Store) ListTasks(ctx context.Context, slug string, filters TaskFilters, limit, offset int64) ([]Task, error) {
	if filters.Status != "" {
		if err := validateStatus(filters.Status); err != nil {
			return nil, err
		}
	}
	if filters.ReviewState != "" {
		if err := validateReviewState(filters.ReviewState); err != nil {
			return nil, err
		}
	}

	normalized := lookupSlug(slug)
	tasks := []Task{}
	err := s.scanPrefix(keyTaskPrefix(normalized), func(value []byte) error {
		var task Task
		if err := json.Unmarshal(value, &task); err != nil {
			return apperror.Internal("decode task: %v", err)
		}
		if filters.Status != "" && task.Status != filters.Status {
			return nil
		}
		if filters.ReviewState != "" && task.ReviewState != filters.ReviewState {
			return nil
		}
		tasks = append(tasks, task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := statusRank(tasks[i].Status), statusRank(tasks[j].Status)
		if ri != rj {
			return ri < rj
		}
		if tasks[i].SortOrder != tasks[j].SortOrder {
			return tasks[i].SortOrder < tasks[j].SortOrder
		}
		return tasks[i].CreatedAt < tasks[j].CreatedAt
	})
	return slicePage(tasks, limit, offset), nil
}

// CreateTask appends a task to the board. The project's task counter and
// updated_at move in the same batch as the task row and its task.created
// event.
func (s *Store) CreateTask(ctx context.Context, slug string, input NewTaskInput) (*Task, error) {
	if err := validateStatus(input.Status); err != nil {
		return nil, err
	}
	if err := validatePriority(input.Priority); err != nil {
		return nil, err
	}
	if err := validateReviewState(input.ReviewState); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.BadRequest("task title cannot be empty")
	}

	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.getProject(normalized)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	project.TaskCounter++
	project.UpdatedAt = now

	maxOrder, err := s.maxSortOrder(normalized, input.Status)
	if err != nil {
		return nil, err
	}

	task := Task{
		ID:          s.newID(),
		ProjectID:   project.ID,
		TaskNumber:  project.TaskCounter,
		Title:       title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		ReviewState: input.ReviewState,
		SortOrder:   maxOrder + 1.0,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := batchSetJSON(b, keyProject(normalized), project); err != nil {
		return nil, err
	}
	if err := batchSetJSON(b, keyTask(normalized, task.ID), &task); err != nil {
		return nil, err
	}
	err = s.events.Stage(b, &eventlog.Event{
		ProjectSlug: normalized,
		TaskID:      task.ID,
		TaskNumber:  task.TaskNumber,
		Actor:       input.CreatedBy,
		Action:      eventlog.ActionTaskCreated,
		Detail: encodeDetail(map[string]any{
			"status":   task.Status,
			"priority": task.Priority,
		}),
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Debug("task created",
		log.Str("project", normalized),
		log.Str("task", DisplayKey(normalized, task.TaskNumber)))
	return &task, nil
}

// GetTask returns a task with its questions, newest question first.
func (s *Store) GetTask(ctx context.Context, slug, ref string) (*TaskDetails, error) {
	normalized := lookupSlug(slug)
	task, err := s.resolveTask(normalized, ref)
	if err != nil {
		return nil, err
	}
	questions, err := s.taskQuestions(task.ID)
	if err != nil {
		return nil, err
	}
	return &TaskDetails{Task: *task, OpenQuestions: questions}, nil
}

// UpdateTask applies a partial update and emits task.updated carrying the
// final status, priority, and review state.
func (s *Store) UpdateTask(ctx context.Context, slug, ref string, input UpdateTaskInput) (*Task, error) {
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.resolveTask(normalized, ref)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		if trimmed == "" {
			return nil, apperror.BadRequest("task title cannot be empty")
		}
		task.Title = trimmed
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if err := validateStatus(*input.Status); err != nil {
			return nil, err
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if err := validatePriority(*input.Priority); err != nil {
			return nil, err
		}
		task.Priority = *input.Priority
	}
	if input.ReviewState != nil {
		if err := validateReviewState(*input.ReviewState); err != nil {
			return nil, err
		}
		task.ReviewState = *input.ReviewState
	}
	task.UpdatedAt = s.timestamp()

	b := s.db.NewBatch()
	defer b.Close()
	if err := batchSetJSON(b, keyTask(normalized, task.ID), task); err != nil {
		return nil, err
	}
	err = s.events.Stage(b, &eventlog.Event{
		ProjectSlug: normalized,
		TaskID:      task.ID,
		TaskNumber:  task.TaskNumber,
		Actor:       input.Actor,
		Action:      eventlog.ActionTaskUpdated,
		Detail: encodeDetail(map[string]any{
			"status":       task.Status,
			"priority":     task.Priority,
			"review_state": task.ReviewState,
		}),
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	return task, nil
}

// MoveTask repositions a task on the board. Agent-originated moves are
// refused while the task is marked not_ready; a human moving the same task
// is always allowed.
func (s *Store) MoveTask(ctx context.Context, slug, ref string, input MoveTaskInput) (*Task, error) {
	if err := validateStatus(input.Status); err != nil {
		return nil, err
	}
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.resolveTask(normalized, ref)
	if err != nil {
		return nil, err
	}
	if input.MCPOrigin && task.ReviewState == ReviewNotReady {
		return nil, apperror.BadRequest("task is not_ready, set review_state to ready before moving")
	}

	var sortOrder float64
	if input.SortOrder != nil {
		sortOrder = *input.SortOrder
	} else {
		maxOrder, err := s.maxSortOrder(normalized, input.Status)
		if err != nil {
			return nil, err
		}
		sortOrder = maxOrder + 1.0
	}

	fromStatus := task.Status
	task.Status = input.Status
	task.SortOrder = sortOrder
	task.UpdatedAt = s.timestamp()

	b := s.db.NewBatch()
	defer b.Close()
	if err := batchSetJSON(b, keyTask(normalized, task.ID), task); err != nil {
		return nil, err
	}
	err = s.events.Stage(b, &eventlog.Event{
		ProjectSlug: normalized,
		TaskID:      task.ID,
		TaskNumber:  task.TaskNumber,
		Actor:       input.Actor,
		Action:      eventlog.ActionTaskMoved,
		Detail: encodeDetail(map[string]any{
			"from_status": fromStatus,
			"to_status":   task.Status,
			"sort_order":  task.SortOrder,
		}),
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	return task, nil
}

// SetReviewState flips the review gate. Setting the current state again is a
// no-op: no write, no event.
func (s *Store) SetReviewState(ctx context.Context, slug, ref, reviewState, actor string) (*Task, error) {
	if err := validateReviewState(reviewState); err != nil {
		return nil, err
	}
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.resolveTask(normalized, ref)
	if err != nil {
		return nil, err
	}
	if task.ReviewState == reviewState {
		return task, nil
	}

	fromState := task.ReviewState
	task.ReviewState = reviewState
	task.UpdatedAt = s.timestamp()

	b := s.db.NewBatch()
	defer b.Close()
	if err := batchSetJSON(b, keyTask(normalized, task.ID), task); err != nil {
		return nil, err
	}
	err = s.events.Stage(b, &eventlog.Event{
		ProjectSlug: normalized,
		TaskID:      task.ID,
		TaskNumber:  task.TaskNumber,
		Actor:       actor,
		Action:      eventlog.ActionReviewStateChanged,
		Detail: encodeDetail(map[string]any{
			"from_review_state": fromState,
			"to_review_state":   task.ReviewState,
		}),
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task and its questions. The task.deleted event
// commits in the same batch, so the log row survives the task it describes.
func (s *Store) DeleteTask(ctx context.Context, slug, ref, actor string) error {
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.resolveTask(normalized, ref)
	if err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()
	err = s.events.Stage(b, &eventlog.Event{
		ProjectSlug: normalized,
		TaskID:      task.ID,
		TaskNumber:  task.TaskNumber,
		Actor:       actor,
		Action:      eventlog.ActionTaskDeleted,
	})
	if err != nil {
		return err
	}
	if err := b.Delete(keyTask(normalized, task.ID), nil); err != nil {
		return err
	}
	prefix := keyQuestionPrefix(task.ID)
	if err := b.DeleteRange(prefix, prefixUpperBound(prefix), nil); err != nil {
		return err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return err
	}

	s.logger.Debug("task deleted",
		log.Str("project", normalized),
		log.Str("task", DisplayKey(normalized, task.TaskNumber)))
	return nil
}

// resolveTask loads a task by id or display key. Display keys resolve only
// inside their own project.
func (s *Store) resolveTask(slug, ref string) (*Task, error) {
	parsed, err := parseTaskRef(ref)
	if err != nil {
		return nil, err
	}

	if parsed.taskID != "" {
		var task Task
		found, err := s.getJSON(keyTask(slug, parsed.taskID), &task)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, apperror.NotFound("task '%s' not found", ref)
		}
		return &task, nil
	}

	if parsed.slug != slug {
		return nil, apperror.NotFound("task '%s' is outside project '%s'", ref, slug)
	}
	var match *Task
	err = s.scanPrefix(keyTaskPrefix(slug), func(value []byte) error {
		var task Task
		if err := json.Unmarshal(value, &task); err != nil {
			return apperror.Internal("decode task: %v", err)
		}
		if task.TaskNumber == parsed.taskNumber {
			match = &task
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, apperror.NotFound("task '%s' not found", ref)
	}
	return match, nil
}

// maxSortOrder returns the highest sort order in a board column, or zero for
// an empty column.
func (s *Store) maxSortOrder(slug, status string) (float64, error) {
	var maxOrder float64
	found := false
	err := s.scanPrefix(keyTaskPrefix(slug), func(value []byte) error {
		var task Task
		if err := json.Unmarshal(value, &task); err != nil {
			return apperror.Internal("decode task: %v", err)
		}
		if task.Status == status && (!found || task.SortOrder > maxOrder) {
			maxOrder = task.SortOrder
			found = true
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return maxOrder, nil
}
