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

// CreateProject registers a project and pre-creates its empty spec sections
// in the same batch. Creation itself emits no event.
func (s *Store) CreateProject(ctx context.Context, name, slug, goal string) (*ProjectSummary, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return nil, apperror.BadRequest("project name cannot be empty")
	}
	normalized, err := NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing Project
	found, err := s.getJSON(keyProject(normalized), &existing)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, apperror.Conflict("project '%s' already exists", normalized)
	}

	now := s.timestamp()
	project := Project{
		ID:        s.newID(),
		Slug:      normalized,
		Name:      trimmedName,
		Goal:      goal,
		CreatedAt: now,
		UpdatedAt: now,
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := batchSetJSON(b, keyProject(normalized), &project); err != nil {
		return nil, err
	}
	for _, section := range specSections {
		record := SpecSection{
			ID:        s.newID(),
			ProjectID: project.ID,
			Section:   section,
			UpdatedAt: now,
		}
		if err := batchSetJSON(b, keySpecSection(normalized, section), &record); err != nil {
			return nil, err
		}
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Debug("project created",
		log.Str("project", project.Slug),
		log.Str("id", project.ID))
	return s.summarize(&project)
}

// ListProjects returns project summaries ordered by creation time, newest
// first.
func (s *Store) ListProjects(ctx context.Context, limit, offset int64) ([]ProjectSummary, error) {
	var projects []Project
	err := s.scanPrefix(keyProjectPrefix(), func(value []byte) error {
		var project Project
		if err := json.Unmarshal(value, &project); err != nil {
			return apperror.Internal("decode project: %v", err)
		}
		projects = append(projects, project)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt > projects[j].CreatedAt
	})
	projects = slicePage(projects, limit, offset)

	summaries := make([]ProjectSummary, 0, len(projects))
	for i := range projects {
		summary, err := s.summarize(&projects[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// GetProject returns one project summary.
func (s *Store) GetProject(ctx context.Context, slug string) (*ProjectSummary, error) {
	project, err := s.getProject(lookupSlug(slug))
	if err != nil {
		return nil, err
	}
	return s.summarize(project)
}

// LookupProject returns the bare project record without board counts.
// Subscription handshakes use it to validate slugs cheaply.
func (s *Store) LookupProject(ctx context.Context, slug string) (*Project, error) {
	return s.getProject(lookupSlug(slug))
}

// UpdateProject applies a partial update. The goal.updated event fires only
// when the goal actually changes; renames alone stay silent.
func (s *Store) UpdateProject(ctx context.Context, slug string, name, goal *string, actor string) (*ProjectSummary, error) {
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.getProject(normalized)
	if err != nil {
		return nil, err
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperror.BadRequest("project name cannot be empty")
		}
		project.Name = trimmed
	}
	previousGoal := project.Goal
	if goal != nil {
		project.Goal = *goal
	}
	project.UpdatedAt = s.timestamp()

	b := s.db.NewBatch()
	defer b.Close()
	if err := batchSetJSON(b, keyProject(normalized), project); err != nil {
		return nil, err
	}
	if project.Goal != previousGoal {
		err := s.events.Stage(b, &eventlog.Event{
			ProjectSlug: normalized,
			Actor:       actor,
			Action:      eventlog.ActionGoalUpdated,
			Detail: encodeDetail(map[string]any{
				"from_goal": previousGoal,
				"to_goal":   project.Goal,
			}),
		})
		if err != nil {
			return nil, err
		}
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	return s.summarize(project)
}

// DeleteProject removes a project and everything under it: tasks, questions,
// spec sections and revisions, and webhooks. Deletion emits no event since
// the log rows reference the project being removed.
func (s *Store) DeleteProject(ctx context.Context, slug string) error {
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.getProject(normalized)
	if err != nil {
		return err
	}

	var taskIDs []string
	err = s.scanPrefix(keyTaskPrefix(normalized), func(value []byte) error {
		var task Task
		if err := json.Unmarshal(value, &task); err != nil {
			return apperror.Internal("decode task: %v", err)
		}
		taskIDs = append(taskIDs, task.ID)
		return nil
	})
	if err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(keyProject(normalized), nil); err != nil {
		return err
	}
	for _, taskID := range taskIDs {
		prefix := keyQuestionPrefix(taskID)
		if err := b.DeleteRange(prefix, prefixUpperBound(prefix), nil); err != nil {
			return err
		}
	}
	for _, prefix := range [][]byte{
		keyTaskPrefix(normalized),
		keySpecSectionPrefix(normalized),
		keySpecRevisionProjectPrefix(normalized),
		keyWebhookPrefix(normalized),
	} {
		if err := b.DeleteRange(prefix, prefixUpperBound(prefix), nil); err != nil {
			return err
		}
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return err
	}

	s.logger.Debug("project deleted",
		log.Str("project", normalized),
		log.Str("id", project.ID),
		log.Int("tasks", len(taskIDs)))
	return nil
}

func (s *Store) getProject(slug string) (*Project, error) {
	var project Project
	found, err := s.getJSON(keyProject(slug), &project)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("project '%s' not found", slug)
	}
	return &project, nil
}

// summarize attaches live board counts to a project record.
func (s *Store) summarize(project *Project) (*ProjectSummary, error) {
	summary := &ProjectSummary{Project: *project}

	var taskIDs []string
	err := s.scanPrefix(keyTaskPrefix(project.Slug), func(value []byte) error {
		var task Task
		if err := json.Unmarshal(value, &task); err != nil {
			return apperror.Internal("decode task: %v", err)
		}
		switch task.Status {
		case StatusBacklog:
			summary.BacklogCount++
		case StatusReady:
			summary.ReadyCount++
		case StatusInProgress:
			summary.InProgressCount++
		case StatusReview:
			summary.ReviewCount++
		case StatusDone:
			summary.DoneCount++
		}
		if task.ReviewState == ReviewNotReady {
			summary.NotReadyCount++
		}
		taskIDs = append(taskIDs, task.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, taskID := range taskIDs {
		err := s.scanPrefix(keyQuestionPrefix(taskID), func(value []byte) error {
			var question Question
			if err := json.Unmarshal(value, &question); err != nil {
				return apperror.Internal("decode question: %v", err)
			}
			if question.Status == questionOpen {
				summary.OpenQuestionCount++
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// slicePage applies offset and limit to an already sorted slice.
func slicePage[T any](items []T, limit, offset int64) []T {
	if offset >= int64(len(items)) {
		return nil
	}
	items = items[offset:]
	if limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}
