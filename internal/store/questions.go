package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/gemologic/lattice/internal/apperror"
	"github.com/gemologic/lattice/internal/eventlog"
)

// CreateQuestion raises an open question against a task.
func (s *Store) CreateQuestion(ctx context.Context, slug, ref, question, questionContext, askedBy string) (*Question, error) {
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.resolveTask(normalized, ref)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return nil, apperror.BadRequest("question cannot be empty")
	}

	record := Question{
		ID:        s.newID(),
		TaskID:    task.ID,
		Question:  trimmed,
		Context:   questionContext,
		Status:    questionOpen,
		AskedBy:   askedBy,
		CreatedAt: s.timestamp(),
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := batchSetJSON(b, keyQuestion(task.ID, record.ID), &record); err != nil {
		return nil, err
	}
	err = s.events.Stage(b, &eventlog.Event{
		ProjectSlug: normalized,
		TaskID:      task.ID,
		TaskNumber:  task.TaskNumber,
		Actor:       askedBy,
		Action:      eventlog.ActionQuestionCreated,
		Detail: encodeDetail(map[string]any{
			"question_id": record.ID,
			"question":    record.Question,
		}),
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	return &record, nil
}

// AnswerQuestion resolves an open question. Answering an already resolved
// question is a conflict.
func (s *Store) AnswerQuestion(ctx context.Context, slug, ref, questionID, answer, resolvedBy string) (*Question, error) {
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.resolveTask(normalized, ref)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return nil, apperror.BadRequest("answer cannot be empty")
	}

	var record Question
	found, err := s.getJSON(keyQuestion(task.ID, questionID), &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("question '%s' not found", questionID)
	}
	if record.Status != questionOpen {
		return nil, apperror.Conflict("question '%s' is already resolved", questionID)
	}

	now := s.timestamp()
	record.Answer = &trimmed
	record.Status = questionResolved
	record.ResolvedBy = &resolvedBy
	record.ResolvedAt = &now

	b := s.db.NewBatch()
	defer b.Close()
	if err := batchSetJSON(b, keyQuestion(task.ID, record.ID), &record); err != nil {
		return nil, err
	}
	err = s.events.Stage(b, &eventlog.Event{
		ProjectSlug: normalized,
		TaskID:      task.ID,
		TaskNumber:  task.TaskNumber,
		Actor:       resolvedBy,
		Action:      eventlog.ActionQuestionResolved,
		Detail: encodeDetail(map[string]any{
			"question_id": record.ID,
		}),
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListOpenQuestions returns a project's unresolved questions, newest first,
// each joined with its task's number.
func (s *Store) ListOpenQuestions(ctx context.Context, slug string, limit, offset int64) ([]ProjectQuestion, error) {
	normalized := lookupSlug(slug)
	if _, err := s.getProject(normalized); err != nil {
		return nil, err
	}

	type taskEntry struct {
		id     string
		number int64
	}
	var entries []taskEntry
	err := s.scanPrefix(keyTaskPrefix(normalized), func(value []byte) error {
		var task Task
		if err := json.Unmarshal(value, &task); err != nil {
			return apperror.Internal("decode task: %v", err)
		}
		entries = append(entries, taskEntry{id: task.ID, number: task.TaskNumber})
		return nil
	})
	if err != nil {
		return nil, err
	}

	questions := []ProjectQuestion{}
	for _, entry := range entries {
		err := s.scanPrefix(keyQuestionPrefix(entry.id), func(value []byte) error {
			var question Question
			if err := json.Unmarshal(value, &question); err != nil {
				return apperror.Internal("decode question: %v", err)
			}
			if question.Status != questionOpen {
				return nil
			}
			questions = append(questions, ProjectQuestion{Question: question, TaskNumber: entry.number})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].CreatedAt != questions[j].CreatedAt {
			return questions[i].CreatedAt > questions[j].CreatedAt
		}
		return questions[i].ID > questions[j].ID
	})
	return slicePage(questions, limit, offset), nil
}

// taskQuestions returns every question on a task, newest first. Resolved
// questions are included so answers stay visible on the task view.
func (s *Store) taskQuestions(taskID string) ([]Question, error) {
	questions := []Question{}
	err := s.scanPrefixReverse(keyQuestionPrefix(taskID), func(value []byte) error {
		var question Question
		if err := json.Unmarshal(value, &question); err != nil {
			return apperror.Internal("decode question: %v", err)
		}
		questions = append(questions, question)
		return nil
	})
	return questions, err
}
