package store

import (
	"context"
	"testing"
	"time"

	"github.com/gemologic/lattice/internal/apperror"
	"github.com/gemologic/lattice/internal/eventlog"
)

func TestQuestionLifecycle(t *testing.T) {
	s, events, clk := newTestStore(t)
	mustCreateProject(t, s, "Acme", "ACME")
	task := mustCreateTask(t, s, "ACME", "host")
	ctx := context.Background()

	question, err := s.CreateQuestion(ctx, "ACME", "ACME-1", "  which db?  ", "migration planning", "agent-7")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if question.Question != "which db?" {
		t.Fatalf("question not trimmed: %q", question.Question)
	}
	if question.Context != "migration planning" {
		t.Fatalf("context lost: %q", question.Context)
	}
	if question.Status != "open" || question.Answer != nil || question.ResolvedAt != nil {
		t.Fatalf("fresh question wrong: %+v", question)
	}
	if question.AskedBy != "agent-7" {
		t.Fatalf("asked_by wrong: %q", question.AskedBy)
	}

	ev := lastEvent(t, events)
	if ev.Action != eventlog.ActionQuestionCreated || ev.TaskID != task.ID || ev.TaskNumber != 1 {
		t.Fatalf("unexpected event %+v", ev)
	}
	detail := decodeDetail(t, ev)
	if detail["question_id"] != question.ID || detail["question"] != "which db?" {
		t.Fatalf("unexpected detail %v", detail)
	}

	clk.Advance(time.Minute)
	resolved, err := s.AnswerQuestion(ctx, "ACME", task.ID, question.ID, "  pebble  ", "human")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if resolved.Status != "resolved" {
		t.Fatalf("status wrong: %q", resolved.Status)
	}
	if resolved.Answer == nil || *resolved.Answer != "pebble" {
		t.Fatalf("answer wrong: %v", resolved.Answer)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != "human" {
		t.Fatalf("resolved_by wrong: %v", resolved.ResolvedBy)
	}
	if resolved.ResolvedAt == nil || *resolved.ResolvedAt == resolved.CreatedAt {
		t.Fatalf("resolved_at should be the later clock: %v", resolved.ResolvedAt)
	}

	ev = lastEvent(t, events)
	if ev.Action != eventlog.ActionQuestionResolved {
		t.Fatalf("want question.resolved, got %s", ev.Action)
	}
	detail = decodeDetail(t, ev)
	if detail["question_id"] != question.ID {
		t.Fatalf("unexpected detail %v", detail)
	}
}

func TestAnswerQuestionTwiceConflicts(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreateProject(t, s, "Acme", "ACME")
	task := mustCreateTask(t, s, "ACME", "host")
	ctx := context.Background()

	question, err := s.CreateQuestion(ctx, "ACME", task.ID, "which db?", "", "agent")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AnswerQuestion(ctx, "ACME", task.ID, question.ID, "pebble", "human"); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	_, err = s.AnswerQuestion(ctx, "ACME", task.ID, question.ID, "sqlite", "human")
	if !apperror.IsConflict(err) {
		t.Fatalf("want conflict, got %v", err)
	}
	if err.Error() != "question '"+question.ID+"' is already resolved" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestQuestionValidation(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreateProject(t, s, "Acme", "ACME")
	task := mustCreateTask(t, s, "ACME", "host")
	ctx := context.Background()

	if _, err := s.CreateQuestion(ctx, "ACME", task.ID, "   ", "", "agent"); !apperror.IsBadRequest(err) {
		t.Fatalf("blank question: %v", err)
	}

	question, err := s.CreateQuestion(ctx, "ACME", task.ID, "why?", "", "agent")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AnswerQuestion(ctx, "ACME", task.ID, question.ID, "  ", "human"); !apperror.IsBadRequest(err) {
		t.Fatalf("blank answer: %v", err)
	}

	if _, err := s.AnswerQuestion(ctx, "ACME", task.ID, "missing", "fine", "human"); !apperror.IsNotFound(err) {
		t.Fatalf("unknown question: %v", err)
	}

	if _, err := s.CreateQuestion(ctx, "ACME", "ACME-42", "why?", "", "agent"); !apperror.IsNotFound(err) {
		t.Fatalf("unknown task: %v", err)
	}
}

func TestListOpenQuestionsJoinsTaskNumbers(t *testing.T) {
	s, _, clk := newTestStore(t)
	mustCreateProject(t, s, "Acme", "ACME")
	first := mustCreateTask(t, s, "ACME", "first")
	second := mustCreateTask(t, s, "ACME", "second")
	ctx := context.Background()

	older, err := s.CreateQuestion(ctx, "ACME", first.ID, "older?", "", "agent")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	clk.Advance(time.Second)
	newer, err := s.CreateQuestion(ctx, "ACME", second.ID, "newer?", "", "agent")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	clk.Advance(time.Second)
	closed, err := s.CreateQuestion(ctx, "ACME", second.ID, "closed?", "", "agent")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AnswerQuestion(ctx, "ACME", second.ID, closed.ID, "done", "human"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	open, err := s.ListOpenQuestions(ctx, "ACME", 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("want 2 open questions, got %d", len(open))
	}
	if open[0].ID != newer.ID || open[1].ID != older.ID {
		t.Fatalf("not newest first: %+v", open)
	}
	if open[0].TaskNumber != second.TaskNumber || open[1].TaskNumber != first.TaskNumber {
		t.Fatalf("task numbers wrong: %+v", open)
	}

	if _, err := s.ListOpenQuestions(ctx, "GHOST", 50, 0); !apperror.IsNotFound(err) {
		t.Fatalf("unknown project should 404: %v", err)
	}
}

func TestGetTaskListsQuestionsNewestFirst(t *testing.T) {
	s, _, clk := newTestStore(t)
	mustCreateProject(t, s, "Acme", "ACME")
	task := mustCreateTask(t, s, "ACME", "host")
	ctx := context.Background()

	older, err := s.CreateQuestion(ctx, "ACME", task.ID, "older?", "", "agent")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	clk.Advance(time.Second)
	newer, err := s.CreateQuestion(ctx, "ACME", task.ID, "newer?", "", "agent")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AnswerQuestion(ctx, "ACME", task.ID, older.ID, "fine", "human"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	details, err := s.GetTask(ctx, "ACME", task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// Resolved questions stay attached to the task view.
	if len(details.OpenQuestions) != 2 {
		t.Fatalf("want 2 questions, got %d", len(details.OpenQuestions))
	}
	if details.OpenQuestions[0].ID != newer.ID || details.OpenQuestions[1].ID != older.ID {
		t.Fatalf("not newest first: %+v", details.OpenQuestions)
	}
}
