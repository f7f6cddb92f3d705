package controllers

import (
	"net/http"

	"github.com/gemologic/lattice/internal/store"
)

// QuestionsController handles open questions raised against tasks.
type QuestionsController struct {
	st *store.Store
}

// NewQuestionsController creates the questions controller.
func NewQuestionsController(st *store.Store) *QuestionsController {
	return &QuestionsController{st: st}
}

// RegisterRoutes registers question routes with the given mux.
func (c *QuestionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/projects/{slug}/questions", c.handleListOpen)
	mux.HandleFunc("POST /api/v1/projects/{slug}/tasks/{ref}/questions", c.handleCreate)
	mux.HandleFunc("PATCH /api/v1/projects/{slug}/tasks/{ref}/questions/{id}", c.handleAnswer)
}

// handleListOpen lists a project's unresolved questions across all tasks,
// newest first.
func (c *QuestionsController) handleListOpen(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	limit, offset, err := parseListQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	questions, err := c.st.ListOpenQuestions(r.Context(), slug, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]projectQuestionResponse, 0, len(questions))
	for i := range questions {
		out = append(out, projectQuestionResponse{
			Question:       questions[i].Question,
			TaskNumber:     questions[i].TaskNumber,
			TaskDisplayKey: store.DisplayKey(displaySlug(slug), questions[i].TaskNumber),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *QuestionsController) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	question, err := c.st.CreateQuestion(r.Context(),
		r.PathValue("slug"), r.PathValue("ref"),
		req.Question, stringOr(req.Context, ""), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (c *QuestionsController) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerQuestionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	question, err := c.st.AnswerQuestion(r.Context(),
		r.PathValue("slug"), r.PathValue("ref"), r.PathValue("id"),
		req.Answer, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}
