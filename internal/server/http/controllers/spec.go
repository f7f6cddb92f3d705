package controllers

import (
	"net/http"

	"github.com/gemologic/lattice/internal/store"
)

// SpecController handles the per-project spec sections and their revision
// history.
type SpecController struct {
	st *store.Store
}

// NewSpecController creates the spec controller.
func NewSpecController(st *store.Store) *SpecController {
	return &SpecController{st: st}
}

// RegisterRoutes registers spec routes with the given mux.
func (c *SpecController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/projects/{slug}/spec", c.handleList)
	mux.HandleFunc("GET /api/v1/projects/{slug}/spec/{section}", c.handleGet)
	mux.HandleFunc("PUT /api/v1/projects/{slug}/spec/{section}", c.handleUpdate)
	mux.HandleFunc("GET /api/v1/projects/{slug}/spec/{section}/history", c.handleHistory)
}

func (c *SpecController) handleList(w http.ResponseWriter, r *http.Request) {
	sections, err := c.st.ListSpecSections(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

func (c *SpecController) handleGet(w http.ResponseWriter, r *http.Request) {
	section, err := c.st.GetSpecSection(r.Context(), r.PathValue("slug"), r.PathValue("section"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (c *SpecController) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateSpecSectionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	section, err := c.st.UpdateSpecSection(r.Context(),
		r.PathValue("slug"), r.PathValue("section"),
		req.Content, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, section)
}

// handleHistory lists a section's saved revisions, newest first.
func (c *SpecController) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseListQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	revisions, err := c.st.ListSpecHistory(r.Context(),
		r.PathValue("slug"), r.PathValue("section"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, revisions)
}
