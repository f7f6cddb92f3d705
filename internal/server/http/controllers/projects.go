package controllers

import (
	"net/http"

	"github.com/gemologic/lattice/internal/apperror"
	"github.com/gemologic/lattice/internal/store"
)

// ProjectsController handles project CRUD.
type ProjectsController struct {
	st *store.Store
}

// NewProjectsController creates the projects controller.
func NewProjectsController(st *store.Store) *ProjectsController {
	return &ProjectsController{st: st}
}

// RegisterRoutes registers project routes with the given mux.
func (c *ProjectsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/projects", c.handleList)
	mux.HandleFunc("POST /api/v1/projects", c.handleCreate)
	mux.HandleFunc("GET /api/v1/projects/{slug}", c.handleGet)
	mux.HandleFunc("PATCH /api/v1/projects/{slug}", c.handleUpdate)
	mux.HandleFunc("DELETE /api/v1/projects/{slug}", c.handleDelete)
}

func (c *ProjectsController) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseListQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	projects, err := c.st.ListProjects(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (c *ProjectsController) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	project, err := c.st.CreateProject(r.Context(), req.Name, req.Slug, req.Goal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (c *ProjectsController) handleGet(w http.ResponseWriter, r *http.Request) {
	project, err := c.st.GetProject(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (c *ProjectsController) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == nil && req.Goal == nil {
		writeError(w, apperror.BadRequest("at least one field must be provided"))
		return
	}
	project, err := c.st.UpdateProject(r.Context(), r.PathValue("slug"), req.Name, req.Goal, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (c *ProjectsController) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := c.st.DeleteProject(r.Context(), r.PathValue("slug")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
