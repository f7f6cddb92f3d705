package controllers

import (
	"net/http"

	webhooksvc "github.com/gemologic/lattice/internal/services/webhooks"
	"github.com/gemologic/lattice/internal/store"
)

// WebhooksController handles webhook subscription CRUD plus the synchronous
// test delivery. Stored secrets never appear in responses.
type WebhooksController struct {
	st         *store.Store
	dispatcher *webhooksvc.Dispatcher
}

// NewWebhooksController creates the webhooks controller.
func NewWebhooksController(st *store.Store, dispatcher *webhooksvc.Dispatcher) *WebhooksController {
	return &WebhooksController{st: st, dispatcher: dispatcher}
}

// RegisterRoutes registers webhook routes with the given mux.
func (c *WebhooksController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/projects/{slug}/webhooks", c.handleList)
	mux.HandleFunc("POST /api/v1/projects/{slug}/webhooks", c.handleCreate)
	mux.HandleFunc("PATCH /api/v1/projects/{slug}/webhooks/{id}", c.handleUpdate)
	mux.HandleFunc("DELETE /api/v1/projects/{slug}/webhooks/{id}", c.handleDelete)
	mux.HandleFunc("POST /api/v1/projects/{slug}/webhooks/{id}/test", c.handleTest)
}

func (c *WebhooksController) handleList(w http.ResponseWriter, r *http.Request) {
	webhooks, err := c.st.ListWebhooks(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]webhookResponse, 0, len(webhooks))
	for i := range webhooks {
		out = append(out, mapWebhook(&webhooks[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *WebhooksController) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createWebhookRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	webhook, err := c.st.CreateWebhook(r.Context(), r.PathValue("slug"), store.CreateWebhookInput{
		Name:     req.Name,
		URL:      req.URL,
		Platform: req.Platform,
		Events:   req.Events,
		Secret:   stringOr(req.Secret, ""),
		Active:   active,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapWebhook(webhook))
}

func (c *WebhooksController) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateWebhookRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	webhook, err := c.st.UpdateWebhook(r.Context(), r.PathValue("slug"), r.PathValue("id"), store.UpdateWebhookInput{
		Name:     req.Name,
		URL:      req.URL,
		Platform: req.Platform,
		Events:   req.Events,
		Secret:   req.Secret,
		Active:   req.Active,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapWebhook(webhook))
}

func (c *WebhooksController) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := c.st.DeleteWebhook(r.Context(), r.PathValue("slug"), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTest posts a synthetic event to one webhook, synchronously and
// exactly once, bypassing the dispatcher's cursor and retry queue.
func (c *WebhooksController) handleTest(w http.ResponseWriter, r *http.Request) {
	err := c.dispatcher.SendTest(r.Context(), r.PathValue("slug"), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
