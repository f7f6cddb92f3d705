package controllers

import (
	"net/http"

	"github.com/gemologic/lattice/internal/runtime"
)

// GeneralController serves the endpoints that live outside /api/v1.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates the general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", c.handleHealth)
}

// handleHealth probes storage and reports serving status.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
