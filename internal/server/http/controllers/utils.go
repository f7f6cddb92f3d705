package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gemologic/lattice/internal/apperror"
)

// Helper functions shared by all controllers.

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err onto the wire contract: classified errors keep their
// status and code, anything else degrades to a generic 500.
func writeError(w http.ResponseWriter, err error) {
	ae := apperror.From(err)
	writeJSON(w, ae.Status, map[string]string{"error": ae.Code, "message": ae.Message})
}

// decodeBody parses a JSON request body into out. An over-limit body shows
// up here as a MaxBytesError and is reported as such rather than as
// generic malformed JSON.
func decodeBody(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.BadRequest("request body exceeds %d bytes", tooLarge.Limit)
		}
		return apperror.BadRequest("invalid JSON request body")
	}
	return nil
}

// parseListQuery reads limit/offset pagination with the interactive
// defaults: limit 50, ceiling 100, offset 0.
func parseListQuery(r *http.Request) (limit, offset int64, err error) {
	limit, offset = 50, 0
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, 0, apperror.BadRequest("limit must be an integer")
		}
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, 0, apperror.BadRequest("offset must be an integer")
		}
	}
	if limit <= 0 {
		return 0, 0, apperror.BadRequest("limit must be greater than 0")
	}
	if limit > 100 {
		return 0, 0, apperror.BadRequest("limit must be less than or equal to 100")
	}
	if offset < 0 {
		return 0, 0, apperror.BadRequest("offset cannot be negative")
	}
	return limit, offset, nil
}

// actorFromRequest attributes a mutation. Agent callers identify themselves
// via the MCP-Client header; everything else is a human.
func actorFromRequest(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get("MCP-Client")); actor != "" {
		return actor
	}
	return "human"
}

// displaySlug folds a path slug the same way the store folds lookups, so
// display keys rendered at the edge match the stored project.
func displaySlug(slug string) string {
	return strings.ToUpper(strings.TrimSpace(slug))
}
