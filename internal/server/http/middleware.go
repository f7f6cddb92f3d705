package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
)

// requireAuth enforces the static bearer token on every route. An empty
// configured token disables authentication entirely; the config layer warns
// about that once at startup.
func requireAuth(next http.Handler, token string) http.Handler {
	configured := strings.TrimSpace(token)
	if configured == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided, ok := parseBearerToken(r.Header.Get("Authorization"))
		if !ok || provided != configured {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": "missing or invalid bearer token",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// parseBearerToken extracts the token from an Authorization header value.
// The scheme comparison is case-insensitive.
func parseBearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// maxBodyBytes caps request bodies so a hostile payload cannot exhaust
// memory. Reads past the cap fail inside the handler's body decode.
func maxBodyBytes(next http.Handler, limit int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, MCP-Client")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
