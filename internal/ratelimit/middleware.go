package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gemologic/lattice/pkg/log"
)

// Middleware returns the outermost HTTP middleware. It classifies the
// request, charges the caller's bucket, and rejects with 429 before auth or
// routing ever run. SSE connection attempts additionally reserve a stream
// slot that is released when the handler returns, including on panic.
func Middleware(l *Limiter, authEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, ok := ClassifyScope(r.Method, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			identity := RequestIdentity(r, authEnabled)

			d := l.Check(scope, identity)
			if !d.Allowed {
				l.logger.Debug("request rate limited",
					log.Str("scope", scope.String()),
					log.Str("identity", identity),
					log.Int("retry_after_secs", d.RetryAfterSecs))
				writeRateLimited(w, d)
				return
			}

			if scope == ScopeSSEConnect {
				lease, denied := l.AcquireSSE(identity)
				if denied != nil {
					l.logger.Warn("sse stream capacity reached",
						log.Str("identity", identity),
						log.Int("limit", denied.Limit))
					writeCapacityDenied(w, denied)
					return
				}
				defer lease.Release()
			}

			setRateHeaders(w.Header(), d.Limit, d.Remaining, d.ResetAfterSecs)
			next.ServeHTTP(w, r)
		})
	}
}

func setRateHeaders(h http.Header, limit, remaining, reset int) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(reset))
}

func writeRateLimited(w http.ResponseWriter, d Decision) {
	setRateHeaders(w.Header(), d.Limit, d.Remaining, d.ResetAfterSecs)
	w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSecs))
	writeDenialBody(w, d.Message)
}

func writeCapacityDenied(w http.ResponseWriter, denied *CapacityDenial) {
	setRateHeaders(w.Header(), denied.Limit, 0, denied.RetryAfterSecs)
	w.Header().Set("Retry-After", strconv.Itoa(denied.RetryAfterSecs))
	writeDenialBody(w, denied.Message)
}

func writeDenialBody(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	body := struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{Error: "rate_limited", Message: message}
	_ = json.NewEncoder(w).Encode(body)
}
