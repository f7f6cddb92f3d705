// Package httpserver assembles the HTTP edge of the tracker: the REST API
// under /api/v1, the SSE event streams, and the /healthz probe.
//
// Every request passes rate limiting first, then CORS, then the bearer-token
// auth check, then the request body cap, and only then reaches a controller.
// SSE connections additionally hold a capacity lease for their lifetime,
// acquired and released by the rate limit middleware.
package httpserver
