// Package ratelimit gates every inbound request before it reaches business
// logic.
//
// Two independent mechanisms live behind one mutex:
//
//   - Token buckets keyed by (scope, identity), built on golang.org/x/time/rate.
//     Tokens refill continuously at per_minute/60 per second and cap at the
//     scope's burst; buckets are created lazily (full) and evicted after an
//     hour of inactivity.
//   - SSE connection capacity, a counted semaphore with a per-identity
//     ceiling and a global ceiling checked atomically together. Acquisition
//     hands out a Lease whose Release decrements both counters exactly once
//     no matter how the connection ends.
//
// The middleware classifies requests into scopes by method and path shape,
// derives a client identity (token hash or forwarded IP), checks the bucket,
// and attaches X-RateLimit-* headers to every in-scope response. Denials are
// HTTP 429 with a Retry-After header.
//
// State is process-local and lost on restart; nothing here coordinates
// across processes.
package ratelimit
