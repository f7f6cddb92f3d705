package ratelimit

import "sync"

// CapacityDenial explains a rejected SSE connection attempt.
type CapacityDenial struct {
	// Limit is the ceiling that was hit, per-identity or global.
	Limit int

	// RetryAfterSecs is a fixed reconnect hint.
	RetryAfterSecs int

	Message string
}

// Lease represents one admitted SSE connection. Release returns the slot and
// is safe to call more than once; only the first call has an effect.
type Lease struct {
	l        *Limiter
	identity string
	once     sync.Once
}

// Release returns the connection slot to the limiter.
func (le *Lease) Release() {
	le.once.Do(func() {
		le.l.releaseSSE(le.identity)
	})
}

// AcquireSSE reserves an SSE connection slot for identity. The per-identity
// ceiling is checked before the global one.
func (l *Limiter) AcquireSSE(identity string) (*Lease, *CapacityDenial) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sseByIdentity[identity] >= l.limits.SSEMaxPerIdentity {
		return nil, &CapacityDenial{
			Limit:          l.limits.SSEMaxPerIdentity,
			RetryAfterSecs: sseRetryAfterSecs,
			Message:        "too many active SSE streams for this client identity",
		}
	}
	if l.sseTotal >= l.limits.SSEMaxGlobal {
		return nil, &CapacityDenial{
			Limit:          l.limits.SSEMaxGlobal,
			RetryAfterSecs: sseRetryAfterSecs,
			Message:        "SSE stream capacity reached for this instance",
		}
	}

	l.sseByIdentity[identity]++
	l.sseTotal++
	return &Lease{l: l, identity: identity}, nil
}

func (l *Limiter) releaseSSE(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := l.sseByIdentity[identity]; n > 1 {
		l.sseByIdentity[identity] = n - 1
	} else {
		delete(l.sseByIdentity, identity)
	}
	if l.sseTotal > 0 {
		l.sseTotal--
	}
}
