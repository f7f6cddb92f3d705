package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gemologic/lattice/pkg/log"
)

const (
	// cleanupInterval is how often the bucket map is swept for stale entries.
	// The sweep runs lazily inside Check, so an idle server performs no work.
	cleanupInterval = 5 * time.Minute

	// staleBucketAge is how long a bucket may go unused before eviction.
	staleBucketAge = time.Hour

	// sseRetryAfterSecs is the fixed Retry-After hint for capacity denials.
	sseRetryAfterSecs = 10
)

// ScopeLimit configures one scope's token bucket: a sustained per-minute
// rate and a burst ceiling. PerMinute of zero disables refill, so the bucket
// only ever serves its initial burst.
type ScopeLimit struct {
	PerMinute int `json:"per_minute" yaml:"per_minute"`
	Burst     int `json:"burst" yaml:"burst"`
}

// Limits carries the bucket configuration for every scope plus the SSE
// connection ceilings.
type Limits struct {
	Read        ScopeLimit `json:"read" yaml:"read"`
	Write       ScopeLimit `json:"write" yaml:"write"`
	Attachment  ScopeLimit `json:"attachment" yaml:"attachment"`
	WebhookTest ScopeLimit `json:"webhook_test" yaml:"webhook_test"`
	MCP         ScopeLimit `json:"mcp" yaml:"mcp"`
	SSEConnect  ScopeLimit `json:"sse_connect" yaml:"sse_connect"`

	SSEMaxPerIdentity int `json:"sse_max_per_identity" yaml:"sse_max_per_identity"`
	SSEMaxGlobal      int `json:"sse_max_global" yaml:"sse_max_global"`
}

// DefaultLimits returns the stock limits applied when configuration does not
// override them.
func DefaultLimits() Limits {
	return Limits{
		Read:        ScopeLimit{PerMinute: 240, Burst: 60},
		Write:       ScopeLimit{PerMinute: 120, Burst: 30},
		Attachment:  ScopeLimit{PerMinute: 30, Burst: 10},
		WebhookTest: ScopeLimit{PerMinute: 20, Burst: 5},
		MCP:         ScopeLimit{PerMinute: 80, Burst: 20},
		SSEConnect:  ScopeLimit{PerMinute: 40, Burst: 10},

		SSEMaxPerIdentity: 10,
		SSEMaxGlobal:      400,
	}
}

// ForScope returns the bucket configuration for a scope.
func (l Limits) ForScope(s Scope) ScopeLimit {
	switch s {
	case ScopeRead:
		return l.Read
	case ScopeWrite:
		return l.Write
	case ScopeAttachment:
		return l.Attachment
	case ScopeWebhookTest:
		return l.WebhookTest
	case ScopeMCP:
		return l.MCP
	case ScopeSSEConnect:
		return l.SSEConnect
	default:
		return l.Read
	}
}

// Decision is the outcome of a bucket check, carrying everything the HTTP
// layer needs for X-RateLimit-* headers and 429 bodies. All durations are
// whole seconds because that is how they go on the wire.
type Decision struct {
	Allowed bool

	// Limit echoes the scope's sustained per-minute rate.
	Limit int

	// Remaining is the whole number of tokens left after this request.
	// Zero on denial.
	Remaining int

	// RetryAfterSecs is how long until one token is available. Only set on
	// denial, and never below one second.
	RetryAfterSecs int

	// ResetAfterSecs is how long until the bucket is full again. On denial
	// it mirrors RetryAfterSecs.
	ResetAfterSecs int

	// Message is the denial message, empty when allowed.
	Message string
}

type bucketKey struct {
	scope    Scope
	identity string
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter applies per-(scope, identity) token buckets and SSE connection
// ceilings. A single mutex guards all state; every critical section is a
// handful of map operations and arithmetic, so the lock is never held across
// I/O.
type Limiter struct {
	limits Limits
	logger log.Logger

	mu          sync.Mutex
	buckets     map[bucketKey]*bucket
	lastCleanup time.Time

	sseByIdentity map[string]int
	sseTotal      int

	now func() time.Time
}

// New builds a Limiter with the given limits. State starts empty; buckets
// materialize on first use.
func New(limits Limits, logger log.Logger) *Limiter {
	l := &Limiter{
		limits:        limits,
		logger:        logger.WithComponent("ratelimit"),
		buckets:       make(map[bucketKey]*bucket),
		sseByIdentity: make(map[string]int),
		now:           time.Now,
	}
	l.lastCleanup = l.now()
	return l
}

// SetNow pins the limiter's clock. Tests use it to drive refill and eviction
// deterministically; the cleanup timer is realigned to the new clock.
func (l *Limiter) SetNow(fn func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = fn
	l.lastCleanup = fn()
}

// Check consumes one token from the (scope, identity) bucket, creating it
// full on first sight.
func (l *Limiter) Check(scope Scope, identity string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictStaleLocked(now)

	cfg := l.limits.ForScope(scope)
	key := bucketKey{scope: scope, identity: identity}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(perSecond(cfg.PerMinute), cfg.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if b.lim.AllowN(now, 1) {
		return Decision{
			Allowed:        true,
			Limit:          cfg.PerMinute,
			Remaining:      remainingTokens(b.lim, cfg, now),
			ResetAfterSecs: resetAfterSecs(b.lim.TokensAt(now), cfg),
		}
	}

	retry := retryAfterSecs(b.lim.TokensAt(now), cfg)
	return Decision{
		Allowed:        false,
		Limit:          cfg.PerMinute,
		RetryAfterSecs: retry,
		ResetAfterSecs: retry,
		Message:        "rate limit exceeded for " + scope.Description(),
	}
}

// evictStaleLocked drops buckets idle for longer than staleBucketAge. Callers
// hold l.mu.
func (l *Limiter) evictStaleLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < cleanupInterval {
		return
	}
	l.lastCleanup = now
	evicted := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > staleBucketAge {
			delete(l.buckets, key)
			evicted++
		}
	}
	if evicted > 0 {
		l.logger.Debug("evicted stale rate limit buckets", log.Int("count", evicted))
	}
}

// perSecond converts a per-minute rate to the refill rate x/time/rate wants.
func perSecond(perMinute int) rate.Limit {
	return rate.Limit(float64(perMinute) / 60.0)
}

// remainingTokens reports the whole tokens left in the bucket. Zero-rate
// buckets never refill, so their remaining allowance is tracked by the
// limiter's burst counter instead of the token float.
func remainingTokens(lim *rate.Limiter, cfg ScopeLimit, now time.Time) int {
	if cfg.PerMinute == 0 {
		return lim.Burst()
	}
	tokens := lim.TokensAt(now)
	if tokens <= 0 {
		return 0
	}
	return int(math.Floor(tokens))
}

// resetAfterSecs is the time until the bucket refills to burst, rounded up.
func resetAfterSecs(tokens float64, cfg ScopeLimit) int {
	if cfg.PerMinute == 0 {
		return 60
	}
	missing := float64(cfg.Burst) - tokens
	if missing <= 0 {
		return 0
	}
	return int(math.Ceil(missing / float64(perSecond(cfg.PerMinute))))
}

// retryAfterSecs is the time until a single token is available, rounded up
// and never below one second.
func retryAfterSecs(tokens float64, cfg ScopeLimit) int {
	if cfg.PerMinute == 0 {
		return 60
	}
	secs := int(math.Ceil((1.0 - tokens) / float64(perSecond(cfg.PerMinute))))
	if secs < 1 {
		secs = 1
	}
	return secs
}
