package ratelimit

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gemologic/lattice/pkg/log"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, limits Limits) (*Limiter, *fakeClock) {
	t.Helper()
	logger := log.NewLogger(log.WithOutput(&log.WriterOutput{W: io.Discard}))
	l := New(limits, logger)
	clk := &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	l.SetNow(clk.Now)
	return l, clk
}

func TestCheckBurstThenDeny(t *testing.T) {
	limits := DefaultLimits()
	limits.Write = ScopeLimit{PerMinute: 120, Burst: 3}
	l, _ := newTestLimiter(t, limits)

	for i, wantRemaining := range []int{2, 1, 0} {
		d := l.Check(ScopeWrite, "ip:203.0.113.7")
		if !d.Allowed {
			t.Fatalf("request %d: expected allow", i+1)
		}
		if d.Limit != 120 {
			t.Fatalf("request %d: limit = %d, want 120", i+1, d.Limit)
		}
		if d.Remaining != wantRemaining {
			t.Fatalf("request %d: remaining = %d, want %d", i+1, d.Remaining, wantRemaining)
		}
	}

	d := l.Check(ScopeWrite, "ip:203.0.113.7")
	if d.Allowed {
		t.Fatal("expected denial once burst is spent")
	}
	if d.Remaining != 0 {
		t.Fatalf("denied remaining = %d, want 0", d.Remaining)
	}
	if d.RetryAfterSecs != 1 {
		t.Fatalf("retry after = %d, want 1", d.RetryAfterSecs)
	}
	if d.ResetAfterSecs != d.RetryAfterSecs {
		t.Fatalf("reset after = %d, want %d", d.ResetAfterSecs, d.RetryAfterSecs)
	}
	if want := "rate limit exceeded for write requests"; d.Message != want {
		t.Fatalf("message = %q, want %q", d.Message, want)
	}
}

func TestCheckRefillsOverTime(t *testing.T) {
	limits := DefaultLimits()
	limits.Write = ScopeLimit{PerMinute: 120, Burst: 3}
	l, clk := newTestLimiter(t, limits)

	for i := 0; i < 3; i++ {
		if d := l.Check(ScopeWrite, "ip:203.0.113.7"); !d.Allowed {
			t.Fatalf("request %d: expected allow", i+1)
		}
	}
	if d := l.Check(ScopeWrite, "ip:203.0.113.7"); d.Allowed {
		t.Fatal("expected denial before refill")
	}

	// 120/min refills two tokens per second.
	clk.Advance(time.Second)

	d := l.Check(ScopeWrite, "ip:203.0.113.7")
	if !d.Allowed {
		t.Fatal("expected allow after refill")
	}
	if d.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", d.Remaining)
	}
}

func TestCheckBucketsAreIndependent(t *testing.T) {
	limits := DefaultLimits()
	limits.Write = ScopeLimit{PerMinute: 60, Burst: 1}
	limits.Read = ScopeLimit{PerMinute: 60, Burst: 1}
	l, _ := newTestLimiter(t, limits)

	if d := l.Check(ScopeWrite, "ip:203.0.113.7"); !d.Allowed {
		t.Fatal("first write should pass")
	}
	if d := l.Check(ScopeWrite, "ip:203.0.113.7"); d.Allowed {
		t.Fatal("second write from same identity should be denied")
	}
	if d := l.Check(ScopeWrite, "ip:198.51.100.9"); !d.Allowed {
		t.Fatal("write from a different identity should pass")
	}
	if d := l.Check(ScopeRead, "ip:203.0.113.7"); !d.Allowed {
		t.Fatal("read from the throttled identity should pass")
	}
}

func TestCheckZeroRateNeverRefills(t *testing.T) {
	limits := DefaultLimits()
	limits.Attachment = ScopeLimit{PerMinute: 0, Burst: 2}
	l, clk := newTestLimiter(t, limits)

	for i, wantRemaining := range []int{1, 0} {
		d := l.Check(ScopeAttachment, "ip:203.0.113.7")
		if !d.Allowed {
			t.Fatalf("request %d: expected allow from initial burst", i+1)
		}
		if d.Remaining != wantRemaining {
			t.Fatalf("request %d: remaining = %d, want %d", i+1, d.Remaining, wantRemaining)
		}
		if d.ResetAfterSecs != 60 {
			t.Fatalf("request %d: reset after = %d, want 60", i+1, d.ResetAfterSecs)
		}
	}

	d := l.Check(ScopeAttachment, "ip:203.0.113.7")
	if d.Allowed {
		t.Fatal("expected denial once initial burst is spent")
	}
	if d.RetryAfterSecs != 60 {
		t.Fatalf("retry after = %d, want 60", d.RetryAfterSecs)
	}

	clk.Advance(10 * time.Minute)
	if d := l.Check(ScopeAttachment, "ip:203.0.113.7"); d.Allowed {
		t.Fatal("zero-rate bucket must not refill")
	}
}

func TestCheckFreshBucketDecision(t *testing.T) {
	l, _ := newTestLimiter(t, DefaultLimits())

	d := l.Check(ScopeRead, "ip:203.0.113.7")
	if !d.Allowed {
		t.Fatal("fresh bucket should allow")
	}
	if d.Limit != 240 {
		t.Fatalf("limit = %d, want 240", d.Limit)
	}
	if d.Remaining != 59 {
		t.Fatalf("remaining = %d, want 59", d.Remaining)
	}
	// One missing token at four tokens per second rounds up to a second.
	if d.ResetAfterSecs != 1 {
		t.Fatalf("reset after = %d, want 1", d.ResetAfterSecs)
	}
}

func TestRetryAfterNeverBelowOneSecond(t *testing.T) {
	limits := DefaultLimits()
	limits.Read = ScopeLimit{PerMinute: 6000, Burst: 1}
	l, _ := newTestLimiter(t, limits)

	if d := l.Check(ScopeRead, "ip:203.0.113.7"); !d.Allowed {
		t.Fatal("first read should pass")
	}
	d := l.Check(ScopeRead, "ip:203.0.113.7")
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if d.RetryAfterSecs != 1 {
		t.Fatalf("retry after = %d, want 1", d.RetryAfterSecs)
	}
}

func TestDenialMessagesNameTheScope(t *testing.T) {
	limits := Limits{
		Read:        ScopeLimit{PerMinute: 60, Burst: 1},
		Write:       ScopeLimit{PerMinute: 60, Burst: 1},
		Attachment:  ScopeLimit{PerMinute: 60, Burst: 1},
		WebhookTest: ScopeLimit{PerMinute: 60, Burst: 1},
		MCP:         ScopeLimit{PerMinute: 60, Burst: 1},
		SSEConnect:  ScopeLimit{PerMinute: 60, Burst: 1},
	}
	l, _ := newTestLimiter(t, limits)

	cases := []struct {
		scope Scope
		want  string
	}{
		{ScopeRead, "rate limit exceeded for read requests"},
		{ScopeAttachment, "rate limit exceeded for attachment requests"},
		{ScopeWebhookTest, "rate limit exceeded for webhook test requests"},
		{ScopeMCP, "rate limit exceeded for mcp requests"},
		{ScopeSSEConnect, "rate limit exceeded for sse connect requests"},
	}
	for _, tc := range cases {
		l.Check(tc.scope, "ip:203.0.113.7")
		d := l.Check(tc.scope, "ip:203.0.113.7")
		if d.Allowed {
			t.Fatalf("%s: expected denial", tc.scope)
		}
		if d.Message != tc.want {
			t.Fatalf("%s: message = %q, want %q", tc.scope, d.Message, tc.want)
		}
	}
}

func TestStaleBucketsEvicted(t *testing.T) {
	limits := DefaultLimits()
	limits.Write = ScopeLimit{PerMinute: 120, Burst: 3}
	l, clk := newTestLimiter(t, limits)

	l.Check(ScopeWrite, "ip:203.0.113.7")
	if len(l.buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(l.buckets))
	}

	clk.Advance(61 * time.Minute)
	l.Check(ScopeWrite, "ip:198.51.100.9")

	if len(l.buckets) != 1 {
		t.Fatalf("buckets after sweep = %d, want 1", len(l.buckets))
	}
	if _, ok := l.buckets[bucketKey{scope: ScopeWrite, identity: "ip:198.51.100.9"}]; !ok {
		t.Fatal("fresh bucket should survive the sweep")
	}
}

func TestSweepThrottledByInterval(t *testing.T) {
	l, clk := newTestLimiter(t, DefaultLimits())

	l.Check(ScopeWrite, "ip:203.0.113.7")
	clk.Advance(2 * time.Minute)
	l.Check(ScopeWrite, "ip:198.51.100.9")

	// Under the cleanup interval nothing is swept, even though the map has
	// grown.
	if len(l.buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(l.buckets))
	}
}
