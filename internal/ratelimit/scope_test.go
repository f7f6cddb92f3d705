package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClassifyScope(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   Scope
		scoped bool
	}{
		{http.MethodGet, "/api/v1/projects/ROADMAP/tasks", ScopeRead, true},
		{http.MethodHead, "/api/v1/projects", ScopeRead, true},
		{http.MethodOptions, "/api/v1/projects", ScopeRead, true},
		{http.MethodPost, "/api/v1/projects/ROADMAP/tasks", ScopeWrite, true},
		{http.MethodDelete, "/api/v1/projects/ROADMAP/tasks/abc", ScopeWrite, true},
		{http.MethodGet, "/api/v1/files/123", ScopeAttachment, true},
		{http.MethodPost, "/api/v1/projects/ROADMAP/tasks/abc/attachments", ScopeAttachment, true},
		{http.MethodPost, "/api/v1/projects/ROADMAP/webhooks/h1/test", ScopeWebhookTest, true},
		{http.MethodGet, "/api/v1/events", ScopeSSEConnect, true},
		{http.MethodGet, "/api/v1/events/", ScopeSSEConnect, true},
		{http.MethodGet, "/api/v1/projects/ROADMAP/events", ScopeSSEConnect, true},
		{http.MethodGet, "/api/v1/projects/ROADMAP/events/", ScopeSSEConnect, true},
		{http.MethodPost, "/mcp", ScopeMCP, true},
		{http.MethodGet, "/mcp/tools", ScopeMCP, true},
		{http.MethodGet, "/", 0, false},
		{http.MethodGet, "/healthz", 0, false},
		{http.MethodGet, "/mcpx", 0, false},
	}
	for _, tc := range cases {
		got, scoped := ClassifyScope(tc.method, tc.path)
		if scoped != tc.scoped {
			t.Fatalf("%s %s: scoped = %v, want %v", tc.method, tc.path, scoped, tc.scoped)
		}
		if scoped && got != tc.want {
			t.Fatalf("%s %s: scope = %s, want %s", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestRequestIdentityWithAuth(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	r.Header.Set("Authorization", "Bearer sekrit")

	sum := sha256.Sum256([]byte("sekrit"))
	want := "token:" + hex.EncodeToString(sum[:12])
	if got := RequestIdentity(r, true); got != want {
		t.Fatalf("identity = %q, want %q", got, want)
	}

	other := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	other.Header.Set("Authorization", "Bearer different")
	if RequestIdentity(other, true) == want {
		t.Fatal("different tokens should map to different identities")
	}
}

func TestRequestIdentityMissingToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"absent", ""},
		{"wrong scheme", "Token abc"},
		{"empty bearer", "Bearer "},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		if got := RequestIdentity(r, true); got != "token:missing" {
			t.Fatalf("%s: identity = %q, want token:missing", tc.name, got)
		}
	}
}

func TestRequestIdentityFromForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := RequestIdentity(r, false); got != "ip:203.0.113.7" {
		t.Fatalf("identity = %q, want ip:203.0.113.7", got)
	}
}

func TestRequestIdentityFallsBackToRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	r.Header.Set("X-Forwarded-For", " , 10.0.0.1")
	r.Header.Set("X-Real-Ip", "198.51.100.9")
	if got := RequestIdentity(r, false); got != "ip:198.51.100.9" {
		t.Fatalf("identity = %q, want ip:198.51.100.9", got)
	}
}

func TestRequestIdentityAnonymous(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	if got := RequestIdentity(r, false); got != "ip:anonymous" {
		t.Fatalf("identity = %q, want ip:anonymous", got)
	}
}
