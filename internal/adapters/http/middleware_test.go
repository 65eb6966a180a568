package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBearerTokenFromHeader(t *testing.T) {
	t.Parallel()
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc.def", token: "abc.def", ok: true},
		{header: "bearer abc", token: "abc", ok: true},
		{header: "  BEARER   abc  ", token: "abc", ok: true},
		{header: "Bearer", ok: false},
		{header: "Bearer   ", ok: false},
		{header: "Basic abc", ok: false},
		{header: "", ok: false},
	}
	for _, tc := range tests {
		token, ok := bearerTokenFromHeader(tc.header)
		if ok != tc.ok || token != tc.token {
			t.Fatalf("%q: got (%q, %v), want (%q, %v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}

func TestRecoverMiddlewareWritesErrorEnvelope(t *testing.T) {
	t.Parallel()
	handler := requestIDMiddleware(recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/profile", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" || body.Timestamp == "" {
		t.Fatalf("unexpected envelope %+v", body)
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Fatal("expected a minted request id")
	}
}

func TestRequestIDMiddlewareReplacesOversizedIDs(t *testing.T) {
	t.Parallel()
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, strings.Repeat("x", maxRequestIDLen+1))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if len(seen) != 36 || rec.Header().Get(headerRequestID) != seen {
		t.Fatalf("expected a fresh uuid request id, got %q", seen)
	}
}

func TestClientIPIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	t.Parallel()
	h := &Handler{}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:41234"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := h.clientIP(req); got != "203.0.113.7" {
		t.Fatalf("spoofed header changed the client ip to %q", got)
	}
}

func TestClientIPBehindTrustedProxies(t *testing.T) {
	t.Parallel()
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.4 "})
	if err != nil {
		t.Fatalf("parse proxies: %v", err)
	}
	h := &Handler{trustedProxies: proxies}

	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{name: "no header", remote: "10.0.0.5:1234", want: "10.0.0.5"},
		{name: "single hop", remote: "10.0.0.5:1234", xff: "203.0.113.9", want: "203.0.113.9"},
		{name: "client prepends a fake hop", remote: "10.0.0.5:1234", xff: "1.2.3.4, 203.0.113.9", want: "203.0.113.9"},
		{name: "chained trusted proxies", remote: "10.0.0.5:1234", xff: "203.0.113.9, 192.168.1.4, 10.1.1.1", want: "203.0.113.9"},
		{name: "garbage hop", remote: "10.0.0.5:1234", xff: "not-an-ip", want: "10.0.0.5"},
		{name: "untrusted peer", remote: "172.16.0.1:1234", xff: "203.0.113.9", want: "172.16.0.1"},
		{name: "ipv6 peer", remote: "[2001:db8::1]:443", xff: "203.0.113.9", want: "2001:db8::1"},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		if tc.xff != "" {
			req.Header.Set("X-Forwarded-For", tc.xff)
		}
		if got := h.clientIP(req); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestParseTrustedProxiesRejectsHostnames(t *testing.T) {
	t.Parallel()
	if _, err := ParseTrustedProxies([]string{"lb.internal"}); err == nil {
		t.Fatal("expected an error for a hostname entry")
	}
	if _, err := ParseTrustedProxies([]string{"10.0.0.0/33"}); err == nil {
		t.Fatal("expected an error for an invalid prefix")
	}
	got, err := ParseTrustedProxies([]string{"", "  "})
	if err != nil || len(got) != 0 {
		t.Fatalf("blank entries should be skipped, got %v %v", got, err)
	}
}
