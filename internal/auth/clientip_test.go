package auth

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:51234"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := ClientIP(r, false); got != "10.0.0.5" {
		t.Fatalf("untrusted: got %q", got)
	}
	if got := ClientIP(r, true); got != "203.0.113.9" {
		t.Fatalf("trusted: got %q", got)
	}

	r.Header.Del("X-Forwarded-For")
	r.RemoteAddr = "bare-addr"
	if got := ClientIP(r, true); got != "bare-addr" {
		t.Fatalf("fallback: got %q", got)
	}
}
