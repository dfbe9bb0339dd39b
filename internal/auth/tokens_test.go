package auth

import (
	"strings"
	"testing"
)

func TestNewCSRFToken(t *testing.T) {
	a, err := NewCSRFToken()
	if err != nil {
		t.Fatalf("NewCSRFToken: %v", err)
	}
	b, _ := NewCSRFToken()
	if len(a) != 64 || a == b {
		t.Fatalf("expected distinct 64-char tokens, got %q %q", a, b)
	}
}

func TestValidCSRFToken(t *testing.T) {
	tok, _ := NewCSRFToken()
	if !ValidCSRFToken(tok, tok) {
		t.Fatalf("expected match")
	}
	if ValidCSRFToken(tok, tok[:63]+"0") && tok[63] != '0' {
		t.Fatalf("expected mismatch")
	}
	if ValidCSRFToken("", "") {
		t.Fatalf("empty tokens must never match")
	}
	if ValidCSRFToken(tok, "") {
		t.Fatalf("missing token must not match")
	}
}

func TestHoneypotField(t *testing.T) {
	a := HoneypotField("session-a")
	if !strings.HasPrefix(a, "website_url_") || len(a) != len("website_url_")+8 {
		t.Fatalf("unexpected field name %q", a)
	}
	if a != HoneypotField("session-a") {
		t.Fatalf("expected stable name per session")
	}
	if a == HoneypotField("session-b") {
		t.Fatalf("expected different name per session")
	}
}
