package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"Blogwebserver/internal/ratelimit"
)

func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	return entry
}

func TestRequestLoggerUsesGateClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		wantIP     string
	}{
		{name: "proxy ignored", trustProxy: false, wantIP: "192.0.2.1"},
		{name: "proxy trusted", trustProxy: true, wantIP: "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := RequestLogger(captureLogger(&buf), tt.trustProxy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				noteAdmin(r.Context(), "admin-7")
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/admin/comments", nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
			h.ServeHTTP(httptest.NewRecorder(), req)

			entry := lastLogLine(t, &buf)
			if entry["ip"] != tt.wantIP {
				t.Fatalf("ip = %v, want %s", entry["ip"], tt.wantIP)
			}
			if entry["admin_id"] != "admin-7" || entry["level"] != "INFO" {
				t.Fatalf("unexpected entry %v", entry)
			}
		})
	}
}

func TestRequestLoggerFlagsThrottledRequests(t *testing.T) {
	var buf bytes.Buffer
	a := &api{throttle: ratelimit.NewIPThrottle(1, 1)}
	h := RequestLogger(captureLogger(&buf), false)(a.throttled(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/articles/1/comments", nil))
	if entry := lastLogLine(t, &buf); entry["throttled"] != nil {
		t.Fatalf("first request must not be flagged: %v", entry)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/articles/1/comments", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	entry := lastLogLine(t, &buf)
	if entry["throttled"] != true || entry["level"] != "WARN" {
		t.Fatalf("expected throttled warn entry, got %v", entry)
	}
}

func TestRecovererKeepsRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := RequestID()(Recoverer(captureLogger(&buf), true)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError || rr.Header().Get(requestIDHeader) != "req-42" {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Header().Get(requestIDHeader))
	}
	entry := lastLogLine(t, &buf)
	if entry["request_id"] != "req-42" || entry["stack"] != nil {
		t.Fatalf("unexpected panic entry %v", entry)
	}
}
