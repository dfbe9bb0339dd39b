package adminui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"Blogwebserver/internal/auth"
	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/ratelimit"
	"Blogwebserver/internal/service"
	"Blogwebserver/internal/store/memory"
)

const (
	testUsername = "editor"
	testPassword = "Sup3r-Secret"
)

type testEnv struct {
	handler  http.Handler
	comments *memory.CommentsStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newThrottledEnv(t, nil)
}

func newThrottledEnv(t *testing.T, throttle *ratelimit.IPThrottle) *testEnv {
	t.Helper()
	comments := memory.NewCommentsStore()
	authSvc := &service.AuthService{
		Admins:   memory.NewAdminsStore(),
		Sessions: memory.NewSessionsStore(),
		Limiter:  ratelimit.NewLimiter(ratelimit.NewMemoryStore(), nil),
	}
	if _, err := authSvc.BootstrapAdmin(context.Background(), testUsername, "editor@example.com", testPassword); err != nil {
		t.Fatalf("BootstrapAdmin: %v", err)
	}
	h := New(Opts{
		Auth:        authSvc,
		Moderation:  &service.ModerationService{Comments: comments},
		CookieCodec: auth.NewCookieCodec([]byte("0123456789abcdef0123456789abcdef")),
		Throttle:    throttle,
	})
	return &testEnv{handler: h, comments: comments}
}

func (e *testEnv) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([0-9a-f]+)"`)

func csrfFrom(t *testing.T, body string) string {
	t.Helper()
	m := csrfInput.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no csrf token in page")
	}
	return m[1]
}

func cookieFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.MaxAge >= 0 {
			return c
		}
	}
	t.Fatalf("no session cookie set")
	return nil
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (e *testEnv) loginPage(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	rr := e.do(httptest.NewRequest(http.MethodGet, "/admin/login", nil), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /admin/login: %d", rr.Code)
	}
	return cookieFrom(t, rr), csrfFrom(t, rr.Body.String())
}

func (e *testEnv) signIn(t *testing.T) *http.Cookie {
	t.Helper()
	cookie, csrf := e.loginPage(t)
	rr := e.do(postForm("/admin/login", url.Values{
		"username": {testUsername}, "password": {testPassword}, "csrf_token": {csrf},
	}), cookie)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/" {
		t.Fatalf("login: %d %s", rr.Code, rr.Body.String())
	}
	return cookieFrom(t, rr)
}

func TestQueueRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/admin/", nil), nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/admin/login" {
		t.Fatalf("expected redirect to login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestLoginWrongPasswordShowsRemaining(t *testing.T) {
	env := newTestEnv(t)
	cookie, csrf := env.loginPage(t)

	rr := env.do(postForm("/admin/login", url.Values{
		"username": {testUsername}, "password": {"nope"}, "csrf_token": {csrf},
	}), cookie)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "4 attempt(s) left") {
		t.Fatalf("expected remaining attempts in page: %s", rr.Body.String())
	}
	if csrfFrom(t, rr.Body.String()) != csrf {
		t.Fatalf("failed login should keep the form token")
	}
}

func TestLoginLockoutPage(t *testing.T) {
	env := newTestEnv(t)
	cookie, csrf := env.loginPage(t)
	form := url.Values{"username": {testUsername}, "password": {"nope"}, "csrf_token": {csrf}}

	for i := 0; i < 5; i++ {
		env.do(postForm("/admin/login", form), cookie)
	}
	form.Set("password", testPassword)
	rr := env.do(postForm("/admin/login", form), cookie)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Try again in 15 minute(s)") {
		t.Fatalf("expected lockout message: %s", rr.Body.String())
	}
}

func TestLoginPostSharesIPThrottle(t *testing.T) {
	throttle := ratelimit.NewIPThrottle(1, 1)
	env := newThrottledEnv(t, throttle)
	cookie, csrf := env.loginPage(t)

	// The JSON API spends the bucket for this client first.
	if !throttle.Allow("192.0.2.1", time.Now()) {
		t.Fatalf("expected first request through")
	}
	form := url.Values{"username": {testUsername}, "password": {testPassword}, "csrf_token": {csrf}}
	rr := env.do(postForm("/admin/login", form), cookie)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After, got %q", rr.Header().Get("Retry-After"))
	}
	if strings.Contains(rr.Body.String(), "minute(s)") {
		t.Fatalf("throttle should not reach the login limiter: %s", rr.Body.String())
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/admin/login", nil), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /admin/login should not be throttled, got %d", rr.Code)
	}
}

func TestLoginRejectsBadCSRF(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.loginPage(t)
	rr := env.do(postForm("/admin/login", url.Values{
		"username": {testUsername}, "password": {testPassword}, "csrf_token": {"forged"},
	}), cookie)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestModerationQueue(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.comments.InsertPending(context.Background(), domain.NewComment{
		ArticleID: 3, AuthorName: "Jane", AuthorEmail: "jane@example.com", Content: "<b>Nice</b> write-up",
	})
	cookie := env.signIn(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/admin/", nil), cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("queue: %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "jane@example.com") || !strings.Contains(body, "/admin/comments/"+c.ID+"/approve") {
		t.Fatalf("pending comment missing from queue: %s", body)
	}
	if strings.Contains(body, "<b>Nice</b>") {
		t.Fatalf("comment content must be escaped")
	}
	csrf := csrfFrom(t, body)

	rr = env.do(postForm("/admin/comments/"+c.ID+"/approve", url.Values{"csrf_token": {"forged"}}), cookie)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for forged token, got %d", rr.Code)
	}

	rr = env.do(postForm("/admin/comments/"+c.ID+"/approve", url.Values{"csrf_token": {csrf}, "status": {"pending"}}), cookie)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/?done=approved&status=pending" {
		t.Fatalf("approve: %d %q", rr.Code, rr.Header().Get("Location"))
	}
	got, _ := env.comments.GetComment(context.Background(), c.ID)
	if got.Status != domain.CommentApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}

	rr = env.do(postForm("/admin/comments/"+c.ID+"/delete", url.Values{"csrf_token": {csrf}}), cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("delete: %d", rr.Code)
	}
	if _, err := env.comments.GetComment(context.Background(), c.ID); err == nil {
		t.Fatalf("expected comment deleted")
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/admin/?status=spam", nil), cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rr.Code)
	}
}

func TestSessionFromOtherIPIsSignedOut(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signIn(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.RemoteAddr = "203.0.113.50:5555"
	rr := env.do(req, cookie)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/admin/login" {
		t.Fatalf("expected redirect to login, got %d", rr.Code)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signIn(t)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/admin/", nil), cookie)
	csrf := csrfFrom(t, rr.Body.String())

	rr = env.do(postForm("/admin/logout", url.Values{"csrf_token": {csrf}}), cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("logout: %d", rr.Code)
	}
	rr = env.do(httptest.NewRequest(http.MethodGet, "/admin/", nil), cookie)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect after logout, got %d", rr.Code)
	}
}

func TestDisabledWithoutServices(t *testing.T) {
	h := New(Opts{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
