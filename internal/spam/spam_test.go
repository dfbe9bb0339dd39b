package spam

import (
	"strings"
	"testing"
)

func TestCheckSpam(t *testing.T) {
	cases := []struct {
		name    string
		content string
		email   string
		want    bool
	}{
		{"clean", "Thanks for the write-up, very helpful.", "reader@example.com", false},
		{"keyword", "Best CASINO bonuses here", "reader@example.com", true},
		{"cyrillic keyword", "Хочу КУПИТЬ недорого", "reader@example.com", true},
		{"two links ok", "see http://a.example and http://b.example", "reader@example.com", false},
		{"three links", "http://a http://b http://c", "reader@example.com", true},
		{"disposable domain", "Nice article, thank you!", "bot@TempMail.org", true},
		{"run of ten", "nice " + strings.Repeat("o", 10), "reader@example.com", false},
		{"run of eleven", strings.Repeat("!", 11), "reader@example.com", true},
		{"mixed case run", "AAAAAAaaaaaa test", "reader@example.com", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckSpam(tc.content, tc.email); got != tc.want {
				t.Fatalf("CheckSpam(%q, %q)=%v, want %v", tc.content, tc.email, got, tc.want)
			}
		})
	}
}

func TestValidateCommentAccepts(t *testing.T) {
	if msgs := ValidateComment("Anna", "anna@example.com", "Great post, learned a lot."); len(msgs) != 0 {
		t.Fatalf("expected no messages, got %v", msgs)
	}
}

func TestValidateCommentCollectsAllViolations(t *testing.T) {
	msgs := ValidateComment("", "not-an-email", "short")
	want := []string{
		"name is required",
		"email address is invalid",
		"comment must be at least 10 characters",
	}
	if len(msgs) != len(want) {
		t.Fatalf("got %v, want %v", msgs, want)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Fatalf("msg[%d]=%q, want %q", i, msgs[i], want[i])
		}
	}
}

func TestValidateCommentNameRules(t *testing.T) {
	if msgs := ValidateComment(`<script>`, "a@example.com", "perfectly fine text"); !contains(msgs, "name contains invalid characters") {
		t.Fatalf("expected invalid characters, got %v", msgs)
	}
	if msgs := ValidateComment(strings.Repeat("n", 101), "a@example.com", "perfectly fine text"); !contains(msgs, "name is too long (max 100 characters)") {
		t.Fatalf("expected too long, got %v", msgs)
	}
	if msgs := ValidateComment(strings.Repeat("я", 100), "a@example.com", "perfectly fine text"); len(msgs) != 0 {
		t.Fatalf("100 runes must be accepted, got %v", msgs)
	}
}

func TestValidateCommentEmail(t *testing.T) {
	for _, e := range []string{"Anna <anna@example.com>", "anna@", "anna@localhost", "@example.com"} {
		if msgs := ValidateComment("Anna", e, "perfectly fine text"); !contains(msgs, "email address is invalid") {
			t.Fatalf("email %q: expected invalid, got %v", e, msgs)
		}
	}
	if msgs := ValidateComment("Anna", "  ", "perfectly fine text"); !contains(msgs, "email is required") {
		t.Fatalf("expected required, got %v", msgs)
	}
}

func TestValidateCommentContentLength(t *testing.T) {
	if msgs := ValidateComment("Anna", "a@example.com", "   12345678   "); !contains(msgs, "comment must be at least 10 characters") {
		t.Fatalf("length must be measured after trimming, got %v", msgs)
	}
	long := strings.Repeat("ab ", 334)
	if msgs := ValidateComment("Anna", "a@example.com", long); !contains(msgs, "comment is too long (max 1000 characters)") {
		t.Fatalf("expected too long, got %v", msgs)
	}
	if msgs := ValidateComment("Anna", "a@example.com", "   "); !contains(msgs, "comment cannot be empty") {
		t.Fatalf("expected empty, got %v", msgs)
	}
}

func TestValidateCommentUppercase(t *testing.T) {
	if msgs := ValidateComment("Anna", "a@example.com", "THIS IS GREAT"); !contains(msgs, "too many capital letters") {
		t.Fatalf("expected uppercase rejection, got %v", msgs)
	}
	if msgs := ValidateComment("Anna", "a@example.com", "This is GREAT stuff"); len(msgs) != 0 {
		t.Fatalf("moderate uppercase must pass, got %v", msgs)
	}
}

func TestRepeatThresholdsDiffer(t *testing.T) {
	for n := 6; n <= 10; n++ {
		content := "hello " + strings.Repeat("z", n) + " there"
		if CheckSpam(content, "a@example.com") {
			t.Fatalf("run of %d must not be spam", n)
		}
		if msgs := ValidateComment("Anna", "a@example.com", content); !contains(msgs, "repeated characters detected") {
			t.Fatalf("run of %d: expected validation rejection, got %v", n, msgs)
		}
	}
	content := "hello " + strings.Repeat("z", 11) + " there"
	if !CheckSpam(content, "a@example.com") {
		t.Fatalf("run of 11 must be spam")
	}
	if msgs := ValidateComment("Anna", "a@example.com", "hello zzzzz there"); len(msgs) != 0 {
		t.Fatalf("run of 5 must pass validation, got %v", msgs)
	}
}

func TestRepeatedUppercaseCaughtByBoth(t *testing.T) {
	const content = "AAAAAAAAAAAA test"
	msgs := ValidateComment("Anna", "a@example.com", content)
	if !contains(msgs, "repeated characters detected") || !contains(msgs, "too many capital letters") {
		t.Fatalf("expected repeat and uppercase violations, got %v", msgs)
	}
	if !CheckSpam(content, "a@example.com") {
		t.Fatalf("expected spam")
	}
}

func TestSanitizeStripsMarkup(t *testing.T) {
	got := Sanitize(`<b>hi</b> <script>alert(1)</script>there`)
	if strings.Contains(got, "<") {
		t.Fatalf("expected markup stripped, got %q", got)
	}
	if !strings.Contains(got, "hi") || !strings.Contains(got, "there") {
		t.Fatalf("expected text kept, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("привет", 3); got != "при…" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("ok", 3); got != "ok" {
		t.Fatalf("got %q", got)
	}
}

func contains(msgs []string, want string) bool {
	for _, m := range msgs {
		if m == want {
			return true
		}
	}
	return false
}
