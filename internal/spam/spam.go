// Package spam holds the content heuristics applied to public comment
// submissions.
package spam

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var keywords = []string{
	"viagra", "casino", "porn", "xxx", "купить", "дешево",
	"скидка", "акция", "кредит", "займ", "money", "bitcoin",
}

var disposableDomains = []string{"tempmail.", "guerrillamail.", "10minutemail."}

const (
	maxLinks       = 2
	spamRunLength  = 11
	validRunLength = 6

	MaxNameLength     = 100
	MinContentLength  = 10
	MaxContentLength  = 1000
	MaxUppercaseRatio = 0.6
)

// CheckSpam reports whether content or email trips any spam heuristic.
// All checks are case-insensitive.
func CheckSpam(content, email string) bool {
	lower := strings.ToLower(content)

	for _, w := range keywords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	if strings.Count(lower, "http") > maxLinks {
		return true
	}

	lowerEmail := strings.ToLower(email)
	for _, d := range disposableDomains {
		if strings.Contains(lowerEmail, d) {
			return true
		}
	}

	return longestRun(lower) >= spamRunLength
}

// ValidateComment returns every violated rule, in a stable order. An empty
// result means the comment is acceptable.
func ValidateComment(name, email, content string) []string {
	var msgs []string

	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		msgs = append(msgs, "name is required")
	}
	if utf8.RuneCountInString(trimmedName) > MaxNameLength {
		msgs = append(msgs, "name is too long (max 100 characters)")
	}
	if strings.ContainsAny(name, `<>"'`) {
		msgs = append(msgs, "name contains invalid characters")
	}

	trimmedEmail := strings.TrimSpace(email)
	if trimmedEmail == "" {
		msgs = append(msgs, "email is required")
	} else if !validEmail(trimmedEmail) {
		msgs = append(msgs, "email address is invalid")
	}

	trimmed := strings.TrimSpace(content)
	n := utf8.RuneCountInString(trimmed)
	if n == 0 {
		msgs = append(msgs, "comment cannot be empty")
	}
	if n < MinContentLength {
		msgs = append(msgs, "comment must be at least 10 characters")
	}
	if n > MaxContentLength {
		msgs = append(msgs, "comment is too long (max 1000 characters)")
	}

	if uppercaseRatio(content) > MaxUppercaseRatio {
		msgs = append(msgs, "too many capital letters")
	}
	if longestRun(content) >= validRunLength {
		msgs = append(msgs, "repeated characters detected")
	}

	return msgs
}

// validEmail accepts a bare addr-spec only; display names are rejected.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// uppercaseRatio is uppercase letters over all runes.
func uppercaseRatio(s string) float64 {
	total, upper := 0, 0
	for _, r := range s {
		total++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(upper) / float64(total)
}

// longestRun is the length of the longest run of one repeated rune.
func longestRun(s string) int {
	best, cur := 0, 0
	var prev rune = -1
	for _, r := range s {
		if r == prev {
			cur++
		} else {
			prev, cur = r, 1
		}
		if cur > best {
			best = cur
		}
	}
	return best
}

var strict = bluemonday.StrictPolicy()

// Sanitize strips all markup from user content before it is rendered back.
func Sanitize(content string) string {
	return strict.Sanitize(content)
}

// Truncate shortens s to at most n runes for log output.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
