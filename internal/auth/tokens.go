package auth

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const honeypotPrefix = "website_url_"

// NewCSRFToken returns 32 random bytes, hex encoded.
func NewCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read csrf token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidCSRFToken compares in constant time. An empty expected token never
// matches, so a session without a token rejects every form.
func ValidCSRFToken(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// HoneypotField is the per-session name of the hidden form field that humans
// leave empty. It only needs to vary between sessions, not be secret.
func HoneypotField(sessionID string) string {
	sum := md5.Sum([]byte(sessionID))
	return honeypotPrefix + hex.EncodeToString(sum[:])[:8]
}
