package domain

import "time"

// ActionKind is the closed set of rate-limited actions.
type ActionKind string

const (
	ActionLogin   ActionKind = "login"
	ActionComment ActionKind = "comment"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionLogin, ActionComment:
		return true
	}
	return false
}

type Counter struct {
	Kind        ActionKind
	Identifier  string
	Attempts    int
	WindowStart time.Time
}

// Stale reports whether the window that started at WindowStart has closed.
func (c Counter) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(c.WindowStart) > window
}
