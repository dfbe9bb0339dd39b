package domain

import "time"

type Admin struct {
	ID          string
	Username    string
	Email       string
	CreatedAt   time.Time
	LastLoginAt *time.Time
}

type AdminWithPassword struct {
	Admin
	PasswordHash string
}

// Session is shared by anonymous visitors (CSRF token only) and signed-in
// admins (AdminID and LoginIP set).
type Session struct {
	ID         string
	AdminID    string
	CSRFToken  string
	LoginIP    string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

func (s Session) Authenticated() bool { return s.AdminID != "" }
