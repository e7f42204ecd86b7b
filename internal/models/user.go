package models

import (
	"time"
)

type User struct {
	ID                   string
	UserID               string // 10-digit public identifier shown to clients
	FirstName            string
	LastName             string
	Username             string
	Email                string
	PasswordHash         string
	ProfileImageURL      string
	LastLoginDate        *time.Time
	LastLoginDateDisplay *time.Time // Previous login, shown on the profile page
	JoinDate             time.Time
	Role                 string
	Authorities          []string
	Active               bool
	Locked               bool // Set by failed-login lockout, cleared by an administrator
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
