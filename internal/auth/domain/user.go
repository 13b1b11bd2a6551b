package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Credential is a locally stored login. Buyers authenticate through the
// external identity provider instead and never appear in this table; only
// dashboard operators and self-registered users do.
type Credential struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is a verified caller, regardless of which trust domain vouched
// for it.
type Identity struct {
	Subject string `json:"id"`
	Email   string `json:"email,omitempty"`
	Role    Role   `json:"role"`
}
