package auth

import (
	"time"

	"github.com/pride-academy/academy/internal/access"
)

// User represents an account as seen by the authentication flows.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	DisplayName  string
	Status       access.ProfileStatus
	CreatedAt    time.Time
}

// Registration carries the sign-up form payload. New accounts always start
// pending with the trainee role until an administrator approves them.
type Registration struct {
	Email       string
	Password    string
	DisplayName string
	LastName    string
}
