package users

import (
	"time"

	"github.com/pride-academy/academy/internal/access"
)

// User represents one platform profile. A profile is created pending at
// sign-up; an administrator approval assigns the effective role.
type User struct {
	ID          int64
	Email       string
	DisplayName string
	LastName    string
	Position    string
	Department  string
	Role        access.Role
	Status      access.ProfileStatus
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

// ProfileUpdate carries the self-service editable profile fields.
type ProfileUpdate struct {
	DisplayName string
	LastName    string
	Position    string
	Department  string
	AvatarURL   string
}
