package core

import (
	"time"

	"github.com/google/uuid"
)

// User is an identity-service account
type User struct {
	ID           uuid.UUID
	PhoneNumber  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref projects the user into the shape shared with other services
func (u *User) Ref() UserRef {
	return UserRef{
		ID:          u.ID.String(),
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
	}
}

// TokenVerdict is the outcome of validating a bearer token
type TokenVerdict struct {
	Valid   bool     `json:"valid"`
	User    *UserRef `json:"user,omitempty"`
	Message string   `json:"message,omitempty"`
}
