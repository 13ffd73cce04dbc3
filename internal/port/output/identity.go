package output

import (
	"context"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
)

// TokenValidator calls the remote identity service. Any transport failure or
// non-success response is returned as an error.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*core.TokenVerdict, error)
}

// UserRepository is the identity service's account store
type UserRepository interface {
	Create(ctx context.Context, user *core.User) error
	GetByID(ctx context.Context, id string) (*core.User, error)
	GetByPhone(ctx context.Context, phone string) (*core.User, error)
	// FindConflict returns a user holding either the phone number or the email
	FindConflict(ctx context.Context, phone, email string) (*core.User, error)
}

// TokenClaims are the identity fields carried inside an access token
type TokenClaims struct {
	Subject     string
	PhoneNumber string
	Email       string
}

// TokenIssuer signs and verifies access tokens
type TokenIssuer interface {
	Issue(claims TokenClaims, ttl time.Duration) (string, error)
	Verify(token string) (*TokenClaims, error)
}

// PasswordHasher hashes and compares credentials
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}
