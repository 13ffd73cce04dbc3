package input

import (
	"context"

	"github.com/cashflow/payment-lifecycle/internal/core"
)

// TokenGateway authorizes bearer tokens before mutating payment operations
type TokenGateway interface {
	// Authorize returns the caller's identity or an error matching core.ErrUnauthorized
	Authorize(ctx context.Context, bearerToken string) (*core.UserRef, error)
}

// IdentityService is an input port for the identity service
type IdentityService interface {
	Register(ctx context.Context, req RegisterRequest) (*core.User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	// ValidateToken never fails for a bad token; it reports Valid=false instead
	ValidateToken(ctx context.Context, token string) (*core.TokenVerdict, error)
}

// RegisterRequest represents a new account
type RegisterRequest struct {
	PhoneNumber string
	Email       string
	Password    string
}

// LoginRequest represents a credential check
type LoginRequest struct {
	PhoneNumber string
	Password    string
}

// LoginResponse carries the issued access token
type LoginResponse struct {
	AccessToken string
	User        *core.User
}
