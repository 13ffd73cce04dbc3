package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/google/uuid"
)

// DefaultTokenLifetime is the access token expiry used when none is configured
const DefaultTokenLifetime = 24 * time.Hour

// IdentityServiceImpl implements the IdentityService input port
type IdentityServiceImpl struct {
	users    output.UserRepository
	hasher   output.PasswordHasher
	issuer   output.TokenIssuer
	tokenTTL time.Duration
}

// NewIdentityService creates a new identity service
func NewIdentityService(
	users output.UserRepository,
	hasher output.PasswordHasher,
	issuer output.TokenIssuer,
	tokenTTL time.Duration,
) input.IdentityService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenLifetime
	}
	return &IdentityServiceImpl{
		users:    users,
		hasher:   hasher,
		issuer:   issuer,
		tokenTTL: tokenTTL,
	}
}

// Register creates a new account
func (s *IdentityServiceImpl) Register(ctx context.Context, req input.RegisterRequest) (*core.User, error) {
	if err := validateRegister(&req); err != nil {
		return nil, err
	}

	log.Printf("Registration attempt for phone: %s", req.PhoneNumber)

	existing, err := s.users.FindConflict(ctx, req.PhoneNumber, req.Email)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if existing != nil {
		if existing.PhoneNumber == req.PhoneNumber {
			return nil, fmt.Errorf("%w: phone number already registered", core.ErrUserExists)
		}
		return nil, fmt.Errorf("%w: email already registered", core.ErrUserExists)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &core.User{
		ID:           uuid.New(),
		PhoneNumber:  req.PhoneNumber,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("User registered successfully: %s", user.ID)
	return user, nil
}

// Login checks credentials and issues an access token
func (s *IdentityServiceImpl) Login(ctx context.Context, req input.LoginRequest) (*input.LoginResponse, error) {
	log.Printf("Login attempt for phone: %s", req.PhoneNumber)

	user, err := s.users.GetByPhone(ctx, strings.TrimSpace(req.PhoneNumber))
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			log.Printf("Login failed - user not found: %s", req.PhoneNumber)
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		log.Printf("Login failed - invalid password: %s", req.PhoneNumber)
		return nil, core.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(output.TokenClaims{
		Subject:     user.ID.String(),
		PhoneNumber: user.PhoneNumber,
		Email:       user.Email,
	}, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	log.Printf("User logged in successfully: %s", user.ID)
	return &input.LoginResponse{AccessToken: token, User: user}, nil
}

// ValidateToken reports whether token is genuine and its subject still exists
func (s *IdentityServiceImpl) ValidateToken(ctx context.Context, token string) (*core.TokenVerdict, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		log.Printf("Token validation failed: %v", err)
		return &core.TokenVerdict{Valid: false, Message: err.Error()}, nil
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			log.Printf("Token validation failed - user not found: %s", claims.Subject)
			return &core.TokenVerdict{Valid: false, Message: "User not found"}, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ref := user.Ref()
	log.Printf("Token validated successfully for user: %s", user.ID)
	return &core.TokenVerdict{Valid: true, User: &ref}, nil
}

func validateRegister(req *input.RegisterRequest) error {
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if !phonePattern.MatchString(req.PhoneNumber) {
		return fmt.Errorf("%w: phone number must be in valid international format", core.ErrInvalidInput)
	}
	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fmt.Errorf("%w: email is not a valid address", core.ErrInvalidInput)
	}
	if len(req.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters long", core.ErrInvalidInput)
	}
	var upper, lower, digit bool
	for _, r := range req.Password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("%w: password must contain at least one uppercase letter, one lowercase letter, and one number", core.ErrInvalidInput)
	}
	return nil
}
