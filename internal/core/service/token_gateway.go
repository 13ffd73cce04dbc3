package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
)

// DefaultTokenCacheTTL bounds how long a remote verdict is reused
const DefaultTokenCacheTTL = 300 * time.Second

// TokenGatewayImpl authorizes bearer tokens against the remote identity
// service, memoizing verdicts in a cache.
type TokenGatewayImpl struct {
	validator output.TokenValidator
	cache     output.Cache
	ttl       time.Duration
}

// NewTokenGateway creates a new token gateway
func NewTokenGateway(validator output.TokenValidator, cache output.Cache, ttl time.Duration) input.TokenGateway {
	if ttl <= 0 {
		ttl = DefaultTokenCacheTTL
	}
	return &TokenGatewayImpl{
		validator: validator,
		cache:     cache,
		ttl:       ttl,
	}
}

// Authorize returns the identity behind token. It fails closed: any failure
// to reach or understand the identity service is an authorization failure.
func (g *TokenGatewayImpl) Authorize(ctx context.Context, token string) (*core.UserRef, error) {
	if token == "" {
		log.Println("No token provided in request")
		return nil, core.Unauthorized("no token provided")
	}

	key := tokenKey(token)
	if verdict, ok := g.cached(ctx, key); ok {
		log.Println("Token validation retrieved from cache")
		return userFromVerdict(verdict)
	}

	verdict, err := g.validator.Validate(ctx, token)
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, core.Unauthorized("failed to validate token")
	}
	if verdict == nil || (verdict.Valid && verdict.User == nil) {
		log.Println("Token validation returned an unusable verdict")
		return nil, core.Unauthorized("failed to validate token")
	}

	// Cache before branching so a quick retry of a rejected token is also
	// answered locally.
	g.store(ctx, key, verdict)

	user, err := userFromVerdict(verdict)
	if err != nil {
		log.Println("Token validation failed")
		return nil, err
	}
	log.Printf("Token validated successfully for user: %s", user.ID)
	return user, nil
}

func (g *TokenGatewayImpl) cached(ctx context.Context, key string) (*core.TokenVerdict, bool) {
	raw, found, err := g.cache.Get(ctx, key)
	if err != nil {
		log.Printf("Token cache lookup failed: %v", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var verdict core.TokenVerdict
	if err := json.Unmarshal(raw, &verdict); err != nil {
		log.Printf("Discarding unreadable cached token verdict: %v", err)
		return nil, false
	}
	if verdict.Valid && verdict.User == nil {
		return nil, false
	}
	return &verdict, true
}

func (g *TokenGatewayImpl) store(ctx context.Context, key string, verdict *core.TokenVerdict) {
	raw, err := json.Marshal(verdict)
	if err != nil {
		log.Printf("Failed to encode token verdict: %v", err)
		return
	}
	if err := g.cache.Set(ctx, key, raw, g.ttl); err != nil {
		log.Printf("Failed to cache token verdict: %v", err)
	}
}

func userFromVerdict(verdict *core.TokenVerdict) (*core.UserRef, error) {
	if !verdict.Valid {
		return nil, core.Unauthorized("invalid token")
	}
	user := *verdict.User
	return &user, nil
}

// tokenKey derives the cache key from the raw token. The digest keeps bearer
// tokens out of shared cache backends.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "token:" + hex.EncodeToString(sum[:])
}
