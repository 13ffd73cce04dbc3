package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the JWT payload issued by the identity service
type AccessClaims struct {
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 access tokens
type JWTIssuer struct {
	secret []byte
}

// NewJWTIssuer creates a token issuer with the shared secret
func NewJWTIssuer(secret string) (output.TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &JWTIssuer{secret: []byte(secret)}, nil
}

// Issue signs claims valid for ttl
func (j *JWTIssuer) Issue(claims output.TokenClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		PhoneNumber: claims.PhoneNumber,
		Email:       claims.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(j.secret)
}

// Verify checks signature and expiry and returns the carried claims
func (j *JWTIssuer) Verify(tokenStr string) (*output.TokenClaims, error) {
	if tokenStr == "" {
		return nil, errors.New("missing token")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}

	return &output.TokenClaims{
		Subject:     claims.Subject,
		PhoneNumber: claims.PhoneNumber,
		Email:       claims.Email,
	}, nil
}
