package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the custom claims for the session tokens handed to the frontend
// after a completed OAuth exchange.
type Claims struct {
	MerchantID string `json:"merchant_id"`
	jwt.RegisteredClaims
}

// TokenService defines the interface for generating and validating session JWTs.
// This abstracts the details of token creation from the use cases.
type TokenService interface {
	// GenerateToken creates a merchant-scoped session token.
	GenerateToken(merchantID string) (string, error)

	// ValidateToken checks the validity of a token string.
	ValidateToken(tokenString string) (*Claims, error)

	// TokenDuration returns the configured session token lifetime.
	TokenDuration() time.Duration
}
