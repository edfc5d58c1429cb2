package service

import (
	"context"

	"herald/internal/domain/entity"
)

// OAuthGrant is the outcome of a successful authorization-code exchange with
// the payment provider.
type OAuthGrant struct {
	MerchantID  string             // Provider-issued merchant identifier the grant belongs to.
	AccessToken string             // Opaque access token for provider API calls.
	Environment entity.Environment // Environment the token was issued against.
	Scopes      []string           // Scopes the merchant actually granted.
}

// OAuthService drives the provider's authorization-code flow.
type OAuthService interface {
	// BuildAuthorizationURL constructs the provider authorization URL carrying the
	// given state parameter. State issuance and validation belong to the caller.
	BuildAuthorizationURL(state string) string

	// ExchangeCode exchanges an authorization code for an access grant.
	ExchangeCode(ctx context.Context, code string) (*OAuthGrant, error)

	// Provider returns which payment platform this flow authenticates against.
	Provider() entity.Provider
}
