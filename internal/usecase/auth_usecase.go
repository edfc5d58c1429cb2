// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import "context"

// --- Input DTOs ---

// AuthorizeInput defines the data required to start an OAuth authorization flow.
type AuthorizeInput struct {
	// RedirectTo is the frontend URL the merchant should land on after the
	// exchange completes. Falls back to the configured default when empty.
	RedirectTo string
}

// CallbackInput defines the data the provider sends back to the callback endpoint.
type CallbackInput struct {
	Code  string
	State string
}

// --- Output DTOs ---

// AuthorizeOutput carries the provider authorization URL the merchant is sent to.
type AuthorizeOutput struct {
	AuthorizationURL string
}

// CallbackOutput returns the session and publishing outcome of a completed exchange.
type CallbackOutput struct {
	MerchantID       string
	SessionToken     string
	ProfilePublished bool
	RedirectTo       string
}

// AuthUsecase defines the interface for the merchant OAuth lifecycle.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	// Authorize builds the provider authorization URL for a new merchant connection.
	Authorize(ctx context.Context, input *AuthorizeInput) (*AuthorizeOutput, error)

	// HandleCallback completes the authorization-code exchange: persists the
	// credential, provisions the merchant identity, publishes the initial profile
	// on a best-effort basis and issues a session token.
	HandleCallback(ctx context.Context, input *CallbackInput) (*CallbackOutput, error)
}
