package usecase

import (
	"context"

	"herald/internal/domain/entity"
)

// KeyProvisioner owns the "exactly one key per merchant" invariant.
type KeyProvisioner interface {
	// GetOrCreateIdentity returns the merchant's identity, generating and durably
	// persisting a new keypair exactly once when none exists yet. Concurrent
	// first-time calls for the same merchant converge on whichever key was first
	// durably persisted.
	GetOrCreateIdentity(ctx context.Context, merchantID string, credential *entity.Credential) (*entity.CryptographicIdentity, error)
}
