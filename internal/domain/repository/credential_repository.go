// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"herald/internal/domain/entity"
)

// Domain-specific errors for credential persistence.
// This allows the application layer to handle specific outcomes without depending on database-specific errors.
var (
	// ErrCredentialNotFound is returned when no credential row exists for a merchant.
	ErrCredentialNotFound = errors.New("credential not found")
)

// CredentialRepository defines the standard operations for merchant credential persistence.
// It is the sole writer path for credentials: no other component writes tokens or key
// material to storage directly.
type CredentialRepository interface {
	// Get retrieves the credential for a merchant, or ErrCredentialNotFound.
	Get(ctx context.Context, merchantID string) (*entity.Credential, error)

	// Upsert inserts the credential if absent, otherwise replaces the access token in
	// place. Environment is fixed at insert time. A nil PrivateKey on the incoming
	// record leaves stored key material untouched; a non-nil key that clears or
	// contradicts a stored key is rejected with ErrKeyConsistencyViolation.
	Upsert(ctx context.Context, credential *entity.Credential) (*entity.Credential, error)

	// SetPrivateKeyIfAbsent durably records key material for a merchant using a
	// storage-level conditional write. It returns the key that won: the given one when
	// the row had no key yet, or the previously stored one when another writer got
	// there first. Callers must adopt the returned key.
	SetPrivateKeyIfAbsent(ctx context.Context, merchantID string, privateKey string) (string, error)
}
