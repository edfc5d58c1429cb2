package service

import "herald/internal/domain/entity"

// KeyService owns the cryptographic primitives behind merchant identities.
// It performs no I/O; persistence of generated keys is the caller's concern.
type KeyService interface {
	// Generate creates a fresh random keypair.
	Generate() (*entity.CryptographicIdentity, error)

	// Derive rebuilds the full identity from stored private key material.
	// Derivation is deterministic: the same input always yields the same public key.
	Derive(privateKey string) (*entity.CryptographicIdentity, error)

	// Validate reports whether the given private key material is well-formed.
	Validate(privateKey string) error
}
