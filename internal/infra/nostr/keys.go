// Package nostr provides the Nostr-backed implementations of the identity and
// publishing domain services.
package nostr

import (
	"encoding/hex"

	"herald/internal/domain/entity"
	"herald/internal/domain/service"

	gonostr "github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/pkg/errors"
)

// keyService is a concrete implementation of the KeyService interface on
// secp256k1 keys as used by the Nostr protocol.
type keyService struct{}

// NewKeyService is the constructor for keyService.
func NewKeyService() service.KeyService {
	return &keyService{}
}

// Generate creates a fresh random keypair.
func (s *keyService) Generate() (*entity.CryptographicIdentity, error) {
	privateKey := gonostr.GeneratePrivateKey()
	if privateKey == "" {
		return nil, errors.New("failed to generate private key")
	}

	return s.Derive(privateKey)
}

// Derive rebuilds the full identity from hex private key material.
func (s *keyService) Derive(privateKey string) (*entity.CryptographicIdentity, error) {
	if err := s.Validate(privateKey); err != nil {
		return nil, err
	}

	publicKey, err := gonostr.GetPublicKey(privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive public key")
	}

	return &entity.CryptographicIdentity{
		PrivateKey: privateKey,
		PublicKey:  publicKey,
	}, nil
}

// Validate reports whether the private key is 32 hex-encoded bytes.
func (s *keyService) Validate(privateKey string) error {
	raw, err := hex.DecodeString(privateKey)
	if err != nil {
		return errors.Wrap(err, "private key is not hex encoded")
	}
	if len(raw) != 32 {
		return errors.Errorf("private key must be 32 bytes, got %d", len(raw))
	}

	return nil
}

// EncodePublicKey returns the bech32 npub form of a hex public key, used for
// resolvable profile references.
func EncodePublicKey(publicKey string) (string, error) {
	npub, err := nip19.EncodePublicKey(publicKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode public key")
	}

	return npub, nil
}
