package service

import (
	"context"

	"herald/internal/domain/entity"
)

// ProfileReference is the resolvable handle returned after a successful publish.
type ProfileReference struct {
	URL    string // Resolvable profile URL on the identity network.
	Handle string // Network-native handle (bech32 public key).
}

// PublisherGateway pushes assembled profiles onto the external identity network.
// Publishing is at-least-once-attempted: the core makes a single attempt per call
// and does not retry on its own, and an attempt in flight is never cancelled
// mid-publish since the network has no rollback.
type PublisherGateway interface {
	// Publish signs the profile with the identity and publishes or updates it on the
	// network, returning a resolvable reference.
	Publish(ctx context.Context, profile *entity.Profile, identity *entity.CryptographicIdentity) (*ProfileReference, error)

	// Fetch reads back the currently published profile for the identity, if any.
	Fetch(ctx context.Context, identity *entity.CryptographicIdentity) (*entity.Profile, error)
}
