// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"sync"

	deliverycontext "herald/internal/delivery/context"
	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/domain/repository"
	"herald/internal/domain/service"
	"herald/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// PrivateKeyAttribute is the well-known provider attribute name under which a
// merchant's key material is mirrored, so it survives local data loss.
const PrivateKeyAttribute = "herald_private_key"

// keyProvisioner implements the KeyProvisioner interface.
//
// The local credential store is the source of truth for key material: all
// durable writes go through SetPrivateKeyIfAbsent, a storage-level conditional
// write, so concurrent first-time callers converge on whichever key landed
// first. The provider attribute store is a mirror, adopted when the local row
// is empty and refreshed after generation.
type keyProvisioner struct {
	credentialRepo repository.CredentialRepository
	gateway        service.ProviderGateway
	keys           service.KeyService
	logger         *slog.Logger

	// merchantLocks serializes first-time provisioning per merchant within this
	// process. Cross-merchant operations never contend.
	mu            sync.Mutex
	merchantLocks map[string]*sync.Mutex
}

// KeyProvisionerParams holds dependencies for the key provisioner, injected by Fx.
type KeyProvisionerParams struct {
	fx.In

	CredentialRepo repository.CredentialRepository
	Gateway        service.ProviderGateway
	Keys           service.KeyService
	Logger         *slog.Logger
}

// NewKeyProvisioner is the constructor for keyProvisioner. It receives all dependencies as interfaces.
func NewKeyProvisioner(params KeyProvisionerParams) usecase.KeyProvisioner {
	return &keyProvisioner{
		credentialRepo: params.CredentialRepo,
		gateway:        params.Gateway,
		keys:           params.Keys,
		logger:         params.Logger,
		merchantLocks:  make(map[string]*sync.Mutex),
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (p *keyProvisioner) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, p.logger)
}

func (p *keyProvisioner) lockFor(merchantID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.merchantLocks[merchantID]
	if !ok {
		lock = &sync.Mutex{}
		p.merchantLocks[merchantID] = lock
	}

	return lock
}

// GetOrCreateIdentity returns the merchant's identity, provisioning key material
// exactly once when none exists yet.
func (p *keyProvisioner) GetOrCreateIdentity(ctx context.Context, merchantID string, credential *entity.Credential) (*entity.CryptographicIdentity, error) {
	// Fast path: stored key material, derive locally with no network call.
	if credential.HasPrivateKey() {
		identity, err := p.keys.Derive(credential.PrivateKeyValue())
		if err != nil {
			return nil, domainerrors.ErrKeyConsistencyViolation.WrapMessage("stored private key is malformed")
		}

		return identity, nil
	}

	lock := p.lockFor(merchantID)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have finished provisioning while we waited on the lock.
	fresh, err := p.credentialRepo.Get(ctx, merchantID)
	if err != nil && !errors.Is(err, repository.ErrCredentialNotFound) {
		return nil, errors.Wrap(err, "failed to re-read credential before provisioning")
	}
	if fresh != nil && fresh.HasPrivateKey() {
		identity, err := p.keys.Derive(fresh.PrivateKeyValue())
		if err != nil {
			return nil, domainerrors.ErrKeyConsistencyViolation.WrapMessage("stored private key is malformed")
		}

		return identity, nil
	}

	return p.provision(ctx, merchantID, credential)
}

// provision runs under the merchant lock: adopt the provider-side mirror when it
// exists, otherwise generate a fresh key, then persist through the conditional
// write and converge on whichever key it reports as the winner.
func (p *keyProvisioner) provision(ctx context.Context, merchantID string, credential *entity.Credential) (*entity.CryptographicIdentity, error) {
	mirrored, err := p.gateway.GetAttribute(ctx, credential, PrivateKeyAttribute)

	switch {
	case err == nil:
		return p.adopt(ctx, merchantID, mirrored)

	case errors.Is(err, service.ErrAttributeNotFound):
		return p.generate(ctx, merchantID, credential)

	default:
		p.log(ctx).Error("Failed to read provider attribute store", slog.String("merchantID", merchantID), slog.Any("error", err))

		return nil, domainerrors.ErrProviderUnavailable.WrapMessage("failed to read provider attribute store")
	}
}

// adopt takes a key found in the provider attribute store and records it locally.
func (p *keyProvisioner) adopt(ctx context.Context, merchantID string, mirrored string) (*entity.CryptographicIdentity, error) {
	if err := p.keys.Validate(mirrored); err != nil {
		return nil, domainerrors.ErrKeyConsistencyViolation.WrapMessage("provider attribute store holds malformed key material")
	}

	winner, err := p.credentialRepo.SetPrivateKeyIfAbsent(ctx, merchantID, mirrored)
	if err != nil {
		return nil, errors.Wrap(err, "failed to persist adopted private key")
	}
	if winner != mirrored {
		// The provider mirror and the local store disagree. Never pick one
		// silently; surface for manual reconciliation.
		return nil, domainerrors.ErrKeyConsistencyViolation.WrapMessage("divergent keys found in credential store and provider attribute store")
	}

	p.log(ctx).Info("Adopted private key from provider attribute store", slog.String("merchantID", merchantID))

	identity, err := p.keys.Derive(winner)
	if err != nil {
		return nil, domainerrors.ErrKeyConsistencyViolation.WrapMessage("adopted private key is malformed")
	}

	return identity, nil
}

// generate creates a fresh keypair, persists it locally through the conditional
// write and mirrors the winning key to the provider attribute store.
func (p *keyProvisioner) generate(ctx context.Context, merchantID string, credential *entity.Credential) (*entity.CryptographicIdentity, error) {
	candidate, err := p.keys.Generate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate private key")
	}

	winner, err := p.credentialRepo.SetPrivateKeyIfAbsent(ctx, merchantID, candidate.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to persist generated private key")
	}

	identity := candidate
	if winner != candidate.PrivateKey {
		// A concurrent writer persisted first; discard our candidate and
		// converge on the durably retained key.
		p.log(ctx).Info("Discarded locally generated key in favor of persisted one", slog.String("merchantID", merchantID))

		identity, err = p.keys.Derive(winner)
		if err != nil {
			return nil, domainerrors.ErrKeyConsistencyViolation.WrapMessage("persisted private key is malformed")
		}
	}

	if err := p.mirror(ctx, credential, winner); err != nil {
		// The local store already holds the key; the mirror write is a backup
		// and its failure must not roll back provisioning.
		p.log(ctx).Warn("Failed to mirror private key to provider attribute store", slog.String("merchantID", merchantID), slog.Any("error", err))
	}

	p.log(ctx).Info("Provisioned new merchant identity", slog.String("merchantID", merchantID), slog.String("publicKey", identity.PublicKey))

	return identity, nil
}

// mirror writes the key to the provider attribute store, defining the attribute
// schema on first use. Defining an already-existing schema is a no-op.
func (p *keyProvisioner) mirror(ctx context.Context, credential *entity.Credential, privateKey string) error {
	err := p.gateway.SetAttribute(ctx, credential, PrivateKeyAttribute, privateKey)
	if err == nil {
		return nil
	}
	if !errors.Is(err, service.ErrAttributeSchemaMissing) {
		return errors.Wrap(err, "failed to write provider attribute")
	}

	if err := p.gateway.DefineAttributeSchema(ctx, credential, PrivateKeyAttribute); err != nil {
		return errors.Wrap(err, "failed to define provider attribute schema")
	}

	return errors.Wrap(
		p.gateway.SetAttribute(ctx, credential, PrivateKeyAttribute, privateKey),
		"failed to write provider attribute after schema definition",
	)
}
