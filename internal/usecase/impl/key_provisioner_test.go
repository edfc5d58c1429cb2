package impl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/domain/repository"
	"herald/internal/domain/service"
	"herald/internal/mocks"
	"herald/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stubKeys is a deterministic key service: every Generate call yields a fresh
// distinct key, and public keys are derived as a pure function of the private key.
type stubKeys struct {
	mu      sync.Mutex
	counter int
}

func (s *stubKeys) Generate() (*entity.CryptographicIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	privateKey := fmt.Sprintf("%064d", s.counter)

	return s.derive(privateKey), nil
}

func (s *stubKeys) Derive(privateKey string) (*entity.CryptographicIdentity, error) {
	if err := s.Validate(privateKey); err != nil {
		return nil, err
	}

	return s.derive(privateKey), nil
}

func (s *stubKeys) Validate(privateKey string) error {
	if len(privateKey) != 64 {
		return errors.New("malformed private key")
	}

	return nil
}

func (s *stubKeys) derive(privateKey string) *entity.CryptographicIdentity {
	return &entity.CryptographicIdentity{
		PrivateKey: privateKey,
		PublicKey:  "pub:" + privateKey,
	}
}

// memoryCredentialRepo is an in-memory credential store whose conditional key
// write has the same first-writer-wins semantics as the SQL implementation.
type memoryCredentialRepo struct {
	mu   sync.Mutex
	rows map[string]*entity.Credential
}

func newMemoryCredentialRepo() *memoryCredentialRepo {
	return &memoryCredentialRepo{rows: make(map[string]*entity.Credential)}
}

func (r *memoryCredentialRepo) Get(_ context.Context, merchantID string) (*entity.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[merchantID]
	if !ok {
		return nil, repository.ErrCredentialNotFound
	}
	copied := *row

	return &copied, nil
}

func (r *memoryCredentialRepo) Upsert(_ context.Context, credential *entity.Credential) (*entity.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[credential.MerchantID]
	if !ok {
		copied := *credential
		r.rows[credential.MerchantID] = &copied
		row = &copied
	} else {
		row.AccessToken = credential.AccessToken
		if credential.PrivateKey != nil && row.HasPrivateKey() && *credential.PrivateKey != row.PrivateKeyValue() {
			return nil, domainerrors.ErrKeyConsistencyViolation.WrapMessage("incoming private key disagrees with stored key material")
		}
	}
	copied := *row

	return &copied, nil
}

func (r *memoryCredentialRepo) SetPrivateKeyIfAbsent(_ context.Context, merchantID string, privateKey string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[merchantID]
	if !ok {
		return "", repository.ErrCredentialNotFound
	}
	if row.HasPrivateKey() {
		return row.PrivateKeyValue(), nil
	}
	row.PrivateKey = entity.KeyRef(privateKey)

	return privateKey, nil
}

func newTestProvisioner(repo repository.CredentialRepository, gateway service.ProviderGateway, keys service.KeyService) usecase.KeyProvisioner {
	return NewKeyProvisioner(KeyProvisionerParams{
		CredentialRepo: repo,
		Gateway:        gateway,
		Keys:           keys,
		Logger:         slog.Default(),
	})
}

func seededCredential(repo *memoryCredentialRepo, merchantID string) *entity.Credential {
	credential, _ := repo.Upsert(context.Background(), &entity.Credential{
		MerchantID:  merchantID,
		AccessToken: "token",
		Environment: entity.EnvironmentSandbox,
	})

	return credential
}

func TestCredentialUpsert_ReauthorizationPreservesStoredKey(t *testing.T) {
	repo := newMemoryCredentialRepo()
	seededCredential(repo, "M1")
	key := fmt.Sprintf("%064d", 5)
	_, err := repo.SetPrivateKeyIfAbsent(context.Background(), "M1", key)
	require.NoError(t, err)

	// Re-authorization carries no key material at all; only the token moves.
	stored, err := repo.Upsert(context.Background(), &entity.Credential{MerchantID: "M1", AccessToken: "token2"})
	require.NoError(t, err)
	assert.Equal(t, "token2", stored.AccessToken)
	assert.Equal(t, key, stored.PrivateKeyValue())
}

func TestCredentialUpsert_RejectsClearingStoredKey(t *testing.T) {
	repo := newMemoryCredentialRepo()
	seededCredential(repo, "M1")
	key := fmt.Sprintf("%064d", 5)
	_, err := repo.SetPrivateKeyIfAbsent(context.Background(), "M1", key)
	require.NoError(t, err)

	_, err = repo.Upsert(context.Background(), &entity.Credential{
		MerchantID:  "M1",
		AccessToken: "token2",
		PrivateKey:  entity.KeyRef(""),
	})
	assert.ErrorIs(t, err, domainerrors.ErrKeyConsistencyViolation)

	stored, err := repo.Get(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, key, stored.PrivateKeyValue())
}

func TestCredentialUpsert_RejectsDivergentKey(t *testing.T) {
	repo := newMemoryCredentialRepo()
	seededCredential(repo, "M1")
	_, err := repo.SetPrivateKeyIfAbsent(context.Background(), "M1", fmt.Sprintf("%064d", 5))
	require.NoError(t, err)

	_, err = repo.Upsert(context.Background(), &entity.Credential{
		MerchantID:  "M1",
		AccessToken: "token2",
		PrivateKey:  entity.KeyRef(fmt.Sprintf("%064d", 6)),
	})
	assert.ErrorIs(t, err, domainerrors.ErrKeyConsistencyViolation)
}

func TestGetOrCreateIdentity_DerivesFromStoredKey(t *testing.T) {
	keys := &stubKeys{}
	gateway := new(mocks.ProviderGateway)
	provisioner := newTestProvisioner(newMemoryCredentialRepo(), gateway, keys)

	storedKey := fmt.Sprintf("%064d", 42)
	identity, err := provisioner.GetOrCreateIdentity(context.Background(), "M1", &entity.Credential{
		MerchantID: "M1",
		PrivateKey: entity.KeyRef(storedKey),
	})

	require.NoError(t, err)
	assert.Equal(t, storedKey, identity.PrivateKey)
	assert.Equal(t, "pub:"+storedKey, identity.PublicKey)
	// No provider call happens when key material is already stored.
	gateway.AssertNotCalled(t, "GetAttribute", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOrCreateIdentity_GeneratesExactlyOnce(t *testing.T) {
	keys := &stubKeys{}
	repo := newMemoryCredentialRepo()
	gateway := new(mocks.ProviderGateway)
	gateway.On("GetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute).Return("", service.ErrAttributeNotFound).Once()
	gateway.On("SetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute, mock.Anything).Return(nil)

	provisioner := newTestProvisioner(repo, gateway, keys)
	credential := seededCredential(repo, "M1")

	first, err := provisioner.GetOrCreateIdentity(context.Background(), "M1", credential)
	require.NoError(t, err)

	// The second call with a stale (key-less) credential must re-read storage and
	// return the same identity instead of generating again.
	second, err := provisioner.GetOrCreateIdentity(context.Background(), "M1", credential)
	require.NoError(t, err)

	assert.Equal(t, first.PrivateKey, second.PrivateKey)
	assert.Equal(t, first.PublicKey, second.PublicKey)

	stored, err := repo.Get(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, first.PrivateKey, stored.PrivateKeyValue())
	gateway.AssertExpectations(t)
}

func TestGetOrCreateIdentity_ConcurrentCallersConverge(t *testing.T) {
	keys := &stubKeys{}
	repo := newMemoryCredentialRepo()
	gateway := new(mocks.ProviderGateway)
	gateway.On("GetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute).Return("", service.ErrAttributeNotFound)
	gateway.On("SetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute, mock.Anything).Return(nil)

	provisioner := newTestProvisioner(repo, gateway, keys)
	credential := seededCredential(repo, "M1")

	const callers = 16
	identities := make([]*entity.CryptographicIdentity, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			identities[i], errs[i] = provisioner.GetOrCreateIdentity(context.Background(), "M1", credential)
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, identities[0].PrivateKey, identities[i].PrivateKey)
		assert.Equal(t, identities[0].PublicKey, identities[i].PublicKey)
	}

	stored, err := repo.Get(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, identities[0].PrivateKey, stored.PrivateKeyValue())
}

func TestGetOrCreateIdentity_AdoptsMirroredKey(t *testing.T) {
	keys := &stubKeys{}
	repo := newMemoryCredentialRepo()
	mirroredKey := fmt.Sprintf("%064d", 7)

	gateway := new(mocks.ProviderGateway)
	gateway.On("GetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute).Return(mirroredKey, nil).Once()

	provisioner := newTestProvisioner(repo, gateway, keys)
	credential := seededCredential(repo, "M1")

	identity, err := provisioner.GetOrCreateIdentity(context.Background(), "M1", credential)
	require.NoError(t, err)
	assert.Equal(t, mirroredKey, identity.PrivateKey)

	stored, err := repo.Get(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, mirroredKey, stored.PrivateKeyValue())
	// Nothing to mirror back when the key came from the provider side.
	gateway.AssertNotCalled(t, "SetAttribute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOrCreateIdentity_DivergentStoresReported(t *testing.T) {
	keys := &stubKeys{}
	mirroredKey := fmt.Sprintf("%064d", 1)
	persistedKey := fmt.Sprintf("%064d", 2)

	repo := new(mocks.CredentialRepository)
	repo.On("Get", mock.Anything, "M1").Return(&entity.Credential{MerchantID: "M1"}, nil)
	repo.On("SetPrivateKeyIfAbsent", mock.Anything, "M1", mirroredKey).Return(persistedKey, nil)

	gateway := new(mocks.ProviderGateway)
	gateway.On("GetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute).Return(mirroredKey, nil)

	provisioner := newTestProvisioner(repo, gateway, keys)

	_, err := provisioner.GetOrCreateIdentity(context.Background(), "M1", &entity.Credential{MerchantID: "M1"})
	assert.ErrorIs(t, err, domainerrors.ErrKeyConsistencyViolation)
}

func TestGetOrCreateIdentity_MalformedMirroredKey(t *testing.T) {
	keys := &stubKeys{}
	repo := newMemoryCredentialRepo()

	gateway := new(mocks.ProviderGateway)
	gateway.On("GetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute).Return("not-a-key", nil)

	provisioner := newTestProvisioner(repo, gateway, keys)
	credential := seededCredential(repo, "M1")

	_, err := provisioner.GetOrCreateIdentity(context.Background(), "M1", credential)
	assert.ErrorIs(t, err, domainerrors.ErrKeyConsistencyViolation)
}

func TestGetOrCreateIdentity_ProviderUnavailable(t *testing.T) {
	keys := &stubKeys{}
	repo := newMemoryCredentialRepo()

	gateway := new(mocks.ProviderGateway)
	gateway.On("GetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute).Return("", errors.New("connection refused"))

	provisioner := newTestProvisioner(repo, gateway, keys)
	credential := seededCredential(repo, "M1")

	_, err := provisioner.GetOrCreateIdentity(context.Background(), "M1", credential)
	assert.ErrorIs(t, err, domainerrors.ErrProviderUnavailable)

	// No key material may be stored after a failed provisioning attempt.
	stored, err := repo.Get(context.Background(), "M1")
	require.NoError(t, err)
	assert.False(t, stored.HasPrivateKey())
}

func TestGetOrCreateIdentity_SchemaMissingRecovered(t *testing.T) {
	keys := &stubKeys{}
	repo := newMemoryCredentialRepo()

	gateway := new(mocks.ProviderGateway)
	gateway.On("GetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute).Return("", service.ErrAttributeNotFound).Once()
	gateway.On("SetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute, mock.Anything).Return(service.ErrAttributeSchemaMissing).Once()
	gateway.On("DefineAttributeSchema", mock.Anything, mock.Anything, PrivateKeyAttribute).Return(nil).Once()
	gateway.On("SetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute, mock.Anything).Return(nil).Once()

	provisioner := newTestProvisioner(repo, gateway, keys)
	credential := seededCredential(repo, "M1")

	identity, err := provisioner.GetOrCreateIdentity(context.Background(), "M1", credential)
	require.NoError(t, err)
	assert.NotEmpty(t, identity.PrivateKey)
	gateway.AssertExpectations(t)
}

func TestGetOrCreateIdentity_MirrorFailureDoesNotFailProvisioning(t *testing.T) {
	keys := &stubKeys{}
	repo := newMemoryCredentialRepo()

	gateway := new(mocks.ProviderGateway)
	gateway.On("GetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute).Return("", service.ErrAttributeNotFound).Once()
	gateway.On("SetAttribute", mock.Anything, mock.Anything, PrivateKeyAttribute, mock.Anything).Return(errors.New("rate limited"))

	provisioner := newTestProvisioner(repo, gateway, keys)
	credential := seededCredential(repo, "M1")

	identity, err := provisioner.GetOrCreateIdentity(context.Background(), "M1", credential)
	require.NoError(t, err)

	// The local store keeps the key even though the mirror write failed.
	stored, err := repo.Get(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, identity.PrivateKey, stored.PrivateKeyValue())
}
