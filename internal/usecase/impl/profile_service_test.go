package impl

import (
	"context"
	"fmt"
	"log/slog"
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

type profileServiceFixture struct {
	repo        *mocks.CredentialRepository
	provisioner *mocks.KeyProvisioner
	gateway     *mocks.ProviderGateway
	publisher   *mocks.PublisherGateway
	svc         usecase.ProfileUsecase
}

func newProfileServiceFixture() *profileServiceFixture {
	repo := new(mocks.CredentialRepository)
	provisioner := new(mocks.KeyProvisioner)
	gateway := new(mocks.ProviderGateway)
	publisher := new(mocks.PublisherGateway)

	svc := NewProfileService(ProfileServiceParams{
		CredentialRepo: repo,
		Provisioner:    provisioner,
		Gateway:        gateway,
		Publisher:      publisher,
		Keys:           &stubKeys{},
		Logger:         slog.Default(),
	})

	return &profileServiceFixture{
		repo:        repo,
		provisioner: provisioner,
		gateway:     gateway,
		publisher:   publisher,
		svc:         svc,
	}
}

func testKey(n int) string {
	return fmt.Sprintf("%064d", n)
}

func TestFetchAndPrepareProfile_UnknownMerchant(t *testing.T) {
	f := newProfileServiceFixture()
	f.repo.On("Get", mock.Anything, "missing").Return(nil, repository.ErrCredentialNotFound)

	_, err := f.svc.FetchAndPrepareProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, domainerrors.ErrUnknownMerchant)
}

func TestFetchAndPrepareProfile_AssemblesProfile(t *testing.T) {
	f := newProfileServiceFixture()
	credential := &entity.Credential{MerchantID: "M1", AccessToken: "token", PrivateKey: entity.KeyRef(testKey(1))}
	identity := &entity.CryptographicIdentity{PrivateKey: testKey(1), PublicKey: "pub:" + testKey(1)}

	f.repo.On("Get", mock.Anything, "M1").Return(credential, nil)
	f.provisioner.On("GetOrCreateIdentity", mock.Anything, "M1", credential).Return(identity, nil)
	f.gateway.On("GetMerchantMetadata", mock.Anything, credential).Return(&entity.MerchantMetadata{
		ID:           "M1",
		BusinessName: "Shop",
	}, nil)

	profile, err := f.svc.FetchAndPrepareProfile(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, "Shop", profile.Name)
	assert.Equal(t, identity.PublicKey, profile.PublicKey)
	assert.Empty(t, profile.ProfileURL)
	// Preparation never publishes.
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchAndPrepareProfile_ProviderUnavailableAfterProvisioning(t *testing.T) {
	f := newProfileServiceFixture()
	credential := &entity.Credential{MerchantID: "M1", AccessToken: "token"}
	identity := &entity.CryptographicIdentity{PrivateKey: testKey(1), PublicKey: "pub"}

	f.repo.On("Get", mock.Anything, "M1").Return(credential, nil)
	f.provisioner.On("GetOrCreateIdentity", mock.Anything, "M1", credential).Return(identity, nil)
	f.gateway.On("GetMerchantMetadata", mock.Anything, credential).Return(nil, errors.New("timeout"))

	_, err := f.svc.FetchAndPrepareProfile(context.Background(), "M1")
	assert.ErrorIs(t, err, domainerrors.ErrProviderUnavailable)
	// Provisioning ran before the metadata fetch and is not rolled back.
	f.provisioner.AssertExpectations(t)
}

func TestPrepareAndPublishProfile_SetsProfileURL(t *testing.T) {
	f := newProfileServiceFixture()
	credential := &entity.Credential{MerchantID: "M1", PrivateKey: entity.KeyRef(testKey(1))}
	identity := &entity.CryptographicIdentity{PrivateKey: testKey(1), PublicKey: "pub"}

	f.repo.On("Get", mock.Anything, "M1").Return(credential, nil)
	f.provisioner.On("GetOrCreateIdentity", mock.Anything, "M1", credential).Return(identity, nil)
	f.gateway.On("GetMerchantMetadata", mock.Anything, credential).Return(&entity.MerchantMetadata{BusinessName: "Shop"}, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, identity).Return(&service.ProfileReference{
		URL:    "https://njump.me/npub1example",
		Handle: "npub1example",
	}, nil)

	profile, err := f.svc.PrepareAndPublishProfile(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, "https://njump.me/npub1example", profile.ProfileURL)
}

func TestPrepareAndPublishProfile_PublishFailureKeepsProfile(t *testing.T) {
	f := newProfileServiceFixture()
	credential := &entity.Credential{MerchantID: "M1", PrivateKey: entity.KeyRef(testKey(1))}
	identity := &entity.CryptographicIdentity{PrivateKey: testKey(1), PublicKey: "pub"}

	f.repo.On("Get", mock.Anything, "M1").Return(credential, nil)
	f.provisioner.On("GetOrCreateIdentity", mock.Anything, "M1", credential).Return(identity, nil)
	f.gateway.On("GetMerchantMetadata", mock.Anything, credential).Return(&entity.MerchantMetadata{BusinessName: "Shop"}, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, identity).Return(nil, errors.New("all relays down"))

	profile, err := f.svc.PrepareAndPublishProfile(context.Background(), "M1")
	assert.ErrorIs(t, err, domainerrors.ErrPublishFailed)
	// The assembled profile is still handed back so computed data is not lost.
	require.NotNil(t, profile)
	assert.Equal(t, "Shop", profile.Name)
	assert.Empty(t, profile.ProfileURL)
}

func TestPublishProfile_RequiresProvisionedKey(t *testing.T) {
	f := newProfileServiceFixture()
	f.repo.On("Get", mock.Anything, "M1").Return(&entity.Credential{MerchantID: "M1"}, nil)

	_, err := f.svc.PublishProfile(context.Background(), "M1", &usecase.PublishProfileInput{Name: "Shop"})
	assert.ErrorIs(t, err, domainerrors.ErrKeyNotProvisioned)
}

func TestPublishProfile_NormalizesInput(t *testing.T) {
	f := newProfileServiceFixture()
	credential := &entity.Credential{MerchantID: "M1", PrivateKey: entity.KeyRef(testKey(1))}

	f.repo.On("Get", mock.Anything, "M1").Return(credential, nil)
	f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(profile *entity.Profile) bool {
		return profile.Namespace == DefaultNamespace &&
			profile.ProfileType == entity.ProfileTypeOther &&
			profile.Hashtags != nil && len(profile.Hashtags) == 0 &&
			profile.Locations != nil && len(profile.Locations) == 0
	}), mock.Anything).Return(&service.ProfileReference{URL: "https://njump.me/npub1x"}, nil)

	profile, err := f.svc.PublishProfile(context.Background(), "M1", &usecase.PublishProfileInput{
		Name:        "Shop",
		ProfileType: "bogus",
	})
	require.NoError(t, err)
	assert.Equal(t, "pub:"+testKey(1), profile.PublicKey)
	assert.Equal(t, "https://njump.me/npub1x", profile.ProfileURL)
}

func TestGetProfile_NotPublished(t *testing.T) {
	f := newProfileServiceFixture()
	credential := &entity.Credential{MerchantID: "M1", PrivateKey: entity.KeyRef(testKey(1))}

	f.repo.On("Get", mock.Anything, "M1").Return(credential, nil)
	f.publisher.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("no events"))

	_, err := f.svc.GetProfile(context.Background(), "M1")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestSellerInfo_ReturnsMetadataAndCatalog(t *testing.T) {
	f := newProfileServiceFixture()
	credential := &entity.Credential{MerchantID: "M1", AccessToken: "token"}

	f.repo.On("Get", mock.Anything, "M1").Return(credential, nil)
	f.gateway.On("GetMerchantMetadata", mock.Anything, credential).Return(&entity.MerchantMetadata{
		ID:           "M1",
		BusinessName: "Shop",
		Country:      "US",
	}, nil)
	f.gateway.On("ListCatalogItems", mock.Anything, credential).Return([]entity.CatalogItem{
		{ID: "ITEM1", Name: "Espresso", Description: "Double shot"},
	}, nil)

	output, err := f.svc.SellerInfo(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, "Shop", output.Metadata.BusinessName)
	assert.Equal(t, "US", output.Metadata.Country)
	require.Len(t, output.Products, 1)
	assert.Equal(t, "Espresso", output.Products[0].Name)
}

func TestSellerInfo_CatalogFailureSurfaces(t *testing.T) {
	f := newProfileServiceFixture()
	credential := &entity.Credential{MerchantID: "M1", AccessToken: "token"}

	f.repo.On("Get", mock.Anything, "M1").Return(credential, nil)
	f.gateway.On("GetMerchantMetadata", mock.Anything, credential).Return(&entity.MerchantMetadata{ID: "M1"}, nil)
	f.gateway.On("ListCatalogItems", mock.Anything, credential).Return(nil, errors.New("timeout"))

	_, err := f.svc.SellerInfo(context.Background(), "M1")
	assert.ErrorIs(t, err, domainerrors.ErrProviderUnavailable)
}
