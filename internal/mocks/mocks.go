// Package mocks provides testify-based test doubles for the domain interfaces.
package mocks

import (
	"context"
	"time"

	"herald/internal/domain/entity"
	"herald/internal/domain/service"
	"herald/internal/usecase"

	"github.com/stretchr/testify/mock"
)

// CredentialRepository is a mock for repository.CredentialRepository.
type CredentialRepository struct {
	mock.Mock
}

func (m *CredentialRepository) Get(ctx context.Context, merchantID string) (*entity.Credential, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.Credential), args.Error(1)
}

func (m *CredentialRepository) Upsert(ctx context.Context, credential *entity.Credential) (*entity.Credential, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.Credential), args.Error(1)
}

func (m *CredentialRepository) SetPrivateKeyIfAbsent(ctx context.Context, merchantID string, privateKey string) (string, error) {
	args := m.Called(ctx, merchantID, privateKey)

	return args.String(0), args.Error(1)
}

// ProviderGateway is a mock for service.ProviderGateway.
type ProviderGateway struct {
	mock.Mock
}

func (m *ProviderGateway) GetMerchantMetadata(ctx context.Context, credential *entity.Credential) (*entity.MerchantMetadata, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.MerchantMetadata), args.Error(1)
}

func (m *ProviderGateway) ListCatalogItems(ctx context.Context, credential *entity.Credential) ([]entity.CatalogItem, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]entity.CatalogItem), args.Error(1)
}

func (m *ProviderGateway) GetAttribute(ctx context.Context, credential *entity.Credential, name string) (string, error) {
	args := m.Called(ctx, credential, name)

	return args.String(0), args.Error(1)
}

func (m *ProviderGateway) SetAttribute(ctx context.Context, credential *entity.Credential, name, value string) error {
	args := m.Called(ctx, credential, name, value)

	return args.Error(0)
}

func (m *ProviderGateway) DefineAttributeSchema(ctx context.Context, credential *entity.Credential, name string) error {
	args := m.Called(ctx, credential, name)

	return args.Error(0)
}

func (m *ProviderGateway) Provider() entity.Provider {
	args := m.Called()

	return args.Get(0).(entity.Provider)
}

// PublisherGateway is a mock for service.PublisherGateway.
type PublisherGateway struct {
	mock.Mock
}

func (m *PublisherGateway) Publish(ctx context.Context, profile *entity.Profile, identity *entity.CryptographicIdentity) (*service.ProfileReference, error) {
	args := m.Called(ctx, profile, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.ProfileReference), args.Error(1)
}

func (m *PublisherGateway) Fetch(ctx context.Context, identity *entity.CryptographicIdentity) (*entity.Profile, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.Profile), args.Error(1)
}

// KeyService is a mock for service.KeyService.
type KeyService struct {
	mock.Mock
}

func (m *KeyService) Generate() (*entity.CryptographicIdentity, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.CryptographicIdentity), args.Error(1)
}

func (m *KeyService) Derive(privateKey string) (*entity.CryptographicIdentity, error) {
	args := m.Called(privateKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.CryptographicIdentity), args.Error(1)
}

func (m *KeyService) Validate(privateKey string) error {
	args := m.Called(privateKey)

	return args.Error(0)
}

// OAuthService is a mock for service.OAuthService.
type OAuthService struct {
	mock.Mock
}

func (m *OAuthService) BuildAuthorizationURL(state string) string {
	args := m.Called(state)

	return args.String(0)
}

func (m *OAuthService) ExchangeCode(ctx context.Context, code string) (*service.OAuthGrant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.OAuthGrant), args.Error(1)
}

func (m *OAuthService) Provider() entity.Provider {
	args := m.Called()

	return args.Get(0).(entity.Provider)
}

// TokenService is a mock for service.TokenService.
type TokenService struct {
	mock.Mock
}

func (m *TokenService) GenerateToken(merchantID string) (string, error) {
	args := m.Called(merchantID)

	return args.String(0), args.Error(1)
}

func (m *TokenService) ValidateToken(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.Claims), args.Error(1)
}

func (m *TokenService) TokenDuration() time.Duration {
	args := m.Called()

	return args.Get(0).(time.Duration)
}

// KeyProvisioner is a mock for usecase.KeyProvisioner.
type KeyProvisioner struct {
	mock.Mock
}

func (m *KeyProvisioner) GetOrCreateIdentity(ctx context.Context, merchantID string, credential *entity.Credential) (*entity.CryptographicIdentity, error) {
	args := m.Called(ctx, merchantID, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.CryptographicIdentity), args.Error(1)
}

// ProfileUsecase is a mock for usecase.ProfileUsecase.
type ProfileUsecase struct {
	mock.Mock
}

func (m *ProfileUsecase) FetchAndPrepareProfile(ctx context.Context, merchantID string) (*entity.Profile, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *ProfileUsecase) PrepareAndPublishProfile(ctx context.Context, merchantID string) (*entity.Profile, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *ProfileUsecase) PublishProfile(ctx context.Context, merchantID string, input *usecase.PublishProfileInput) (*entity.Profile, error) {
	args := m.Called(ctx, merchantID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *ProfileUsecase) GetProfile(ctx context.Context, merchantID string) (*entity.Profile, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *ProfileUsecase) SellerInfo(ctx context.Context, merchantID string) (*usecase.SellerInfoOutput, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*usecase.SellerInfoOutput), args.Error(1)
}
