package usecase

import (
	"context"

	"herald/internal/domain/entity"
)

// --- Input DTOs ---

// PublishProfileInput carries caller-supplied profile fields for an explicit publish.
// PublicKey and ProfileURL are derived server-side and ignored on input.
type PublishProfileInput struct {
	Name        string   `json:"name" validate:"required"`
	About       string   `json:"about"`
	Banner      string   `json:"banner"`
	Picture     string   `json:"picture"`
	Bot         bool     `json:"bot"`
	DisplayName string   `json:"display_name"`
	Hashtags    []string `json:"hashtags"`
	Locations   []string `json:"locations"`
	Namespace   string   `json:"namespace"`
	NIP05       string   `json:"nip05"`
	ProfileType string   `json:"profile_type"`
	Website     string   `json:"website"`
}

// --- Output DTOs ---

// SellerInfoOutput returns the raw provider-side view of the merchant:
// the account metadata plus the sellable catalog.
type SellerInfoOutput struct {
	Metadata *entity.MerchantMetadata
	Products []entity.CatalogItem
}

// ProfileUsecase defines the interface for the merchant profile lifecycle:
// preparing a publishable profile from provider data and pushing it to the
// identity network.
type ProfileUsecase interface {
	// FetchAndPrepareProfile loads the merchant credential, provisions the identity,
	// fetches provider metadata and assembles the profile without publishing it.
	FetchAndPrepareProfile(ctx context.Context, merchantID string) (*entity.Profile, error)

	// PrepareAndPublishProfile runs FetchAndPrepareProfile and then publishes the
	// result. When publishing fails the assembled profile is still returned
	// alongside the error so already-computed data is not lost.
	PrepareAndPublishProfile(ctx context.Context, merchantID string) (*entity.Profile, error)

	// PublishProfile publishes caller-supplied profile data under the merchant's
	// identity, returning the published profile with its resolvable URL set.
	PublishProfile(ctx context.Context, merchantID string, input *PublishProfileInput) (*entity.Profile, error)

	// GetProfile reads the currently published profile back from the identity network.
	GetProfile(ctx context.Context, merchantID string) (*entity.Profile, error)

	// SellerInfo returns provider merchant metadata for the authenticated merchant.
	SellerInfo(ctx context.Context, merchantID string) (*SellerInfoOutput, error)
}
