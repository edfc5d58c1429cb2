// Package service defines the interfaces for domain services which require
// external infrastructure, abstracting the details from the use cases.
package service

import (
	"context"
	"errors"

	"herald/internal/domain/entity"
)

// Sentinel outcomes of the provider's custom-attribute extension point.
var (
	// ErrAttributeNotFound is returned when no value is stored under the attribute name.
	ErrAttributeNotFound = errors.New("provider attribute not found")
	// ErrAttributeSchemaMissing is returned when the attribute definition has never
	// been created on the provider side; callers recover via DefineAttributeSchema.
	ErrAttributeSchemaMissing = errors.New("provider attribute schema missing")
)

// ProviderGateway is the narrow interface the core consumes from the payment
// platform: merchant metadata plus a named key-value extension point used as
// secondary durable storage for key material. The concrete implementation
// resolves sandbox vs. production base URLs from credential.Environment.
type ProviderGateway interface {
	// GetMerchantMetadata fetches the merchant record the credential belongs to.
	GetMerchantMetadata(ctx context.Context, credential *entity.Credential) (*entity.MerchantMetadata, error)

	// ListCatalogItems fetches the merchant's sellable catalog items.
	ListCatalogItems(ctx context.Context, credential *entity.Credential) ([]entity.CatalogItem, error)

	// GetAttribute reads a named string attribute scoped to the credential's merchant.
	// Returns ErrAttributeNotFound when the attribute has no stored value.
	GetAttribute(ctx context.Context, credential *entity.Credential, name string) (string, error)

	// SetAttribute writes a named string attribute scoped to the credential's merchant.
	// Returns ErrAttributeSchemaMissing when the definition does not exist yet.
	SetAttribute(ctx context.Context, credential *entity.Credential, name, value string) error

	// DefineAttributeSchema creates the attribute definition on the provider side.
	// Defining an already-existing schema is a no-op, not an error.
	DefineAttributeSchema(ctx context.Context, credential *entity.Credential, name string) error

	// Provider returns which payment platform this gateway talks to.
	Provider() entity.Provider
}
