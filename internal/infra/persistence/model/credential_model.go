// Package model contains the GORM-specific structs mapping domain entities to tables.
package model

import (
	"time"

	"herald/internal/domain/entity"
)

// CredentialModel is the GORM-specific struct for the 'oauth_tokens' table.
// It stores one OAuth grant per merchant together with the provisioned key material.
type CredentialModel struct {
	MerchantID  string `gorm:"type:varchar(64);primary_key"`
	AccessToken string `gorm:"type:text;not null"`
	Environment string `gorm:"type:varchar(16);not null;default:sandbox"`
	CreatedAt   time.Time
	// PrivateKey is nullable on purpose: NULL means "never provisioned", which the
	// conditional key write relies on.
	PrivateKey *string `gorm:"type:varchar(64)"`
}

// TableName explicitly sets the table name for GORM.
func (CredentialModel) TableName() string {
	return "oauth_tokens"
}

// FromCredentialDomain maps a domain credential onto the persistence model.
func FromCredentialDomain(credential *entity.Credential) *CredentialModel {
	credentialM := &CredentialModel{
		MerchantID:  credential.MerchantID,
		AccessToken: credential.AccessToken,
		Environment: credential.Environment.String(),
		CreatedAt:   credential.CreatedAt,
	}
	if credential.HasPrivateKey() {
		key := credential.PrivateKeyValue()
		credentialM.PrivateKey = &key
	}

	return credentialM
}

// ToCredentialDomain maps a persistence model back to the domain credential.
func ToCredentialDomain(credentialM *CredentialModel) *entity.Credential {
	credential := &entity.Credential{
		MerchantID:  credentialM.MerchantID,
		AccessToken: credentialM.AccessToken,
		Environment: entity.Environment(credentialM.Environment),
		CreatedAt:   credentialM.CreatedAt,
	}
	if credentialM.PrivateKey != nil && *credentialM.PrivateKey != "" {
		credential.PrivateKey = entity.KeyRef(*credentialM.PrivateKey)
	}

	return credential
}
