// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/domain/repository"
	"herald/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// credentialRepository implements the repository.CredentialRepository interface.
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository is the constructor for credentialRepository.
func NewCredentialRepository(db *gorm.DB) repository.CredentialRepository {
	return &credentialRepository{
		db: db,
	}
}

// Get retrieves the credential for a merchant.
func (repo *credentialRepository) Get(ctx context.Context, merchantID string) (*entity.Credential, error) {
	var credentialM model.CredentialModel

	if err := repo.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		First(&credentialM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCredentialNotFound
		}

		return nil, errors.Wrap(err, "failed to find credential by merchant ID")
	}

	return model.ToCredentialDomain(&credentialM), nil
}

// Upsert inserts the credential if absent, otherwise replaces only the access
// token in place. Environment and created_at are fixed at insert time, and
// stored key material survives re-authorization untouched.
func (repo *credentialRepository) Upsert(ctx context.Context, credential *entity.Credential) (*entity.Credential, error) {
	credentialM := model.FromCredentialDomain(credential)
	if credentialM.Environment == "" {
		credentialM.Environment = entity.EnvironmentSandbox.String()
	}

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "merchant_id"}},
			DoUpdates: clause.Assignments(map[string]any{"access_token": credentialM.AccessToken}),
		}).
		Create(credentialM).Error; err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to upsert credential")
	}

	// Read the row back so callers see the stored key and timestamps, not the
	// values they happened to pass in.
	stored, err := repo.Get(ctx, credential.MerchantID)
	if err != nil {
		return nil, err
	}

	// An explicit key on the incoming record must agree with what is already
	// stored. A nil key means "leave stored material untouched"; anything else
	// that disagrees, including an explicit empty value clearing the key, is
	// never resolved silently.
	if credential.PrivateKey != nil && stored.HasPrivateKey() && *credential.PrivateKey != stored.PrivateKeyValue() {
		if *credential.PrivateKey == "" {
			return nil, domainerrors.ErrKeyConsistencyViolation.WrapMessage("refusing to clear stored key material")
		}

		return nil, domainerrors.ErrKeyConsistencyViolation.WrapMessage("incoming private key differs from stored key material")
	}

	return stored, nil
}

// SetPrivateKeyIfAbsent durably records key material via a conditional write.
// The WHERE private_key IS NULL guard makes the first writer win across
// processes; everyone else adopts the stored key returned here.
func (repo *credentialRepository) SetPrivateKeyIfAbsent(ctx context.Context, merchantID string, privateKey string) (string, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.CredentialModel{}).
		Where("merchant_id = ? AND private_key IS NULL", merchantID).
		Update("private_key", privateKey)
	if result.Error != nil {
		return "", domainerrors.NewDatabaseExecuteError(result.Error, "failed to record private key")
	}
	if result.RowsAffected == 1 {
		return privateKey, nil
	}

	// No row updated: either the merchant is unknown or another writer already
	// stored a key. Re-read to find out which.
	stored, err := repo.Get(ctx, merchantID)
	if err != nil {
		return "", err
	}
	if !stored.HasPrivateKey() {
		return "", domainerrors.ErrKeyConsistencyViolation.WrapMessage("conditional key write affected no row yet none is stored")
	}

	return stored.PrivateKeyValue(), nil
}
