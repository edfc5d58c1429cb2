// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import "time"

// Environment represents the provider-side environment a credential was issued for.
// It is immutable for a given merchant once the credential has been created.
type Environment string

const (
	// EnvironmentSandbox indicates a credential issued against the provider's sandbox.
	EnvironmentSandbox Environment = "sandbox"
	// EnvironmentProduction indicates a credential issued against the provider's production platform.
	EnvironmentProduction Environment = "production"
)

// String returns the string representation of the Environment.
func (e Environment) String() string {
	return string(e)
}

// IsValid checks if the Environment is a valid value.
func (e Environment) IsValid() bool {
	switch e {
	case EnvironmentSandbox, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// Credential represents the stored OAuth grant for a single merchant.
// There is at most one Credential per merchant identifier; the access token may be
// replaced in place on re-authorization, but key material transitions from absent to
// present exactly once and is never silently regenerated afterwards.
type Credential struct {
	MerchantID  string      // Provider-issued merchant identifier, the sole primary key.
	AccessToken string      // OAuth access token used to call the provider's API on behalf of the merchant.
	Environment Environment // Which provider environment the token was issued for.
	CreatedAt   time.Time   // Timestamp of when this credential was first persisted.

	// PrivateKey is the hex-encoded signing key material. nil means the key is
	// unspecified: never provisioned on reads, "leave stored material untouched"
	// on writes. A non-nil empty value is an explicit clear request, which the
	// persistence layer rejects once a key is stored.
	PrivateKey *string
}

// KeyRef wraps key material for assignment to Credential.PrivateKey.
func KeyRef(privateKey string) *string {
	return &privateKey
}

// HasPrivateKey reports whether key material has already been provisioned for this credential.
func (c *Credential) HasPrivateKey() bool {
	return c.PrivateKey != nil && *c.PrivateKey != ""
}

// PrivateKeyValue returns the provisioned key material, or "" when none is set.
func (c *Credential) PrivateKeyValue() string {
	if c.PrivateKey == nil {
		return ""
	}

	return *c.PrivateKey
}
