// Package entity contains the core business objects of the project.
package entity

// ProfileType classifies the published profile on the identity network.
type ProfileType string

const (
	// ProfileTypeMerchant indicates a commercial storefront profile.
	ProfileTypeMerchant ProfileType = "merchant"
	// ProfileTypeOther is the fallback classification for anything unrecognized.
	ProfileTypeOther ProfileType = "other"
)

// String returns the string representation of the ProfileType.
func (p ProfileType) String() string {
	return string(p)
}

// IsValid checks if the ProfileType is a valid value.
func (p ProfileType) IsValid() bool {
	switch p {
	case ProfileTypeMerchant, ProfileTypeOther:
		return true
	default:
		return false
	}
}

// Profile is the normalized, publishable projection of a merchant: provider
// metadata joined with the merchant's cryptographic identity. It is a transient
// value object, built per request and forwarded to the publisher, never stored.
type Profile struct {
	Name        string      `json:"name"`         // Short profile name, from the business name.
	About       string      `json:"about"`        // Long-form description.
	Banner      string      `json:"banner"`       // Banner image URI.
	Picture     string      `json:"picture"`      // Avatar image URI.
	Bot         bool        `json:"bot"`          // True only when the provider marks the account as automated.
	DisplayName string      `json:"display_name"` // Human-facing display name.
	Hashtags    []string    `json:"hashtags"`     // Ordered discovery tags, may be empty.
	Locations   []string    `json:"locations"`    // Ordered location labels, may be empty.
	Namespace   string      `json:"namespace"`    // Namespace tag grouping profiles published by this service.
	NIP05       string      `json:"nip05"`        // Verification identifier, empty unless verified externally.
	ProfileType ProfileType `json:"profile_type"` // Classification on the identity network.
	Website     string      `json:"website"`      // Public website URI.
	PublicKey   string      `json:"public_key"`   // Always equal to the owning identity's public key.
	ProfileURL  string      `json:"profile_url"`  // Resolvable reference, set only after a successful publish.
}
