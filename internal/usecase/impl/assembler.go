package impl

import "herald/internal/domain/entity"

// DefaultNamespace groups profiles published by this service on the identity network.
const DefaultNamespace = "com.herald.merchant"

// AssembleProfile maps provider merchant metadata and a cryptographic identity
// into a normalized, publishable profile. It is a pure function: no I/O, and the
// same inputs always produce a field-identical profile.
//
// Defaults for missing optional metadata: empty string for text fields, empty
// (never nil) slices for list fields, and the bot flag is false unless the
// provider explicitly marks the account as automated. ProfileURL is always left
// empty; only a successful publish sets it.
func AssembleProfile(metadata *entity.MerchantMetadata, identity *entity.CryptographicIdentity) *entity.Profile {
	hashtags := make([]string, 0, len(metadata.Categories))
	hashtags = append(hashtags, metadata.Categories...)

	locations := make([]string, 0, len(metadata.Locations))
	for _, location := range metadata.Locations {
		label := location.Locality
		if label == "" {
			label = location.Name
		}
		if label != "" {
			locations = append(locations, label)
		}
	}

	return &entity.Profile{
		Name:        metadata.BusinessName,
		About:       metadata.Description,
		Banner:      metadata.BannerURL,
		Picture:     metadata.LogoURL,
		Bot:         metadata.Automated,
		DisplayName: metadata.BusinessName,
		Hashtags:    hashtags,
		Locations:   locations,
		Namespace:   DefaultNamespace,
		NIP05:       "",
		ProfileType: entity.ProfileTypeMerchant,
		Website:     metadata.WebsiteURL,
		PublicKey:   identity.PublicKey,
		ProfileURL:  "",
	}
}
