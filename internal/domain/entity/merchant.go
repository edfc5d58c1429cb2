// Package entity contains the core business objects of the project.
package entity

// MerchantLocation is one physical location reported by the payment provider.
type MerchantLocation struct {
	Name     string // Location business name, may differ from the merchant's.
	Locality string // City or district the location operates in.
}

// CatalogItem is one sellable item from the provider's catalog.
type CatalogItem struct {
	ID          string // Provider-issued catalog object identifier.
	Name        string // Item display name.
	Description string // Free-form item description, if any.
}

// MerchantMetadata is the provider-side view of a merchant account, normalized
// from whatever shape the provider's merchant-info endpoint returns.
type MerchantMetadata struct {
	ID           string             // Provider-issued merchant identifier.
	BusinessName string             // The merchant's registered business name.
	Description  string             // Free-form business description, if the provider exposes one.
	Country      string             // ISO country code of the merchant.
	LanguageCode string             // BCP-47 language tag of the merchant account.
	Currency     string             // ISO currency code the merchant settles in.
	Status       string             // Provider-side account status, e.g. "ACTIVE".
	WebsiteURL   string             // The merchant's public website, if any.
	LogoURL      string             // Brand logo, used as the profile picture.
	BannerURL    string             // Point-of-sale background image, used as the profile banner.
	Automated    bool               // Whether the provider marks this account as machine-operated.
	Categories   []string           // Provider business categories, mapped to profile hashtags.
	Locations    []MerchantLocation // Ordered physical locations of the merchant.
}
