// Package entity contains the core business objects of the project.
package entity

// Provider represents the payment platform a merchant account belongs to.
type Provider string

const (
	// ProviderSquare indicates the merchant account is hosted on Square.
	ProviderSquare Provider = "square"
	// ProviderShopify indicates the merchant account is hosted on Shopify.
	ProviderShopify Provider = "shopify"
)

// String returns the string representation of the Provider.
func (p Provider) String() string {
	return string(p)
}

// IsValid checks if the Provider is a valid value.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderSquare, ProviderShopify:
		return true
	default:
		return false
	}
}
