// Package entity contains the core business objects of the project.
package entity

// CryptographicIdentity is the signing keypair bound to one merchant.
// The public key is deterministically derived from the private key, so two
// identities built from the same key material are always field-identical.
type CryptographicIdentity struct {
	PrivateKey string // Hex-encoded secp256k1 private key.
	PublicKey  string // Hex-encoded x-only public key derived from PrivateKey.
}
