// Package identity generates the node's ephemeral-for-session ECDH keypair
// and derives its externally-visible address token (C1).
//
// Grounded on the teacher's torkeys.GenerateCurve25519KeyPair (now
// crypto.GenerateKeyPair) and the Fingerprint concept in the teacher's
// types.go, adapted from a 20-byte SHA-1 relay digest to a short
// SHA-256-derived address token since this module has no persistent
// relay identity to fingerprint.
package identity

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/taior/taior/crypto"
)

// addressHexChars is the length, in hex characters, of the address token
// derived from the public key. Falls within the spec's 16-32 range.
const addressHexChars = 24

// Identity is a single ephemeral ECDH keypair for the lifetime of a Core.
// There is no persistence (§4.1): a fresh Identity is generated every time
// a Core is constructed.
type Identity struct {
	keys *crypto.KeyPair
}

// New generates a fresh Identity.
func New() (*Identity, error) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &Identity{keys: kp}, nil
}

// PublicKey returns the raw Curve25519 public key.
func (id *Identity) PublicKey() []byte {
	b := make([]byte, crypto.KeySize)
	copy(b, id.keys.Public[:])
	return b
}

// PrivateKey returns the raw Curve25519 private key. Used by the router to
// peel onion layers addressed to this node.
func (id *Identity) PrivateKey() []byte {
	b := make([]byte, crypto.KeySize)
	copy(b, id.keys.Private[:])
	return b
}

// Address returns the human-visible address token of the form
// "taior://<hex>", deterministically derived from the public key.
func (id *Identity) Address() string {
	return "taior://" + addressToken(id.keys.Public[:])
}

// addressToken deterministically derives a short hex token from a public
// key: SHA-256(pub), truncated to addressHexChars/2 bytes and hex-encoded.
func addressToken(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:addressHexChars/2])
}

// Zero scrubs the private key. Called from Core.Disconnect (§5
// cancellation: "zeroizes secrets").
func (id *Identity) Zero() {
	id.keys.Zero()
}
