// Package ephemeral manages the short-lived Ed25519 signing keypair
// generated for a single login session. The private key never leaves the
// process except through the session store; only signatures and the public
// key are transmitted.
package ephemeral

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SchemeFlagEd25519 is the signature scheme flag the ledger uses for
// Ed25519 keys. It prefixes both serialized public keys and signatures.
const SchemeFlagEd25519 byte = 0x00

// KeyPair wraps an Ed25519 keypair bound to one login session.
type KeyPair struct {
	priv ed25519.PrivateKey
}

// Generate creates a fresh keypair. It has no side effects; the caller
// decides whether to persist it.
func Generate() (*KeyPair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral keypair: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// FromSecretKey reconstructs a keypair from its serialized private key, as
// produced by SecretKey.
func FromSecretKey(encoded string) (*KeyPair, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode ephemeral private key: %w", err)
	}
	if len(raw) != 1+ed25519.SeedSize {
		return nil, fmt.Errorf("invalid ephemeral private key length %d", len(raw))
	}
	if raw[0] != SchemeFlagEd25519 {
		return nil, fmt.Errorf("unsupported key scheme flag 0x%02x", raw[0])
	}
	return &KeyPair{priv: ed25519.NewKeyFromSeed(raw[1:])}, nil
}

// SecretKey serializes the private key as base64(flag || seed). This is the
// form persisted inside SetupData and AccountData.
func (k *KeyPair) SecretKey() string {
	raw := make([]byte, 0, 1+ed25519.SeedSize)
	raw = append(raw, SchemeFlagEd25519)
	raw = append(raw, k.priv.Seed()...)
	return base64.StdEncoding.EncodeToString(raw)
}

// PublicKey returns the raw 32-byte Ed25519 public key.
func (k *KeyPair) PublicKey() []byte {
	return k.priv.Public().(ed25519.PublicKey)
}

// FlaggedPublicKey returns the scheme flag followed by the raw public key,
// the form the nonce and the extended ephemeral public key are derived from.
func (k *KeyPair) FlaggedPublicKey() []byte {
	out := make([]byte, 0, 1+ed25519.PublicKeySize)
	out = append(out, SchemeFlagEd25519)
	out = append(out, k.PublicKey()...)
	return out
}

// Sign signs the given message (already hashed by the caller where the
// ledger requires it) and returns the raw 64-byte signature.
func (k *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

// SerializedSignature returns the ledger wire form of a signature over msg:
// flag || signature || public key, base64 encoded.
func (k *KeyPair) SerializedSignature(msg []byte) string {
	sig := k.Sign(msg)
	raw := make([]byte, 0, 1+len(sig)+ed25519.PublicKeySize)
	raw = append(raw, SchemeFlagEd25519)
	raw = append(raw, sig...)
	raw = append(raw, k.PublicKey()...)
	return base64.StdEncoding.EncodeToString(raw)
}
