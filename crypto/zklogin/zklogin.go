// Package zklogin implements the derivations that bind an OpenID identity
// to a ledger account: the login nonce, the address seed, the account
// address and the composite authorization signature. All field arithmetic is
// Poseidon over the BN254 scalar field, matching what the proving circuit
// expects, so every value derived here is verifiable against the proof the
// external prover returns.
package zklogin

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"golang.org/x/crypto/blake2b"

	"github.com/zkpoll/zkvote/types"
)

const (
	// AuthenticatorFlag prefixes every zkLogin-derived artifact on the
	// wire: account addresses and composite signatures.
	AuthenticatorFlag byte = 0x05

	// randomnessSize is the entropy, in bytes, of the per-login randomness
	// that makes the nonce unpredictable.
	randomnessSize = 16

	// nonceBytes is the size of the truncated Poseidon digest embedded in
	// the OAuth request as the nonce.
	nonceBytes = 20

	// packSize is the chunk width, in bytes, used when packing claim
	// strings into field elements. 31 bytes keeps every chunk below the
	// BN254 modulus.
	packSize = 31

	// Claim length bounds fixed by the proving circuit.
	maxClaimNameLen  = 32
	maxClaimValueLen = 115
	maxAudValueLen   = 145
)

// GenerateRandomness returns a fresh random field element as a decimal
// string. It must be regenerated for every login attempt and never reused.
func GenerateRandomness() (string, error) {
	buf := make([]byte, randomnessSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate randomness: %w", err)
	}
	return new(big.Int).SetBytes(buf).String(), nil
}

// Nonce derives the OAuth nonce from the flagged ephemeral public key, the
// session expiry epoch and the login randomness. The same three inputs
// always produce the same nonce, which is how the returned identity token is
// later verified to belong to this session.
func Nonce(flaggedPublicKey []byte, maxEpoch uint64, randomness string) (string, error) {
	r, ok := new(big.Int).SetString(randomness, 10)
	if !ok {
		return "", fmt.Errorf("invalid randomness %q", randomness)
	}
	pk := new(big.Int).SetBytes(flaggedPublicKey)
	// split the 33-byte key into two 128-bit field elements
	half := big.NewInt(1)
	half.Lsh(half, 128)
	pkHigh := new(big.Int).Div(pk, half)
	pkLow := new(big.Int).Mod(pk, half)

	digest, err := poseidon.Hash([]*big.Int{
		pkHigh,
		pkLow,
		new(big.Int).SetUint64(maxEpoch),
		r,
	})
	if err != nil {
		return "", fmt.Errorf("nonce hash: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(toPaddedBytes(digest, nonceBytes)), nil
}

// ExtendedPublicKey returns the prover-facing form of the ephemeral public
// key: the flagged key bytes interpreted as a big-endian integer, printed in
// decimal.
func ExtendedPublicKey(flaggedPublicKey []byte) string {
	return new(big.Int).SetBytes(flaggedPublicKey).String()
}

// AddressSeed derives the field element that ties the user salt to the
// identity claims. It is never stored; it is recomputed for every composite
// signature and must match the value the proof was generated over.
func AddressSeed(salt, claimName, claimValue, aud string) (*big.Int, error) {
	saltInt, ok := new(big.Int).SetString(salt, 10)
	if !ok {
		return nil, fmt.Errorf("invalid salt %q", salt)
	}
	nameHash, err := hashClaim(claimName, maxClaimNameLen)
	if err != nil {
		return nil, fmt.Errorf("claim name: %w", err)
	}
	valueHash, err := hashClaim(claimValue, maxClaimValueLen)
	if err != nil {
		return nil, fmt.Errorf("claim value: %w", err)
	}
	audHash, err := hashClaim(aud, maxAudValueLen)
	if err != nil {
		return nil, fmt.Errorf("audience: %w", err)
	}
	saltHash, err := poseidon.Hash([]*big.Int{saltInt})
	if err != nil {
		return nil, fmt.Errorf("salt hash: %w", err)
	}
	seed, err := poseidon.Hash([]*big.Int{nameHash, valueHash, audHash, saltHash})
	if err != nil {
		return nil, fmt.Errorf("address seed hash: %w", err)
	}
	return seed, nil
}

// Address derives the account address for an issuer and address seed:
// blake2b-256 over the authenticator flag, the length-prefixed issuer string
// and the 32-byte big-endian seed.
func Address(iss string, seed *big.Int) types.Address {
	issBytes := []byte(normalizeIssuer(iss))
	buf := make([]byte, 0, 2+len(issBytes)+32)
	buf = append(buf, AuthenticatorFlag)
	buf = append(buf, byte(len(issBytes)))
	buf = append(buf, issBytes...)
	buf = append(buf, toPaddedBytes(seed, 32)...)
	return types.Address(blake2b.Sum256(buf))
}

// AddressFromClaims is the address derivation used at login completion:
// a pure function of the identity token claims and the user salt. The same
// claims and salt must always yield the same address, or signing would drift
// from the proof.
func AddressFromClaims(iss, sub, aud, salt string) (types.Address, error) {
	seed, err := AddressSeed(salt, "sub", sub, aud)
	if err != nil {
		return types.Address{}, err
	}
	return Address(iss, seed), nil
}

// hashClaim packs an ASCII claim string, zero-padded to its circuit-fixed
// maximum length, into 31-byte field elements and hashes them.
func hashClaim(s string, maxLen int) (*big.Int, error) {
	if len(s) > maxLen {
		return nil, fmt.Errorf("claim %q exceeds maximum length %d", s, maxLen)
	}
	padded := make([]byte, maxLen)
	copy(padded, s)

	var chunks []*big.Int
	for i := 0; i < len(padded); i += packSize {
		end := i + packSize
		if end > len(padded) {
			end = len(padded)
		}
		chunks = append(chunks, new(big.Int).SetBytes(padded[i:end]))
	}
	return poseidon.Hash(chunks)
}

// normalizeIssuer maps the short Google issuer form to its canonical URL,
// mirroring what the proving service does before hashing.
func normalizeIssuer(iss string) string {
	if iss == "accounts.google.com" {
		return "https://accounts.google.com"
	}
	return iss
}

// toPaddedBytes returns the big-endian bytes of v left-padded to size.
func toPaddedBytes(v *big.Int, size int) []byte {
	out := make([]byte, size)
	v.FillBytes(out)
	return out
}
