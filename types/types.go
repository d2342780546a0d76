// Package types contains the shared data model of the zkLogin voting
// gateway: the transient login setup record, the persistent account record,
// the opaque proof bundle returned by the proving service, and the ledger
// address representation.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// OpenIDProvider identifies a configured OpenID Connect identity provider.
type OpenIDProvider string

const (
	ProviderGoogle   OpenIDProvider = "google"
	ProviderTwitch   OpenIDProvider = "twitch"
	ProviderFacebook OpenIDProvider = "facebook"
)

// SetupData is the transient state written when a login begins and consumed
// exactly once when the OAuth callback completes. It must never survive past
// a single login attempt.
type SetupData struct {
	Provider            OpenIDProvider `json:"provider"`
	MaxEpoch            uint64         `json:"maxEpoch"`
	Randomness          string         `json:"randomness"`
	EphemeralPrivateKey string         `json:"ephemeralPrivateKey"`
}

// AccountData is the long-lived session record produced by a completed
// login. It is immutable once created; a re-login produces a new record.
// The account is usable for signing only while the current ledger epoch is
// below MaxEpoch.
type AccountData struct {
	Provider            OpenIDProvider `json:"provider"`
	UserAddress         Address        `json:"userAddr"`
	ZkProofs            *ZkProof       `json:"zkProofs"`
	EphemeralPrivateKey string         `json:"ephemeralPrivateKey"`
	UserSalt            string         `json:"userSalt"`
	Sub                 string         `json:"sub"`
	Aud                 string         `json:"aud"`
	Iss                 string         `json:"iss"`
	MaxEpoch            uint64         `json:"maxEpoch"`
}

// ZkProof is the proof bundle returned by the proving service. The gateway
// treats the proof points as opaque; they are only re-serialized into the
// composite signature.
type ZkProof struct {
	ProofPoints      ProofPoints `json:"proofPoints"`
	IssBase64Details ClaimDetail `json:"issBase64Details"`
	HeaderBase64     string      `json:"headerBase64"`
}

// ProofPoints carries the three groth16 proof elements as decimal strings,
// exactly as emitted by the prover.
type ProofPoints struct {
	A []string   `json:"a"`
	B [][]string `json:"b"`
	C []string   `json:"c"`
}

// ClaimDetail locates the issuer claim inside the base64 JWT payload.
type ClaimDetail struct {
	Value     string `json:"value"`
	IndexMod4 uint8  `json:"indexMod4"`
}

// AddressSize is the byte length of a ledger account address.
const AddressSize = 32

// Address is a 32-byte ledger account address. It marshals to and from the
// canonical 0x-prefixed lowercase hex form.
type Address [AddressSize]byte

// ParseAddress decodes a 0x-prefixed (or bare) hex string into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address
	h := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(h) != 2*AddressSize {
		return a, fmt.Errorf("invalid address length %d", len(h))
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return a, fmt.Errorf("invalid address: %w", err)
	}
	copy(a[:], b)
	return a, nil
}

// String returns the canonical 0x-prefixed hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// HexBytes is a byte slice that marshals as 0x-prefixed hex in JSON.
type HexBytes []byte

func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}
