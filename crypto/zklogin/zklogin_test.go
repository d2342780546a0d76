package zklogin

import (
	"encoding/base64"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/zkpoll/zkvote/crypto/ephemeral"
)

func TestGenerateRandomness(t *testing.T) {
	c := qt.New(t)

	r1, err := GenerateRandomness()
	c.Assert(err, qt.IsNil)
	r2, err := GenerateRandomness()
	c.Assert(err, qt.IsNil)
	c.Assert(r1, qt.Not(qt.Equals), r2)
}

func TestNonceDeterministic(t *testing.T) {
	c := qt.New(t)

	kp, err := ephemeral.Generate()
	c.Assert(err, qt.IsNil)
	randomness, err := GenerateRandomness()
	c.Assert(err, qt.IsNil)

	n1, err := Nonce(kp.FlaggedPublicKey(), 102, randomness)
	c.Assert(err, qt.IsNil)
	n2, err := Nonce(kp.FlaggedPublicKey(), 102, randomness)
	c.Assert(err, qt.IsNil)
	c.Assert(n1, qt.Equals, n2)

	// base64url of 20 bytes, no padding
	c.Assert(n1, qt.HasLen, 27)
	_, err = base64.RawURLEncoding.DecodeString(n1)
	c.Assert(err, qt.IsNil)
}

func TestNonceSensitivity(t *testing.T) {
	c := qt.New(t)

	kp, err := ephemeral.Generate()
	c.Assert(err, qt.IsNil)
	randomness, err := GenerateRandomness()
	c.Assert(err, qt.IsNil)

	base, err := Nonce(kp.FlaggedPublicKey(), 102, randomness)
	c.Assert(err, qt.IsNil)

	// different epoch
	n, err := Nonce(kp.FlaggedPublicKey(), 103, randomness)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Not(qt.Equals), base)

	// different randomness
	other, err := GenerateRandomness()
	c.Assert(err, qt.IsNil)
	n, err = Nonce(kp.FlaggedPublicKey(), 102, other)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Not(qt.Equals), base)

	// different key
	kp2, err := ephemeral.Generate()
	c.Assert(err, qt.IsNil)
	n, err = Nonce(kp2.FlaggedPublicKey(), 102, randomness)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Not(qt.Equals), base)
}

func TestNonceRejectsBadRandomness(t *testing.T) {
	c := qt.New(t)

	kp, err := ephemeral.Generate()
	c.Assert(err, qt.IsNil)
	_, err = Nonce(kp.FlaggedPublicKey(), 102, "not-a-number")
	c.Assert(err, qt.IsNotNil)
}

func TestAddressRoundTripStability(t *testing.T) {
	c := qt.New(t)

	addr1, err := AddressFromClaims("https://id.twitch.tv/oauth2", "u1", "app1", "42")
	c.Assert(err, qt.IsNil)
	addr2, err := AddressFromClaims("https://id.twitch.tv/oauth2", "u1", "app1", "42")
	c.Assert(err, qt.IsNil)
	c.Assert(addr1, qt.Equals, addr2)
	c.Assert(strings.HasPrefix(addr1.String(), "0x"), qt.IsTrue)

	// any differing input changes the address
	addr3, err := AddressFromClaims("https://id.twitch.tv/oauth2", "u1", "app1", "43")
	c.Assert(err, qt.IsNil)
	c.Assert(addr3, qt.Not(qt.Equals), addr1)

	addr4, err := AddressFromClaims("https://id.twitch.tv/oauth2", "u2", "app1", "42")
	c.Assert(err, qt.IsNil)
	c.Assert(addr4, qt.Not(qt.Equals), addr1)
}

func TestGoogleIssuerNormalization(t *testing.T) {
	c := qt.New(t)

	short, err := AddressFromClaims("accounts.google.com", "u1", "app1", "42")
	c.Assert(err, qt.IsNil)
	long, err := AddressFromClaims("https://accounts.google.com", "u1", "app1", "42")
	c.Assert(err, qt.IsNil)
	c.Assert(short, qt.Equals, long)
}

func TestAddressSeedClaimBounds(t *testing.T) {
	c := qt.New(t)

	_, err := AddressSeed("42", strings.Repeat("x", 33), "u1", "app1")
	c.Assert(err, qt.IsNotNil)

	_, err = AddressSeed("42", "sub", strings.Repeat("x", 116), "app1")
	c.Assert(err, qt.IsNotNil)

	_, err = AddressSeed("42", "sub", "u1", strings.Repeat("x", 146))
	c.Assert(err, qt.IsNotNil)

	_, err = AddressSeed("nope", "sub", "u1", "app1")
	c.Assert(err, qt.IsNotNil)
}
