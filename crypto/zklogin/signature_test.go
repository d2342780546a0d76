package zklogin

import (
	"encoding/base64"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/zkpoll/zkvote/crypto/ephemeral"
	"github.com/zkpoll/zkvote/types"
)

func testProof() *types.ZkProof {
	return &types.ZkProof{
		ProofPoints: types.ProofPoints{
			A: []string{"1", "2", "1"},
			B: [][]string{{"3", "4"}, {"5", "6"}, {"1", "0"}},
			C: []string{"7", "8", "1"},
		},
		IssBase64Details: types.ClaimDetail{Value: "yJpc3MiOiJodHRwczovL2lkLnR3aXRjaC50di9vYXV0aDIiLC", IndexMod4: 1},
		HeaderBase64:     "eyJhbGciOiJSUzI1NiJ9",
	}
}

func TestCompositeSignature(t *testing.T) {
	c := qt.New(t)

	kp, err := ephemeral.Generate()
	c.Assert(err, qt.IsNil)
	userSig := kp.SerializedSignature([]byte("digest"))

	sig, err := CompositeSignature(testProof(), big.NewInt(12345), 102, userSig)
	c.Assert(err, qt.IsNil)

	raw, err := base64.StdEncoding.DecodeString(sig)
	c.Assert(err, qt.IsNil)
	c.Assert(raw[0], qt.Equals, AuthenticatorFlag)

	// same inputs, same bytes
	sig2, err := CompositeSignature(testProof(), big.NewInt(12345), 102, userSig)
	c.Assert(err, qt.IsNil)
	c.Assert(sig2, qt.Equals, sig)

	// the expiry epoch is bound into the signature
	sig3, err := CompositeSignature(testProof(), big.NewInt(12345), 103, userSig)
	c.Assert(err, qt.IsNil)
	c.Assert(sig3, qt.Not(qt.Equals), sig)
}

func TestCompositeSignatureRejectsBadInput(t *testing.T) {
	c := qt.New(t)

	_, err := CompositeSignature(nil, big.NewInt(1), 102, "")
	c.Assert(err, qt.IsNotNil)

	_, err = CompositeSignature(&types.ZkProof{}, big.NewInt(1), 102, "")
	c.Assert(err, qt.IsNotNil)

	_, err = CompositeSignature(testProof(), big.NewInt(1), 102, "not-base64!!")
	c.Assert(err, qt.IsNotNil)
}
