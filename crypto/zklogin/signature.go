package zklogin

import (
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/zkpoll/zkvote/crypto/bcs"
	"github.com/zkpoll/zkvote/types"
)

// CompositeSignature assembles the authorization signature the ledger
// verifies: the proof bundle, the recomputed address seed, the session
// expiry epoch and the ephemeral signature over the transaction bytes,
// serialized in canonical form and prefixed with the zkLogin authenticator
// flag.
//
// userSignature is the serialized ephemeral signature (flag || sig || pubkey)
// in base64, as produced by ephemeral.KeyPair.SerializedSignature.
func CompositeSignature(proof *types.ZkProof, addressSeed *big.Int, maxEpoch uint64, userSignature string) (string, error) {
	if proof == nil {
		return "", fmt.Errorf("missing proof bundle")
	}
	if len(proof.ProofPoints.A) == 0 || len(proof.ProofPoints.B) == 0 || len(proof.ProofPoints.C) == 0 {
		return "", fmt.Errorf("incomplete proof points")
	}
	sigBytes, err := base64.StdEncoding.DecodeString(userSignature)
	if err != nil {
		return "", fmt.Errorf("decode user signature: %w", err)
	}

	w := bcs.NewWriter()
	// inputs.proofPoints
	w.WriteStringSlice(proof.ProofPoints.A)
	w.WriteULEB128(uint64(len(proof.ProofPoints.B)))
	for _, row := range proof.ProofPoints.B {
		w.WriteStringSlice(row)
	}
	w.WriteStringSlice(proof.ProofPoints.C)
	// inputs.issBase64Details
	w.WriteString(proof.IssBase64Details.Value)
	w.WriteU8(proof.IssBase64Details.IndexMod4)
	// inputs.headerBase64 and inputs.addressSeed
	w.WriteString(proof.HeaderBase64)
	w.WriteString(addressSeed.String())
	// maxEpoch and userSignature
	w.WriteU64(maxEpoch)
	w.WriteBytes(sigBytes)

	out := append([]byte{AuthenticatorFlag}, w.Bytes()...)
	return base64.StdEncoding.EncodeToString(out), nil
}
