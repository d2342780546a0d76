package signer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/log"

	"github.com/zkpoll/zkvote/crypto/ephemeral"
	"github.com/zkpoll/zkvote/crypto/zklogin"
	"github.com/zkpoll/zkvote/ledger"
	"github.com/zkpoll/zkvote/types"
)

func TestMain(m *testing.M) {
	log.Init(log.LogLevelDebug, "stdout", nil)
	os.Exit(m.Run())
}

type fakeLedger struct {
	epoch    uint64
	epochErr error
	execErr  error

	epochCalls int
	lastTx     string
	lastSig    string
}

func (f *fakeLedger) LatestEpoch(context.Context) (uint64, error) {
	f.epochCalls++
	return f.epoch, f.epochErr
}

func (f *fakeLedger) ExecuteTransaction(_ context.Context, txB64, sigB64 string) (*ledger.ExecutionResult, error) {
	f.lastTx = txB64
	f.lastSig = sigB64
	if f.execErr != nil {
		return nil, f.execErr
	}
	return &ledger.ExecutionResult{Digest: "9oZWo1h7AqJ3mE1f"}, nil
}

func testAccount(c *qt.C, maxEpoch uint64) *types.AccountData {
	keypair, err := ephemeral.Generate()
	c.Assert(err, qt.IsNil)
	addr, err := zklogin.AddressFromClaims("https://accounts.google.com", "u1", "app1", "42")
	c.Assert(err, qt.IsNil)
	return &types.AccountData{
		Provider:    types.ProviderGoogle,
		UserAddress: addr,
		ZkProofs: &types.ZkProof{
			ProofPoints: types.ProofPoints{
				A: []string{"1", "2", "1"},
				B: [][]string{{"3", "4"}, {"5", "6"}, {"1", "0"}},
				C: []string{"7", "8", "1"},
			},
			IssBase64Details: types.ClaimDetail{Value: "wiaXNzIjoi", IndexMod4: 2},
			HeaderBase64:     "eyJhbGciOiJSUzI1NiJ9",
		},
		EphemeralPrivateKey: keypair.SecretKey(),
		UserSalt:            "42",
		Sub:                 "u1",
		Aud:                 "app1",
		Iss:                 "https://accounts.google.com",
		MaxEpoch:            maxEpoch,
	}
}

func testTransaction(c *qt.C) *ledger.Transaction {
	var pkg types.Address
	pkg[31] = 0x02
	tx := ledger.NewTransaction()
	tx.MoveCall(pkg, "voting", "cast_vote", ledger.PureU64(7))
	return tx
}

func TestAssertValid(t *testing.T) {
	c := qt.New(t)
	node := &fakeLedger{epoch: 100}
	s := New(node)
	account := testAccount(c, 102)

	c.Assert(s.AssertValid(context.Background(), account), qt.IsNil)

	// boundary counts as expired
	node.epoch = 102
	err := s.AssertValid(context.Background(), account)
	c.Assert(errors.Is(err, ErrSessionExpired), qt.IsTrue)

	node.epoch = 103
	err = s.AssertValid(context.Background(), account)
	c.Assert(errors.Is(err, ErrSessionExpired), qt.IsTrue)
}

func TestAssertValidFetchesFreshEpoch(t *testing.T) {
	c := qt.New(t)
	node := &fakeLedger{epoch: 100}
	s := New(node)
	account := testAccount(c, 102)

	c.Assert(s.AssertValid(context.Background(), account), qt.IsNil)
	c.Assert(s.AssertValid(context.Background(), account), qt.IsNil)
	c.Assert(node.epochCalls, qt.Equals, 2)
}

func TestAssertValidEpochFailure(t *testing.T) {
	c := qt.New(t)
	node := &fakeLedger{epochErr: fmt.Errorf("node down")}
	s := New(node)

	err := s.AssertValid(context.Background(), testAccount(c, 102))
	c.Assert(err, qt.IsNotNil)
	c.Assert(errors.Is(err, ErrSessionExpired), qt.IsFalse)
}

func TestExecute(t *testing.T) {
	c := qt.New(t)
	node := &fakeLedger{epoch: 100}
	s := New(node)
	account := testAccount(c, 102)
	tx := testTransaction(c)

	result, err := s.Execute(context.Background(), tx, account)
	c.Assert(err, qt.IsNil)
	c.Assert(result.Digest, qt.Not(qt.Equals), "")

	// the sender is always the account's derived address
	c.Assert(tx.Sender(), qt.Equals, account.UserAddress)

	// submitted tx bytes are the BCS build of the transaction
	txBytes, err := tx.Build()
	c.Assert(err, qt.IsNil)
	c.Assert(node.lastTx, qt.Equals, base64.StdEncoding.EncodeToString(txBytes))

	// composite signature carries the zklogin authenticator flag
	sig, err := base64.StdEncoding.DecodeString(node.lastSig)
	c.Assert(err, qt.IsNil)
	c.Assert(sig[0], qt.Equals, uint8(0x05))
}

func TestExecuteExpiredBeforeSigning(t *testing.T) {
	c := qt.New(t)
	node := &fakeLedger{epoch: 102}
	s := New(node)
	account := testAccount(c, 102)

	_, err := s.Execute(context.Background(), testTransaction(c), account)
	c.Assert(errors.Is(err, ErrSessionExpired), qt.IsTrue)

	// expired guard fires before any build or submission happens
	c.Assert(node.lastTx, qt.Equals, "")
	c.Assert(node.lastSig, qt.Equals, "")
}

func TestExecuteRejectedSignature(t *testing.T) {
	c := qt.New(t)
	node := &fakeLedger{
		epoch:   100,
		execErr: &ledger.RPCError{Code: -32002, Message: "Invalid user signature: ZKLogin signature mismatch"},
	}
	s := New(node)

	_, err := s.Execute(context.Background(), testTransaction(c), testAccount(c, 102))
	c.Assert(errors.Is(err, ErrSignatureRejected), qt.IsTrue)
	// the node's message survives verbatim for the caller to inspect
	c.Assert(err.Error(), qt.Contains, "ZKLogin signature mismatch")
}

func TestExecuteTransportFailurePassesThrough(t *testing.T) {
	c := qt.New(t)
	transportErr := fmt.Errorf("connection refused")
	node := &fakeLedger{epoch: 100, execErr: transportErr}
	s := New(node)

	_, err := s.Execute(context.Background(), testTransaction(c), testAccount(c, 102))
	c.Assert(errors.Is(err, transportErr), qt.IsTrue)
	c.Assert(errors.Is(err, ErrSignatureRejected), qt.IsFalse)
}

func TestExecuteBadEphemeralKey(t *testing.T) {
	c := qt.New(t)
	node := &fakeLedger{epoch: 100}
	s := New(node)
	account := testAccount(c, 102)
	account.EphemeralPrivateKey = "not-a-key"

	_, err := s.Execute(context.Background(), testTransaction(c), account)
	c.Assert(err, qt.IsNotNil)
	c.Assert(node.lastTx, qt.Equals, "")
}
