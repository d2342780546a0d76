// Package signer turns built transactions into ledger submissions signed
// with a logged-in account's ephemeral key and zero-knowledge proof. It is
// the only place where the ephemeral secret is used after login; the key
// never leaves the process, only signatures do.
package signer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/log"

	"github.com/zkpoll/zkvote/crypto/ephemeral"
	"github.com/zkpoll/zkvote/crypto/zklogin"
	"github.com/zkpoll/zkvote/ledger"
	"github.com/zkpoll/zkvote/types"
)

var (
	// ErrSessionExpired means the account's ephemeral key is no longer
	// valid: the current epoch has reached its expiry epoch. The boundary
	// counts as expired because validity cannot be guaranteed for the
	// remainder of the boundary epoch.
	ErrSessionExpired = errors.New("session expired, log in again")
	// ErrSignatureRejected wraps a ledger-side rejection of the composite
	// signature. The node's message is preserved verbatim.
	ErrSignatureRejected = errors.New("ledger rejected signature")
)

// Ledger is the node surface the signer needs. *ledger.Client satisfies it.
type Ledger interface {
	LatestEpoch(ctx context.Context) (uint64, error)
	ExecuteTransaction(ctx context.Context, txBytesB64, signatureB64 string) (*ledger.ExecutionResult, error)
}

// Signer submits transactions on behalf of a logged-in account.
type Signer struct {
	ledger Ledger
}

func New(l Ledger) *Signer {
	return &Signer{ledger: l}
}

// AssertValid checks that the account's session is still usable. It always
// performs a fresh epoch fetch so a decision is never made on stale state.
func (s *Signer) AssertValid(ctx context.Context, account *types.AccountData) error {
	current, err := s.ledger.LatestEpoch(ctx)
	if err != nil {
		return fmt.Errorf("cannot check session validity: %w", err)
	}
	if current >= account.MaxEpoch {
		return fmt.Errorf("%w: current epoch %d, expiry epoch %d",
			ErrSessionExpired, current, account.MaxEpoch)
	}
	return nil
}

// Execute signs tx with the account's ephemeral key, assembles the composite
// zklogin signature and submits the transaction to the ledger. The session
// guard runs first, so an expired account is rejected before any signing
// work. Submission is attempted exactly once; a node-side rejection is
// surfaced as ErrSignatureRejected with the node's message intact and it is
// the caller's decision whether a transport failure is worth retrying.
func (s *Signer) Execute(ctx context.Context, tx *ledger.Transaction, account *types.AccountData) (*ledger.ExecutionResult, error) {
	if err := s.AssertValid(ctx, account); err != nil {
		return nil, err
	}
	tx.SetSender(account.UserAddress)

	keypair, err := ephemeral.FromSecretKey(account.EphemeralPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("cannot recover ephemeral key: %w", err)
	}
	txBytes, err := tx.Build()
	if err != nil {
		return nil, fmt.Errorf("cannot build transaction: %w", err)
	}
	userSignature := keypair.SerializedSignature(ledger.IntentDigest(txBytes))

	seed, err := zklogin.AddressSeed(account.UserSalt, "sub", account.Sub, account.Aud)
	if err != nil {
		return nil, fmt.Errorf("cannot compute address seed: %w", err)
	}
	signature, err := zklogin.CompositeSignature(account.ZkProofs, seed, account.MaxEpoch, userSignature)
	if err != nil {
		return nil, fmt.Errorf("cannot assemble composite signature: %w", err)
	}

	log.Debugw("submitting transaction",
		"sender", account.UserAddress.String(),
		"maxEpoch", account.MaxEpoch)
	result, err := s.ledger.ExecuteTransaction(ctx,
		base64.StdEncoding.EncodeToString(txBytes), signature)
	if err != nil {
		var rpcErr *ledger.RPCError
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("%w: %s", ErrSignatureRejected, rpcErr.Message)
		}
		return nil, err
	}
	log.Infow("transaction executed", "digest", result.Digest)
	return result, nil
}
