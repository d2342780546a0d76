// Package auth implements the zkLogin session lifecycle: it turns a
// federated OpenID login into a time-bounded signing identity. BeginLogin
// prepares the ephemeral key material and the provider redirect; then
// CompleteLogin consumes the returned identity token, resolves the user
// salt, obtains a zero-knowledge proof from the external prover and persists
// the resulting account.
package auth

import (
	"context"
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/log"

	"github.com/zkpoll/zkvote/crypto/ephemeral"
	"github.com/zkpoll/zkvote/crypto/zklogin"
	"github.com/zkpoll/zkvote/ledger"
	"github.com/zkpoll/zkvote/storage"
	"github.com/zkpoll/zkvote/types"
)

// Login flow failure kinds. Every kind aborts the attempt and leaves the
// user unauthenticated; none of them is retried automatically.
var (
	// ErrUnknownProvider means the requested provider is not configured.
	ErrUnknownProvider = errors.New("unknown identity provider")
	// ErrNoToken means the callback carried no identity token; not every
	// page load is a callback, so callers treat this as a no-op.
	ErrNoToken = errors.New("no identity token in callback")
	// ErrMalformedToken means the token is missing required claims.
	ErrMalformedToken = errors.New("malformed identity token")
	// ErrNonceMismatch means the token was not issued for the pending
	// login's nonce and cannot be accepted.
	ErrNonceMismatch = errors.New("identity token nonce mismatch")
	// ErrMissingSetupData means there is no pending login for this
	// callback: a stale, replayed or foreign redirect.
	ErrMissingSetupData = errors.New("no pending login")
	// ErrDuplicateAccount means an account for this identity is already
	// stored; the caller decides whether to surface or ignore it.
	ErrDuplicateAccount = errors.New("already logged in with this account")
	// ErrSaltService wraps salt service failures.
	ErrSaltService = errors.New("salt service failed")
	// ErrProofService wraps proving service failures.
	ErrProofService = errors.New("proving service failed")
)

// EpochSource provides the current ledger epoch. *ledger.Client implements
// it; tests inject fakes.
type EpochSource interface {
	LatestEpoch(ctx context.Context) (uint64, error)
}

// Flow orchestrates the login lifecycle. All collaborators are injected at
// construction; Flow itself keeps no mutable state outside the store.
type Flow struct {
	epochs      EpochSource
	store       *storage.Storage
	providers   Providers
	salts       SaltResolver
	prover      Prover
	redirectURI string
	epochOffset uint64
}

// FlowConfig carries the Flow collaborators and policy.
type FlowConfig struct {
	Epochs      EpochSource
	Store       *storage.Storage
	Providers   Providers
	Salts       SaltResolver
	Prover      Prover
	RedirectURI string
	// EpochOffset is the session validity window in epochs; zero selects
	// ledger.DefaultEpochOffset.
	EpochOffset uint64
}

// NewFlow validates the configuration and returns a Flow.
func NewFlow(cfg FlowConfig) (*Flow, error) {
	if cfg.Epochs == nil {
		return nil, fmt.Errorf("missing epoch source")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("missing session store")
	}
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no identity providers configured")
	}
	if cfg.Salts == nil {
		return nil, fmt.Errorf("missing salt resolver")
	}
	if cfg.Prover == nil {
		return nil, fmt.Errorf("missing prover")
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("missing redirect URI")
	}
	offset := cfg.EpochOffset
	if offset == 0 {
		offset = ledger.DefaultEpochOffset
	}
	return &Flow{
		epochs:      cfg.Epochs,
		store:       cfg.Store,
		providers:   cfg.Providers,
		salts:       cfg.Salts,
		prover:      cfg.Prover,
		redirectURI: cfg.RedirectURI,
		epochOffset: offset,
	}, nil
}

// LoginRedirect is the outcome of BeginLogin: where to send the browser.
type LoginRedirect struct {
	URL   string `json:"url"`
	Nonce string `json:"nonce"`
}

// BeginLogin starts a login attempt with the given provider: it computes
// the session expiry epoch, generates fresh randomness and an ephemeral
// keypair, persists them as the pending setup and returns the authorization
// URL carrying the derived nonce. If the epoch fetch fails nothing is
// persisted.
func (f *Flow) BeginLogin(ctx context.Context, provider types.OpenIDProvider) (*LoginRedirect, error) {
	providerCfg, ok := f.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	current, err := f.epochs.LatestEpoch(ctx)
	if err != nil {
		return nil, err
	}
	maxEpoch := ledger.ExpiryEpoch(current, f.epochOffset)

	randomness, err := zklogin.GenerateRandomness()
	if err != nil {
		return nil, err
	}
	keypair, err := ephemeral.Generate()
	if err != nil {
		return nil, err
	}
	nonce, err := zklogin.Nonce(keypair.FlaggedPublicKey(), maxEpoch, randomness)
	if err != nil {
		return nil, err
	}

	if err := f.store.SaveSetup(&types.SetupData{
		Provider:            provider,
		MaxEpoch:            maxEpoch,
		Randomness:          randomness,
		EphemeralPrivateKey: keypair.SecretKey(),
	}); err != nil {
		return nil, fmt.Errorf("persist setup data: %w", err)
	}

	authURL, err := providerCfg.authorizationURL(f.redirectURI, nonce)
	if err != nil {
		return nil, err
	}
	log.Infow("login started",
		"provider", string(provider),
		"currentEpoch", current,
		"maxEpoch", maxEpoch,
	)
	return &LoginRedirect{URL: authURL, Nonce: nonce}, nil
}

// CompleteLogin finishes a login attempt from the OAuth callback fragment.
// The pending setup is consumed before any network call, so a replayed
// callback finds nothing and fails with ErrMissingSetupData instead of
// creating a second account. On any failure no account is persisted.
func (f *Flow) CompleteLogin(ctx context.Context, fragment string) (*types.AccountData, error) {
	rawToken := tokenFromFragment(fragment)
	if rawToken == "" {
		return nil, ErrNoToken
	}
	token, err := decodeIdentityToken(rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	setup, err := f.store.ConsumeSetup()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrMissingSetupData
		}
		return nil, err
	}

	keypair, err := ephemeral.FromSecretKey(setup.EphemeralPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("recover ephemeral keypair: %w", err)
	}

	// The token must carry the nonce this session's setup was bound to.
	// A token without a nonce claim never satisfies the binding.
	expectedNonce, err := zklogin.Nonce(keypair.FlaggedPublicKey(), setup.MaxEpoch, setup.Randomness)
	if err != nil {
		return nil, err
	}
	if token.Nonce != expectedNonce {
		return nil, ErrNonceMismatch
	}

	salt, err := f.salts.Salt(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSaltService, err)
	}

	userAddr, err := zklogin.AddressFromClaims(token.Iss, token.Sub, token.Aud, salt)
	if err != nil {
		return nil, err
	}
	exists, err := f.store.HasAccount(userAddr)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Warnw("duplicate login attempt",
			"provider", string(setup.Provider),
			"address", userAddr.String(),
		)
		return nil, ErrDuplicateAccount
	}

	proof, err := f.prover.Prove(ctx, &ProofRequest{
		MaxEpoch:                   setup.MaxEpoch,
		JWTRandomness:              setup.Randomness,
		ExtendedEphemeralPublicKey: zklogin.ExtendedPublicKey(keypair.FlaggedPublicKey()),
		JWT:                        token.Raw,
		Salt:                       salt,
		KeyClaimName:               "sub",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofService, err)
	}

	account := &types.AccountData{
		Provider:            setup.Provider,
		UserAddress:         userAddr,
		ZkProofs:            proof,
		EphemeralPrivateKey: setup.EphemeralPrivateKey,
		UserSalt:            salt,
		Sub:                 token.Sub,
		Aud:                 token.Aud,
		Iss:                 token.Iss,
		MaxEpoch:            setup.MaxEpoch,
	}
	if err := f.store.SaveAccount(account); err != nil {
		return nil, fmt.Errorf("persist account: %w", err)
	}
	log.Infow("login completed",
		"provider", string(account.Provider),
		"address", account.UserAddress.String(),
		"maxEpoch", account.MaxEpoch,
	)
	return account, nil
}

// Logout wipes every stored session artifact.
func (f *Flow) Logout() error {
	return f.store.Clear()
}
