package auth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"go.vocdoni.io/dvote/log"
)

// SaltResolver resolves the per-user salt that separates the on-chain
// address from the OpenID identity. The implementation is chosen once at
// configuration time.
type SaltResolver interface {
	Salt(ctx context.Context, token *IdentityToken) (string, error)
}

// RemoteSaltResolver asks an external salt service, forwarding the identity
// token. This is the production path.
type RemoteSaltResolver struct {
	c        *http.Client
	endpoint string
}

// NewRemoteSaltResolver returns a resolver for the given salt service URL.
func NewRemoteSaltResolver(endpoint string) *RemoteSaltResolver {
	return &RemoteSaltResolver{
		c:        &http.Client{Timeout: 10 * time.Second},
		endpoint: endpoint,
	}
}

// Salt POSTs the raw token and returns the salt the service derived for
// this user.
func (r *RemoteSaltResolver) Salt(ctx context.Context, token *IdentityToken) (string, error) {
	body, err := json.Marshal(map[string]string{"jwt": token.Raw})
	if err != nil {
		return "", fmt.Errorf("marshal salt request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create salt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.c.Do(req)
	if err != nil {
		return "", fmt.Errorf("salt service request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("failed to close salt response body", "error", err.Error())
		}
	}()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("salt service status %d: %s", resp.StatusCode, data)
	}
	var decoded struct {
		Salt string `json:"salt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode salt response: %w", err)
	}
	if decoded.Salt == "" {
		return "", fmt.Errorf("salt service returned empty salt")
	}
	return decoded.Salt, nil
}

// DeterministicDemoSaltResolver derives the salt from the issuer and
// subject claims. NOT production safe: the same subject always yields the
// same salt, so the identity-to-address unlinkability that a real salt
// service provides is lost. Only for demo deployments without a salt
// service.
type DeterministicDemoSaltResolver struct{}

// Salt returns a salt derived from sha256 over the issuer-namespaced
// subject, truncated to 16 bytes so it fits the proving field.
func (DeterministicDemoSaltResolver) Salt(_ context.Context, token *IdentityToken) (string, error) {
	sum := sha256.Sum256([]byte("zkvote-demo-salt:" + token.Iss + ":" + token.Sub))
	return new(big.Int).SetBytes(sum[:16]).String(), nil
}
