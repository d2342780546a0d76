package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.vocdoni.io/dvote/log"

	"github.com/zkpoll/zkvote/types"
)

// proverTimeout bounds a proving request. Proof generation routinely takes
// several seconds, so this is much longer than ordinary HTTP timeouts.
const proverTimeout = 60 * time.Second

// ProofRequest is the payload the external proving service expects.
type ProofRequest struct {
	MaxEpoch                   uint64 `json:"maxEpoch"`
	JWTRandomness              string `json:"jwtRandomness"`
	ExtendedEphemeralPublicKey string `json:"extendedEphemeralPublicKey"`
	JWT                        string `json:"jwt"`
	Salt                       string `json:"salt"`
	KeyClaimName               string `json:"keyClaimName"`
}

// Prover requests a zero-knowledge proof binding an identity token, a salt
// and an ephemeral public key to an expiry epoch.
type Prover interface {
	Prove(ctx context.Context, req *ProofRequest) (*types.ZkProof, error)
}

// HTTPProver talks to an external proving service endpoint.
type HTTPProver struct {
	c        *http.Client
	endpoint string
}

// NewHTTPProver returns a Prover for the given proving service URL.
func NewHTTPProver(endpoint string) *HTTPProver {
	return &HTTPProver{
		c:        &http.Client{Timeout: proverTimeout},
		endpoint: endpoint,
	}
}

// Prove submits the proof request and decodes the proof bundle. This is the
// slow step of the login flow; callers surface a pending state while it
// runs.
func (p *HTTPProver) Prove(ctx context.Context, proofReq *ProofRequest) (*types.ZkProof, error) {
	body, err := json.Marshal(proofReq)
	if err != nil {
		return nil, fmt.Errorf("marshal proof request: %w", err)
	}
	log.Debugw("requesting zk proof", "endpoint", p.endpoint, "maxEpoch", proofReq.MaxEpoch)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create proof request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proving service request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("failed to close prover response body", "error", err.Error())
		}
	}()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("proving service status %d: %s", resp.StatusCode, data)
	}
	proof := &types.ZkProof{}
	if err := json.NewDecoder(resp.Body).Decode(proof); err != nil {
		return nil, fmt.Errorf("decode proof bundle: %w", err)
	}
	if len(proof.ProofPoints.A) == 0 {
		return nil, fmt.Errorf("proving service returned empty proof")
	}
	log.Infow("zk proof received", "took", time.Since(start).String())
	return proof, nil
}
