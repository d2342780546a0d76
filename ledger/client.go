// Package ledger implements the JSON-RPC client for the fullnode the
// gateway submits transactions to, plus the programmable transaction
// builder and intent signing helpers.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.vocdoni.io/dvote/log"
)

const (
	// DefaultRetries is the number of attempts for transient transport
	// failures. JSON-RPC level errors are never retried.
	DefaultRetries = 3
	// DefaultTimeout is the default timeout for the HTTP client.
	DefaultTimeout = 10 * time.Second

	// SuiCoinType is the canonical coin type queried for balances.
	SuiCoinType = "0x2::sui::SUI"

	methodSystemState = "suix_getLatestSuiSystemState"
	methodGetBalance  = "suix_getBalance"
	methodGetObject   = "sui_getObject"
	methodExecuteTx   = "sui_executeTransactionBlock"
)

// ErrEpochFetch marks a failed current-epoch query. It is retryable; a login
// or a signing guard check cannot proceed without a fresh epoch.
var ErrEpochFetch = errors.New("could not fetch current epoch")

// RPCError is a JSON-RPC level error returned by the fullnode, surfaced
// verbatim to the caller. A rejected signature arrives through this type and
// must not be retried.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger rpc error %d: %s", e.Code, e.Message)
}

// Client is a stateless HTTP client for a fullnode endpoint. It is
// constructed once at startup and injected into every component that talks
// to the ledger; there is no shared global instance.
type Client struct {
	c        *http.Client
	endpoint string
	retries  int
}

// New returns a Client for the given fullnode endpoint.
func New(endpoint string) *Client {
	return &Client{
		c:        &http.Client{Timeout: DefaultTimeout},
		endpoint: endpoint,
		retries:  DefaultRetries,
	}
}

// SetRetries configures the number of transport retries.
func (c *Client) SetRetries(n int) {
	c.retries = n
}

// SetTimeout configures the HTTP client timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.c.Timeout = d
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call performs a JSON-RPC request, retrying transport failures only.
func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	return c.callRetry(ctx, method, params, result, c.retries)
}

func (c *Client) callRetry(ctx context.Context, method string, params []any, result any, retries int) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}
	log.Debugw("ledger rpc request", "method", method, "endpoint", c.endpoint)

	var resp *http.Response
	for i := 1; i <= retries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create rpc request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.c.Do(req)
		if err == nil {
			break
		}
		log.Warnw("ledger rpc request failed", "method", method, "attempt", i, "error", err.Error())
		if i == retries {
			return fmt.Errorf("rpc request failed after %d attempts: %w", retries, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("failed to close rpc response body", "error", err.Error())
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read rpc response: %w", err)
	}
	var decoded rpcResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if result != nil {
		if err := json.Unmarshal(decoded.Result, result); err != nil {
			return fmt.Errorf("decode rpc result: %w", err)
		}
	}
	return nil
}

// LatestEpoch queries the system state for the current epoch number. Every
// caller gets its own fresh fetch; results are never cached, so a guard
// check cannot act on a stale epoch.
func (c *Client) LatestEpoch(ctx context.Context) (uint64, error) {
	var state struct {
		Epoch string `json:"epoch"`
	}
	if err := c.call(ctx, methodSystemState, nil, &state); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEpochFetch, err)
	}
	epoch, err := strconv.ParseUint(state.Epoch, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable epoch %q", ErrEpochFetch, state.Epoch)
	}
	return epoch, nil
}

// Balance returns the total balance string for an owner address and coin
// type. Pass an empty coinType for the default coin.
func (c *Client) Balance(ctx context.Context, owner, coinType string) (string, error) {
	if coinType == "" {
		coinType = SuiCoinType
	}
	var balance struct {
		TotalBalance string `json:"totalBalance"`
	}
	if err := c.call(ctx, methodGetBalance, []any{owner, coinType}, &balance); err != nil {
		return "", fmt.Errorf("fetch balance: %w", err)
	}
	return balance.TotalBalance, nil
}

// Object fetches an object with its content from the ledger.
func (c *Client) Object(ctx context.Context, id string) (json.RawMessage, error) {
	var obj struct {
		Data json.RawMessage `json:"data"`
	}
	options := map[string]bool{"showContent": true, "showOwner": true}
	if err := c.call(ctx, methodGetObject, []any{id, options}, &obj); err != nil {
		return nil, fmt.Errorf("fetch object %s: %w", id, err)
	}
	return obj.Data, nil
}

// ExecutionResult is the outcome of a submitted transaction.
type ExecutionResult struct {
	Digest        string          `json:"digest"`
	Effects       json.RawMessage `json:"effects,omitempty"`
	Events        json.RawMessage `json:"events,omitempty"`
	ObjectChanges json.RawMessage `json:"objectChanges,omitempty"`
}

// ExecuteTransaction submits serialized transaction bytes with their
// signature and returns the digest and effects. A *RPCError return means
// the ledger rejected the transaction; it is final and must not be retried.
// Unlike the read calls, transport failures are not retried either.
func (c *Client) ExecuteTransaction(ctx context.Context, txBytesB64, signatureB64 string) (*ExecutionResult, error) {
	options := map[string]bool{
		"showEffects":       true,
		"showEvents":        true,
		"showObjectChanges": true,
	}
	// Single attempt: whether a transport failure is worth resubmitting
	// is the caller's decision, never the client's.
	result := &ExecutionResult{}
	err := c.callRetry(ctx, methodExecuteTx,
		[]any{txBytesB64, []string{signatureB64}, options, "WaitForLocalExecution"},
		result, 1)
	if err != nil {
		return nil, err
	}
	log.Infow("transaction executed", "digest", result.Digest)
	return result, nil
}
