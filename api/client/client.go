// Package client is a typed HTTP client for the gateway API, used by tests
// and command line tooling.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.vocdoni.io/dvote/log"

	"github.com/zkpoll/zkvote/api"
	"github.com/zkpoll/zkvote/types"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = http.MethodGet
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = http.MethodPost

	errCodeNot200 = "API error"

	// DefaultRetries this enables Request() to handle the situation where the server connection fails
	DefaultRetries = 3
	// DefaultTimeout is the default timeout for the HTTP client
	DefaultTimeout = 10 * time.Second
)

// HTTPclient is the gateway API HTTP client.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New connects to the API host, checks it is alive and returns the handle.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}

	tr := &http.Transport{
		IdleConnTimeout:    DefaultTimeout,
		DisableCompression: false,
		WriteBufferSize:    1 * 1024 * 1024, // 1 MiB
		ReadBufferSize:     1 * 1024 * 1024, // 1 MiB
	}
	c := &HTTPclient{
		c:       &http.Client{Transport: tr, Timeout: DefaultTimeout},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	data, status, err := c.Request(HTTPGET, nil, api.PingEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return c, nil
}

// SetRetries configures the number of retries for the HTTP client.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = n
}

// SetTimeout configures the timeout for the HTTP client. The callback
// endpoint waits on the proving service, so callers raise it before logging
// in.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if tr, ok := c.c.Transport.(*http.Transport); ok {
		tr.ResponseHeaderTimeout = d
	}
}

// Login starts a login with the given provider and returns the redirect URL
// and nonce.
func (c *HTTPclient) Login(provider types.OpenIDProvider) (*LoginRedirect, error) {
	redirect := &LoginRedirect{}
	if err := c.request(HTTPPOST, nil, redirect, "auth", "login", string(provider)); err != nil {
		return nil, err
	}
	return redirect, nil
}

// Callback completes a pending login from a provider redirect fragment.
func (c *HTTPclient) Callback(fragment string) (*api.AccountSummary, error) {
	account := &api.AccountSummary{}
	req := &api.CallbackRequest{Fragment: fragment}
	if err := c.request(HTTPPOST, req, account, "auth", "callback"); err != nil {
		return nil, err
	}
	return account, nil
}

// Accounts lists the logged-in accounts.
func (c *HTTPclient) Accounts() ([]*api.AccountSummary, error) {
	accounts := []*api.AccountSummary{}
	if err := c.request(HTTPGET, nil, &accounts, "accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Logout wipes the gateway session store.
func (c *HTTPclient) Logout() error {
	return c.request(HTTPPOST, nil, nil, "logout")
}

// Vote casts a vote for a poll choice with the active account.
func (c *HTTPclient) Vote(pollID, choiceID types.Address) (*api.TransactionResult, error) {
	result := &api.TransactionResult{}
	req := &api.Vote{PollID: pollID, ChoiceID: choiceID}
	if err := c.request(HTTPPOST, req, result, "votes"); err != nil {
		return nil, err
	}
	return result, nil
}

// Balance returns the coin balance of an address.
func (c *HTTPclient) Balance(addr types.Address) (*api.Balance, error) {
	balance := &api.Balance{}
	if err := c.request(HTTPGET, nil, balance, "balance", addr.String()); err != nil {
		return nil, err
	}
	return balance, nil
}

// LoginRedirect mirrors the login endpoint response.
type LoginRedirect struct {
	URL   string `json:"url"`
	Nonce string `json:"nonce"`
}

// request performs a typed request, decoding a JSON response into out when
// out is not nil and the status is 200.
func (c *HTTPclient) request(method string, jsonBody, out any, urlPath ...string) error {
	data, status, err := c.Request(method, jsonBody, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Request performs a `method` type raw request to the endpoint specified in urlPath parameter.
// Method is either GET or POST. If POST, a JSON struct should be attached. Returns the response,
// the status code and an error.
func (c *HTTPclient) Request(method string, jsonBody any, urlPath ...string) ([]byte, int, error) {
	var (
		body []byte
		err  error
	)

	// Marshal the JSON body if provided.
	if jsonBody != nil {
		body, err = json.Marshal(jsonBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	// Parse the base host URL
	u, err := url.Parse(c.host.String())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse host URL: %w", err)
	}

	// Join path segments
	u.Path = path.Join(u.Path, path.Join(urlPath...))

	// Prepare headers
	headers := http.Header{}
	if jsonBody != nil {
		headers.Set("Content-Type", "application/json")
		headers.Set("Accept", "application/json")
	}

	// Log the request details, truncating body if large
	log.Debugw("http client request",
		"type", method,
		"url", u.String(),
		"body", func() string {
			if len(body) > 512 {
				return string(body[:512]) + "..."
			}
			return string(body)
		}(),
	)

	var resp *http.Response
	for i := 1; i <= c.retries; i++ {
		// Create a fresh request each attempt
		var reqBody io.ReadCloser
		if body != nil {
			reqBody = io.NopCloser(bytes.NewReader(body))
		}
		req, err := http.NewRequest(method, u.String(), reqBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header = headers

		resp, err = c.c.Do(req)
		if err != nil {
			log.Warnw("http request failed", "error", err.Error(), "attempt", i, "retries", c.retries)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		// Successfully got a response, break out of the retry loop
		break
	}

	if resp == nil {
		return nil, 0, fmt.Errorf("http request ultimately failed after %d retries", c.retries)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, resp.StatusCode, nil
}
