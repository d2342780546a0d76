package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/log"
)

func TestMain(m *testing.M) {
	log.Init(log.LogLevelDebug, "stdout", nil)
	os.Exit(m.Run())
}

// fakeNode serves canned JSON-RPC responses keyed by method name.
func fakeNode(t *testing.T, responses map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode rpc request: %v", err)
		}
		resp, ok := responses[req.Method]
		if !ok {
			t.Fatalf("unexpected rpc method %q", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  resp,
		}); err != nil {
			t.Fatalf("encode rpc response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLatestEpoch(t *testing.T) {
	c := qt.New(t)

	srv := fakeNode(t, map[string]any{
		methodSystemState: map[string]string{"epoch": "100"},
	})
	client := New(srv.URL)
	epoch, err := client.LatestEpoch(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(epoch, qt.Equals, uint64(100))
}

func TestLatestEpochUnreachable(t *testing.T) {
	c := qt.New(t)

	client := New("http://127.0.0.1:1")
	client.SetRetries(1)
	_, err := client.LatestEpoch(context.Background())
	c.Assert(errors.Is(err, ErrEpochFetch), qt.IsTrue)
}

func TestLatestEpochUnparseable(t *testing.T) {
	c := qt.New(t)

	srv := fakeNode(t, map[string]any{
		methodSystemState: map[string]string{"epoch": "not-a-number"},
	})
	client := New(srv.URL)
	_, err := client.LatestEpoch(context.Background())
	c.Assert(errors.Is(err, ErrEpochFetch), qt.IsTrue)
}

func TestBalance(t *testing.T) {
	c := qt.New(t)

	srv := fakeNode(t, map[string]any{
		methodGetBalance: map[string]any{"totalBalance": "5000000000"},
	})
	client := New(srv.URL)
	balance, err := client.Balance(context.Background(), "0xabc", "")
	c.Assert(err, qt.IsNil)
	c.Assert(balance, qt.Equals, "5000000000")
}

func TestExecuteTransaction(t *testing.T) {
	c := qt.New(t)

	srv := fakeNode(t, map[string]any{
		methodExecuteTx: map[string]any{
			"digest":  "9jK2v",
			"effects": map[string]any{"status": map[string]string{"status": "success"}},
		},
	})
	client := New(srv.URL)
	res, err := client.ExecuteTransaction(context.Background(), "dHg=", "c2ln")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Digest, qt.Equals, "9jK2v")
	c.Assert(string(res.Effects), qt.Contains, "success")
}

// flakyNode drops the first n connections mid-request, then serves the
// canned responses.
func flakyNode(t *testing.T, dropFirst int32, responses map[string]any, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	inner := fakeNode(t, responses)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= dropFirst {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Fatalf("hijack connection: %v", err)
			}
			if err := conn.Close(); err != nil {
				t.Fatalf("drop connection: %v", err)
			}
			return
		}
		inner.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestReadCallRetriesTransportFailure(t *testing.T) {
	c := qt.New(t)

	var calls atomic.Int32
	srv := flakyNode(t, 1, map[string]any{
		methodSystemState: map[string]string{"epoch": "100"},
	}, &calls)
	client := New(srv.URL)
	epoch, err := client.LatestEpoch(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(epoch, qt.Equals, uint64(100))
	c.Assert(calls.Load(), qt.Equals, int32(2))
}

func TestExecuteTransactionNoTransportRetry(t *testing.T) {
	c := qt.New(t)

	var calls atomic.Int32
	srv := flakyNode(t, 10, nil, &calls)
	client := New(srv.URL)
	_, err := client.ExecuteTransaction(context.Background(), "AAAA", "BQAA")
	c.Assert(err, qt.IsNotNil)
	var rpcErr *RPCError
	c.Assert(errors.As(err, &rpcErr), qt.IsFalse)
	c.Assert(calls.Load(), qt.Equals, int32(1))
}

func TestRPCErrorSurfacedVerbatim(t *testing.T) {
	c := qt.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"Invalid user signature: ZKLogin signature mismatch"}}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.ExecuteTransaction(context.Background(), "dHg=", "c2ln")
	c.Assert(err, qt.IsNotNil)

	var rpcErr *RPCError
	c.Assert(errors.As(err, &rpcErr), qt.IsTrue)
	c.Assert(rpcErr.Message, qt.Contains, "ZKLogin signature mismatch")
}
