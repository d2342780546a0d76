package service

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"
	"go.vocdoni.io/dvote/log"

	"github.com/zkpoll/zkvote/storage"
	"github.com/zkpoll/zkvote/types"
)

func TestMain(m *testing.M) {
	log.Init(log.LogLevelDebug, "stdout", nil)
	os.Exit(m.Run())
}

type fakeBalances struct {
	calls atomic.Int64
}

func (f *fakeBalances) Balance(context.Context, string, string) (string, error) {
	f.calls.Add(1)
	return "1000000", nil
}

func TestBalanceMonitor(t *testing.T) {
	c := qt.New(t)

	store := storage.New(memdb.New())
	defer store.Close()
	var addr types.Address
	addr[31] = 0xee
	err := store.SaveAccount(&types.AccountData{
		Provider:    types.ProviderGoogle,
		UserAddress: addr,
		MaxEpoch:    102,
	})
	c.Assert(err, qt.IsNil)

	ledger := &fakeBalances{}
	bm := NewBalanceMonitor(ledger, store, 10*time.Millisecond)
	c.Assert(bm.Start(context.Background()), qt.IsNil)
	defer bm.Stop()

	// double start is refused
	c.Assert(bm.Start(context.Background()), qt.IsNotNil)

	// wait for at least one polling round
	deadline := time.Now().Add(2 * time.Second)
	for ledger.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Assert(ledger.calls.Load() > 0, qt.IsTrue)

	bm.Stop()
	// let any in-flight round drain, then verify polling has stopped
	time.Sleep(50 * time.Millisecond)
	settled := ledger.calls.Load()
	time.Sleep(50 * time.Millisecond)
	c.Assert(ledger.calls.Load(), qt.Equals, settled)
}
