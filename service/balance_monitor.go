package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.vocdoni.io/dvote/log"

	"github.com/zkpoll/zkvote/storage"
)

// BalanceService defines the ledger surface the balance monitor needs.
type BalanceService interface {
	Balance(ctx context.Context, owner, coinType string) (string, error)
}

// BalanceMonitor periodically polls the ledger balance of every logged-in
// account. It is read-only: it shares no epoch or session state with the
// signing path.
type BalanceMonitor struct {
	ledger   BalanceService
	storage  *storage.Storage
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
}

// NewBalanceMonitor creates a new BalanceMonitor service.
func NewBalanceMonitor(ledger BalanceService, stg *storage.Storage, interval time.Duration) *BalanceMonitor {
	return &BalanceMonitor{
		ledger:   ledger,
		storage:  stg,
		interval: interval,
	}
}

// Start begins polling balances. It returns an error if the service is
// already running.
func (bm *BalanceMonitor) Start(ctx context.Context) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	bm.cancel = cancel

	go bm.monitorBalances(ctx)
	return nil
}

// Stop halts the monitoring service.
func (bm *BalanceMonitor) Stop() {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.cancel != nil {
		bm.cancel()
		bm.cancel = nil
	}
}

func (bm *BalanceMonitor) monitorBalances(ctx context.Context) {
	ticker := time.NewTicker(bm.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			accounts, err := bm.storage.Accounts()
			if err != nil {
				log.Warnw("failed to load accounts", "error", err.Error())
				continue
			}
			for i := range accounts {
				addr := accounts[i].UserAddress
				balance, err := bm.ledger.Balance(ctx, addr.String(), "")
				if err != nil {
					log.Warnw("failed to fetch balance",
						"address", addr.String(), "error", err.Error())
					continue
				}
				log.Debugw("account balance", "address", addr.String(), "balance", balance)
			}
		}
	}
}
