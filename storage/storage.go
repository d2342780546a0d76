// Package storage persists the two artifacts of the login session lifecycle
// in a prefixed key-value store:
//   - 's/' the single transient setup slot written when a login begins and
//     consumed exactly once by the OAuth callback
//   - 'a/' the list of completed account records, newest first
//
// The store is injected (any db.Database works), so tests run against an
// in-memory database and production runs on pebble.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/zkpoll/zkvote/types"
)

var (
	setupPrefix   = []byte("s/")
	accountPrefix = []byte("a/")

	setupKey    = []byte("pending")
	accountsKey = []byte("list")
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = fmt.Errorf("not found")

// Storage wraps the session database.
type Storage struct {
	db db.Database
	mu sync.Mutex
}

// New creates a new Storage instance over the given database.
func New(database db.Database) *Storage {
	return &Storage{db: database}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	s.db.Close()
}

// SaveSetup writes the pending login setup, replacing any previous one. A
// replaced setup belonged to an abandoned login attempt.
func (s *Storage) SaveSetup(setup *types.SetupData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := encodeArtifact(setup)
	if err != nil {
		return fmt.Errorf("marshal setup data: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), setupPrefix)
	if err := wTx.Set(setupKey, data); err != nil {
		wTx.Discard()
		return fmt.Errorf("store setup data: %w", err)
	}
	return wTx.Commit()
}

// ConsumeSetup loads and deletes the pending setup in one step. The second
// call for the same login returns ErrNotFound; this is what makes a
// replayed callback a no-op.
func (s *Storage) ConsumeSetup() (*types.SetupData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rTx := prefixeddb.NewPrefixedReader(s.db, setupPrefix)
	data, err := rTx.Get(setupKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read setup data: %w", err)
	}
	setup := &types.SetupData{}
	if err := decodeArtifact(data, setup); err != nil {
		return nil, fmt.Errorf("unmarshal setup data: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), setupPrefix)
	if err := wTx.Delete(setupKey); err != nil {
		wTx.Discard()
		return nil, fmt.Errorf("delete setup data: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return nil, err
	}
	return setup, nil
}

// SaveAccount prepends the account to the stored list, making it the active
// account.
func (s *Storage) SaveAccount(account *types.AccountData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts, err := s.accounts()
	if err != nil {
		return err
	}
	accounts = append([]types.AccountData{*account}, accounts...)
	data, err := encodeArtifact(accounts)
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), accountPrefix)
	if err := wTx.Set(accountsKey, data); err != nil {
		wTx.Discard()
		return fmt.Errorf("store accounts: %w", err)
	}
	return wTx.Commit()
}

// Accounts returns the stored account list, newest first. A missing list is
// not an error, it is an empty slice.
func (s *Storage) Accounts() ([]types.AccountData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts()
}

func (s *Storage) accounts() ([]types.AccountData, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, accountPrefix)
	data, err := rTx.Get(accountsKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return []types.AccountData{}, nil
		}
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	var accounts []types.AccountData
	if err := decodeArtifact(data, &accounts); err != nil {
		return nil, fmt.Errorf("unmarshal accounts: %w", err)
	}
	return accounts, nil
}

// ActiveAccount returns the most recent account or ErrNotFound.
func (s *Storage) ActiveAccount() (*types.AccountData, error) {
	accounts, err := s.Accounts()
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNotFound
	}
	return &accounts[0], nil
}

// HasAccount reports whether an account with the given address is stored.
func (s *Storage) HasAccount(addr types.Address) (bool, error) {
	accounts, err := s.Accounts()
	if err != nil {
		return false, err
	}
	for _, a := range accounts {
		if a.UserAddress == addr {
			return true, nil
		}
	}
	return false, nil
}

// Clear wipes both the setup slot and the account list. Used by logout.
func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, target := range []struct {
		prefix []byte
		key    []byte
	}{
		{setupPrefix, setupKey},
		{accountPrefix, accountsKey},
	} {
		wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), target.prefix)
		if err := wTx.Delete(target.key); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
			wTx.Discard()
			return fmt.Errorf("clear %s: %w", target.prefix, err)
		}
		if err := wTx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
