// Package memory is an in-process account store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"spendsync/internal/core"
	"spendsync/internal/engine"
)

// Store keeps accounts in a map. Every load and save copies the account so
// callers never share state with the store.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*core.Account
}

var _ engine.Store = (*Store)(nil)

func New() *Store {
	return &Store{accounts: make(map[string]*core.Account)}
}

func (s *Store) LoadAccount(_ context.Context, phone string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[phone]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return acct.Clone(), nil
}

func (s *Store) SaveAccount(_ context.Context, acct *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acct.Phone] = acct.Clone()
	return nil
}

func (s *Store) FindPhoneByItemID(_ context.Context, itemID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if itemID == "" {
		return "", engine.ErrNotFound
	}
	for phone, acct := range s.accounts {
		if acct.ItemID == itemID {
			return phone, nil
		}
	}
	return "", engine.ErrNotFound
}

func (s *Store) ListPhones(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	phones := make([]string, 0, len(s.accounts))
	for phone := range s.accounts {
		phones = append(phones, phone)
	}
	sort.Strings(phones)
	return phones, nil
}

func (s *Store) DeleteAccount(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[phone]; !ok {
		return engine.ErrNotFound
	}
	delete(s.accounts, phone)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
