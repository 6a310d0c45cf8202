package credstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation used for tests and
// single-process development setups. Contents do not survive a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[credKey]*Credential
}

type credKey struct {
	UserID   string
	Provider string
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: make(map[credKey]*Credential),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, cred *Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *cred
	stored.UpdatedAt = time.Now()
	s.creds[credKey{UserID: cred.UserID, Provider: cred.Provider}] = &stored
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, userID, provider string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[credKey{UserID: userID, Provider: provider}]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy so callers cannot mutate the stored row.
	out := *cred
	return &out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.creds, credKey{UserID: userID, Provider: provider})
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
