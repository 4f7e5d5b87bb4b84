package credentials

import (
	"context"
	"sync"

	id "domainhub/pkg/domain"
	"domainhub/pkg/platform/sentinel"
)

// InMemoryBlobStore keeps sealed blobs in a mutex-guarded map.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[id.AccountID][]byte
}

// NewInMemoryBlobStore creates an empty in-memory blob store.
func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{blobs: make(map[id.AccountID][]byte)}
}

func (s *InMemoryBlobStore) Put(_ context.Context, accountID id.AccountID, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.blobs[accountID] = stored
	return nil
}

func (s *InMemoryBlobStore) Get(_ context.Context, accountID id.AccountID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

func (s *InMemoryBlobStore) Delete(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[accountID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.blobs, accountID)
	return nil
}
