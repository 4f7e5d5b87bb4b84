// Package store persists audit rows. Both logs are append-only; list
// operations exist for history endpoints and tests.
package store

import (
	"context"
	"sort"
	"sync"

	"domainhub/internal/audit"
	"domainhub/internal/inventory/models"
	id "domainhub/pkg/domain"
)

// InMemoryVerificationLog keeps verification events in a mutex-guarded slice.
type InMemoryVerificationLog struct {
	mu     sync.RWMutex
	events []audit.VerificationEvent
}

// NewInMemoryVerificationLog creates an empty in-memory verification log.
func NewInMemoryVerificationLog() *InMemoryVerificationLog {
	return &InMemoryVerificationLog{}
}

func (s *InMemoryVerificationLog) Append(_ context.Context, event audit.VerificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryVerificationLog) ListByDomain(_ context.Context, userID id.UserID, name string) ([]audit.VerificationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name = models.NormalizeDomainName(name)
	var result []audit.VerificationEvent
	for _, e := range s.events {
		if e.UserID == userID && e.DomainName == name {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })
	return result, nil
}

// All returns every recorded event. Test helper.
func (s *InMemoryVerificationLog) All() []audit.VerificationEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.VerificationEvent, len(s.events))
	copy(out, s.events)
	return out
}

// InMemorySyncLog keeps sync history records in a mutex-guarded slice.
type InMemorySyncLog struct {
	mu      sync.RWMutex
	records []audit.SyncHistoryRecord
}

// NewInMemorySyncLog creates an empty in-memory sync log.
func NewInMemorySyncLog() *InMemorySyncLog {
	return &InMemorySyncLog{}
}

func (s *InMemorySyncLog) Append(_ context.Context, record audit.SyncHistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *InMemorySyncLog) ListByAccount(_ context.Context, accountID id.AccountID, limit int) ([]audit.SyncHistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []audit.SyncHistoryRecord
	for _, r := range s.records {
		if r.AccountID == accountID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// All returns every recorded run. Test helper.
func (s *InMemorySyncLog) All() []audit.SyncHistoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.SyncHistoryRecord, len(s.records))
	copy(out, s.records)
	return out
}
