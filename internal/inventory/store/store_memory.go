package store

import (
	"context"
	"sort"
	"sync"

	"domainhub/internal/inventory/models"
	id "domainhub/pkg/domain"
	"domainhub/pkg/platform/sentinel"
)

// InMemoryDomainStore keeps domain rows in a mutex-guarded map. Rows are stored
// by value and returned as copies so callers can mutate results freely before
// writing them back.
type InMemoryDomainStore struct {
	mu      sync.RWMutex
	domains map[domainKey]models.Domain
}

type domainKey struct {
	userID id.UserID
	name   string
}

// NewInMemoryDomainStore creates an empty in-memory domain store.
func NewInMemoryDomainStore() *InMemoryDomainStore {
	return &InMemoryDomainStore{domains: make(map[domainKey]models.Domain)}
}

func (s *InMemoryDomainStore) FindByNameAndUser(_ context.Context, userID id.UserID, name string) (*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.domains[domainKey{userID: userID, name: models.NormalizeDomainName(name)}]; ok {
		row := d
		return &row, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryDomainStore) ListByAccount(_ context.Context, accountID id.AccountID) ([]*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Domain
	for _, d := range s.domains {
		if d.RegistrarAccountID != nil && *d.RegistrarAccountID == accountID {
			row := d
			result = append(result, &row)
		}
	}
	sortDomains(result)
	return result, nil
}

func (s *InMemoryDomainStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Domain
	for _, d := range s.domains {
		if d.UserID == userID {
			row := d
			result = append(result, &row)
		}
	}
	sortDomains(result)
	return result, nil
}

func (s *InMemoryDomainStore) Upsert(_ context.Context, domain *models.Domain) error {
	if err := domain.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domainKey{userID: domain.UserID, name: models.NormalizeDomainName(domain.Name)}
	s.domains[key] = *domain
	return nil
}

func (s *InMemoryDomainStore) Delete(_ context.Context, userID id.UserID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domainKey{userID: userID, name: models.NormalizeDomainName(name)}
	if _, ok := s.domains[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.domains, key)
	return nil
}

func sortDomains(domains []*models.Domain) {
	sort.Slice(domains, func(i, j int) bool { return domains[i].Name < domains[j].Name })
}

// InMemoryAccountStore keeps registrar account rows in a mutex-guarded map.
type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]models.RegistrarAccount
}

// NewInMemoryAccountStore creates an empty in-memory account store.
func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{accounts: make(map[id.AccountID]models.RegistrarAccount)}
}

func (s *InMemoryAccountStore) FindByID(_ context.Context, accountID id.AccountID) (*models.RegistrarAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[accountID]; ok {
		row := a
		return &row, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryAccountStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.RegistrarAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.RegistrarAccount
	for _, a := range s.accounts {
		if a.UserID == userID {
			row := a
			result = append(result, &row)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *InMemoryAccountStore) ListAll(_ context.Context) ([]*models.RegistrarAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.RegistrarAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		row := a
		result = append(result, &row)
	}
	// Oldest-synced first, never-synced before everything: fairness policy for
	// bulk runs.
	sort.Slice(result, func(i, j int) bool {
		li, lj := result[i].LastSyncAt, result[j].LastSyncAt
		switch {
		case li == nil && lj == nil:
			return result[i].ID.String() < result[j].ID.String()
		case li == nil:
			return true
		case lj == nil:
			return false
		default:
			return li.Before(*lj)
		}
	})
	return result, nil
}

func (s *InMemoryAccountStore) Save(_ context.Context, account *models.RegistrarAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = *account
	return nil
}
