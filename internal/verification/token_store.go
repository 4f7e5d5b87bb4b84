package verification

import (
	"context"
	"sync"
	"time"

	id "domainhub/pkg/domain"
	"domainhub/pkg/platform/sentinel"
)

// Token is one outstanding DNS TXT challenge. A user holds at most one token
// per domain; issuing a new one replaces the old.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its validity window.
func (t Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenStore persists challenge tokens keyed by (user, domain).
type TokenStore interface {
	// Put stores the token, replacing any prior token for the pair.
	Put(ctx context.Context, userID id.UserID, domain string, token Token) error
	// Get returns sentinel.ErrNotFound when no token exists. Expired tokens may
	// still be returned; callers check Expired themselves.
	Get(ctx context.Context, userID id.UserID, domain string) (Token, error)
	Delete(ctx context.Context, userID id.UserID, domain string) error
}

type tokenKey struct {
	userID id.UserID
	domain string
}

// InMemoryTokenStore keeps tokens in a mutex-guarded map.
type InMemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[tokenKey]Token
}

// NewInMemoryTokenStore creates an empty in-memory token store.
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{tokens: make(map[tokenKey]Token)}
}

func (s *InMemoryTokenStore) Put(_ context.Context, userID id.UserID, domain string, token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenKey{userID: userID, domain: domain}] = token
	return nil
}

func (s *InMemoryTokenStore) Get(_ context.Context, userID id.UserID, domain string) (Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[tokenKey{userID: userID, domain: domain}]
	if !ok {
		return Token{}, sentinel.ErrNotFound
	}
	return token, nil
}

func (s *InMemoryTokenStore) Delete(_ context.Context, userID id.UserID, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tokenKey{userID: userID, domain: domain})
	return nil
}
