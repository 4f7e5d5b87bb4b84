package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "domainhub/pkg/domain"
	"domainhub/pkg/platform/sentinel"
)

// RedisTokenStore keeps challenge tokens in Redis with a TTL matching the
// token expiry, so stale challenges clean themselves up.
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore constructs a Redis-backed token store.
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func redisTokenKey(userID id.UserID, domain string) string {
	return fmt.Sprintf("verify:token:%s:%s", userID.String(), domain)
}

func (s *RedisTokenStore) Put(ctx context.Context, userID id.UserID, domain string, token Token) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.client.Set(ctx, redisTokenKey(userID, domain), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Get(ctx context.Context, userID id.UserID, domain string) (Token, error) {
	payload, err := s.client.Get(ctx, redisTokenKey(userID, domain)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Token{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Token{}, fmt.Errorf("load token: %w", err)
	}
	var token Token
	if err := json.Unmarshal(payload, &token); err != nil {
		return Token{}, fmt.Errorf("decode token: %w", err)
	}
	return token, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, userID id.UserID, domain string) error {
	if err := s.client.Del(ctx, redisTokenKey(userID, domain)).Err(); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
