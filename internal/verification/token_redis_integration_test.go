//go:build integration

package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "domainhub/pkg/domain"
	"domainhub/pkg/platform/sentinel"
	"domainhub/pkg/testutil/containers"
)

type RedisTokenStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisTokenStore
}

func TestRedisTokenStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisTokenStoreSuite))
}

func (s *RedisTokenStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedisTokenStore(s.redis.Client)
}

func (s *RedisTokenStoreSuite) TearDownSuite() {
	if s.redis != nil {
		_ = s.redis.Client.Close()
		_ = s.redis.Container.Terminate(context.Background())
	}
}

func (s *RedisTokenStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisTokenStoreSuite) TestPutGetRoundTrip() {
	ctx := context.Background()
	userID := id.NewUserID()
	expires := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	token := Token{Value: "domainhub-verify=abc123", ExpiresAt: expires}

	s.Require().NoError(s.store.Put(ctx, userID, "example.com", token))

	got, err := s.store.Get(ctx, userID, "example.com")
	s.Require().NoError(err)
	s.Equal(token.Value, got.Value)
	s.True(got.ExpiresAt.Equal(expires))
}

func (s *RedisTokenStoreSuite) TestPutReplacesExistingToken() {
	ctx := context.Background()
	userID := id.NewUserID()
	expires := time.Now().UTC().Add(time.Hour)

	s.Require().NoError(s.store.Put(ctx, userID, "example.com", Token{Value: "old", ExpiresAt: expires}))
	s.Require().NoError(s.store.Put(ctx, userID, "example.com", Token{Value: "new", ExpiresAt: expires}))

	got, err := s.store.Get(ctx, userID, "example.com")
	s.Require().NoError(err)
	s.Equal("new", got.Value)
}

func (s *RedisTokenStoreSuite) TestGetMissingReturnsNotFound() {
	_, err := s.store.Get(context.Background(), id.NewUserID(), "missing.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisTokenStoreSuite) TestTokensAreScopedPerUser() {
	ctx := context.Background()
	alice := id.NewUserID()
	bob := id.NewUserID()
	expires := time.Now().UTC().Add(time.Hour)

	s.Require().NoError(s.store.Put(ctx, alice, "example.com", Token{Value: "alice-token", ExpiresAt: expires}))

	_, err := s.store.Get(ctx, bob, "example.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisTokenStoreSuite) TestDeleteRemovesToken() {
	ctx := context.Background()
	userID := id.NewUserID()
	expires := time.Now().UTC().Add(time.Hour)

	s.Require().NoError(s.store.Put(ctx, userID, "example.com", Token{Value: "tok", ExpiresAt: expires}))
	s.Require().NoError(s.store.Delete(ctx, userID, "example.com"))

	_, err := s.store.Get(ctx, userID, "example.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// Deleting an absent key is a no-op.
	s.Require().NoError(s.store.Delete(ctx, userID, "example.com"))
}
