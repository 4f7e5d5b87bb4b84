package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"domainhub/internal/inventory/models"
	id "domainhub/pkg/domain"
	"domainhub/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	domains  *InMemoryDomainStore
	accounts *InMemoryAccountStore
	userID   id.UserID
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.domains = NewInMemoryDomainStore()
	s.accounts = NewInMemoryAccountStore()
	s.userID = id.NewUserID()
}

func (s *MemoryStoreSuite) TestDomainUpsertNormalizesName() {
	ctx := context.Background()
	d := &models.Domain{Name: "WWW.Example.COM.", UserID: s.userID, CreatedAt: time.Now()}
	s.Require().NoError(s.domains.Upsert(ctx, d))

	found, err := s.domains.FindByNameAndUser(ctx, s.userID, "example.com")
	s.Require().NoError(err)
	s.Equal(s.userID, found.UserID)

	// Lookups normalize too.
	_, err = s.domains.FindByNameAndUser(ctx, s.userID, "Example.Com")
	s.Require().NoError(err)
}

func (s *MemoryStoreSuite) TestDomainStoreReturnsCopies() {
	ctx := context.Background()
	d := &models.Domain{Name: "a.com", UserID: s.userID, CreatedAt: time.Now()}
	s.Require().NoError(s.domains.Upsert(ctx, d))

	first, err := s.domains.FindByNameAndUser(ctx, s.userID, "a.com")
	s.Require().NoError(err)
	first.Category = "mutated"

	second, err := s.domains.FindByNameAndUser(ctx, s.userID, "a.com")
	s.Require().NoError(err)
	s.Empty(second.Category)
}

func (s *MemoryStoreSuite) TestDomainUpsertEnforcesLinkInvariant() {
	accountID := id.NewAccountID()
	d := &models.Domain{
		Name:               "a.com",
		UserID:             s.userID,
		RegistrarAccountID: &accountID,
		Method:             models.MethodDNSTXT,
	}
	err := s.domains.Upsert(context.Background(), d)
	s.Require().Error(err)
}

func (s *MemoryStoreSuite) TestListByAccountScopesToLink() {
	ctx := context.Background()
	accountA := id.NewAccountID()
	accountB := id.NewAccountID()

	for name, account := range map[string]id.AccountID{"a.com": accountA, "b.com": accountB} {
		d := &models.Domain{Name: name, UserID: s.userID, CreatedAt: time.Now()}
		d.ElevateRegistrar(account, time.Now())
		s.Require().NoError(s.domains.Upsert(ctx, d))
	}
	unlinked := &models.Domain{Name: "c.com", UserID: s.userID, CreatedAt: time.Now()}
	s.Require().NoError(s.domains.Upsert(ctx, unlinked))

	linked, err := s.domains.ListByAccount(ctx, accountA)
	s.Require().NoError(err)
	s.Require().Len(linked, 1)
	s.Equal("a.com", linked[0].Name)

	all, err := s.domains.ListByUser(ctx, s.userID)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *MemoryStoreSuite) TestDomainDelete() {
	ctx := context.Background()
	d := &models.Domain{Name: "a.com", UserID: s.userID, CreatedAt: time.Now()}
	s.Require().NoError(s.domains.Upsert(ctx, d))

	s.Require().NoError(s.domains.Delete(ctx, s.userID, "a.com"))
	_, err := s.domains.FindByNameAndUser(ctx, s.userID, "a.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().ErrorIs(s.domains.Delete(ctx, s.userID, "a.com"), sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestAccountListAllFairnessOrder() {
	ctx := context.Background()
	old := time.Now().Add(-2 * time.Hour)
	fresh := time.Now().Add(-time.Minute)

	never := &models.RegistrarAccount{ID: id.NewAccountID(), UserID: s.userID, Registrar: "godaddy"}
	stale := &models.RegistrarAccount{ID: id.NewAccountID(), UserID: s.userID, Registrar: "porkbun", LastSyncAt: &old}
	recent := &models.RegistrarAccount{ID: id.NewAccountID(), UserID: s.userID, Registrar: "namecheap", LastSyncAt: &fresh}
	for _, a := range []*models.RegistrarAccount{recent, never, stale} {
		s.Require().NoError(s.accounts.Save(ctx, a))
	}

	all, err := s.accounts.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(never.ID, all[0].ID)
	s.Equal(stale.ID, all[1].ID)
	s.Equal(recent.ID, all[2].ID)
}

func (s *MemoryStoreSuite) TestAccountFindMissing() {
	_, err := s.accounts.FindByID(context.Background(), id.NewAccountID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
