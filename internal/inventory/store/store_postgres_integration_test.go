//go:build integration

package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"domainhub/internal/inventory/models"
	id "domainhub/pkg/domain"
	"domainhub/pkg/platform/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	db       *sql.DB
	domains  *PostgresDomainStore
	accounts *PostgresAccountStore
	cleanup  func()
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("domainhub_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sql.Open("postgres", dsn)
	s.Require().NoError(err)
	s.Require().NoError(db.Ping())

	s.applyMigrations(db)

	s.db = db
	s.domains = NewPostgresDomainStore(db)
	s.accounts = NewPostgresAccountStore(db)
	s.cleanup = func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	}
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	for _, table := range []string{"domains", "registrar_credentials", "registrar_sync_history", "registrar_accounts"} {
		_, err := s.db.Exec("DELETE FROM " + table)
		s.Require().NoError(err)
	}
}

func (s *PostgresStoreSuite) applyMigrations(db *sql.DB) {
	entries, err := filepath.Glob(filepath.Join("..", "..", "..", "migrations", "*.sql"))
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	sort.Strings(entries)
	for _, path := range entries {
		ddl, err := os.ReadFile(path)
		s.Require().NoError(err)
		_, err = db.Exec(string(ddl))
		s.Require().NoError(err, "migration %s", path)
	}
}

func (s *PostgresStoreSuite) newAccount(userID id.UserID) *models.RegistrarAccount {
	now := time.Now().UTC().Truncate(time.Millisecond)
	account := &models.RegistrarAccount{
		ID:               id.NewAccountID(),
		UserID:           userID,
		Registrar:        "godaddy",
		ConnectionStatus: models.ConnectionActive,
		SyncMode:         models.SyncModeFull,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.Require().NoError(s.accounts.Save(context.Background(), account))
	return account
}

func (s *PostgresStoreSuite) TestDomainRoundTrip() {
	ctx := context.Background()
	userID := id.NewUserID()
	account := s.newAccount(userID)

	now := time.Now().UTC().Truncate(time.Millisecond)
	expiry := now.AddDate(1, 0, 0)
	locked := true
	d := &models.Domain{
		Name:       "Example.COM",
		UserID:     userID,
		AutoSynced: true,
		Category:   "Other",
		CreatedAt:  now,
	}
	d.ElevateRegistrar(account.ID, now)
	d.MergeRegistrarMetadata("GoDaddy", &expiry, nil, &locked)
	s.Require().NoError(s.domains.Upsert(ctx, d))

	found, err := s.domains.FindByNameAndUser(ctx, userID, "example.com")
	s.Require().NoError(err)
	s.Equal("example.com", found.Name)
	s.True(found.IsVerified)
	s.Equal(models.MethodRegistrarAPI, found.Method)
	s.Require().NotNil(found.RegistrarAccountID)
	s.Equal(account.ID, *found.RegistrarAccountID)
	s.Require().NotNil(found.ExpiryDate)
	s.True(found.ExpiryDate.Equal(expiry))
	s.Require().NotNil(found.TransferLocked)
	s.True(*found.TransferLocked)
	s.Nil(found.AutoRenew)

	// Upsert is idempotent on (user_id, name).
	found.SoftRevoke(now.Add(time.Minute))
	s.Require().NoError(s.domains.Upsert(ctx, found))
	revoked, err := s.domains.FindByNameAndUser(ctx, userID, "example.com")
	s.Require().NoError(err)
	s.False(revoked.IsVerified)
	s.Nil(revoked.RegistrarAccountID)
	s.Equal(models.LevelDNSTXT, revoked.Level)

	linked, err := s.domains.ListByAccount(ctx, account.ID)
	s.Require().NoError(err)
	s.Empty(linked)
}

func (s *PostgresStoreSuite) TestDomainDelete() {
	ctx := context.Background()
	userID := id.NewUserID()
	now := time.Now().UTC()
	d := &models.Domain{Name: "gone.com", UserID: userID, CreatedAt: now, UpdatedAt: now}
	s.Require().NoError(s.domains.Upsert(ctx, d))

	s.Require().NoError(s.domains.Delete(ctx, userID, "gone.com"))
	_, err := s.domains.FindByNameAndUser(ctx, userID, "gone.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	s.Require().ErrorIs(s.domains.Delete(ctx, userID, "gone.com"), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestAccountListAllOrder() {
	ctx := context.Background()
	userID := id.NewUserID()

	never := s.newAccount(userID)
	stale := s.newAccount(userID)
	old := time.Now().UTC().Add(-2 * time.Hour)
	stale.LastSyncAt = &old
	stale.LastSyncStatus = models.SyncStatusSuccess
	s.Require().NoError(s.accounts.Save(ctx, stale))

	all, err := s.accounts.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(never.ID, all[0].ID)
	s.Equal(stale.ID, all[1].ID)
	s.Equal(models.SyncStatusSuccess, all[1].LastSyncStatus)
}
