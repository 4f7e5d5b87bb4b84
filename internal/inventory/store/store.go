// Package store persists the domain inventory. Implementations come in pairs:
// an in-memory store for tests and dev mode, and a PostgreSQL store for
// production. Every write is an independent single-row upsert; no multi-row
// transaction spans a sync pass.
package store

import (
	"context"

	"domainhub/internal/inventory/models"
	id "domainhub/pkg/domain"
)

// DomainStore persists domain rows keyed by (user, normalized name).
type DomainStore interface {
	// FindByNameAndUser returns sentinel.ErrNotFound when the row is absent.
	FindByNameAndUser(ctx context.Context, userID id.UserID, name string) (*models.Domain, error)

	// ListByAccount returns domains currently linked to the given registrar
	// account. This scoping drives "removed" detection in full sync.
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*models.Domain, error)

	// ListByUser returns the user's entire portfolio across all accounts.
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Domain, error)

	// Upsert inserts or replaces the row for (domain.UserID, domain.Name).
	Upsert(ctx context.Context, domain *models.Domain) error

	// Delete removes the row entirely. Used only for auto-synced rows that the
	// registrar stopped reporting.
	Delete(ctx context.Context, userID id.UserID, name string) error
}

// AccountStore persists registrar account rows.
type AccountStore interface {
	// FindByID returns sentinel.ErrNotFound when the account is absent.
	FindByID(ctx context.Context, accountID id.AccountID) (*models.RegistrarAccount, error)

	// ListByUser returns all of a user's accounts, most recently created first.
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.RegistrarAccount, error)

	// ListAll returns every account ordered by last sync time ascending with
	// never-synced accounts first, so stale accounts are processed before
	// fresh ones in bulk runs.
	ListAll(ctx context.Context) ([]*models.RegistrarAccount, error)

	// Save inserts or replaces the account row.
	Save(ctx context.Context, account *models.RegistrarAccount) error
}
