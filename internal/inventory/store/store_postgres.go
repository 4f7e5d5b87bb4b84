package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"domainhub/internal/inventory/models"
	id "domainhub/pkg/domain"
	"domainhub/pkg/platform/sentinel"
)

// PostgresDomainStore persists domain rows in PostgreSQL. Writes are single-row
// upserts on the (user_id, name) unique key so concurrent sync passes stay
// row-level idempotent.
type PostgresDomainStore struct {
	db *sql.DB
}

// NewPostgresDomainStore constructs a PostgreSQL-backed domain store.
func NewPostgresDomainStore(db *sql.DB) *PostgresDomainStore {
	return &PostgresDomainStore{db: db}
}

const domainColumns = `
	name, user_id, verification_method, verification_level, is_verified,
	verified_at, registrar_account_id, auto_synced, last_seen_at,
	registrar_name, expiry_date, auto_renew, transfer_locked,
	estimated_value, category, created_at, updated_at`

func (s *PostgresDomainStore) FindByNameAndUser(ctx context.Context, userID id.UserID, name string) (*models.Domain, error) {
	query := `SELECT ` + domainColumns + ` FROM domains WHERE user_id = $1 AND name = $2`
	row := s.db.QueryRowContext(ctx, query, userID.String(), models.NormalizeDomainName(name))
	domain, err := scanDomain(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find domain: %w", err)
	}
	return domain, nil
}

func (s *PostgresDomainStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]*models.Domain, error) {
	query := `SELECT ` + domainColumns + ` FROM domains WHERE registrar_account_id = $1 ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list domains by account: %w", err)
	}
	return collectDomains(rows)
}

func (s *PostgresDomainStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Domain, error) {
	query := `SELECT ` + domainColumns + ` FROM domains WHERE user_id = $1 ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list domains by user: %w", err)
	}
	return collectDomains(rows)
}

func (s *PostgresDomainStore) Upsert(ctx context.Context, domain *models.Domain) error {
	if err := domain.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO domains (` + domainColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (user_id, name) DO UPDATE SET
			verification_method = EXCLUDED.verification_method,
			verification_level = EXCLUDED.verification_level,
			is_verified = EXCLUDED.is_verified,
			verified_at = EXCLUDED.verified_at,
			registrar_account_id = EXCLUDED.registrar_account_id,
			auto_synced = EXCLUDED.auto_synced,
			last_seen_at = EXCLUDED.last_seen_at,
			registrar_name = EXCLUDED.registrar_name,
			expiry_date = EXCLUDED.expiry_date,
			auto_renew = EXCLUDED.auto_renew,
			transfer_locked = EXCLUDED.transfer_locked,
			estimated_value = EXCLUDED.estimated_value,
			category = EXCLUDED.category,
			updated_at = EXCLUDED.updated_at
	`
	var accountID any
	if domain.RegistrarAccountID != nil {
		accountID = domain.RegistrarAccountID.String()
	}
	var method any
	if domain.Method != "" {
		method = string(domain.Method)
	}
	_, err := s.db.ExecContext(ctx, query,
		models.NormalizeDomainName(domain.Name), domain.UserID.String(),
		method, int(domain.Level), domain.IsVerified,
		domain.VerifiedAt, accountID, domain.AutoSynced, domain.LastSeenAt,
		nullIfEmpty(domain.RegistrarName), domain.ExpiryDate, domain.AutoRenew, domain.TransferLocked,
		domain.EstimatedValue, nullIfEmpty(domain.Category),
		domain.CreatedAt, domain.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert domain: %w", err)
	}
	return nil
}

func (s *PostgresDomainStore) Delete(ctx context.Context, userID id.UserID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM domains WHERE user_id = $1 AND name = $2`,
		userID.String(), models.NormalizeDomainName(name))
	if err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDomain(row rowScanner) (*models.Domain, error) {
	var (
		d          models.Domain
		userID     string
		method     sql.NullString
		verifiedAt sql.NullTime
		accountID  sql.NullString
		lastSeenAt sql.NullTime
		registrar  sql.NullString
		expiryDate sql.NullTime
		autoRenew  sql.NullBool
		locked     sql.NullBool
		category   sql.NullString
		level      int
	)
	err := row.Scan(
		&d.Name, &userID, &method, &level, &d.IsVerified,
		&verifiedAt, &accountID, &d.AutoSynced, &lastSeenAt,
		&registrar, &expiryDate, &autoRenew, &locked,
		&d.EstimatedValue, &category, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	uid, err := id.ParseUserID(userID)
	if err != nil {
		return nil, err
	}
	d.UserID = uid
	d.Level = models.VerificationLevel(level)
	if method.Valid {
		d.Method = models.VerificationMethod(method.String)
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		d.VerifiedAt = &t
	}
	if accountID.Valid {
		aid, err := id.ParseAccountID(accountID.String)
		if err != nil {
			return nil, err
		}
		d.RegistrarAccountID = &aid
	}
	if lastSeenAt.Valid {
		t := lastSeenAt.Time
		d.LastSeenAt = &t
	}
	if registrar.Valid {
		d.RegistrarName = registrar.String
	}
	if expiryDate.Valid {
		t := expiryDate.Time
		d.ExpiryDate = &t
	}
	if autoRenew.Valid {
		b := autoRenew.Bool
		d.AutoRenew = &b
	}
	if locked.Valid {
		b := locked.Bool
		d.TransferLocked = &b
	}
	if category.Valid {
		d.Category = category.String
	}
	return &d, nil
}

func collectDomains(rows *sql.Rows) ([]*models.Domain, error) {
	defer rows.Close()
	var result []*models.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return result, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// PostgresAccountStore persists registrar account rows in PostgreSQL.
type PostgresAccountStore struct {
	db *sql.DB
}

// NewPostgresAccountStore constructs a PostgreSQL-backed account store.
func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

const accountColumns = `
	id, user_id, registrar, connection_status, sync_mode,
	last_sync_at, last_sync_status, last_sync_error,
	domain_count, verified_count, created_at, updated_at`

func (s *PostgresAccountStore) FindByID(ctx context.Context, accountID id.AccountID) (*models.RegistrarAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM registrar_accounts WHERE id = $1`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, accountID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

func (s *PostgresAccountStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.RegistrarAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM registrar_accounts WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list accounts by user: %w", err)
	}
	return collectAccounts(rows)
}

func (s *PostgresAccountStore) ListAll(ctx context.Context) ([]*models.RegistrarAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM registrar_accounts ORDER BY last_sync_at ASC NULLS FIRST, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all accounts: %w", err)
	}
	return collectAccounts(rows)
}

func (s *PostgresAccountStore) Save(ctx context.Context, account *models.RegistrarAccount) error {
	query := `
		INSERT INTO registrar_accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			connection_status = EXCLUDED.connection_status,
			sync_mode = EXCLUDED.sync_mode,
			last_sync_at = EXCLUDED.last_sync_at,
			last_sync_status = EXCLUDED.last_sync_status,
			last_sync_error = EXCLUDED.last_sync_error,
			domain_count = EXCLUDED.domain_count,
			verified_count = EXCLUDED.verified_count,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		account.ID.String(), account.UserID.String(), account.Registrar,
		string(account.ConnectionStatus), string(account.SyncMode),
		account.LastSyncAt, nullIfEmpty(string(account.LastSyncStatus)), nullIfEmpty(account.LastSyncError),
		account.DomainCount, account.VerifiedCount, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func scanAccount(row rowScanner) (*models.RegistrarAccount, error) {
	var (
		a          models.RegistrarAccount
		accountID  string
		userID     string
		status     string
		mode       string
		lastSyncAt sql.NullTime
		syncStatus sql.NullString
		syncError  sql.NullString
	)
	err := row.Scan(
		&accountID, &userID, &a.Registrar, &status, &mode,
		&lastSyncAt, &syncStatus, &syncError,
		&a.DomainCount, &a.VerifiedCount, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	aid, err := id.ParseAccountID(accountID)
	if err != nil {
		return nil, err
	}
	uid, err := id.ParseUserID(userID)
	if err != nil {
		return nil, err
	}
	a.ID = aid
	a.UserID = uid
	a.ConnectionStatus = models.ConnectionStatus(status)
	a.SyncMode = models.SyncMode(mode)
	if lastSyncAt.Valid {
		t := lastSyncAt.Time
		a.LastSyncAt = &t
	}
	if syncStatus.Valid {
		a.LastSyncStatus = models.SyncStatus(syncStatus.String)
	}
	if syncError.Valid {
		a.LastSyncError = syncError.String
	}
	return &a, nil
}

func collectAccounts(rows *sql.Rows) ([]*models.RegistrarAccount, error) {
	defer rows.Close()
	var result []*models.RegistrarAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return result, nil
}
