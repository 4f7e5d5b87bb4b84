package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	id "domainhub/pkg/domain"
	"domainhub/pkg/platform/sentinel"
)

// PostgresBlobStore persists sealed credential blobs in PostgreSQL. The blob
// column is opaque bytea; nothing in the database can read a credential.
type PostgresBlobStore struct {
	db *sql.DB
}

// NewPostgresBlobStore constructs a PostgreSQL-backed blob store.
func NewPostgresBlobStore(db *sql.DB) *PostgresBlobStore {
	return &PostgresBlobStore{db: db}
}

func (s *PostgresBlobStore) Put(ctx context.Context, accountID id.AccountID, blob []byte) error {
	query := `
		INSERT INTO registrar_credentials (account_id, sealed_blob, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE SET
			sealed_blob = EXCLUDED.sealed_blob,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, accountID.String(), blob, time.Now()); err != nil {
		return fmt.Errorf("put credential blob: %w", err)
	}
	return nil
}

func (s *PostgresBlobStore) Get(ctx context.Context, accountID id.AccountID) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT sealed_blob FROM registrar_credentials WHERE account_id = $1`,
		accountID.String()).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential blob: %w", err)
	}
	return blob, nil
}

func (s *PostgresBlobStore) Delete(ctx context.Context, accountID id.AccountID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM registrar_credentials WHERE account_id = $1`, accountID.String())
	if err != nil {
		return fmt.Errorf("delete credential blob: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
