package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "domainhub/pkg/domain"
	"domainhub/pkg/platform/sentinel"
)

// PostgresTokenStore persists challenge tokens in PostgreSQL, upserted per
// (user, domain) pair. Expired rows are served as-is; the service checks
// expiry itself.
type PostgresTokenStore struct {
	db *sql.DB
}

// NewPostgresTokenStore constructs a PostgreSQL-backed token store.
func NewPostgresTokenStore(db *sql.DB) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

func (s *PostgresTokenStore) Put(ctx context.Context, userID id.UserID, domain string, token Token) error {
	query := `
		INSERT INTO domain_verification_tokens (user_id, domain_name, token, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, domain_name) DO UPDATE SET
			token = EXCLUDED.token,
			expires_at = EXCLUDED.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, userID.String(), domain, token.Value, token.ExpiresAt); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (s *PostgresTokenStore) Get(ctx context.Context, userID id.UserID, domain string) (Token, error) {
	query := `SELECT token, expires_at FROM domain_verification_tokens WHERE user_id = $1 AND domain_name = $2`
	var token Token
	err := s.db.QueryRowContext(ctx, query, userID.String(), domain).Scan(&token.Value, &token.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Token{}, fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

func (s *PostgresTokenStore) Delete(ctx context.Context, userID id.UserID, domain string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM domain_verification_tokens WHERE user_id = $1 AND domain_name = $2`,
		userID.String(), domain); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
