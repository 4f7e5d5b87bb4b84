package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"domainhub/internal/audit"
	"domainhub/internal/inventory/models"
	id "domainhub/pkg/domain"
)

// PostgresVerificationLog persists verification events in PostgreSQL.
type PostgresVerificationLog struct {
	db *sql.DB
}

// NewPostgresVerificationLog constructs a PostgreSQL-backed verification log.
func NewPostgresVerificationLog(db *sql.DB) *PostgresVerificationLog {
	return &PostgresVerificationLog{db: db}
}

func (s *PostgresVerificationLog) Append(ctx context.Context, event audit.VerificationEvent) error {
	query := `
		INSERT INTO domain_verification_log
			(id, domain_name, user_id, event_type, method, old_status, new_status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var method any
	if event.Method != "" {
		method = string(event.Method)
	}
	_, err := s.db.ExecContext(ctx, query,
		event.ID.String(), event.DomainName, event.UserID.String(),
		string(event.EventType), method, event.OldStatus, event.NewStatus,
		event.Reason, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append verification event: %w", err)
	}
	return nil
}

func (s *PostgresVerificationLog) ListByDomain(ctx context.Context, userID id.UserID, name string) ([]audit.VerificationEvent, error) {
	query := `
		SELECT id, domain_name, user_id, event_type, method, old_status, new_status, reason, created_at
		FROM domain_verification_log
		WHERE user_id = $1 AND domain_name = $2
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID.String(), models.NormalizeDomainName(name))
	if err != nil {
		return nil, fmt.Errorf("list verification events: %w", err)
	}
	defer rows.Close()

	var result []audit.VerificationEvent
	for rows.Next() {
		var (
			e         audit.VerificationEvent
			eventID   string
			uid       string
			eventType string
			method    sql.NullString
		)
		if err := rows.Scan(&eventID, &e.DomainName, &uid, &eventType, &method,
			&e.OldStatus, &e.NewStatus, &e.Reason, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan verification event: %w", err)
		}
		parsed, err := uuid.Parse(eventID)
		if err != nil {
			return nil, fmt.Errorf("parse event id: %w", err)
		}
		e.ID = parsed
		userID, err := id.ParseUserID(uid)
		if err != nil {
			return nil, err
		}
		e.UserID = userID
		e.EventType = audit.EventType(eventType)
		if method.Valid {
			e.Method = models.VerificationMethod(method.String)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification events: %w", err)
	}
	return result, nil
}

// PostgresSyncLog persists sync history records in PostgreSQL.
type PostgresSyncLog struct {
	db *sql.DB
}

// NewPostgresSyncLog constructs a PostgreSQL-backed sync log.
func NewPostgresSyncLog(db *sql.DB) *PostgresSyncLog {
	return &PostgresSyncLog{db: db}
}

func (s *PostgresSyncLog) Append(ctx context.Context, record audit.SyncHistoryRecord) error {
	query := `
		INSERT INTO registrar_sync_history
			(id, account_id, status, found, added, updated, removed, error_text, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID.String(), record.AccountID.String(), string(record.Status),
		record.Found, record.Added, record.Updated, record.Removed,
		record.ErrorText, record.StartedAt, record.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("append sync record: %w", err)
	}
	return nil
}

func (s *PostgresSyncLog) ListByAccount(ctx context.Context, accountID id.AccountID, limit int) ([]audit.SyncHistoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, account_id, status, found, added, updated, removed, error_text, started_at, finished_at
		FROM registrar_sync_history
		WHERE account_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, accountID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list sync records: %w", err)
	}
	defer rows.Close()

	var result []audit.SyncHistoryRecord
	for rows.Next() {
		var (
			r        audit.SyncHistoryRecord
			recordID string
			aid      string
			status   string
		)
		if err := rows.Scan(&recordID, &aid, &status, &r.Found, &r.Added, &r.Updated,
			&r.Removed, &r.ErrorText, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan sync record: %w", err)
		}
		parsed, err := uuid.Parse(recordID)
		if err != nil {
			return nil, fmt.Errorf("parse record id: %w", err)
		}
		r.ID = parsed
		accountID, err := id.ParseAccountID(aid)
		if err != nil {
			return nil, err
		}
		r.AccountID = accountID
		r.Status = models.SyncStatus(status)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync records: %w", err)
	}
	return result, nil
}
