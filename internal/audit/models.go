// Package audit captures the append-only trail of sync runs and verification
// changes. Events are emitted from domain logic and fanned out to stores and
// optional sinks; nothing in this package is ever updated or deleted.
package audit

import (
	"time"

	"github.com/google/uuid"

	"domainhub/internal/inventory/models"
	id "domainhub/pkg/domain"
)

// EventType classifies a verification event.
type EventType string

const (
	EventVerified EventType = "verified"
	EventRevoked  EventType = "revoked"
)

// VerificationEvent records one trust transition on a domain.
type VerificationEvent struct {
	ID         uuid.UUID
	DomainName string
	UserID     id.UserID
	EventType  EventType
	Method     models.VerificationMethod
	OldStatus  string
	NewStatus  string
	Reason     string
	Timestamp  time.Time
}

// SyncHistoryRecord is the per-run audit row written once per sync invocation.
type SyncHistoryRecord struct {
	ID        uuid.UUID
	AccountID id.AccountID
	Status    models.SyncStatus
	Found     int
	Added     int
	Updated   int
	Removed   int
	ErrorText string
	StartedAt time.Time
	FinishedAt time.Time
}

// Duration returns the wall time of the recorded run.
func (r *SyncHistoryRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
