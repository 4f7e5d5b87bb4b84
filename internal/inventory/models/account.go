package models

import (
	"time"

	id "domainhub/pkg/domain"
	dErrors "domainhub/pkg/domain-errors"
)

// ConnectionStatus tracks the health of one registrar credential set.
type ConnectionStatus string

const (
	ConnectionPending      ConnectionStatus = "pending"
	ConnectionActive       ConnectionStatus = "active"
	ConnectionFailed       ConnectionStatus = "failed"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// SyncMode selects the reconciliation algorithm for an account.
//
// Full sync imports new domains and revokes or deletes missing ones.
// Verify-only elevates trust of existing domains and never imports or revokes;
// a registrar not hosting every domain a user owns is not evidence of loss.
type SyncMode string

const (
	SyncModeFull       SyncMode = "full"
	SyncModeVerifyOnly SyncMode = "verify_only"
)

// ParseSyncMode constructs a SyncMode from external input.
func ParseSyncMode(s string) (SyncMode, error) {
	switch SyncMode(s) {
	case SyncModeFull, SyncModeVerifyOnly:
		return SyncMode(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid sync mode")
}

// SyncStatus summarizes the outcome of the most recent sync run.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

// RegistrarAccount is one external registrar credential set owned by a user.
// The encrypted credential blob itself lives in the credentials vault; this row
// carries only connection state and sync bookkeeping. Accounts are never
// hard-deleted here; disconnect flips the status and the caller cleans up the
// inventory.
type RegistrarAccount struct {
	ID               id.AccountID
	UserID           id.UserID
	Registrar        string
	ConnectionStatus ConnectionStatus
	SyncMode         SyncMode

	LastSyncAt     *time.Time
	LastSyncStatus SyncStatus
	LastSyncError  string

	DomainCount   int
	VerifiedCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Disconnected reports whether sync passes must skip this account.
func (a *RegistrarAccount) Disconnected() bool {
	return a.ConnectionStatus == ConnectionDisconnected
}
