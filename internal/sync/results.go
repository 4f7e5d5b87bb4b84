package sync

import (
	"domainhub/internal/inventory/models"
	id "domainhub/pkg/domain"
)

// SyncStats summarizes one full sync pass over a registrar account.
type SyncStats struct {
	Found   int      `json:"found"`
	Added   int      `json:"added"`
	Updated int      `json:"updated"`
	Removed int      `json:"removed"`
	Errors  []string `json:"errors,omitempty"`
}

// VerifyStats summarizes one verify-only pass. NotFound counts portfolio
// domains the registrar does not host; they are informational, never acted on.
type VerifyStats struct {
	TotalInDatabase int      `json:"total_in_database"`
	Verified        int      `json:"verified"`
	NotFound        int      `json:"not_found"`
	Errors          []string `json:"errors,omitempty"`
}

// AccountSyncResult is the per-account outcome of a sync dispatch. Exactly one
// of Sync and Verify is set, matching the account's sync mode.
type AccountSyncResult struct {
	AccountID id.AccountID    `json:"account_id"`
	Registrar string          `json:"registrar"`
	Mode      models.SyncMode `json:"mode"`
	Success   bool            `json:"success"`
	Sync      *SyncStats      `json:"sync,omitempty"`
	Verify    *VerifyStats    `json:"verify,omitempty"`
	Error     string          `json:"error,omitempty"`
}
