// Package sync implements registrar reconciliation. A full sync diffs the
// registrar's reported domain list against the stored inventory and applies
// additions, metadata refreshes, and removals; a verify-only sync elevates
// trust on existing domains and never imports or revokes. All mutations go
// through single-row upserts so a crash mid-pass leaves per-domain consistent
// state and the next run converges.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"domainhub/internal/audit"
	"domainhub/internal/inventory/models"
	"domainhub/internal/inventory/store"
	"domainhub/internal/platform/metrics"
	"domainhub/internal/registrar/adapters"
	id "domainhub/pkg/domain"
	dErrors "domainhub/pkg/domain-errors"
	"domainhub/pkg/platform/sentinel"
	"domainhub/pkg/requestcontext"
)

const removedReason = "no longer found at registrar"

// CredentialSource yields decrypted registrar credentials and owns connection
// status bookkeeping. Implemented by the credentials vault.
type CredentialSource interface {
	Get(ctx context.Context, accountID id.AccountID) (adapters.Credentials, string, error)
	UpdateConnectionStatus(ctx context.Context, accountID id.AccountID, status models.ConnectionStatus, message string) error
	Delete(ctx context.Context, userID id.UserID, accountID id.AccountID) (bool, error)
}

// AdapterFactory builds registrar adapters by code.
type AdapterFactory interface {
	Create(code string, creds adapters.Credentials) (adapters.Adapter, error)
}

// Engine reconciles registrar accounts with the domain inventory.
type Engine struct {
	domains  store.DomainStore
	accounts store.AccountStore
	creds    CredentialSource
	factory  AdapterFactory
	recorder *audit.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer

	// Bulk guard. Single-account syncs deliberately bypass it: a user-initiated
	// sync must not be starved by the scheduler.
	bulkMu      sync.Mutex
	bulkRunning bool

	interAccountDelay time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithInterAccountDelay sets the pause between accounts in a bulk run, keeping
// pressure on vendor APIs low. Zero disables the pause.
func WithInterAccountDelay(d time.Duration) Option {
	return func(e *Engine) { e.interAccountDelay = d }
}

// NewEngine constructs the sync engine.
func NewEngine(domains store.DomainStore, accounts store.AccountStore, creds CredentialSource, factory AdapterFactory, recorder *audit.Recorder, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		domains:           domains,
		accounts:          accounts,
		creds:             creds,
		factory:           factory,
		recorder:          recorder,
		logger:            logger,
		tracer:            otel.Tracer("domainhub/internal/sync"),
		interAccountDelay: time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// SyncRegistrarAccount runs one sync pass for the account, dispatching on its
// sync mode. Disconnected accounts are skipped without error so callers can
// loop over account lists blindly.
func (e *Engine) SyncRegistrarAccount(ctx context.Context, accountID id.AccountID) (*AccountSyncResult, error) {
	account, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return e.syncAccount(ctx, account), nil
}

// VerifyExistingDomains runs a verify-only pass for the account over the
// owner's entire portfolio, regardless of the account's configured sync mode.
// Bookkeeping matches a mode-dispatched run: one history row per invocation
// and a last-sync refresh on the account.
func (e *Engine) VerifyExistingDomains(ctx context.Context, accountID id.AccountID) (*VerifyStats, error) {
	account, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Disconnected() {
		return &VerifyStats{}, nil
	}
	started := requestcontext.Now(ctx)
	adapter, err := e.adapterFor(ctx, account)
	if err != nil {
		e.finishRun(ctx, account, record(ctx, account, started, models.SyncStatusFailed, nil, err.Error()))
		return nil, err
	}
	stats, err := e.verifyOnly(ctx, account, adapter, started)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.ObserveSync(account.Registrar, "success", requestcontext.Now(ctx).Sub(started))
	}
	return stats, nil
}

// SyncAllAccounts syncs every known account in staleness order. At most one
// bulk run is in flight at a time; an overlapping trigger is dropped silently
// so scheduler fires and manual triggers cannot stack.
func (e *Engine) SyncAllAccounts(ctx context.Context) ([]AccountSyncResult, error) {
	e.bulkMu.Lock()
	if e.bulkRunning {
		e.bulkMu.Unlock()
		e.logger.Info("bulk sync already in flight, skipping trigger")
		if e.metrics != nil {
			e.metrics.BulkSyncRejected.Inc()
		}
		return nil, nil
	}
	e.bulkRunning = true
	e.bulkMu.Unlock()
	defer func() {
		e.bulkMu.Lock()
		e.bulkRunning = false
		e.bulkMu.Unlock()
	}()

	ctx, span := e.tracer.Start(ctx, "sync.SyncAllAccounts")
	defer span.End()

	accounts, err := e.accounts.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]AccountSyncResult, 0, len(accounts))
	for i, account := range accounts {
		if account.Disconnected() {
			continue
		}
		if i > 0 && e.interAccountDelay > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(e.interAccountDelay):
			}
		}
		results = append(results, *e.syncAccount(ctx, account))
	}
	span.SetAttributes(attribute.Int("sync.accounts", len(results)))
	return results, nil
}

// SyncUserDomains syncs every connected account of one user. Bypasses the bulk
// guard: user-initiated syncs run even while a scheduled pass is active.
func (e *Engine) SyncUserDomains(ctx context.Context, userID id.UserID) ([]AccountSyncResult, error) {
	accounts, err := e.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make([]AccountSyncResult, 0, len(accounts))
	for _, account := range accounts {
		if account.Disconnected() {
			continue
		}
		results = append(results, *e.syncAccount(ctx, account))
	}
	return results, nil
}

// VerifyUserDomains runs verify-only passes over all of a user's connected
// accounts, ignoring each account's configured mode. Nothing is ever revoked.
func (e *Engine) VerifyUserDomains(ctx context.Context, userID id.UserID) ([]AccountSyncResult, error) {
	accounts, err := e.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make([]AccountSyncResult, 0, len(accounts))
	for _, account := range accounts {
		if account.Disconnected() {
			continue
		}
		result := AccountSyncResult{AccountID: account.ID, Registrar: account.Registrar, Mode: models.SyncModeVerifyOnly}
		started := requestcontext.Now(ctx)
		adapter, err := e.adapterFor(ctx, account)
		if err != nil {
			result.Error = err.Error()
			e.finishRun(ctx, account, record(ctx, account, started, models.SyncStatusFailed, nil, err.Error()))
			results = append(results, result)
			continue
		}
		stats, err := e.verifyOnly(ctx, account, adapter, started)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Success = true
			result.Verify = stats
		}
		results = append(results, result)
	}
	return results, nil
}

// TestConnection validates the account's stored credentials against the vendor
// and persists the resulting connection status.
func (e *Engine) TestConnection(ctx context.Context, accountID id.AccountID) (adapters.ConnectionResult, error) {
	account, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		return adapters.ConnectionResult{}, err
	}
	adapter, err := e.adapterFor(ctx, account)
	if err != nil {
		return adapters.ConnectionResult{}, err
	}
	result := adapter.TestConnection(ctx)

	status := models.ConnectionActive
	message := ""
	if !result.Success {
		status = models.ConnectionFailed
		message = result.Message
	}
	if err := e.creds.UpdateConnectionStatus(ctx, accountID, status, message); err != nil {
		return result, err
	}
	return result, nil
}

// DisconnectAccount drops the account's credentials and cleans up the linked
// inventory: auto-synced rows are deleted, manually entered rows keep their
// name but lose the registrar evidence.
func (e *Engine) DisconnectAccount(ctx context.Context, userID id.UserID, accountID id.AccountID) error {
	if _, err := e.creds.Delete(ctx, userID, accountID); err != nil {
		return err
	}
	linked, err := e.domains.ListByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	for _, domain := range linked {
		if err := e.removeOrRevoke(ctx, domain, now, "registrar account disconnected"); err != nil {
			e.logger.Error("disconnect cleanup failed",
				"account_id", accountID.String(), "domain", domain.Name, "error", err)
		}
	}
	return nil
}

// syncAccount dispatches one account to its configured mode and records the
// outcome. Never returns an error: failures are captured in the result and in
// the sync history so one broken account cannot abort a bulk pass.
func (e *Engine) syncAccount(ctx context.Context, account *models.RegistrarAccount) *AccountSyncResult {
	result := &AccountSyncResult{AccountID: account.ID, Registrar: account.Registrar, Mode: account.SyncMode}
	if account.Disconnected() {
		result.Success = true
		return result
	}

	ctx, span := e.tracer.Start(ctx, "sync.account", trace.WithAttributes(
		attribute.String("registrar", account.Registrar),
		attribute.String("sync.mode", string(account.SyncMode)),
	))
	defer span.End()

	started := requestcontext.Now(ctx)
	adapter, err := e.adapterFor(ctx, account)
	if err != nil {
		result.Error = err.Error()
		e.finishRun(ctx, account, record(ctx, account, started, models.SyncStatusFailed, nil, err.Error()))
		return result
	}

	switch account.SyncMode {
	case models.SyncModeVerifyOnly:
		stats, err := e.verifyOnly(ctx, account, adapter, started)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Success = true
		result.Verify = stats
	default:
		stats, err := e.fullSync(ctx, account, adapter)
		if err != nil {
			result.Error = err.Error()
			e.finishRun(ctx, account, record(ctx, account, started, models.SyncStatusFailed, nil, err.Error()))
			return result
		}
		result.Success = true
		result.Sync = stats
		e.finishRun(ctx, account, record(ctx, account, started, statusFor(len(stats.Errors) > 0), stats, ""))
	}

	if e.metrics != nil {
		e.metrics.ObserveSync(account.Registrar, statusLabel(result), requestcontext.Now(ctx).Sub(started))
	}
	return result
}

// fullSync diffs the registrar's full domain list against the inventory.
//
// The pass is three-way: names at the registrar but not in the inventory are
// imported, names in both are refreshed in place, and linked names the
// registrar stopped reporting are removed or revoked. Per-domain failures are
// collected, not fatal.
func (e *Engine) fullSync(ctx context.Context, account *models.RegistrarAccount, adapter adapters.Adapter) (*SyncStats, error) {
	remote, err := adapter.FetchDomains(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch domains from %s: %w", account.Registrar, err)
	}
	linked, err := e.domains.ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	stats := &SyncStats{Found: len(remote)}
	now := requestcontext.Now(ctx)

	remoteByName := make(map[string]adapters.RegistrarDomain, len(remote))
	for _, rd := range remote {
		remoteByName[adapter.NormalizeDomain(rd.Name)] = rd
	}

	for name, rd := range remoteByName {
		if err := e.applyRemote(ctx, account, name, rd, now, stats); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", name, err))
		}
	}

	// Removal scoping is per account: a domain linked to a different account of
	// the same user is that account's business.
	for _, domain := range linked {
		if _, stillThere := remoteByName[domain.Name]; stillThere {
			continue
		}
		if err := e.removeOrRevoke(ctx, domain, now, removedReason); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", domain.Name, err))
			continue
		}
		stats.Removed++
	}
	return stats, nil
}

// applyRemote imports or refreshes one registrar-reported domain.
func (e *Engine) applyRemote(ctx context.Context, account *models.RegistrarAccount, name string, rd adapters.RegistrarDomain, now time.Time, stats *SyncStats) error {
	existing, err := e.domains.FindByNameAndUser(ctx, account.UserID, name)
	switch {
	case err == nil:
		// Update in place. A row linked to another account of the same user is
		// relinked here rather than duplicated; (user, name) stays unique.
		wasVerified := existing.IsVerified && existing.Method == models.MethodRegistrarAPI
		existing.ElevateRegistrar(account.ID, now)
		existing.MergeRegistrarMetadata(rd.Registrar, rd.ExpiryDate, rd.AutoRenew, rd.TransferLocked)
		if err := e.domains.Upsert(ctx, existing); err != nil {
			return err
		}
		stats.Updated++
		if !wasVerified {
			e.logVerified(ctx, existing, "confirmed by registrar account")
		}
		return nil

	case errors.Is(err, sentinel.ErrNotFound):
		domain := &models.Domain{
			Name:       name,
			UserID:     account.UserID,
			AutoSynced: true,
			Category:   "Other",
			CreatedAt:  now,
		}
		domain.ElevateRegistrar(account.ID, now)
		domain.MergeRegistrarMetadata(rd.Registrar, rd.ExpiryDate, rd.AutoRenew, rd.TransferLocked)
		if domain.RegistrarName == "" {
			domain.RegistrarName = account.Registrar
		}
		if err := e.domains.Upsert(ctx, domain); err != nil {
			return err
		}
		stats.Added++
		if e.metrics != nil {
			e.metrics.DomainsImported.Inc()
		}
		e.logVerified(ctx, domain, "imported from registrar account")
		return nil

	default:
		return err
	}
}

// verifyPass elevates trust on existing portfolio domains the registrar hosts.
// Domains the registrar does not report are counted and left untouched.
func (e *Engine) verifyPass(ctx context.Context, account *models.RegistrarAccount, adapter adapters.Adapter) (*VerifyStats, error) {
	remote, err := adapter.FetchDomains(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch domains from %s: %w", account.Registrar, err)
	}
	portfolio, err := e.domains.ListByUser(ctx, account.UserID)
	if err != nil {
		return nil, err
	}

	remoteNames := make(map[string]struct{}, len(remote))
	for _, rd := range remote {
		remoteNames[adapter.NormalizeDomain(rd.Name)] = struct{}{}
	}

	stats := &VerifyStats{TotalInDatabase: len(portfolio)}
	now := requestcontext.Now(ctx)
	for _, domain := range portfolio {
		if _, hosted := remoteNames[domain.Name]; !hosted {
			stats.NotFound++
			continue
		}
		wasVerified := domain.IsVerified && domain.Method == models.MethodRegistrarAPI
		domain.ElevateRegistrar(account.ID, now)
		if err := e.domains.Upsert(ctx, domain); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", domain.Name, err))
			continue
		}
		stats.Verified++
		if !wasVerified {
			e.logVerified(ctx, domain, "confirmed by registrar account")
		}
	}
	return stats, nil
}

// verifyOnly wraps verifyPass with run bookkeeping. The mode dispatch and the
// standalone entry point share it so every invocation writes exactly one
// history row and refreshes the account, regardless of how it was triggered.
func (e *Engine) verifyOnly(ctx context.Context, account *models.RegistrarAccount, adapter adapters.Adapter, started time.Time) (*VerifyStats, error) {
	stats, err := e.verifyPass(ctx, account, adapter)
	if err != nil {
		e.finishRun(ctx, account, record(ctx, account, started, models.SyncStatusFailed, nil, err.Error()))
		return nil, err
	}
	rec := record(ctx, account, started, statusFor(len(stats.Errors) > 0), nil, "")
	rec.Found = stats.Verified + stats.NotFound
	rec.Updated = stats.Verified
	e.finishRun(ctx, account, rec)
	return stats, nil
}

// removeOrRevoke applies the removal policy for one linked domain: provenance
// decides between hard delete and soft revoke.
func (e *Engine) removeOrRevoke(ctx context.Context, domain *models.Domain, now time.Time, reason string) error {
	oldStatus := verifiedLabel(domain.IsVerified)
	if domain.AutoSynced {
		if err := e.domains.Delete(ctx, domain.UserID, domain.Name); err != nil {
			return err
		}
	} else {
		domain.SoftRevoke(now)
		if err := e.domains.Upsert(ctx, domain); err != nil {
			return err
		}
	}
	if e.metrics != nil {
		e.metrics.DomainsRemoved.Inc()
	}
	e.logAudit(ctx, audit.VerificationEvent{
		DomainName: domain.Name,
		UserID:     domain.UserID,
		EventType:  audit.EventRevoked,
		Method:     models.MethodRegistrarAPI,
		OldStatus:  oldStatus,
		NewStatus:  "unverified",
		Reason:     reason,
	})
	return nil
}

// adapterFor decrypts the account's credentials and builds its vendor adapter.
func (e *Engine) adapterFor(ctx context.Context, account *models.RegistrarAccount) (adapters.Adapter, error) {
	creds, registrar, err := e.creds.Get(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	adapter, err := e.factory.Create(registrar, creds)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnsupported, "unsupported registrar", err)
	}
	return adapter, nil
}

// finishRun writes the sync history row and refreshes account bookkeeping.
func (e *Engine) finishRun(ctx context.Context, account *models.RegistrarAccount, rec audit.SyncHistoryRecord) {
	if err := e.recorder.LogSync(ctx, rec); err != nil {
		e.logger.Error("record sync history", "account_id", account.ID.String(), "error", err)
	}

	now := rec.FinishedAt
	account.LastSyncAt = &now
	account.LastSyncStatus = rec.Status
	account.LastSyncError = rec.ErrorText
	if linked, err := e.domains.ListByAccount(ctx, account.ID); err == nil {
		account.DomainCount = len(linked)
		verified := 0
		for _, d := range linked {
			if d.IsVerified {
				verified++
			}
		}
		account.VerifiedCount = verified
	}
	account.UpdatedAt = now
	if err := e.accounts.Save(ctx, account); err != nil {
		e.logger.Error("update account after sync", "account_id", account.ID.String(), "error", err)
	}

	e.logger.Info("sync finished",
		"account_id", account.ID.String(),
		"registrar", account.Registrar,
		"status", string(rec.Status),
		"found", rec.Found, "added", rec.Added, "updated", rec.Updated, "removed", rec.Removed,
		"duration", rec.Duration().String(),
	)
}

func (e *Engine) logVerified(ctx context.Context, domain *models.Domain, reason string) {
	e.logAudit(ctx, audit.VerificationEvent{
		DomainName: domain.Name,
		UserID:     domain.UserID,
		EventType:  audit.EventVerified,
		Method:     models.MethodRegistrarAPI,
		OldStatus:  "unverified",
		NewStatus:  "verified",
		Reason:     reason,
	})
}

func (e *Engine) logAudit(ctx context.Context, event audit.VerificationEvent) {
	if err := e.recorder.LogVerification(ctx, event); err != nil {
		e.logger.Error("record verification event", "domain", event.DomainName, "error", err)
	}
}

func record(ctx context.Context, account *models.RegistrarAccount, started time.Time, status models.SyncStatus, stats *SyncStats, errText string) audit.SyncHistoryRecord {
	rec := audit.SyncHistoryRecord{
		AccountID:  account.ID,
		Status:     status,
		ErrorText:  errText,
		StartedAt:  started,
		FinishedAt: requestcontext.Now(ctx),
	}
	if stats != nil {
		rec.Found = stats.Found
		rec.Added = stats.Added
		rec.Updated = stats.Updated
		rec.Removed = stats.Removed
		if len(stats.Errors) > 0 && errText == "" {
			rec.ErrorText = fmt.Sprintf("%d domain errors", len(stats.Errors))
		}
	}
	return rec
}

func statusFor(partial bool) models.SyncStatus {
	if partial {
		return models.SyncStatusPartial
	}
	return models.SyncStatusSuccess
}

func statusLabel(r *AccountSyncResult) string {
	if !r.Success {
		return "failed"
	}
	return "success"
}

func verifiedLabel(verified bool) string {
	if verified {
		return "verified"
	}
	return "unverified"
}
