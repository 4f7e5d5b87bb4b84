// Package scheduler runs the periodic bulk sync. Overlap protection lives in
// the sync engine's single-flight guard, not here: a fire that lands while a
// run is active is simply dropped by the engine.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"domainhub/internal/sync"
)

// BulkSyncer triggers a full pass over every registrar account.
type BulkSyncer interface {
	SyncAllAccounts(ctx context.Context) ([]sync.AccountSyncResult, error)
}

// Scheduler wraps a cron runner around the bulk sync trigger.
type Scheduler struct {
	cron   *cron.Cron
	syncer BulkSyncer
	logger *slog.Logger
}

// New constructs a scheduler firing the bulk sync on the given cron spec
// (standard five-field syntax, e.g. "0 * * * *" for hourly).
func New(spec string, syncer BulkSyncer, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		syncer: syncer,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins firing on schedule. Returns immediately.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("sync scheduler started")
}

// Stop halts scheduling and waits for an in-flight fire to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("sync scheduler stopped")
}

func (s *Scheduler) run() {
	results, err := s.syncer.SyncAllAccounts(context.Background())
	if err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
		return
	}
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	s.logger.Info("scheduled sync finished", "accounts", len(results), "failed", failed)
}
