package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	id "domainhub/pkg/domain"
	"domainhub/pkg/requestcontext"
)

// VerificationLog persists verification events.
type VerificationLog interface {
	Append(ctx context.Context, event VerificationEvent) error
	ListByDomain(ctx context.Context, userID id.UserID, name string) ([]VerificationEvent, error)
}

// SyncLog persists sync history records.
type SyncLog interface {
	Append(ctx context.Context, record SyncHistoryRecord) error
	ListByAccount(ctx context.Context, accountID id.AccountID, limit int) ([]SyncHistoryRecord, error)
}

// Publisher fans events out to an external sink (Kafka). Implementations must
// not block domain logic on sink availability.
type Publisher interface {
	PublishVerification(ctx context.Context, event VerificationEvent)
	PublishSync(ctx context.Context, record SyncHistoryRecord)
}

// Recorder is the audit entry point used by the engines. Store writes are
// authoritative; the publisher is best-effort fan-out.
type Recorder struct {
	verifications VerificationLog
	syncs         SyncLog
	publisher     Publisher
	logger        *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithPublisher attaches an external event sink.
func WithPublisher(p Publisher) RecorderOption {
	return func(r *Recorder) { r.publisher = p }
}

// NewRecorder constructs an audit recorder.
func NewRecorder(verifications VerificationLog, syncs SyncLog, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{verifications: verifications, syncs: syncs, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// LogVerification appends one verification event, assigning ID and timestamp
// when the caller left them zero.
func (r *Recorder) LogVerification(ctx context.Context, event VerificationEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if err := r.verifications.Append(ctx, event); err != nil {
		return err
	}
	if r.publisher != nil {
		r.publisher.PublishVerification(ctx, event)
	}
	return nil
}

// LogSync appends one sync history record.
func (r *Recorder) LogSync(ctx context.Context, record SyncHistoryRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := r.syncs.Append(ctx, record); err != nil {
		return err
	}
	if r.publisher != nil {
		r.publisher.PublishSync(ctx, record)
	}
	return nil
}

// VerificationHistory lists the trail for one domain, newest first.
func (r *Recorder) VerificationHistory(ctx context.Context, userID id.UserID, name string) ([]VerificationEvent, error) {
	return r.verifications.ListByDomain(ctx, userID, name)
}

// SyncHistory lists recent runs for one account, newest first.
func (r *Recorder) SyncHistory(ctx context.Context, accountID id.AccountID, limit int) ([]SyncHistoryRecord, error) {
	return r.syncs.ListByAccount(ctx, accountID, limit)
}
