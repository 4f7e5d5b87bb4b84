// Package kafka streams audit events to a Kafka topic. Publishing is
// fire-and-forget: the authoritative copy lives in the audit stores, and a
// broker outage must never fail a sync or verification.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"domainhub/internal/audit"
)

// Publisher produces audit records to a single topic, keyed so that all events
// for one domain or one account land on the same partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the given brokers. The returned Publisher satisfies
// audit.Publisher.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(50*time.Millisecond),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}

type verificationRecord struct {
	Kind       string    `json:"kind"`
	ID         string    `json:"id"`
	DomainName string    `json:"domain_name"`
	UserID     string    `json:"user_id"`
	EventType  string    `json:"event_type"`
	Method     string    `json:"method,omitempty"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type syncRecord struct {
	Kind       string    `json:"kind"`
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	Status     string    `json:"status"`
	Found      int       `json:"found"`
	Added      int       `json:"added"`
	Updated    int       `json:"updated"`
	Removed    int       `json:"removed"`
	ErrorText  string    `json:"error_text,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (p *Publisher) PublishVerification(ctx context.Context, event audit.VerificationEvent) {
	p.produce(ctx, event.DomainName, verificationRecord{
		Kind:       "verification",
		ID:         event.ID.String(),
		DomainName: event.DomainName,
		UserID:     event.UserID.String(),
		EventType:  string(event.EventType),
		Method:     string(event.Method),
		OldStatus:  event.OldStatus,
		NewStatus:  event.NewStatus,
		Reason:     event.Reason,
		Timestamp:  event.Timestamp,
	})
}

func (p *Publisher) PublishSync(ctx context.Context, record audit.SyncHistoryRecord) {
	p.produce(ctx, record.AccountID.String(), syncRecord{
		Kind:       "sync",
		ID:         record.ID.String(),
		AccountID:  record.AccountID.String(),
		Status:     string(record.Status),
		Found:      record.Found,
		Added:      record.Added,
		Updated:    record.Updated,
		Removed:    record.Removed,
		ErrorText:  record.ErrorText,
		StartedAt:  record.StartedAt,
		FinishedAt: record.FinishedAt,
	})
}

func (p *Publisher) produce(ctx context.Context, key string, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("encode audit record", "error", err)
		return
	}
	rec := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: value}
	p.client.Produce(ctx, rec, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("audit publish failed", "topic", p.topic, "error", err)
		}
	})
}
