package sqlstore

import (
	"context"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-carrier-billing/webhooks"
)

// DeliveryStore persists outstanding webhook deliveries. Save is an upsert
// keyed by the delivery id: the deliverer writes the same row once per
// scheduling decision.
type DeliveryStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookDeliveryRecord]
}

func NewDeliveryStore(db *bun.DB) (*DeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookDeliveryRecord](db, deliveryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid delivery repository wiring: %w", err)
		}
	}
	return &DeliveryStore{db: db, repo: repo}, nil
}

func (s *DeliveryStore) Save(ctx context.Context, delivery webhooks.Delivery) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery store is not configured")
	}
	record := deliveryToRecord(delivery)
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("attempts = EXCLUDED.attempts").
		Set("status = EXCLUDED.status").
		Set("first_failed_at = EXCLUDED.first_failed_at").
		Set("next_attempt_at = EXCLUDED.next_attempt_at").
		Set("last_error = EXCLUDED.last_error").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *DeliveryStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*webhookDeliveryRecord)(nil)).
		Where("id = ?", id).
		ForceDelete().
		Exec(ctx)
	return err
}

// FindOutstanding returns every delivery still owed an attempt, oldest
// schedule first. Permanently failed rows stay in the table for review but
// are not outstanding.
func (s *DeliveryStore) FindOutstanding(ctx context.Context) ([]webhooks.Delivery, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	var records []*webhookDeliveryRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status IN (?)", bun.In([]string{
			string(webhooks.DeliveryStatusPending),
			string(webhooks.DeliveryStatusRetrying),
		})).
		Order("next_attempt_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]webhooks.Delivery, 0, len(records))
	for _, record := range records {
		out = append(out, deliveryToDomain(record))
	}
	return out, nil
}

func deliveryToRecord(delivery webhooks.Delivery) *webhookDeliveryRecord {
	return &webhookDeliveryRecord{
		ID:            delivery.ID,
		URL:           delivery.URL,
		Payload:       delivery.Payload,
		EventType:     delivery.EventType,
		Attempts:      delivery.Attempts,
		Status:        string(delivery.Status),
		FirstFailedAt: delivery.FirstFailedAt,
		NextAttemptAt: delivery.NextAttemptAt,
		LastError:     delivery.LastError,
		CreatedAt:     delivery.CreatedAt,
		UpdatedAt:     delivery.UpdatedAt,
	}
}

func deliveryToDomain(record *webhookDeliveryRecord) webhooks.Delivery {
	if record == nil {
		return webhooks.Delivery{}
	}
	return webhooks.Delivery{
		ID:            record.ID,
		URL:           record.URL,
		Payload:       record.Payload,
		EventType:     record.EventType,
		Attempts:      record.Attempts,
		Status:        webhooks.DeliveryStatus(record.Status),
		FirstFailedAt: record.FirstFailedAt,
		NextAttemptAt: record.NextAttemptAt,
		LastError:     record.LastError,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

var _ webhooks.DeliveryStore = (*DeliveryStore)(nil)
