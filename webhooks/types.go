package webhooks

import (
	"context"
	"time"
)

// DeliveryStatus is the outbound attempt lifecycle:
// pending -> retrying -> delivered | failed_permanently.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusRetrying  DeliveryStatus = "retrying"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed_permanently"
)

// Delivery is one outbound notification in flight. Persisted immediately
// after each scheduling decision so a restart can rediscover it.
type Delivery struct {
	ID            string
	URL           string
	Payload       []byte
	EventType     string
	Attempts      int
	Status        DeliveryStatus
	FirstFailedAt time.Time
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeliveryStore persists outstanding deliveries. Terminal successes are
// deleted; permanent failures are kept for operational review.
type DeliveryStore interface {
	Save(ctx context.Context, delivery Delivery) error
	Delete(ctx context.Context, id string) error
	FindOutstanding(ctx context.Context) ([]Delivery, error)
}

// DeliveryStatistics is the read-only aggregate for dashboards.
type DeliveryStatistics struct {
	Sent      int64 `json:"sent"`
	Delivered int64 `json:"delivered"`
	Retried   int64 `json:"retried"`
	Failed    int64 `json:"failed_permanently"`
	InFlight  int   `json:"in_flight"`
}
