package gojob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/webhooks"
)

// DeliveryFirer executes one scheduled webhook attempt. Satisfied by
// *webhooks.Deliverer.
type DeliveryFirer interface {
	Fire(ctx context.Context, delivery webhooks.Delivery)
}

// WebhookRetryWorker drains queued webhook retry jobs and fires the
// corresponding persisted delivery. It replaces the deliverer's in-process
// timers when retries are offloaded to a queue.
type WebhookRetryWorker struct {
	dequeuer core.JobDequeuer
	store    webhooks.DeliveryStore
	firer    DeliveryFirer
	observer core.Observer

	// Now is injectable for tests.
	Now func() time.Time
}

func NewWebhookRetryWorker(
	dequeuer core.JobDequeuer,
	store webhooks.DeliveryStore,
	firer DeliveryFirer,
	observer core.Observer,
) (*WebhookRetryWorker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("gojob: delivery store is required")
	}
	if firer == nil {
		return nil, fmt.Errorf("gojob: delivery firer is required")
	}
	return &WebhookRetryWorker{
		dequeuer: dequeuer,
		store:    store,
		firer:    firer,
		observer: observer,
		Now:      time.Now,
	}, nil
}

// Run drains the queue until the context is cancelled.
func (w *WebhookRetryWorker) Run(ctx context.Context) error {
	for {
		delivery, err := w.dequeuer.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("gojob: dequeue webhook retry: %w", err)
		}
		w.handle(ctx, delivery)
	}
}

func (w *WebhookRetryWorker) handle(ctx context.Context, jobDelivery core.JobDelivery) {
	msg := jobDelivery.Message()
	if msg == nil {
		w.ack(ctx, jobDelivery)
		return
	}

	deliveryID, _ := msg.Parameters["delivery_id"].(string)
	if deliveryID == "" {
		deliveryID = msg.JobID
	}
	if deliveryID == "" {
		w.observer.Error(ctx, "webhook retry job without delivery id", map[string]any{
			"idempotency_key": msg.IdempotencyKey,
		})
		w.ack(ctx, jobDelivery)
		return
	}

	if remaining := w.remainingDelay(msg); remaining > 0 {
		if err := jobDelivery.Nack(ctx, core.JobNackOptions{
			Delay:   remaining,
			Requeue: true,
			Reason:  "not yet due",
		}); err != nil {
			w.observer.Error(ctx, "webhook retry requeue failed", map[string]any{
				"delivery_id": deliveryID,
				"error":       err.Error(),
			})
		}
		return
	}

	persisted, found, err := w.findDelivery(ctx, deliveryID)
	if err != nil {
		w.observer.Error(ctx, "webhook retry lookup failed", map[string]any{
			"delivery_id": deliveryID,
			"error":       err.Error(),
		})
		if nerr := jobDelivery.Nack(ctx, core.JobNackOptions{Requeue: true, Reason: "store lookup failed"}); nerr != nil {
			w.observer.Error(ctx, "webhook retry nack failed", map[string]any{
				"delivery_id": deliveryID,
				"error":       nerr.Error(),
			})
		}
		return
	}
	if !found {
		// Delivered or permanently failed in the meantime. Nothing owed.
		w.ack(ctx, jobDelivery)
		return
	}

	w.firer.Fire(ctx, persisted)
	w.ack(ctx, jobDelivery)
}

// findDelivery resolves one outstanding delivery by id. The store surface is
// restart-oriented, so the lookup scans the outstanding set.
func (w *WebhookRetryWorker) findDelivery(ctx context.Context, id string) (webhooks.Delivery, bool, error) {
	outstanding, err := w.store.FindOutstanding(ctx)
	if err != nil {
		return webhooks.Delivery{}, false, err
	}
	for _, delivery := range outstanding {
		if delivery.ID == id {
			return delivery, true, nil
		}
	}
	return webhooks.Delivery{}, false, nil
}

func (w *WebhookRetryWorker) remainingDelay(msg *core.JobExecutionMessage) time.Duration {
	raw, _ := msg.Parameters["not_before"].(string)
	if raw == "" {
		return 0
	}
	notBefore, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0
	}
	return notBefore.Sub(w.now())
}

func (w *WebhookRetryWorker) ack(ctx context.Context, jobDelivery core.JobDelivery) {
	if err := jobDelivery.Ack(ctx); err != nil {
		w.observer.Error(ctx, "webhook retry ack failed", map[string]any{"error": err.Error()})
	}
}

func (w *WebhookRetryWorker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}
