package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-carrier-billing/core"
)

// Deliverer pushes outbound notifications with the fixed cumulative retry
// schedule: the first attempt is synchronous, every later attempt fires at a
// configured offset from the original failure. Every scheduling decision is
// persisted before its timer is armed so a restart can pick up where the
// process left off.
type Deliverer struct {
	cfg       core.WebhookSettings
	transport core.TransportAdapter
	store     DeliveryStore
	observer  core.Observer
	enqueuer  core.JobEnqueuer

	// Offsets are cumulative from the first failure. Overridable in tests;
	// defaults come from the config.
	Offsets []time.Duration
	// Now is injectable for tests.
	Now func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer

	inflight sync.WaitGroup

	sent      int64
	delivered int64
	retried   int64
	failed    int64
}

type DelivererOption func(*Deliverer)

// WithJobEnqueuer offloads scheduled retries to an external queue instead of
// in-process timers.
func WithJobEnqueuer(enqueuer core.JobEnqueuer) DelivererOption {
	return func(d *Deliverer) { d.enqueuer = enqueuer }
}

func NewDeliverer(
	cfg core.WebhookSettings,
	transport core.TransportAdapter,
	store DeliveryStore,
	observer core.Observer,
	options ...DelivererOption,
) (*Deliverer, error) {
	if transport == nil {
		return nil, fmt.Errorf("webhooks: transport adapter is required")
	}
	if store == nil {
		return nil, fmt.Errorf("webhooks: delivery store is required")
	}
	deliverer := &Deliverer{
		cfg:       cfg,
		transport: transport,
		store:     store,
		observer:  observer,
		Offsets:   cfg.RetryOffsets(),
		Now:       time.Now,
		timers:    map[string]*time.Timer{},
	}
	for _, option := range options {
		option(deliverer)
	}
	return deliverer, nil
}

// MaxAttempts is the synchronous first attempt plus one per retry offset.
func (d *Deliverer) MaxAttempts() int {
	return 1 + len(d.Offsets)
}

// Send performs the synchronous first attempt. On failure the delivery is
// persisted and its first retry armed; Send itself does not return an error
// for an upstream failure, only for local persistence problems.
func (d *Deliverer) Send(ctx context.Context, url string, eventType string, payload []byte) (Delivery, error) {
	now := d.now()
	delivery := Delivery{
		ID:        uuid.NewString(),
		URL:       url,
		Payload:   payload,
		EventType: eventType,
		Status:    DeliveryStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	atomic.AddInt64(&d.sent, 1)

	delivery.Attempts = 1
	if err := d.attempt(ctx, delivery); err == nil {
		atomic.AddInt64(&d.delivered, 1)
		delivery.Status = DeliveryStatusDelivered
		d.observer.Operation(ctx, now, "webhook_send", nil, map[string]any{
			"delivery_id": delivery.ID,
			"event_type":  eventType,
			"attempt":     1,
		})
		return delivery, nil
	} else {
		delivery.LastError = err.Error()
	}

	delivery.FirstFailedAt = now
	if err := d.scheduleNext(ctx, delivery); err != nil {
		return delivery, err
	}
	return delivery, nil
}

// Resume rediscovers every outstanding delivery after a restart. Past-due
// attempts fire immediately; future ones get a timer for the remaining delay.
func (d *Deliverer) Resume(ctx context.Context) error {
	outstanding, err := d.store.FindOutstanding(ctx)
	if err != nil {
		return fmt.Errorf("webhooks: resume failed: %w", err)
	}
	now := d.now()
	resumed := 0
	for _, delivery := range outstanding {
		if delivery.Status == DeliveryStatusDelivered || delivery.Status == DeliveryStatusFailed {
			continue
		}
		remaining := delivery.NextAttemptAt.Sub(now)
		if remaining <= 0 {
			d.fireAsync(ctx, delivery)
		} else {
			d.armTimer(ctx, delivery, remaining)
		}
		resumed++
	}
	d.observer.Info(ctx, "webhook deliveries resumed", map[string]any{"outstanding": resumed})
	return nil
}

// Fire executes one scheduled attempt for a persisted delivery. Exposed so
// an external queue worker can drive retries instead of in-process timers.
func (d *Deliverer) Fire(ctx context.Context, delivery Delivery) {
	d.cancelTimer(delivery.ID)

	delivery.Attempts++
	atomic.AddInt64(&d.retried, 1)
	startedAt := d.now()
	err := d.attempt(ctx, delivery)
	if err == nil {
		atomic.AddInt64(&d.delivered, 1)
		if derr := d.store.Delete(ctx, delivery.ID); derr != nil {
			d.observer.Error(ctx, "delivered webhook cleanup failed", map[string]any{
				"delivery_id": delivery.ID,
				"error":       derr.Error(),
			})
		}
		d.observer.Operation(ctx, startedAt, "webhook_retry", nil, map[string]any{
			"delivery_id": delivery.ID,
			"attempt":     delivery.Attempts,
		})
		return
	}

	delivery.LastError = err.Error()
	if serr := d.scheduleNext(ctx, delivery); serr != nil {
		d.observer.Error(ctx, "webhook reschedule failed", map[string]any{
			"delivery_id": delivery.ID,
			"error":       serr.Error(),
		})
	}
}

// scheduleNext persists the next retry slot, or marks the delivery
// permanently failed once the schedule is exhausted. Persistence happens
// before the timer is armed.
func (d *Deliverer) scheduleNext(ctx context.Context, delivery Delivery) error {
	now := d.now()
	retryIndex := delivery.Attempts - 1
	if retryIndex >= len(d.Offsets) {
		delivery.Status = DeliveryStatusFailed
		delivery.UpdatedAt = now
		atomic.AddInt64(&d.failed, 1)
		if err := d.store.Save(ctx, delivery); err != nil {
			return fmt.Errorf("webhooks: persist terminal failure: %w", err)
		}
		rich := core.NewOperatorError(nil, "", "", "webhook delivery exhausted all attempts").
			WithTextCode(core.BillingErrorDeliveryFailure)
		d.observer.Operation(ctx, now, "webhook_failed_permanently", rich, map[string]any{
			"delivery_id": delivery.ID,
			"event_type":  delivery.EventType,
			"url":         delivery.URL,
			"attempts":    delivery.Attempts,
			"last_error":  delivery.LastError,
		})
		return nil
	}

	delivery.Status = DeliveryStatusRetrying
	delivery.NextAttemptAt = delivery.FirstFailedAt.Add(d.Offsets[retryIndex])
	delivery.UpdatedAt = now
	if err := d.store.Save(ctx, delivery); err != nil {
		return fmt.Errorf("webhooks: persist retry schedule: %w", err)
	}

	if d.enqueuer != nil {
		return d.enqueuer.Enqueue(ctx, &core.JobExecutionMessage{
			JobID:          delivery.ID,
			IdempotencyKey: delivery.ID + ":" + strconv.Itoa(delivery.Attempts),
			Parameters: map[string]any{
				"delivery_id": delivery.ID,
				"not_before":  delivery.NextAttemptAt.Format(time.RFC3339),
			},
		})
	}

	d.armTimer(ctx, delivery, delivery.NextAttemptAt.Sub(d.now()))
	return nil
}

func (d *Deliverer) armTimer(ctx context.Context, delivery Delivery, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	d.mu.Lock()
	if existing, ok := d.timers[delivery.ID]; ok {
		existing.Stop()
	}
	d.timers[delivery.ID] = time.AfterFunc(delay, func() {
		d.inflight.Add(1)
		defer d.inflight.Done()
		d.Fire(context.WithoutCancel(ctx), delivery)
	})
	d.mu.Unlock()
}

func (d *Deliverer) fireAsync(ctx context.Context, delivery Delivery) {
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.Fire(ctx, delivery)
	}()
}

func (d *Deliverer) cancelTimer(id string) {
	d.mu.Lock()
	if timer, ok := d.timers[id]; ok {
		timer.Stop()
		delete(d.timers, id)
	}
	d.mu.Unlock()
}

// Stop cancels every armed timer and waits for in-flight attempts.
func (d *Deliverer) Stop() {
	d.mu.Lock()
	for id, timer := range d.timers {
		timer.Stop()
		delete(d.timers, id)
	}
	d.mu.Unlock()
	d.inflight.Wait()
}

// Wait blocks until in-flight attempts finish. Test hook.
func (d *Deliverer) Wait() {
	d.inflight.Wait()
}

func (d *Deliverer) attempt(ctx context.Context, delivery Delivery) error {
	headers := map[string]string{"Content-Type": "application/json"}
	if d.cfg.Secret != "" {
		timestamp := strconv.FormatInt(d.now().Unix(), 10)
		headers[d.cfg.TimestampHeader] = timestamp
		headers[d.cfg.SignatureHeader] = Sign(d.cfg.Secret, timestamp, delivery.Payload)
	}

	resp, err := d.transport.Do(ctx, core.TransportRequest{
		Method:      http.MethodPost,
		URL:         delivery.URL,
		Headers:     headers,
		Body:        delivery.Payload,
		Timeout:     d.cfg.DeliveryTimeout(),
		Idempotency: delivery.ID,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhooks: target returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Statistics is read-only and safe to call concurrently with deliveries.
func (d *Deliverer) Statistics() DeliveryStatistics {
	d.mu.Lock()
	inFlight := len(d.timers)
	d.mu.Unlock()
	return DeliveryStatistics{
		Sent:      atomic.LoadInt64(&d.sent),
		Delivered: atomic.LoadInt64(&d.delivered),
		Retried:   atomic.LoadInt64(&d.retried),
		Failed:    atomic.LoadInt64(&d.failed),
		InFlight:  inFlight,
	}
}

func (d *Deliverer) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
