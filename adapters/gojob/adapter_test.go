package gojob

import (
	"context"
	"testing"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"

	"github.com/goliatone/go-carrier-billing/core"
)

func TestEnqueueAndDequeueAdapters(t *testing.T) {
	ctx := context.Background()
	enqueuer := &stubQueueEnqueuer{}
	enqueueAdapter := NewEnqueuerAdapter(enqueuer)

	msg := &core.JobExecutionMessage{
		JobID:          JobIDWebhookRetry,
		Parameters:     map[string]any{"delivery_id": "d1", "not_before": "2026-08-25T10:00:00Z"},
		IdempotencyKey: "d1:2",
		DedupPolicy:    "drop",
	}
	if err := enqueueAdapter.Enqueue(ctx, msg); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDWebhookRetry {
		t.Fatalf("expected mapped go-job message")
	}
	if enqueuer.last.IdempotencyKey != "d1:2" {
		t.Fatalf("idempotency key = %q", enqueuer.last.IdempotencyKey)
	}

	dequeuer := &stubQueueDequeuer{delivery: &stubQueueDelivery{msg: enqueuer.last}}
	dequeueAdapter := NewDequeuerAdapter(dequeuer, RetryPolicy{})
	delivery, err := dequeueAdapter.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	got := delivery.Message()
	if got == nil || got.Parameters["delivery_id"] != "d1" {
		t.Fatalf("expected mapped core message, got %#v", got)
	}
	if err := delivery.Ack(ctx); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !dequeuer.delivery.(*stubQueueDelivery).acked {
		t.Fatalf("expected ack on underlying delivery")
	}
}

func TestNackRetryPolicyBoundaries(t *testing.T) {
	ctx := context.Background()
	rawDelivery := &stubQueueDelivery{
		msg: &job.ExecutionMessage{JobID: JobIDWebhookRetry},
	}
	adapter := NewDeliveryAdapter(rawDelivery, RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	})

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{
		Delay:   time.Minute,
		Requeue: true,
	}, 1); err != nil {
		t.Fatalf("nack: %v", err)
	}
	if rawDelivery.nackOpts.Delay != 10*time.Second {
		t.Fatalf("delay must be clamped, got %v", rawDelivery.nackOpts.Delay)
	}

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{Requeue: true}, 3); err != nil {
		t.Fatalf("nack at max attempts: %v", err)
	}
	if rawDelivery.nackOpts.Requeue || !rawDelivery.nackOpts.DeadLetter {
		t.Fatalf("max attempts must dead letter, got %+v", rawDelivery.nackOpts)
	}
}

func TestEnqueuerAdapterRequiresConfiguration(t *testing.T) {
	if err := (&EnqueuerAdapter{}).Enqueue(context.Background(), &core.JobExecutionMessage{}); err == nil {
		t.Fatal("unconfigured enqueuer must fail")
	}
	if err := NewEnqueuerAdapter(&stubQueueEnqueuer{}).Enqueue(context.Background(), nil); err == nil {
		t.Fatal("nil message must fail")
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	delivery queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return s.delivery, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nackOpts = opts
	return nil
}
