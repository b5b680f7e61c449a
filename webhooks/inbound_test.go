package webhooks

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-carrier-billing/core"
)

type recordingUpdater struct {
	mu           sync.Mutex
	statuses     map[string]core.UnifiedStatus
	transactions []Transaction
	failWith     error
	slow         time.Duration
}

func newRecordingUpdater() *recordingUpdater {
	return &recordingUpdater{statuses: map[string]core.UnifiedStatus{}}
}

func (u *recordingUpdater) UpdateStatus(ctx context.Context, subscriptionID string, status core.UnifiedStatus) error {
	if u.slow > 0 {
		time.Sleep(u.slow)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failWith != nil {
		return u.failWith
	}
	u.statuses[subscriptionID] = status
	return nil
}

func (u *recordingUpdater) AppendTransaction(ctx context.Context, tx Transaction) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.transactions = append(u.transactions, tx)
	return nil
}

func (u *recordingUpdater) status(id string) (core.UnifiedStatus, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	status, ok := u.statuses[id]
	return status, ok
}

func signedHeaders(cfg core.WebhookSettings, body []byte, at time.Time) map[string]string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	return map[string]string{
		cfg.TimestampHeader: timestamp,
		cfg.SignatureHeader: Sign(cfg.Secret, timestamp, body),
	}
}

func TestProcessAcksBeforeProcessing(t *testing.T) {
	cfg := testSettings()
	updater := newRecordingUpdater()
	updater.slow = 50 * time.Millisecond
	processor := NewProcessor(cfg, DefaultTransitionRules(), updater, core.Observer{})

	body := []byte(`{"subscriptionId":"sub-1","status":"active","transactionId":"tx-1"}`)
	started := time.Now()
	ack := processor.Process(context.Background(), signedHeaders(cfg, body, time.Now()), body)
	ackLatency := time.Since(started)

	if ack.StatusCode != http.StatusOK {
		t.Fatalf("ack status = %d", ack.StatusCode)
	}
	if ackLatency >= updater.slow {
		t.Fatalf("ack took %v; it must not wait for processing", ackLatency)
	}
	if _, done := updater.status("sub-1"); done {
		t.Fatal("processing must not have finished before the ack returned")
	}

	processor.Wait()
	if status, _ := updater.status("sub-1"); status != core.StatusActive {
		t.Fatalf("status = %s", status)
	}
}

func TestProcessingErrorDoesNotChangeAck(t *testing.T) {
	cfg := testSettings()
	updater := newRecordingUpdater()
	updater.failWith = errors.New("subscription row locked")
	processor := NewProcessor(cfg, DefaultTransitionRules(), updater, core.Observer{})

	body := []byte(`{"subscriptionId":"sub-1","status":"active"}`)
	ack := processor.Process(context.Background(), signedHeaders(cfg, body, time.Now()), body)
	processor.Wait()

	if ack.StatusCode != http.StatusOK {
		t.Fatalf("ack must stay successful, got %d", ack.StatusCode)
	}
}

func TestSignatureMismatchIsAckedButNotProcessed(t *testing.T) {
	cfg := testSettings()
	updater := newRecordingUpdater()
	processor := NewProcessor(cfg, DefaultTransitionRules(), updater, core.Observer{})

	body := []byte(`{"subscriptionId":"sub-1","status":"active"}`)
	headers := signedHeaders(cfg, body, time.Now())
	headers[cfg.SignatureHeader] = "forged"

	ack := processor.Process(context.Background(), headers, body)
	processor.Wait()

	if ack.StatusCode != http.StatusOK {
		t.Fatalf("rejection must not change the ack, got %d", ack.StatusCode)
	}
	if _, processed := updater.status("sub-1"); processed {
		t.Fatal("forged payloads must not be processed")
	}
}

func TestNoSecretSkipsVerification(t *testing.T) {
	cfg := testSettings()
	cfg.Secret = ""
	updater := newRecordingUpdater()
	processor := NewProcessor(cfg, DefaultTransitionRules(), updater, core.Observer{})

	body := []byte(`{"subscriptionId":"sub-2","status":"renewed","transactionId":"tx-7","amount":2.5,"currency":"KWD"}`)
	processor.Process(context.Background(), nil, body)
	processor.Wait()

	if status, _ := updater.status("sub-2"); status != core.StatusActive {
		t.Fatalf("status = %s", status)
	}
	if len(updater.transactions) != 1 || updater.transactions[0].Amount != 2.5 {
		t.Fatalf("transactions = %+v", updater.transactions)
	}
}

func TestErrorPayloadTransitions(t *testing.T) {
	tests := []struct {
		name       string
		errorCode  string
		wantStatus core.UnifiedStatus
		applied    bool
	}{
		{"insufficient funds suspends", "insufficient_funds", core.StatusSuspended, true},
		{"ineligible cancels", "INELIGIBLE", core.StatusCancelled, true},
		{"barred cancels", "subscriber_barred", core.StatusCancelled, true},
		{"unknown code is logged only", "mystery_code", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testSettings()
			cfg.Secret = ""
			updater := newRecordingUpdater()
			processor := NewProcessor(cfg, DefaultTransitionRules(), updater, core.Observer{})

			body := []byte(`{"subscriptionId":"sub-9","errorCode":"` + tc.errorCode + `","errorMessage":"x"}`)
			processor.Process(context.Background(), nil, body)
			processor.Wait()

			status, applied := updater.status("sub-9")
			if applied != tc.applied {
				t.Fatalf("applied = %v, want %v", applied, tc.applied)
			}
			if tc.applied && status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", status, tc.wantStatus)
			}
		})
	}
}

func TestMalformedPayloadIsAckedAndDropped(t *testing.T) {
	cfg := testSettings()
	cfg.Secret = ""
	processor := NewProcessor(cfg, DefaultTransitionRules(), newRecordingUpdater(), core.Observer{})

	ack := processor.Process(context.Background(), nil, []byte(`{not json`))
	processor.Wait()
	if ack.StatusCode != http.StatusOK {
		t.Fatalf("ack = %d", ack.StatusCode)
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	body := []byte(`{"a":1}`)
	signature := Sign("secret", "1748700000", body)
	if !Verify("secret", "1748700000", body, signature) {
		t.Fatal("signature must verify")
	}
	if Verify("secret", "1748700001", body, signature) {
		t.Fatal("timestamp is part of the signed material")
	}
	if Verify("other", "1748700000", body, signature) {
		t.Fatal("secret mismatch must fail")
	}
}
