package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-carrier-billing/core"
)

// SuccessNotification is the payload shape carrying subscription or
// transaction state.
type SuccessNotification struct {
	OperatorCode   string         `json:"operatorCode"`
	SubscriptionID string         `json:"subscriptionId"`
	TransactionID  string         `json:"transactionId"`
	Status         string         `json:"status"`
	Amount         float64        `json:"amount"`
	Currency       string         `json:"currency"`
	MSISDN         string         `json:"msisdn"`
	ACR            string         `json:"acr"`
	Extra          map[string]any `json:"-"`
}

// ErrorNotification is the disjoint payload shape carrying an operator
// error code.
type ErrorNotification struct {
	OperatorCode   string `json:"operatorCode"`
	SubscriptionID string `json:"subscriptionId"`
	ErrorCode      string `json:"errorCode"`
	ErrorMessage   string `json:"errorMessage"`
}

// Transaction is the record appended when a success notification confirms a
// charge or renewal.
type Transaction struct {
	SubscriptionID string
	TransactionID  string
	OperatorCode   string
	Amount         float64
	Currency       string
	OccurredAt     time.Time
}

// SubscriptionUpdater applies the declarative transitions. Implemented by
// the caller's subscription layer; this core never owns subscription rows.
type SubscriptionUpdater interface {
	UpdateStatus(ctx context.Context, subscriptionID string, status core.UnifiedStatus) error
	AppendTransaction(ctx context.Context, tx Transaction) error
}

// Ack is what the HTTP layer writes back. It is computed before any business
// processing starts and never changes afterwards.
type Ack struct {
	StatusCode int
	Body       []byte
}

// Processor handles inbound operator notifications: acknowledge first, then
// verify, classify, and dispatch in the background so the sender's retry
// logic never re-delivers a notification that is merely slow to process.
type Processor struct {
	cfg      core.WebhookSettings
	rules    TransitionRules
	updater  SubscriptionUpdater
	observer core.Observer

	// Now is injectable for tests.
	Now func() time.Time

	pending sync.WaitGroup
}

func NewProcessor(
	cfg core.WebhookSettings,
	rules TransitionRules,
	updater SubscriptionUpdater,
	observer core.Observer,
) *Processor {
	return &Processor{
		cfg:      cfg,
		rules:    rules,
		updater:  updater,
		observer: observer,
		Now:      time.Now,
	}
}

// Process returns the acknowledgment immediately and continues business
// handling in the background. Signature mismatches and processing errors are
// logged but never alter the returned ack.
func (p *Processor) Process(ctx context.Context, headers map[string]string, body []byte) Ack {
	ack := Ack{StatusCode: http.StatusOK, Body: []byte(`{"status":"received"}`)}

	if p.cfg.Secret != "" && !p.verify(ctx, headers, body) {
		// Rejected: acknowledged but never processed.
		return ack
	}

	bodyCopy := make([]byte, len(body))
	copy(bodyCopy, body)
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		p.handle(context.WithoutCancel(ctx), bodyCopy)
	}()
	return ack
}

// Wait blocks until background handling finishes. Test and shutdown hook.
func (p *Processor) Wait() {
	p.pending.Wait()
}

func (p *Processor) verify(ctx context.Context, headers map[string]string, body []byte) bool {
	signature := headerValue(headers, p.cfg.SignatureHeader)
	timestamp := headerValue(headers, p.cfg.TimestampHeader)
	if signature == "" || !Verify(p.cfg.Secret, timestamp, body, signature) {
		p.observer.Error(ctx, "inbound webhook signature mismatch", map[string]any{
			"has_signature": signature != "",
			"has_timestamp": timestamp != "",
		})
		return false
	}
	return true
}

func (p *Processor) handle(ctx context.Context, body []byte) {
	startedAt := p.now()

	var probe map[string]any
	if err := json.Unmarshal(body, &probe); err != nil {
		p.observer.Operation(ctx, startedAt, "webhook_inbound", err, map[string]any{
			"reason": "malformed payload",
		})
		return
	}

	// The two payload shapes are disjoint: an error payload always carries
	// errorCode, a success payload never does.
	if code, ok := probe["errorCode"].(string); ok && strings.TrimSpace(code) != "" {
		var notification ErrorNotification
		if err := json.Unmarshal(body, &notification); err != nil {
			p.observer.Operation(ctx, startedAt, "webhook_inbound", err, nil)
			return
		}
		p.handleError(ctx, startedAt, notification)
		return
	}

	var notification SuccessNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		p.observer.Operation(ctx, startedAt, "webhook_inbound", err, nil)
		return
	}
	notification.Extra = probe
	p.handleSuccess(ctx, startedAt, notification)
}

func (p *Processor) handleSuccess(ctx context.Context, startedAt time.Time, notification SuccessNotification) {
	fields := map[string]any{
		"operator_code":   notification.OperatorCode,
		"subscription_id": notification.SubscriptionID,
		"transaction_id":  notification.TransactionID,
		"incoming_status": notification.Status,
	}

	action, ok := p.rules.ForStatus(notification.Status)
	if !ok {
		p.observer.Info(ctx, "inbound status has no transition rule", fields)
		return
	}

	var err error
	if p.updater != nil && notification.SubscriptionID != "" {
		err = p.updater.UpdateStatus(ctx, notification.SubscriptionID, action.SetStatus)
		if err == nil && action.RecordTransaction && notification.TransactionID != "" {
			err = p.updater.AppendTransaction(ctx, Transaction{
				SubscriptionID: notification.SubscriptionID,
				TransactionID:  notification.TransactionID,
				OperatorCode:   notification.OperatorCode,
				Amount:         notification.Amount,
				Currency:       notification.Currency,
				OccurredAt:     p.now(),
			})
		}
	}
	fields["unified_status"] = string(action.SetStatus)
	p.observer.Operation(ctx, startedAt, "webhook_inbound", err, fields)
}

func (p *Processor) handleError(ctx context.Context, startedAt time.Time, notification ErrorNotification) {
	fields := map[string]any{
		"operator_code":   notification.OperatorCode,
		"subscription_id": notification.SubscriptionID,
		"error_code":      notification.ErrorCode,
	}

	action, ok := p.rules.ForError(notification.ErrorCode)
	if !ok {
		p.observer.Info(ctx, "inbound error code has no transition rule", fields)
		return
	}

	var err error
	if p.updater != nil && notification.SubscriptionID != "" {
		err = p.updater.UpdateStatus(ctx, notification.SubscriptionID, action.SetStatus)
	}
	fields["unified_status"] = string(action.SetStatus)
	p.observer.Operation(ctx, startedAt, "webhook_inbound", err, fields)
}

func headerValue(headers map[string]string, name string) string {
	if value, ok := headers[name]; ok {
		return strings.TrimSpace(value)
	}
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
