package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Operation names used for limit lookups, logging, and metrics tags.
const (
	OpCreateSubscription = "create_subscription"
	OpCancelSubscription = "cancel_subscription"
	OpSubscriptionStatus = "subscription_status"
	OpGeneratePIN        = "generate_pin"
	OpCharge             = "charge"
	OpRefund             = "refund"
	OpCheckEligibility   = "check_eligibility"
)

// Identifier modes an operator accepts.
const (
	IdentifierModeMSISDN = "msisdn"
	IdentifierModeACR    = "acr"
)

type AmountLimits struct {
	Min float64 `koanf:"min" mapstructure:"min"`
	Max float64 `koanf:"max" mapstructure:"max"`
	// MaxPerIdentifier caps concurrent subscriptions per subscriber. Enforced
	// by the persistence layer, which owns the durable counters; carried here
	// so adapters can surface the declared limit.
	MaxPerIdentifier int `koanf:"max_per_identifier" mapstructure:"max_per_identifier"`
}

// OperatorProfile is the decoded per-operator configuration an adapter is
// constructed from: endpoint, currency, identifier rules, and business limits.
type OperatorProfile struct {
	Code              string                  `koanf:"code" mapstructure:"code"`
	Name              string                  `koanf:"name" mapstructure:"name"`
	Environment       string                  `koanf:"environment" mapstructure:"environment"`
	Endpoint          string                  `koanf:"endpoint" mapstructure:"endpoint"`
	Currency          string                  `koanf:"currency" mapstructure:"currency"`
	CountryPrefix     string                  `koanf:"country_prefix" mapstructure:"country_prefix"`
	MSISDNPattern     string                  `koanf:"msisdn_pattern" mapstructure:"msisdn_pattern"`
	MSISDNExample     string                  `koanf:"msisdn_example" mapstructure:"msisdn_example"`
	IdentifierMode    string                  `koanf:"identifier_mode" mapstructure:"identifier_mode"`
	ACRLength         int                     `koanf:"acr_length" mapstructure:"acr_length"`
	RequireCorrelator bool                    `koanf:"require_correlator" mapstructure:"require_correlator"`
	StatusFamily      string                  `koanf:"status_family" mapstructure:"status_family"`
	ProbeIdentifier   string                  `koanf:"probe_identifier" mapstructure:"probe_identifier"`
	CallTimeout       time.Duration           `koanf:"call_timeout" mapstructure:"call_timeout"`
	Headers           map[string]string       `koanf:"headers" mapstructure:"headers"`
	Limits            map[string]AmountLimits `koanf:"limits" mapstructure:"limits"`
	Aliases           []string                `koanf:"aliases" mapstructure:"aliases"`
}

type SubscriptionRequest struct {
	MSISDN     string
	ACR        string
	Correlator string
	ServiceID  string
	Amount     float64
	Currency   string
	Frequency  string
	PIN        string
	Metadata   map[string]any
}

type CancelRequest struct {
	SubscriptionID string
	MSISDN         string
	ACR            string
	Reason         string
	Metadata       map[string]any
}

type StatusRequest struct {
	SubscriptionID string
	MSISDN         string
	ACR            string
	Metadata       map[string]any
}

type PINRequest struct {
	MSISDN    string
	ACR       string
	ServiceID string
	Template  string
	Metadata  map[string]any
}

type ChargeRequest struct {
	MSISDN         string
	ACR            string
	Correlator     string
	ServiceID      string
	Amount         float64
	Currency       string
	TransactionRef string
	Metadata       map[string]any
}

type RefundRequest struct {
	TransactionID string
	Amount        float64
	Reason        string
	Metadata      map[string]any
}

type EligibilityRequest struct {
	MSISDN    string
	ACR       string
	ServiceID string
	Amount    float64
	Metadata  map[string]any
}

// Adapter is the uniform surface every operator implementation satisfies.
// Callers never instantiate adapters directly; they resolve them through the
// dispatcher.
type Adapter interface {
	Code() string
	Profile() OperatorProfile

	CreateSubscription(ctx context.Context, req SubscriptionRequest) (UnifiedResult, error)
	CancelSubscription(ctx context.Context, req CancelRequest) (UnifiedResult, error)
	SubscriptionStatus(ctx context.Context, req StatusRequest) (UnifiedResult, error)
	GeneratePIN(ctx context.Context, req PINRequest) (UnifiedResult, error)
	Charge(ctx context.Context, req ChargeRequest) (UnifiedResult, error)
	Refund(ctx context.Context, req RefundRequest) (UnifiedResult, error)
	CheckEligibility(ctx context.Context, req EligibilityRequest) (UnifiedResult, error)

	// Mapping hooks consumed by the shared scaffolding and the normalizer.
	MapResponseData(raw map[string]any) map[string]any
	MapStatus(raw string) UnifiedStatus
	MapError(err error, raw map[string]any) *goerrors.Error
}

// AdapterFactory builds one adapter instance from a decoded profile. The
// dispatcher's resolution table maps operator codes (and aliases) to these.
type AdapterFactory func(profile OperatorProfile) (Adapter, error)

// RegistrationUpdate carries the mutable registration fields. Nil means leave
// unchanged.
type RegistrationUpdate struct {
	Enabled           *bool
	DisableReason     *string
	Status            *RegistrationStatus
	HealthScore       *float64
	LastHealthCheckAt *time.Time
	Config            map[string]any
}

// RegistrationStore is the only persistence surface the dispatcher consumes;
// the relational schema behind it is external.
type RegistrationStore interface {
	FindActive(ctx context.Context) ([]OperatorRegistration, error)
	Load(ctx context.Context, code string) (OperatorRegistration, error)
	Update(ctx context.Context, code string, update RegistrationUpdate) (OperatorRegistration, error)
}

type AuditStore interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// CacheClient is best effort: every call site tolerates the cache being
// absent or failing and falls through to the next source.
type CacheClient interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type TransportRequest struct {
	Method      string
	URL         string
	Headers     map[string]string
	Query       map[string]string
	Body        []byte
	Metadata    map[string]any
	Timeout     time.Duration
	Idempotency string

	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type OperatorEventHandler interface {
	Handle(ctx context.Context, event OperatorEvent) error
}

// OperatorEventBus is the in-process replacement for the source's event
// emitter: an explicit observer list, no cross-process delivery.
type OperatorEventBus interface {
	Publish(ctx context.Context, event OperatorEvent) error
	Subscribe(handler OperatorEventHandler)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

// JobEnqueuer hands work to an external queue. The webhook deliverer can
// offload scheduled retries through it instead of in-process timers.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}
