package carrierbilling

import "github.com/goliatone/go-carrier-billing/core"

type Config = core.Config

type HealthConfig = core.HealthConfig

type WebhookSettings = core.WebhookSettings

type CacheSettings = core.CacheSettings

type Option = core.Option

type Dependencies = core.Dependencies
type Adapter = core.Adapter
type AdapterFactory = core.AdapterFactory
type OperatorProfile = core.OperatorProfile
type OperatorRegistration = core.OperatorRegistration
type RegistrationStore = core.RegistrationStore
type AuditStore = core.AuditStore
type AuditEntry = core.AuditEntry
type CacheClient = core.CacheClient
type TransportAdapter = core.TransportAdapter
type OperatorEventBus = core.OperatorEventBus
type JobEnqueuer = core.JobEnqueuer

type UnifiedResult = core.UnifiedResult
type UnifiedStatus = core.UnifiedStatus

type SubscriptionRequest = core.SubscriptionRequest
type CancelRequest = core.CancelRequest
type StatusRequest = core.StatusRequest
type PINRequest = core.PINRequest
type ChargeRequest = core.ChargeRequest
type RefundRequest = core.RefundRequest
type EligibilityRequest = core.EligibilityRequest

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithRegistrationStore = core.WithRegistrationStore
	WithAuditStore        = core.WithAuditStore
	WithCacheClient       = core.WithCacheClient
	WithTransportAdapter  = core.WithTransportAdapter
	WithEventBus          = core.WithEventBus
	WithJobEnqueuer       = core.WithJobEnqueuer
	WithAdapterFactory    = core.WithAdapterFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithPersistenceClient = core.WithPersistenceClient
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}
