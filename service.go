package carrierbilling

import (
	"context"
	"fmt"

	"github.com/goliatone/go-carrier-billing/adapters/gologger"
	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/dispatch"
	"github.com/goliatone/go-carrier-billing/query"
	sqlstore "github.com/goliatone/go-carrier-billing/store/sql"
	"github.com/goliatone/go-carrier-billing/transport"
	"github.com/goliatone/go-carrier-billing/webhooks"
)

// Service is the assembled billing core: the operator registry, its health
// monitor, and the outbound webhook deliverer behind one surface. Commands
// and queries route through it; HTTP layers receive it explicitly.
type Service struct {
	config   core.Config
	deps     core.Dependencies
	observer core.Observer

	registry  *dispatch.Registry
	monitor   *dispatch.HealthMonitor
	deliverer *webhooks.Deliverer
	audit     query.AuditReader
}

func NewService(cfg core.Config, opts ...core.Option) (*Service, error) {
	deps := core.DefaultDependencies(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&deps)
	}

	provider, logger := gologger.Resolve("carrier-billing", deps.LoggerProvider, deps.Logger)
	deps.LoggerProvider = provider
	deps.Logger = logger
	if deps.Metrics == nil {
		deps.Metrics = core.NopMetricsRecorder{}
	}
	observer := core.Observer{Logger: logger, Metrics: deps.Metrics}

	finalConfig, err := core.ResolveConfig(context.Background(), deps)
	if err != nil {
		return nil, err
	}

	if deps.Transport == nil {
		deps.Transport = transport.NewRESTAdapter(nil)
	}

	registrations := deps.Registrations
	auditStore := deps.Audit
	var auditReader query.AuditReader
	var deliveryStore webhooks.DeliveryStore
	if deps.PersistenceClient != nil && (registrations == nil || auditStore == nil) {
		factory := sqlstore.NewRepositoryFactory()
		if err := factory.BuildStores(deps.PersistenceClient); err != nil {
			return nil, err
		}
		if registrations == nil {
			registrations = factory.RegistrationStore()
		}
		if auditStore == nil {
			store := factory.AuditStore()
			auditStore = store
			auditReader = store
		}
		deliveryStore = factory.DeliveryStore()
	}
	if registrations == nil {
		return nil, fmt.Errorf("carrierbilling: registration store is required")
	}
	if auditReader == nil {
		if reader, ok := auditStore.(query.AuditReader); ok {
			auditReader = reader
		}
	}
	if deliveryStore == nil {
		deliveryStore = webhooks.NewMemoryDeliveryStore()
	}

	factories := DefaultFactories(deps.Transport, observer)
	if finalConfig.Environment != "production" {
		factories[DevkitCode] = DevkitFactory(observer)
	}
	for code, factory := range deps.Factories {
		factories[core.NormalizeOperatorCode(code)] = factory
	}

	registryOptions := []dispatch.RegistryOption{
		dispatch.WithFallbackFactory(GenericFactory(deps.Transport, observer)),
	}
	if auditStore != nil {
		registryOptions = append(registryOptions, dispatch.WithAuditStore(auditStore))
	}
	if deps.Cache != nil {
		registryOptions = append(registryOptions, dispatch.WithCacheClient(deps.Cache))
	}
	if deps.Events != nil {
		registryOptions = append(registryOptions, dispatch.WithEventBus(deps.Events))
	}
	for code, factory := range factories {
		registryOptions = append(registryOptions, dispatch.WithFactory(code, factory))
	}

	registry, err := dispatch.NewRegistry(finalConfig, registrations, observer, registryOptions...)
	if err != nil {
		return nil, err
	}

	var delivererOptions []webhooks.DelivererOption
	if deps.Enqueuer != nil {
		delivererOptions = append(delivererOptions, webhooks.WithJobEnqueuer(deps.Enqueuer))
	}
	deliverer, err := webhooks.NewDeliverer(finalConfig.Webhooks, deps.Transport, deliveryStore, observer, delivererOptions...)
	if err != nil {
		return nil, err
	}

	deps.Config = finalConfig
	deps.Registrations = registrations
	deps.Audit = auditStore
	return &Service{
		config:    finalConfig,
		deps:      deps,
		observer:  observer,
		registry:  registry,
		monitor:   dispatch.NewHealthMonitor(registry, finalConfig.Health, observer),
		deliverer: deliverer,
		audit:     auditReader,
	}, nil
}

func Setup(cfg core.Config, opts ...core.Option) (*Service, error) {
	return NewService(cfg, opts...)
}

// Start binds the active registrations, resumes any outstanding webhook
// deliveries, and begins periodic health probing.
func (s *Service) Start(ctx context.Context) error {
	if err := s.registry.Initialize(ctx); err != nil {
		return err
	}
	if err := s.deliverer.Resume(ctx); err != nil {
		return err
	}
	s.monitor.Start(ctx)
	return nil
}

// Stop halts health probing and cancels pending webhook timers. In-flight
// attempts are left to finish; call the deliverer's Wait to block on them.
func (s *Service) Stop() {
	s.monitor.Stop()
	s.deliverer.Stop()
}

func (s *Service) Config() core.Config {
	if s == nil {
		return core.Config{}
	}
	return s.config
}

func (s *Service) Dependencies() core.Dependencies {
	if s == nil {
		return core.Dependencies{}
	}
	return s.deps
}

func (s *Service) Registry() *dispatch.Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) HealthMonitor() *dispatch.HealthMonitor {
	if s == nil {
		return nil
	}
	return s.monitor
}

func (s *Service) Deliverer() *webhooks.Deliverer {
	if s == nil {
		return nil
	}
	return s.deliverer
}

// InboundProcessor builds the notification processor over the caller's
// subscription layer. The core never owns subscription rows, so the updater
// always comes from outside.
func (s *Service) InboundProcessor(updater webhooks.SubscriptionUpdater) *webhooks.Processor {
	return webhooks.NewProcessor(s.config.Webhooks, webhooks.DefaultTransitionRules(), updater, s.observer)
}

func (s *Service) CreateSubscription(ctx context.Context, operatorCode string, req core.SubscriptionRequest) (core.UnifiedResult, error) {
	adapter, err := s.registry.GetAdapter(ctx, operatorCode)
	if err != nil {
		return core.UnifiedResult{}, err
	}
	return adapter.CreateSubscription(ctx, req)
}

func (s *Service) CancelSubscription(ctx context.Context, operatorCode string, req core.CancelRequest) (core.UnifiedResult, error) {
	adapter, err := s.registry.GetAdapter(ctx, operatorCode)
	if err != nil {
		return core.UnifiedResult{}, err
	}
	return adapter.CancelSubscription(ctx, req)
}

func (s *Service) SubscriptionStatus(ctx context.Context, operatorCode string, req core.StatusRequest) (core.UnifiedResult, error) {
	adapter, err := s.registry.GetAdapter(ctx, operatorCode)
	if err != nil {
		return core.UnifiedResult{}, err
	}
	return adapter.SubscriptionStatus(ctx, req)
}

func (s *Service) GeneratePIN(ctx context.Context, operatorCode string, req core.PINRequest) (core.UnifiedResult, error) {
	adapter, err := s.registry.GetAdapter(ctx, operatorCode)
	if err != nil {
		return core.UnifiedResult{}, err
	}
	return adapter.GeneratePIN(ctx, req)
}

func (s *Service) Charge(ctx context.Context, operatorCode string, req core.ChargeRequest) (core.UnifiedResult, error) {
	adapter, err := s.registry.GetAdapter(ctx, operatorCode)
	if err != nil {
		return core.UnifiedResult{}, err
	}
	return adapter.Charge(ctx, req)
}

func (s *Service) Refund(ctx context.Context, operatorCode string, req core.RefundRequest) (core.UnifiedResult, error) {
	adapter, err := s.registry.GetAdapter(ctx, operatorCode)
	if err != nil {
		return core.UnifiedResult{}, err
	}
	return adapter.Refund(ctx, req)
}

func (s *Service) CheckEligibility(ctx context.Context, operatorCode string, req core.EligibilityRequest) (core.UnifiedResult, error) {
	adapter, err := s.registry.GetAdapter(ctx, operatorCode)
	if err != nil {
		return core.UnifiedResult{}, err
	}
	return adapter.CheckEligibility(ctx, req)
}

func (s *Service) Enable(ctx context.Context, code string, actorID string) error {
	return s.registry.Enable(ctx, code, actorID)
}

func (s *Service) Disable(ctx context.Context, code string, reason string, actorID string) error {
	return s.registry.Disable(ctx, code, reason, actorID)
}

func (s *Service) Send(ctx context.Context, url string, eventType string, payload []byte) (webhooks.Delivery, error) {
	return s.deliverer.Send(ctx, url, eventType, payload)
}

func (s *Service) Resume(ctx context.Context) error {
	return s.deliverer.Resume(ctx)
}

func (s *Service) History(ctx context.Context, operatorCode string, limit int) ([]core.AuditEntry, error) {
	if s == nil || s.audit == nil {
		return nil, fmt.Errorf("carrierbilling: audit history requires a persistent audit store")
	}
	return s.audit.History(ctx, operatorCode, limit)
}
