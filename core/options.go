package core

import (
	"context"
	"fmt"

	"github.com/goliatone/go-config/cfgx"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// Dependencies collects everything the root assembly wires into the
// dispatcher and webhook subsystem. The instance built from it is passed
// explicitly to the HTTP layer; there is no hidden global.
type Dependencies struct {
	Config            Config
	Logger            Logger
	LoggerProvider    LoggerProvider
	Metrics           MetricsRecorder
	Registrations     RegistrationStore
	Audit             AuditStore
	Cache             CacheClient
	Transport         TransportAdapter
	Events            OperatorEventBus
	Enqueuer          JobEnqueuer
	Factories         map[string]AdapterFactory
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	PersistenceClient any
}

type Option func(*Dependencies)

func WithLogger(logger Logger) Option {
	return func(d *Dependencies) { d.Logger = logger }
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(d *Dependencies) { d.LoggerProvider = provider }
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(d *Dependencies) { d.Metrics = recorder }
}

func WithRegistrationStore(store RegistrationStore) Option {
	return func(d *Dependencies) { d.Registrations = store }
}

func WithAuditStore(store AuditStore) Option {
	return func(d *Dependencies) { d.Audit = store }
}

func WithCacheClient(cache CacheClient) Option {
	return func(d *Dependencies) { d.Cache = cache }
}

func WithTransportAdapter(transport TransportAdapter) Option {
	return func(d *Dependencies) { d.Transport = transport }
}

func WithEventBus(bus OperatorEventBus) Option {
	return func(d *Dependencies) { d.Events = bus }
}

func WithJobEnqueuer(enqueuer JobEnqueuer) Option {
	return func(d *Dependencies) { d.Enqueuer = enqueuer }
}

func WithAdapterFactory(code string, factory AdapterFactory) Option {
	return func(d *Dependencies) {
		if d.Factories == nil {
			d.Factories = map[string]AdapterFactory{}
		}
		d.Factories[NormalizeOperatorCode(code)] = factory
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(d *Dependencies) { d.ConfigProvider = provider }
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(d *Dependencies) { d.OptionsResolver = resolver }
}

func WithPersistenceClient(client any) Option {
	return func(d *Dependencies) { d.PersistenceClient = client }
}

func DefaultDependencies(runtime Config) Dependencies {
	loggerProvider, logger := glog.Resolve("carrier-billing", nil, nil)
	return Dependencies{
		Config:          runtime,
		LoggerProvider:  loggerProvider,
		Logger:          logger,
		Metrics:         NopMetricsRecorder{},
		ConfigProvider:  NewCfgxConfigProvider(nil),
		OptionsResolver: GoOptionsResolver{},
	}
}

// ResolveConfig layers defaults < loaded config < runtime overrides.
func ResolveConfig(ctx context.Context, deps Dependencies) (Config, error) {
	defaults := DefaultConfig()
	provider := deps.ConfigProvider
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	resolver := deps.OptionsResolver
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	return resolver.Resolve(defaults, loaded, deps.Config)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || cfg.ServiceName != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || cfg.Environment != "" {
		layer["environment"] = cfg.Environment
	}

	health := map[string]any{}
	if includeZero || cfg.Health.IntervalSeconds != 0 {
		health["interval_seconds"] = cfg.Health.IntervalSeconds
	}
	if includeZero || cfg.Health.ProbeTimeoutMS != 0 {
		health["probe_timeout_ms"] = cfg.Health.ProbeTimeoutMS
	}
	if includeZero || cfg.Health.OperationalThreshold != 0 {
		health["operational_threshold"] = cfg.Health.OperationalThreshold
	}
	bands := map[string]any{}
	if includeZero || cfg.Health.Bands.FastUnderMS != 0 {
		bands["fast_under_ms"] = cfg.Health.Bands.FastUnderMS
	}
	if includeZero || cfg.Health.Bands.MediumUnderMS != 0 {
		bands["medium_under_ms"] = cfg.Health.Bands.MediumUnderMS
	}
	if includeZero || cfg.Health.Bands.SlowUnderMS != 0 {
		bands["slow_under_ms"] = cfg.Health.Bands.SlowUnderMS
	}
	if includeZero || cfg.Health.Bands.FastScore != 0 {
		bands["fast_score"] = cfg.Health.Bands.FastScore
	}
	if includeZero || cfg.Health.Bands.MediumScore != 0 {
		bands["medium_score"] = cfg.Health.Bands.MediumScore
	}
	if includeZero || cfg.Health.Bands.SlowScore != 0 {
		bands["slow_score"] = cfg.Health.Bands.SlowScore
	}
	if includeZero || cfg.Health.Bands.DegradedScore != 0 {
		bands["degraded_score"] = cfg.Health.Bands.DegradedScore
	}
	if includeZero || cfg.Health.Bands.FailureScore != 0 {
		bands["failure_score"] = cfg.Health.Bands.FailureScore
	}
	if len(bands) > 0 {
		health["bands"] = bands
	}
	if len(health) > 0 {
		layer["health"] = health
	}

	webhooks := map[string]any{}
	if includeZero || cfg.Webhooks.Secret != "" {
		webhooks["secret"] = cfg.Webhooks.Secret
	}
	if includeZero || cfg.Webhooks.SignatureHeader != "" {
		webhooks["signature_header"] = cfg.Webhooks.SignatureHeader
	}
	if includeZero || cfg.Webhooks.TimestampHeader != "" {
		webhooks["timestamp_header"] = cfg.Webhooks.TimestampHeader
	}
	if includeZero || len(cfg.Webhooks.RetryOffsetHours) > 0 {
		webhooks["retry_offset_hours"] = append([]int(nil), cfg.Webhooks.RetryOffsetHours...)
	}
	if includeZero || cfg.Webhooks.DeliveryTimeoutMS != 0 {
		webhooks["delivery_timeout_ms"] = cfg.Webhooks.DeliveryTimeoutMS
	}
	if len(webhooks) > 0 {
		layer["webhooks"] = webhooks
	}

	cache := map[string]any{}
	if includeZero || cfg.Cache.KeyPrefix != "" {
		cache["key_prefix"] = cfg.Cache.KeyPrefix
	}
	if includeZero || cfg.Cache.EnabledTTLSeconds != 0 {
		cache["enabled_ttl_seconds"] = cfg.Cache.EnabledTTLSeconds
	}
	if len(cache) > 0 {
		layer["cache"] = cache
	}
	return layer
}
