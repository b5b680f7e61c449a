package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-carrier-billing/core"
)

// Audit actions recorded on administrative registry changes.
const (
	AuditActionEnable  = "operator.enable"
	AuditActionDisable = "operator.disable"
)

// Registry owns the operator bindings: one adapter instance per active
// registration, resolved through a code/alias table. All routing goes
// through it; callers never construct adapters directly.
type Registry struct {
	cfg       core.Config
	observer  core.Observer
	store     core.RegistrationStore
	audit     core.AuditStore
	cache     core.CacheClient
	events    core.OperatorEventBus
	factories map[string]core.AdapterFactory
	fallback  core.AdapterFactory

	mu       sync.RWMutex
	bindings map[string]*binding
	aliases  map[string]string

	initMu   sync.Mutex
	initDone chan struct{}
	initErr  error

	// Now is injectable for tests.
	Now func() time.Time
}

type binding struct {
	registration core.OperatorRegistration
	adapter      core.Adapter
}

type RegistryOption func(*Registry)

func WithAuditStore(store core.AuditStore) RegistryOption {
	return func(r *Registry) { r.audit = store }
}

func WithCacheClient(cache core.CacheClient) RegistryOption {
	return func(r *Registry) { r.cache = cache }
}

func WithEventBus(bus core.OperatorEventBus) RegistryOption {
	return func(r *Registry) { r.events = bus }
}

func WithFactory(code string, factory core.AdapterFactory) RegistryOption {
	return func(r *Registry) {
		r.factories[core.NormalizeOperatorCode(code)] = factory
	}
}

// WithFallbackFactory sets the factory used when a registration's code has
// no dedicated entry, so newly provisioned operators route through the
// config-driven adapter until they get their own.
func WithFallbackFactory(factory core.AdapterFactory) RegistryOption {
	return func(r *Registry) { r.fallback = factory }
}

func NewRegistry(
	cfg core.Config,
	store core.RegistrationStore,
	observer core.Observer,
	options ...RegistryOption,
) (*Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("dispatch: registration store is required")
	}
	registry := &Registry{
		cfg:       cfg,
		observer:  observer,
		store:     store,
		factories: map[string]core.AdapterFactory{},
		bindings:  map[string]*binding{},
		aliases:   map[string]string{},
		Now:       time.Now,
	}
	for _, option := range options {
		option(registry)
	}
	return registry, nil
}

// Initialize loads every active registration and builds its adapter. It is
// idempotent and safe under concurrent callers: the first caller does the
// work, concurrent callers await it, and a failed attempt can be retried.
func (r *Registry) Initialize(ctx context.Context) error {
	r.initMu.Lock()
	if r.initDone != nil {
		done := r.initDone
		r.initMu.Unlock()
		select {
		case <-done:
			r.initMu.Lock()
			err := r.initErr
			r.initMu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	done := make(chan struct{})
	r.initDone = done
	r.initMu.Unlock()

	err := r.initialize(ctx)

	r.initMu.Lock()
	r.initErr = err
	if err != nil {
		// Allow a later call to retry a failed bootstrap.
		r.initDone = nil
	}
	close(done)
	r.initMu.Unlock()
	return err
}

func (r *Registry) initialize(ctx context.Context) error {
	startedAt := r.now()
	registrations, err := r.store.FindActive(ctx)
	if err != nil {
		wrapped := goerrors.Wrap(err, goerrors.CategoryOperation, "dispatch: load registrations failed")
		r.observer.Operation(ctx, startedAt, "registry_initialize", wrapped, nil)
		return wrapped
	}

	bindings := make(map[string]*binding, len(registrations))
	aliases := map[string]string{}
	bound := 0
	for _, registration := range registrations {
		code := core.NormalizeOperatorCode(registration.Code)
		if code == "" {
			continue
		}
		registration.Code = code
		adapter, profile, err := r.buildAdapter(registration)
		if err != nil {
			// One bad registration must not block the rest of the fleet.
			r.observer.Error(ctx, "operator binding failed", map[string]any{
				"operator_code": code,
				"error":         err.Error(),
			})
			continue
		}
		bindings[code] = &binding{registration: registration, adapter: adapter}
		for _, alias := range profile.Aliases {
			alias = core.NormalizeOperatorCode(alias)
			if alias != "" && alias != code {
				aliases[alias] = code
			}
		}
		bound++
	}

	r.mu.Lock()
	r.bindings = bindings
	r.aliases = aliases
	r.mu.Unlock()

	r.observer.Operation(ctx, startedAt, "registry_initialize", nil, map[string]any{
		"registered": len(registrations),
		"bound":      bound,
	})
	return nil
}

func (r *Registry) buildAdapter(registration core.OperatorRegistration) (core.Adapter, core.OperatorProfile, error) {
	profile, err := decodeProfile(registration)
	if err != nil {
		return nil, core.OperatorProfile{}, err
	}
	factory, ok := r.factories[registration.Code]
	if !ok {
		factory = r.fallback
	}
	if factory == nil {
		return nil, core.OperatorProfile{}, fmt.Errorf("dispatch: no adapter factory for operator %s", registration.Code)
	}
	adapter, err := factory(profile)
	if err != nil {
		return nil, core.OperatorProfile{}, err
	}
	return adapter, adapter.Profile(), nil
}

func decodeProfile(registration core.OperatorRegistration) (core.OperatorProfile, error) {
	profile, err := cfgx.Build[core.OperatorProfile](registration.Config)
	if err != nil {
		return core.OperatorProfile{}, fmt.Errorf("dispatch: decode profile for %s: %w", registration.Code, err)
	}
	if profile.Code == "" {
		profile.Code = registration.Code
	}
	if profile.Name == "" {
		profile.Name = registration.Name
	}
	return profile, nil
}

// GetAdapter resolves a code or alias to a bound, enabled adapter.
func (r *Registry) GetAdapter(ctx context.Context, code string) (core.Adapter, error) {
	resolved := r.resolveCode(code)

	r.mu.RLock()
	bound, ok := r.bindings[resolved]
	r.mu.RUnlock()
	if !ok {
		return nil, core.NewDispatchError(
			fmt.Sprintf("operator %q is not registered", core.NormalizeOperatorCode(code)),
			core.BillingErrorOperatorNotFound,
			resolved,
		)
	}

	enabled, err := r.IsEnabled(ctx, resolved)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, core.NewDispatchError(
			fmt.Sprintf("operator %q is disabled", resolved),
			core.BillingErrorOperatorDisabled,
			resolved,
		)
	}
	return bound.adapter, nil
}

// IsEnabled answers from the cache when possible, then the in-memory
// binding, then the store. Cache failures are never fatal.
func (r *Registry) IsEnabled(ctx context.Context, code string) (bool, error) {
	resolved := r.resolveCode(code)

	if r.cache != nil {
		if value, found, err := r.cache.Get(ctx, r.cacheKey(resolved)); err == nil && found {
			if enabled, perr := strconv.ParseBool(value); perr == nil {
				return enabled, nil
			}
		}
	}

	r.mu.RLock()
	bound, ok := r.bindings[resolved]
	r.mu.RUnlock()
	if ok {
		enabled := bound.registration.Enabled
		r.cacheEnabled(ctx, resolved, enabled)
		return enabled, nil
	}

	registration, err := r.store.Load(ctx, resolved)
	if err != nil {
		return false, core.NewDispatchError(
			fmt.Sprintf("operator %q is not registered", resolved),
			core.BillingErrorOperatorNotFound,
			resolved,
		)
	}
	r.cacheEnabled(ctx, resolved, registration.Enabled)
	return registration.Enabled, nil
}

// Enable turns an operator back on, clears its disable reason, refreshes the
// cache, and records the action.
func (r *Registry) Enable(ctx context.Context, code string, actorID string) error {
	return r.setEnabled(ctx, code, true, "", actorID)
}

// Disable takes an operator out of rotation. A reason is mandatory; it ends
// up in the registration row, the audit log, and the published event.
func (r *Registry) Disable(ctx context.Context, code string, reason string, actorID string) error {
	return r.setEnabled(ctx, code, false, reason, actorID)
}

func (r *Registry) setEnabled(ctx context.Context, code string, enabled bool, reason string, actorID string) error {
	startedAt := r.now()
	resolved := r.resolveCode(code)
	operation := "operator_disable"
	if enabled {
		operation = "operator_enable"
	}
	fields := map[string]any{"operator_code": resolved, "actor_id": actorID}

	// Validate the transition locally before touching the store.
	probe := core.OperatorRegistration{Code: resolved, Enabled: !enabled}
	if err := probe.SetEnabled(enabled, reason, startedAt); err != nil {
		r.observer.Operation(ctx, startedAt, operation, err, fields)
		return err
	}

	update := core.RegistrationUpdate{Enabled: &enabled}
	if enabled {
		empty := ""
		update.DisableReason = &empty
	} else {
		update.DisableReason = &reason
	}
	registration, err := r.store.Update(ctx, resolved, update)
	if err != nil {
		wrapped := goerrors.Wrap(err, goerrors.CategoryOperation, "dispatch: registration update failed").
			WithMetadata(map[string]any{core.ErrMetaOperatorCode: resolved})
		r.observer.Operation(ctx, startedAt, operation, wrapped, fields)
		return wrapped
	}

	r.mu.Lock()
	if bound, ok := r.bindings[resolved]; ok {
		bound.registration = registration
	}
	r.mu.Unlock()

	r.cacheEnabled(ctx, resolved, enabled)
	r.appendAudit(ctx, resolved, enabled, reason, actorID)
	r.publishToggle(ctx, resolved, enabled, reason, actorID)
	r.observer.Operation(ctx, startedAt, operation, nil, fields)
	return nil
}

func (r *Registry) appendAudit(ctx context.Context, code string, enabled bool, reason string, actorID string) {
	if r.audit == nil {
		return
	}
	action := AuditActionDisable
	if enabled {
		action = AuditActionEnable
	}
	entry := core.AuditEntry{
		ID:           uuid.NewString(),
		OperatorCode: code,
		Action:       action,
		ActorID:      actorID,
		Reason:       reason,
		CreatedAt:    r.now(),
	}
	if err := r.audit.Append(ctx, entry); err != nil {
		r.observer.Error(ctx, "audit append failed", map[string]any{
			"operator_code": code,
			"action":        action,
			"error":         err.Error(),
		})
	}
}

func (r *Registry) publishToggle(ctx context.Context, code string, enabled bool, reason string, actorID string) {
	if r.events == nil {
		return
	}
	name := core.OperatorEventDisabled
	if enabled {
		name = core.OperatorEventEnabled
	}
	_ = r.events.Publish(ctx, core.OperatorEvent{
		ID:           uuid.NewString(),
		Name:         name,
		OperatorCode: code,
		ActorID:      actorID,
		Reason:       reason,
		OccurredAt:   r.now(),
	})
}

func (r *Registry) cacheEnabled(ctx context.Context, code string, enabled bool) {
	if r.cache == nil {
		return
	}
	err := r.cache.SetWithTTL(ctx, r.cacheKey(code), strconv.FormatBool(enabled), r.cfg.Cache.EnabledTTL())
	if err != nil {
		r.observer.Info(ctx, "enabled-flag cache write failed", map[string]any{
			"operator_code": code,
			"error":         err.Error(),
		})
	}
}

func (r *Registry) cacheKey(code string) string {
	return r.cfg.Cache.KeyPrefix + "::" + code
}

func (r *Registry) resolveCode(code string) string {
	normalized := core.NormalizeOperatorCode(code)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.aliases[normalized]; ok {
		return target
	}
	return normalized
}

// Codes returns the bound operator codes, for probes and statistics.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.bindings))
	for code := range r.bindings {
		codes = append(codes, code)
	}
	return codes
}

func (r *Registry) registration(code string) (core.OperatorRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bound, ok := r.bindings[code]
	if !ok {
		return core.OperatorRegistration{}, false
	}
	return bound.registration, true
}

func (r *Registry) adapter(code string) (core.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bound, ok := r.bindings[code]
	if !ok {
		return nil, false
	}
	return bound.adapter, true
}

// setHealth persists a probe outcome and mirrors it on the binding.
func (r *Registry) setHealth(ctx context.Context, code string, score float64, probedAt time.Time) error {
	update := core.RegistrationUpdate{
		HealthScore:       &score,
		LastHealthCheckAt: &probedAt,
	}
	registration, err := r.store.Update(ctx, code, update)
	if err != nil {
		return err
	}
	r.mu.Lock()
	if bound, ok := r.bindings[code]; ok {
		bound.registration = registration
	}
	r.mu.Unlock()

	if r.events != nil {
		_ = r.events.Publish(ctx, core.OperatorEvent{
			ID:           uuid.NewString(),
			Name:         core.OperatorEventHealth,
			OperatorCode: code,
			HealthScore:  score,
			OccurredAt:   probedAt,
		})
	}
	return nil
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
