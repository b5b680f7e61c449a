package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-carrier-billing/core"
)

// HealthMonitor probes every enabled operator on a fixed interval and feeds
// latency-derived scores back into the registry. Probes are fire-and-forget
// per operator: one slow or failing operator never delays the others or the
// next round.
type HealthMonitor struct {
	registry *Registry
	cfg      core.HealthConfig
	observer core.Observer

	mu      sync.Mutex
	stop    chan struct{}
	rounds  sync.WaitGroup
	running bool

	// Now is injectable for tests.
	Now func() time.Time
}

func NewHealthMonitor(registry *Registry, cfg core.HealthConfig, observer core.Observer) *HealthMonitor {
	return &HealthMonitor{
		registry: registry,
		cfg:      cfg,
		observer: observer,
		Now:      time.Now,
	}
}

// Start launches the probe loop. A zero or negative interval disables it.
func (m *HealthMonitor) Start(ctx context.Context) {
	interval := m.cfg.Interval()
	if interval <= 0 {
		return
	}
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.RunRound(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	m.mu.Unlock()
	m.rounds.Wait()
}

// RunRound fires one concurrent probe per enabled operator and returns
// without waiting for them.
func (m *HealthMonitor) RunRound(ctx context.Context) {
	for _, code := range m.registry.Codes() {
		registration, ok := m.registry.registration(code)
		if !ok || !registration.Enabled {
			continue
		}
		adapter, ok := m.registry.adapter(code)
		if !ok {
			continue
		}
		m.rounds.Add(1)
		go func(code string, adapter core.Adapter) {
			defer m.rounds.Done()
			m.probe(ctx, code, adapter)
		}(code, adapter)
	}
}

// WaitForProbes blocks until every in-flight probe finishes. Test hook.
func (m *HealthMonitor) WaitForProbes() {
	m.rounds.Wait()
}

func (m *HealthMonitor) probe(ctx context.Context, code string, adapter core.Adapter) {
	probeCtx := ctx
	cancel := func() {}
	if timeout := m.cfg.ProbeTimeout(); timeout > 0 {
		probeCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	startedAt := m.now()
	_, err := adapter.CheckEligibility(probeCtx, core.EligibilityRequest{
		MSISDN: adapter.Profile().ProbeIdentifier,
		ACR:    adapter.Profile().ProbeIdentifier,
	})
	latency := m.now().Sub(startedAt)
	score := ScoreProbe(m.cfg.Bands, latency, err != nil)

	if serr := m.registry.setHealth(ctx, code, score, m.now()); serr != nil {
		m.observer.Error(ctx, "health score update failed", map[string]any{
			"operator_code": code,
			"error":         serr.Error(),
		})
		return
	}

	fields := map[string]any{
		"operator_code": code,
		"latency_ms":    latency.Milliseconds(),
		"health_score":  score,
	}
	if err != nil {
		fields["probe_error"] = err.Error()
	}
	m.observer.Info(ctx, "operator health probe", fields)
}

// ScoreProbe derives the [0,1] health score from probe latency. Failures get
// a low fixed score rather than zero so one blip does not zero out an
// otherwise healthy operator.
func ScoreProbe(bands core.HealthBands, latency time.Duration, failed bool) float64 {
	if failed {
		return bands.FailureScore
	}
	ms := int(latency.Milliseconds())
	switch {
	case ms < bands.FastUnderMS:
		return bands.FastScore
	case ms < bands.MediumUnderMS:
		return bands.MediumScore
	case ms < bands.SlowUnderMS:
		return bands.SlowScore
	default:
		return bands.DegradedScore
	}
}

func (m *HealthMonitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
