package carrierbilling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-carrier-billing/core"
)

type memoryRegistrationStore struct {
	mu   sync.Mutex
	regs map[string]core.OperatorRegistration
}

func newMemoryRegistrationStore(regs ...core.OperatorRegistration) *memoryRegistrationStore {
	store := &memoryRegistrationStore{regs: map[string]core.OperatorRegistration{}}
	for _, reg := range regs {
		store.regs[core.NormalizeOperatorCode(reg.Code)] = reg
	}
	return store
}

func (s *memoryRegistrationStore) FindActive(context.Context) ([]core.OperatorRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.OperatorRegistration, 0, len(s.regs))
	for _, reg := range s.regs {
		if reg.Status != core.RegistrationStatusRetired {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (s *memoryRegistrationStore) Load(_ context.Context, code string) (core.OperatorRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[core.NormalizeOperatorCode(code)]
	if !ok {
		return core.OperatorRegistration{}, goerrors.New("operator not found", goerrors.CategoryNotFound)
	}
	return reg, nil
}

func (s *memoryRegistrationStore) Update(ctx context.Context, code string, update core.RegistrationUpdate) (core.OperatorRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	normalized := core.NormalizeOperatorCode(code)
	reg, ok := s.regs[normalized]
	if !ok {
		return core.OperatorRegistration{}, goerrors.New("operator not found", goerrors.CategoryNotFound)
	}
	if update.Enabled != nil {
		reg.Enabled = *update.Enabled
	}
	if update.DisableReason != nil {
		reg.DisableReason = *update.DisableReason
	}
	if update.Status != nil {
		reg.Status = *update.Status
	}
	if update.HealthScore != nil {
		reg.HealthScore = *update.HealthScore
	}
	if update.LastHealthCheckAt != nil {
		reg.LastHealthCheckAt = update.LastHealthCheckAt
	}
	if update.Config != nil {
		reg.Config = update.Config
	}
	s.regs[normalized] = reg
	return reg, nil
}

type recordingAdapter struct {
	profile core.OperatorProfile

	mu  sync.Mutex
	ops []string
}

func (a *recordingAdapter) record(op string) core.UnifiedResult {
	a.mu.Lock()
	a.ops = append(a.ops, op)
	a.mu.Unlock()
	return core.SuccessResult(core.ResultData{
		SubscriptionID: "sub_1",
		Status:         core.StatusActive,
	}, core.ResultMetadata{OperatorCode: a.profile.Code})
}

func (a *recordingAdapter) Code() string { return a.profile.Code }

func (a *recordingAdapter) Profile() core.OperatorProfile { return a.profile }

func (a *recordingAdapter) CreateSubscription(context.Context, core.SubscriptionRequest) (core.UnifiedResult, error) {
	return a.record(core.OpCreateSubscription), nil
}

func (a *recordingAdapter) CancelSubscription(context.Context, core.CancelRequest) (core.UnifiedResult, error) {
	return a.record(core.OpCancelSubscription), nil
}

func (a *recordingAdapter) SubscriptionStatus(context.Context, core.StatusRequest) (core.UnifiedResult, error) {
	return a.record(core.OpSubscriptionStatus), nil
}

func (a *recordingAdapter) GeneratePIN(context.Context, core.PINRequest) (core.UnifiedResult, error) {
	return a.record(core.OpGeneratePIN), nil
}

func (a *recordingAdapter) Charge(context.Context, core.ChargeRequest) (core.UnifiedResult, error) {
	return a.record(core.OpCharge), nil
}

func (a *recordingAdapter) Refund(context.Context, core.RefundRequest) (core.UnifiedResult, error) {
	return a.record(core.OpRefund), nil
}

func (a *recordingAdapter) CheckEligibility(context.Context, core.EligibilityRequest) (core.UnifiedResult, error) {
	return a.record(core.OpCheckEligibility), nil
}

func (a *recordingAdapter) MapResponseData(raw map[string]any) map[string]any { return raw }

func (a *recordingAdapter) MapStatus(string) core.UnifiedStatus { return core.StatusUnknown }

func (a *recordingAdapter) MapError(error, map[string]any) *goerrors.Error { return nil }

func recordingFactory(adapter *recordingAdapter) core.AdapterFactory {
	return func(profile core.OperatorProfile) (core.Adapter, error) {
		adapter.profile = profile
		return adapter, nil
	}
}

func TestNewService_RequiresRegistrationStore(t *testing.T) {
	if _, err := NewService(DefaultConfig()); err == nil {
		t.Fatal("expected missing registration store error")
	}
}

func TestServiceDispatchesThroughRegistry(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRegistrationStore(core.OperatorRegistration{
		ID:      "reg-1",
		Code:    "zain_kw",
		Name:    "Zain Kuwait",
		Enabled: true,
		Status:  core.RegistrationStatusActive,
		Config:  map[string]any{"endpoint": "https://zain.example"},
	})
	adapter := &recordingAdapter{}

	svc, err := NewService(DefaultConfig(),
		WithRegistrationStore(store),
		WithAdapterFactory("zain_kw", recordingFactory(adapter)),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	result, err := svc.CreateSubscription(ctx, "ZAIN_KW", core.SubscriptionRequest{ServiceID: "svc-1"})
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if !result.Success || result.Data == nil || result.Data.SubscriptionID != "sub_1" {
		t.Fatalf("unexpected result: %#v", result)
	}
	if len(adapter.ops) != 1 || adapter.ops[0] != core.OpCreateSubscription {
		t.Fatalf("unexpected adapter ops: %v", adapter.ops)
	}

	if err := svc.Disable(ctx, "zain_kw", "maintenance", "ops-1"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if _, err := svc.Charge(ctx, "zain_kw", core.ChargeRequest{Amount: 1, Currency: "KWD"}); err == nil {
		t.Fatal("expected disabled operator rejection")
	}

	if err := svc.Enable(ctx, "zain_kw", "ops-1"); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if _, err := svc.Charge(ctx, "zain_kw", core.ChargeRequest{Amount: 1, Currency: "KWD"}); err != nil {
		t.Fatalf("charge after enable: %v", err)
	}
}

func TestServiceUnknownOperatorBindsThroughFallback(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRegistrationStore(core.OperatorRegistration{
		ID:      "reg-1",
		Code:    "mobifone_vn",
		Name:    "MobiFone Vietnam",
		Enabled: true,
		Status:  core.RegistrationStatusActive,
		Config:  map[string]any{"endpoint": "https://mobifone.example", "currency": "VND"},
	})

	svc, err := NewService(DefaultConfig(), WithRegistrationStore(store))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Registry().Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	enabled, err := svc.Registry().IsEnabled(ctx, "mobifone_vn")
	if err != nil {
		t.Fatalf("is enabled: %v", err)
	}
	if !enabled {
		t.Fatal("expected fallback-bound operator to be enabled")
	}
	statuses := svc.Registry().AllStatuses()
	if len(statuses) != 1 || statuses[0].Code != "mobifone_vn" {
		t.Fatalf("unexpected statuses: %#v", statuses)
	}
}

func TestServiceSendsWebhooks(t *testing.T) {
	ctx := context.Background()
	received := 0
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received++
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	store := newMemoryRegistrationStore(core.OperatorRegistration{
		ID:      "reg-1",
		Code:    "zain_kw",
		Enabled: true,
		Status:  core.RegistrationStatusActive,
		Config:  map[string]any{"endpoint": "https://zain.example"},
	})
	svc, err := NewService(DefaultConfig(), WithRegistrationStore(store))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	delivery, err := svc.Send(ctx, target.URL, "subscription.created", []byte(`{"subscriptionId":"sub_1"}`))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if delivery.Status != "delivered" {
		t.Fatalf("unexpected delivery status %q", delivery.Status)
	}
	if received != 1 {
		t.Fatalf("expected one upstream request, got %d", received)
	}

	stats := svc.Deliverer().Statistics()
	if stats.Sent != 1 || stats.Delivered != 1 {
		t.Fatalf("unexpected statistics: %#v", stats)
	}

	if _, err := svc.History(ctx, "zain_kw", 10); err == nil {
		t.Fatal("expected audit history error without a persistent audit store")
	}
}
