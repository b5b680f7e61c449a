package query

import (
	"context"
	"testing"

	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/dispatch"
	"github.com/goliatone/go-carrier-billing/webhooks"
)

type stubSubscriptionReader struct {
	statusFn      func(ctx context.Context, code string, req core.StatusRequest) (core.UnifiedResult, error)
	eligibilityFn func(ctx context.Context, code string, req core.EligibilityRequest) (core.UnifiedResult, error)
}

func (s stubSubscriptionReader) SubscriptionStatus(ctx context.Context, code string, req core.StatusRequest) (core.UnifiedResult, error) {
	return s.statusFn(ctx, code, req)
}

func (s stubSubscriptionReader) CheckEligibility(ctx context.Context, code string, req core.EligibilityRequest) (core.UnifiedResult, error) {
	return s.eligibilityFn(ctx, code, req)
}

type stubOperatorReader struct {
	enabled    bool
	statuses   []dispatch.OperatorStatus
	statistics dispatch.Statistics
}

func (s stubOperatorReader) IsEnabled(context.Context, string) (bool, error) {
	return s.enabled, nil
}

func (s stubOperatorReader) AllStatuses() []dispatch.OperatorStatus {
	return s.statuses
}

func (s stubOperatorReader) Statistics() dispatch.Statistics {
	return s.statistics
}

func TestSubscriptionStatusQuery_Delegates(t *testing.T) {
	expected := core.SuccessResult(core.ResultData{
		SubscriptionID: "sub-1",
		Status:         core.StatusActive,
	}, core.ResultMetadata{OperatorCode: "zain_kw"})

	reader := stubSubscriptionReader{
		statusFn: func(_ context.Context, code string, req core.StatusRequest) (core.UnifiedResult, error) {
			if code != "zain_kw" || req.SubscriptionID != "sub-1" {
				t.Fatalf("unexpected query payload: %q %q", code, req.SubscriptionID)
			}
			return expected, nil
		},
	}

	result, err := NewSubscriptionStatusQuery(reader).Query(context.Background(), SubscriptionStatusMessage{
		OperatorCode: "zain_kw",
		Request:      core.StatusRequest{SubscriptionID: "sub-1"},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if result.Data == nil || result.Data.Status != core.StatusActive {
		t.Fatalf("result = %#v", result)
	}
}

func TestOperatorQueries_Delegate(t *testing.T) {
	reader := stubOperatorReader{
		enabled: true,
		statuses: []dispatch.OperatorStatus{
			{Code: "mobily_sa", Enabled: true},
			{Code: "zain_kw", Enabled: false},
		},
		statistics: dispatch.Statistics{Total: 2, Enabled: 1},
	}

	enabled, err := NewIsOperatorEnabledQuery(reader).Query(context.Background(), IsOperatorEnabledMessage{OperatorCode: "zain_kw"})
	if err != nil || !enabled {
		t.Fatalf("is enabled = %v, %v", enabled, err)
	}

	statuses, err := NewOperatorStatusesQuery(reader).Query(context.Background(), OperatorStatusesMessage{})
	if err != nil || len(statuses) != 2 {
		t.Fatalf("statuses = %#v, %v", statuses, err)
	}

	stats, err := NewOperatorStatisticsQuery(reader).Query(context.Background(), OperatorStatisticsMessage{})
	if err != nil || stats.Total != 2 || stats.Enabled != 1 {
		t.Fatalf("statistics = %#v, %v", stats, err)
	}
}

type stubDeliveryStatistics struct {
	stats webhooks.DeliveryStatistics
}

func (s stubDeliveryStatistics) Statistics() webhooks.DeliveryStatistics { return s.stats }

func TestWebhookStatisticsQuery_Delegates(t *testing.T) {
	reader := stubDeliveryStatistics{stats: webhooks.DeliveryStatistics{Sent: 5, Delivered: 4, Failed: 1}}
	stats, err := NewWebhookStatisticsQuery(reader).Query(context.Background(), WebhookStatisticsMessage{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if stats.Sent != 5 || stats.Failed != 1 {
		t.Fatalf("statistics = %#v", stats)
	}
}

func TestQueriesRequireDependencies(t *testing.T) {
	if _, err := (&SubscriptionStatusQuery{}).Query(context.Background(), SubscriptionStatusMessage{}); err == nil {
		t.Fatal("status without reader must fail")
	}
	if _, err := (&IsOperatorEnabledQuery{}).Query(context.Background(), IsOperatorEnabledMessage{}); err == nil {
		t.Fatal("is-enabled without reader must fail")
	}
	if _, err := (&WebhookStatisticsQuery{}).Query(context.Background(), WebhookStatisticsMessage{}); err == nil {
		t.Fatal("webhook statistics without reader must fail")
	}
}

func TestQueryMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		message interface{ Validate() error }
		wantErr bool
	}{
		{"status ok", SubscriptionStatusMessage{OperatorCode: "zain_kw", Request: core.StatusRequest{SubscriptionID: "s"}}, false},
		{"status missing subscription", SubscriptionStatusMessage{OperatorCode: "zain_kw"}, true},
		{"eligibility missing identifier", CheckEligibilityMessage{OperatorCode: "zain_kw"}, true},
		{"eligibility with msisdn", CheckEligibilityMessage{OperatorCode: "zain_kw", Request: core.EligibilityRequest{MSISDN: "96550001111"}}, false},
		{"is enabled missing code", IsOperatorEnabledMessage{}, true},
		{"audit negative limit", OperatorAuditTrailMessage{OperatorCode: "zain_kw", Limit: -1}, true},
		{"audit ok", OperatorAuditTrailMessage{OperatorCode: "zain_kw"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.message.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}
