package carrierbilling

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/operators/devkit"
)

func TestDefaultFactoriesCoverDedicatedOperators(t *testing.T) {
	factories := DefaultFactories(devkit.NewTransport(), core.Observer{})

	for _, code := range []string{ZainCode, MobilyCode, OoredooCode} {
		factory, ok := factories[code]
		if !ok {
			t.Fatalf("expected factory for %s", code)
		}
		adapter, err := factory(core.OperatorProfile{})
		if err != nil {
			t.Fatalf("build %s adapter: %v", code, err)
		}
		if adapter.Code() != code {
			t.Fatalf("adapter code = %q, want %q", adapter.Code(), code)
		}
	}
}

func TestScriptedDevkitFactoryRoundTrip(t *testing.T) {
	transport := devkit.NewTransport()
	transport.Stub(http.MethodPost, "/subscriptions", http.StatusOK, map[string]any{
		"subscriptionId":     "sub-dk-1",
		"subscriptionStatus": "active",
		"amount":             1.0,
		"msisdn":             "15550001111",
	})

	adapter, err := ScriptedDevkitFactory(transport, core.Observer{})(core.OperatorProfile{})
	if err != nil {
		t.Fatalf("build devkit adapter: %v", err)
	}
	if adapter.Code() != DevkitCode {
		t.Fatalf("adapter code = %q", adapter.Code())
	}

	result, err := adapter.CreateSubscription(context.Background(), core.SubscriptionRequest{
		MSISDN:    "15550001111",
		ServiceID: "svc-sandbox",
		Amount:    1.0,
	})
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if !result.Success || result.Data == nil || result.Data.SubscriptionID != "sub-dk-1" {
		t.Fatalf("unexpected result: %#v", result)
	}
	if len(transport.Requests()) != 1 {
		t.Fatalf("expected one recorded request, got %d", len(transport.Requests()))
	}
}

func TestGenericFactoryRequiresTransport(t *testing.T) {
	factory := GenericFactory(nil, core.Observer{})
	if _, err := factory(core.OperatorProfile{Code: "acme_mobile"}); err == nil {
		t.Fatal("expected transport requirement error")
	}
}
