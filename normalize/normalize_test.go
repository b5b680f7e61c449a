package normalize

import (
	"strings"
	"testing"

	"github.com/goliatone/go-carrier-billing/core"
)

func TestStatusPerFamily(t *testing.T) {
	n := New()
	tests := []struct {
		family string
		raw    string
		want   core.UnifiedStatus
	}{
		// The same literal lands on different unified states per family.
		{FamilyZain, "success", core.StatusActive},
		{FamilyMobily, "success", core.StatusPending},
		{FamilyDefault, "success", core.StatusActive},

		{FamilyZain, "1", core.StatusActive},
		{FamilyZain, "3", core.StatusCancelled},
		{FamilyZain, "6", core.StatusGrace},
		{FamilyMobily, "STOPPED", core.StatusCancelled},
		{FamilyMobily, "pending_sub", core.StatusPending},
		{FamilyOoredoo, "Activated", core.StatusActive},
		{FamilyOoredoo, "grace2", core.StatusGrace},
		{FamilyOoredoo, "deactivated", core.StatusCancelled},
		{FamilyDefault, "parked", core.StatusSuspended},

		// Unmapped literals degrade to unknown, never error.
		{FamilyZain, "99", core.StatusUnknown},
		{FamilyMobily, "", core.StatusUnknown},
		{"no-such-family", "active", core.StatusActive},
		{"no-such-family", "gibberish", core.StatusUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.family+"/"+tc.raw, func(t *testing.T) {
			if got := n.Status(tc.family, tc.raw); got != tc.want {
				t.Fatalf("Status(%q, %q) = %s, want %s", tc.family, tc.raw, got, tc.want)
			}
		})
	}
}

func TestEveryMappedStatusIsInVocabulary(t *testing.T) {
	valid := map[core.UnifiedStatus]struct{}{}
	for _, status := range core.UnifiedStatuses() {
		valid[status] = struct{}{}
	}
	for family, table := range builtinStatusFamilies() {
		for raw, unified := range table {
			if _, ok := valid[unified]; !ok {
				t.Fatalf("family %s maps %q outside the vocabulary: %s", family, raw, unified)
			}
		}
	}
}

func TestResponseZain(t *testing.T) {
	n := New()
	data, unmapped := n.Response("zain", map[string]any{
		"subscriptionId":     "sub-42",
		"subscriptionStatus": "1",
		"amount":             "2.500",
		"frequency":          "weekly",
		"msisdn":             "96550001111",
		"transactionId":      "tx-9",
		"vendorExtra":        "kept",
	})
	if unmapped {
		t.Fatal("zain has a table entry")
	}
	if data.SubscriptionID != "sub-42" || data.TransactionID != "tx-9" {
		t.Fatalf("identifiers not mapped: %+v", data)
	}
	if data.Status != core.StatusActive {
		t.Fatalf("status = %s", data.Status)
	}
	if data.Amount != 2.5 {
		t.Fatalf("amount = %v", data.Amount)
	}
	if data.Currency != "KWD" {
		t.Fatalf("constant currency lost: %q", data.Currency)
	}
	if data.Extra["vendorExtra"] != "kept" {
		t.Fatalf("unconsumed keys must land in Extra: %v", data.Extra)
	}
	if _, leaked := data.Extra["subscriptionId"]; leaked {
		t.Fatal("consumed keys must not duplicate into Extra")
	}
}

func TestResponseOoredooDerivesCustomerID(t *testing.T) {
	n := New()
	acr := "acr:" + strings.Repeat("a", 44)
	data, unmapped := n.Response("ooredoo", map[string]any{
		"acr": acr,
		"subscription": map[string]any{
			"id":     "q-7",
			"state":  "preactive",
			"fee":    1.0,
			"period": "daily",
		},
	})
	if unmapped {
		t.Fatal("ooredoo has a table entry")
	}
	if data.SubscriptionID != "q-7" {
		t.Fatalf("nested path not resolved: %+v", data)
	}
	if data.Status != core.StatusPending {
		t.Fatalf("status = %s", data.Status)
	}
	if data.ACR != acr {
		t.Fatalf("acr = %q", data.ACR)
	}
	if want := acr[:ACRCustomerIDLength]; data.CustomerID != want {
		t.Fatalf("customer id = %q, want %q", data.CustomerID, want)
	}
}

func TestResponsePassthroughForUnknownOperator(t *testing.T) {
	n := New()
	data, unmapped := n.Response("brand-new-op", map[string]any{
		"subscription_id": "s-1",
		"status":          "active",
		"currency":        "usd",
		"weird_field":     42,
	})
	if !unmapped {
		t.Fatal("unknown operators must use the passthrough mapping")
	}
	if data.SubscriptionID != "s-1" {
		t.Fatalf("well-known keys must pass through: %+v", data)
	}
	if data.Status != core.StatusActive {
		t.Fatalf("status = %s", data.Status)
	}
	if data.Currency != "USD" {
		t.Fatalf("currency = %q", data.Currency)
	}
	if data.Extra["weird_field"] != 42 {
		t.Fatalf("unknown keys must land in Extra: %v", data.Extra)
	}
}

func TestResponseMissingStatusIsUnknown(t *testing.T) {
	n := New()
	data, _ := n.Response("zain", map[string]any{"subscriptionId": "sub-1"})
	if data.Status != core.StatusUnknown {
		t.Fatalf("missing status must normalize to unknown, got %s", data.Status)
	}
}

func TestRegisterTableOverridesBuiltin(t *testing.T) {
	n := New()
	n.RegisterTable(Table{
		OperatorCode: "Zain",
		StatusFamily: FamilyDefault,
		Fields: map[string]FieldRule{
			FieldStatus: {Source: "state"},
		},
	})
	data, unmapped := n.Response("zain", map[string]any{"state": "expired"})
	if unmapped {
		t.Fatal("registered table must be used")
	}
	if data.Status != core.StatusExpired {
		t.Fatalf("status = %s", data.Status)
	}
	if n.StatusForOperator("zain", "parked") != core.StatusSuspended {
		t.Fatal("operator family must follow the registered table")
	}
}

func TestTruncateIdentifier(t *testing.T) {
	if got := TruncateIdentifier("  short  ", 30); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("x", 48)
	if got := TruncateIdentifier(long, 30); got != long[:30] {
		t.Fatalf("got %q", got)
	}
	if got := TruncateIdentifier(long, 0); got != long {
		t.Fatalf("zero max must be a no-op, got %q", got)
	}
}
