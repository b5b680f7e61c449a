package opkit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-carrier-billing/core"
)

func kuwaitProfile() core.OperatorProfile {
	return core.OperatorProfile{
		Code:          "zain",
		CountryPrefix: "965",
		MSISDNPattern: `^965\d{8}$`,
		MSISDNExample: "96550001111",
		Limits: map[string]core.AmountLimits{
			DefaultLimitKey: {Min: 0.5, Max: 30},
			core.OpCharge:   {Min: 1, Max: 10},
		},
	}
}

func TestRequireParamsCollectsAllMissing(t *testing.T) {
	err := RequireParams(map[string]string{
		"msisdn":     "",
		"service_id": "  ",
		"amount":     "2.5",
	})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if err.TextCode != core.BillingErrorMissingParameters {
		t.Fatalf("text code = %s", err.TextCode)
	}
	missing, ok := err.Metadata[core.ErrMetaMissingFields].([]string)
	if !ok {
		t.Fatalf("missing_fields metadata absent: %v", err.Metadata)
	}
	if len(missing) != 2 || missing[0] != "msisdn" || missing[1] != "service_id" {
		t.Fatalf("missing = %v", missing)
	}

	if err := RequireParams(map[string]string{"msisdn": "96550001111"}); err != nil {
		t.Fatalf("no fields missing, got %v", err)
	}
}

func TestCheckAmountLimits(t *testing.T) {
	profile := kuwaitProfile()
	tests := []struct {
		name      string
		operation string
		amount    float64
		wantCode  string
	}{
		{"charge within bounds", core.OpCharge, 5, ""},
		{"charge below minimum", core.OpCharge, 0.5, core.BillingErrorAmountTooLow},
		{"charge above maximum", core.OpCharge, 11, core.BillingErrorAmountLimitExceeded},
		{"fallback to default limits", core.OpRefund, 0.25, core.BillingErrorAmountTooLow},
		{"fallback max", core.OpRefund, 31, core.BillingErrorAmountLimitExceeded},
		{"no limits configured", core.OpCharge, 500, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := profile
			if tc.name == "no limits configured" {
				p.Limits = nil
			}
			err := CheckAmountLimits(p, tc.operation, tc.amount)
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.TextCode != tc.wantCode {
				t.Fatalf("got %v, want text code %s", err, tc.wantCode)
			}
		})
	}
}

func TestNormalizeMSISDN(t *testing.T) {
	profile := kuwaitProfile()
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"already international", "96550001111", "96550001111", false},
		{"plus prefix", "+965 5000 1111", "96550001111", false},
		{"double zero prefix", "0096550001111", "96550001111", false},
		{"national with leading zero", "050001111", "96550001111", false},
		{"dashes and dots", "965-5000.1111", "96550001111", false},
		{"letters", "96550001abc", "", true},
		{"too short", "9655000", "", true},
		{"empty", "   ", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeMSISDN(profile, tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected INVALID_MSISDN, got %q", got)
				}
				if err.TextCode != core.BillingErrorInvalidMSISDN {
					t.Fatalf("text code = %s", err.TextCode)
				}
				if err.Metadata[core.ErrMetaExpectedFormat] != "96550001111" {
					t.Fatalf("expected_format metadata = %v", err.Metadata)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidateACR(t *testing.T) {
	profile := core.OperatorProfile{Code: "ooredoo", IdentifierMode: core.IdentifierModeACR}
	acr48 := "acr:" + strings.Repeat("x", DefaultACRLength-4)
	if len(acr48) != DefaultACRLength {
		t.Fatalf("fixture length = %d", len(acr48))
	}

	if err := ValidateACR(profile, acr48); err != nil {
		t.Fatalf("valid acr rejected: %v", err)
	}
	if err := ValidateACR(profile, "short"); err == nil || err.TextCode != core.BillingErrorMissingCorrelator {
		t.Fatalf("got %v", err)
	}

	profile.ACRLength = 5
	if err := ValidateACR(profile, "12345"); err != nil {
		t.Fatalf("profile override rejected: %v", err)
	}
}

func TestResolveIdentifier(t *testing.T) {
	msisdnProfile := kuwaitProfile()
	got, err := ResolveIdentifier(msisdnProfile, "+96550001111", "")
	if err != nil || got != "96550001111" {
		t.Fatalf("got %q, %v", got, err)
	}

	acrProfile := core.OperatorProfile{Code: "ooredoo", IdentifierMode: core.IdentifierModeACR, ACRLength: 8}
	got, err = ResolveIdentifier(acrProfile, "", " acr:1234 ")
	if err != nil || got != "acr:1234" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err = ResolveIdentifier(acrProfile, "96550001111", ""); err == nil {
		t.Fatal("acr mode must not fall back to msisdn")
	}
}

func TestRequireCorrelator(t *testing.T) {
	profile := core.OperatorProfile{Code: "ooredoo", RequireCorrelator: true}
	if err := RequireCorrelator(profile, ""); err == nil || err.TextCode != core.BillingErrorMissingCorrelator {
		t.Fatalf("got %v", err)
	}
	if err := RequireCorrelator(profile, "corr-1"); err != nil {
		t.Fatalf("got %v", err)
	}
	profile.RequireCorrelator = false
	if err := RequireCorrelator(profile, ""); err != nil {
		t.Fatalf("optional correlator must pass, got %v", err)
	}
}

func TestRunnerPassesThroughUnifiedErrors(t *testing.T) {
	runner := NewRunner("zain", "production", core.Observer{}, nil)
	runner.Now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	validation := core.NewValidationError("msisdn required", core.BillingErrorMissingParameters, nil)
	result, err := runner.Run(context.Background(), core.OpCharge, nil, func(context.Context) (core.UnifiedResult, error) {
		return core.UnifiedResult{}, validation
	})

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.BillingErrorMissingParameters {
		t.Fatalf("unified error must pass through untouched, got %v", err)
	}
	if result.Success || result.Error == nil {
		t.Fatalf("expected failure result, got %+v", result)
	}
	if result.Error.Code != core.BillingErrorMissingParameters {
		t.Fatalf("flattened code = %s", result.Error.Code)
	}
	if result.Metadata.OperatorCode != "zain" {
		t.Fatalf("metadata operator = %q", result.Metadata.OperatorCode)
	}
}

func TestRunnerTranslatesRawErrors(t *testing.T) {
	translated := core.NewOperatorError(nil, "zain", "SDP-17", "subscriber barred")
	runner := NewRunner("zain", "sandbox", core.Observer{}, func(err error, _ map[string]any) *goerrors.Error {
		return translated
	})

	result, err := runner.Run(context.Background(), core.OpCreateSubscription, nil, func(context.Context) (core.UnifiedResult, error) {
		return core.UnifiedResult{}, errors.New("http 500")
	})

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.BillingErrorOperatorError {
		t.Fatalf("expected translated operator error, got %v", err)
	}
	if result.Error == nil || result.Error.OriginalCode != "SDP-17" {
		t.Fatalf("original code lost: %+v", result.Error)
	}
	if result.Metadata.Environment != "sandbox" {
		t.Fatalf("environment = %q", result.Metadata.Environment)
	}
}

func TestRunnerFillsResultMetadata(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	runner := NewRunner("Mobily", "production", core.Observer{}, nil)
	runner.Now = func() time.Time { return fixed }

	result, err := runner.Run(context.Background(), core.OpSubscriptionStatus, nil, func(context.Context) (core.UnifiedResult, error) {
		return core.SuccessResult(core.ResultData{Status: core.StatusActive}, core.ResultMetadata{}), nil
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Metadata.OperatorCode != "mobily" {
		t.Fatalf("operator = %q", result.Metadata.OperatorCode)
	}
	if !result.Metadata.Timestamp.Equal(fixed) {
		t.Fatalf("timestamp = %v", result.Metadata.Timestamp)
	}
}
