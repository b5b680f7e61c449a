package opkit

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-carrier-billing/core"
)

// DefaultACRLength is the network-issued anonymous customer reference length
// when the profile does not override it.
const DefaultACRLength = 48

var (
	msisdnPatternMu    sync.RWMutex
	msisdnPatternCache = map[string]*regexp.Regexp{}
)

// NormalizeMSISDN strips presentation formatting, applies the operator's
// country prefix, and validates the result against the profile pattern.
func NormalizeMSISDN(profile core.OperatorProfile, raw string) (string, *goerrors.Error) {
	msisdn := stripMSISDNFormatting(raw)
	if msisdn == "" {
		return "", invalidMSISDN(profile, raw)
	}

	prefix := strings.TrimSpace(profile.CountryPrefix)
	if prefix != "" && !strings.HasPrefix(msisdn, prefix) {
		// Subscribers often submit the national form; the upstream protocol
		// wants the full international digits.
		msisdn = prefix + strings.TrimPrefix(msisdn, "0")
	}

	if pattern := strings.TrimSpace(profile.MSISDNPattern); pattern != "" {
		matcher, err := compileMSISDNPattern(pattern)
		if err != nil {
			return "", invalidMSISDN(profile, raw)
		}
		if !matcher.MatchString(msisdn) {
			return "", invalidMSISDN(profile, raw)
		}
	}
	return msisdn, nil
}

func stripMSISDNFormatting(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "+")
	raw = strings.TrimPrefix(raw, "00")
	var digits strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// presentation only
		default:
			return ""
		}
	}
	return digits.String()
}

func compileMSISDNPattern(pattern string) (*regexp.Regexp, error) {
	msisdnPatternMu.RLock()
	matcher, ok := msisdnPatternCache[pattern]
	msisdnPatternMu.RUnlock()
	if ok {
		return matcher, nil
	}
	matcher, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	msisdnPatternMu.Lock()
	msisdnPatternCache[pattern] = matcher
	msisdnPatternMu.Unlock()
	return matcher, nil
}

func invalidMSISDN(profile core.OperatorProfile, raw string) *goerrors.Error {
	metadata := map[string]any{core.ErrMetaOperatorCode: profile.Code}
	if example := strings.TrimSpace(profile.MSISDNExample); example != "" {
		metadata[core.ErrMetaExpectedFormat] = example
	}
	return core.NewValidationError(
		fmt.Sprintf("msisdn %q is not valid for operator %s", strings.TrimSpace(raw), profile.Code),
		core.BillingErrorInvalidMSISDN,
		metadata,
	)
}

// ValidateACR checks the anonymous customer reference an ACR-mode operator
// requires in place of an MSISDN.
func ValidateACR(profile core.OperatorProfile, acr string) *goerrors.Error {
	acr = strings.TrimSpace(acr)
	expected := profile.ACRLength
	if expected <= 0 {
		expected = DefaultACRLength
	}
	if acr == "" || len(acr) != expected {
		return core.NewValidationError(
			fmt.Sprintf("acr must be exactly %d characters for operator %s", expected, profile.Code),
			core.BillingErrorMissingCorrelator,
			map[string]any{
				core.ErrMetaOperatorCode: profile.Code,
				"expected_length":        expected,
				"actual_length":          len(acr),
			},
		)
	}
	return nil
}

// RequireCorrelator enforces the per-request correlator some operators demand
// on every state-changing call.
func RequireCorrelator(profile core.OperatorProfile, correlator string) *goerrors.Error {
	if !profile.RequireCorrelator {
		return nil
	}
	if strings.TrimSpace(correlator) != "" {
		return nil
	}
	return core.NewValidationError(
		fmt.Sprintf("operator %s requires a correlator on this operation", profile.Code),
		core.BillingErrorMissingCorrelator,
		map[string]any{core.ErrMetaOperatorCode: profile.Code},
	)
}

// ResolveIdentifier normalizes whichever identifier the operator's mode
// expects and returns it ready for the upstream call.
func ResolveIdentifier(profile core.OperatorProfile, msisdn string, acr string) (string, *goerrors.Error) {
	if profile.IdentifierMode == core.IdentifierModeACR {
		if err := ValidateACR(profile, acr); err != nil {
			return "", err
		}
		return strings.TrimSpace(acr), nil
	}
	return NormalizeMSISDN(profile, msisdn)
}
