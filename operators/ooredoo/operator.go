// Package ooredoo provides the Ooredoo Qatar operator adapter. Ooredoo
// identifies subscribers by ACR instead of MSISDN and requires a correlator
// on every state-changing call.
package ooredoo

import (
	"time"

	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/normalize"
	"github.com/goliatone/go-carrier-billing/operators/generic"
	"github.com/goliatone/go-carrier-billing/operators/opkit"
)

const Code = "ooredoo"

func Factory(transport core.TransportAdapter, normalizer *normalize.Normalizer, observer core.Observer) core.AdapterFactory {
	return func(profile core.OperatorProfile) (core.Adapter, error) {
		return generic.New(applyDefaults(profile), transport, normalizer, observer)
	}
}

func applyDefaults(profile core.OperatorProfile) core.OperatorProfile {
	if profile.Code == "" {
		profile.Code = Code
	}
	if profile.Name == "" {
		profile.Name = "Ooredoo Qatar"
	}
	if profile.Currency == "" {
		profile.Currency = "QAR"
	}
	if profile.IdentifierMode == "" {
		profile.IdentifierMode = core.IdentifierModeACR
	}
	if profile.ACRLength == 0 {
		profile.ACRLength = opkit.DefaultACRLength
	}
	// The upstream gateway rejects uncorrelated state changes outright.
	profile.RequireCorrelator = true
	if profile.StatusFamily == "" {
		profile.StatusFamily = normalize.FamilyOoredoo
	}
	if profile.CallTimeout == 0 {
		profile.CallTimeout = 15 * time.Second
	}
	if len(profile.Aliases) == 0 {
		profile.Aliases = []string{"ooredoo-qa"}
	}
	return profile
}
