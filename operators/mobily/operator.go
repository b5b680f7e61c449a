// Package mobily provides the Mobily Saudi Arabia operator adapter. Mobily
// acknowledges subscription requests asynchronously, so a fresh subscription
// reports pending until the activation notification arrives.
package mobily

import (
	"time"

	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/normalize"
	"github.com/goliatone/go-carrier-billing/operators/generic"
)

const Code = "mobily"

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
		profile.Name = "Mobily KSA"
	}
	if profile.Currency == "" {
		profile.Currency = "SAR"
	}
	if profile.CountryPrefix == "" {
		profile.CountryPrefix = "966"
	}
	if profile.MSISDNPattern == "" {
		profile.MSISDNPattern = `^9665\d{8}$`
	}
	if profile.MSISDNExample == "" {
		profile.MSISDNExample = "966500001111"
	}
	if profile.IdentifierMode == "" {
		profile.IdentifierMode = core.IdentifierModeMSISDN
	}
	if profile.StatusFamily == "" {
		profile.StatusFamily = normalize.FamilyMobily
	}
	if profile.CallTimeout == 0 {
		profile.CallTimeout = 20 * time.Second
	}
	if len(profile.Aliases) == 0 {
		profile.Aliases = []string{"mobily-sa", "mobily-ksa"}
	}
	return profile
}
