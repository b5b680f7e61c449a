// Package zain provides the Zain Kuwait operator adapter: MSISDN-identified
// subscribers on the shared upstream protocol, KWD pricing.
package zain

import (
	"time"

	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/normalize"
	"github.com/goliatone/go-carrier-billing/operators/generic"
)

const Code = "zain"

// Factory returns the adapter factory the dispatcher's resolution table
// binds to the zain code and its aliases.
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
		profile.Name = "Zain Kuwait"
	}
	if profile.Currency == "" {
		profile.Currency = "KWD"
	}
	if profile.CountryPrefix == "" {
		profile.CountryPrefix = "965"
	}
	if profile.MSISDNPattern == "" {
		profile.MSISDNPattern = `^965\d{8}$`
	}
	if profile.MSISDNExample == "" {
		profile.MSISDNExample = "96550001111"
	}
	if profile.IdentifierMode == "" {
		profile.IdentifierMode = core.IdentifierModeMSISDN
	}
	if profile.StatusFamily == "" {
		profile.StatusFamily = normalize.FamilyZain
	}
	if profile.CallTimeout == 0 {
		profile.CallTimeout = 15 * time.Second
	}
	if len(profile.Aliases) == 0 {
		profile.Aliases = []string{"zain-kw", "zainkw"}
	}
	return profile
}
