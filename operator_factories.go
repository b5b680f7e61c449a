package carrierbilling

import (
	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/normalize"
	"github.com/goliatone/go-carrier-billing/operators/devkit"
	"github.com/goliatone/go-carrier-billing/operators/generic"
	"github.com/goliatone/go-carrier-billing/operators/mobily"
	"github.com/goliatone/go-carrier-billing/operators/ooredoo"
	"github.com/goliatone/go-carrier-billing/operators/zain"
)

// Operator codes with a dedicated factory in the default resolution table.
const (
	ZainCode    = zain.Code
	MobilyCode  = mobily.Code
	OoredooCode = ooredoo.Code
	DevkitCode  = devkit.Code
)

func ZainFactory(transport core.TransportAdapter, observer core.Observer) core.AdapterFactory {
	return zain.Factory(transport, normalize.New(), observer)
}

func MobilyFactory(transport core.TransportAdapter, observer core.Observer) core.AdapterFactory {
	return mobily.Factory(transport, normalize.New(), observer)
}

func OoredooFactory(transport core.TransportAdapter, observer core.Observer) core.AdapterFactory {
	return ooredoo.Factory(transport, normalize.New(), observer)
}

// DevkitFactory builds the sandbox operator over a fresh scripted transport.
// It never reaches the network; operations fail until responses are scripted.
func DevkitFactory(observer core.Observer) core.AdapterFactory {
	return devkit.Factory(devkit.NewTransport(), observer)
}

// ScriptedDevkitFactory builds the sandbox operator over a caller-owned
// transport so tests can script responses and inspect recorded requests.
func ScriptedDevkitFactory(transport *devkit.Transport, observer core.Observer) core.AdapterFactory {
	return devkit.Factory(transport, observer)
}

// GenericFactory is the config-driven fallback: any registration without a
// dedicated factory gets an adapter built entirely from its profile.
func GenericFactory(transport core.TransportAdapter, observer core.Observer) core.AdapterFactory {
	return func(profile core.OperatorProfile) (core.Adapter, error) {
		return generic.New(profile, transport, normalize.New(), observer)
	}
}

// DefaultFactories is the stock resolution table for the dedicated operator
// implementations.
func DefaultFactories(transport core.TransportAdapter, observer core.Observer) map[string]core.AdapterFactory {
	return map[string]core.AdapterFactory{
		ZainCode:    ZainFactory(transport, observer),
		MobilyCode:  MobilyFactory(transport, observer),
		OoredooCode: OoredooFactory(transport, observer),
	}
}
