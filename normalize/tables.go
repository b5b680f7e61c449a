package normalize

import "github.com/goliatone/go-carrier-billing/core"

// Status families. Operators on the same billing platform share a family;
// the same literal can mean different unified states across families, which
// is why translation is per family and never heuristic.
const (
	FamilyDefault = "default"
	FamilyZain    = "zain"
	FamilyMobily  = "mobily"
	FamilyOoredoo = "ooredoo"
)

// ACRCustomerIDLength is how much of a 48-character ACR identifies the
// customer; the tail is a routing suffix that changes per session.
const ACRCustomerIDLength = 30

func builtinStatusFamilies() map[string]StatusTable {
	return map[string]StatusTable{
		FamilyDefault: {
			"active":     core.StatusActive,
			"activated":  core.StatusActive,
			"subscribed": core.StatusActive,
			"success":    core.StatusActive,
			"suspended":  core.StatusSuspended,
			"parked":     core.StatusSuspended,
			"hold":       core.StatusSuspended,
			"cancelled":  core.StatusCancelled,
			"canceled":   core.StatusCancelled,
			"deleted":    core.StatusCancelled,
			"removed":    core.StatusCancelled,
			"trial":      core.StatusTrial,
			"free_trial": core.StatusTrial,
			"grace":      core.StatusGrace,
			"expired":    core.StatusExpired,
			"pending":    core.StatusPending,
			"initial":    core.StatusPending,
			"processing": core.StatusPending,
		},
		FamilyZain: {
			"1":            core.StatusActive,
			"2":            core.StatusSuspended,
			"3":            core.StatusCancelled,
			"4":            core.StatusExpired,
			"5":            core.StatusPending,
			"6":            core.StatusGrace,
			"success":      core.StatusActive,
			"unsubscribed": core.StatusCancelled,
		},
		FamilyMobily: {
			"active": core.StatusActive,
			// Mobily acknowledges the request before provisioning finishes;
			// activation is confirmed by a later notification.
			"success":     core.StatusPending,
			"pending_sub": core.StatusPending,
			"stopped":     core.StatusCancelled,
			"suspended":   core.StatusSuspended,
			"grace":       core.StatusGrace,
			"trial":       core.StatusTrial,
			"expired":     core.StatusExpired,
		},
		FamilyOoredoo: {
			"activated":   core.StatusActive,
			"preactive":   core.StatusPending,
			"deactivated": core.StatusCancelled,
			"suspended":   core.StatusSuspended,
			"grace1":      core.StatusGrace,
			"grace2":      core.StatusGrace,
			"trial":       core.StatusTrial,
			"expired":     core.StatusExpired,
		},
	}
}

func builtinTables() []Table {
	return []Table{
		{
			OperatorCode: "zain",
			StatusFamily: FamilyZain,
			Fields: map[string]FieldRule{
				FieldSubscriptionID:    {Source: "subscriptionId"},
				FieldStatus:            {Source: "subscriptionStatus"},
				FieldAmount:            {Source: "amount"},
				FieldCurrency:          {Constant: "KWD"},
				FieldFrequency:         {Source: "frequency"},
				FieldMSISDN:            {Source: "msisdn"},
				FieldTransactionID:     {Source: "transactionId"},
				FieldPINReference:      {Source: "pinRef"},
				FieldEligible:          {Source: "eligible"},
				FieldEligibilityReason: {Source: "eligibilityReason"},
			},
		},
		{
			OperatorCode: "mobily",
			StatusFamily: FamilyMobily,
			Fields: map[string]FieldRule{
				FieldSubscriptionID:    {Source: "subId"},
				FieldStatus:            {Source: "subStatus"},
				FieldAmount:            {Source: "chargeAmount"},
				FieldCurrency:          {Constant: "SAR"},
				FieldFrequency:         {Source: "cycle"},
				FieldMSISDN:            {Source: "msisdn"},
				FieldTransactionID:     {Source: "referenceId"},
				FieldPINReference:      {Source: "otpRef"},
				FieldEligible:          {Source: "isEligible"},
				FieldEligibilityReason: {Source: "eligibilityReason"},
			},
		},
		{
			OperatorCode: "ooredoo",
			StatusFamily: FamilyOoredoo,
			Fields: map[string]FieldRule{
				FieldSubscriptionID: {Source: "subscription.id"},
				FieldStatus:         {Source: "subscription.state"},
				FieldAmount:         {Source: "subscription.fee"},
				FieldCurrency:       {Constant: "QAR"},
				FieldFrequency:      {Source: "subscription.period"},
				FieldACR:            {Source: "acr"},
				FieldCustomerID: {Transform: func(raw map[string]any) any {
					acr, ok := lookupField(raw, "acr")
					if !ok {
						return nil
					}
					derived := TruncateIdentifier(stringValue(acr), ACRCustomerIDLength)
					if derived == "" {
						return nil
					}
					return derived
				}},
				FieldTransactionID: {Source: "transaction.id"},
			},
		},
	}
}
