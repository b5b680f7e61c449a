package opkit

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-carrier-billing/core"
)

// DefaultLimitKey is consulted when an operation has no dedicated entry in
// the profile's limits map.
const DefaultLimitKey = "default"

// CheckAmountLimits enforces the operator's business limits before any
// network call is made. Zero bounds mean unbounded in that direction.
func CheckAmountLimits(profile core.OperatorProfile, operation string, amount float64) *goerrors.Error {
	limits, ok := profile.Limits[operation]
	if !ok {
		limits, ok = profile.Limits[DefaultLimitKey]
	}
	if !ok {
		return nil
	}
	if limits.Min > 0 && amount < limits.Min {
		return core.NewBusinessRuleError(
			fmt.Sprintf("amount %.3f is below the %s minimum %.3f", amount, profile.Code, limits.Min),
			core.BillingErrorAmountTooLow,
			map[string]any{
				"amount":    amount,
				"min":       limits.Min,
				"operation": operation,
			},
		)
	}
	if limits.Max > 0 && amount > limits.Max {
		return core.NewBusinessRuleError(
			fmt.Sprintf("amount %.3f exceeds the %s maximum %.3f", amount, profile.Code, limits.Max),
			core.BillingErrorAmountLimitExceeded,
			map[string]any{
				"amount":    amount,
				"max":       limits.Max,
				"operation": operation,
			},
		)
	}
	return nil
}
