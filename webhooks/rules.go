package webhooks

import (
	"strings"

	"github.com/goliatone/go-carrier-billing/core"
)

// TransitionAction is what an inbound notification does to the referenced
// subscription.
type TransitionAction struct {
	SetStatus core.UnifiedStatus
	// RecordTransaction appends a transaction row alongside the status change.
	RecordTransaction bool
}

// TransitionRules maps incoming status literals and operator error codes to
// declarative actions. New codes arrive far more often than the dispatch
// logic changes, so this stays a table, never a switch.
type TransitionRules struct {
	ByStatus map[string]TransitionAction
	ByError  map[string]TransitionAction
}

// DefaultTransitionRules covers the codes the upstream protocol emits today.
func DefaultTransitionRules() TransitionRules {
	return TransitionRules{
		ByStatus: map[string]TransitionAction{
			"active":    {SetStatus: core.StatusActive, RecordTransaction: true},
			"activated": {SetStatus: core.StatusActive, RecordTransaction: true},
			"renewed":   {SetStatus: core.StatusActive, RecordTransaction: true},
			"suspended": {SetStatus: core.StatusSuspended},
			"grace":     {SetStatus: core.StatusGrace},
			"cancelled": {SetStatus: core.StatusCancelled},
			"canceled":  {SetStatus: core.StatusCancelled},
			"expired":   {SetStatus: core.StatusExpired},
		},
		ByError: map[string]TransitionAction{
			"insufficient_funds":  {SetStatus: core.StatusSuspended},
			"insufficient_credit": {SetStatus: core.StatusSuspended},
			"ineligible":          {SetStatus: core.StatusCancelled},
			"not_eligible":        {SetStatus: core.StatusCancelled},
			"subscriber_barred":   {SetStatus: core.StatusCancelled},
		},
	}
}

// ForStatus resolves the action for a success notification status.
func (r TransitionRules) ForStatus(status string) (TransitionAction, bool) {
	action, ok := r.ByStatus[normalizeRuleKey(status)]
	return action, ok
}

// ForError resolves the action for an operator error code.
func (r TransitionRules) ForError(code string) (TransitionAction, bool) {
	action, ok := r.ByError[normalizeRuleKey(code)]
	return action, ok
}

func normalizeRuleKey(key string) string {
	return strings.TrimSpace(strings.ToLower(key))
}
