package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/dispatch"
	"github.com/goliatone/go-carrier-billing/webhooks"
)

var (
	_ gocmd.Querier[SubscriptionStatusMessage, core.UnifiedResult]         = (*SubscriptionStatusQuery)(nil)
	_ gocmd.Querier[CheckEligibilityMessage, core.UnifiedResult]           = (*CheckEligibilityQuery)(nil)
	_ gocmd.Querier[IsOperatorEnabledMessage, bool]                        = (*IsOperatorEnabledQuery)(nil)
	_ gocmd.Querier[OperatorStatusesMessage, []dispatch.OperatorStatus]    = (*OperatorStatusesQuery)(nil)
	_ gocmd.Querier[OperatorStatisticsMessage, dispatch.Statistics]        = (*OperatorStatisticsQuery)(nil)
	_ gocmd.Querier[WebhookStatisticsMessage, webhooks.DeliveryStatistics] = (*WebhookStatisticsQuery)(nil)
	_ gocmd.Querier[OperatorAuditTrailMessage, []core.AuditEntry]          = (*OperatorAuditTrailQuery)(nil)
)
