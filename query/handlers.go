package query

import (
	"context"

	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/dispatch"
	"github.com/goliatone/go-carrier-billing/webhooks"
)

// SubscriptionReader resolves read-only operator calls through the
// dispatcher.
type SubscriptionReader interface {
	SubscriptionStatus(ctx context.Context, operatorCode string, req core.StatusRequest) (core.UnifiedResult, error)
	CheckEligibility(ctx context.Context, operatorCode string, req core.EligibilityRequest) (core.UnifiedResult, error)
}

type OperatorReader interface {
	IsEnabled(ctx context.Context, code string) (bool, error)
	AllStatuses() []dispatch.OperatorStatus
	Statistics() dispatch.Statistics
}

type DeliveryStatisticsReader interface {
	Statistics() webhooks.DeliveryStatistics
}

type AuditReader interface {
	History(ctx context.Context, operatorCode string, limit int) ([]core.AuditEntry, error)
}

type SubscriptionStatusQuery struct {
	reader SubscriptionReader
}

func NewSubscriptionStatusQuery(reader SubscriptionReader) *SubscriptionStatusQuery {
	return &SubscriptionStatusQuery{reader: reader}
}

func (q *SubscriptionStatusQuery) Query(ctx context.Context, msg SubscriptionStatusMessage) (core.UnifiedResult, error) {
	if q == nil || q.reader == nil {
		return core.UnifiedResult{}, queryDependencyError("query: subscription reader is required")
	}
	return q.reader.SubscriptionStatus(ctx, msg.OperatorCode, msg.Request)
}

type CheckEligibilityQuery struct {
	reader SubscriptionReader
}

func NewCheckEligibilityQuery(reader SubscriptionReader) *CheckEligibilityQuery {
	return &CheckEligibilityQuery{reader: reader}
}

func (q *CheckEligibilityQuery) Query(ctx context.Context, msg CheckEligibilityMessage) (core.UnifiedResult, error) {
	if q == nil || q.reader == nil {
		return core.UnifiedResult{}, queryDependencyError("query: subscription reader is required")
	}
	return q.reader.CheckEligibility(ctx, msg.OperatorCode, msg.Request)
}

type IsOperatorEnabledQuery struct {
	reader OperatorReader
}

func NewIsOperatorEnabledQuery(reader OperatorReader) *IsOperatorEnabledQuery {
	return &IsOperatorEnabledQuery{reader: reader}
}

func (q *IsOperatorEnabledQuery) Query(ctx context.Context, msg IsOperatorEnabledMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: operator reader is required")
	}
	return q.reader.IsEnabled(ctx, msg.OperatorCode)
}

type OperatorStatusesQuery struct {
	reader OperatorReader
}

func NewOperatorStatusesQuery(reader OperatorReader) *OperatorStatusesQuery {
	return &OperatorStatusesQuery{reader: reader}
}

func (q *OperatorStatusesQuery) Query(ctx context.Context, msg OperatorStatusesMessage) ([]dispatch.OperatorStatus, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: operator reader is required")
	}
	return q.reader.AllStatuses(), nil
}

type OperatorStatisticsQuery struct {
	reader OperatorReader
}

func NewOperatorStatisticsQuery(reader OperatorReader) *OperatorStatisticsQuery {
	return &OperatorStatisticsQuery{reader: reader}
}

func (q *OperatorStatisticsQuery) Query(ctx context.Context, msg OperatorStatisticsMessage) (dispatch.Statistics, error) {
	if q == nil || q.reader == nil {
		return dispatch.Statistics{}, queryDependencyError("query: operator reader is required")
	}
	return q.reader.Statistics(), nil
}

type WebhookStatisticsQuery struct {
	reader DeliveryStatisticsReader
}

func NewWebhookStatisticsQuery(reader DeliveryStatisticsReader) *WebhookStatisticsQuery {
	return &WebhookStatisticsQuery{reader: reader}
}

func (q *WebhookStatisticsQuery) Query(ctx context.Context, msg WebhookStatisticsMessage) (webhooks.DeliveryStatistics, error) {
	if q == nil || q.reader == nil {
		return webhooks.DeliveryStatistics{}, queryDependencyError("query: delivery statistics reader is required")
	}
	return q.reader.Statistics(), nil
}

type OperatorAuditTrailQuery struct {
	reader AuditReader
}

func NewOperatorAuditTrailQuery(reader AuditReader) *OperatorAuditTrailQuery {
	return &OperatorAuditTrailQuery{reader: reader}
}

func (q *OperatorAuditTrailQuery) Query(ctx context.Context, msg OperatorAuditTrailMessage) ([]core.AuditEntry, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: audit reader is required")
	}
	return q.reader.History(ctx, msg.OperatorCode, msg.Limit)
}
