package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-carrier-billing/core"
)

const (
	TypeSubscriptionStatus = "billing.query.subscription.status"
	TypeCheckEligibility   = "billing.query.eligibility.check"
	TypeIsOperatorEnabled  = "billing.query.operator.is_enabled"
	TypeOperatorStatuses   = "billing.query.operator.statuses"
	TypeOperatorStatistics = "billing.query.operator.statistics"
	TypeWebhookStatistics  = "billing.query.webhook.statistics"
	TypeOperatorAuditTrail = "billing.query.operator.audit_trail"
)

type SubscriptionStatusMessage struct {
	OperatorCode string
	Request      core.StatusRequest
}

func (SubscriptionStatusMessage) Type() string { return TypeSubscriptionStatus }

func (m SubscriptionStatusMessage) Validate() error {
	if err := validateOperatorCode(m.OperatorCode); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.SubscriptionID) == "" {
		return fmt.Errorf("query: subscription id is required")
	}
	return nil
}

type CheckEligibilityMessage struct {
	OperatorCode string
	Request      core.EligibilityRequest
}

func (CheckEligibilityMessage) Type() string { return TypeCheckEligibility }

func (m CheckEligibilityMessage) Validate() error {
	if err := validateOperatorCode(m.OperatorCode); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.MSISDN) == "" && strings.TrimSpace(m.Request.ACR) == "" {
		return fmt.Errorf("query: subscriber identifier is required")
	}
	return nil
}

type IsOperatorEnabledMessage struct {
	OperatorCode string
}

func (IsOperatorEnabledMessage) Type() string { return TypeIsOperatorEnabled }

func (m IsOperatorEnabledMessage) Validate() error {
	return validateOperatorCode(m.OperatorCode)
}

type OperatorStatusesMessage struct{}

func (OperatorStatusesMessage) Type() string { return TypeOperatorStatuses }

func (OperatorStatusesMessage) Validate() error { return nil }

type OperatorStatisticsMessage struct{}

func (OperatorStatisticsMessage) Type() string { return TypeOperatorStatistics }

func (OperatorStatisticsMessage) Validate() error { return nil }

type WebhookStatisticsMessage struct{}

func (WebhookStatisticsMessage) Type() string { return TypeWebhookStatistics }

func (WebhookStatisticsMessage) Validate() error { return nil }

type OperatorAuditTrailMessage struct {
	OperatorCode string
	Limit        int
}

func (OperatorAuditTrailMessage) Type() string { return TypeOperatorAuditTrail }

func (m OperatorAuditTrailMessage) Validate() error {
	if err := validateOperatorCode(m.OperatorCode); err != nil {
		return err
	}
	if m.Limit < 0 {
		return fmt.Errorf("query: limit must be >= 0")
	}
	return nil
}

func validateOperatorCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("query: operator code is required")
	}
	return nil
}
