package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-carrier-billing/core"
)

const (
	TypeCreateSubscription = "billing.command.subscription.create"
	TypeCancelSubscription = "billing.command.subscription.cancel"
	TypeGeneratePIN        = "billing.command.pin.generate"
	TypeCharge             = "billing.command.charge"
	TypeRefund             = "billing.command.refund"
	TypeEnableOperator     = "billing.command.operator.enable"
	TypeDisableOperator    = "billing.command.operator.disable"
	TypeSendWebhook        = "billing.command.webhook.send"
	TypeResumeWebhooks     = "billing.command.webhook.resume"
)

type CreateSubscriptionMessage struct {
	OperatorCode string
	Request      core.SubscriptionRequest
}

func (CreateSubscriptionMessage) Type() string { return TypeCreateSubscription }

func (m CreateSubscriptionMessage) Validate() error {
	if err := validateOperatorCode(m.OperatorCode); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.MSISDN) == "" && strings.TrimSpace(m.Request.ACR) == "" {
		return fmt.Errorf("command: subscriber identifier is required")
	}
	return nil
}

type CancelSubscriptionMessage struct {
	OperatorCode string
	Request      core.CancelRequest
}

func (CancelSubscriptionMessage) Type() string { return TypeCancelSubscription }

func (m CancelSubscriptionMessage) Validate() error {
	if err := validateOperatorCode(m.OperatorCode); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.SubscriptionID) == "" {
		return fmt.Errorf("command: subscription id is required")
	}
	return nil
}

type GeneratePINMessage struct {
	OperatorCode string
	Request      core.PINRequest
}

func (GeneratePINMessage) Type() string { return TypeGeneratePIN }

func (m GeneratePINMessage) Validate() error {
	if err := validateOperatorCode(m.OperatorCode); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.MSISDN) == "" && strings.TrimSpace(m.Request.ACR) == "" {
		return fmt.Errorf("command: subscriber identifier is required")
	}
	return nil
}

type ChargeMessage struct {
	OperatorCode string
	Request      core.ChargeRequest
}

func (ChargeMessage) Type() string { return TypeCharge }

func (m ChargeMessage) Validate() error {
	if err := validateOperatorCode(m.OperatorCode); err != nil {
		return err
	}
	if m.Request.Amount <= 0 {
		return fmt.Errorf("command: charge amount must be positive")
	}
	return nil
}

type RefundMessage struct {
	OperatorCode string
	Request      core.RefundRequest
}

func (RefundMessage) Type() string { return TypeRefund }

func (m RefundMessage) Validate() error {
	if err := validateOperatorCode(m.OperatorCode); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.TransactionID) == "" {
		return fmt.Errorf("command: transaction id is required")
	}
	return nil
}

type EnableOperatorMessage struct {
	OperatorCode string
	ActorID      string
}

func (EnableOperatorMessage) Type() string { return TypeEnableOperator }

func (m EnableOperatorMessage) Validate() error {
	return validateOperatorCode(m.OperatorCode)
}

type DisableOperatorMessage struct {
	OperatorCode string
	Reason       string
	ActorID      string
}

func (DisableOperatorMessage) Type() string { return TypeDisableOperator }

func (m DisableOperatorMessage) Validate() error {
	if err := validateOperatorCode(m.OperatorCode); err != nil {
		return err
	}
	if strings.TrimSpace(m.Reason) == "" {
		return fmt.Errorf("command: disable reason is required")
	}
	return nil
}

type SendWebhookMessage struct {
	URL       string
	EventType string
	Payload   []byte
}

func (SendWebhookMessage) Type() string { return TypeSendWebhook }

func (m SendWebhookMessage) Validate() error {
	if strings.TrimSpace(m.URL) == "" {
		return fmt.Errorf("command: webhook url is required")
	}
	if strings.TrimSpace(m.EventType) == "" {
		return fmt.Errorf("command: webhook event type is required")
	}
	if len(m.Payload) == 0 {
		return fmt.Errorf("command: webhook payload is required")
	}
	return nil
}

type ResumeWebhooksMessage struct{}

func (ResumeWebhooksMessage) Type() string { return TypeResumeWebhooks }

func (ResumeWebhooksMessage) Validate() error { return nil }

func validateOperatorCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("command: operator code is required")
	}
	return nil
}
