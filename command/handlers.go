package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/webhooks"
)

// BillingService executes operator operations through the dispatcher.
type BillingService interface {
	CreateSubscription(ctx context.Context, operatorCode string, req core.SubscriptionRequest) (core.UnifiedResult, error)
	CancelSubscription(ctx context.Context, operatorCode string, req core.CancelRequest) (core.UnifiedResult, error)
	GeneratePIN(ctx context.Context, operatorCode string, req core.PINRequest) (core.UnifiedResult, error)
	Charge(ctx context.Context, operatorCode string, req core.ChargeRequest) (core.UnifiedResult, error)
	Refund(ctx context.Context, operatorCode string, req core.RefundRequest) (core.UnifiedResult, error)
}

type OperatorAdministrator interface {
	Enable(ctx context.Context, code string, actorID string) error
	Disable(ctx context.Context, code string, reason string, actorID string) error
}

type WebhookSender interface {
	Send(ctx context.Context, url string, eventType string, payload []byte) (webhooks.Delivery, error)
	Resume(ctx context.Context) error
}

type CreateSubscriptionCommand struct {
	service BillingService
}

func NewCreateSubscriptionCommand(service BillingService) *CreateSubscriptionCommand {
	return &CreateSubscriptionCommand{service: service}
}

func (c *CreateSubscriptionCommand) Execute(ctx context.Context, msg CreateSubscriptionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: billing service is required")
	}
	out, err := c.service.CreateSubscription(ctx, msg.OperatorCode, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CancelSubscriptionCommand struct {
	service BillingService
}

func NewCancelSubscriptionCommand(service BillingService) *CancelSubscriptionCommand {
	return &CancelSubscriptionCommand{service: service}
}

func (c *CancelSubscriptionCommand) Execute(ctx context.Context, msg CancelSubscriptionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: billing service is required")
	}
	out, err := c.service.CancelSubscription(ctx, msg.OperatorCode, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type GeneratePINCommand struct {
	service BillingService
}

func NewGeneratePINCommand(service BillingService) *GeneratePINCommand {
	return &GeneratePINCommand{service: service}
}

func (c *GeneratePINCommand) Execute(ctx context.Context, msg GeneratePINMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: billing service is required")
	}
	out, err := c.service.GeneratePIN(ctx, msg.OperatorCode, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ChargeCommand struct {
	service BillingService
}

func NewChargeCommand(service BillingService) *ChargeCommand {
	return &ChargeCommand{service: service}
}

func (c *ChargeCommand) Execute(ctx context.Context, msg ChargeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: billing service is required")
	}
	out, err := c.service.Charge(ctx, msg.OperatorCode, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefundCommand struct {
	service BillingService
}

func NewRefundCommand(service BillingService) *RefundCommand {
	return &RefundCommand{service: service}
}

func (c *RefundCommand) Execute(ctx context.Context, msg RefundMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: billing service is required")
	}
	out, err := c.service.Refund(ctx, msg.OperatorCode, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type EnableOperatorCommand struct {
	admin OperatorAdministrator
}

func NewEnableOperatorCommand(admin OperatorAdministrator) *EnableOperatorCommand {
	return &EnableOperatorCommand{admin: admin}
}

func (c *EnableOperatorCommand) Execute(ctx context.Context, msg EnableOperatorMessage) error {
	if c == nil || c.admin == nil {
		return commandDependencyError("command: operator administrator is required")
	}
	return c.admin.Enable(ctx, msg.OperatorCode, msg.ActorID)
}

type DisableOperatorCommand struct {
	admin OperatorAdministrator
}

func NewDisableOperatorCommand(admin OperatorAdministrator) *DisableOperatorCommand {
	return &DisableOperatorCommand{admin: admin}
}

func (c *DisableOperatorCommand) Execute(ctx context.Context, msg DisableOperatorMessage) error {
	if c == nil || c.admin == nil {
		return commandDependencyError("command: operator administrator is required")
	}
	return c.admin.Disable(ctx, msg.OperatorCode, msg.Reason, msg.ActorID)
}

type SendWebhookCommand struct {
	sender WebhookSender
}

func NewSendWebhookCommand(sender WebhookSender) *SendWebhookCommand {
	return &SendWebhookCommand{sender: sender}
}

func (c *SendWebhookCommand) Execute(ctx context.Context, msg SendWebhookMessage) error {
	if c == nil || c.sender == nil {
		return commandDependencyError("command: webhook sender is required")
	}
	out, err := c.sender.Send(ctx, msg.URL, msg.EventType, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ResumeWebhooksCommand struct {
	sender WebhookSender
}

func NewResumeWebhooksCommand(sender WebhookSender) *ResumeWebhooksCommand {
	return &ResumeWebhooksCommand{sender: sender}
}

func (c *ResumeWebhooksCommand) Execute(ctx context.Context, msg ResumeWebhooksMessage) error {
	if c == nil || c.sender == nil {
		return commandDependencyError("command: webhook sender is required")
	}
	return c.sender.Resume(ctx)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
