package carrierbilling

import (
	"fmt"

	billingcommand "github.com/goliatone/go-carrier-billing/command"
	"github.com/goliatone/go-carrier-billing/dispatch"
	billingquery "github.com/goliatone/go-carrier-billing/query"
	"github.com/goliatone/go-carrier-billing/webhooks"
)

// CommandQueryService is what the facade routes through. *Service satisfies
// it; callers can substitute their own composition in tests.
type CommandQueryService interface {
	billingcommand.BillingService
	billingcommand.OperatorAdministrator
	billingcommand.WebhookSender
	billingquery.SubscriptionReader
	billingquery.AuditReader
}

type Commands struct {
	CreateSubscription *billingcommand.CreateSubscriptionCommand
	CancelSubscription *billingcommand.CancelSubscriptionCommand
	GeneratePIN        *billingcommand.GeneratePINCommand
	Charge             *billingcommand.ChargeCommand
	Refund             *billingcommand.RefundCommand
	EnableOperator     *billingcommand.EnableOperatorCommand
	DisableOperator    *billingcommand.DisableOperatorCommand
	SendWebhook        *billingcommand.SendWebhookCommand
	ResumeWebhooks     *billingcommand.ResumeWebhooksCommand
}

type Queries struct {
	SubscriptionStatus *billingquery.SubscriptionStatusQuery
	CheckEligibility   *billingquery.CheckEligibilityQuery
	IsOperatorEnabled  *billingquery.IsOperatorEnabledQuery
	OperatorStatuses   *billingquery.OperatorStatusesQuery
	OperatorStatistics *billingquery.OperatorStatisticsQuery
	WebhookStatistics  *billingquery.WebhookStatisticsQuery
	OperatorAuditTrail *billingquery.OperatorAuditTrailQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	operators  billingquery.OperatorReader
	deliveries billingquery.DeliveryStatisticsReader
}

func WithOperatorReader(reader billingquery.OperatorReader) FacadeOption {
	return func(options *facadeOptions) {
		options.operators = reader
	}
}

func WithDeliveryStatisticsReader(reader billingquery.DeliveryStatisticsReader) FacadeOption {
	return func(options *facadeOptions) {
		options.deliveries = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("carrierbilling: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.operators == nil {
		cfg.operators = resolveOperatorReader(service)
	}
	if cfg.deliveries == nil {
		cfg.deliveries = resolveDeliveryReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CreateSubscription: billingcommand.NewCreateSubscriptionCommand(service),
		CancelSubscription: billingcommand.NewCancelSubscriptionCommand(service),
		GeneratePIN:        billingcommand.NewGeneratePINCommand(service),
		Charge:             billingcommand.NewChargeCommand(service),
		Refund:             billingcommand.NewRefundCommand(service),
		EnableOperator:     billingcommand.NewEnableOperatorCommand(service),
		DisableOperator:    billingcommand.NewDisableOperatorCommand(service),
		SendWebhook:        billingcommand.NewSendWebhookCommand(service),
		ResumeWebhooks:     billingcommand.NewResumeWebhooksCommand(service),
	}
	facade.queries = Queries{
		SubscriptionStatus: billingquery.NewSubscriptionStatusQuery(service),
		CheckEligibility:   billingquery.NewCheckEligibilityQuery(service),
		IsOperatorEnabled:  billingquery.NewIsOperatorEnabledQuery(cfg.operators),
		OperatorStatuses:   billingquery.NewOperatorStatusesQuery(cfg.operators),
		OperatorStatistics: billingquery.NewOperatorStatisticsQuery(cfg.operators),
		WebhookStatistics:  billingquery.NewWebhookStatisticsQuery(cfg.deliveries),
		OperatorAuditTrail: billingquery.NewOperatorAuditTrailQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveOperatorReader(service CommandQueryService) billingquery.OperatorReader {
	if reader, ok := service.(billingquery.OperatorReader); ok {
		return reader
	}
	if provider, ok := service.(interface{ Registry() *dispatch.Registry }); ok {
		if registry := provider.Registry(); registry != nil {
			return registry
		}
	}
	return nil
}

func resolveDeliveryReader(service CommandQueryService) billingquery.DeliveryStatisticsReader {
	if reader, ok := service.(billingquery.DeliveryStatisticsReader); ok {
		return reader
	}
	if provider, ok := service.(interface{ Deliverer() *webhooks.Deliverer }); ok {
		if deliverer := provider.Deliverer(); deliverer != nil {
			return deliverer
		}
	}
	return nil
}
