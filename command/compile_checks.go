package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateSubscriptionMessage] = (*CreateSubscriptionCommand)(nil)
	_ gocmd.Commander[CancelSubscriptionMessage] = (*CancelSubscriptionCommand)(nil)
	_ gocmd.Commander[GeneratePINMessage]        = (*GeneratePINCommand)(nil)
	_ gocmd.Commander[ChargeMessage]             = (*ChargeCommand)(nil)
	_ gocmd.Commander[RefundMessage]             = (*RefundCommand)(nil)
	_ gocmd.Commander[EnableOperatorMessage]     = (*EnableOperatorCommand)(nil)
	_ gocmd.Commander[DisableOperatorMessage]    = (*DisableOperatorCommand)(nil)
	_ gocmd.Commander[SendWebhookMessage]        = (*SendWebhookCommand)(nil)
	_ gocmd.Commander[ResumeWebhooksMessage]     = (*ResumeWebhooksCommand)(nil)
)
