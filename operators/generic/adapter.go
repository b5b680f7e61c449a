package generic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/normalize"
	"github.com/goliatone/go-carrier-billing/operators/opkit"
)

// Adapter is the config-driven operator implementation. Everything an
// operator diverges on lives in its profile and its normalizer tables; the
// request/response plumbing here is shared by every operator on the common
// upstream protocol.
type Adapter struct {
	profile    core.OperatorProfile
	transport  core.TransportAdapter
	normalizer *normalize.Normalizer
	runner     *opkit.Runner
}

func New(
	profile core.OperatorProfile,
	transport core.TransportAdapter,
	normalizer *normalize.Normalizer,
	observer core.Observer,
) (*Adapter, error) {
	if err := core.ValidateOperatorCode(profile.Code); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("generic: transport adapter is required for operator %s", profile.Code)
	}
	if normalizer == nil {
		normalizer = normalize.New()
	}
	profile.Code = core.NormalizeOperatorCode(profile.Code)

	adapter := &Adapter{
		profile:    profile,
		transport:  transport,
		normalizer: normalizer,
	}
	adapter.runner = opkit.NewRunner(profile.Code, profile.Environment, observer, adapter.MapError)
	return adapter, nil
}

func (a *Adapter) Code() string { return a.profile.Code }

func (a *Adapter) Profile() core.OperatorProfile { return a.profile }

func (a *Adapter) CreateSubscription(ctx context.Context, req core.SubscriptionRequest) (core.UnifiedResult, error) {
	return a.runner.Run(ctx, core.OpCreateSubscription, map[string]any{
		"service_id": req.ServiceID,
		"amount":     req.Amount,
	}, func(ctx context.Context) (core.UnifiedResult, error) {
		if err := opkit.RequireParams(map[string]string{
			"service_id": req.ServiceID,
		}); err != nil {
			return core.UnifiedResult{}, err
		}
		identifier, err := opkit.ResolveIdentifier(a.profile, req.MSISDN, req.ACR)
		if err != nil {
			return core.UnifiedResult{}, err
		}
		if err := opkit.RequireCorrelator(a.profile, req.Correlator); err != nil {
			return core.UnifiedResult{}, err
		}
		if err := opkit.CheckAmountLimits(a.profile, core.OpCreateSubscription, req.Amount); err != nil {
			return core.UnifiedResult{}, err
		}

		payload := map[string]any{
			"serviceId": req.ServiceID,
			"amount":    req.Amount,
			"currency":  a.currency(req.Currency),
			"frequency": req.Frequency,
		}
		a.setIdentifier(payload, identifier)
		if req.Correlator != "" {
			payload["correlator"] = req.Correlator
		}
		if req.PIN != "" {
			payload["pin"] = req.PIN
		}
		return a.call(ctx, http.MethodPost, "/subscriptions", payload, req.Correlator)
	})
}

func (a *Adapter) CancelSubscription(ctx context.Context, req core.CancelRequest) (core.UnifiedResult, error) {
	return a.runner.Run(ctx, core.OpCancelSubscription, map[string]any{
		"subscription_id": req.SubscriptionID,
	}, func(ctx context.Context) (core.UnifiedResult, error) {
		if err := opkit.RequireParams(map[string]string{
			"subscription_id": req.SubscriptionID,
		}); err != nil {
			return core.UnifiedResult{}, err
		}
		payload := map[string]any{}
		if req.Reason != "" {
			payload["reason"] = req.Reason
		}
		path := "/subscriptions/" + url.PathEscape(req.SubscriptionID) + "/cancel"
		return a.call(ctx, http.MethodPost, path, payload, "")
	})
}

func (a *Adapter) SubscriptionStatus(ctx context.Context, req core.StatusRequest) (core.UnifiedResult, error) {
	return a.runner.Run(ctx, core.OpSubscriptionStatus, map[string]any{
		"subscription_id": req.SubscriptionID,
	}, func(ctx context.Context) (core.UnifiedResult, error) {
		if err := opkit.RequireParams(map[string]string{
			"subscription_id": req.SubscriptionID,
		}); err != nil {
			return core.UnifiedResult{}, err
		}
		path := "/subscriptions/" + url.PathEscape(req.SubscriptionID)
		return a.call(ctx, http.MethodGet, path, nil, "")
	})
}

func (a *Adapter) GeneratePIN(ctx context.Context, req core.PINRequest) (core.UnifiedResult, error) {
	return a.runner.Run(ctx, core.OpGeneratePIN, map[string]any{
		"service_id": req.ServiceID,
	}, func(ctx context.Context) (core.UnifiedResult, error) {
		if err := opkit.RequireParams(map[string]string{
			"service_id": req.ServiceID,
		}); err != nil {
			return core.UnifiedResult{}, err
		}
		identifier, err := opkit.ResolveIdentifier(a.profile, req.MSISDN, req.ACR)
		if err != nil {
			return core.UnifiedResult{}, err
		}
		payload := map[string]any{"serviceId": req.ServiceID}
		a.setIdentifier(payload, identifier)
		if req.Template != "" {
			payload["template"] = req.Template
		}
		return a.call(ctx, http.MethodPost, "/pin", payload, "")
	})
}

func (a *Adapter) Charge(ctx context.Context, req core.ChargeRequest) (core.UnifiedResult, error) {
	return a.runner.Run(ctx, core.OpCharge, map[string]any{
		"service_id": req.ServiceID,
		"amount":     req.Amount,
	}, func(ctx context.Context) (core.UnifiedResult, error) {
		if err := opkit.RequireParams(map[string]string{
			"service_id": req.ServiceID,
		}); err != nil {
			return core.UnifiedResult{}, err
		}
		identifier, err := opkit.ResolveIdentifier(a.profile, req.MSISDN, req.ACR)
		if err != nil {
			return core.UnifiedResult{}, err
		}
		if err := opkit.RequireCorrelator(a.profile, req.Correlator); err != nil {
			return core.UnifiedResult{}, err
		}
		if err := opkit.CheckAmountLimits(a.profile, core.OpCharge, req.Amount); err != nil {
			return core.UnifiedResult{}, err
		}

		payload := map[string]any{
			"serviceId": req.ServiceID,
			"amount":    req.Amount,
			"currency":  a.currency(req.Currency),
		}
		a.setIdentifier(payload, identifier)
		if req.Correlator != "" {
			payload["correlator"] = req.Correlator
		}
		return a.call(ctx, http.MethodPost, "/charges", payload, req.TransactionRef)
	})
}

func (a *Adapter) Refund(ctx context.Context, req core.RefundRequest) (core.UnifiedResult, error) {
	return a.runner.Run(ctx, core.OpRefund, map[string]any{
		"transaction_id": req.TransactionID,
		"amount":         req.Amount,
	}, func(ctx context.Context) (core.UnifiedResult, error) {
		if err := opkit.RequireParams(map[string]string{
			"transaction_id": req.TransactionID,
		}); err != nil {
			return core.UnifiedResult{}, err
		}
		if err := opkit.CheckAmountLimits(a.profile, core.OpRefund, req.Amount); err != nil {
			return core.UnifiedResult{}, err
		}
		payload := map[string]any{
			"transactionId": req.TransactionID,
			"amount":        req.Amount,
		}
		if req.Reason != "" {
			payload["reason"] = req.Reason
		}
		return a.call(ctx, http.MethodPost, "/refunds", payload, req.TransactionID)
	})
}

func (a *Adapter) CheckEligibility(ctx context.Context, req core.EligibilityRequest) (core.UnifiedResult, error) {
	return a.runner.Run(ctx, core.OpCheckEligibility, map[string]any{
		"service_id": req.ServiceID,
	}, func(ctx context.Context) (core.UnifiedResult, error) {
		identifier, err := opkit.ResolveIdentifier(a.profile, req.MSISDN, req.ACR)
		if err != nil {
			return core.UnifiedResult{}, err
		}
		payload := map[string]any{}
		a.setIdentifier(payload, identifier)
		if req.ServiceID != "" {
			payload["serviceId"] = req.ServiceID
		}
		if req.Amount > 0 {
			payload["amount"] = req.Amount
		}
		return a.call(ctx, http.MethodPost, "/eligibility", payload, "")
	})
}

// MapResponseData translates one raw payload through the operator's table
// and hands back the unified field map.
func (a *Adapter) MapResponseData(raw map[string]any) map[string]any {
	data, unmapped := a.normalizer.Response(a.profile.Code, raw)
	return resultDataMap(data, unmapped)
}

func (a *Adapter) MapStatus(raw string) core.UnifiedStatus {
	return a.normalizer.StatusForOperator(a.profile.Code, raw)
}

// MapError translates a transport failure or an upstream error payload into
// the unified envelope, preserving the operator's own code and message in
// metadata.
func (a *Adapter) MapError(err error, raw map[string]any) *goerrors.Error {
	originalCode := firstString(raw, "errorCode", "error_code", "code", "faultCode")
	originalMessage := firstString(raw, "errorMessage", "error_message", "message", "description", "faultString")
	if err == nil && originalCode == "" && originalMessage == "" {
		return nil
	}
	if err != nil && originalMessage == "" {
		originalMessage = err.Error()
	}
	return core.NewOperatorError(err, a.profile.Code, originalCode, originalMessage)
}

func (a *Adapter) call(
	ctx context.Context,
	method string,
	path string,
	payload map[string]any,
	idempotency string,
) (core.UnifiedResult, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return core.UnifiedResult{}, fmt.Errorf("generic: encode %s payload: %w", path, err)
		}
		body = encoded
	}

	headers := map[string]string{"Content-Type": "application/json"}
	for key, value := range a.profile.Headers {
		headers[key] = value
	}

	resp, err := a.transport.Do(ctx, core.TransportRequest{
		Method:      method,
		URL:         strings.TrimRight(a.profile.Endpoint, "/") + path,
		Headers:     headers,
		Body:        body,
		Timeout:     a.profile.CallTimeout,
		Idempotency: idempotency,
	})
	if err != nil {
		return core.UnifiedResult{}, err
	}

	raw := map[string]any{}
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &raw); err != nil {
			return core.UnifiedResult{}, a.MapError(
				fmt.Errorf("generic: malformed response from %s: %w", a.profile.Code, err), nil)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return core.UnifiedResult{}, a.MapError(
			fmt.Errorf("generic: operator %s returned HTTP %d", a.profile.Code, resp.StatusCode), raw)
	}
	if upstreamErr := a.MapError(nil, raw); upstreamErr != nil && hasErrorShape(raw) {
		return core.UnifiedResult{}, upstreamErr
	}

	data, unmapped := a.normalizer.Response(a.profile.Code, raw)
	meta := core.ResultMetadata{
		OperatorCode: a.profile.Code,
		Environment:  a.profile.Environment,
		Unmapped:     unmapped,
	}
	result := core.SuccessResult(data, meta)
	return result, nil
}

func (a *Adapter) setIdentifier(payload map[string]any, identifier string) {
	if a.profile.IdentifierMode == core.IdentifierModeACR {
		payload["acr"] = identifier
		return
	}
	payload["msisdn"] = identifier
}

func (a *Adapter) currency(requested string) string {
	if strings.TrimSpace(requested) != "" {
		return strings.ToUpper(strings.TrimSpace(requested))
	}
	return a.profile.Currency
}

// hasErrorShape reports whether the payload is the protocol's error shape
// rather than a success body that happens to carry a message field.
func hasErrorShape(raw map[string]any) bool {
	return firstString(raw, "errorCode", "error_code", "faultCode") != ""
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := raw[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func resultDataMap(data core.ResultData, unmapped bool) map[string]any {
	out := map[string]any{
		normalize.FieldStatus: string(data.Status),
	}
	if data.SubscriptionID != "" {
		out[normalize.FieldSubscriptionID] = data.SubscriptionID
	}
	if data.Amount != 0 {
		out[normalize.FieldAmount] = data.Amount
	}
	if data.Currency != "" {
		out[normalize.FieldCurrency] = data.Currency
	}
	if data.Frequency != "" {
		out[normalize.FieldFrequency] = data.Frequency
	}
	if data.MSISDN != "" {
		out[normalize.FieldMSISDN] = data.MSISDN
	}
	if data.ACR != "" {
		out[normalize.FieldACR] = data.ACR
	}
	if data.CustomerID != "" {
		out[normalize.FieldCustomerID] = data.CustomerID
	}
	if data.TransactionID != "" {
		out[normalize.FieldTransactionID] = data.TransactionID
	}
	if data.PINReference != "" {
		out[normalize.FieldPINReference] = data.PINReference
	}
	if data.Eligible != nil {
		out[normalize.FieldEligible] = *data.Eligible
	}
	if data.EligibilityReason != "" {
		out[normalize.FieldEligibilityReason] = data.EligibilityReason
	}
	if len(data.Extra) > 0 {
		out["extra"] = data.Extra
	}
	if unmapped {
		out["unmapped"] = true
	}
	return out
}

var _ core.Adapter = (*Adapter)(nil)
