package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Unified billing error vocabulary. Callers only ever observe these codes;
// operator-specific codes travel in the envelope metadata.
const (
	BillingErrorMissingParameters   = "MISSING_PARAMETERS"
	BillingErrorAmountTooLow        = "AMOUNT_TOO_LOW"
	BillingErrorAmountLimitExceeded = "AMOUNT_LIMIT_EXCEEDED"
	BillingErrorInvalidMSISDN       = "INVALID_MSISDN"
	BillingErrorMissingCorrelator   = "MISSING_CORRELATOR"
	BillingErrorOperatorNotFound    = "OPERATOR_NOT_FOUND"
	BillingErrorOperatorDisabled    = "OPERATOR_DISABLED"
	BillingErrorOperatorError       = "OPERATOR_ERROR"
	BillingErrorDeliveryFailure     = "DELIVERY_FAILURE"
	BillingErrorInternal            = "BILLING_INTERNAL_ERROR"
)

// Metadata keys carried on operator-error envelopes.
const (
	ErrMetaOperatorCode    = "operator_code"
	ErrMetaOriginalCode    = "original_code"
	ErrMetaOriginalMessage = "original_message"
	ErrMetaMissingFields   = "missing_fields"
	ErrMetaExpectedFormat  = "expected_format"
)

// NewValidationError covers local input failures: never retried, never logged
// as errors (expected control flow).
func NewValidationError(message string, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryValidation).
		WithCode(http.StatusBadRequest).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// NewBusinessRuleError covers limit violations caught before any network call.
func NewBusinessRuleError(message string, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryConflict).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// NewDispatchError covers registry-level resolution failures.
func NewDispatchError(message string, textCode string, operatorCode string) *goerrors.Error {
	category := goerrors.CategoryNotFound
	code := http.StatusNotFound
	if textCode == BillingErrorOperatorDisabled {
		category = goerrors.CategoryConflict
		code = http.StatusConflict
	}
	return goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode).
		WithMetadata(map[string]any{ErrMetaOperatorCode: operatorCode})
}

// NewOperatorError wraps an upstream failure in the unified shape, preserving
// the operator's own code and message in metadata only.
func NewOperatorError(
	source error,
	operatorCode string,
	originalCode string,
	originalMessage string,
) *goerrors.Error {
	message := "operator call failed"
	if strings.TrimSpace(originalMessage) != "" {
		message = strings.TrimSpace(originalMessage)
	}
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryExternal, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryExternal)
	}
	return err.
		WithCode(http.StatusBadGateway).
		WithTextCode(BillingErrorOperatorError).
		WithMetadata(map[string]any{
			ErrMetaOperatorCode:    strings.TrimSpace(operatorCode),
			ErrMetaOriginalCode:    strings.TrimSpace(originalCode),
			ErrMetaOriginalMessage: strings.TrimSpace(originalMessage),
		})
}

// IsUnifiedError reports whether err already carries a billing text code, in
// which case execution wrappers pass it through untouched.
func IsUnifiedError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	switch richErr.TextCode {
	case BillingErrorMissingParameters, BillingErrorAmountTooLow,
		BillingErrorAmountLimitExceeded, BillingErrorInvalidMSISDN,
		BillingErrorMissingCorrelator, BillingErrorOperatorNotFound,
		BillingErrorOperatorDisabled, BillingErrorOperatorError,
		BillingErrorDeliveryFailure, BillingErrorInternal:
		return true
	default:
		return false
	}
}

// IsLocalFailure reports whether err is expected control flow (validation,
// business rule, dispatch) rather than an upstream fault.
func IsLocalFailure(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	switch richErr.TextCode {
	case BillingErrorMissingParameters, BillingErrorAmountTooLow,
		BillingErrorAmountLimitExceeded, BillingErrorInvalidMSISDN,
		BillingErrorMissingCorrelator, BillingErrorOperatorNotFound,
		BillingErrorOperatorDisabled:
		return true
	default:
		return false
	}
}

// UnifiedErrorFrom flattens a rich envelope into the caller-visible shape.
func UnifiedErrorFrom(err error) UnifiedError {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return UnifiedError{Code: BillingErrorInternal, Message: "An unexpected error occurred"}
	}
	out := UnifiedError{
		Code:    richErr.TextCode,
		Message: richErr.Message,
	}
	if out.Code == "" {
		out.Code = BillingErrorInternal
	}
	if richErr.Metadata != nil {
		out.OperatorCode = metadataString(richErr.Metadata, ErrMetaOperatorCode)
		out.OriginalCode = metadataString(richErr.Metadata, ErrMetaOriginalCode)
		out.OriginalMessage = metadataString(richErr.Metadata, ErrMetaOriginalMessage)
	}
	return out
}

// BillingErrorMapper ensures anything leaving this module wears the unified
// envelope.
func BillingErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureBillingEnvelope(richErr)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureBillingEnvelope(mapped)
}

func ensureBillingEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = billingHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultBillingTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultBillingTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return BillingErrorMissingParameters
	case goerrors.CategoryNotFound:
		return BillingErrorOperatorNotFound
	case goerrors.CategoryConflict:
		return BillingErrorOperatorDisabled
	case goerrors.CategoryExternal, goerrors.CategoryOperation:
		return BillingErrorOperatorError
	default:
		return BillingErrorInternal
	}
}

func billingHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal, goerrors.CategoryOperation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
