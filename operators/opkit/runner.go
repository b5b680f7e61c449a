package opkit

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-carrier-billing/core"
)

// ErrorTranslator turns a raw transport failure into the unified envelope.
// Adapters plug their MapError hook in here.
type ErrorTranslator func(err error, raw map[string]any) *goerrors.Error

// Runner wraps every adapter operation with timing, sanitized logging, and
// error translation so concrete adapters only contain the operator-specific
// call itself.
type Runner struct {
	OperatorCode string
	Environment  string
	Observer     core.Observer
	Translate    ErrorTranslator

	// Now is injectable for tests.
	Now func() time.Time
}

func NewRunner(operatorCode string, environment string, observer core.Observer, translate ErrorTranslator) *Runner {
	return &Runner{
		OperatorCode: core.NormalizeOperatorCode(operatorCode),
		Environment:  environment,
		Observer:     observer,
		Translate:    translate,
		Now:          time.Now,
	}
}

// Run executes one adapter operation. On failure the returned UnifiedResult
// carries the flattened error shape and the rich envelope is returned as the
// error value.
func (r *Runner) Run(
	ctx context.Context,
	operation string,
	fields map[string]any,
	fn func(ctx context.Context) (core.UnifiedResult, error),
) (core.UnifiedResult, error) {
	now := r.now()
	meta := core.ResultMetadata{
		OperatorCode: r.OperatorCode,
		Timestamp:    now,
		Environment:  r.Environment,
	}

	logFields := map[string]any{"operator_code": r.OperatorCode}
	for key, value := range fields {
		logFields[key] = value
	}

	result, err := fn(ctx)
	if err != nil {
		rich := r.translate(err)
		r.Observer.Operation(ctx, now, operation, rich, logFields)
		failure := core.FailureResult(core.UnifiedErrorFrom(rich), meta)
		return failure, rich
	}

	if result.Metadata.OperatorCode == "" {
		result.Metadata.OperatorCode = meta.OperatorCode
	}
	if result.Metadata.Timestamp.IsZero() {
		result.Metadata.Timestamp = meta.Timestamp
	}
	if result.Metadata.Environment == "" {
		result.Metadata.Environment = meta.Environment
	}
	if verr := result.Validate(); verr != nil {
		rich := core.BillingErrorMapper(verr)
		r.Observer.Operation(ctx, now, operation, rich, logFields)
		return core.FailureResult(core.UnifiedErrorFrom(rich), meta), rich
	}

	r.Observer.Operation(ctx, now, operation, nil, logFields)
	return result, nil
}

// translate passes envelopes that already wear a billing text code through
// untouched; everything else goes through the adapter's translator.
func (r *Runner) translate(err error) *goerrors.Error {
	if core.IsUnifiedError(err) {
		var rich *goerrors.Error
		goerrors.As(err, &rich)
		return rich
	}
	if r.Translate != nil {
		if rich := r.Translate(err, nil); rich != nil {
			return rich
		}
	}
	return core.NewOperatorError(err, r.OperatorCode, "", err.Error())
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
