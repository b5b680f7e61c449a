package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidOperatorCode                 = errors.New("core: invalid operator code")
	ErrInvalidRegistrationStatusTransition = errors.New("core: invalid registration status transition")
	ErrDisableReasonRequired               = errors.New("core: disable reason is required")
	ErrResultShapeConflict                 = errors.New("core: unified result carries both data and error")
)

// UnifiedStatus is the closed, operator-agnostic subscription vocabulary.
// Every adapter translates its own status literals into one of these.
type UnifiedStatus string

const (
	StatusActive    UnifiedStatus = "active"
	StatusSuspended UnifiedStatus = "suspended"
	StatusCancelled UnifiedStatus = "cancelled"
	StatusTrial     UnifiedStatus = "trial"
	StatusGrace     UnifiedStatus = "grace"
	StatusExpired   UnifiedStatus = "expired"
	StatusPending   UnifiedStatus = "pending"
	StatusUnknown   UnifiedStatus = "unknown"
)

func UnifiedStatuses() []UnifiedStatus {
	return []UnifiedStatus{
		StatusActive,
		StatusSuspended,
		StatusCancelled,
		StatusTrial,
		StatusGrace,
		StatusExpired,
		StatusPending,
		StatusUnknown,
	}
}

func (s UnifiedStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusCancelled, StatusTrial,
		StatusGrace, StatusExpired, StatusPending, StatusUnknown:
		return true
	default:
		return false
	}
}

type RegistrationStatus string

const (
	RegistrationStatusActive    RegistrationStatus = "active"
	RegistrationStatusSuspended RegistrationStatus = "suspended"
	RegistrationStatusRetired   RegistrationStatus = "retired"
)

// OperatorRegistration identifies one provisioned operator. Exactly one
// registration exists per operator code; disabling flips the flag and records
// a reason, it never deletes the row (soft delete is owned by the store).
type OperatorRegistration struct {
	ID                string
	Code              string
	Name              string
	Enabled           bool
	Status            RegistrationStatus
	HealthScore       float64
	LastHealthCheckAt *time.Time
	DisableReason     string
	// Config is the opaque per-operator blob: endpoints, currency, limits,
	// identifier rules. Decoded into an OperatorProfile when binding.
	Config map[string]any
	// CredentialsRef points at the secret material. Never logged and never
	// serialized toward callers.
	CredentialsRef string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SetEnabled flips the enabled flag. Disabling requires a non-empty reason;
// enabling clears the recorded reason.
func (r *OperatorRegistration) SetEnabled(enabled bool, reason string, now time.Time) error {
	if r == nil {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if !enabled && reason == "" {
		return fmt.Errorf("%w: operator %s", ErrDisableReasonRequired, r.Code)
	}
	r.Enabled = enabled
	r.UpdatedAt = now
	if enabled {
		r.DisableReason = ""
		return nil
	}
	r.DisableReason = reason
	return nil
}

func (r *OperatorRegistration) TransitionTo(status RegistrationStatus, now time.Time) error {
	if r == nil {
		return nil
	}
	if r.Status == status {
		r.UpdatedAt = now
		return nil
	}
	if !registrationTransitionAllowed(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidRegistrationStatusTransition, r.Status, status)
	}
	r.Status = status
	r.UpdatedAt = now
	return nil
}

func registrationTransitionAllowed(current, next RegistrationStatus) bool {
	allowed := map[RegistrationStatus]map[RegistrationStatus]struct{}{
		RegistrationStatusActive: {
			RegistrationStatusSuspended: {},
			RegistrationStatusRetired:   {},
		},
		RegistrationStatusSuspended: {
			RegistrationStatusActive:  {},
			RegistrationStatusRetired: {},
		},
		RegistrationStatusRetired: {},
	}
	_, ok := allowed[current][next]
	return ok
}

// IsOperational gates routing without flipping the enabled flag: a slow or
// failing operator stays registered and enabled but drops out of rotation.
func (r OperatorRegistration) IsOperational(healthThreshold float64) bool {
	return r.Enabled && r.Status == RegistrationStatusActive && r.HealthScore > healthThreshold
}

// ResultData is the normalized payload portion of a UnifiedResult.
type ResultData struct {
	SubscriptionID    string
	Status            UnifiedStatus
	Amount            float64
	Currency          string
	Frequency         string
	MSISDN            string
	ACR               string
	CustomerID        string
	TransactionID     string
	PINReference      string
	Eligible          *bool
	EligibilityReason string
	Extra             map[string]any
}

// UnifiedError is the only error shape callers ever observe for operator
// failures. Raw upstream payloads stay in internal logs.
type UnifiedError struct {
	Code            string
	Message         string
	OriginalCode    string
	OriginalMessage string
	OperatorCode    string
}

func (e UnifiedError) Error() string {
	if strings.TrimSpace(e.OriginalCode) != "" {
		return fmt.Sprintf("%s: %s (operator %s code %s)", e.Code, e.Message, e.OperatorCode, e.OriginalCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type ResultMetadata struct {
	OperatorCode string
	Timestamp    time.Time
	Environment  string
	// Unmapped marks results produced by the passthrough mapping for operator
	// codes with no normalizer table entry yet.
	Unmapped bool
}

// UnifiedResult is the normalized shape every adapter operation returns.
// Data and Error are mutually exclusive.
type UnifiedResult struct {
	Success  bool
	Data     *ResultData
	Error    *UnifiedError
	Metadata ResultMetadata
}

func SuccessResult(data ResultData, meta ResultMetadata) UnifiedResult {
	if !data.Status.Valid() {
		data.Status = StatusUnknown
	}
	return UnifiedResult{Success: true, Data: &data, Metadata: meta}
}

func FailureResult(uerr UnifiedError, meta ResultMetadata) UnifiedResult {
	return UnifiedResult{Success: false, Error: &uerr, Metadata: meta}
}

func (r UnifiedResult) Validate() error {
	if r.Data != nil && r.Error != nil {
		return ErrResultShapeConflict
	}
	if r.Data != nil && !r.Data.Status.Valid() {
		return fmt.Errorf("core: status %q outside unified vocabulary", r.Data.Status)
	}
	return nil
}

// AuditEntry records one administrative action against an operator.
type AuditEntry struct {
	ID           string
	OperatorCode string
	Action       string
	ActorID      string
	Reason       string
	Metadata     map[string]any
	CreatedAt    time.Time
}

const (
	OperatorEventEnabled  = "operator.enabled"
	OperatorEventDisabled = "operator.disabled"
	OperatorEventHealth   = "operator.health"
)

// OperatorEvent is the local notification published on enable/disable and
// health-score changes. Delivery is in-process only.
type OperatorEvent struct {
	ID           string
	Name         string
	OperatorCode string
	ActorID      string
	Reason       string
	HealthScore  float64
	OccurredAt   time.Time
	Metadata     map[string]any
}

func NormalizeOperatorCode(code string) string {
	return strings.TrimSpace(strings.ToLower(code))
}

func ValidateOperatorCode(code string) error {
	if NormalizeOperatorCode(code) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidOperatorCode)
	}
	return nil
}
