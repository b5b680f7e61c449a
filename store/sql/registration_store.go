package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-carrier-billing/core"
)

// RegistrationStore persists operator registrations. Rows are soft deleted;
// FindActive excludes retired registrations but includes disabled ones so
// the dispatcher can tell "disabled" apart from "not registered".
type RegistrationStore struct {
	db   *bun.DB
	repo repository.Repository[*operatorRegistrationRecord]
}

func NewRegistrationStore(db *bun.DB) (*RegistrationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*operatorRegistrationRecord](db, registrationHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid registration repository wiring: %w", err)
		}
	}
	return &RegistrationStore{db: db, repo: repo}, nil
}

// Create provisions a new registration row. The operator code is unique; a
// second create for the same code fails.
func (s *RegistrationStore) Create(ctx context.Context, registration core.OperatorRegistration) (core.OperatorRegistration, error) {
	if s == nil || s.db == nil {
		return core.OperatorRegistration{}, fmt.Errorf("sqlstore: registration store is not configured")
	}
	code := core.NormalizeOperatorCode(registration.Code)
	if err := core.ValidateOperatorCode(code); err != nil {
		return core.OperatorRegistration{}, err
	}
	now := time.Now().UTC()
	record := &operatorRegistrationRecord{
		ID:             firstNonEmpty(registration.ID, uuid.NewString()),
		Code:           code,
		Name:           registration.Name,
		Enabled:        registration.Enabled,
		Status:         string(registration.Status),
		HealthScore:    registration.HealthScore,
		DisableReason:  registration.DisableReason,
		Config:         registration.Config,
		CredentialsRef: registration.CredentialsRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if record.Status == "" {
		record.Status = string(core.RegistrationStatusActive)
	}
	if record.Config == nil {
		record.Config = map[string]any{}
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.OperatorRegistration{}, err
	}
	return registrationToDomain(record), nil
}

func (s *RegistrationStore) FindActive(ctx context.Context) ([]core.OperatorRegistration, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: registration store is not configured")
	}
	var records []*operatorRegistrationRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status != ?", string(core.RegistrationStatusRetired)).
		Order("code ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.OperatorRegistration, 0, len(records))
	for _, record := range records {
		out = append(out, registrationToDomain(record))
	}
	return out, nil
}

func (s *RegistrationStore) Load(ctx context.Context, code string) (core.OperatorRegistration, error) {
	if s == nil || s.db == nil {
		return core.OperatorRegistration{}, fmt.Errorf("sqlstore: registration store is not configured")
	}
	record := &operatorRegistrationRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", core.NormalizeOperatorCode(code)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.OperatorRegistration{}, fmt.Errorf("sqlstore: operator %q not found", code)
		}
		return core.OperatorRegistration{}, err
	}
	return registrationToDomain(record), nil
}

func (s *RegistrationStore) Update(ctx context.Context, code string, update core.RegistrationUpdate) (core.OperatorRegistration, error) {
	if s == nil || s.db == nil {
		return core.OperatorRegistration{}, fmt.Errorf("sqlstore: registration store is not configured")
	}
	code = core.NormalizeOperatorCode(code)
	now := time.Now().UTC()

	query := s.db.NewUpdate().
		Model((*operatorRegistrationRecord)(nil)).
		Set("updated_at = ?", now).
		Where("code = ?", code)

	touched := false
	if update.Enabled != nil {
		query = query.Set("enabled = ?", *update.Enabled)
		touched = true
	}
	if update.DisableReason != nil {
		query = query.Set("disable_reason = ?", *update.DisableReason)
		touched = true
	}
	if update.Status != nil {
		query = query.Set("status = ?", string(*update.Status))
		touched = true
	}
	if update.HealthScore != nil {
		query = query.Set("health_score = ?", *update.HealthScore)
		touched = true
	}
	if update.LastHealthCheckAt != nil {
		query = query.Set("last_health_check_at = ?", update.LastHealthCheckAt.UTC())
		touched = true
	}
	if update.Config != nil {
		query = query.Set("config = ?", update.Config)
		touched = true
	}
	if !touched {
		return s.Load(ctx, code)
	}

	result, err := query.Exec(ctx)
	if err != nil {
		return core.OperatorRegistration{}, err
	}
	if affected, aerr := result.RowsAffected(); aerr == nil && affected == 0 {
		return core.OperatorRegistration{}, fmt.Errorf("sqlstore: operator %q not found", code)
	}
	return s.Load(ctx, code)
}

// Retire soft-deletes the registration and marks it retired.
func (s *RegistrationStore) Retire(ctx context.Context, code string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: registration store is not configured")
	}
	now := time.Now().UTC()
	_, err := s.db.NewUpdate().
		Model((*operatorRegistrationRecord)(nil)).
		Set("status = ?", string(core.RegistrationStatusRetired)).
		Set("deleted_at = ?", now).
		Set("updated_at = ?", now).
		Where("code = ?", core.NormalizeOperatorCode(code)).
		Exec(ctx)
	return err
}

func registrationToDomain(record *operatorRegistrationRecord) core.OperatorRegistration {
	if record == nil {
		return core.OperatorRegistration{}
	}
	out := core.OperatorRegistration{
		ID:             record.ID,
		Code:           record.Code,
		Name:           record.Name,
		Enabled:        record.Enabled,
		Status:         core.RegistrationStatus(record.Status),
		HealthScore:    record.HealthScore,
		DisableReason:  record.DisableReason,
		Config:         record.Config,
		CredentialsRef: record.CredentialsRef,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
	if record.LastHealthCheckAt != nil {
		checked := *record.LastHealthCheckAt
		out.LastHealthCheckAt = &checked
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

var _ core.RegistrationStore = (*RegistrationStore)(nil)
