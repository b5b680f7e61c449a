package sqlstore

import (
	"context"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-carrier-billing/core"
)

// AuditStore is append-only. Entries are never updated or deleted.
type AuditStore struct {
	db   *bun.DB
	repo repository.Repository[*auditEntryRecord]
}

func NewAuditStore(db *bun.DB) (*AuditStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*auditEntryRecord](db, auditHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid audit repository wiring: %w", err)
		}
	}
	return &AuditStore{db: db, repo: repo}, nil
}

func (s *AuditStore) Append(ctx context.Context, entry core.AuditEntry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: audit store is not configured")
	}
	record := &auditEntryRecord{
		ID:           firstNonEmpty(entry.ID, uuid.NewString()),
		OperatorCode: core.NormalizeOperatorCode(entry.OperatorCode),
		Action:       entry.Action,
		ActorID:      entry.ActorID,
		Reason:       entry.Reason,
		Metadata:     entry.Metadata,
		CreatedAt:    entry.CreatedAt,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NewInsert().Model(record).Exec(ctx)
	return err
}

// History returns entries for one operator, newest first.
func (s *AuditStore) History(ctx context.Context, operatorCode string, limit int) ([]core.AuditEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: audit store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	var records []*auditEntryRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.operator_code = ?", core.NormalizeOperatorCode(operatorCode)).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.AuditEntry, 0, len(records))
	for _, record := range records {
		out = append(out, core.AuditEntry{
			ID:           record.ID,
			OperatorCode: record.OperatorCode,
			Action:       record.Action,
			ActorID:      record.ActorID,
			Reason:       record.Reason,
			Metadata:     record.Metadata,
			CreatedAt:    record.CreatedAt,
		})
	}
	return out, nil
}

var _ core.AuditStore = (*AuditStore)(nil)
