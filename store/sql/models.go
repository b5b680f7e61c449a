package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type operatorRegistrationRecord struct {
	bun.BaseModel `bun:"table:operator_registrations,alias:opr"`

	ID                string         `bun:"id,pk"`
	Code              string         `bun:"code,notnull,unique"`
	Name              string         `bun:"name,notnull"`
	Enabled           bool           `bun:"enabled,notnull"`
	Status            string         `bun:"status,notnull"`
	HealthScore       float64        `bun:"health_score,notnull"`
	LastHealthCheckAt *time.Time     `bun:"last_health_check_at,nullzero"`
	DisableReason     string         `bun:"disable_reason"`
	Config            map[string]any `bun:"config,type:jsonb,notnull"`
	CredentialsRef    string         `bun:"credentials_ref"`
	CreatedAt         time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt         *time.Time     `bun:"deleted_at,soft_delete"`
}

type auditEntryRecord struct {
	bun.BaseModel `bun:"table:operator_audit_entries,alias:oae"`

	ID           string         `bun:"id,pk"`
	OperatorCode string         `bun:"operator_code,notnull"`
	Action       string         `bun:"action,notnull"`
	ActorID      string         `bun:"actor_id"`
	Reason       string         `bun:"reason"`
	Metadata     map[string]any `bun:"metadata,type:jsonb"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type webhookDeliveryRecord struct {
	bun.BaseModel `bun:"table:webhook_deliveries,alias:whd"`

	ID            string     `bun:"id,pk"`
	URL           string     `bun:"url,notnull"`
	Payload       []byte     `bun:"payload,notnull"`
	EventType     string     `bun:"event_type,notnull"`
	Attempts      int        `bun:"attempts,notnull"`
	Status        string     `bun:"status,notnull"`
	FirstFailedAt time.Time  `bun:"first_failed_at,nullzero"`
	NextAttemptAt time.Time  `bun:"next_attempt_at,nullzero"`
	LastError     string     `bun:"last_error"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete"`
}
