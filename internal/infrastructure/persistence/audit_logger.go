package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderflow/backend/internal/domain/shared"
)

// AuditLogRow is the persisted form of one audit entry. Rows are write-only;
// nothing in the application updates or deletes them.
type AuditLogRow struct {
	ID         uuid.UUID              `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID              `gorm:"type:uuid;not null;index:idx_audit_tenant_entity,priority:1"`
	ActorID    uuid.UUID              `gorm:"type:uuid;not null"`
	ActorName  string                 `gorm:"type:varchar(200)"`
	ActorRole  string                 `gorm:"type:varchar(100)"`
	EntityType string                 `gorm:"type:varchar(100);not null;index:idx_audit_tenant_entity,priority:2"`
	EntityID   uuid.UUID              `gorm:"type:uuid;not null;index:idx_audit_tenant_entity,priority:3"`
	Action     string                 `gorm:"type:varchar(20);not null"`
	Before     map[string]interface{} `gorm:"serializer:json"`
	After      map[string]interface{} `gorm:"serializer:json"`
	CreatedAt  time.Time              `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogRow) TableName() string {
	return "audit_log"
}

// GormAuditLogger persists audit entries inside the caller's transaction, so
// an audit record never outlives a rolled-back mutation.
type GormAuditLogger struct {
	db *gorm.DB
}

// NewGormAuditLogger creates a new GormAuditLogger
func NewGormAuditLogger(db *gorm.DB) *GormAuditLogger {
	return &GormAuditLogger{db: db}
}

// Record implements shared.AuditLogger
func (l *GormAuditLogger) Record(ctx context.Context, entry shared.AuditEntry) error {
	row := AuditLogRow{
		ID:         uuid.New(),
		TenantID:   entry.Actor.TenantID,
		ActorID:    entry.Actor.UserID,
		ActorName:  entry.Actor.Name,
		ActorRole:  entry.Actor.Role,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     string(entry.Action),
		Before:     entry.Before,
		After:      entry.After,
		CreatedAt:  time.Now(),
	}
	return translateDBError(l.db.WithContext(ctx).Create(&row).Error)
}

// Ensure GormAuditLogger implements AuditLogger
var _ shared.AuditLogger = (*GormAuditLogger)(nil)
