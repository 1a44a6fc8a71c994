package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/shared"
)

// DocumentSequenceRow tracks the last minted number per tenant and prefix
type DocumentSequenceRow struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primary_key"`
	Prefix    string    `gorm:"type:varchar(20);primary_key"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequenceRow) TableName() string {
	return "document_sequences"
}

// GormDocumentNumberGenerator mints document numbers like "PO-000123" from a
// per-tenant sequence row. The row is read under FOR UPDATE, so two creators
// in concurrent transactions serialize instead of minting the same number.
// Must run inside a transaction.
type GormDocumentNumberGenerator struct {
	db *gorm.DB
}

// NewGormDocumentNumberGenerator creates a new GormDocumentNumberGenerator
func NewGormDocumentNumberGenerator(db *gorm.DB) *GormDocumentNumberGenerator {
	return &GormDocumentNumberGenerator{db: db}
}

// Generate mints the next number for the tenant and prefix
func (g *GormDocumentNumberGenerator) Generate(ctx context.Context, tenantID uuid.UUID, prefix string) (string, error) {
	if prefix == "" {
		return "", shared.NewValidationError("INVALID_PREFIX", "Document prefix cannot be empty")
	}

	var row DocumentSequenceRow
	err := g.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND prefix = ?", tenantID, prefix).
		First(&row).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = DocumentSequenceRow{
			TenantID:  tenantID,
			Prefix:    prefix,
			LastValue: 0,
			UpdatedAt: time.Now(),
		}
		if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
			return "", translateDBError(err)
		}
	case err != nil:
		return "", translateDBError(err)
	}

	row.LastValue++
	row.UpdatedAt = time.Now()
	if err := g.db.WithContext(ctx).
		Model(&DocumentSequenceRow{}).
		Where("tenant_id = ? AND prefix = ?", tenantID, prefix).
		Updates(map[string]interface{}{
			"last_value": row.LastValue,
			"updated_at": row.UpdatedAt,
		}).Error; err != nil {
		return "", translateDBError(err)
	}

	return fmt.Sprintf("%s-%06d", prefix, row.LastValue), nil
}

// Ensure GormDocumentNumberGenerator implements DocumentNumberGenerator
var _ procurement.DocumentNumberGenerator = (*GormDocumentNumberGenerator)(nil)
