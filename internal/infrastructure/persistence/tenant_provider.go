package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderflow/backend/internal/domain/inventory"
)

// GormTenantProvider lists the tenants that have stock rows, which is the set
// the periodic business metrics collector iterates over.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a tenant provider backed by the stock_items table
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns the distinct tenant IDs that own stock items
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	err := p.db.WithContext(ctx).
		Model(&inventory.StockItem{}).
		Distinct().
		Pluck("tenant_id", &tenantIDs).Error
	if err != nil {
		return nil, translateDBError(err)
	}
	return tenantIDs, nil
}
