package partner

import (
	"context"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Warehouse represents a physical stock location
type Warehouse struct {
	shared.TenantAggregateRoot
	Code     string `gorm:"type:varchar(50);not null;uniqueIndex:idx_warehouse_tenant_code,priority:2"`
	Name     string `gorm:"type:varchar(200);not null"`
	Address  string `gorm:"type:text"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates a new warehouse
func NewWarehouse(tenantID uuid.UUID, code, name string) (*Warehouse, error) {
	if code == "" {
		return nil, shared.NewValidationError("INVALID_WAREHOUSE_CODE", "Warehouse code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewValidationError("INVALID_WAREHOUSE_NAME", "Warehouse name cannot be empty")
	}

	return &Warehouse{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		IsActive:            true,
	}, nil
}

// WarehouseRepository defines persistence operations for warehouses
type WarehouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Warehouse, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Warehouse, error)
	Save(ctx context.Context, warehouse *Warehouse) error
}
