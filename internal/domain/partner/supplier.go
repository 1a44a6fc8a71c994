package partner

import (
	"context"
	"time"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SupplierCapability describes what a partner can do for us: supply finished
// goods or fabric, fabricate custom items, or both.
type SupplierCapability string

const (
	CapabilitySupplier  SupplierCapability = "SUPPLIER"
	CapabilityProcessor SupplierCapability = "PROCESSOR"
	CapabilityBoth      SupplierCapability = "BOTH"
)

// IsValid checks if the capability is a known value
func (c SupplierCapability) IsValid() bool {
	switch c {
	case CapabilitySupplier, CapabilityProcessor, CapabilityBoth:
		return true
	}
	return false
}

// CanSupply returns true if the partner can deliver purchased goods
func (c SupplierCapability) CanSupply() bool {
	return c == CapabilitySupplier || c == CapabilityBoth
}

// CanProcess returns true if the partner can fabricate custom items
func (c SupplierCapability) CanProcess() bool {
	return c == CapabilityProcessor || c == CapabilityBoth
}

// Supplier represents a supplier or processor in the partner context.
// Only the fields the routing and procurement flows read are modelled here;
// contact and finance details live outside this core.
type Supplier struct {
	shared.TenantAggregateRoot
	SupplierNo string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_supplier_tenant_no,priority:2"`
	Name       string             `gorm:"type:varchar(200);not null"`
	Capability SupplierCapability `gorm:"type:varchar(20);not null;default:'SUPPLIER'"`
	IsActive   bool               `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Supplier) TableName() string {
	return "suppliers"
}

// NewSupplier creates a new supplier
func NewSupplier(tenantID uuid.UUID, supplierNo, name string, capability SupplierCapability) (*Supplier, error) {
	if supplierNo == "" {
		return nil, shared.NewValidationError("INVALID_SUPPLIER_NO", "Supplier number cannot be empty")
	}
	if name == "" {
		return nil, shared.NewValidationError("INVALID_SUPPLIER_NAME", "Supplier name cannot be empty")
	}
	if !capability.IsValid() {
		return nil, shared.NewValidationError("INVALID_CAPABILITY", "Unknown supplier capability: "+string(capability))
	}

	return &Supplier{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SupplierNo:          supplierNo,
		Name:                name,
		Capability:          capability,
		IsActive:            true,
	}, nil
}

// Deactivate marks the supplier as no longer usable for new documents
func (s *Supplier) Deactivate() {
	s.IsActive = false
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// SupplierRepository defines persistence operations for suppliers
type SupplierRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Supplier, error)
	// FindByIDs loads a batch of suppliers in one query; missing ids are
	// simply absent from the result map.
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*Supplier, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Supplier, error)
	Save(ctx context.Context, supplier *Supplier) error
}
