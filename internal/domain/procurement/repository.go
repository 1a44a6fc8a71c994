package procurement

import (
	"context"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PurchaseOrderRepository defines persistence operations for purchase orders
type PurchaseOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseOrder, error)
	FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]PurchaseOrder, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[PurchaseOrder], error)
	FindByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) ([]PurchaseOrder, error)
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status POStatus) ([]PurchaseOrder, error)
	Save(ctx context.Context, order *PurchaseOrder) error
	SaveShipment(ctx context.Context, shipment *Shipment) error
	DeleteDrafts(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error
}

// ProductionTaskRepository defines persistence operations for production tasks
type ProductionTaskRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductionTask, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ProductionTask, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[ProductionTask], error)
	FindByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) ([]ProductionTask, error)
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status TaskStatus) ([]ProductionTask, error)
	Save(ctx context.Context, task *ProductionTask) error
}

// DocumentNumberGenerator mints unique sequential document numbers such as
// "PO-000001". Generation must happen inside the creating transaction so
// concurrent creators cannot collide.
type DocumentNumberGenerator interface {
	Generate(ctx context.Context, tenantID uuid.UUID, prefix string) (string, error)
}
