package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/shared"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// FindByID finds a purchase order by its ID with items and shipments loaded
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	var order procurement.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Shipments").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, translateDBError(err)
	}
	return &order, nil
}

// FindByIDForTenant finds a purchase order by ID within a tenant
func (r *GormPurchaseOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	var order procurement.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Shipments").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&order).Error; err != nil {
		return nil, translateDBError(err)
	}
	return &order, nil
}

// FindByIDsForTenant loads a batch of purchase orders; missing ids are
// simply absent from the result
func (r *GormPurchaseOrderRepository) FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]procurement.PurchaseOrder, error) {
	if len(ids) == 0 {
		return []procurement.PurchaseOrder{}, nil
	}

	var orders []procurement.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&orders).Error; err != nil {
		return nil, translateDBError(err)
	}
	return orders, nil
}

// FindAllForTenant lists purchase orders for a tenant with pagination
func (r *GormPurchaseOrderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[procurement.PurchaseOrder], error) {
	query := r.db.WithContext(ctx).Model(&procurement.PurchaseOrder{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		pattern := ilikePattern(filter.Search)
		query = query.Where("po_no ILIKE ? OR supplier_name ILIKE ?", pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "type":
			query = query.Where("type = ?", value)
		case "supplier_id":
			query = query.Where("supplier_id = ?", value)
		case "order_id":
			query = query.Where("order_id = ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, translateDBError(err)
	}

	orderBy := ValidateSortField(filter.OrderBy, PurchaseOrderSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	page, pageSize := normalizePage(filter)
	var orders []procurement.PurchaseOrder
	if err := query.
		Preload("Items").
		Order(orderBy + " " + orderDir).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error; err != nil {
		return nil, translateDBError(err)
	}

	result := shared.NewPaginated(orders, total, page, pageSize)
	return &result, nil
}

// FindByOrderID lists the purchase orders routed from one sales order
func (r *GormPurchaseOrderRepository) FindByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) ([]procurement.PurchaseOrder, error) {
	var orders []procurement.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, translateDBError(err)
	}
	return orders, nil
}

// FindByStatus lists the tenant's purchase orders in one lifecycle status
func (r *GormPurchaseOrderRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status procurement.POStatus) ([]procurement.PurchaseOrder, error) {
	var orders []procurement.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND status = ?", tenantID, status).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, translateDBError(err)
	}
	return orders, nil
}

// Save creates or updates a purchase order together with its items
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, order *procurement.PurchaseOrder) error {
	return translateDBError(r.db.WithContext(ctx).Save(order).Error)
}

// SaveShipment inserts a shipment row. Called in the same transaction as the
// SHIPPED transition of the owning order.
func (r *GormPurchaseOrderRepository) SaveShipment(ctx context.Context, shipment *procurement.Shipment) error {
	return translateDBError(r.db.WithContext(ctx).Create(shipment).Error)
}

// DeleteDrafts removes draft orders and their items. Every id must name a
// DRAFT order of the tenant; otherwise nothing is deleted.
func (r *GormPurchaseOrderRepository) DeleteDrafts(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ? AND status = ?", tenantID, ids, procurement.POStatusDraft).
		Delete(&procurement.PurchaseOrder{})
	if result.Error != nil {
		return translateDBError(result.Error)
	}
	if result.RowsAffected != int64(len(ids)) {
		return shared.NewValidationError("NOT_DELETABLE",
			fmt.Sprintf("Expected to delete %d draft orders, matched %d", len(ids), result.RowsAffected))
	}

	if err := r.db.WithContext(ctx).
		Where("po_id IN ?", ids).
		Delete(&procurement.POItem{}).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}

// Ensure GormPurchaseOrderRepository implements PurchaseOrderRepository
var _ procurement.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
