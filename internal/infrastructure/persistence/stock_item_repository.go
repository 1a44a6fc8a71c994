package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/shared"
)

// GormStockItemRepository implements StockItemRepository using GORM
type GormStockItemRepository struct {
	db *gorm.DB
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(db *gorm.DB) *GormStockItemRepository {
	return &GormStockItemRepository{db: db}
}

// FindForUpdate loads a stock row under a pessimistic FOR UPDATE lock. Must
// run inside a transaction; the lock holds until commit or rollback.
func (r *GormStockItemRepository) FindForUpdate(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*inventory.StockItem, error) {
	var item inventory.StockItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND warehouse_id = ? AND product_id = ?", tenantID, warehouseID, productID).
		First(&item).Error; err != nil {
		return nil, translateDBError(err)
	}
	return &item, nil
}

// Find loads a stock row without locking
func (r *GormStockItemRepository) Find(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*inventory.StockItem, error) {
	var item inventory.StockItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND warehouse_id = ? AND product_id = ?", tenantID, warehouseID, productID).
		First(&item).Error; err != nil {
		return nil, translateDBError(err)
	}
	return &item, nil
}

// FindAllForTenant lists stock rows for a tenant with pagination
func (r *GormStockItemRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[inventory.StockItem], error) {
	query := r.db.WithContext(ctx).Model(&inventory.StockItem{}).Where("tenant_id = ?", tenantID)

	for key, value := range filter.Filters {
		switch key {
		case "warehouse_id":
			query = query.Where("warehouse_id = ?", value)
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "below_min":
			if value == true {
				query = query.Where("min_stock > 0 AND quantity <= min_stock")
			}
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, translateDBError(err)
	}

	orderBy := ValidateSortField(filter.OrderBy, StockItemSortFields, "updated_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	page, pageSize := normalizePage(filter)
	var items []inventory.StockItem
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		return nil, translateDBError(err)
	}

	result := shared.NewPaginated(items, total, page, pageSize)
	return &result, nil
}

// FindByWarehouse lists all stock rows of one warehouse
func (r *GormStockItemRepository) FindByWarehouse(ctx context.Context, tenantID, warehouseID uuid.UUID) ([]inventory.StockItem, error) {
	var items []inventory.StockItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND warehouse_id = ?", tenantID, warehouseID).
		Order("product_id ASC").
		Find(&items).Error; err != nil {
		return nil, translateDBError(err)
	}
	return items, nil
}

// FindWithThreshold lists all stock rows that carry a low-stock threshold
func (r *GormStockItemRepository) FindWithThreshold(ctx context.Context, tenantID uuid.UUID) ([]inventory.StockItem, error) {
	var items []inventory.StockItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND min_stock > 0", tenantID).
		Order("warehouse_id ASC, product_id ASC").
		Find(&items).Error; err != nil {
		return nil, translateDBError(err)
	}
	return items, nil
}

// Save creates or updates a stock row
func (r *GormStockItemRepository) Save(ctx context.Context, item *inventory.StockItem) error {
	return translateDBError(r.db.WithContext(ctx).Save(item).Error)
}

// normalizePage clamps pagination inputs to sane values
func normalizePage(filter shared.Filter) (page, pageSize int) {
	page = filter.Page
	if page < 1 {
		page = 1
	}
	pageSize = filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

// ilikePattern builds a case-insensitive search pattern
func ilikePattern(search string) string {
	return "%" + strings.TrimSpace(search) + "%"
}

// Ensure GormStockItemRepository implements StockItemRepository
var _ inventory.StockItemRepository = (*GormStockItemRepository)(nil)
