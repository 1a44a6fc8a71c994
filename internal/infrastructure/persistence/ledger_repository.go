package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/shared"
)

// GormLedgerRepository implements LedgerRepository using GORM. The ledger is
// append-only; there is no update or delete path.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Append inserts a ledger entry
func (r *GormLedgerRepository) Append(ctx context.Context, entry *inventory.LedgerEntry) error {
	return translateDBError(r.db.WithContext(ctx).Create(entry).Error)
}

// List queries ledger entries for a tenant, newest first
func (r *GormLedgerRepository) List(ctx context.Context, tenantID uuid.UUID, filter inventory.LedgerFilter) (*shared.Paginated[inventory.LedgerEntry], error) {
	query := r.db.WithContext(ctx).Model(&inventory.LedgerEntry{}).Where("tenant_id = ?", tenantID)

	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, translateDBError(err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var entries []inventory.LedgerEntry
	if err := query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error; err != nil {
		return nil, translateDBError(err)
	}

	result := shared.NewPaginated(entries, total, page, pageSize)
	return &result, nil
}

// SumDeltas totals every recorded delta of one warehouse-product pair. For a
// consistent ledger this equals the current stock quantity.
func (r *GormLedgerRepository) SumDeltas(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&inventory.LedgerEntry{}).
		Select("SUM(quantity_delta)").
		Where("tenant_id = ? AND warehouse_id = ? AND product_id = ?", tenantID, warehouseID, productID).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, translateDBError(err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// Ensure GormLedgerRepository implements LedgerRepository
var _ inventory.LedgerRepository = (*GormLedgerRepository)(nil)
