package inventory

import (
	"context"
	"time"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockItemRepository defines persistence operations for stock rows. The
// ForUpdate variant takes a pessimistic row lock and must run inside a
// transaction.
type StockItemRepository interface {
	FindForUpdate(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*StockItem, error)
	Find(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*StockItem, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[StockItem], error)
	FindByWarehouse(ctx context.Context, tenantID, warehouseID uuid.UUID) ([]StockItem, error)
	FindWithThreshold(ctx context.Context, tenantID uuid.UUID) ([]StockItem, error)
	Save(ctx context.Context, item *StockItem) error
}

// LedgerFilter narrows ledger queries
type LedgerFilter struct {
	WarehouseID *uuid.UUID
	ProductID   *uuid.UUID
	Type        *LedgerEntryType
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

// LedgerRepository appends and queries the immutable stock mutation log
type LedgerRepository interface {
	Append(ctx context.Context, entry *LedgerEntry) error
	List(ctx context.Context, tenantID uuid.UUID, filter LedgerFilter) (*shared.Paginated[LedgerEntry], error)
	SumDeltas(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (decimal.Decimal, error)
}
