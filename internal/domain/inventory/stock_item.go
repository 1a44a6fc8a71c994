package inventory

import (
	"fmt"
	"time"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockItem holds the on-hand quantity of a product at a warehouse. The
// composite identifier is WarehouseID + ProductID, unique per tenant. Rows
// are mutated only under a pessimistic row lock inside a transaction.
type StockItem struct {
	shared.TenantAggregateRoot
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_item_warehouse_product,priority:2"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_item_warehouse_product,priority:3"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MinStock    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockItem) TableName() string {
	return "stock_items"
}

// NewStockItem creates a stock row for a warehouse-product pair. The initial
// quantity may not be negative.
func NewStockItem(tenantID, warehouseID, productID uuid.UUID, initial decimal.Decimal) (*StockItem, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if initial.IsNegative() {
		return nil, shared.NewValidationError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Initial stock for product %s cannot be negative", productID))
	}

	return &StockItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		WarehouseID:         warehouseID,
		ProductID:           productID,
		Quantity:            initial,
		MinStock:            decimal.Zero,
	}, nil
}

// Apply changes the quantity by delta. The resulting quantity may never go
// negative; the failed delta leaves the row untouched.
func (i *StockItem) Apply(delta decimal.Decimal) error {
	if delta.IsZero() {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity delta cannot be zero")
	}

	newQuantity := i.Quantity.Add(delta)
	if newQuantity.IsNegative() {
		return shared.NewValidationError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Product %s at warehouse %s: stock %s cannot absorb %s",
				i.ProductID, i.WarehouseID, i.Quantity.String(), delta.String()))
	}

	i.Quantity = newQuantity
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return nil
}

// SetMinStock sets the low-stock alert threshold
func (i *StockItem) SetMinStock(threshold decimal.Decimal) error {
	if threshold.IsNegative() {
		return shared.NewValidationError("INVALID_THRESHOLD", "Minimum stock cannot be negative")
	}

	i.MinStock = threshold
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return nil
}

// AlertLevel classifies the stock position against the MinStock threshold
type AlertLevel string

const (
	AlertLevelNone     AlertLevel = "NONE"
	AlertLevelWarning  AlertLevel = "WARNING"
	AlertLevelCritical AlertLevel = "CRITICAL"
)

// Alert returns the alert level and the shortage against MinStock. Depleted
// stock is CRITICAL, stock at or below the threshold is WARNING.
func (i *StockItem) Alert() (AlertLevel, decimal.Decimal) {
	if i.MinStock.LessThanOrEqual(decimal.Zero) {
		return AlertLevelNone, decimal.Zero
	}
	shortage := i.MinStock.Sub(i.Quantity)
	if shortage.IsNegative() {
		return AlertLevelNone, decimal.Zero
	}
	if i.Quantity.LessThanOrEqual(decimal.Zero) {
		return AlertLevelCritical, shortage
	}
	return AlertLevelWarning, shortage
}
