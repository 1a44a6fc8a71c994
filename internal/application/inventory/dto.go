package inventory

import (
	"time"

	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustInput is the request to correct the stock of one warehouse-product
// pair. IdempotencyToken is optional; when set, a repeated token makes the
// call a no-op instead of double-applying.
type AdjustInput struct {
	WarehouseID      uuid.UUID       `json:"warehouse_id" binding:"required"`
	ProductID        uuid.UUID       `json:"product_id" binding:"required"`
	Delta            decimal.Decimal `json:"delta" binding:"required"`
	CostPrice        decimal.Decimal `json:"cost_price"`
	Reason           string          `json:"reason" binding:"required,max=500"`
	IdempotencyToken string          `json:"idempotency_token"`
}

// AdjustResult reports the stock position after an adjustment
type AdjustResult struct {
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Duplicate   bool            `json:"duplicate,omitempty"`
}

// TransferItemInput is one product moved by a transfer
type TransferItemInput struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

// TransferInput is the request to move stock between two warehouses
type TransferInput struct {
	FromWarehouseID  uuid.UUID           `json:"from_warehouse_id" binding:"required"`
	ToWarehouseID    uuid.UUID           `json:"to_warehouse_id" binding:"required"`
	Items            []TransferItemInput `json:"items" binding:"required,min=1,dive"`
	Reason           string              `json:"reason" binding:"required,max=500"`
	IdempotencyToken string              `json:"idempotency_token"`
}

// TransferResult reports the outcome of a transfer
type TransferResult struct {
	ItemCount int  `json:"item_count"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// SetMinStockInput sets the low-stock threshold of one pair
type SetMinStockInput struct {
	WarehouseID uuid.UUID       `json:"warehouse_id" binding:"required"`
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	MinStock    decimal.Decimal `json:"min_stock"`
}

// StockAlertDTO reports one pair at or below its threshold
type StockAlertDTO struct {
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	MinStock    decimal.Decimal `json:"min_stock"`
	Level       string          `json:"level"`
	Shortage    decimal.Decimal `json:"shortage"`
}

// StockItemDTO is the outward representation of one warehouse-product pair
type StockItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	MinStock    decimal.Decimal `json:"min_stock"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toStockItemDTO(item *inventory.StockItem) StockItemDTO {
	return StockItemDTO{
		ID:          item.ID,
		WarehouseID: item.WarehouseID,
		ProductID:   item.ProductID,
		Quantity:    item.Quantity,
		MinStock:    item.MinStock,
		UpdatedAt:   item.UpdatedAt,
	}
}

// LedgerEntryDTO is the outward representation of one ledger line
type LedgerEntryDTO struct {
	ID            uuid.UUID       `json:"id"`
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Type          string          `json:"type"`
	QuantityDelta decimal.Decimal `json:"quantity_delta"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	Reason        string          `json:"reason"`
	OperatorID    uuid.UUID       `json:"operator_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toLedgerEntryDTO(entry *inventory.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:            entry.ID,
		WarehouseID:   entry.WarehouseID,
		ProductID:     entry.ProductID,
		Type:          string(entry.Type),
		QuantityDelta: entry.QuantityDelta,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		CostPrice:     entry.CostPrice,
		Reason:        entry.Reason,
		OperatorID:    entry.OperatorID,
		CreatedAt:     entry.CreatedAt,
	}
}
