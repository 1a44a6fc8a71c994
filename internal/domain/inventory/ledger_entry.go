package inventory

import (
	"time"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntryType classifies what caused a stock mutation
type LedgerEntryType string

const (
	// LedgerEntryAdjust is a manual stock correction
	LedgerEntryAdjust LedgerEntryType = "ADJUST"
	// LedgerEntryTransfer moves stock between warehouses
	LedgerEntryTransfer LedgerEntryType = "TRANSFER"
	// LedgerEntryReceipt posts goods received against a purchase order
	LedgerEntryReceipt LedgerEntryType = "RECEIPT"
)

// IsValid checks if the type is a known LedgerEntryType
func (t LedgerEntryType) IsValid() bool {
	return t == LedgerEntryAdjust || t == LedgerEntryTransfer || t == LedgerEntryReceipt
}

// LedgerEntry is the append-only record of one stock mutation. Entries are
// never updated or deleted; for every (warehouse, product) pair the sum of
// deltas equals the current stock quantity, and each BalanceAfter equals the
// next entry's BalanceBefore.
type LedgerEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_tenant_pair,priority:1"`
	WarehouseID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_tenant_pair,priority:2"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_tenant_pair,priority:3"`
	Type          LedgerEntryType `gorm:"type:varchar(20);not null"`
	QuantityDelta decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Reason        string          `gorm:"type:varchar(500)"`
	OperatorID    uuid.UUID       `gorm:"type:uuid;not null"`
	ReferenceID   *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt     time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "inventory_ledger_entries"
}

// NewLedgerEntry records a stock mutation for an item whose quantity already
// moved from balanceBefore by delta
func NewLedgerEntry(item *StockItem, entryType LedgerEntryType, delta, balanceBefore, costPrice decimal.Decimal, reason string, operatorID uuid.UUID, referenceID *uuid.UUID) (*LedgerEntry, error) {
	if !entryType.IsValid() {
		return nil, shared.NewValidationError("INVALID_LEDGER_TYPE", "Unknown ledger entry type")
	}
	if operatorID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_OPERATOR", "Operator ID cannot be empty")
	}
	balanceAfter := balanceBefore.Add(delta)
	if balanceAfter.IsNegative() {
		return nil, shared.NewValidationError("INSUFFICIENT_STOCK", "Ledger balance cannot go negative")
	}

	return &LedgerEntry{
		ID:            uuid.New(),
		TenantID:      item.TenantID,
		WarehouseID:   item.WarehouseID,
		ProductID:     item.ProductID,
		Type:          entryType,
		QuantityDelta: delta,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		CostPrice:     costPrice,
		Reason:        reason,
		OperatorID:    operatorID,
		ReferenceID:   referenceID,
		CreatedAt:     time.Now(),
	}, nil
}
